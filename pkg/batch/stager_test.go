package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caltechlibrary/cascflow/pkg/archivesspace"
	"github.com/caltechlibrary/cascflow/pkg/errors"
)

// stubCatalog resolves every component id to a minimal valid record
// unless the id is listed as missing
type stubCatalog struct {
	missing map[string]bool
	lookups []string
}

func (s *stubCatalog) FindArchivalObject(ctx context.Context, componentID string) (*archivesspace.ArchivalObject, error) {
	s.lookups = append(s.lookups, componentID)
	if s.missing[componentID] {
		return nil, errors.Newf(errors.ErrNotFound, "archival object not found: %s", componentID)
	}
	return &archivesspace.ArchivalObject{
		URI:         "/repositories/2/archival_objects/" + componentID,
		ComponentID: componentID,
		Title:       "Record " + componentID,
		Level:       "item",
		Repository: &archivesspace.RepositoryRef{
			Ref:      "/repositories/2",
			Resolved: &archivesspace.Repository{Name: "Archives", RepoCode: "arc"},
		},
	}, nil
}

// newTestBatch builds an initialized batch whose initial stage holds
// the given entries; entries ending in "/" become directories
func newTestBatch(t *testing.T, entries map[string][]string) *Batch {
	t.Helper()
	root := t.TempDir()
	batch := &Batch{Volume: "vol1", SetID: "2024-01", Pipeline: "ingest", Root: root}
	for _, stage := range []string{StageInitial, StageWorking, StageComplete} {
		require.NoError(t, os.MkdirAll(batch.StageDir(stage), 0o755))
	}
	for name, files := range entries {
		path := filepath.Join(batch.StageDir(StageInitial), name)
		if files == nil {
			require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
			continue
		}
		require.NoError(t, os.Mkdir(path, 0o755))
		for _, file := range files {
			require.NoError(t, os.WriteFile(filepath.Join(path, file), []byte("x"), 0o644))
		}
	}
	return batch
}

func TestEntriesLexicographicOrder(t *testing.T) {
	batch := newTestBatch(t, map[string][]string{
		"b1": {"page1.tif"},
		"a2": {"page1.tif"},
		"c3": {"page1.tif"},
	})
	stager := NewStager(&stubCatalog{}, nil)

	it, err := stager.Entries(context.Background(), batch)
	require.NoError(t, err)

	var order []string
	for it.Next() {
		order = append(order, it.Entry().Name)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"a2", "b1", "c3"}, order)
}

func TestEntriesAdvancesToWorkingStage(t *testing.T) {
	batch := newTestBatch(t, map[string][]string{
		"item-1": {"page2.tif", "page1.tif"},
	})
	stager := NewStager(&stubCatalog{}, nil)

	it, err := stager.Entries(context.Background(), batch)
	require.NoError(t, err)
	require.True(t, it.Next())

	entry := it.Entry()
	assert.Equal(t, "item-1", entry.ComponentID)
	assert.Equal(t, filepath.Join(batch.StageDir(StageWorking), "item-1"), entry.Path)
	assert.NoDirExists(t, filepath.Join(batch.StageDir(StageInitial), "item-1"))
	assert.DirExists(t, entry.Path)
	assert.Len(t, entry.Files, 2)
	require.NotNil(t, entry.Record)
	assert.Equal(t, "Record item-1", entry.Record.Title)
	require.NotNil(t, entry.Arrangement)
	assert.Equal(t, "Archives", entry.Arrangement.RepositoryName)

	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
}

func TestEntriesFileEntry(t *testing.T) {
	batch := newTestBatch(t, map[string][]string{"item-1.tif": nil})
	stager := NewStager(&stubCatalog{}, nil)

	it, err := stager.Entries(context.Background(), batch)
	require.NoError(t, err)
	require.True(t, it.Next())

	entry := it.Entry()
	// the extension is stripped when deriving the component id
	assert.Equal(t, "item-1", entry.ComponentID)
	assert.Equal(t, []string{entry.Path}, entry.Files)
}

func TestEntriesUnknownRecordIsFatal(t *testing.T) {
	batch := newTestBatch(t, map[string][]string{
		"item-1": {"a.tif"},
		"item-2": {"a.tif"},
	})
	catalog := &stubCatalog{missing: map[string]bool{"item-1": true}}
	stager := NewStager(catalog, nil)

	it, err := stager.Entries(context.Background(), batch)
	require.NoError(t, err)

	assert.False(t, it.Next())
	require.Error(t, it.Err())
	assert.True(t, errors.IsCode(it.Err(), errors.ErrNotFound))
	// the failing entry stays in the initial stage, untouched
	assert.DirExists(t, filepath.Join(batch.StageDir(StageInitial), "item-1"))
}

func TestEntriesHousekeepingPass(t *testing.T) {
	batch := newTestBatch(t, map[string][]string{
		"item-1": {"page1.tif", "Thumbs.db"},
	})
	stager := NewStager(&stubCatalog{}, []string{"Thumbs.db"})

	it, err := stager.Entries(context.Background(), batch)
	require.NoError(t, err)
	require.True(t, it.Next())

	assert.Len(t, it.Entry().Files, 1)
	assert.NoFileExists(t, filepath.Join(it.Entry().Path, "Thumbs.db"))
}

func TestEntriesResumeSkipsAdvanced(t *testing.T) {
	batch := newTestBatch(t, map[string][]string{
		"item-1": {"a.tif"},
		"item-2": {"a.tif"},
	})
	stager := NewStager(&stubCatalog{}, nil)

	it, err := stager.Entries(context.Background(), batch)
	require.NoError(t, err)
	require.True(t, it.Next())
	assert.Equal(t, "item-1", it.Entry().Name)

	// a fresh scan sees only what is left in the initial stage
	resumed, err := stager.Entries(context.Background(), batch)
	require.NoError(t, err)
	require.True(t, resumed.Next())
	assert.Equal(t, "item-2", resumed.Entry().Name)
	assert.False(t, resumed.Next())
}

func TestComplete(t *testing.T) {
	batch := newTestBatch(t, map[string][]string{"item-1": {"a.tif"}})
	stager := NewStager(&stubCatalog{}, nil)

	it, err := stager.Entries(context.Background(), batch)
	require.NoError(t, err)
	require.True(t, it.Next())
	entry := it.Entry()

	require.NoError(t, stager.Complete(batch, entry))
	assert.Equal(t, filepath.Join(batch.StageDir(StageComplete), "item-1"), entry.Path)
	assert.DirExists(t, entry.Path)
	assert.NoDirExists(t, filepath.Join(batch.StageDir(StageWorking), "item-1"))
}

func TestStem(t *testing.T) {
	assert.Equal(t, "item-1", stem("item-1.tif"))
	assert.Equal(t, "item-1", stem("item-1"))
	assert.Equal(t, "archive.tar", stem("archive.tar.gz"))
}
