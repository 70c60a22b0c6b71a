package batch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/caltechlibrary/cascflow/pkg/archivesspace"
	"github.com/caltechlibrary/cascflow/pkg/errors"
	"github.com/caltechlibrary/cascflow/pkg/logging"
)

// Catalog is the slice of the repository client the stager needs
type Catalog interface {
	FindArchivalObject(ctx context.Context, componentID string) (*archivesspace.ArchivalObject, error)
}

// Entry is one staged unit of work: a file or directory named by a
// catalog component id, paired with its resolved record and derived
// arrangement. Path points at the entry's current location.
type Entry struct {
	Name        string
	ComponentID string
	Path        string
	Files       []string
	Record      *archivesspace.ArchivalObject
	Arrangement *archivesspace.Arrangement
}

// Stager advances batch entries through the stage directories while
// pairing each with catalog data
type Stager struct {
	catalog       Catalog
	filesToRemove []string
	log           zerolog.Logger
}

// NewStager creates a Stager. filesToRemove names files deleted from
// the batch root in a single housekeeping pass before iteration.
func NewStager(catalog Catalog, filesToRemove []string) *Stager {
	return &Stager{
		catalog:       catalog,
		filesToRemove: filesToRemove,
		log:           logging.GetLogger("batch"),
	}
}

// Entries runs the housekeeping pass and returns an iterator over the
// batch's initial-stage entries in lexicographic name order.
//
// The iterator is single-pass and forward-only: each call to Next moves
// one entry into the working stage, so re-iterating from the start will
// not re-yield entries already advanced. Resuming after an interruption
// means calling Entries again, which re-scans whatever remains in the
// initial stage.
func (s *Stager) Entries(ctx context.Context, batch *Batch) (*Entries, error) {
	removed, err := RemoveListedFiles(batch.Root, s.filesToRemove)
	if err != nil {
		return nil, err
	}
	if removed > 0 {
		s.log.Debug().Int("removed", removed).Str("root", batch.Root).
			Msg("Housekeeping pass removed listed files")
	}

	children, err := os.ReadDir(batch.StageDir(StageInitial))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInternal,
			"failed to scan initial stage of batch %s", batch.Root)
	}
	names := make([]string, 0, len(children))
	for _, child := range children {
		names = append(names, child.Name())
	}
	sort.Strings(names)

	return &Entries{stager: s, batch: batch, names: names, ctx: ctx}, nil
}

// Complete moves an entry from the working stage to the complete
// stage. The caller invokes this after its own downstream processing
// succeeds; the stager never does it automatically.
func (s *Stager) Complete(batch *Batch, entry *Entry) error {
	target := filepath.Join(batch.StageDir(StageComplete), entry.Name)
	if err := os.Rename(entry.Path, target); err != nil {
		return errors.Wrapf(err, errors.ErrInternal,
			"failed to move entry to complete stage: %s", entry.Name)
	}
	entry.Path = target
	s.log.Info().Str("entry", entry.Name).Msg("Entry complete")
	return nil
}

// Entries iterates a batch's entries in lexicographic order, advancing
// each into the working stage as it is yielded
type Entries struct {
	stager  *Stager
	batch   *Batch
	ctx     context.Context
	names   []string
	next    int
	current *Entry
	err     error
}

// Next advances to the next entry. It returns false when the batch is
// exhausted or an error occurred; check Err after the loop. A lookup
// failure here is fatal to the run: staged entries are assumed
// pre-validated, so an unresolvable component id stops iteration.
func (it *Entries) Next() bool {
	if it.err != nil || it.next >= len(it.names) {
		return false
	}
	name := it.names[it.next]
	it.next++

	entry, err := it.stager.advance(it.ctx, it.batch, name)
	if err != nil {
		it.err = err
		return false
	}
	it.current = entry
	return true
}

// Entry returns the entry produced by the last successful Next
func (it *Entries) Entry() *Entry {
	return it.current
}

// Err returns the error that stopped iteration, if any
func (it *Entries) Err() error {
	return it.err
}

// advance resolves one entry's catalog record, derives its arrangement,
// moves it into the working stage, and enumerates its files
func (s *Stager) advance(ctx context.Context, batch *Batch, name string) (*Entry, error) {
	componentID := stem(name)
	record, err := s.catalog.FindArchivalObject(ctx, componentID)
	if err != nil {
		return nil, err
	}
	arrangement, err := archivesspace.BuildArrangement(record)
	if err != nil {
		return nil, err
	}

	source := filepath.Join(batch.StageDir(StageInitial), name)
	target := filepath.Join(batch.StageDir(StageWorking), name)
	if err := os.Rename(source, target); err != nil {
		return nil, errors.Wrapf(err, errors.ErrInternal,
			"failed to move entry to working stage: %s", name)
	}

	files, err := entryFiles(target)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("entry", name).Str("componentID", componentID).
		Int("files", len(files)).Msg("Entry advanced to working stage")

	return &Entry{
		Name:        name,
		ComponentID: componentID,
		Path:        target,
		Files:       files,
		Record:      record,
		Arrangement: arrangement,
	}, nil
}

// entryFiles enumerates an entry's file set: the entry itself when it
// is a file, or its immediate child files when it is a directory.
// Never recursive.
func entryFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInternal, "failed to stat entry: %s", path)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	children, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInternal, "failed to list entry: %s", path)
	}
	var files []string
	for _, child := range children {
		if !child.IsDir() {
			files = append(files, filepath.Join(path, child.Name()))
		}
	}
	return files, nil
}

// stem strips the final extension from an entry name, mapping a staged
// filename like "item-1.tif" to its component id
func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
