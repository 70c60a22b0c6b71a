package eligibility

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caltechlibrary/cascflow/pkg/archivesspace"
	"github.com/caltechlibrary/cascflow/pkg/errors"
)

// fakeCatalog resolves records from fixed maps
type fakeCatalog struct {
	records      map[string]*archivesspace.ArchivalObject
	duplicates   map[string]bool
	resourceIDs  map[string]bool
	failEveryone bool
}

func (f *fakeCatalog) FindArchivalObject(ctx context.Context, componentID string) (*archivesspace.ArchivalObject, error) {
	if f.failEveryone {
		return nil, errors.New(errors.ErrRequestFailed, "repository unavailable")
	}
	if f.duplicates[componentID] {
		return nil, errors.Newf(errors.ErrMultipleMatches, "multiple archival objects found: %s", componentID)
	}
	record, ok := f.records[componentID]
	if !ok {
		return nil, errors.Newf(errors.ErrNotFound, "archival object not found: %s", componentID)
	}
	return record, nil
}

func (f *fakeCatalog) FindArchivalObjectRefs(ctx context.Context, componentID string) ([]string, error) {
	if f.duplicates[componentID] {
		return []string{"/a", "/b"}, nil
	}
	if _, ok := f.records[componentID]; ok {
		return []string{"/a"}, nil
	}
	return nil, nil
}

func (f *fakeCatalog) FindResourceRefs(ctx context.Context, identifier string) ([]string, error) {
	if f.resourceIDs[identifier] {
		return []string{"/repositories/2/resources/7"}, nil
	}
	return nil, nil
}

type fakeStore struct {
	prefixes map[string][]string
}

func (f *fakeStore) ResourceObjectPrefixes(ctx context.Context, resourceID string) ([]string, error) {
	return f.prefixes[resourceID], nil
}

func record(componentID string) *archivesspace.ArchivalObject {
	return &archivesspace.ArchivalObject{ComponentID: componentID, Title: "Record " + componentID}
}

func TestClassifyResourceIdentifier(t *testing.T) {
	catalog := &fakeCatalog{
		records:     map[string]*archivesspace.ArchivalObject{"item-1": record("item-1")},
		resourceIDs: map[string]bool{"RC0123": true},
	}
	store := &fakeStore{prefixes: map[string][]string{
		"RC0123": {"collections/RC0123/item-1/", "collections/RC0123/item-2/"},
	}}
	classifier := New(catalog, store)

	result, err := classifier.Classify(context.Background(), "RC0123", ModeMetadata)
	require.NoError(t, err)

	assert.Equal(t, LevelResource, result.IdentifierLevel)
	require.Contains(t, result.Eligible, "item-1")
	assert.Equal(t, "Record item-1", result.Eligible["item-1"].Title)
	assert.Equal(t, []string{"item-2"}, result.Ineligible)
}

func TestClassifyItemIdentifier(t *testing.T) {
	catalog := &fakeCatalog{
		records: map[string]*archivesspace.ArchivalObject{"item-1": record("item-1")},
	}
	classifier := New(catalog, &fakeStore{})

	result, err := classifier.Classify(context.Background(), "item-1", ModeMetadata)
	require.NoError(t, err)

	assert.Equal(t, LevelArchivalObject, result.IdentifierLevel)
	assert.Contains(t, result.Eligible, "item-1")
	assert.Empty(t, result.Ineligible)
}

func TestClassifyItemWinsOverResource(t *testing.T) {
	// An identifier matching both a resource and an item resolves as
	// the item, the more specific match
	catalog := &fakeCatalog{
		records:     map[string]*archivesspace.ArchivalObject{"AMBIG": record("AMBIG")},
		resourceIDs: map[string]bool{"AMBIG": true},
	}
	classifier := New(catalog, &fakeStore{})

	result, err := classifier.Classify(context.Background(), "AMBIG", ModeMetadata)
	require.NoError(t, err)
	assert.Equal(t, LevelArchivalObject, result.IdentifierLevel)
	assert.Contains(t, result.Eligible, "AMBIG")
}

func TestClassifyNonMetadataModeSkipsResourceLookup(t *testing.T) {
	catalog := &fakeCatalog{
		records:     map[string]*archivesspace.ArchivalObject{"RC0123": record("RC0123")},
		resourceIDs: map[string]bool{"RC0123": true},
	}
	classifier := New(catalog, &fakeStore{})

	result, err := classifier.Classify(context.Background(), "RC0123", ModeFiles)
	require.NoError(t, err)
	assert.Equal(t, LevelArchivalObject, result.IdentifierLevel)
	assert.Contains(t, result.Eligible, "RC0123")
}

func TestClassifyUnknownItemIsIneligible(t *testing.T) {
	classifier := New(&fakeCatalog{}, &fakeStore{})

	result, err := classifier.Classify(context.Background(), "ghost", ModeFiles)
	require.NoError(t, err)
	assert.Empty(t, result.Eligible)
	assert.Equal(t, []string{"ghost"}, result.Ineligible)
}

func TestClassifyAmbiguousComponentIsIneligible(t *testing.T) {
	catalog := &fakeCatalog{duplicates: map[string]bool{"dup": true}}
	classifier := New(catalog, &fakeStore{})

	result, err := classifier.Classify(context.Background(), "dup", ModeFiles)
	require.NoError(t, err)
	assert.Equal(t, []string{"dup"}, result.Ineligible)
}

func TestClassifyTransportErrorsAbort(t *testing.T) {
	classifier := New(&fakeCatalog{failEveryone: true}, &fakeStore{})

	_, err := classifier.Classify(context.Background(), "item-1", ModeFiles)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrRequestFailed))
}

func TestComponentIDFromPrefix(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"collections/RC0123/item-1/", "item-1"},
		{"collections/RC0123/item-1", "item-1"},
		{"item-1/", "item-1"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, componentIDFromPrefix(tt.prefix), tt.prefix)
	}
}
