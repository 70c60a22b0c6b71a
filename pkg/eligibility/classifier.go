// Package eligibility classifies metadata identifiers as resource-level
// or item-level and partitions the referenced catalog records into
// eligible (resolvable) and ineligible (absent) sets.
package eligibility

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/caltechlibrary/cascflow/pkg/archivesspace"
	"github.com/caltechlibrary/cascflow/pkg/errors"
	"github.com/caltechlibrary/cascflow/pkg/logging"
)

// Level states what kind of catalog record an identifier denotes
type Level string

const (
	// LevelResource is a top-level collection record
	LevelResource Level = "resource"
	// LevelArchivalObject is a single item record
	LevelArchivalObject Level = "archival_object"
)

// Mode selects the workflow the identifier came from. Only the
// metadata workflow accepts resource identifiers.
type Mode string

const (
	ModeMetadata    Mode = "metadata"
	ModePublication Mode = "publication"
	ModeFiles       Mode = "files"
)

// Catalog is the slice of the repository client the classifier needs
type Catalog interface {
	FindArchivalObject(ctx context.Context, componentID string) (*archivesspace.ArchivalObject, error)
	FindArchivalObjectRefs(ctx context.Context, componentID string) ([]string, error)
	FindResourceRefs(ctx context.Context, identifier string) ([]string, error)
}

// Store lists published archival-object prefixes under a resource
type Store interface {
	ResourceObjectPrefixes(ctx context.Context, resourceID string) ([]string, error)
}

// Result partitions the candidate component ids referenced by one
// identifier. Eligible holds the full resolved record per component id;
// Ineligible lists the component ids that could not be resolved.
type Result struct {
	IdentifierLevel Level
	Eligible        map[string]*archivesspace.ArchivalObject
	Ineligible      []string
}

// Classifier resolves identifiers against the catalog and, for
// resource identifiers, against the object store
type Classifier struct {
	catalog Catalog
	store   Store
	log     zerolog.Logger
}

// New creates a Classifier. store may be nil when only item-level
// workflows are in play; resource classification then fails cleanly.
func New(catalog Catalog, store Store) *Classifier {
	return &Classifier{
		catalog: catalog,
		store:   store,
		log:     logging.GetLogger("eligibility"),
	}
}

// Classify determines whether identifier denotes a resource or a single
// archival object and classifies each candidate record as eligible or
// ineligible.
//
// In metadata mode the identifier is looked up both as a resource public
// identifier and as an item component id. Exactly one resource match
// with zero item matches means a resource; the published items beneath
// it are enumerated from the object store and each is classified
// individually. In every other case the identifier is treated as a
// single item; an identifier matching both a resource and an item is
// deliberately resolved as the item, the more specific match.
//
// A candidate that cannot be resolved never aborts classification of
// the rest; it is recorded as ineligible.
func (c *Classifier) Classify(ctx context.Context, identifier string, mode Mode) (*Result, error) {
	result := &Result{
		IdentifierLevel: LevelArchivalObject,
		Eligible:        make(map[string]*archivesspace.ArchivalObject),
	}

	if mode != ModeMetadata {
		if err := c.classifyOne(ctx, identifier, result); err != nil {
			return nil, err
		}
		return result, nil
	}

	resourceRefs, err := c.catalog.FindResourceRefs(ctx, identifier)
	if err != nil {
		return nil, err
	}
	itemRefs, err := c.catalog.FindArchivalObjectRefs(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if len(resourceRefs) == 1 && len(itemRefs) < 1 {
		result.IdentifierLevel = LevelResource
		if c.store == nil {
			return nil, errors.Newf(errors.ErrConfigInvalid,
				"identifier %s denotes a resource but no object store is configured", identifier)
		}
		prefixes, err := c.store.ResourceObjectPrefixes(ctx, identifier)
		if err != nil {
			return nil, err
		}
		c.log.Debug().Str("identifier", identifier).Int("published", len(prefixes)).
			Msg("Resource identifier, classifying published items")
		for _, prefix := range prefixes {
			componentID := componentIDFromPrefix(prefix)
			if componentID == "" {
				continue
			}
			if err := c.classifyOne(ctx, componentID, result); err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	if err := c.classifyOne(ctx, identifier, result); err != nil {
		return nil, err
	}
	return result, nil
}

// classifyOne attempts full record resolution for one component id.
// NOT_FOUND and MULTIPLE_MATCHES mark the candidate ineligible; any
// other failure aborts classification.
func (c *Classifier) classifyOne(ctx context.Context, componentID string, result *Result) error {
	record, err := c.catalog.FindArchivalObject(ctx, componentID)
	if err != nil {
		if errors.IsCode(err, errors.ErrNotFound) || errors.IsCode(err, errors.ErrMultipleMatches) {
			c.log.Debug().Str("componentID", componentID).Msg("Ineligible archival object")
			result.Ineligible = append(result.Ineligible, componentID)
			return nil
		}
		return err
	}
	result.Eligible[componentID] = record
	return nil
}

// componentIDFromPrefix extracts the trailing component directory from
// a prefix like "collections/RC0123/item-1/"
func componentIDFromPrefix(prefix string) string {
	trimmed := strings.TrimSuffix(prefix, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
