// Package reconcile merges newly produced file references into a
// catalog record's digital-object file-version list without data loss
// or duplication, and creates digital objects for records that lack
// one.
package reconcile

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/caltechlibrary/cascflow/pkg/archivesspace"
	"github.com/caltechlibrary/cascflow/pkg/errors"
	"github.com/caltechlibrary/cascflow/pkg/logging"
)

// Repository is the slice of the repository client the reconciler needs
type Repository interface {
	FindArchivalObject(ctx context.Context, componentID string) (*archivesspace.ArchivalObject, error)
	UpdateDigitalObject(ctx context.Context, digitalObject *archivesspace.DigitalObject) error
	UpdateArchivalObject(ctx context.Context, record *archivesspace.ArchivalObject) error
	CreateDigitalObject(ctx context.Context, digitalObject *archivesspace.DigitalObject) (string, error)
}

// Reconciler writes reconciled file-version lists and new digital
// objects back to the repository
type Reconciler struct {
	repo Repository
	log  zerolog.Logger
}

// New creates a Reconciler
func New(repo Repository) *Reconciler {
	return &Reconciler{
		repo: repo,
		log:  logging.GetLogger("reconcile"),
	}
}

// SaveFileVersions merges newVersions into the file-version list of the
// record's linked digital object and posts the result. The merge is
// keyed by file URI: new versions come first in input order and win
// collisions; existing versions whose URI the new set did not touch are
// preserved after them in their original order with publish and
// representative status removed. The digital object's own publish flag
// is set true.
//
// A record with no linked digital object and a record with more than
// one are both errors. The reconciliation target must be unambiguous.
func (r *Reconciler) SaveFileVersions(ctx context.Context, record *archivesspace.ArchivalObject, newVersions []archivesspace.FileVersion) error {
	digitalObject, err := linkedDigitalObject(record)
	if err != nil {
		return err
	}

	digitalObject.FileVersions = MergeFileVersions(digitalObject.FileVersions, newVersions)
	digitalObject.Publish = true

	if err := r.repo.UpdateDigitalObject(ctx, digitalObject); err != nil {
		return err
	}
	r.log.Info().Str("componentID", record.ComponentID).
		Str("digitalObject", digitalObject.URI).
		Int("fileVersions", len(digitalObject.FileVersions)).
		Msg("File versions reconciled")
	return nil
}

// CreateDigitalObject builds a minimal digital object keyed by the
// record's component id and title, posts it, attaches a digital-object
// instance to the record, and re-posts the record. On success the full
// record is fetched again so the returned copy includes the new
// instance; the caller must treat it as authoritative and discard any
// prior copy.
func (r *Reconciler) CreateDigitalObject(ctx context.Context, record *archivesspace.ArchivalObject, objectType string) (string, *archivesspace.ArchivalObject, error) {
	digitalObject := &archivesspace.DigitalObject{
		DigitalObjectID:   record.ComponentID,
		Title:             record.Title,
		DigitalObjectType: objectType,
		// created digital objects stay unpublished until reconciliation
	}
	uri, err := r.repo.CreateDigitalObject(ctx, digitalObject)
	if err != nil {
		return "", nil, err
	}

	record.Instances = append(record.Instances, archivesspace.Instance{
		InstanceType:  "digital_object",
		DigitalObject: &archivesspace.DigitalObjectRef{Ref: uri},
	})
	if err := r.repo.UpdateArchivalObject(ctx, record); err != nil {
		return "", nil, err
	}

	refreshed, err := r.repo.FindArchivalObject(ctx, record.ComponentID)
	if err != nil {
		return "", nil, err
	}
	r.log.Debug().Str("componentID", record.ComponentID).Str("uri", uri).
		Msg("Digital object attached to archival object")
	return uri, refreshed, nil
}

// MergeFileVersions merges incoming file versions with an existing
// list. Incoming entries keep their input order, with the first
// occurrence of a URI holding its position and the last occurrence
// winning the value. Existing entries whose URI is absent from the
// incoming set follow in their original order, demoted to
// publish=false and is_representative=false. The result never holds
// two entries with the same file URI.
func MergeFileVersions(existing, incoming []archivesspace.FileVersion) []archivesspace.FileVersion {
	merged := make([]archivesspace.FileVersion, 0, len(incoming)+len(existing))
	position := make(map[string]int, len(incoming))

	for _, version := range incoming {
		if i, seen := position[version.FileURI]; seen {
			merged[i] = version
			continue
		}
		position[version.FileURI] = len(merged)
		merged = append(merged, version)
	}
	for _, version := range existing {
		if _, seen := position[version.FileURI]; seen {
			continue
		}
		version.Publish = false
		version.IsRepresentative = false
		position[version.FileURI] = len(merged)
		merged = append(merged, version)
	}
	return merged
}

// linkedDigitalObject finds the record's single resolved digital-object
// instance
func linkedDigitalObject(record *archivesspace.ArchivalObject) (*archivesspace.DigitalObject, error) {
	var found *archivesspace.DigitalObject
	for _, instance := range record.Instances {
		if instance.DigitalObject == nil || instance.DigitalObject.Resolved == nil {
			continue
		}
		if found != nil {
			return nil, errors.Newf(errors.ErrMultipleMatches,
				"record %s has more than one linked digital object", record.ComponentID)
		}
		found = instance.DigitalObject.Resolved
	}
	if found == nil {
		return nil, errors.Newf(errors.ErrNotFound,
			"record %s has no linked digital object", record.ComponentID)
	}
	return found, nil
}
