// Package batch owns the three-stage directory state machine that moves
// a batch of entries from its source volume through initial, working,
// and complete stages, pairing each entry with its catalog record on
// the way.
//
// Stage transitions are atomic renames: an entry exists in exactly one
// stage at any moment, and a crash between stages leaves it in exactly
// one of them. Partial progress is durable on the filesystem; re-running
// against the same batch root resumes from whatever is left in the
// initial stage.
package batch

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caltechlibrary/cascflow/pkg/errors"
	"github.com/caltechlibrary/cascflow/pkg/paths"
)

// Stage directory names. Transitions are one-directional:
// initial -> working -> complete.
const (
	StageInitial  = "STAGE_1_INITIAL"
	StageWorking  = "STAGE_2_WORKING"
	StageComplete = "STAGE_3_COMPLETE"
)

// Batch is one staged set of entries, identified by its source volume,
// batch set id, and pipeline name
type Batch struct {
	Volume   string
	SetID    string
	Pipeline string
	Root     string
}

// StageDir returns the absolute path of one stage directory
func (b *Batch) StageDir(stage string) string {
	return filepath.Join(b.Root, stage)
}

// Initialize renames the volume's source directory into a new batch
// root's initial stage, creates the working and complete stages, and
// recreates an empty source directory so the source location is
// immediately reusable for the next batch.
//
// Directory creation is idempotent, but an initial stage left over from
// a previous batch is a conflict, never silently merged.
func Initialize(p paths.Paths, volume, batchSetID, pipeline string) (*Batch, error) {
	sourceDir := p.SourceDir(volume)
	if _, err := os.Stat(sourceDir); err != nil {
		return nil, errors.Wrapf(err, errors.ErrNotFound,
			"source path does not exist: %s", sourceDir)
	}

	batch := &Batch{
		Volume:   volume,
		SetID:    batchSetID,
		Pipeline: pipeline,
		Root:     p.BatchRoot(volume, batchSetID, pipeline),
	}
	if err := os.MkdirAll(batch.Root, 0o755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrInternal,
			"failed to create batch directory: %s", batch.Root)
	}

	stageInitial := batch.StageDir(StageInitial)
	if _, err := os.Stat(stageInitial); err == nil {
		return nil, errors.Newf(errors.ErrBatchConflict,
			"batch already initialized: %s", stageInitial)
	}
	if err := os.Rename(sourceDir, stageInitial); err != nil {
		return nil, errors.Wrapf(err, errors.ErrInternal,
			"failed to move source into batch: %s", sourceDir)
	}
	for _, stage := range []string{StageWorking, StageComplete} {
		if err := os.MkdirAll(batch.StageDir(stage), 0o755); err != nil {
			return nil, errors.Wrapf(err, errors.ErrInternal,
				"failed to create stage directory: %s", stage)
		}
	}
	if err := os.Mkdir(sourceDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrInternal,
			"failed to recreate source directory: %s", sourceDir)
	}
	return batch, nil
}

// Open returns a previously initialized batch so that an interrupted
// run can resume. All three stage directories must exist.
func Open(p paths.Paths, volume, batchSetID, pipeline string) (*Batch, error) {
	batch := &Batch{
		Volume:   volume,
		SetID:    batchSetID,
		Pipeline: pipeline,
		Root:     p.BatchRoot(volume, batchSetID, pipeline),
	}
	for _, stage := range []string{StageInitial, StageWorking, StageComplete} {
		if _, err := os.Stat(batch.StageDir(stage)); err != nil {
			return nil, errors.Wrapf(err, errors.ErrNotFound,
				"batch is missing stage directory: %s", stage)
		}
	}
	return batch, nil
}

// RemoveListedFiles deletes every file anywhere under root whose name
// appears in names. Used as a once-per-batch housekeeping pass before
// iteration begins.
func RemoveListedFiles(root string, names []string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}
	listed := make(map[string]bool, len(names))
	for _, name := range names {
		listed[name] = true
	}
	removed := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && listed[d.Name()] {
			if err := os.Remove(path); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, errors.Wrapf(err, errors.ErrInternal,
			"housekeeping pass failed under %s", root)
	}
	return removed, nil
}
