// Package paths provides centralized path handling for cascflow.
// All filesystem locations are derived from the mounted volume parent
// and the relative source/batch directories configured for a deployment.
package paths

import (
	"fmt"
	"path/filepath"

	"github.com/caltechlibrary/cascflow/pkg/errors"
)

// Paths derives every filesystem location cascflow touches.
// It is constructed once from configuration and passed explicitly.
type Paths struct {
	mountParent    string
	relativeSource string
	relativeBatch  string
}

// New creates a Paths rooted at mountParent. relativeSource and
// relativeBatch are volume-relative directories for the pre-batch
// staging area and the batch roots respectively.
func New(mountParent, relativeSource, relativeBatch string) (Paths, error) {
	var missing []string
	if mountParent == "" {
		missing = append(missing, "mount parent")
	}
	if relativeSource == "" {
		missing = append(missing, "relative source directory")
	}
	if relativeBatch == "" {
		missing = append(missing, "relative batch directory")
	}
	if len(missing) > 0 {
		return Paths{}, errors.Newf(errors.ErrConfigInvalid,
			"path configuration incomplete: missing %v", missing)
	}
	return Paths{
		mountParent:    mountParent,
		relativeSource: relativeSource,
		relativeBatch:  relativeBatch,
	}, nil
}

// MountParent returns the absolute parent directory of all volumes
func (p Paths) MountParent() string {
	return p.mountParent
}

// SourceDir returns the pre-batch staging area for a volume
func (p Paths) SourceDir(volume string) string {
	return filepath.Join(p.mountParent, volume, p.relativeSource)
}

// BatchRoot returns the root directory for one batch, named by its
// batch set id and pipeline: <volume>/<relative_batch>/<setID>--<pipeline>
func (p Paths) BatchRoot(volume, batchSetID, pipeline string) string {
	return filepath.Join(p.mountParent, volume, p.relativeBatch,
		fmt.Sprintf("%s--%s", batchSetID, pipeline))
}
