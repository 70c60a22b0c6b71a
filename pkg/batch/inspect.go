package batch

import (
	"os"

	"github.com/caltechlibrary/cascflow/pkg/errors"
)

// Inspection describes the immediate children of one directory entry
type Inspection struct {
	// HasNestedDir is true when any immediate child is a directory.
	// Entry directories may contain only files.
	HasNestedDir bool
	// EmptyOfFiles is true when no immediate child is a file
	EmptyOfFiles bool
	// FileCount is the number of immediate file children
	FileCount int
}

// InspectDirectory examines only the first level of dir, never
// recursing. It backs the structural checks on batch entries: a
// directory entry with a nested subdirectory or with zero files is
// invalid and must be reported, never silently skipped.
func InspectDirectory(dir string) (Inspection, error) {
	children, err := os.ReadDir(dir)
	if err != nil {
		return Inspection{}, errors.Wrapf(err, errors.ErrInternal,
			"failed to inspect directory: %s", dir)
	}
	inspection := Inspection{}
	for _, child := range children {
		if child.IsDir() {
			inspection.HasNestedDir = true
		} else {
			inspection.FileCount++
		}
	}
	inspection.EmptyOfFiles = inspection.FileCount == 0
	return inspection, nil
}
