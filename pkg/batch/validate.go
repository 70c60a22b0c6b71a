package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caltechlibrary/cascflow/pkg/archivesspace"
	"github.com/caltechlibrary/cascflow/pkg/eligibility"
	"github.com/caltechlibrary/cascflow/pkg/errors"
)

// Classifier is the slice of the eligibility classifier the pre-flight
// validation needs
type Classifier interface {
	Classify(ctx context.Context, identifier string, mode eligibility.Mode) (*eligibility.Result, error)
}

// Report collects everything pre-flight validation learned about a
// source directory. Structural violations are gathered exhaustively;
// validation never aborts on the first one.
type Report struct {
	SourcePath        string
	Eligible          map[string]*archivesspace.ArchivalObject
	Ineligible        []string
	NestedDirectories []string
	EmptyDirectories  []string
	FileCount         int
}

// Violations returns all structural and eligibility violations as one
// coded error, or nil when the source is clean
func (r *Report) Violations() error {
	var problems []string
	for _, dir := range r.NestedDirectories {
		problems = append(problems, fmt.Sprintf("nested subdirectory under entry: %s", dir))
	}
	for _, dir := range r.EmptyDirectories {
		problems = append(problems, fmt.Sprintf("entry directory contains no files: %s", dir))
	}
	for _, componentID := range r.Ineligible {
		problems = append(problems, fmt.Sprintf("unresolvable identifier: %s", componentID))
	}
	if r.FileCount == 0 {
		problems = append(problems, fmt.Sprintf("no files found under %s", r.SourcePath))
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.Newf(errors.ErrValidationFailed,
		"source validation failed: %s", strings.Join(problems, "; ")).
		WithDetail("count", len(problems))
}

// ValidateSource inspects a volume's source directory before a batch is
// cut: it runs the housekeeping pass, classifies every first-level
// entry's identifier, checks entry directories for structural
// violations, and counts files. All findings are returned together in
// the Report; only I/O failures abort early.
func ValidateSource(ctx context.Context, classifier Classifier, sourcePath string, filesToRemove []string, mode eligibility.Mode) (*Report, error) {
	if _, err := os.Stat(sourcePath); err != nil {
		return nil, errors.Wrapf(err, errors.ErrNotFound,
			"source path does not exist: %s", sourcePath)
	}
	if _, err := RemoveListedFiles(sourcePath, filesToRemove); err != nil {
		return nil, err
	}

	report := &Report{
		SourcePath: sourcePath,
		Eligible:   make(map[string]*archivesspace.ArchivalObject),
	}
	entries, err := os.ReadDir(sourcePath)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInternal,
			"failed to list source path: %s", sourcePath)
	}
	for _, entry := range entries {
		result, err := classifier.Classify(ctx, stem(entry.Name()), mode)
		if err != nil {
			return nil, err
		}
		for componentID, record := range result.Eligible {
			report.Eligible[componentID] = record
		}
		report.Ineligible = append(report.Ineligible, result.Ineligible...)

		if !entry.IsDir() {
			report.FileCount++
			continue
		}
		entryPath := filepath.Join(sourcePath, entry.Name())
		inspection, err := InspectDirectory(entryPath)
		if err != nil {
			return nil, err
		}
		if inspection.HasNestedDir {
			report.NestedDirectories = append(report.NestedDirectories, entryPath)
		}
		if inspection.EmptyOfFiles {
			report.EmptyDirectories = append(report.EmptyDirectories, entryPath)
		}
		report.FileCount += inspection.FileCount
	}
	return report, nil
}
