package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/caltechlibrary/cascflow/pkg/archivesspace"
	"github.com/caltechlibrary/cascflow/pkg/batch"
	"github.com/caltechlibrary/cascflow/pkg/config"
	"github.com/caltechlibrary/cascflow/pkg/eligibility"
	"github.com/caltechlibrary/cascflow/pkg/objectstore"
	"github.com/caltechlibrary/cascflow/pkg/paths"
)

var validateTarget string

var validateCmd = &cobra.Command{
	Use:   "validate <identifier|volume>",
	Short: "Validate an identifier or a volume's source directory before staging",
	Long: `For the metadata target the argument is a resource or archival object
identifier, classified against the repository. For the files and
publication targets the argument is a source volume name whose contents
are checked for structural and eligibility violations.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		settings, err := config.Load()
		if err != nil {
			return err
		}
		classifier, err := newClassifier(cmd, settings)
		if err != nil {
			return err
		}

		mode := eligibility.Mode(validateTarget)
		if mode == eligibility.ModeMetadata {
			result, err := classifier.Classify(ctx, args[0], mode)
			if err != nil {
				return err
			}
			printClassification(result)
			return nil
		}

		p, err := paths.New(settings.AbsoluteMountParent,
			settings.RelativeSourceDirectory, settings.RelativeBatchDirectory)
		if err != nil {
			return err
		}
		report, err := batch.ValidateSource(ctx, classifier,
			p.SourceDir(args[0]), settings.FilesToRemove, mode)
		if err != nil {
			return err
		}
		printReport(report)
		return report.Violations()
	},
}

var initBatchCmd = &cobra.Command{
	Use:   "init-batch <volume> <batch-set-id> <pipeline>",
	Short: "Move a volume's source directory into a new batch's initial stage",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load()
		if err != nil {
			return err
		}
		p, err := paths.New(settings.AbsoluteMountParent,
			settings.RelativeSourceDirectory, settings.RelativeBatchDirectory)
		if err != nil {
			return err
		}
		initialized, err := batch.Initialize(p, args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Printf("batch initialized: %s\n", initialized.Root)
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateTarget, "target", "files",
		"Workflow target: metadata, files, or publication")
}

// newClassifier wires the repository and, when configured, the object
// store into an eligibility classifier
func newClassifier(cmd *cobra.Command, settings *config.Settings) (*eligibility.Classifier, error) {
	client, err := archivesspace.New(cmd.Context(), archivesspace.Config{
		BaseURL:           settings.ArchivesSpaceAPIURL,
		Username:          settings.ArchivesSpaceUsername,
		Password:          settings.ArchivesSpacePassword,
		RepositoryID:      settings.ArchivesSpaceRepositoryID,
		BasicAuthUsername: settings.BasicAuthUsername,
		BasicAuthPassword: settings.BasicAuthPassword,
	})
	if err != nil {
		return nil, err
	}
	var store eligibility.Store
	if settings.S3Bucket != "" {
		s3Client, err := objectstore.New(cmd.Context(), objectstore.Config{
			AccessKeyID:     settings.AWSAccessKeyID,
			SecretAccessKey: settings.AWSSecretAccessKey,
			Region:          settings.AWSRegion,
			Bucket:          settings.S3Bucket,
			PathPrefix:      settings.CommonPathPrefix,
		})
		if err != nil {
			return nil, err
		}
		store = s3Client
	}
	return eligibility.New(client, store), nil
}

func printClassification(result *eligibility.Result) {
	fmt.Printf("identifier level: %s\n", result.IdentifierLevel)
	eligible := make([]string, 0, len(result.Eligible))
	for componentID := range result.Eligible {
		eligible = append(eligible, componentID)
	}
	sort.Strings(eligible)
	fmt.Printf("eligible (%d):\n", len(eligible))
	for _, componentID := range eligible {
		fmt.Printf("  %s\n", componentID)
	}
	fmt.Printf("ineligible (%d):\n", len(result.Ineligible))
	for _, componentID := range result.Ineligible {
		fmt.Printf("  %s\n", componentID)
	}
}

func printReport(report *batch.Report) {
	fmt.Printf("source path: %s\n", report.SourcePath)
	fmt.Printf("files: %d, eligible: %d, ineligible: %d\n",
		report.FileCount, len(report.Eligible), len(report.Ineligible))
	for _, dir := range report.NestedDirectories {
		fmt.Printf("  nested subdirectory: %s\n", dir)
	}
	for _, dir := range report.EmptyDirectories {
		fmt.Printf("  empty directory: %s\n", dir)
	}
	for _, componentID := range report.Ineligible {
		fmt.Printf("  unresolvable: %s\n", componentID)
	}
}
