// Package config loads cascflow settings from the process environment,
// optionally seeded from a .env file in the working directory.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/caltechlibrary/cascflow/pkg/errors"
)

// Environment variable names recognized by cascflow
const (
	EnvArchivesSpaceAPIURL       = "ARCHIVESSPACE_API_URL"
	EnvArchivesSpaceStaffURL     = "ARCHIVESSPACE_STAFF_URL"
	EnvArchivesSpaceUsername     = "ARCHIVESSPACE_USERNAME"
	EnvArchivesSpacePassword     = "ARCHIVESSPACE_PASSWORD"
	EnvArchivesSpaceRepositoryID = "ARCHIVESSPACE_REPOSITORY_ID"
	EnvBasicAuthUsername         = "ARCHIVESSPACE_BASIC_AUTH_USERNAME"
	EnvBasicAuthPassword         = "ARCHIVESSPACE_BASIC_AUTH_PASSWORD"

	EnvAWSAccessKeyID     = "AWS_ACCESS_KEY_ID"
	EnvAWSSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	EnvAWSRegion          = "AWS_REGION"
	EnvS3Bucket           = "S3_BUCKET"
	EnvCommonPathPrefix   = "COMMON_PATH_PREFIX"

	EnvAbsoluteMountParent     = "ABSOLUTE_MOUNT_PARENT"
	EnvRelativeSourceDirectory = "RELATIVE_SOURCE_DIRECTORY"
	EnvRelativeBatchDirectory  = "RELATIVE_BATCH_DIRECTORY"
	EnvFilesToRemove           = "FILES_TO_REMOVE"
)

// DefaultRepositoryID is used when ARCHIVESSPACE_REPOSITORY_ID is unset
const DefaultRepositoryID = "2"

// Settings holds every configuration value cascflow recognizes.
// Values are read once at startup and passed explicitly to the
// components that need them.
type Settings struct {
	ArchivesSpaceAPIURL       string
	ArchivesSpaceStaffURL     string
	ArchivesSpaceUsername     string
	ArchivesSpacePassword     string
	ArchivesSpaceRepositoryID string
	BasicAuthUsername         string
	BasicAuthPassword         string

	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
	S3Bucket           string
	CommonPathPrefix   string

	AbsoluteMountParent     string
	RelativeSourceDirectory string
	RelativeBatchDirectory  string
	FilesToRemove           []string
}

// Load reads settings from the environment. A .env file in the working
// directory is loaded first when present, matching how deployments seed
// the environment. Repository connection values are required; everything
// else is validated by the component that consumes it.
func Load() (*Settings, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigInvalid, "failed to load .env file")
		}
	}

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigInvalid, "failed to load environment")
	}

	s := &Settings{
		ArchivesSpaceAPIURL:       k.String(EnvArchivesSpaceAPIURL),
		ArchivesSpaceStaffURL:     k.String(EnvArchivesSpaceStaffURL),
		ArchivesSpaceUsername:     k.String(EnvArchivesSpaceUsername),
		ArchivesSpacePassword:     k.String(EnvArchivesSpacePassword),
		ArchivesSpaceRepositoryID: k.String(EnvArchivesSpaceRepositoryID),
		BasicAuthUsername:         k.String(EnvBasicAuthUsername),
		BasicAuthPassword:         k.String(EnvBasicAuthPassword),

		AWSAccessKeyID:     k.String(EnvAWSAccessKeyID),
		AWSSecretAccessKey: k.String(EnvAWSSecretAccessKey),
		AWSRegion:          k.String(EnvAWSRegion),
		S3Bucket:           k.String(EnvS3Bucket),
		CommonPathPrefix:   k.String(EnvCommonPathPrefix),

		AbsoluteMountParent:     k.String(EnvAbsoluteMountParent),
		RelativeSourceDirectory: k.String(EnvRelativeSourceDirectory),
		RelativeBatchDirectory:  k.String(EnvRelativeBatchDirectory),
		FilesToRemove:           splitList(k.String(EnvFilesToRemove)),
	}
	if s.ArchivesSpaceRepositoryID == "" {
		s.ArchivesSpaceRepositoryID = DefaultRepositoryID
	}

	var missing []string
	for _, req := range []struct{ key, value string }{
		{EnvArchivesSpaceAPIURL, s.ArchivesSpaceAPIURL},
		{EnvArchivesSpaceUsername, s.ArchivesSpaceUsername},
		{EnvArchivesSpacePassword, s.ArchivesSpacePassword},
	} {
		if req.value == "" {
			missing = append(missing, req.key)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Newf(errors.ErrConfigInvalid,
			"missing required configuration: %s", strings.Join(missing, ", "))
	}
	return s, nil
}

// splitList parses a comma-separated value, dropping empty elements
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
