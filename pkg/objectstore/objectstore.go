// Package objectstore wraps the S3 client used to enumerate published
// archival objects and to move individual objects. Anything present
// under a resource's prefix in the bucket is, by local policy,
// published.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	cferrors "github.com/caltechlibrary/cascflow/pkg/errors"
	"github.com/caltechlibrary/cascflow/pkg/logging"
)

// Config holds the credentials and layout of the object store
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string

	// PathPrefix is the common key prefix under which resources are
	// laid out: <prefix>/<resource_id>/<component_id>/...
	PathPrefix string
}

// api is the subset of the S3 client the package uses, split out so
// tests can substitute a fake
type api interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	s3.ListObjectsV2APIClient
}

// Client is an object-store session scoped to one bucket and prefix
type Client struct {
	s3         api
	bucket     string
	pathPrefix string
	log        zerolog.Logger
}

// New builds an S3-backed client from static credentials. The session
// is established once per run and reused.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, cferrors.New(cferrors.ErrConfigInvalid, "object store bucket is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, cferrors.Wrap(err, cferrors.ErrConnection, "failed to establish S3 connection")
	}
	c := &Client{
		s3:         s3.NewFromConfig(awsCfg),
		bucket:     cfg.Bucket,
		pathPrefix: strings.Trim(cfg.PathPrefix, "/"),
		log:        logging.GetLogger("objectstore"),
	}
	c.log.Debug().Str("bucket", c.bucket).Msg("S3 connection established")
	return c, nil
}

// ResourceObjectPrefixes lists the key prefixes of archival objects
// published under a resource, one prefix per component directory:
// <path_prefix>/<resource_id>/<component_id>/
func (c *Client) ResourceObjectPrefixes(ctx context.Context, resourceID string) ([]string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(c.bucket),
		Delimiter: aws.String("/"),
		Prefix:    aws.String(fmt.Sprintf("%s/%s/", c.pathPrefix, resourceID)),
	}
	var prefixes []string
	paginator := s3.NewListObjectsV2Paginator(c.s3, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, cferrors.Wrapf(err, cferrors.ErrRequestFailed,
				"failed listing prefixes under resource %s", resourceID)
		}
		for _, common := range page.CommonPrefixes {
			prefixes = append(prefixes, aws.ToString(common.Prefix))
		}
	}
	return prefixes, nil
}

// GetObject fetches one object's body. A missing key is a NOT_FOUND
// error; the caller decides whether that is fatal.
func (c *Client) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, cferrors.Newf(cferrors.ErrNotFound,
				"object not found: %s in %s", key, c.bucket)
		}
		return nil, cferrors.Wrapf(err, cferrors.ErrRequestFailed,
			"failed getting object %s", key)
	}
	return out.Body, nil
}

// PutObject writes one object. An empty body writes a zero-byte
// object, used for marker keys.
func (c *Client) PutObject(ctx context.Context, key string, body io.Reader) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return cferrors.Wrapf(err, cferrors.ErrRequestFailed,
			"failed putting object %s", key)
	}
	c.log.Debug().Str("bucket", c.bucket).Str("key", key).Msg("Object put to S3")
	return nil
}
