// Package storage wraps an S3-compatible object store. The original
// deployment targets Aliyun OSS, addressed by the full bucket host
// (bucket.oss-region.aliyuncs.com); any S3-compatible endpoint works.
package storage

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
	"github.com/rs/zerolog"

	"github.com/winnerqin/jimeng4-image-generator/internal/config"
)

var errStorageDisabled = errors.New("object storage is not configured; set OSS_* to enable uploads")

// Object describes one stored object from a List call.
type Object struct {
	Key  string
	Size int64
}

// ObjectStorage handles put/list/delete against the configured bucket.
// When credentials are absent it runs disabled: Put fails, List returns
// nothing, so text-only generation keeps working.
type ObjectStorage struct {
	bucket   string
	host     string // full public host, bucket included
	client   *s3.Client
	log      zerolog.Logger
	disabled bool
}

// New creates an ObjectStorage from the OSS_* configuration. The endpoint is
// split into bucket and service host on the first dot, matching the
// bucket-name.oss-region.aliyuncs.com convention.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*ObjectStorage, error) {
	logger := log.With().Str("component", "object-storage").Logger()
	store := &ObjectStorage{
		host: strings.TrimSpace(cfg.OSSEndpoint),
		log:  logger,
	}

	accessKey := strings.TrimSpace(cfg.OSSAccessKeyID)
	secretKey := strings.TrimSpace(cfg.OSSAccessKeySecret)
	if !cfg.OSSEnabled || store.host == "" || accessKey == "" || secretKey == "" {
		logger.Warn().Msg("OSS is not configured; reference-image uploads and sample listing are disabled")
		store.disabled = true
		return store, nil
	}

	bucket, serviceHost, ok := strings.Cut(store.host, ".")
	if !ok {
		return nil, fmt.Errorf("malformed OSS_ENDPOINT %q, want bucket.host form", store.host)
	}
	store.bucket = bucket

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL:           "https://" + serviceHost,
			PartitionID:   "aws",
			SigningRegion: cfg.OSSRegion,
		}, nil
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.OSSRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, fmt.Errorf("load storage config: %w", err)
	}

	store.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.OSSUsePathStyle
	})
	return store, nil
}

// Enabled reports whether the store is configured for real use.
func (s *ObjectStorage) Enabled() bool {
	return !s.disabled
}

// PublicURL returns the public access URL for a stored key.
func (s *ObjectStorage) PublicURL(key string) string {
	return fmt.Sprintf("https://%s/%s", s.host, key)
}

// Put uploads an object and returns its public URL.
func (s *ObjectStorage) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if s.disabled {
		return "", errStorageDisabled
	}
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", err
	}
	return s.PublicURL(key), nil
}

// List returns all objects under the prefix. A disabled store lists nothing.
func (s *ObjectStorage) List(ctx context.Context, prefix string) ([]Object, error) {
	if s.disabled {
		return nil, nil
	}

	var objects []Object
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			o := Object{Key: aws.ToString(obj.Key)}
			if obj.Size != nil {
				o.Size = *obj.Size
			}
			objects = append(objects, o)
		}
	}
	return objects, nil
}

// Delete removes an object by key.
func (s *ObjectStorage) Delete(ctx context.Context, key string) error {
	if s.disabled {
		return errStorageDisabled
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// Health performs a HeadBucket request. A disabled store is healthy.
func (s *ObjectStorage) Health(ctx context.Context) error {
	if s.disabled {
		return nil
	}
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}
