// Package archive exports purged cache entries to S3-compatible object
// storage before they are deleted.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appconfig "github.com/casper/babelbot/internal/config"
	"github.com/casper/babelbot/internal/domain"
)

// S3Archiver writes one JSON object per purge run.
type S3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Archiver creates a new S3-compatible archiver client.
// Parameters:
//   - cfg: archive configuration including endpoint, credentials, and bucket.
// Returns:
//   - *S3Archiver: initialized archiver.
//   - error: non-nil if the AWS config cannot be loaded.
func NewS3Archiver(cfg *appconfig.ArchiveConfig) (*S3Archiver, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(endpointURL(cfg.Endpoint, cfg.UseSSL))
			// Path-style addressing for S3-compatible services (MinIO, R2)
			o.UsePathStyle = true
		}
	})

	return &S3Archiver{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// endpointURL normalizes a bare endpoint into a scheme-qualified URL.
func endpointURL(endpoint string, useSSL bool) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimSuffix(endpoint, "/")

	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, endpoint)
}

// EnsureBucket creates the bucket if it doesn't exist.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - error: non-nil if the bucket cannot be created.
func (a *S3Archiver) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// ArchivePurged uploads the given purge candidates as a single timestamped
// JSON object and returns its key. A nil/empty slice is a no-op.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - entries: cache entries about to be purged.
// Returns:
//   - string: object key of the uploaded archive, empty if nothing was written.
//   - error: non-nil if marshaling or the upload fails.
func (a *S3Archiver) ArchivePurged(ctx context.Context, entries []domain.CacheEntry) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	body, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("failed to marshal archive payload: %w", err)
	}

	key := fmt.Sprintf("%s/%s.json", a.prefix, time.Now().UTC().Format("2006-01-02T15-04-05Z"))
	if a.prefix == "" {
		key = strings.TrimPrefix(key, "/")
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload archive object: %w", err)
	}
	return key, nil
}
