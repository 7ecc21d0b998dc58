package s3infra

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/qr-codes-api/internal/config"
)

// Store wraps S3 operations for a single bucket.
type Store struct {
	client        *s3.Client
	bucket        string
	region        string
	publicBaseURL string
}

// UploadOptions mirror the flags the generation pipeline sets per object.
type UploadOptions struct {
	ContentType  string
	CacheControl string
	// Upsert allows overwriting an existing object (avatar semantics).
	// When false the write is conditional on the key not existing.
	Upsert bool
}

// NewClient creates an S3 client. When cfg.AWSEndpointURL is set (LocalStack),
// it overrides the endpoint and enables path-style addressing.
func NewClient(cfg *config.Config) *s3.Client {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}

	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		panic("failed to load AWS config for S3: " + err.Error())
	}

	clientOpts := []func(*s3.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...)
}

// NewStore creates a Store bound to one bucket.
func NewStore(client *s3.Client, cfg *config.Config, bucket string) *Store {
	return &Store{
		client:        client,
		bucket:        bucket,
		region:        cfg.AWSRegion,
		publicBaseURL: cfg.S3PublicBaseURL,
	}
}

// Upload streams an object to the bucket under key and returns its public URL.
func (s *Store) Upload(ctx context.Context, key string, r io.Reader, opts UploadOptions) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if opts.CacheControl != "" {
		input.CacheControl = aws.String(opts.CacheControl)
	}
	if !opts.Upsert {
		input.IfNoneMatch = aws.String("*")
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}
	return s.PublicURL(key), nil
}

// Delete removes an object from the bucket.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// PublicURL composes the durable unauthenticated URL for a key. Objects in
// these buckets are world-readable by bucket policy.
func (s *Store) PublicURL(key string) string {
	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.publicBaseURL, "/"), s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
