// Package objectstore deletes attachment blobs from S3 compatible storage
package objectstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// Config describes the bucket and endpoint to use
type Config struct {
	Bucket       string
	Region       string
	Endpoint     string // optional, for LocalStack or MinIO
	UsePathStyle bool
}

// deleteAPI is the subset of the S3 client the store uses
type deleteAPI interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store implements ports.ObjectStore on an S3 bucket
type S3Store struct {
	client deleteAPI
	bucket string
}

// NewS3Store loads AWS credentials from the default chain and creates a store
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("object store bucket is required")
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3Store(client, cfg.Bucket), nil
}

func newS3Store(client deleteAPI, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

// Delete removes one object. S3 reports success for missing keys; a
// NoSuchKey from a compatible server is treated the same way.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
		return nil
	}
	return fmt.Errorf("failed to delete object %s: %w", key, err)
}
