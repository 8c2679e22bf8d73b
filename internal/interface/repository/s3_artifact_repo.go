package repository

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"flight-aggregator-service/internal/domain/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3PutObjectAPI is the subset of *s3.Client used for archiving
type S3PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3ArtifactRepository archives exports and snapshots under a bucket prefix
type S3ArtifactRepository struct {
	client  S3PutObjectAPI
	bucket  string
	prefix  string
	timeout time.Duration
}

// NewS3ArtifactRepository creates a new S3 archive
func NewS3ArtifactRepository(client S3PutObjectAPI, bucket, prefix string) *S3ArtifactRepository {
	return &S3ArtifactRepository{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		timeout: 30 * time.Second,
	}
}

var _ repository.ArtifactRepository = (*S3ArtifactRepository)(nil)

// Put uploads body to prefix/key
func (r *S3ArtifactRepository) Put(ctx context.Context, key, contentType string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	objectKey := path.Join(r.prefix, key)
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", r.bucket, objectKey, err)
	}
	return nil
}
