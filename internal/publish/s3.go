package publish

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/JonMunkholm/recipeflow/internal/core"
	"github.com/JonMunkholm/recipeflow/internal/tablefile"
)

// ObjectPutter is the subset of *s3.Client used by S3.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config holds configuration for the S3 publisher.
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // Optional custom endpoint (MinIO, LocalStack)
	Prefix   string // Optional key prefix, e.g. "clean/"
}

// S3 uploads each table as a CSV object named after its file.
type S3 struct {
	client ObjectPutter
	bucket string
	prefix string
}

// NewS3 builds an S3 client from the default AWS credential chain.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3WithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3WithClient returns an S3 publisher using client.
func NewS3WithClient(client ObjectPutter, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3) Name() string { return "s3" }

// Key returns the object key for a table.
func (s *S3) Key(table string) string {
	return s.prefix + tablefile.FileName(table)
}

// Publish uploads t, replacing any previous object.
func (s *S3) Publish(ctx context.Context, t *core.Table) error {
	var buf bytes.Buffer
	if err := tablefile.Write(&buf, t); err != nil {
		return publishError(s.Name(), t.Key, err)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key(t.Key)),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("text/csv; charset=utf-8"),
	})
	if err != nil {
		return publishError(s.Name(), t.Key, fmt.Errorf("put object: %w", err))
	}
	return nil
}
