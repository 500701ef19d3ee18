package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3manager "github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/semmidev/omran/internal/config"
	"github.com/semmidev/omran/internal/domain"
)

type S3Storage struct {
	uploader    *s3manager.Uploader
	bucket      string
	prefix      string
	destination string
}

// NewS3 creates a new S3Storage instance using AWS SDK v2. Static keys are
// optional; the default credential chain is used without them.
func NewS3(ctx context.Context, cfg *appconfig.Channel) (*S3Storage, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	destination := cfg.Destination
	if destination == "" {
		destination = fmt.Sprintf("https://s3.console.aws.amazon.com/s3/buckets/%s", cfg.Bucket)
	}

	return &S3Storage{
		uploader:    s3manager.NewUploader(s3.NewFromConfig(awsCfg)),
		bucket:      cfg.Bucket,
		prefix:      cfg.Prefix,
		destination: destination,
	}, nil
}

func (s *S3Storage) Name() string {
	return "s3"
}

func (s *S3Storage) Destination() string {
	return s.destination
}

func (s *S3Storage) Deliver(ctx context.Context, d domain.Delivery) (string, error) {
	key := path.Join(s.prefix, d.Filename)

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(d.Payload),
		ContentType: aws.String(d.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
