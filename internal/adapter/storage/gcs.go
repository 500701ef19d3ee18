package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/semmidev/omran/internal/config"
	"github.com/semmidev/omran/internal/domain"
)

type GCSStorage struct {
	client      *storage.Client
	bucket      string
	prefix      string
	destination string
}

// NewGCS uses the credentials file when set, otherwise the application
// default credentials.
func NewGCS(ctx context.Context, cfg *config.Channel) (*GCSStorage, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	destination := cfg.Destination
	if destination == "" {
		destination = "https://console.cloud.google.com/storage/browser/" + cfg.Bucket
	}

	return &GCSStorage{
		client:      client,
		bucket:      cfg.Bucket,
		prefix:      cfg.Prefix,
		destination: destination,
	}, nil
}

func (g *GCSStorage) Name() string {
	return "gcs"
}

func (g *GCSStorage) Destination() string {
	return g.destination
}

func (g *GCSStorage) Deliver(ctx context.Context, d domain.Delivery) (string, error) {
	object := path.Join(g.prefix, d.Filename)

	w := g.client.Bucket(g.bucket).Object(object).NewWriter(ctx)
	w.ContentType = d.ContentType

	if _, err := io.Copy(w, bytes.NewReader(d.Payload)); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to upload to GCS: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", g.bucket, object), nil
}

func (g *GCSStorage) Close() error {
	return g.client.Close()
}
