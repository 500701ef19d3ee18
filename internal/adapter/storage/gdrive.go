package storage

import (
	"bytes"
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/semmidev/omran/internal/config"
	"github.com/semmidev/omran/internal/domain"
)

type GDriveStorage struct {
	service     *drive.Service
	folderID    string
	destination string
}

// NewGDrive authenticates with the service account file when one is
// configured, otherwise with ts (the token saved by "auth gdrive").
func NewGDrive(ctx context.Context, cfg *config.Channel, ts oauth2.TokenSource) (*GDriveStorage, error) {
	var opt option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		opt = option.WithCredentialsFile(cfg.CredentialsFile)
	case ts != nil:
		opt = option.WithTokenSource(ts)
	default:
		return nil, fmt.Errorf("gdrive needs credentials_file or an authorized account (run \"auth gdrive\")")
	}

	service, err := drive.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	destination := cfg.Destination
	if destination == "" && cfg.FolderID != "" {
		destination = "https://drive.google.com/drive/folders/" + cfg.FolderID
	}

	return &GDriveStorage{
		service:     service,
		folderID:    cfg.FolderID,
		destination: destination,
	}, nil
}

func (g *GDriveStorage) Name() string {
	return "gdrive"
}

func (g *GDriveStorage) Destination() string {
	return g.destination
}

func (g *GDriveStorage) Deliver(ctx context.Context, d domain.Delivery) (string, error) {
	fileMetadata := &drive.File{
		Name:        d.Filename,
		Description: d.Summary,
		MimeType:    d.ContentType,
	}
	if g.folderID != "" {
		fileMetadata.Parents = []string{g.folderID}
	}

	file, err := g.service.Files.Create(fileMetadata).
		Media(bytes.NewReader(d.Payload)).
		Fields("id, webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload to gdrive: %w", err)
	}

	if file.WebViewLink != "" {
		return file.WebViewLink, nil
	}
	return "gdrive://" + file.Id, nil
}
