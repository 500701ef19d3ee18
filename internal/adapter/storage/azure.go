package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"

	"github.com/Azure/azure-storage-blob-go/azblob"

	"github.com/semmidev/omran/internal/config"
	"github.com/semmidev/omran/internal/domain"
)

type AzureStorage struct {
	container   azblob.ContainerURL
	prefix      string
	destination string
}

func NewAzure(cfg *config.Channel) (*AzureStorage, error) {
	credential, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credentials: %w", err)
	}

	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})

	serviceURL, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net", cfg.AccountName))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Azure service URL: %w", err)
	}

	destination := cfg.Destination
	if destination == "" {
		destination = "https://portal.azure.com/"
	}

	return &AzureStorage{
		container:   azblob.NewServiceURL(*serviceURL, pipeline).NewContainerURL(cfg.Container),
		prefix:      cfg.Prefix,
		destination: destination,
	}, nil
}

func (a *AzureStorage) Name() string {
	return "azure"
}

func (a *AzureStorage) Destination() string {
	return a.destination
}

func (a *AzureStorage) Deliver(ctx context.Context, d domain.Delivery) (string, error) {
	blob := a.container.NewBlockBlobURL(path.Join(a.prefix, d.Filename))

	_, err := azblob.UploadBufferToBlockBlob(ctx, d.Payload, blob, azblob.UploadToBlockBlobOptions{
		BlockSize:   4 * 1024 * 1024,
		Parallelism: 4,
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{
			ContentType: d.ContentType,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to Azure: %w", err)
	}

	u := blob.URL()
	return u.String(), nil
}
