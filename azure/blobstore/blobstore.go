package blobstore

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/meghashyamc/blobreindex/config"
	"github.com/meghashyamc/blobreindex/logger"
)

// Container is a single blob container addressed with the storage account's shared key.
type Container struct {
	client        *azblob.Client
	containerName string
	logger        logger.Logger
}

func New(logger logger.Logger, cfg *config.Config) (*Container, error) {
	credential, err := azblob.NewSharedKeyCredential(cfg.GetStorageAccountName(), cfg.GetStorageAccountKey())
	if err != nil {
		logger.Error("invalid storage account credentials", "account", cfg.GetStorageAccountName(), "err", err.Error())
		return nil, fmt.Errorf("invalid storage account credentials: %w", err)
	}

	options := &azblob.ClientOptions{}
	options.Retry = policy.RetryOptions{TryTimeout: cfg.GetRequestTimeout()}

	client, err := azblob.NewClientWithSharedKeyCredential(cfg.GetBlobEndpoint(), credential, options)
	if err != nil {
		logger.Error("could not create blob client", "endpoint", cfg.GetBlobEndpoint(), "err", err.Error())
		return nil, fmt.Errorf("could not create blob client: %w", err)
	}

	return &Container{client: client, containerName: cfg.GetBlobContainerName(), logger: logger}, nil
}

func (c *Container) Name() string {
	return c.containerName
}

// ListBlobNames walks every page of the flat listing.
func (c *Container) ListBlobNames(ctx context.Context) ([]string, error) {
	var names []string

	pager := c.client.NewListBlobsFlatPager(c.containerName, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			c.logger.Error("could not list blobs", "container", c.containerName, "err", err.Error())
			return nil, fmt.Errorf("could not list blobs in %s: %w", c.containerName, err)
		}
		if page.Segment == nil {
			continue
		}
		for _, item := range page.Segment.BlobItems {
			if item == nil || item.Name == nil {
				continue
			}
			names = append(names, *item.Name)
		}
	}

	return names, nil
}

func (c *Container) DeleteBlob(ctx context.Context, blobName string) error {
	if _, err := c.client.DeleteBlob(ctx, c.containerName, blobName, nil); err != nil {
		c.logger.Error("could not delete blob", "container", c.containerName, "blob", blobName, "err", err.Error())
		return fmt.Errorf("could not delete blob %s: %w", blobName, err)
	}

	return nil
}

// Upload writes body as a block blob, replacing any blob with the same name.
func (c *Container) Upload(ctx context.Context, blobName string, body io.Reader) error {
	if _, err := c.client.UploadStream(ctx, c.containerName, blobName, body, nil); err != nil {
		c.logger.Error("could not upload blob", "container", c.containerName, "blob", blobName, "err", err.Error())
		return fmt.Errorf("could not upload blob %s: %w", blobName, err)
	}

	return nil
}
