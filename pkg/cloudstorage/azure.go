package cloudstorage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureProvider backs uris of the form azure://container/blob.
type AzureProvider struct {
	client *azblob.Client
}

// NewAzureProvider wraps an already-configured azblob.Client.
func NewAzureProvider(client *azblob.Client) *AzureProvider {
	return &AzureProvider{client: client}
}

func (p *AzureProvider) Scheme() string { return "azure" }

func parseAzureURI(uri string) (container, blob string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("cloudstorage: parsing azure URI %q: %w", uri, err)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

func (p *AzureProvider) DownloadFile(ctx context.Context, uri string, w io.Writer) error {
	container, blob, err := parseAzureURI(uri)
	if err != nil {
		return err
	}
	resp, err := p.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		return fmt.Errorf("cloudstorage: downloading azure://%s/%s: %w", container, blob, err)
	}
	defer resp.Body.Close()
	_, err = io.Copy(w, resp.Body)
	return err
}

func (p *AzureProvider) UploadFile(ctx context.Context, uri string, r io.Reader) error {
	container, blob, err := parseAzureURI(uri)
	if err != nil {
		return err
	}
	_, err = p.client.UploadStream(ctx, container, blob, r, nil)
	if err != nil {
		return fmt.Errorf("cloudstorage: uploading azure://%s/%s: %w", container, blob, err)
	}
	return nil
}

func (p *AzureProvider) DeleteFile(ctx context.Context, uri string) error {
	container, blob, err := parseAzureURI(uri)
	if err != nil {
		return err
	}
	if _, err := p.client.DeleteBlob(ctx, container, blob, nil); err != nil {
		return fmt.Errorf("cloudstorage: deleting azure://%s/%s: %w", container, blob, err)
	}
	return nil
}

func (p *AzureProvider) ListFiles(ctx context.Context, uri string) ([]string, error) {
	container, prefix, err := parseAzureURI(uri)
	if err != nil {
		return nil, err
	}
	var out []string
	pager := p.client.NewListBlobsFlatPager(container, &azblob.ListBlobsFlatOptions{Prefix: &prefix})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("cloudstorage: listing azure://%s/%s: %w", container, prefix, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				out = append(out, *item.Name)
			}
		}
	}
	return out, nil
}
