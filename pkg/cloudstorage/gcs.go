package cloudstorage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSProvider backs uris of the form gcs://bucket/object.
type GCSProvider struct {
	client *storage.Client
}

// NewGCSProvider wraps an already-configured storage.Client.
func NewGCSProvider(client *storage.Client) *GCSProvider {
	return &GCSProvider{client: client}
}

func (p *GCSProvider) Scheme() string { return "gcs" }

func parseGCSURI(uri string) (bucket, object string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("cloudstorage: parsing gcs URI %q: %w", uri, err)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

func (p *GCSProvider) DownloadFile(ctx context.Context, uri string, w io.Writer) error {
	bucket, object, err := parseGCSURI(uri)
	if err != nil {
		return err
	}
	rc, err := p.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("cloudstorage: reading gcs://%s/%s: %w", bucket, object, err)
	}
	defer rc.Close()
	_, err = io.Copy(w, rc)
	return err
}

func (p *GCSProvider) UploadFile(ctx context.Context, uri string, r io.Reader) error {
	bucket, object, err := parseGCSURI(uri)
	if err != nil {
		return err
	}
	wc := p.client.Bucket(bucket).Object(object).NewWriter(ctx)
	if _, err := io.Copy(wc, r); err != nil {
		wc.Close()
		return fmt.Errorf("cloudstorage: writing gcs://%s/%s: %w", bucket, object, err)
	}
	return wc.Close()
}

func (p *GCSProvider) DeleteFile(ctx context.Context, uri string) error {
	bucket, object, err := parseGCSURI(uri)
	if err != nil {
		return err
	}
	if err := p.client.Bucket(bucket).Object(object).Delete(ctx); err != nil {
		return fmt.Errorf("cloudstorage: deleting gcs://%s/%s: %w", bucket, object, err)
	}
	return nil
}

func (p *GCSProvider) ListFiles(ctx context.Context, uri string) ([]string, error) {
	bucket, prefix, err := parseGCSURI(uri)
	if err != nil {
		return nil, err
	}
	var out []string
	it := p.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cloudstorage: listing gcs://%s/%s: %w", bucket, prefix, err)
		}
		out = append(out, attrs.Name)
	}
	return out, nil
}
