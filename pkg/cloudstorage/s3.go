package cloudstorage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Provider backs uris of the form s3://bucket/key.
type S3Provider struct {
	client *s3.Client
}

// NewS3Provider wraps an already-configured s3.Client.
func NewS3Provider(client *s3.Client) *S3Provider {
	return &S3Provider{client: client}
}

func (p *S3Provider) Scheme() string { return "s3" }

func parseS3URI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("cloudstorage: parsing s3 URI %q: %w", uri, err)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

func (p *S3Provider) DownloadFile(ctx context.Context, uri string, w io.Writer) error {
	bucket, key, err := parseS3URI(uri)
	if err != nil {
		return err
	}
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return fmt.Errorf("cloudstorage: getting s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()
	_, err = io.Copy(w, out.Body)
	return err
}

func (p *S3Provider) UploadFile(ctx context.Context, uri string, r io.Reader) error {
	bucket, key, err := parseS3URI(uri)
	if err != nil {
		return err
	}
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{Bucket: aws.String(bucket), Key: aws.String(key), Body: r})
	if err != nil {
		return fmt.Errorf("cloudstorage: putting s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

func (p *S3Provider) DeleteFile(ctx context.Context, uri string) error {
	bucket, key, err := parseS3URI(uri)
	if err != nil {
		return err
	}
	_, err = p.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return fmt.Errorf("cloudstorage: deleting s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

func (p *S3Provider) ListFiles(ctx context.Context, uri string) ([]string, error) {
	bucket, prefix, err := parseS3URI(uri)
	if err != nil {
		return nil, err
	}
	var out []string
	paginator := s3.NewListObjectsV2Paginator(p.client, &s3.ListObjectsV2Input{Bucket: aws.String(bucket), Prefix: aws.String(prefix)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("cloudstorage: listing s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			out = append(out, aws.ToString(obj.Key))
		}
	}
	return out, nil
}
