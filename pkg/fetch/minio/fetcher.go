package minio

import (
	"context"
	"fmt"
	"io"
	"io/fs"

	"github.com/ecopia-map/potree_streamer/pkg/fetch"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Reads minio://bucket/key URLs from a MinIO or other S3 compatible endpoint
type Fetcher struct {
	client *minio.Client
}

func NewFetcher(client *minio.Client) *Fetcher {
	return &Fetcher{client: client}
}

func New(endpoint, accessKey, secretKey string, secure bool) (*Fetcher, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}
	return NewFetcher(client), nil
}

func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	bucket, key, err := fetch.ParseObjectURL(url)
	if err != nil {
		return nil, err
	}
	obj, err := f.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, wrap(url, err)
	}
	defer func() { _ = obj.Close() }()
	// errors of the request surface on the first read
	b, err := io.ReadAll(obj)
	if err != nil {
		return nil, wrap(url, err)
	}
	return b, nil
}

func wrap(url string, err error) error {
	errResp := minio.ToErrorResponse(err)
	if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
		return fmt.Errorf("%s: %w", url, fs.ErrNotExist)
	}
	return err
}
