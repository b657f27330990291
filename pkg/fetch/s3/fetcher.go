package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ecopia-map/potree_streamer/pkg/fetch"
)

// Subset of the S3 API used to read datasets
type Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Reads s3://bucket/key URLs
type Fetcher struct {
	client Client
}

func NewFetcher(client Client) *Fetcher {
	return &Fetcher{client: client}
}

// Builds a fetcher from the default AWS credential chain. An empty region keeps the configured one.
func NewFetcherFromEnv(ctx context.Context, region string) (*Fetcher, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return NewFetcher(s3.NewFromConfig(cfg)), nil
}

func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	bucket, key, err := fetch.ParseObjectURL(url)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%s: %w", url, fs.ErrNotExist)
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}
