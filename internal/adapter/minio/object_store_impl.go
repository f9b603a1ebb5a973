package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/user/asset-pipeline/internal/repository"
)

// Config holds the connection settings for the object storage bucket.
type Config struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Bucket       string
	UseSSL       bool
	MaxAssetSize int64
}

// ObjectStoreImpl provides a concrete implementation for the ObjectStore
// interface backed by a MinIO/S3 bucket.
type ObjectStoreImpl struct {
	client     *minio.Client
	httpClient *http.Client
	bucket     string
	maxSize    int64
}

// NewObjectStore connects to the bucket, creating it if missing.
func NewObjectStore(ctx context.Context, cfg Config) (*ObjectStoreImpl, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init object storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &ObjectStoreImpl{
		client:     client,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		bucket:     cfg.Bucket,
		maxSize:    cfg.MaxAssetSize,
	}, nil
}

// errTooLarge marks the size cap being hit mid-stream.
var errTooLarge = errors.New("size cap reached")

// cappedReader fails the stream once more than max bytes have passed through,
// so oversized assets abort the upload instead of buffering or truncating.
type cappedReader struct {
	r        io.Reader
	left     int64
	exceeded bool
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if c.left <= 0 {
		c.exceeded = true
		return 0, errTooLarge
	}
	if int64(len(p)) > c.left {
		p = p[:c.left]
	}
	n, err := c.r.Read(p)
	c.left -= int64(n)
	if c.left <= 0 && err == nil {
		// Peek one byte to distinguish exactly-at-cap from over-cap. ReadFull
		// retries reads that legitimately return (0, nil).
		var probe [1]byte
		switch _, perr := io.ReadFull(c.r, probe[:]); perr {
		case nil:
			c.exceeded = true
			return n, errTooLarge
		case io.EOF:
			return n, io.EOF
		default:
			return n, perr
		}
	}
	return n, err
}

// Store downloads the asset and streams it into the bucket without holding
// the full payload in memory. Keys are deterministic per asset, so retries
// overwrite the same object.
func (s *ObjectStoreImpl) Store(ctx context.Context, srcURL, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", repository.ErrAssetDownload, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", repository.ErrAssetDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d for %s", repository.ErrAssetDownload, resp.StatusCode, srcURL)
	}
	if resp.ContentLength > s.maxSize {
		return fmt.Errorf("%w: %d bytes > %d", repository.ErrAssetTooLarge, resp.ContentLength, s.maxSize)
	}

	body := &cappedReader{r: resp.Body, left: s.maxSize}
	_, err = s.client.PutObject(ctx, s.bucket, key, body, -1, minio.PutObjectOptions{
		ContentType: resp.Header.Get("Content-Type"),
	})
	if err != nil {
		// minio may wrap the reader's error, so check the flag directly.
		if body.exceeded || errors.Is(err, errTooLarge) {
			return fmt.Errorf("%w: stream exceeded %d bytes", repository.ErrAssetTooLarge, s.maxSize)
		}
		return fmt.Errorf("%w: %v", repository.ErrAssetUpload, err)
	}
	return nil
}
