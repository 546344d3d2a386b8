package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectConfig configures the S3-compatible backend.
type ObjectConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Secure    bool

	// Prefix is prepended to every object name, e.g. "voicechat/".
	Prefix string
}

// ObjectStorage keeps each snapshot as <prefix><key>.json in a bucket.
type ObjectStorage struct {
	client *minio.Client
	bucket string
	prefix string
}

// OpenObjectStorage connects and creates the bucket when it is missing.
func OpenObjectStorage(ctx context.Context, cfg ObjectConfig) (*ObjectStorage, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("snapshot: object storage needs endpoint and bucket")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: init object client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("snapshot: check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("snapshot: create bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &ObjectStorage{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *ObjectStorage) objectName(key string) string {
	return s.prefix + key + ".json"
}

// Load downloads the object for key.
func (s *ObjectStorage) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapError(key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.mapError(key, err)
	}
	return data, nil
}

// Save uploads the object for key.
func (s *ObjectStorage) Save(ctx context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, s.bucket, s.objectName(key), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  "application/json",
		UserMetadata: map[string]string{"saved-at": time.Now().Format(time.RFC3339)},
	})
	if err != nil {
		return fmt.Errorf("snapshot: upload %s: %w", key, err)
	}
	return nil
}

func (s *ObjectStorage) mapError(key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotFound
	}
	return fmt.Errorf("snapshot: download %s: %w", key, err)
}

// Name returns "minio".
func (s *ObjectStorage) Name() string { return "minio" }

// Close is a no-op; the client holds no long-lived connections of its own.
func (s *ObjectStorage) Close() error { return nil }

var _ Storage = (*ObjectStorage)(nil)
