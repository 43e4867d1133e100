package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"batchmark/internal/config"
	"batchmark/internal/repository/storage"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

// ObjectStore keeps batch sources and rendered outputs in a MinIO bucket.
// It satisfies the scheduler's image store interface, so the worker runs
// batches against it exactly the way the CLI runs against the filesystem.
type ObjectStore struct {
	client  *minio.Client
	bucket  string
	retries retry.Strategy
	logger  *zlog.Zerolog
}

func NewObjectStore(cfg *config.Config, retries retry.Strategy, logger *zlog.Zerolog) (*ObjectStore, error) {
	if cfg.Minio.Endpoint == "" || cfg.Minio.Bucket == "" {
		return nil, fmt.Errorf("%w: endpoint and bucket are required", storage.ErrStorageValidation)
	}

	client, err := minio.New(cfg.Minio.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Minio.AccessKey, cfg.Minio.SecretKey, ""),
		Secure: cfg.Minio.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	store := &ObjectStore{
		client:  client,
		bucket:  cfg.Minio.Bucket,
		retries: retries,
		logger:  logger,
	}
	if err := store.ensureBucket(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *ObjectStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	s.logger.Info().Str("bucket", s.bucket).Msg("Bucket created")
	return nil
}

func (s *ObjectStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", path, err)
	}
	// GetObject is lazy; probe so a missing key fails here, not mid-decode.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%s: %w", path, storage.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to stat object %s: %w", path, err)
	}
	return obj, nil
}

func (s *ObjectStore) Save(ctx context.Context, path string, data io.Reader, size int64, contentType string) error {
	body, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("failed to read object data: %w", err)
	}
	if size <= 0 {
		size = int64(len(body))
	}

	err = retry.Do(func() error {
		_, putErr := s.client.PutObject(ctx, s.bucket, path, bytes.NewReader(body), size,
			minio.PutObjectOptions{ContentType: contentType})
		return putErr
	}, s.retries)
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", path, errors.Join(storage.ErrStorageError, err))
	}

	s.logger.Debug().Str("path", path).Int("size", len(body)).Msg("Object saved")
	return nil
}

func (s *ObjectStore) Delete(ctx context.Context, path string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s: %w", path, err)
	}
	return nil
}

func (s *ObjectStore) DeleteWithPrefix(ctx context.Context, prefix string) error {
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return fmt.Errorf("failed to list objects with prefix %s: %w", prefix, obj.Err)
		}
		if err := s.Delete(ctx, obj.Key); err != nil {
			return err
		}
	}
	return nil
}
