package storage

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"

	"task_server/server/attachman/domain"
)

// MinIOStore adapts a MinIO bucket to the object store the attachment
// service expects. Locators are bucket-relative object keys; they mean
// nothing outside this adapter.
type MinIOStore struct {
	client *minio.Client
	bucket string
}

func NewMinIOStore(client *minio.Client, bucket string) *MinIOStore {
	return &MinIOStore{client: client, bucket: bucket}
}

func (s *MinIOStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}
	return key, nil
}

func (s *MinIOStore) Get(ctx context.Context, locator string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, locator, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateErr(err)
	}
	// GetObject is lazy; Stat forces the lookup so a missing key is
	// reported here instead of on the first Read.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, translateErr(err)
	}
	return obj, nil
}

func (s *MinIOStore) Copy(ctx context.Context, srcLocator, dstKey string) (string, error) {
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: dstKey},
		minio.CopySrcOptions{Bucket: s.bucket, Object: srcLocator},
	)
	if err != nil {
		return "", translateErr(err)
	}
	return dstKey, nil
}

func (s *MinIOStore) Delete(ctx context.Context, locator string) error {
	return s.client.RemoveObject(ctx, s.bucket, locator, minio.RemoveObjectOptions{})
}

func translateErr(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return domain.ErrObjectNotFound
	}
	return err
}
