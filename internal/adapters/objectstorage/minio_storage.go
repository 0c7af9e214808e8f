package objectstorage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"listing-service/internal/core/domain"

	"github.com/minio/minio-go/v7"
)

// objectClient - используемая часть *minio.Client
type objectClient interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// MinioObjectStorage реализует ObjectStoragePort. Ссылка на объект - baseURL/key.
type MinioObjectStorage struct {
	client  objectClient
	bucket  string
	baseURL string
}

func NewMinioObjectStorage(client objectClient, bucket, baseURL string) *MinioObjectStorage {
	return &MinioObjectStorage{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *MinioObjectStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", domain.NewStorageError("put", err)
	}
	return s.baseURL + "/" + key, nil
}

func (s *MinioObjectStorage) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err == nil {
		return nil
	}
	// удаление уже удаленного объекта считаем успехом
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return nil
	}
	return domain.NewStorageError("delete", err)
}

func (s *MinioObjectStorage) KeyFromURL(rawURL string) (string, error) {
	prefix := s.baseURL + "/"
	if !strings.HasPrefix(rawURL, prefix) {
		return "", fmt.Errorf("url %q is outside of bucket base %q", rawURL, s.baseURL)
	}
	key, err := url.PathUnescape(strings.TrimPrefix(rawURL, prefix))
	if err != nil {
		return "", fmt.Errorf("url %q has invalid escaping: %w", rawURL, err)
	}
	if key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("url %q does not name an object", rawURL)
	}
	return key, nil
}
