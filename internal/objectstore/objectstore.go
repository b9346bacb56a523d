// Package objectstore сохраняет изображения (превью курсов и уроков, аватары) в MinIO/S3.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/segmentio/ksuid"

	"github.com/magabrotheeeer/materials-api/internal/config"
)

// ObjectStore — бакет в S3-совместимом хранилище.
type ObjectStore struct {
	client *minio.Client
	bucket string
}

// New создаёт клиента MinIO. Endpoint может быть задан как host:port или как URL.
func New(cfg config.Minio) (*ObjectStore, error) {
	const op = "objectstore.New"
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("%s: parse endpoint: %w", op, err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &ObjectStore{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket создаёт бакет, если его ещё нет.
func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	const op = "objectstore.EnsureBucket"
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// NewKey возвращает уникальный ключ объекта вида <prefix>/<ksuid><ext>.
func NewKey(prefix, ext string) string {
	return path.Join(prefix, ksuid.New().String()+ext)
}

// Put загружает объект размером size под ключом key.
func (s *ObjectStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	const op = "objectstore.Put"
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Remove удаляет объект; отсутствие объекта ошибкой не считается.
func (s *ObjectStore) Remove(ctx context.Context, key string) error {
	const op = "objectstore.Remove"
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
