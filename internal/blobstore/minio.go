package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig — параметры подключения к MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// MinIOStore — blob-хранилище в MinIO.
type MinIOStore struct {
	client *minio.Client
	logger *slog.Logger
}

// NewMinIO создаёт клиент MinIO. Подключение проверяется лениво
// при первом запросе или явно через EnsureContainer.
func NewMinIO(cfg MinIOConfig, logger *slog.Logger) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания клиента MinIO: %w", err)
	}
	return &MinIOStore{
		client: client,
		logger: logger.With(slog.String("component", "minio")),
	}, nil
}

// EnsureContainer создаёт bucket, если он не существует.
func (s *MinIOStore) EnsureContainer(ctx context.Context, container string) error {
	exists, err := s.client.BucketExists(ctx, container)
	if err != nil {
		return fmt.Errorf("ошибка проверки bucket %s: %w", container, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, container, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("ошибка создания bucket %s: %w", container, err)
	}
	s.logger.Info("Bucket создан", slog.String("bucket", container))
	return nil
}

// Put загружает объект с подсчётом SHA-256 на лету.
func (s *MinIOStore) Put(ctx context.Context, container, name string, r io.Reader, size int64, contentType string) (*PutResult, error) {
	if err := validateName(container, name); err != nil {
		return nil, err
	}

	hasher := sha256.New()
	info, err := s.client.PutObject(ctx, container, name, io.TeeReader(r, hasher), size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки объекта %s: %w", name, err)
	}

	return &PutResult{
		Size:     info.Size,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Get открывает объект. Stat выполняется сразу, чтобы отсутствие
// объекта обнаружилось до начала отдачи ответа.
func (s *MinIOStore) Get(ctx context.Context, container, name string) (io.ReadCloser, error) {
	if err := validateName(container, name); err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, container, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapError(err, name)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, s.mapError(err, name)
	}
	return obj, nil
}

// Delete удаляет объект (идемпотентно).
func (s *MinIOStore) Delete(ctx context.Context, container, name string) error {
	if err := validateName(container, name); err != nil {
		return err
	}
	err := s.client.RemoveObject(ctx, container, name, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return fmt.Errorf("ошибка удаления объекта %s: %w", name, err)
	}
	return nil
}

// SignedURL возвращает presigned GET URL.
func (s *MinIOStore) SignedURL(ctx context.Context, container, name, downloadName string, expiry time.Duration) (string, error) {
	if err := validateName(container, name); err != nil {
		return "", err
	}

	params := url.Values{}
	if downloadName != "" {
		params.Set("response-content-disposition",
			mime.FormatMediaType("attachment", map[string]string{"filename": downloadName}))
	}

	u, err := s.client.PresignedGetObject(ctx, container, name, expiry, params)
	if err != nil {
		return "", fmt.Errorf("ошибка генерации ссылки для %s: %w", name, err)
	}
	return u.String(), nil
}

// Endpoint возвращает URL MinIO (для проверки зависимостей).
func (s *MinIOStore) Endpoint() *url.URL {
	return s.client.EndpointURL()
}

func (s *MinIOStore) mapError(err error, name string) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return ErrNotFound
	}
	return fmt.Errorf("ошибка чтения объекта %s: %w", name, err)
}
