// Пакет blobstore — хранение содержимого файлов (blob) и выдача
// временных ссылок на скачивание.
//
// Реализации: MinIO (S3-совместимое хранилище, presigned URL)
// и локальный каталог (ссылки подписываются HS256-токеном и
// обслуживаются самим сервисом).
package blobstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// Ошибки blob-хранилища.
var (
	// ErrNotFound — объект отсутствует в хранилище.
	ErrNotFound = errors.New("объект не найден в хранилище")
	// ErrInvalidName — недопустимое имя объекта или контейнера.
	ErrInvalidName = errors.New("недопустимое имя объекта")
	// ErrInvalidToken — подпись ссылки неверна или срок действия истёк.
	ErrInvalidToken = errors.New("недействительная ссылка на скачивание")
)

// PutResult — результат записи объекта.
type PutResult struct {
	// Size — число записанных байт
	Size int64
	// Checksum — SHA-256 содержимого (hex)
	Checksum string
}

// Store — интерфейс blob-хранилища.
type Store interface {
	// Put записывает объект, считая SHA-256 на лету.
	// size = -1, если размер заранее неизвестен.
	Put(ctx context.Context, container, name string, r io.Reader, size int64, contentType string) (*PutResult, error)
	// Get открывает объект для чтения. Вызывающий код закрывает ReadCloser.
	Get(ctx context.Context, container, name string) (io.ReadCloser, error)
	// Delete удаляет объект. Отсутствие объекта не считается ошибкой.
	Delete(ctx context.Context, container, name string) error
	// SignedURL возвращает временную ссылку на скачивание.
	// downloadName подставляется в Content-Disposition.
	SignedURL(ctx context.Context, container, name, downloadName string, expiry time.Duration) (string, error)
}
