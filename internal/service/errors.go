package service

import (
	"errors"
	"fmt"

	"github.com/bigkaa/goartstore/share-module/internal/blobstore"
	"github.com/bigkaa/goartstore/share-module/internal/repository"
)

// Ошибки сервисного слоя.
var (
	// ErrNotFound — файл не найден (или недоступен для операций владельца).
	ErrNotFound = errors.New("файл не найден")
	// ErrForbidden — у вызывающего нет доступа к файлу.
	ErrForbidden = errors.New("доступ к файлу запрещён")
	// ErrValidation — некорректные входные данные.
	ErrValidation = errors.New("некорректные данные запроса")
	// ErrConflict — файл изменён параллельным запросом.
	ErrConflict = errors.New("файл изменён параллельным запросом")
	// ErrContentMissing — метаданные есть, а содержимое в хранилище отсутствует.
	ErrContentMissing = errors.New("содержимое файла отсутствует в хранилище")
)

// validationError оборачивает ErrValidation с пояснением.
func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// mapRepoError переводит ошибки хранилищ в ошибки сервиса.
func mapRepoError(err error, op string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrConflict):
		return ErrConflict
	case errors.Is(err, blobstore.ErrNotFound):
		return ErrContentMissing
	}
	return fmt.Errorf("%s: %w", op, err)
}
