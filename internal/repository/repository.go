// Пакет repository — слой доступа к метаданным файлов.
// Интерфейс FileRepository реализуют PostgreSQL (этот пакет),
// MongoDB (mongostore) и in-memory хранилище (memstore).
// PostgreSQL-запросы — чистый SQL через pgx, без ORM.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
	"github.com/bigkaa/goartstore/share-module/internal/domain/query"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — запись изменена параллельно (не совпала версия).
	ErrConflict = errors.New("конфликт версий записи")
	// ErrAlreadyExists — запись с таким ID уже существует.
	ErrAlreadyExists = errors.New("запись уже существует")
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxDB — DBTX с поддержкой транзакций (*pgxpool.Pool).
type TxDB interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// FileRepository — интерфейс хранилища метаданных файлов.
type FileRepository interface {
	// Create сохраняет новую запись.
	Create(ctx context.Context, f *model.FileRecord) error
	// GetByID возвращает запись по ID или ErrNotFound.
	GetByID(ctx context.Context, id string) (*model.FileRecord, error)
	// Find возвращает окно выборки и общее число подходящих записей.
	// spec.Limit = 0 — вся выборка.
	Find(ctx context.Context, spec query.Spec) ([]*model.FileRecord, int, error)
	// Update сохраняет изменяемые поля записи (описание, теги, видимость,
	// доступ, срок действия, архив, AI-поля) при совпадении f.Version.
	// Увеличивает f.Version. ErrConflict при несовпадении версии.
	Update(ctx context.Context, f *model.FileRecord) error
	// Delete удаляет запись владельца. ErrNotFound, если запись
	// отсутствует или принадлежит другому владельцу.
	Delete(ctx context.Context, ownerID, id string) error
	// RecordAccess атомарно увеличивает счётчик обращений, выставляет
	// lastAccessedDate и пересчитывает popularityScore.
	RecordAccess(ctx context.Context, id string, kind model.AccessKind, now time.Time) (*model.FileRecord, error)
}
