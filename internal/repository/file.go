package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
	"github.com/bigkaa/goartstore/share-module/internal/domain/query"
	"github.com/bigkaa/goartstore/share-module/internal/domain/scoring"
)

// fileColumns — список столбцов таблицы file_metadata для SELECT-запросов.
const fileColumns = `file_id, owner_id, owner_email, file_name, original_file_name,
	content_type, file_size, blob_name, container_name, checksum,
	is_public, is_shared, shared_with, expiration_date, tags, description,
	download_count, view_count, last_accessed_date, created_date, updated_date,
	is_archived, ai_summary, ai_keywords, popularity_score, version`

// pgUniqueViolation — код ошибки PostgreSQL при нарушении уникальности.
const pgUniqueViolation = "23505"

// fileRepo — реализация FileRepository через pgx.
type fileRepo struct {
	db TxDB
}

// NewFileRepository создаёт PostgreSQL-репозиторий файлов.
func NewFileRepository(db TxDB) FileRepository {
	return &fileRepo{db: db}
}

// scanFile читает строку с fileColumns в FileRecord.
func scanFile(row pgx.Row) (*model.FileRecord, error) {
	f := &model.FileRecord{}
	err := row.Scan(
		&f.ID, &f.OwnerID, &f.OwnerEmail, &f.FileName, &f.OriginalFileName,
		&f.ContentType, &f.FileSize, &f.BlobName, &f.ContainerName, &f.Checksum,
		&f.IsPublic, &f.IsShared, &f.SharedWith, &f.ExpirationDate, &f.Tags, &f.Description,
		&f.DownloadCount, &f.ViewCount, &f.LastAccessedDate, &f.CreatedDate, &f.UpdatedDate,
		&f.IsArchived, &f.AISummary, &f.AIKeywords, &f.PopularityScore, &f.Version,
	)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// nonNil заменяет nil-срез пустым (столбцы TEXT[] NOT NULL).
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Create вставляет новую запись.
func (r *fileRepo) Create(ctx context.Context, f *model.FileRecord) error {
	query := fmt.Sprintf(`INSERT INTO file_metadata (%s) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		$21, $22, $23, $24, $25, $26)`, fileColumns)

	if f.Version == 0 {
		f.Version = 1
	}
	_, err := r.db.Exec(ctx, query,
		f.ID, f.OwnerID, f.OwnerEmail, f.FileName, f.OriginalFileName,
		f.ContentType, f.FileSize, f.BlobName, f.ContainerName, f.Checksum,
		f.IsPublic, f.IsShared, nonNil(f.SharedWith), f.ExpirationDate, nonNil(f.Tags), f.Description,
		f.DownloadCount, f.ViewCount, f.LastAccessedDate, f.CreatedDate, f.UpdatedDate,
		f.IsArchived, f.AISummary, nonNil(f.AIKeywords), f.PopularityScore, f.Version,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrAlreadyExists
		}
		return fmt.Errorf("ошибка создания записи файла: %w", err)
	}
	return nil
}

// GetByID возвращает файл по UUID или ErrNotFound.
// Некорректный UUID также даёт ErrNotFound.
func (r *fileRepo) GetByID(ctx context.Context, id string) (*model.FileRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	query := fmt.Sprintf(`SELECT %s FROM file_metadata WHERE file_id = $1`, fileColumns)

	f, err := scanFile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения файла: %w", err)
	}
	return f, nil
}

// Find выполняет выборку с динамическими фильтрами, сортировкой и окном.
// Возвращает (результаты, общее количество, ошибка).
func (r *fileRepo) Find(ctx context.Context, spec query.Spec) ([]*model.FileRecord, int, error) {
	where, args := buildWhere(spec.Predicate, 1)
	orderBy := buildOrderBy(spec.Order)

	dataQuery := fmt.Sprintf(`SELECT %s FROM file_metadata %s %s`, fileColumns, where, orderBy)
	argNum := len(args) + 1
	if spec.Limit > 0 {
		dataQuery += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, spec.Limit)
		argNum++
	}
	if spec.Offset > 0 {
		dataQuery += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, spec.Offset)
	}

	rows, err := r.db.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка поиска файлов: %w", err)
	}
	defer rows.Close()

	result := []*model.FileRecord{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования файла: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ошибка итерации результатов: %w", err)
	}

	// Без окна общее количество равно размеру выборки
	if spec.Limit == 0 && spec.Offset == 0 {
		return result, len(result), nil
	}

	countWhere, countArgs := buildWhere(spec.Predicate, 1)
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM file_metadata %s`, countWhere)

	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта файлов: %w", err)
	}
	return result, total, nil
}

// Update сохраняет изменяемые поля при совпадении версии.
func (r *fileRepo) Update(ctx context.Context, f *model.FileRecord) error {
	query := `
		UPDATE file_metadata SET
			file_name = $3, description = $4, tags = $5,
			is_public = $6, is_shared = $7, shared_with = $8,
			expiration_date = $9, is_archived = $10,
			ai_summary = $11, ai_keywords = $12,
			updated_date = $13, version = version + 1
		WHERE file_id = $1 AND version = $2`

	tag, err := r.db.Exec(ctx, query,
		f.ID, f.Version,
		f.FileName, f.Description, nonNil(f.Tags),
		f.IsPublic, f.IsShared, nonNil(f.SharedWith),
		f.ExpirationDate, f.IsArchived,
		f.AISummary, nonNil(f.AIKeywords),
		f.UpdatedDate,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления файла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Различаем отсутствие записи и конфликт версий
		if _, err := r.GetByID(ctx, f.ID); err != nil {
			return err
		}
		return ErrConflict
	}
	f.Version++
	return nil
}

// Delete удаляет запись владельца.
func (r *fileRepo) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	tag, err := r.db.Exec(ctx,
		`DELETE FROM file_metadata WHERE file_id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("ошибка удаления файла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordAccess выполняет инкремент счётчика и пересчёт популярности
// в одной транзакции под блокировкой строки (SELECT ... FOR UPDATE),
// поэтому параллельные обращения не теряют обновления.
func (r *fileRepo) RecordAccess(ctx context.Context, id string, kind model.AccessKind, now time.Time) (*model.FileRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := fmt.Sprintf(`SELECT %s FROM file_metadata WHERE file_id = $1 FOR UPDATE`, fileColumns)
	f, err := scanFile(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка блокировки файла: %w", err)
	}

	scoring.RecordAccess(f, kind, now)

	_, err = tx.Exec(ctx, `
		UPDATE file_metadata SET
			download_count = $2, view_count = $3,
			last_accessed_date = $4, popularity_score = $5,
			version = version + 1
		WHERE file_id = $1`,
		f.ID, f.DownloadCount, f.ViewCount, f.LastAccessedDate, f.PopularityScore,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления счётчиков: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	f.Version++
	return f, nil
}
