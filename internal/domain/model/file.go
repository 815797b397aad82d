// Пакет model — доменные модели share-module.
// FileRecord — метаданные загруженного файла, независимые от хранилища
// (Postgres, MongoDB или in-memory).
package model

import (
	"slices"
	"strings"
	"time"
)

// FileRecord — запись о файле пользователя.
type FileRecord struct {
	// ID — UUID файла
	ID string
	// OwnerID — идентификатор владельца (sub из JWT)
	OwnerID string
	// OwnerEmail — email владельца
	OwnerEmail string

	// FileName — отображаемое имя файла
	FileName string
	// OriginalFileName — имя файла при загрузке
	OriginalFileName string
	// ContentType — MIME-тип
	ContentType string
	// FileSize — размер в байтах
	FileSize int64
	// BlobName — имя объекта в blob-хранилище
	BlobName string
	// ContainerName — bucket / каталог blob-хранилища
	ContainerName string
	// Checksum — SHA-256 содержимого (hex)
	Checksum string

	// IsPublic — файл виден всем
	IsPublic bool
	// IsShared — файл расшарен конкретным пользователям
	IsShared bool
	// SharedWith — email-адреса, которым открыт доступ
	SharedWith []string
	// ExpirationDate — срок действия (опционально)
	ExpirationDate *time.Time

	// Tags — пользовательские теги
	Tags []string
	// Description — описание (опционально, пустая строка = нет)
	Description string

	// DownloadCount — число скачиваний (монотонно растёт)
	DownloadCount int64
	// ViewCount — число просмотров (монотонно растёт)
	ViewCount int64
	// LastAccessedDate — время последнего обращения
	LastAccessedDate *time.Time

	// CreatedDate — время загрузки
	CreatedDate time.Time
	// UpdatedDate — время последнего изменения метаданных
	UpdatedDate time.Time
	// IsArchived — логически удалён
	IsArchived bool

	// AISummary — краткое описание от AI (или базовое)
	AISummary string
	// AIKeywords — ключевые слова от AI (или базовые)
	AIKeywords []string

	// PopularityScore — производная оценка, пересчитывается при каждом
	// изменении счётчиков. Напрямую не задаётся.
	PopularityScore float64

	// Version — номер версии для optimistic concurrency во всех хранилищах:
	// Update и RecordAccess увеличивают его, Update с устаревшей версией
	// получает ErrConflict
	Version int64
}

// AccessKind — тип обращения к файлу.
type AccessKind string

const (
	// AccessView — просмотр метаданных
	AccessView AccessKind = "view"
	// AccessDownload — скачивание содержимого
	AccessDownload AccessKind = "download"
)

// Caller — вызывающий пользователь (из JWT).
type Caller struct {
	// ID — стабильный идентификатор пользователя
	ID string
	// Email — email пользователя (используется для расшаренных файлов)
	Email string
}

// CanAccess проверяет право вызывающего читать файл:
// владелец, публичный файл или расшаренный на его email.
func (f *FileRecord) CanAccess(c Caller) bool {
	if f.OwnerID == c.ID {
		return true
	}
	if f.IsPublic {
		return true
	}
	return f.IsShared && c.Email != "" && f.SharedWithEmail(c.Email)
}

// SharedWithEmail проверяет наличие email в списке доступа (без учёта регистра).
func (f *FileRecord) SharedWithEmail(email string) bool {
	return slices.ContainsFunc(f.SharedWith, func(s string) bool {
		return strings.EqualFold(s, email)
	})
}

// Clone возвращает глубокую копию записи.
func (f *FileRecord) Clone() *FileRecord {
	c := *f
	c.SharedWith = slices.Clone(f.SharedWith)
	c.Tags = slices.Clone(f.Tags)
	c.AIKeywords = slices.Clone(f.AIKeywords)
	if f.ExpirationDate != nil {
		t := *f.ExpirationDate
		c.ExpirationDate = &t
	}
	if f.LastAccessedDate != nil {
		t := *f.LastAccessedDate
		c.LastAccessedDate = &t
	}
	return &c
}
