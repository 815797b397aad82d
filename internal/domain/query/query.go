// Пакет query — построение предикатов, сортировки и окна пагинации
// для выборок метаданных файлов.
//
// Предикат не зависит от хранилища: in-memory хранилище вычисляет его
// через Match/Compare, Postgres и MongoDB транслируют в SQL и BSON.
package query

import (
	"strings"
	"time"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
)

const (
	// DefaultPageSize — размер страницы по умолчанию
	DefaultPageSize = 20
	// MaxPageSize — верхняя граница размера страницы
	MaxPageSize = 100
)

// SearchRequest — параметры поиска файлов от клиента.
type SearchRequest struct {
	// Query — текст для поиска по имени, описанию и AI-описанию
	Query string
	// Tags — теги (совпадение хотя бы одного)
	Tags []string
	// ContentType — точный MIME-тип
	ContentType string
	// DateFrom, DateTo — диапазон даты создания (включительно)
	DateFrom *time.Time
	DateTo   *time.Time
	// MinFileSize, MaxFileSize — диапазон размера (включительно)
	MinFileSize *int64
	MaxFileSize *int64
	// SortBy — ключ сортировки (регистр не важен)
	SortBy string
	// SortDirection — asc или desc (регистр не важен)
	SortDirection string
	// Page — номер страницы с 1
	Page int
	// PageSize — размер страницы
	PageSize int
	// IncludePublic — включать публичные файлы
	IncludePublic bool
	// IncludeShared — включать файлы, расшаренные вызывающему
	IncludeShared bool
	// UseAISearch — ранжировать через AI-агрегатор
	UseAISearch bool
}

// Access — клауза доступа: OR из публичных, расшаренных вызывающему и
// собственных файлов. Собственные файлы включаются всегда.
type Access struct {
	CallerID      string
	CallerEmail   string
	IncludePublic bool
	IncludeShared bool
}

// Predicate — условие выборки. Все заданные поля объединяются через AND.
// Нулевые значения полей означают отсутствие ограничения,
// кроме IncludeArchived: по умолчанию архивные записи исключены.
type Predicate struct {
	// IncludeArchived — не фильтровать по isArchived
	IncludeArchived bool
	// Access — клауза доступа (nil = без ограничения)
	Access *Access

	// OwnerID — только файлы владельца
	OwnerID string
	// ExcludeOwnerID — исключить файлы владельца
	ExcludeOwnerID string
	// PublicOnly — только публичные
	PublicOnly bool
	// SharedWith — только расшаренные на этот email
	SharedWith string

	// Text — подстрока (без учёта регистра) в fileName, description или aiSummary
	Text string
	// ContentType — точное совпадение MIME-типа
	ContentType string
	// CreatedFrom, CreatedTo — диапазон даты создания
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	// MinSize, MaxSize — диапазон размера
	MinSize *int64
	MaxSize *int64
	// AnyTags — хотя бы один тег из списка
	AnyTags []string
	// AccessedSince — lastAccessedDate >= значения
	AccessedSince *time.Time
}

// Spec — полная спецификация выборки: условие, порядок и окно.
type Spec struct {
	Predicate Predicate
	Order     Order
	// Offset — смещение
	Offset int
	// Limit — максимум записей (0 = без ограничения)
	Limit int
}

// Build строит спецификацию выборки из запроса клиента.
// Неизвестный ключ сортировки заменяется на createdDate, ошибок не бывает.
func Build(req SearchRequest, caller model.Caller) Spec {
	p := Predicate{
		Access: &Access{
			CallerID:      caller.ID,
			CallerEmail:   caller.Email,
			IncludePublic: req.IncludePublic,
			IncludeShared: req.IncludeShared,
		},
		Text:        strings.TrimSpace(req.Query),
		ContentType: strings.TrimSpace(req.ContentType),
		CreatedFrom: req.DateFrom,
		CreatedTo:   req.DateTo,
		MinSize:     req.MinFileSize,
		MaxSize:     req.MaxFileSize,
		AnyTags:     normalizeTags(req.Tags),
	}

	page, pageSize := NormalizePage(req.Page, req.PageSize)

	return Spec{
		Predicate: p,
		Order:     Order{{Key: ParseSortKey(req.SortBy), Desc: ParseDescending(req.SortDirection)}},
		Offset:    (page - 1) * pageSize,
		Limit:     pageSize,
	}
}

// NormalizePage приводит номер и размер страницы к допустимым значениям:
// page >= 1, 1 <= pageSize <= MaxPageSize (0 → DefaultPageSize).
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// --- Готовые предикаты для списков ---

// Own — собственные неархивные файлы владельца.
func Own(ownerID string) Predicate {
	return Predicate{OwnerID: ownerID}
}

// Public — публичные неархивные файлы.
func Public() Predicate {
	return Predicate{PublicOnly: true}
}

// SharedWithMe — файлы, расшаренные на email.
func SharedWithMe(email string) Predicate {
	return Predicate{SharedWith: email}
}

func normalizeTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
