// search.go — сервис поиска: постраничный поиск с фильтрами, семантический
// поиск через агрегатор, подсказки, похожие файлы, популярные запросы и
// анализ файла без сохранения.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
	"github.com/bigkaa/goartstore/share-module/internal/domain/query"
	"github.com/bigkaa/goartstore/share-module/internal/domain/scoring"
	"github.com/bigkaa/goartstore/share-module/internal/repository"
	"github.com/bigkaa/goartstore/share-module/internal/search"
)

const (
	defaultSemanticResults = 10
	defaultSimilarResults  = 5
	defaultTrendingTerms   = 10
	// trendingTermsPool — число популярных файлов для популярных запросов
	trendingTermsPool = 50
	// suggestedTagCount — число ключевых слов, предлагаемых как теги
	suggestedTagCount = 5
)

// Режимы поиска (лейбл метрик).
const (
	modePaged    = "paged"
	modeAI       = "ai"
	modeSemantic = "semantic"
	modeSimilar  = "similar"
)

// Prometheus-метрики поиска.
var (
	searchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fs_search_requests_total",
		Help: "Количество поисковых запросов по режиму.",
	}, []string{"mode"})
	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fs_search_duration_seconds",
		Help:    "Длительность поисковых запросов по режиму.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})
)

// searchCategories — группы популярных поисковых запросов.
var searchCategories = map[string]string{
	"documents": "File Types",
	"images":    "File Types",
	"videos":    "File Types",
	"pdf":       "File Types",
	"excel":     "File Types",
	"contract":  "Business",
	"report":    "Business",
	"invoice":   "Business",
	"template":  "Templates",
	"backup":    "System",
}

// SemanticRequest — параметры семантического поиска.
type SemanticRequest struct {
	Query         string
	MaxResults    int
	IncludePublic bool
	IncludeShared bool
}

// TrendingTerm — популярный поисковый запрос.
type TrendingTerm struct {
	Term     string
	Count    int
	Category string
}

// Analysis — результат анализа файла без сохранения.
type Analysis struct {
	FileName          string
	ContentType       string
	FileSize          int64
	AISummary         string
	SuggestedKeywords []string
	SuggestedTags     []string
}

// SearchService — сервис поиска файлов.
type SearchService struct {
	records
	aggregator *search.Aggregator
	enricher   *Enricher
	poolSize   int
	logger     *slog.Logger
}

// NewSearchService создаёт сервис поиска.
// poolSize — число записей, передаваемых агрегатору.
func NewSearchService(
	repo repository.FileRepository,
	cache *CacheService,
	aggregator *search.Aggregator,
	enricher *Enricher,
	poolSize int,
	logger *slog.Logger,
) *SearchService {
	return &SearchService{
		records:    records{repo: repo, cache: cache},
		aggregator: aggregator,
		enricher:   enricher,
		poolSize:   poolSize,
		logger:     logger.With(slog.String("component", "search_service")),
	}
}

// observe учитывает запрос в метриках.
func observe(mode string, start time.Time) {
	searchTotal.WithLabelValues(mode).Inc()
	searchDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}

// Search выполняет постраничный поиск. При UseAISearch и непустом запросе
// агрегатор ранжирует весь пул, отобранный теми же фильтрами (включая
// текст), и страница вырезается из этого ранжирования. total — число
// ранжированных записей, не больше размера пула.
func (s *SearchService) Search(ctx context.Context, caller model.Caller, req query.SearchRequest) (*Page, error) {
	start := time.Now()
	spec := query.Build(req, caller)
	page, pageSize := query.NormalizePage(req.Page, req.PageSize)

	if !req.UseAISearch || spec.Predicate.Text == "" {
		defer observe(modePaged, start)
		items, total, err := s.repo.Find(ctx, spec)
		if err != nil {
			return nil, fmt.Errorf("поиск файлов: %w", err)
		}
		s.logger.Debug("Поиск выполнен",
			slog.Int("total", total),
			slog.Int("returned", len(items)),
			slog.Duration("duration", time.Since(start)),
		)
		return newPage(items, total, page, pageSize), nil
	}

	defer observe(modeAI, start)
	text := spec.Predicate.Text
	pool, err := s.pool(ctx, spec.Predicate, "")
	if err != nil {
		return nil, err
	}
	ranked := s.aggregator.Search(ctx, text, pool, len(pool))

	from := min(spec.Offset, len(ranked))
	to := min(from+pageSize, len(ranked))
	return newPage(ranked[from:to], len(ranked), page, pageSize), nil
}

// Semantic ранжирует доступные вызывающему файлы по смыслу запроса.
func (s *SearchService) Semantic(ctx context.Context, caller model.Caller, req SemanticRequest) ([]*model.FileRecord, error) {
	defer observe(modeSemantic, time.Now())

	q := strings.TrimSpace(req.Query)
	if q == "" {
		return nil, validationError("пустой поисковый запрос")
	}
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = defaultSemanticResults
	}
	maxResults = min(maxResults, search.MaxPromptCandidates)

	pool, err := s.pool(ctx, query.Predicate{
		Text: q,
		Access: &query.Access{
			CallerID:      caller.ID,
			CallerEmail:   caller.Email,
			IncludePublic: req.IncludePublic,
			IncludeShared: req.IncludeShared,
		},
	}, "")
	if err != nil {
		return nil, err
	}
	return s.aggregator.Search(ctx, q, pool, maxResults), nil
}

// Similar ищет файлы, похожие на указанный, среди остальных доступных.
func (s *SearchService) Similar(ctx context.Context, caller model.Caller, id string, maxResults int) ([]*model.FileRecord, error) {
	defer observe(modeSimilar, time.Now())

	target, err := s.readable(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		maxResults = defaultSimilarResults
	}
	maxResults = min(maxResults, search.MaxPromptCandidates)

	pool, err := s.pool(ctx, query.Predicate{
		Access: &query.Access{
			CallerID:      caller.ID,
			CallerEmail:   caller.Email,
			IncludePublic: true,
			IncludeShared: true,
		},
	}, target.ID)
	if err != nil {
		return nil, err
	}

	q := strings.Join(strings.Fields(fmt.Sprintf("files similar to %s %s %s",
		target.FileName, target.Description, strings.Join(target.Tags, " "))), " ")
	return s.aggregator.Search(ctx, q, pool, maxResults), nil
}

// pool загружает пул кандидатов для агрегатора: самые популярные записи
// по предикату. Текстовое условие предиката сохраняется, иначе fallback
// не найдёт совпадения за пределами первых poolSize записей.
// excludeID исключается из пула.
func (s *SearchService) pool(ctx context.Context, p query.Predicate, excludeID string) ([]*model.FileRecord, error) {
	limit := s.poolSize
	if excludeID != "" && limit > 0 {
		limit++
	}
	files, _, err := s.repo.Find(ctx, query.Spec{Predicate: p, Order: query.ByPopularity(), Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("пул кандидатов: %w", err)
	}
	if excludeID == "" {
		return files, nil
	}

	out := make([]*model.FileRecord, 0, len(files))
	for _, f := range files {
		if f.ID != excludeID {
			out = append(out, f)
		}
	}
	if s.poolSize > 0 && len(out) > s.poolSize {
		out = out[:s.poolSize]
	}
	return out, nil
}

// Suggestions возвращает подсказки для частичного запроса.
func (s *SearchService) Suggestions(ctx context.Context, partial string) []string {
	return s.enricher.Suggestions(ctx, partial)
}

// TrendingTerms строит популярные запросы по тегам и категориям
// самых популярных публичных файлов.
func (s *SearchService) TrendingTerms(ctx context.Context, limit int) ([]TrendingTerm, error) {
	if limit <= 0 {
		limit = defaultTrendingTerms
	}
	limit = min(limit, maxBoardLimit)

	files, _, err := s.repo.Find(ctx, query.Spec{
		Predicate: query.Public(),
		Order:     query.ByPopularity(),
		Limit:     trendingTermsPool,
	})
	if err != nil {
		return nil, fmt.Errorf("популярные запросы: %w", err)
	}

	var terms []string
	for _, f := range files {
		terms = append(terms, f.Tags...)
		terms = append(terms, scoring.Category(f.ContentType))
	}
	top, counts := scoring.TopTerms(terms, limit)

	out := make([]TrendingTerm, 0, len(top))
	for _, t := range top {
		category, ok := searchCategories[t]
		if !ok {
			category = "General"
		}
		out = append(out, TrendingTerm{Term: t, Count: counts[t], Category: category})
	}
	return out, nil
}

// Analyze возвращает описание и ключевые слова для файла без сохранения.
// Первые пять ключевых слов предлагаются как теги.
func (s *SearchService) Analyze(ctx context.Context, fileName, contentType string, size int64) (*Analysis, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" || size <= 0 {
		return nil, validationError("файл не передан")
	}
	if contentType == "" {
		contentType = defaultContentType
	}

	summary := s.enricher.Summary(ctx, fileName, contentType)
	keywords := s.enricher.Keywords(ctx, fileName, summary, contentType)
	tags := keywords[:min(suggestedTagCount, len(keywords))]

	return &Analysis{
		FileName:          fileName,
		ContentType:       contentType,
		FileSize:          size,
		AISummary:         summary,
		SuggestedKeywords: keywords,
		SuggestedTags:     append([]string(nil), tags...),
	}, nil
}
