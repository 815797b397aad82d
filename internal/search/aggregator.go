// Пакет search — агрегатор поиска: AI-ранжирование кандидатов с
// детерминированным fallback на поиск подстроки.
//
// Ошибки внешнего ранжировщика никогда не выходят за пределы агрегатора:
// таймаут, недоступность или некорректный ответ сводятся к fallback.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
	"github.com/bigkaa/goartstore/share-module/internal/llm"
)

// MaxPromptCandidates — максимум кандидатов, передаваемых ранжировщику.
const MaxPromptCandidates = 50

var rankOutcomes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fs_search_rank_total",
		Help: "Исходы ранжирования: ai (полностью AI), mixed (AI + fallback), fallback, error",
	},
	[]string{"outcome"},
)

// Ranker — внешний ранжировщик: возвращает id кандидатов по релевантности.
type Ranker interface {
	Rank(ctx context.Context, query string, candidates []*model.FileRecord, maxResults int) ([]string, error)
}

// Aggregator объединяет AI-ранжирование и fallback-поиск.
type Aggregator struct {
	ranker  Ranker
	timeout time.Duration
	logger  *slog.Logger
}

// NewAggregator создаёт агрегатор. ranker может быть nil — тогда всегда
// используется fallback. timeout ограничивает один вызов ранжировщика
// (0 = без дополнительного ограничения).
func NewAggregator(ranker Ranker, timeout time.Duration, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		ranker:  ranker,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "search_aggregator")),
	}
}

// Search возвращает не более maxResults уникальных записей пула.
// Записи, ранжированные AI, идут первыми в порядке ранжировщика;
// недостающие добираются fallback-поиском по убыванию популярности.
func (a *Aggregator) Search(ctx context.Context, query string, pool []*model.FileRecord, maxResults int) []*model.FileRecord {
	if maxResults <= 0 || len(pool) == 0 {
		return []*model.FileRecord{}
	}

	ranked := a.rank(ctx, query, pool, maxResults)
	if len(ranked) >= maxResults {
		rankOutcomes.WithLabelValues("ai").Inc()
		return ranked[:maxResults]
	}

	fallback := Fallback(query, pool, idSet(ranked))
	if len(ranked) > 0 {
		rankOutcomes.WithLabelValues("mixed").Inc()
	} else {
		rankOutcomes.WithLabelValues("fallback").Inc()
	}
	return Merge(ranked, fallback, maxResults)
}

// rank вызывает ранжировщик и сопоставляет id с пулом.
// Любая ошибка даёт пустой список.
func (a *Aggregator) rank(ctx context.Context, query string, pool []*model.FileRecord, maxResults int) []*model.FileRecord {
	if a.ranker == nil {
		return nil
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	ids, err := a.ranker.Rank(ctx, query, pool, maxResults)
	if err != nil {
		rankOutcomes.WithLabelValues("error").Inc()
		a.logger.Warn("AI-ранжирование недоступно, используется fallback",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		return nil
	}

	resolved := Resolve(ids, pool)
	a.logger.Debug("AI-ранжирование выполнено",
		slog.String("query", query),
		slog.Int("returned", len(ids)),
		slog.Int("resolved", len(resolved)),
	)
	return resolved
}

// --- LLM-ранжировщик ---

// LLMRanker — Ranker поверх текстового коллаборатора.
type LLMRanker struct {
	completer llm.Completer
}

// NewLLMRanker создаёт ранжировщик. При nil completer возвращает nil,
// чтобы агрегатор сразу использовал fallback.
func NewLLMRanker(c llm.Completer) Ranker {
	if c == nil {
		return nil
	}
	return &LLMRanker{completer: c}
}

// candidateSummary — сериализуемое описание кандидата для промпта.
type candidateSummary struct {
	ID          string   `json:"id"`
	FileName    string   `json:"fileName"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	ContentType string   `json:"contentType"`
	AISummary   string   `json:"aiSummary,omitempty"`
	AIKeywords  []string `json:"aiKeywords,omitempty"`
}

// Rank формирует промпт, вызывает коллаборатор и разбирает id.
// Некорректный ответ даёт пустой список без ошибки.
func (r *LLMRanker) Rank(ctx context.Context, query string, candidates []*model.FileRecord, maxResults int) ([]string, error) {
	prompt, err := BuildRankPrompt(query, candidates, maxResults)
	if err != nil {
		return nil, err
	}
	text, err := r.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("AI-ранжирование: %w", err)
	}
	return ParseRankedIDs(text), nil
}

// BuildRankPrompt формирует промпт ранжирования с не более чем
// MaxPromptCandidates кандидатами.
func BuildRankPrompt(query string, candidates []*model.FileRecord, maxResults int) (string, error) {
	if len(candidates) > MaxPromptCandidates {
		candidates = candidates[:MaxPromptCandidates]
	}
	summaries := make([]candidateSummary, 0, len(candidates))
	for _, f := range candidates {
		summaries = append(summaries, candidateSummary{
			ID:          f.ID,
			FileName:    f.FileName,
			Description: f.Description,
			Tags:        f.Tags,
			ContentType: f.ContentType,
			AISummary:   f.AISummary,
			AIKeywords:  f.AIKeywords,
		})
	}
	data, err := json.Marshal(summaries)
	if err != nil {
		return "", fmt.Errorf("сериализация кандидатов: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are a file search assistant. Given a search query and a list of files, ")
	b.WriteString("rank the files by relevance to the query.\n")
	b.WriteString("Consider file names, descriptions, tags, content types, and AI summaries.\n\n")
	fmt.Fprintf(&b, "Search Query: %q\n\n", query)
	b.WriteString("Files to search through:\n")
	b.Write(data)
	fmt.Fprintf(&b, "\n\nReturn only the IDs of the most relevant files (maximum %d) ", maxResults)
	b.WriteString("as a JSON array of strings, most relevant first. ")
	b.WriteString("If no files are relevant, return an empty array [].")
	return b.String(), nil
}
