// enrich.go — AI-обогащение метаданных: описание, ключевые слова и
// поисковые подсказки. При отсутствии коллаборатора или любой его
// ошибке используются детерминированные базовые варианты.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bigkaa/goartstore/share-module/internal/llm"
)

// maxSuggestions — максимум поисковых подсказок.
const maxSuggestions = 5

// Enricher — генерация AI-описаний, ключевых слов и подсказок.
type Enricher struct {
	ai      llm.Completer
	timeout time.Duration
	logger  *slog.Logger
}

// NewEnricher создаёт сервис обогащения. ai может быть nil.
func NewEnricher(ai llm.Completer, timeout time.Duration, logger *slog.Logger) *Enricher {
	return &Enricher{
		ai:      ai,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "enricher")),
	}
}

// complete вызывает коллаборатор с таймаутом.
func (e *Enricher) complete(ctx context.Context, prompt string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return e.ai.Complete(ctx, prompt)
}

// Summary возвращает краткое описание файла по имени и типу.
func (e *Enricher) Summary(ctx context.Context, fileName, contentType string) string {
	if e.ai == nil {
		return BasicSummary(fileName, contentType)
	}

	prompt := fmt.Sprintf(`Generate a concise summary for a file with the following details:
- File Name: %s
- Content Type: %s

Based on the file name and type, provide a 1-2 sentence summary describing what this file likely contains or what it might be used for.
Be specific and helpful for search purposes.`, fileName, contentType)

	text, err := e.complete(ctx, prompt)
	if err != nil || strings.TrimSpace(text) == "" {
		e.logger.Warn("AI-описание недоступно, используется базовое",
			slog.String("file_name", fileName),
			slog.Any("error", err),
		)
		return BasicSummary(fileName, contentType)
	}
	return strings.TrimSpace(text)
}

// Keywords возвращает ключевые слова для поиска файла.
func (e *Enricher) Keywords(ctx context.Context, fileName, description, contentType string) []string {
	if e.ai == nil {
		return BasicKeywords(fileName, description, contentType)
	}

	desc := description
	if desc == "" {
		desc = "No description"
	}
	prompt := fmt.Sprintf(`Extract relevant keywords for search purposes from the following file information:
- File Name: %s
- Description: %s
- Content Type: %s

Return 5-10 relevant keywords that would help users find this file.
Return the keywords as a JSON array of strings.
Focus on: file type, purpose, domain, technology, format, and content themes.`, fileName, desc, contentType)

	text, err := e.complete(ctx, prompt)
	if err == nil {
		var keywords []string
		keywords, err = llm.ParseStringArray(text)
		if keywords = cleanTerms(keywords); err == nil && len(keywords) > 0 {
			return keywords
		}
	}
	e.logger.Warn("AI-ключевые слова недоступны, используются базовые",
		slog.String("file_name", fileName),
		slog.Any("error", err),
	)
	return BasicKeywords(fileName, description, contentType)
}

// Suggestions возвращает до 5 поисковых подсказок для частичного запроса.
// Запросы короче двух символов подсказок не получают.
func (e *Enricher) Suggestions(ctx context.Context, partial string) []string {
	partial = strings.TrimSpace(partial)
	if len([]rune(partial)) < 2 {
		return []string{}
	}
	if e.ai == nil {
		return BasicSuggestions(partial)
	}

	prompt := fmt.Sprintf(`Given this partial search query: %q

Suggest 3-5 complete search queries that a user might be looking for when searching files.
Consider common file types, development terms, document types, and business contexts.

Return suggestions as a JSON array of strings.
Each suggestion should be a complete, useful search query.`, partial)

	text, err := e.complete(ctx, prompt)
	if err != nil {
		e.logger.Warn("AI-подсказки недоступны", slog.Any("error", err))
		return BasicSuggestions(partial)
	}
	suggestions, err := llm.ParseStringArray(text)
	if err != nil {
		return BasicSuggestions(partial)
	}
	suggestions = cleanTerms(suggestions)

	// Недостающие подсказки дополняются базовыми
	if len(suggestions) < 3 {
		for _, s := range BasicSuggestions(partial) {
			if !slices.Contains(suggestions, s) {
				suggestions = append(suggestions, s)
			}
		}
	}
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions
}

// --- Базовые (детерминированные) варианты ---

// basicSummaries — описания по расширению файла.
var basicSummaries = map[string]string{
	".pdf":  "PDF document that may contain reports, documentation, or reference material.",
	".docx": "Microsoft Word document containing text, formatting, and possibly images.",
	".xlsx": "Excel spreadsheet with data, calculations, or charts.",
	".pptx": "PowerPoint presentation with slides and visual content.",
	".jpg":  "Image file that may contain photos, diagrams, or visual content.",
	".png":  "Image file with graphics, screenshots, or illustrations.",
	".mp4":  "Video file containing multimedia content.",
	".zip":  "Compressed archive containing multiple files or folders.",
}

// BasicSummary строит описание по расширению имени файла.
func BasicSummary(fileName, contentType string) string {
	if s, ok := basicSummaries[strings.ToLower(filepath.Ext(fileName))]; ok {
		return s
	}
	return fmt.Sprintf("File of type %s that may be useful for reference or work purposes.", contentType)
}

// BasicKeywords собирает ключевые слова из расширения, категории типа,
// слов имени файла (длиннее 2 символов, до 5) и описания (длиннее 3, до 5).
func BasicKeywords(fileName, description, contentType string) []string {
	var keywords []string

	ext := filepath.Ext(fileName)
	if e := strings.ToLower(strings.TrimPrefix(ext, ".")); e != "" {
		keywords = append(keywords, e)
	}

	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "image/"):
		keywords = append(keywords, "image")
	case strings.HasPrefix(ct, "video/"):
		keywords = append(keywords, "video")
	case strings.HasPrefix(ct, "audio/"):
		keywords = append(keywords, "audio")
	case strings.Contains(ct, "pdf"):
		keywords = append(keywords, "document")
	case strings.Contains(ct, "text"):
		keywords = append(keywords, "text")
	}

	base := strings.TrimSuffix(fileName, ext)
	keywords = append(keywords, words(base, " _-.", 2, 5)...)
	keywords = append(keywords, words(description, " ,.;", 3, 5)...)

	return cleanTerms(keywords)
}

// basicFileTypes и basicTerms — словари базовых подсказок.
var (
	basicFileTypes = []string{"pdf", "doc", "image", "video", "excel", "powerpoint", "text", "archive"}
	basicTerms     = []string{"document", "report", "presentation", "spreadsheet", "contract", "invoice", "template", "backup"}
)

// BasicSuggestions строит подсказки по словарям типов файлов и терминов.
func BasicSuggestions(partial string) []string {
	q := strings.ToLower(strings.TrimSpace(partial))
	var out []string

	for _, t := range basicFileTypes {
		if strings.HasPrefix(t, q) {
			out = append(out, t+" files")
		}
	}
	for _, t := range basicTerms {
		if strings.HasPrefix(t, q) {
			out = append(out, t)
		}
	}
	if len([]rune(partial)) > 2 {
		out = append(out,
			fmt.Sprintf("files containing '%s'", partial),
			"recent "+partial,
			"shared "+partial,
		)
	}

	out = cleanTerms(out)
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

// words разбивает строку по разделителям и возвращает до limit слов
// длиннее minLen символов (в нижнем регистре).
func words(s, seps string, minLen, limit int) []string {
	parts := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return strings.ContainsRune(seps, r)
	})
	var out []string
	for _, p := range parts {
		if len([]rune(p)) > minLen {
			out = append(out, p)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// cleanTerms обрезает пробелы, убирает пустые строки и дубликаты,
// сохраняя порядок.
func cleanTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
