// fallback.go — детерминированный поиск подстроки и слияние результатов.
// Все функции чистые и не обращаются к внешним сервисам.
package search

import (
	"cmp"
	"slices"
	"strings"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
	"github.com/bigkaa/goartstore/share-module/internal/llm"
)

// Fallback возвращает записи пула, содержащие query (без учёта регистра)
// в fileName, description, одном из тегов или aiSummary, упорядоченные по
// убыванию popularityScore. Записи из exclude пропускаются.
// Пустой query совпадает со всеми записями.
func Fallback(query string, pool []*model.FileRecord, exclude map[string]struct{}) []*model.FileRecord {
	q := strings.ToLower(strings.TrimSpace(query))

	var out []*model.FileRecord
	for _, f := range pool {
		if _, skip := exclude[f.ID]; skip {
			continue
		}
		if matches(f, q) {
			out = append(out, f)
		}
	}
	slices.SortStableFunc(out, func(a, b *model.FileRecord) int {
		return cmp.Compare(b.PopularityScore, a.PopularityScore)
	})
	return out
}

func matches(f *model.FileRecord, q string) bool {
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(f.FileName), q) ||
		strings.Contains(strings.ToLower(f.Description), q) ||
		strings.Contains(strings.ToLower(f.AISummary), q) {
		return true
	}
	return slices.ContainsFunc(f.Tags, func(t string) bool {
		return strings.Contains(strings.ToLower(t), q)
	})
}

// ParseRankedIDs разбирает ответ ранжировщика в список id.
// Любая ошибка разбора даёт пустой список.
func ParseRankedIDs(text string) []string {
	ids, err := llm.ParseStringArray(text)
	if err != nil {
		return nil
	}
	return ids
}

// Resolve сопоставляет id с записями пула, сохраняя порядок ids.
// Неизвестные и повторяющиеся id отбрасываются.
func Resolve(ids []string, pool []*model.FileRecord) []*model.FileRecord {
	byID := make(map[string]*model.FileRecord, len(pool))
	for _, f := range pool {
		byID[f.ID] = f
	}

	seen := make(map[string]struct{}, len(ids))
	var out []*model.FileRecord
	for _, id := range ids {
		id = strings.TrimSpace(id)
		f, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Merge объединяет ранжированные записи с записями fallback: сначала
// ranked в исходном порядке, затем fallback без уже выбранных, не более limit.
// Порядок ranked после слияния не меняется.
func Merge(ranked, fallback []*model.FileRecord, limit int) []*model.FileRecord {
	if limit <= 0 {
		return []*model.FileRecord{}
	}
	out := make([]*model.FileRecord, 0, limit)
	seen := make(map[string]struct{}, limit)

	add := func(list []*model.FileRecord) {
		for _, f := range list {
			if len(out) >= limit {
				return
			}
			if _, dup := seen[f.ID]; dup {
				continue
			}
			seen[f.ID] = struct{}{}
			out = append(out, f)
		}
	}
	add(ranked)
	add(fallback)
	return out
}

// idSet строит множество id записей.
func idSet(recs []*model.FileRecord) map[string]struct{} {
	set := make(map[string]struct{}, len(recs))
	for _, f := range recs {
		set[f.ID] = struct{}{}
	}
	return set
}
