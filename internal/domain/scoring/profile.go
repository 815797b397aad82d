// profile.go — профиль интересов пользователя для рекомендаций.
package scoring

import (
	"slices"
	"strings"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
)

const (
	// topContentTypes — число любимых типов контента в профиле
	topContentTypes = 3
	// topTags — число любимых тегов в профиле
	topTags = 5
)

// Profile — наиболее частые типы контента и теги среди собственных
// неархивных файлов пользователя.
type Profile struct {
	ContentTypes []string
	Tags         []string
}

// BuildProfile строит профиль по собственным файлам пользователя.
// Архивные файлы не учитываются. При равной частоте порядок определяется
// первым появлением значения.
func BuildProfile(own []*model.FileRecord) Profile {
	var types, tags []string
	for _, f := range own {
		if f.IsArchived {
			continue
		}
		if f.ContentType != "" {
			types = append(types, f.ContentType)
		}
		tags = append(tags, f.Tags...)
	}
	return Profile{
		ContentTypes: mostFrequent(types, topContentTypes),
		Tags:         mostFrequent(tags, topTags),
	}
}

// HasContentType проверяет, входит ли тип в профиль.
func (p Profile) HasContentType(ct string) bool {
	return slices.Contains(p.ContentTypes, ct)
}

// CommonTags возвращает число уникальных тегов, общих с профилем.
func (p Profile) CommonTags(tags []string) int {
	n := 0
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if slices.Contains(p.Tags, t) {
			n++
		}
	}
	return n
}

// Empty — у пользователя нет собственных файлов.
func (p Profile) Empty() bool {
	return len(p.ContentTypes) == 0 && len(p.Tags) == 0
}

// mostFrequent возвращает до n самых частых значений.
func mostFrequent(values []string, n int) []string {
	counts := make(map[string]int)
	var order []string
	for _, v := range values {
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}
	slices.SortStableFunc(order, func(a, b string) int {
		return counts[b] - counts[a]
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}

// TopTerms возвращает до n самых частых терминов без учёта регистра
// вместе с их частотами (термины приводятся к нижнему регистру).
func TopTerms(values []string, n int) ([]string, map[string]int) {
	lower := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			lower = append(lower, v)
		}
	}
	counts := make(map[string]int)
	for _, v := range lower {
		counts[v]++
	}
	return mostFrequent(lower, n), counts
}
