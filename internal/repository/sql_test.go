package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/share-module/internal/domain/query"
)

// --- Тесты buildWhere ---

// TestBuildWhere_Empty проверяет предикат без условий.
func TestBuildWhere_Empty(t *testing.T) {
	where, args := buildWhere(query.Predicate{IncludeArchived: true}, 1)

	if where != "" {
		t.Errorf("where = %q, ожидалась пустая строка", where)
	}
	if len(args) != 0 {
		t.Errorf("args count = %d, ожидался 0", len(args))
	}
}

// TestBuildWhere_ExcludesArchived проверяет условие по архиву по умолчанию.
func TestBuildWhere_ExcludesArchived(t *testing.T) {
	where, _ := buildWhere(query.Predicate{}, 1)
	if where != "WHERE is_archived = FALSE" {
		t.Errorf("where = %q", where)
	}
}

// TestBuildWhere_Access проверяет клаузу доступа владелец/публичные/расшаренные.
func TestBuildWhere_Access(t *testing.T) {
	p := query.Predicate{Access: &query.Access{
		CallerID:      "u1",
		CallerEmail:   "u1@example.com",
		IncludePublic: true,
		IncludeShared: true,
	}}
	where, args := buildWhere(p, 1)

	want := "(owner_id = $1 OR is_public = TRUE OR (is_shared = TRUE AND $2 = ANY(shared_with)))"
	if !strings.Contains(where, want) {
		t.Errorf("where = %q, ожидалось содержание %q", where, want)
	}
	if len(args) != 2 || args[0] != "u1" || args[1] != "u1@example.com" {
		t.Errorf("args = %v", args)
	}
}

// TestBuildWhere_AccessOwnerOnly проверяет, что без флагов остаётся только владелец.
func TestBuildWhere_AccessOwnerOnly(t *testing.T) {
	p := query.Predicate{Access: &query.Access{CallerID: "u1", CallerEmail: "u1@example.com"}}
	where, args := buildWhere(p, 1)

	if !strings.Contains(where, "(owner_id = $1)") {
		t.Errorf("where = %q, ожидалось (owner_id = $1)", where)
	}
	if strings.Contains(where, "is_public") || strings.Contains(where, "shared_with") {
		t.Errorf("where = %q, лишние альтернативы доступа", where)
	}
	if len(args) != 1 {
		t.Errorf("args count = %d, ожидался 1", len(args))
	}
}

// TestBuildWhere_Text проверяет ILIKE по трём полям с одним аргументом.
func TestBuildWhere_Text(t *testing.T) {
	where, args := buildWhere(query.Predicate{IncludeArchived: true, Text: "50%_off"}, 1)

	for _, col := range []string{"file_name ILIKE $1", "description ILIKE $1", "ai_summary ILIKE $1"} {
		if !strings.Contains(where, col) {
			t.Errorf("where = %q, ожидалось %q", where, col)
		}
	}
	if len(args) != 1 {
		t.Fatalf("args count = %d, ожидался 1", len(args))
	}
	if args[0] != `%50\%\_off%` {
		t.Errorf("args[0] = %v, ожидалось экранирование спецсимволов", args[0])
	}
}

// TestBuildWhere_AllFilters проверяет нумерацию параметров со смещением.
func TestBuildWhere_AllFilters(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	minSize, maxSize := int64(10), int64(100)

	p := query.Predicate{
		IncludeArchived: true,
		OwnerID:         "u1",
		ExcludeOwnerID:  "u2",
		PublicOnly:      true,
		SharedWith:      "a@b.c",
		ContentType:     "application/pdf",
		CreatedFrom:     &from,
		CreatedTo:       &to,
		MinSize:         &minSize,
		MaxSize:         &maxSize,
		AnyTags:         []string{"x", "y"},
		AccessedSince:   &from,
	}
	where, args := buildWhere(p, 3)

	for _, part := range []string{
		"owner_id = $3",
		"owner_id <> $4",
		"is_public = TRUE",
		"$5 = ANY(shared_with)",
		"content_type = $6",
		"created_date >= $7",
		"created_date <= $8",
		"file_size >= $9",
		"file_size <= $10",
		"tags && $11",
		"last_accessed_date >= $12",
	} {
		if !strings.Contains(where, part) {
			t.Errorf("where = %q, ожидалось %q", where, part)
		}
	}
	if len(args) != 10 {
		t.Errorf("args count = %d, ожидалось 10", len(args))
	}
}

// --- Тесты buildOrderBy ---

func TestBuildOrderBy(t *testing.T) {
	tests := []struct {
		name  string
		order query.Order
		want  string
	}{
		{"пустой", nil, "ORDER BY file_id ASC"},
		{"по популярности", query.ByPopularity(), "ORDER BY popularity_score DESC, download_count DESC, file_id ASC"},
		{"имя по возрастанию", query.Order{{Key: query.SortFileName}}, `ORDER BY file_name COLLATE "C" ASC, file_id ASC`},
		{"неизвестный ключ", query.Order{{Key: "drop table", Desc: true}}, "ORDER BY created_date DESC, file_id ASC"},
		{"последний доступ", query.Order{{Key: query.SortLastAccessed, Desc: true}}, "ORDER BY last_accessed_date DESC NULLS LAST, file_id ASC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildOrderBy(tt.order); got != tt.want {
				t.Errorf("buildOrderBy() = %q, ожидалось %q", got, tt.want)
			}
		})
	}
}
