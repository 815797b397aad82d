package search

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
)

// --- Моки ---

// mockRanker — мок Ranker с func-полем.
type mockRanker struct {
	rankFn func(ctx context.Context, query string, candidates []*model.FileRecord, maxResults int) ([]string, error)
	calls  int
}

func (m *mockRanker) Rank(ctx context.Context, query string, candidates []*model.FileRecord, maxResults int) ([]string, error) {
	m.calls++
	return m.rankFn(ctx, query, candidates, maxResults)
}

// mockCompleter — мок llm.Completer.
type mockCompleter struct {
	completeFn func(ctx context.Context, prompt string) (string, error)
}

func (m *mockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return m.completeFn(ctx, prompt)
}

func testPool() []*model.FileRecord {
	return []*model.FileRecord{
		{ID: "a", FileName: "budget-2026.xlsx", PopularityScore: 10},
		{ID: "b", FileName: "holiday.jpg", Tags: []string{"Photos"}, PopularityScore: 50},
		{ID: "c", FileName: "notes.txt", Description: "Budget meeting notes", PopularityScore: 30},
		{ID: "d", FileName: "readme.md", AISummary: "Project BUDGET overview", PopularityScore: 20},
		{ID: "e", FileName: "song.mp3", PopularityScore: 40},
	}
}

func recIDs(recs []*model.FileRecord) string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return strings.Join(out, ",")
}

// --- Тесты Fallback ---

// TestFallback_MatchesAllFields проверяет поиск по имени, описанию, тегам и AI-описанию.
func TestFallback_MatchesAllFields(t *testing.T) {
	got := Fallback("BUDGET", testPool(), nil)
	if want := "c,d,a"; recIDs(got) != want {
		t.Errorf("Fallback = %s, ожидалось %s", recIDs(got), want)
	}

	got = Fallback("photo", testPool(), nil)
	if want := "b"; recIDs(got) != want {
		t.Errorf("Fallback(tag) = %s, ожидалось %s", recIDs(got), want)
	}
}

// TestFallback_EmptyQuery проверяет, что пустой запрос совпадает со всем пулом.
func TestFallback_EmptyQuery(t *testing.T) {
	got := Fallback("", testPool(), nil)
	if want := "b,e,c,d,a"; recIDs(got) != want {
		t.Errorf("Fallback = %s, ожидалось %s", recIDs(got), want)
	}
}

// TestFallback_Exclude проверяет исключение уже выбранных записей.
func TestFallback_Exclude(t *testing.T) {
	got := Fallback("budget", testPool(), map[string]struct{}{"c": {}})
	if want := "d,a"; recIDs(got) != want {
		t.Errorf("Fallback = %s, ожидалось %s", recIDs(got), want)
	}
}

// --- Тесты Resolve / Merge ---

// TestResolve проверяет сохранение порядка, отбрасывание неизвестных и повторов.
func TestResolve(t *testing.T) {
	got := Resolve([]string{"d", "zzz", " a ", "d", "b"}, testPool())
	if want := "d,a,b"; recIDs(got) != want {
		t.Errorf("Resolve = %s, ожидалось %s", recIDs(got), want)
	}
}

// TestMerge проверяет дедупликацию, дополнение и усечение.
func TestMerge(t *testing.T) {
	pool := testPool()
	ranked := []*model.FileRecord{pool[4], pool[0]}
	fallback := []*model.FileRecord{pool[1], pool[0], pool[2], pool[3]}

	if got := Merge(ranked, fallback, 4); recIDs(got) != "e,a,b,c" {
		t.Errorf("Merge = %s, ожидалось e,a,b,c", recIDs(got))
	}
	if got := Merge(ranked, fallback, 1); recIDs(got) != "e" {
		t.Errorf("Merge(1) = %s, ожидалось e", recIDs(got))
	}
	if got := Merge(nil, nil, 0); len(got) != 0 {
		t.Errorf("Merge(0) = %s, ожидался пустой список", recIDs(got))
	}
}

// --- Тесты Aggregator ---

// TestAggregator_NoRanker проверяет: без ранжировщика пустой запрос даёт пул
// по убыванию популярности, усечённый до n.
func TestAggregator_NoRanker(t *testing.T) {
	agg := NewAggregator(nil, 0, slog.Default())

	got := agg.Search(context.Background(), "", testPool(), 3)
	if want := "b,e,c"; recIDs(got) != want {
		t.Errorf("Search = %s, ожидалось %s", recIDs(got), want)
	}
}

// TestAggregator_RankedOrderAuthoritative проверяет, что порядок AI сохраняется,
// а недостающие записи добираются fallback без повторов.
func TestAggregator_RankedOrderAuthoritative(t *testing.T) {
	r := &mockRanker{rankFn: func(_ context.Context, _ string, _ []*model.FileRecord, n int) ([]string, error) {
		if n != 3 {
			t.Errorf("maxResults = %d, ожидалось 3", n)
		}
		return []string{"a", "unknown"}, nil
	}}
	agg := NewAggregator(r, time.Second, slog.Default())

	got := agg.Search(context.Background(), "budget", testPool(), 3)
	if want := "a,c,d"; recIDs(got) != want {
		t.Errorf("Search = %s, ожидалось %s", recIDs(got), want)
	}
}

// TestAggregator_RankerFills проверяет усечение, когда AI вернул больше нужного.
func TestAggregator_RankerFills(t *testing.T) {
	r := &mockRanker{rankFn: func(context.Context, string, []*model.FileRecord, int) ([]string, error) {
		return []string{"e", "a", "b"}, nil
	}}
	agg := NewAggregator(r, 0, slog.Default())

	if got := agg.Search(context.Background(), "x", testPool(), 2); recIDs(got) != "e,a" {
		t.Errorf("Search = %s, ожидалось e,a", recIDs(got))
	}
}

// TestAggregator_RankerErrorDegrades проверяет полный переход на fallback при ошибке.
func TestAggregator_RankerErrorDegrades(t *testing.T) {
	r := &mockRanker{rankFn: func(context.Context, string, []*model.FileRecord, int) ([]string, error) {
		return nil, errors.New("service unavailable")
	}}
	agg := NewAggregator(r, 0, slog.Default())

	got := agg.Search(context.Background(), "budget", testPool(), 10)
	if want := "c,d,a"; recIDs(got) != want {
		t.Errorf("Search = %s, ожидалось %s", recIDs(got), want)
	}
}

// TestAggregator_Timeout проверяет, что таймаут ранжировщика не ломает поиск.
func TestAggregator_Timeout(t *testing.T) {
	r := &mockRanker{rankFn: func(ctx context.Context, _ string, _ []*model.FileRecord, _ int) ([]string, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	agg := NewAggregator(r, 20*time.Millisecond, slog.Default())

	got := agg.Search(context.Background(), "", testPool(), 2)
	if want := "b,e"; recIDs(got) != want {
		t.Errorf("Search = %s, ожидалось %s", recIDs(got), want)
	}
}

// TestAggregator_EmptyPool проверяет, что пустой пул не вызывает ранжировщик.
func TestAggregator_EmptyPool(t *testing.T) {
	r := &mockRanker{rankFn: func(context.Context, string, []*model.FileRecord, int) ([]string, error) {
		return []string{"a"}, nil
	}}
	agg := NewAggregator(r, 0, slog.Default())

	if got := agg.Search(context.Background(), "x", nil, 5); len(got) != 0 {
		t.Errorf("Search = %s, ожидался пустой список", recIDs(got))
	}
	if r.calls != 0 {
		t.Errorf("calls = %d, ожидалось 0", r.calls)
	}
}

// --- Тесты LLMRanker ---

// TestLLMRanker_PromptAndParse проверяет промпт (не более 50 кандидатов) и разбор ответа.
func TestLLMRanker_PromptAndParse(t *testing.T) {
	var pool []*model.FileRecord
	for i := 0; i < 60; i++ {
		pool = append(pool, &model.FileRecord{ID: "id-" + string(rune('A'+i%26)) + string(rune('a'+i/26))})
	}

	c := &mockCompleter{completeFn: func(_ context.Context, prompt string) (string, error) {
		start := strings.Index(prompt, "[")
		end := strings.Index(prompt, "]\n\n")
		var cands []candidateSummary
		if err := json.Unmarshal([]byte(prompt[start:end+1]), &cands); err != nil {
			t.Errorf("кандидаты в промпте не разбираются: %v", err)
		}
		if len(cands) != MaxPromptCandidates {
			t.Errorf("кандидатов = %d, ожидалось %d", len(cands), MaxPromptCandidates)
		}
		if !strings.Contains(prompt, "maximum 7") {
			t.Error("промпт должен содержать maxResults")
		}
		return "Sure! Here you go:\n[\"" + pool[3].ID + "\"]", nil
	}}

	r := NewLLMRanker(c)
	ids, err := r.Rank(context.Background(), "q", pool, 7)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(ids) != 1 || ids[0] != pool[3].ID {
		t.Errorf("ids = %v, ожидалось [%s]", ids, pool[3].ID)
	}
}

// TestLLMRanker_GarbageIsEmpty проверяет, что некорректный ответ даёт пустой список без ошибки.
func TestLLMRanker_GarbageIsEmpty(t *testing.T) {
	c := &mockCompleter{completeFn: func(context.Context, string) (string, error) {
		return "I cannot help with that", nil
	}}
	ids, err := NewLLMRanker(c).Rank(context.Background(), "q", testPool(), 3)
	if err != nil || len(ids) != 0 {
		t.Errorf("(%v, %v), ожидалось (пусто, nil)", ids, err)
	}
}

// TestNewLLMRanker_Nil проверяет, что без коллаборатора ранжировщик не создаётся.
func TestNewLLMRanker_Nil(t *testing.T) {
	if r := NewLLMRanker(nil); r != nil {
		t.Errorf("NewLLMRanker(nil) = %v, ожидался nil", r)
	}
}
