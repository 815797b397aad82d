package query

import (
	"testing"
	"time"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
)

var (
	alice = model.Caller{ID: "alice", Email: "alice@example.com"}
	base  = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
)

func ids(recs []*model.FileRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --- Тесты Build ---

// TestBuild_OwnFilesAlwaysIncluded проверяет, что собственный приватный файл
// находится даже при выключенных includePublic/includeShared.
func TestBuild_OwnFilesAlwaysIncluded(t *testing.T) {
	own := &model.FileRecord{ID: "1", OwnerID: "alice"}
	foreignPublic := &model.FileRecord{ID: "2", OwnerID: "bob", IsPublic: true}
	foreignShared := &model.FileRecord{ID: "3", OwnerID: "bob", IsShared: true, SharedWith: []string{"alice@example.com"}}

	spec := Build(SearchRequest{}, alice)
	got, total := Apply(spec, []*model.FileRecord{own, foreignPublic, foreignShared})

	if total != 1 || got[0].ID != "1" {
		t.Errorf("результат = %v, ожидался только собственный файл", ids(got))
	}
}

// TestBuild_AccessUnion проверяет объединение публичных, расшаренных и собственных.
func TestBuild_AccessUnion(t *testing.T) {
	recs := []*model.FileRecord{
		{ID: "own", OwnerID: "alice"},
		{ID: "public", OwnerID: "bob", IsPublic: true},
		{ID: "shared", OwnerID: "bob", IsShared: true, SharedWith: []string{"alice@example.com"}},
		{ID: "shared-other", OwnerID: "bob", IsShared: true, SharedWith: []string{"carol@example.com"}},
		{ID: "private", OwnerID: "bob"},
		{ID: "listed-not-shared", OwnerID: "bob", SharedWith: []string{"alice@example.com"}},
	}

	tests := []struct {
		name          string
		public, share bool
		want          int
	}{
		{"только свои", false, false, 1},
		{"свои и публичные", true, false, 2},
		{"свои и расшаренные", false, true, 2},
		{"все", true, true, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := Build(SearchRequest{IncludePublic: tt.public, IncludeShared: tt.share}, alice)
			_, total := Apply(spec, recs)
			if total != tt.want {
				t.Errorf("total = %d, ожидалось %d", total, tt.want)
			}
		})
	}
}

// TestBuild_ExcludesArchived проверяет, что архивные файлы не попадают в выборку.
func TestBuild_ExcludesArchived(t *testing.T) {
	spec := Build(SearchRequest{}, alice)
	if spec.Predicate.Match(&model.FileRecord{OwnerID: "alice", IsArchived: true}) {
		t.Error("архивный файл не должен совпадать")
	}
}

// TestBuild_TextQuery проверяет поиск подстроки без учёта регистра по трём полям.
func TestBuild_TextQuery(t *testing.T) {
	recs := []*model.FileRecord{
		{ID: "name", OwnerID: "alice", FileName: "Quarterly-REPORT.pdf"},
		{ID: "desc", OwnerID: "alice", Description: "annual report draft"},
		{ID: "summary", OwnerID: "alice", AISummary: "A Report about sales"},
		{ID: "tag-only", OwnerID: "alice", Tags: []string{"report"}},
		{ID: "none", OwnerID: "alice", FileName: "photo.jpg"},
	}
	spec := Build(SearchRequest{Query: "  report "}, alice)
	_, total := Apply(spec, recs)

	if total != 3 {
		t.Errorf("total = %d, ожидалось 3 (имя, описание, AI-описание)", total)
	}
}

// TestBuild_Filters проверяет AND-фильтры: тип, даты, размер, теги.
func TestBuild_Filters(t *testing.T) {
	from := base.Add(24 * time.Hour)
	to := base.Add(72 * time.Hour)
	minSize, maxSize := int64(100), int64(1000)

	match := &model.FileRecord{
		ID: "ok", OwnerID: "alice", ContentType: "application/pdf",
		CreatedDate: base.Add(48 * time.Hour), FileSize: 500, Tags: []string{"b", "x"},
	}
	req := SearchRequest{
		ContentType: "application/pdf",
		DateFrom:    &from,
		DateTo:      &to,
		MinFileSize: &minSize,
		MaxFileSize: &maxSize,
		Tags:        []string{"a", "b"},
	}
	p := Build(req, alice).Predicate

	if !p.Match(match) {
		t.Fatal("ожидалось совпадение")
	}

	cases := map[string]func(r *model.FileRecord){
		"тип":        func(r *model.FileRecord) { r.ContentType = "image/png" },
		"дата до":    func(r *model.FileRecord) { r.CreatedDate = base },
		"дата после": func(r *model.FileRecord) { r.CreatedDate = base.Add(96 * time.Hour) },
		"мал":        func(r *model.FileRecord) { r.FileSize = 99 },
		"велик":      func(r *model.FileRecord) { r.FileSize = 1001 },
		"теги":       func(r *model.FileRecord) { r.Tags = []string{"x"} },
	}
	for name, mutate := range cases {
		r := match.Clone()
		mutate(r)
		if p.Match(r) {
			t.Errorf("%s: ожидалось несовпадение", name)
		}
	}

	// границы включительно
	edge := match.Clone()
	edge.CreatedDate = from
	edge.FileSize = maxSize
	if !p.Match(edge) {
		t.Error("границы диапазонов должны включаться")
	}
}

// --- Тесты сортировки ---

// TestParseSortKey проверяет разбор ключа без учёта регистра и значение по умолчанию.
func TestParseSortKey(t *testing.T) {
	tests := map[string]SortKey{
		"popularityscore":  SortPopularityScore,
		"PopularityScore":  SortPopularityScore,
		"FILENAME":         SortFileName,
		"fileSize":         SortFileSize,
		"downloadcount":    SortDownloadCount,
		"createdDate":      SortCreatedDate,
		"":                 SortCreatedDate,
		"owner":            SortCreatedDate,
		"lastAccessedDate": SortCreatedDate,
	}
	for in, want := range tests {
		if got := ParseSortKey(in); got != want {
			t.Errorf("ParseSortKey(%q) = %q, ожидалось %q", in, got, want)
		}
	}
}

// TestBuild_SortAscendingByPopularity проверяет sortBy="popularityscore", direction="ASC".
func TestBuild_SortAscendingByPopularity(t *testing.T) {
	recs := []*model.FileRecord{
		{ID: "a", OwnerID: "alice", PopularityScore: 30},
		{ID: "b", OwnerID: "alice", PopularityScore: 10},
		{ID: "c", OwnerID: "alice", PopularityScore: 20},
	}
	spec := Build(SearchRequest{SortBy: "popularityscore", SortDirection: "ASC"}, alice)
	got, _ := Apply(spec, recs)

	if want := []string{"b", "c", "a"}; !equalIDs(ids(got), want) {
		t.Errorf("порядок = %v, ожидался %v", ids(got), want)
	}
}

// TestBuild_UnknownSortDefaultsToCreatedDesc проверяет fallback сортировки.
func TestBuild_UnknownSortDefaultsToCreatedDesc(t *testing.T) {
	recs := []*model.FileRecord{
		{ID: "old", OwnerID: "alice", CreatedDate: base},
		{ID: "new", OwnerID: "alice", CreatedDate: base.Add(time.Hour)},
	}
	spec := Build(SearchRequest{SortBy: "nonsense"}, alice)

	if len(spec.Order) != 1 || spec.Order[0].Key != SortCreatedDate || !spec.Order[0].Desc {
		t.Fatalf("Order = %+v, ожидалось createdDate desc", spec.Order)
	}
	got, _ := Apply(spec, recs)
	if want := []string{"new", "old"}; !equalIDs(ids(got), want) {
		t.Errorf("порядок = %v, ожидался %v", ids(got), want)
	}
}

// TestOrder_ByPopularityTieBreak проверяет вторичную сортировку по скачиваниям и ID.
func TestOrder_ByPopularityTieBreak(t *testing.T) {
	recs := []*model.FileRecord{
		{ID: "z", PopularityScore: 5, DownloadCount: 1},
		{ID: "y", PopularityScore: 5, DownloadCount: 3},
		{ID: "x", PopularityScore: 5, DownloadCount: 1},
		{ID: "w", PopularityScore: 9},
	}
	got, _ := Apply(Spec{Predicate: Predicate{}, Order: ByPopularity()}, recs)

	if want := []string{"w", "y", "x", "z"}; !equalIDs(ids(got), want) {
		t.Errorf("порядок = %v, ожидался %v", ids(got), want)
	}
}

// --- Тесты пагинации ---

// TestNormalizePage проверяет нормализацию номера и размера страницы.
func TestNormalizePage(t *testing.T) {
	tests := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{0, 0, 1, DefaultPageSize},
		{-5, 10, 1, 10},
		{3, 500, 3, MaxPageSize},
		{2, 25, 2, 25},
	}
	for _, tt := range tests {
		p, s := NormalizePage(tt.page, tt.size)
		if p != tt.wantPage || s != tt.wantSize {
			t.Errorf("NormalizePage(%d, %d) = (%d, %d), ожидалось (%d, %d)",
				tt.page, tt.size, p, s, tt.wantPage, tt.wantSize)
		}
	}
}

// TestBuild_Offset проверяет смещение (page-1)·pageSize и окно выборки.
func TestBuild_Offset(t *testing.T) {
	spec := Build(SearchRequest{Page: 3, PageSize: 2, SortBy: "fileName", SortDirection: "asc"}, alice)
	if spec.Offset != 4 || spec.Limit != 2 {
		t.Fatalf("Offset/Limit = %d/%d, ожидалось 4/2", spec.Offset, spec.Limit)
	}

	var recs []*model.FileRecord
	for _, n := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		recs = append(recs, &model.FileRecord{ID: n, OwnerID: "alice", FileName: n})
	}
	got, total := Apply(spec, recs)
	if total != 7 {
		t.Errorf("total = %d, ожидалось 7", total)
	}
	if want := []string{"e", "f"}; !equalIDs(ids(got), want) {
		t.Errorf("страница = %v, ожидалась %v", ids(got), want)
	}

	spec.Offset = 100
	if got, _ := Apply(spec, recs); len(got) != 0 {
		t.Errorf("за пределами выборки ожидалась пустая страница, получено %v", ids(got))
	}
}

// TestPredicate_ListHelpers проверяет готовые предикаты списков.
func TestPredicate_ListHelpers(t *testing.T) {
	rec := &model.FileRecord{OwnerID: "bob", IsPublic: true, IsShared: true, SharedWith: []string{"alice@example.com"}}

	if !Own("bob").Match(rec) || Own("alice").Match(rec) {
		t.Error("Own: неверная фильтрация по владельцу")
	}
	if !Public().Match(rec) {
		t.Error("Public: ожидалось совпадение")
	}
	if !SharedWithMe("alice@example.com").Match(rec) || SharedWithMe("carol@example.com").Match(rec) {
		t.Error("SharedWithMe: неверная фильтрация по email")
	}

	since := base
	accessed := base.Add(time.Hour)
	p := Predicate{AccessedSince: &since}
	if p.Match(rec) {
		t.Error("AccessedSince: файл без обращений не должен совпадать")
	}
	rec.LastAccessedDate = &accessed
	if !p.Match(rec) {
		t.Error("AccessedSince: ожидалось совпадение")
	}
}
