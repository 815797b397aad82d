package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
	"github.com/bigkaa/goartstore/share-module/internal/domain/query"
	"github.com/bigkaa/goartstore/share-module/internal/domain/scoring"
)

func newTestLeaderboard(repo *mockFileRepo) *LeaderboardService {
	svc := NewLeaderboardService(repo, 100, slog.Default())
	svc.now = fixedClock(testNow)
	return svc
}

// publicRecord — публичная запись с заданными счётчиками и оценкой.
func publicRecord(id, contentType string, downloads, views int64, score float64) *model.FileRecord {
	r := newRecord(id, bob, id+".bin", contentType)
	r.IsPublic = true
	r.DownloadCount = downloads
	r.ViewCount = views
	r.PopularityScore = score
	return r
}

func ids(entries []LeaderboardEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.File.ID
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

func TestLeaderboard_Popular(t *testing.T) {
	repo := newMockRepo()
	private := newRecord("hidden", bob, "x", "text/plain")
	private.PopularityScore = 1000
	repo.seed(t,
		publicRecord("p1", "image/png", 1, 0, 10),
		publicRecord("p2", "image/png", 5, 0, 30),
		publicRecord("p3", "image/png", 9, 0, 30),
		private,
	)
	svc := newTestLeaderboard(repo)

	got, err := svc.Popular(context.Background(), 0)
	if err != nil {
		t.Fatalf("Popular ошибка: %v", err)
	}
	// при равной популярности выше файл с большим числом скачиваний
	if want := []string{"p3", "p2", "p1"}; !equalIDs(ids(got), want) {
		t.Errorf("Popular = %v, ожидалось %v", ids(got), want)
	}
	if got[0].Rank != 1 || got[2].Rank != 3 {
		t.Errorf("ранги: %d..%d", got[0].Rank, got[2].Rank)
	}

	got, _ = svc.Popular(context.Background(), 2)
	if len(got) != 2 {
		t.Errorf("limit=2: получено %d", len(got))
	}
}

func TestLeaderboard_MostDownloaded(t *testing.T) {
	repo := newMockRepo()
	older := publicRecord("old", "text/plain", 5, 0, 0)
	newer := publicRecord("new", "text/plain", 5, 0, 0)
	newer.CreatedDate = older.CreatedDate.Add(time.Hour)
	repo.seed(t, older, newer, publicRecord("top", "text/plain", 50, 0, 0))

	got, err := newTestLeaderboard(repo).MostDownloaded(context.Background(), 10)
	if err != nil {
		t.Fatalf("MostDownloaded ошибка: %v", err)
	}
	if want := []string{"top", "new", "old"}; !equalIDs(ids(got), want) {
		t.Errorf("MostDownloaded = %v, ожидалось %v", ids(got), want)
	}
}

func TestLeaderboard_RecentPopular(t *testing.T) {
	repo := newMockRepo()

	fresh := publicRecord("fresh", "text/plain", 0, 0, 20)
	fresh.CreatedDate = testNow.Add(-24 * time.Hour)

	accessed := publicRecord("accessed", "text/plain", 0, 0, 50)
	accessed.CreatedDate = testNow.AddDate(0, 0, -30)
	last := testNow.Add(-2 * time.Hour)
	accessed.LastAccessedDate = &last

	stale := publicRecord("stale", "text/plain", 0, 0, 90)
	stale.CreatedDate = testNow.AddDate(0, 0, -30)

	// подходит по обоим условиям: не должен дублироваться
	both := publicRecord("both", "text/plain", 0, 0, 30)
	both.CreatedDate = testNow.Add(-time.Hour)
	both.LastAccessedDate = &last

	repo.seed(t, fresh, accessed, stale, both)

	got, err := newTestLeaderboard(repo).RecentPopular(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("RecentPopular ошибка: %v", err)
	}
	if want := []string{"accessed", "both", "fresh"}; !equalIDs(ids(got), want) {
		t.Errorf("RecentPopular = %v, ожидалось %v", ids(got), want)
	}

	got, _ = newTestLeaderboard(repo).RecentPopular(context.Background(), 60, 1)
	if want := []string{"stale"}; !equalIDs(ids(got), want) {
		t.Errorf("days=60, limit=1: %v, ожидалось %v", ids(got), want)
	}
}

func TestLeaderboard_ByCategory(t *testing.T) {
	repo := newMockRepo()
	repo.seed(t,
		publicRecord("img1", "image/png", 0, 0, 10),
		publicRecord("img2", "image/jpeg", 0, 0, 9),
		publicRecord("img3", "image/gif", 0, 0, 8),
		publicRecord("doc1", "application/pdf", 0, 0, 15),
		publicRecord("vid1", "video/mp4", 0, 0, 1),
	)

	got, err := newTestLeaderboard(repo).ByCategory(context.Background(), 2)
	if err != nil {
		t.Fatalf("ByCategory ошибка: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("категорий = %d, ожидалось 3", len(got))
	}
	// Images: 10+9 (третий файл за пределами limit), Documents: 15, Videos: 1
	if got[0].Category != scoring.CategoryImages || got[0].TotalScore != 19 {
		t.Errorf("первая категория = %s (%v)", got[0].Category, got[0].TotalScore)
	}
	if len(got[0].Entries) != 2 || got[0].Entries[1].Rank != 2 {
		t.Errorf("записей в Images = %d", len(got[0].Entries))
	}
	if got[1].Category != scoring.CategoryDocuments || got[2].Category != scoring.CategoryVideos {
		t.Errorf("порядок категорий: %s, %s", got[1].Category, got[2].Category)
	}
}

func TestLeaderboard_Trending(t *testing.T) {
	repo := newMockRepo()

	recent := publicRecord("recent", "text/plain", 10, 10, 30)
	r := testNow.Add(-time.Hour)
	recent.LastAccessedDate = &r

	older := publicRecord("older", "text/plain", 100, 100, 80)
	o := testNow.Add(-20 * time.Hour)
	older.LastAccessedDate = &o

	outside := publicRecord("outside", "text/plain", 1000, 1000, 90)
	out := testNow.Add(-30 * time.Hour)
	outside.LastAccessedDate = &out

	never := publicRecord("never", "text/plain", 0, 0, 0)

	repo.seed(t, recent, older, outside, never)

	got, err := newTestLeaderboard(repo).Trending(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("Trending ошибка: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Trending = %v, ожидалось 2 файла в окне 24ч", ids(got))
	}
	window := 24 * time.Hour
	for _, e := range got {
		want := scoring.Trending(e.File, testNow, window)
		if math.Abs(e.TrendingScore-want) > 1e-9 {
			t.Errorf("%s: TrendingScore = %v, ожидалось %v", e.File.ID, e.TrendingScore, want)
		}
	}
	if got[0].TrendingScore < got[1].TrendingScore {
		t.Error("рейтинг не упорядочен по убыванию трендовой оценки")
	}

	got, _ = newTestLeaderboard(repo).Trending(context.Background(), 48, 10)
	if len(got) != 3 {
		t.Errorf("окно 48ч: %v, ожидалось 3", ids(got))
	}
}

func TestLeaderboard_Stats(t *testing.T) {
	repo := newMockRepo()

	a := publicRecord("a", "image/png", 10, 20, 30)
	a.Tags = []string{"Cats", "pets"}
	a.CreatedDate = testNow.Add(-time.Hour)
	b := publicRecord("b", "image/jpeg", 2, 4, 20)
	b.Tags = []string{"cats"}
	accessed := testNow.Add(-30 * time.Minute)
	b.LastAccessedDate = &accessed
	c := publicRecord("c", "application/pdf", 0, 0, 40)
	c.Tags = []string{"report"}
	private := newRecord("x", alice, "x", "video/mp4")
	private.DownloadCount = 999
	repo.seed(t, a, b, c, private)

	st, err := newTestLeaderboard(repo).Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats ошибка: %v", err)
	}
	if st.TotalPublicFiles != 3 || st.TotalDownloads != 12 || st.TotalViews != 24 {
		t.Errorf("итоги: files=%d downloads=%d views=%d", st.TotalPublicFiles, st.TotalDownloads, st.TotalViews)
	}
	if st.AveragePopularityScore != 30 {
		t.Errorf("AveragePopularityScore = %v, ожидалось 30", st.AveragePopularityScore)
	}
	if st.MostPopularContentType != scoring.CategoryImages {
		t.Errorf("MostPopularContentType = %q, ожидалось Images (50 против 40)", st.MostPopularContentType)
	}
	if len(st.TopTags) != 3 || st.TopTags[0] != (TagCount{Tag: "cats", Count: 2}) {
		t.Errorf("TopTags = %v", st.TopTags)
	}
	if st.FilesCreatedToday != 1 || st.FilesAccessedToday != 1 {
		t.Errorf("сегодня: created=%d accessed=%d", st.FilesCreatedToday, st.FilesAccessedToday)
	}
}

func TestLeaderboard_Stats_Empty(t *testing.T) {
	st, err := newTestLeaderboard(newMockRepo()).Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats ошибка: %v", err)
	}
	if st.TotalPublicFiles != 0 || st.MostPopularContentType != "Unknown" || st.TopTags == nil {
		t.Errorf("пустая статистика: %+v", st)
	}
}

func TestLeaderboard_Recommended(t *testing.T) {
	repo := newMockRepo()

	// профиль alice: изображения с тегом cats
	own := newRecord("own", alice, "mine.png", "image/png")
	own.Tags = []string{"cats"}

	match := publicRecord("match", "image/png", 0, 0, 10)
	match.Tags = []string{"cats"}
	popular := publicRecord("popular", "application/pdf", 0, 0, 20)
	shared := newRecord("shared", carol, "s.png", "image/png")
	shared.IsShared = true
	shared.SharedWith = []string{alice.Email}
	shared.PopularityScore = 1
	private := newRecord("private", carol, "p.png", "image/png")
	private.PopularityScore = 500

	repo.seed(t, own, match, popular, shared, private)

	got, err := newTestLeaderboard(repo).Recommended(context.Background(), alice, 0)
	if err != nil {
		t.Fatalf("Recommended ошибка: %v", err)
	}
	gotIDs := make([]string, len(got))
	for i, f := range got {
		gotIDs[i] = f.ID
	}
	// match: 10+10+5=25, popular: 20, shared: 1+10=11; свои и недоступные исключены
	if want := []string{"match", "popular", "shared"}; !equalIDs(gotIDs, want) {
		t.Errorf("Recommended = %v, ожидалось %v", gotIDs, want)
	}

	// пулы загружаются отдельными выборками
	var sawExclude bool
	for _, spec := range repo.findSpecs {
		if spec.Predicate.ExcludeOwnerID == alice.ID && spec.Limit == 100 {
			sawExclude = true
		}
	}
	if !sawExclude {
		t.Error("пул кандидатов должен исключать собственные файлы и ограничиваться размером пула")
	}
}

func TestLeaderboard_RepoError(t *testing.T) {
	repo := newMockRepo()
	repo.findFn = func(context.Context, query.Spec) ([]*model.FileRecord, int, error) {
		return nil, 0, errors.New("db down")
	}
	svc := newTestLeaderboard(repo)
	ctx := context.Background()

	if _, err := svc.Popular(ctx, 10); err == nil {
		t.Error("Popular: ожидалась ошибка")
	}
	if _, err := svc.RecentPopular(ctx, 7, 10); err == nil {
		t.Error("RecentPopular: ожидалась ошибка")
	}
	if _, err := svc.Recommended(ctx, alice, 10); err == nil {
		t.Error("Recommended: ожидалась ошибка")
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, def, want int }{
		{0, 10, 10},
		{-5, 10, 10},
		{7, 10, 7},
		{1000, 10, 100},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in, tt.def); got != tt.want {
			t.Errorf("clampLimit(%d, %d) = %d, ожидалось %d", tt.in, tt.def, got, tt.want)
		}
	}
}
