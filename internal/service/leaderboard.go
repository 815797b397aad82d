// leaderboard.go — рейтинги публичных файлов, статистика и
// персональные рекомендации.
package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
	"github.com/bigkaa/goartstore/share-module/internal/domain/query"
	"github.com/bigkaa/goartstore/share-module/internal/domain/scoring"
	"github.com/bigkaa/goartstore/share-module/internal/repository"
)

const (
	defaultBoardLimit       = 10
	defaultCategoryLimit    = 5
	maxBoardLimit           = 100
	defaultRecentDays       = 7
	defaultTrendingHours    = 24
	maxTrendingHours        = 24 * 30
	statsTopTags            = 10
	unknownContentTypeLabel = "Unknown"
)

// LeaderboardEntry — позиция файла в рейтинге.
type LeaderboardEntry struct {
	// Rank — место с 1
	Rank int
	File *model.FileRecord
	// TrendingScore — трендовая оценка (только для рейтинга trending)
	TrendingScore float64
}

// CategoryBoard — рейтинг внутри категории.
type CategoryBoard struct {
	Category string
	// TotalScore — сумма популярности файлов рейтинга
	TotalScore float64
	Entries    []LeaderboardEntry
}

// TagCount — тег и число файлов с ним.
type TagCount struct {
	Tag   string
	Count int
}

// Stats — сводная статистика по публичным файлам.
type Stats struct {
	TotalPublicFiles       int
	TotalDownloads         int64
	TotalViews             int64
	AveragePopularityScore float64
	// MostPopularContentType — категория с наибольшей суммарной популярностью
	MostPopularContentType string
	TopTags                []TagCount
	FilesCreatedToday      int
	FilesAccessedToday     int
}

// LeaderboardService — сервис рейтингов и рекомендаций.
type LeaderboardService struct {
	repo          repository.FileRepository
	recommendPool int
	now           func() time.Time
	logger        *slog.Logger
}

// NewLeaderboardService создаёт сервис рейтингов.
// recommendPool — размер пула кандидатов для рекомендаций.
func NewLeaderboardService(repo repository.FileRepository, recommendPool int, logger *slog.Logger) *LeaderboardService {
	return &LeaderboardService{
		repo:          repo,
		recommendPool: recommendPool,
		now:           time.Now,
		logger:        logger.With(slog.String("component", "leaderboard_service")),
	}
}

// Popular — публичные файлы по популярности.
func (s *LeaderboardService) Popular(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	files, _, err := s.repo.Find(ctx, query.Spec{
		Predicate: query.Public(),
		Order:     query.ByPopularity(),
		Limit:     clampLimit(limit, defaultBoardLimit),
	})
	if err != nil {
		return nil, fmt.Errorf("рейтинг популярных: %w", err)
	}
	return rank(files), nil
}

// MostDownloaded — публичные файлы по числу скачиваний, при равенстве новые первыми.
func (s *LeaderboardService) MostDownloaded(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	files, _, err := s.repo.Find(ctx, query.Spec{
		Predicate: query.Public(),
		Order: query.Order{
			{Key: query.SortDownloadCount, Desc: true},
			{Key: query.SortCreatedDate, Desc: true},
		},
		Limit: clampLimit(limit, defaultBoardLimit),
	})
	if err != nil {
		return nil, fmt.Errorf("рейтинг скачиваемых: %w", err)
	}
	return rank(files), nil
}

// RecentPopular — публичные файлы, созданные или открытые за последние days
// суток, по популярности.
//
// Условие «создан ИЛИ открыт» собирается из двух выборок: первые limit
// объединения всегда входят в объединение первых limit каждой из них.
func (s *LeaderboardService) RecentPopular(ctx context.Context, days, limit int) ([]LeaderboardEntry, error) {
	if days <= 0 {
		days = defaultRecentDays
	}
	limit = clampLimit(limit, defaultBoardLimit)
	cutoff := s.now().UTC().AddDate(0, 0, -days)

	created := query.Public()
	created.CreatedFrom = &cutoff
	accessed := query.Public()
	accessed.AccessedSince = &cutoff

	var byCreated, byAccess []*model.FileRecord
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byCreated, _, err = s.repo.Find(gctx, query.Spec{Predicate: created, Order: query.ByPopularity(), Limit: limit})
		return err
	})
	g.Go(func() error {
		var err error
		byAccess, _, err = s.repo.Find(gctx, query.Spec{Predicate: accessed, Order: query.ByPopularity(), Limit: limit})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("рейтинг недавних: %w", err)
	}

	merged := byCreated
	for _, f := range byAccess {
		if !slices.ContainsFunc(merged, func(m *model.FileRecord) bool { return m.ID == f.ID }) {
			merged = append(merged, f)
		}
	}
	files, _ := query.Apply(query.Spec{Predicate: query.Public(), Order: query.ByPopularity(), Limit: limit}, merged)
	return rank(files), nil
}

// ByCategory — лучшие limit файлов каждой категории. Категории
// упорядочены по сумме популярности своих файлов, пустые не выводятся.
func (s *LeaderboardService) ByCategory(ctx context.Context, limit int) ([]CategoryBoard, error) {
	limit = clampLimit(limit, defaultCategoryLimit)

	files, _, err := s.repo.Find(ctx, query.Spec{Predicate: query.Public(), Order: query.ByPopularity()})
	if err != nil {
		return nil, fmt.Errorf("рейтинг по категориям: %w", err)
	}

	index := make(map[string]int)
	var boards []CategoryBoard
	for _, f := range files {
		c := scoring.Category(f.ContentType)
		i, ok := index[c]
		if !ok {
			i = len(boards)
			index[c] = i
			boards = append(boards, CategoryBoard{Category: c})
		}
		b := &boards[i]
		if len(b.Entries) >= limit {
			continue
		}
		b.Entries = append(b.Entries, LeaderboardEntry{Rank: len(b.Entries) + 1, File: f})
		b.TotalScore += f.PopularityScore
	}

	slices.SortStableFunc(boards, func(a, b CategoryBoard) int {
		if c := cmp.Compare(b.TotalScore, a.TotalScore); c != 0 {
			return c
		}
		return strings.Compare(a.Category, b.Category)
	})
	return boards, nil
}

// Trending — публичные файлы, открытые за последние hours часов,
// по трендовой оценке.
func (s *LeaderboardService) Trending(ctx context.Context, hours, limit int) ([]LeaderboardEntry, error) {
	if hours <= 0 {
		hours = defaultTrendingHours
	}
	hours = min(hours, maxTrendingHours)
	limit = clampLimit(limit, defaultBoardLimit)

	now := s.now().UTC()
	window := time.Duration(hours) * time.Hour
	cutoff := now.Add(-window)

	p := query.Public()
	p.AccessedSince = &cutoff
	files, _, err := s.repo.Find(ctx, query.Spec{Predicate: p, Order: query.ByPopularity()})
	if err != nil {
		return nil, fmt.Errorf("рейтинг трендов: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(files))
	for _, f := range files {
		score := scoring.Trending(f, now, window)
		if score <= 0 {
			continue
		}
		entries = append(entries, LeaderboardEntry{File: f, TrendingScore: score})
	}
	slices.SortStableFunc(entries, func(a, b LeaderboardEntry) int {
		if c := cmp.Compare(b.TrendingScore, a.TrendingScore); c != 0 {
			return c
		}
		return strings.Compare(a.File.ID, b.File.ID)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// Stats — сводная статистика по публичным файлам.
// «Сегодня» считается по календарной дате UTC.
func (s *LeaderboardService) Stats(ctx context.Context) (*Stats, error) {
	files, _, err := s.repo.Find(ctx, query.Spec{Predicate: query.Public(), Order: query.ByPopularity()})
	if err != nil {
		return nil, fmt.Errorf("статистика: %w", err)
	}

	st := &Stats{
		TotalPublicFiles:       len(files),
		MostPopularContentType: unknownContentTypeLabel,
		TopTags:                []TagCount{},
	}
	if len(files) == 0 {
		return st, nil
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	categoryScore := make(map[string]float64)
	var categories, tags []string
	var totalScore float64

	for _, f := range files {
		st.TotalDownloads += f.DownloadCount
		st.TotalViews += f.ViewCount
		totalScore += f.PopularityScore

		c := scoring.Category(f.ContentType)
		if _, ok := categoryScore[c]; !ok {
			categories = append(categories, c)
		}
		categoryScore[c] += f.PopularityScore
		tags = append(tags, f.Tags...)

		if !f.CreatedDate.UTC().Before(today) {
			st.FilesCreatedToday++
		}
		if f.LastAccessedDate != nil && !f.LastAccessedDate.UTC().Before(today) {
			st.FilesAccessedToday++
		}
	}
	st.AveragePopularityScore = totalScore / float64(len(files))

	best := -1.0
	for _, c := range categories {
		if categoryScore[c] > best {
			best = categoryScore[c]
			st.MostPopularContentType = c
		}
	}

	top, counts := scoring.TopTerms(tags, statsTopTags)
	for _, t := range top {
		st.TopTags = append(st.TopTags, TagCount{Tag: t, Count: counts[t]})
	}
	return st, nil
}

// Recommended — персональные рекомендации среди чужих доступных файлов.
// Профиль интересов и пул кандидатов загружаются параллельно.
func (s *LeaderboardService) Recommended(ctx context.Context, caller model.Caller, limit int) ([]*model.FileRecord, error) {
	limit = clampLimit(limit, defaultBoardLimit)

	var own, candidates []*model.FileRecord
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		own, _, err = s.repo.Find(gctx, query.Spec{
			Predicate: query.Own(caller.ID),
			Order:     query.Order{{Key: query.SortCreatedDate, Desc: true}},
			Limit:     s.recommendPool,
		})
		return err
	})
	g.Go(func() error {
		var err error
		candidates, _, err = s.repo.Find(gctx, query.Spec{
			Predicate: query.Predicate{
				Access: &query.Access{
					CallerID:      caller.ID,
					CallerEmail:   caller.Email,
					IncludePublic: true,
					IncludeShared: true,
				},
				ExcludeOwnerID: caller.ID,
			},
			Order: query.ByPopularity(),
			Limit: s.recommendPool,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("рекомендации: %w", err)
	}

	profile := scoring.BuildProfile(own)
	type scored struct {
		file  *model.FileRecord
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, scored{file: c, score: scoring.Recommendation(c, profile)})
	}
	slices.SortStableFunc(ranked, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return strings.Compare(a.file.ID, b.file.ID)
	})

	out := make([]*model.FileRecord, 0, min(limit, len(ranked)))
	for _, r := range ranked[:min(limit, len(ranked))] {
		out = append(out, r.file)
	}

	s.logger.Debug("Рекомендации построены",
		slog.String("caller_id", caller.ID),
		slog.Int("own", len(own)),
		slog.Int("candidates", len(candidates)),
		slog.Int("returned", len(out)),
	)
	return out, nil
}

// rank нумерует файлы рейтинга с 1.
func rank(files []*model.FileRecord) []LeaderboardEntry {
	out := make([]LeaderboardEntry, len(files))
	for i, f := range files {
		out[i] = LeaderboardEntry{Rank: i + 1, File: f}
	}
	return out
}

// clampLimit: <= 0 — значение по умолчанию, не больше maxBoardLimit.
func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, maxBoardLimit)
}
