// leaderboard.go — обработчики /api/v1/leaderboard. Рейтинги и статистика
// доступны без аутентификации, рекомендации строятся для вызывающего.
package handlers

import (
	"net/http"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
	"github.com/bigkaa/goartstore/share-module/internal/service"
)

// PopularFiles — GET /api/v1/leaderboard/popular?limit=N.
func (h *APIHandler) PopularFiles(w http.ResponseWriter, r *http.Request) {
	p, ok := queryInts(w, r, []string{"limit"}, []int{0})
	if !ok {
		return
	}
	entries, err := h.leaderboard.Popular(r.Context(), p[0])
	h.writeLeaderboard(w, r, entries, err, "рейтинг популярных")
}

// MostDownloaded — GET /api/v1/leaderboard/most-downloaded?limit=N.
func (h *APIHandler) MostDownloaded(w http.ResponseWriter, r *http.Request) {
	p, ok := queryInts(w, r, []string{"limit"}, []int{0})
	if !ok {
		return
	}
	entries, err := h.leaderboard.MostDownloaded(r.Context(), p[0])
	h.writeLeaderboard(w, r, entries, err, "рейтинг скачиваний")
}

// RecentPopular — GET /api/v1/leaderboard/recent-popular?days=N&limit=N.
func (h *APIHandler) RecentPopular(w http.ResponseWriter, r *http.Request) {
	p, ok := queryInts(w, r, []string{"days", "limit"}, []int{0, 0})
	if !ok {
		return
	}
	entries, err := h.leaderboard.RecentPopular(r.Context(), p[0], p[1])
	h.writeLeaderboard(w, r, entries, err, "рейтинг недавних")
}

// TrendingFiles — GET /api/v1/leaderboard/trending?hours=N&limit=N.
func (h *APIHandler) TrendingFiles(w http.ResponseWriter, r *http.Request) {
	p, ok := queryInts(w, r, []string{"hours", "limit"}, []int{0, 0})
	if !ok {
		return
	}
	entries, err := h.leaderboard.Trending(r.Context(), p[0], p[1])
	h.writeLeaderboard(w, r, entries, err, "трендовый рейтинг")
}

func (h *APIHandler) writeLeaderboard(w http.ResponseWriter, r *http.Request, entries []service.LeaderboardEntry, err error, op string) {
	if err != nil {
		h.writeServiceError(w, r, err, op)
		return
	}
	writeJSON(w, http.StatusOK, toLeaderboard(entries))
}

// ByCategory — GET /api/v1/leaderboard/by-category?limit=N.
func (h *APIHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	p, ok := queryInts(w, r, []string{"limit"}, []int{0})
	if !ok {
		return
	}
	boards, err := h.leaderboard.ByCategory(r.Context(), p[0])
	if err != nil {
		h.writeServiceError(w, r, err, "рейтинг по категориям")
		return
	}
	out := make([]categoryBoardResponse, 0, len(boards))
	for _, b := range boards {
		out = append(out, categoryBoardResponse{
			Category:   b.Category,
			TotalScore: b.TotalScore,
			Files:      toLeaderboard(b.Entries),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// LeaderboardStats — GET /api/v1/leaderboard/stats.
func (h *APIHandler) LeaderboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.leaderboard.Stats(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "статистика")
		return
	}
	writeJSON(w, http.StatusOK, toStatsResponse(stats))
}

// Recommended — GET /api/v1/leaderboard/recommended?limit=N.
func (h *APIHandler) Recommended(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	p, ok := queryInts(w, r, []string{"limit"}, []int{0})
	if !ok {
		return
	}
	files, err := h.leaderboard.Recommended(r.Context(), c, p[0])
	if err != nil {
		h.writeServiceError(w, r, err, "рекомендации")
		return
	}
	writeJSON(w, http.StatusOK, toFileList(files, model.Caller{}))
}
