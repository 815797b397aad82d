// routes.go — таблица маршрутов API.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// HandlerFromMux регистрирует маршруты API на router.
// auth применяется ко всем маршрутам, кроме health, метрик, публичных
// списков и рейтингов и подписанных ссылок.
func HandlerFromMux(h *APIHandler, router chi.Router, auth func(http.Handler) http.Handler) {
	router.Get("/health/live", h.HealthLive)
	router.Get("/health/ready", h.HealthReady)
	router.Get("/metrics", h.GetMetrics)

	router.Route("/api/v1", func(r chi.Router) {
		// --- Без аутентификации ---
		r.Get("/files/public", h.ListPublicFiles)
		r.Get("/blobs/{token}", h.ServeBlob)
		r.Get("/search/trending", h.TrendingSearches)
		r.Get("/leaderboard/popular", h.PopularFiles)
		r.Get("/leaderboard/most-downloaded", h.MostDownloaded)
		r.Get("/leaderboard/recent-popular", h.RecentPopular)
		r.Get("/leaderboard/by-category", h.ByCategory)
		r.Get("/leaderboard/trending", h.TrendingFiles)
		r.Get("/leaderboard/stats", h.LeaderboardStats)

		// --- С аутентификацией ---
		r.Group(func(r chi.Router) {
			if auth != nil {
				r.Use(auth)
			}

			r.Post("/files", h.UploadFile)
			r.Get("/files", h.ListMyFiles)
			r.Get("/files/shared", h.ListSharedFiles)
			r.Post("/files/search", h.SearchFiles)
			r.Get("/files/{id}", h.GetFile)
			r.Put("/files/{id}", h.UpdateFile)
			r.Delete("/files/{id}", h.DeleteFile)
			r.Get("/files/{id}/download", h.DownloadFile)
			r.Get("/files/{id}/url", h.GetFileURL)
			r.Post("/files/{id}/share", h.ShareFile)
			r.Post("/files/{id}/archive", h.ArchiveFile)
			r.Post("/files/{id}/unarchive", h.UnarchiveFile)

			r.Get("/leaderboard/recommended", h.Recommended)

			r.Post("/search/semantic", h.SemanticSearch)
			r.Get("/search/suggestions", h.SearchSuggestions)
			r.Get("/search/similar/{id}", h.SimilarFiles)
			r.Post("/search/analyze", h.AnalyzeFile)
		})
	})
}
