// metrics.go — Prometheus HTTP метрики share-module.
// Лейбл path — шаблон маршрута chi, поэтому кардинальность ограничена.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fs_http_requests_total",
			Help: "Общее количество HTTP-запросов к share-module",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fs_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к share-module в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware собирает количество и длительность запросов по маршрутам.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			// Шаблон маршрута известен только после роутинга
			path := routePattern(r)
			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// routePattern возвращает шаблон маршрута chi или нормализованный путь.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return normalizePath(r.URL.Path)
}

// normalizePath заменяет идентификаторы в пути на {id}, а токены
// подписанных ссылок на {token}.
// /api/v1/files/a1b2.../download → /api/v1/files/{id}/download
func normalizePath(path string) string {
	const (
		filesPrefix = "/api/v1/files/"
		blobsPrefix = "/api/v1/blobs/"
	)
	switch {
	case strings.HasPrefix(path, blobsPrefix):
		return blobsPrefix + "{token}"
	case strings.HasPrefix(path, filesPrefix):
		rest := strings.TrimPrefix(path, filesPrefix)
		switch rest {
		case "public", "shared", "search":
			return path
		}
		if _, suffix, ok := strings.Cut(rest, "/"); ok {
			return filesPrefix + "{id}/" + suffix
		}
		return filesPrefix + "{id}"
	}
	return path
}
