// handler.go — основной обработчик HTTP API share-module.
// Разбирает запросы, вызывает сервисный слой и переводит его ошибки
// в единый формат ответов.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/goartstore/share-module/internal/api/errors"
	"github.com/bigkaa/goartstore/share-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/share-module/internal/blobstore"
	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
	"github.com/bigkaa/goartstore/share-module/internal/service"
)

// BlobResolver — хранилище, которое само обслуживает подписанные ссылки
// (локальный каталог). Для MinIO не задаётся: ссылки ведут в MinIO.
type BlobResolver interface {
	Resolve(token string) (*blobstore.ResolvedBlob, error)
	Get(ctx context.Context, container, name string) (io.ReadCloser, error)
}

// APIHandler — обработчик API share-module.
type APIHandler struct {
	health      *HealthHandler
	files       *service.FileService
	search      *service.SearchService
	leaderboard *service.LeaderboardService
	blobs       BlobResolver
	// maxUploadSize — ограничение тела multipart-запроса (0 = без ограничения)
	maxUploadSize int64
	logger        *slog.Logger
}

// NewAPIHandler создаёт обработчик API. blobs может быть nil.
func NewAPIHandler(
	health *HealthHandler,
	files *service.FileService,
	search *service.SearchService,
	leaderboard *service.LeaderboardService,
	blobs BlobResolver,
	maxUploadSize int64,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:        health,
		files:         files,
		search:        search,
		leaderboard:   leaderboard,
		blobs:         blobs,
		maxUploadSize: maxUploadSize,
		logger:        logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError переводит ошибку сервиса в HTTP-ответ.
// Непредвиденные ошибки логируются и скрываются от клиента.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, "Нет доступа к файлу")
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Файл не найден")
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, "Файл изменён параллельным запросом, повторите операцию")
	case errors.Is(err, service.ErrContentMissing):
		h.logger.Warn("Содержимое файла отсутствует в хранилище",
			slog.String("operation", op),
			slog.String("path", r.URL.Path),
		)
		apierrors.NotFound(w, "Содержимое файла не найдено")
	default:
		h.logger.Error("Ошибка обработки запроса",
			slog.String("operation", op),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка: "+op)
	}
}

// caller возвращает аутентифицированного пользователя или пишет 401.
func caller(w http.ResponseWriter, r *http.Request) (model.Caller, bool) {
	c, ok := middleware.CallerFromContext(r.Context())
	if !ok || c.ID == "" {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return model.Caller{}, false
	}
	return c, true
}

// pathID извлекает идентификатор из пути.
func pathID(r *http.Request, name string) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		return "", fmt.Errorf("параметр %s: %w", name, err)
	}
	return id, nil
}

// queryInt читает необязательный целочисленный query-параметр.
func queryInt(r *http.Request, name string, def int) (int, error) {
	var v *int
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		return 0, fmt.Errorf("параметр %s: %w", name, err)
	}
	if v == nil {
		return def, nil
	}
	return *v, nil
}

// queryString читает необязательный строковый query-параметр.
func queryString(r *http.Request, name string) (string, error) {
	var v *string
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		return "", fmt.Errorf("параметр %s: %w", name, err)
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

// queryInts читает несколько целочисленных параметров; при первой
// ошибке пишет 400 и возвращает false.
func queryInts(w http.ResponseWriter, r *http.Request, names []string, defs []int) ([]int, bool) {
	out := make([]int, len(names))
	for i, name := range names {
		v, err := queryInt(r, name, defs[i])
		if err != nil {
			apierrors.ValidationError(w, err.Error())
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// decodeJSON разбирает тело запроса. Пустое тело допускается.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return false
	}
	return true
}
