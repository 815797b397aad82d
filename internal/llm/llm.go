// Пакет llm — адаптеры внешнего текстового AI-коллаборатора.
//
// Коллаборатор получает промпт и возвращает произвольный текст; разбор
// ответа выполняют вызывающие компоненты (ранжирование, ключевые слова,
// подсказки) с детерминированным fallback при любой ошибке.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Провайдеры.
const (
	ProviderNone   = "none"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// ErrEmptyResponse — коллаборатор вернул пустой ответ.
var ErrEmptyResponse = errors.New("пустой ответ AI")

// ErrNoJSONArray — в ответе не найден JSON-массив строк.
var ErrNoJSONArray = errors.New("JSON-массив не найден в ответе")

var requestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fs_llm_requests_total",
		Help: "Количество запросов к AI-коллаборатору",
	},
	[]string{"provider", "status"},
)

var requestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "fs_llm_request_duration_seconds",
		Help:    "Длительность запросов к AI-коллаборатору",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	},
	[]string{"provider"},
)

// Completer — текстовый коллаборатор: промпт → текст ответа.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config — параметры подключения к коллаборатору.
type Config struct {
	// Provider — none, gemini или openai
	Provider string
	// APIKey — ключ API
	APIKey string
	// Model — имя модели
	Model string
	// BaseURL — базовый URL OpenAI-совместимого API
	BaseURL string
	// Timeout — таймаут одного запроса
	Timeout time.Duration
}

// New создаёт коллаборатор по конфигурации.
// Для провайдера none возвращает (nil, nil): вызывающие используют fallback.
func New(cfg Config) (Completer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderNone:
		return nil, nil
	case ProviderGemini:
		return NewGemini(cfg.APIKey, cfg.Model), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg.APIKey, cfg.Model,
			WithBaseURL(cfg.BaseURL),
			WithTimeout(cfg.Timeout),
		), nil
	default:
		return nil, fmt.Errorf("неизвестный AI-провайдер %q", cfg.Provider)
	}
}

// observe записывает метрики запроса.
func observe(provider string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	requestsTotal.WithLabelValues(provider, status).Inc()
	requestDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}

// ParseStringArray разбирает ответ модели как JSON-массив строк.
// Принимает «голый» массив, массив в markdown-блоке ```json или массив,
// окружённый пояснительным текстом (от первой '[' до последней ']').
func ParseStringArray(text string) ([]string, error) {
	content := strings.TrimSpace(text)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyResponse
	}

	var out []string
	if err := json.Unmarshal([]byte(content), &out); err == nil {
		return out, nil
	}

	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, ErrNoJSONArray
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoJSONArray, err)
	}
	return out, nil
}
