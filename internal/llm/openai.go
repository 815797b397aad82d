// openai.go — коллаборатор для OpenAI Chat Completions API
// и совместимых с ним серверов (Ollama, LM Studio, vLLM).
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	openaiDefaultBaseURL = "https://api.openai.com/v1"
	openaiDefaultModel   = "gpt-4o-mini"
	// openaiMaxResponse — ограничение размера тела ответа
	openaiMaxResponse = 4 << 20
)

// OpenAIOption — опция адаптера OpenAI.
type OpenAIOption func(*OpenAI)

// WithBaseURL задаёт базовый URL API (пустая строка игнорируется).
func WithBaseURL(url string) OpenAIOption {
	return func(o *OpenAI) {
		if url != "" {
			o.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithTimeout задаёт таймаут HTTP-клиента (0 игнорируется).
func WithTimeout(d time.Duration) OpenAIOption {
	return func(o *OpenAI) {
		if d > 0 {
			o.client = &http.Client{Timeout: d}
		}
	}
}

// WithHTTPClient задаёт HTTP-клиент.
func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(o *OpenAI) { o.client = c }
}

// OpenAI — Completer поверх /chat/completions.
type OpenAI struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAI создаёт адаптер OpenAI.
func NewOpenAI(apiKey, model string, opts ...OpenAIOption) *OpenAI {
	if model == "" {
		model = openaiDefaultModel
	}
	o := &OpenAI{
		apiKey:  apiKey,
		model:   model,
		baseURL: openaiDefaultBaseURL,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete отправляет промпт как единственное user-сообщение.
func (o *OpenAI) Complete(ctx context.Context, prompt string) (result string, err error) {
	start := time.Now()
	defer func() { observe(ProviderOpenAI, start, err) }()

	encoded, err := json.Marshal(chatRequest{
		Model:    o.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("openai: сериализация запроса: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("openai: создание запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai: HTTP-запрос: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, openaiMaxResponse))
	if err != nil {
		return "", fmt.Errorf("openai: чтение ответа: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai: статус %d: %s", resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("openai: разбор ответа: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
