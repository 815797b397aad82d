// gemini.go — коллаборатор на Google Gemini (google.golang.org/genai).
package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

const geminiDefaultModel = "gemini-2.5-flash"

// Gemini — Completer поверх Gemini API.
// Клиент создаётся лениво при первом запросе.
type Gemini struct {
	apiKey string
	model  string

	once    sync.Once
	client  *genai.Client
	initErr error
}

// NewGemini создаёт адаптер Gemini.
func NewGemini(apiKey, model string) *Gemini {
	if model == "" {
		model = geminiDefaultModel
	}
	return &Gemini{apiKey: apiKey, model: model}
}

func (g *Gemini) ensureClient(ctx context.Context) error {
	g.once.Do(func() {
		g.client, g.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	return g.initErr
}

// Complete отправляет промпт и возвращает текст первого кандидата.
func (g *Gemini) Complete(ctx context.Context, prompt string) (result string, err error) {
	start := time.Now()
	defer func() { observe(ProviderGemini, start, err) }()

	if err := g.ensureClient(ctx); err != nil {
		return "", fmt.Errorf("gemini: инициализация клиента: %w", err)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
