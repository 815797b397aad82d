package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// --- Тесты ParseStringArray ---

// TestParseStringArray проверяет разбор разных форм ответа модели.
func TestParseStringArray(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"голый массив", `["a","b"]`, []string{"a", "b"}},
		{"с пробелами", "  \n[\"a\"]\n ", []string{"a"}},
		{"markdown", "```json\n[\"x\", \"y\"]\n```", []string{"x", "y"}},
		{"с пояснением", `Here are the results: ["id-1", "id-2"], hope this helps`, []string{"id-1", "id-2"}},
		{"пустой массив", `[]`, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStringArray(tt.in)
			if err != nil {
				t.Fatalf("ParseStringArray: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got = %v, ожидалось %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got[%d] = %q, ожидалось %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// TestParseStringArray_Errors проверяет ошибки разбора.
func TestParseStringArray_Errors(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"", ErrEmptyResponse},
		{"no brackets here", ErrNoJSONArray},
		{"] reversed [", ErrNoJSONArray},
		{"[1, 2, 3]", ErrNoJSONArray},
		{"prefix [\"broken\" suffix]", ErrNoJSONArray},
	}
	for _, tt := range tests {
		if _, err := ParseStringArray(tt.in); !errors.Is(err, tt.want) {
			t.Errorf("ParseStringArray(%q) error = %v, ожидалась %v", tt.in, err, tt.want)
		}
	}
}

// --- Тесты New ---

// TestNew_Providers проверяет выбор провайдера.
func TestNew_Providers(t *testing.T) {
	c, err := New(Config{Provider: "none"})
	if err != nil || c != nil {
		t.Errorf("none: (%v, %v), ожидалось (nil, nil)", c, err)
	}
	if c, _ := New(Config{Provider: "OpenAI"}); c == nil {
		t.Error("openai: ожидался коллаборатор")
	}
	if c, _ := New(Config{Provider: "gemini", APIKey: "k"}); c == nil {
		t.Error("gemini: ожидался коллаборатор")
	}
	if _, err := New(Config{Provider: "unknown"}); err == nil {
		t.Error("ожидалась ошибка для неизвестного провайдера")
	}
}

// --- Тесты OpenAI ---

// TestOpenAI_Complete проверяет формирование запроса и разбор ответа.
func TestOpenAI_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q, ожидался /v1/chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		if req.Model != "test-model" || len(req.Messages) != 1 || req.Messages[0].Content != "hello" {
			t.Errorf("запрос = %+v", req)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  [\"1\"]  "}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAI("secret", "test-model", WithBaseURL(srv.URL+"/v1/"), WithTimeout(5*time.Second))
	got, err := c.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != `["1"]` {
		t.Errorf("Complete = %q, ожидалось [\"1\"]", got)
	}
}

// TestOpenAI_Errors проверяет ошибки статуса и пустого ответа.
func TestOpenAI_Errors(t *testing.T) {
	status := http.StatusInternalServerError
	body := `{"error":"boom"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewOpenAI("", "", WithBaseURL(srv.URL))
	if _, err := c.Complete(context.Background(), "x"); err == nil {
		t.Error("ожидалась ошибка для статуса 500")
	}

	status = http.StatusOK
	body = `{"choices":[]}`
	if _, err := c.Complete(context.Background(), "x"); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("error = %v, ожидалась ErrEmptyResponse", err)
	}
}

// TestOpenAI_ContextCancel проверяет прерывание по контексту.
func TestOpenAI_ContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewOpenAI("", "", WithBaseURL(srv.URL))
	if _, err := c.Complete(ctx, "x"); err == nil {
		t.Error("ожидалась ошибка по таймауту контекста")
	}
}
