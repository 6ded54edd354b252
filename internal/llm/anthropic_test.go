package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newAnthropicTestServer(t *testing.T, status int, body any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") == "" {
			t.Error("missing x-api-key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("missing anthropic-version header")
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func TestAnthropicProvider_Complete(t *testing.T) {
	server := newAnthropicTestServer(t, http.StatusOK, map[string]any{
		"model": "claude-3-5-sonnet-20241022",
		"content": []map[string]string{
			{"type": "text", "text": `[{"status":"verified"}]`},
		},
		"usage": map[string]int{"input_tokens": 100, "output_tokens": 20},
	})
	defer server.Close()

	p, err := NewAnthropicProvider(Config{APIKey: "sk-ant-test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := p.Complete(context.Background(), Request{Prompt: "check these"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != `[{"status":"verified"}]` {
		t.Errorf("unexpected text: %q", resp.Text)
	}
	if resp.TokensUsed != 120 {
		t.Errorf("expected 120 tokens, got %d", resp.TokensUsed)
	}
}

func TestAnthropicProvider_UpstreamError(t *testing.T) {
	server := newAnthropicTestServer(t, http.StatusTooManyRequests, map[string]any{
		"type": "error",
		"error": map[string]string{
			"type":    "rate_limit_error",
			"message": "rate limited",
		},
	})
	defer server.Close()

	p, err := NewAnthropicProvider(Config{APIKey: "sk-ant-test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = p.Complete(context.Background(), Request{Prompt: "check"})
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upErr.Code != http.StatusTooManyRequests {
		t.Errorf("expected code 429, got %d", upErr.Code)
	}
	if !upErr.Retryable() {
		t.Error("429 should be retryable")
	}
}

func TestAnthropicProvider_RequiresKey(t *testing.T) {
	if _, err := NewAnthropicProvider(Config{}); err == nil {
		t.Error("expected error for missing API key")
	}
}
