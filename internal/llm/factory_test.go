package llm

import "testing"

func TestNewProvider_OpenAI(t *testing.T) {
	p, err := NewProvider(Config{Provider: "openai", APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "openai" {
		t.Errorf("expected openai, got %s", p.Name())
	}
}

func TestNewProvider_OpenAI_MissingKey(t *testing.T) {
	if _, err := NewProvider(Config{Provider: "openai"}); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestNewProvider_Anthropic(t *testing.T) {
	p, err := NewProvider(Config{Provider: "anthropic", APIKey: "sk-ant-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "anthropic" {
		t.Errorf("expected anthropic, got %s", p.Name())
	}

	// "claude" is an alias
	p2, err := NewProvider(Config{Provider: "claude", APIKey: "sk-ant-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p2.Name() != "anthropic" {
		t.Errorf("expected anthropic for alias, got %s", p2.Name())
	}
}

func TestNewProvider_CLIDefault(t *testing.T) {
	p, err := NewProvider(Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "cli" {
		t.Errorf("expected cli default, got %s", p.Name())
	}
}

func TestNewProvider_Unknown(t *testing.T) {
	if _, err := NewProvider(Config{Provider: "bard"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestUpstreamError_Retryable(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{429, true},
		{500, true},
		{503, true},
		{0, true}, // network-level failure
		{400, false},
		{401, false},
		{404, false},
	}
	for _, tt := range tests {
		e := &UpstreamError{Provider: "test", Code: tt.code}
		if got := e.Retryable(); got != tt.want {
			t.Errorf("code %d: retryable = %v, want %v", tt.code, got, tt.want)
		}
	}
}
