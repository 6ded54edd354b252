package llm

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"
)

// CLIProvider invokes the claude CLI in --print mode. It is the default
// transport: no API key handling, and the CLI's own session auth applies.
type CLIProvider struct {
	binary string
	config Config
}

// NewCLIProvider creates a provider backed by the claude CLI binary
func NewCLIProvider(config Config) (*CLIProvider, error) {
	binary := config.BaseURL
	if binary == "" {
		binary = "claude"
	}
	return &CLIProvider{binary: binary, config: config}, nil
}

// Name returns the provider name
func (p *CLIProvider) Name() string {
	return "cli"
}

// IsAvailable checks that the CLI binary is on PATH
func (p *CLIProvider) IsAvailable(ctx context.Context) bool {
	_, err := exec.LookPath(p.binary)
	return err == nil
}

// Complete runs the CLI with the prompt on stdin and returns stdout
func (p *CLIProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		model = "opus"
	}

	timeout := time.Duration(p.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 300 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt := req.Prompt
	if req.System != "" {
		prompt = req.System + "\n\n" + prompt
	}

	cmd := exec.CommandContext(ctxWithTimeout, p.binary, "--print", "--model", model)
	cmd.Stdin = strings.NewReader(prompt)
	// The CLI authenticates via its own session; a stray API key in the
	// environment would silently switch it to metered API billing.
	cmd.Env = envWithout("ANTHROPIC_API_KEY")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxWithTimeout.Err() != nil {
			return nil, &UpstreamError{Provider: "cli", Code: 0, Message: "call timed out"}
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		code := 1
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
		return nil, &UpstreamError{Provider: "cli", Code: code, Message: msg}
	}

	return &Response{
		Text:  strings.TrimSpace(stdout.String()),
		Model: model,
	}, nil
}

func envWithout(keys ...string) []string {
	env := os.Environ()
	out := env[:0]
	for _, kv := range env {
		drop := false
		for _, key := range keys {
			if strings.HasPrefix(kv, key+"=") {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, kv)
		}
	}
	return out
}
