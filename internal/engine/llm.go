package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/anatolykoptev/go-kit/llm"
)

// ErrLLMNotConfigured is returned when no LLM API key has been set.
var ErrLLMNotConfigured = errors.New("llm: api key not configured")

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// CallLLM sends a system + user prompt with explicit sampling settings.
// Zero temperature or maxTokens fall back to the configured values.
func CallLLM(ctx context.Context, system, prompt string, temperature float64, maxTokens int) (string, error) {
	client := currentLLMClient()
	if client == nil || !HasLLMKey() {
		return "", ErrLLMNotConfigured
	}
	if temperature == 0 {
		temperature = cfg.LLMTemperature
	}
	if maxTokens == 0 {
		maxTokens = cfg.LLMMaxTokens
	}
	if err := llmLimiter.Wait(ctx); err != nil {
		return "", err
	}

	metrics.LLMCalls.Add(1)
	resp, err := client.Complete(ctx, system, prompt,
		llm.WithChatTemperature(temperature),
		llm.WithChatMaxTokens(maxTokens),
	)
	if err != nil {
		metrics.LLMErrors.Add(1)
		return "", err
	}
	return stripFences(resp), nil
}

// LLMCompleter adapts CallLLM to the single-method interface used by analyzers.
type LLMCompleter struct {
	Temperature float64
	MaxTokens   int
}

// Complete calls the configured LLM.
func (c LLMCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	return CallLLM(ctx, system, prompt, c.Temperature, c.MaxTokens)
}

// Configured reports whether an LLM key is available.
func (c LLMCompleter) Configured() bool {
	return HasLLMKey()
}

// ExtractJSONObject returns the span from the first '{' to the last '}' in raw.
// Models often wrap JSON in prose; the greedy span keeps nested objects intact.
func ExtractJSONObject(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return "", false
	}
	return raw[start : end+1], true
}
