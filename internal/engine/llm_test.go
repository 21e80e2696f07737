package engine

import (
	"context"
	"errors"
	"testing"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"whitespace", "  \n{\"a\":1}\n ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFences(tt.raw); got != tt.want {
				t.Errorf("stripFences() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{
			name:   "bare object",
			raw:    `{"highlights": []}`,
			want:   `{"highlights": []}`,
			wantOK: true,
		},
		{
			name:   "wrapped in prose",
			raw:    "Sure! Here you go:\n{\"summary\": \"x\"}\nHope this helps.",
			want:   `{"summary": "x"}`,
			wantOK: true,
		},
		{
			name:   "nested objects kept",
			raw:    `x {"a": {"b": 1}} y`,
			want:   `{"a": {"b": 1}}`,
			wantOK: true,
		},
		{
			name:   "no braces",
			raw:    "I cannot analyze this video.",
			wantOK: false,
		},
		{
			name:   "closing before opening",
			raw:    "} oops {",
			wantOK: false,
		},
		{
			name:   "empty",
			raw:    "",
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("ExtractJSONObject() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ExtractJSONObject() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCallLLMNotConfigured(t *testing.T) {
	Init(Config{})
	_, err := CallLLM(context.Background(), "", "hello", 0, 0)
	if !errors.Is(err, ErrLLMNotConfigured) {
		t.Errorf("CallLLM() error = %v, want ErrLLMNotConfigured", err)
	}
	if (LLMCompleter{}).Configured() {
		t.Error("LLMCompleter.Configured() = true with no key")
	}
}
