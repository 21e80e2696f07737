// Package credentials keeps the YouTube and LLM API keys, persisted through the
// store and applied to the engine as soon as they change.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/anatolykoptev/go_highlight/internal/engine"
	"github.com/anatolykoptev/go_highlight/internal/engine/store"
)

// Secret names in the store.
const (
	YouTubeKeyName = "youtube_api_key"
	LLMKeyName     = "openai_api_key"
)

var (
	ErrEmptyYouTubeKey = errors.New("Please enter a YouTube API key") //nolint:staticcheck // user-facing text
	ErrEmptyLLMKey     = errors.New("Please enter an OpenAI API key") //nolint:staticcheck // user-facing text
)

// SecretStore is the slice of store.Store credentials need.
type SecretStore interface {
	GetSecret(ctx context.Context, name string) (string, error)
	SetSecret(ctx context.Context, name, value string) error
}

// Manager holds the current keys. The zero value is not usable; call New.
type Manager struct {
	store SecretStore

	mu      sync.RWMutex
	youtube string
	llm     string
}

// New returns a Manager seeded with keys from the environment. Stored keys
// loaded later take precedence.
func New(s SecretStore, envYouTubeKey, envLLMKey string) *Manager {
	return &Manager{
		store:   s,
		youtube: strings.TrimSpace(envYouTubeKey),
		llm:     strings.TrimSpace(envLLMKey),
	}
}

// Load reads saved keys. An environment key is written to the store when the
// store has none, so it survives later env changes. Errors are logged only.
func (m *Manager) Load(ctx context.Context) {
	m.mu.Lock()
	m.youtube = m.loadOne(ctx, YouTubeKeyName, m.youtube)
	m.llm = m.loadOne(ctx, LLMKeyName, m.llm)
	youtube, llm := m.youtube, m.llm
	m.mu.Unlock()

	engine.SetYouTubeKey(youtube)
	engine.SetLLMKey(llm)
	slog.Info("credentials: loaded",
		slog.Bool("youtube", youtube != ""), slog.Bool("llm", llm != ""))
}

func (m *Manager) loadOne(ctx context.Context, name, fromEnv string) string {
	saved, err := m.store.GetSecret(ctx, name)
	switch {
	case err == nil && saved != "":
		return saved
	case err != nil && !errors.Is(err, store.ErrNotFound):
		slog.Warn("credentials: load failed", slog.String("name", name), slog.Any("error", err))
		return fromEnv
	}
	if fromEnv != "" {
		if err := m.store.SetSecret(ctx, name, fromEnv); err != nil {
			slog.Warn("credentials: seed from env failed", slog.String("name", name), slog.Any("error", err))
		}
	}
	return fromEnv
}

// SaveYouTubeAPIKey persists key and switches metadata lookups to it.
func (m *Manager) SaveYouTubeAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyYouTubeKey
	}
	if err := m.save(ctx, YouTubeKeyName, key); err != nil {
		return err
	}
	m.mu.Lock()
	m.youtube = key
	m.mu.Unlock()
	engine.SetYouTubeKey(key)
	return nil
}

// SaveLLMAPIKey persists key and rebuilds the LLM client with it.
func (m *Manager) SaveLLMAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyLLMKey
	}
	if err := m.save(ctx, LLMKeyName, key); err != nil {
		return err
	}
	m.mu.Lock()
	m.llm = key
	m.mu.Unlock()
	engine.SetLLMKey(key)
	return nil
}

func (m *Manager) save(ctx context.Context, name, key string) error {
	if err := m.store.SetSecret(ctx, name, key); err != nil {
		slog.Error("credentials: save failed", slog.String("name", name), slog.Any("error", err))
		return fmt.Errorf("save %s: %w", name, err)
	}
	slog.Info("credentials: saved", slog.String("name", name), slog.String("key", Mask(key)))
	return nil
}

func (m *Manager) YouTubeAPIKey() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.youtube
}

func (m *Manager) LLMAPIKey() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.llm
}

func (m *Manager) HasYouTubeAPIKey() bool { return m.YouTubeAPIKey() != "" }

func (m *Manager) HasLLMAPIKey() bool { return m.LLMAPIKey() != "" }

// KeyStatus describes one key without revealing it.
type KeyStatus struct {
	Configured bool   `json:"configured"`
	Masked     string `json:"masked,omitempty"`
}

// Status is what the settings view shows.
type Status struct {
	YouTube KeyStatus `json:"youtube_api_key"`
	LLM     KeyStatus `json:"openai_api_key"`
}

func (m *Manager) Status() Status {
	return Status{
		YouTube: keyStatus(m.YouTubeAPIKey()),
		LLM:     keyStatus(m.LLMAPIKey()),
	}
}

func keyStatus(key string) KeyStatus {
	if key == "" {
		return KeyStatus{}
	}
	return KeyStatus{Configured: true, Masked: Mask(key)}
}

// Mask keeps the first and last four characters of key. Short keys are fully hidden.
func Mask(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
