package credentials

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_highlight/internal/engine"
	"github.com/anatolykoptev/go_highlight/internal/engine/store"
)

type memSecrets struct {
	mu      sync.Mutex
	data    map[string]string
	failSet error
	failGet error
}

func newMemSecrets() *memSecrets { return &memSecrets{data: map[string]string{}} }

func (m *memSecrets) GetSecret(_ context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return "", m.failGet
	}
	v, ok := m.data[name]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (m *memSecrets) SetSecret(_ context.Context, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet != nil {
		return m.failSet
	}
	m.data[name] = value
	return nil
}

func resetEngine(t *testing.T) {
	t.Helper()
	engine.Init(engine.Config{LLMAPIBase: "http://127.0.0.1:1/v1", LLMModel: "test"})
}

func TestMask(t *testing.T) {
	assert.Equal(t, "****", Mask(""))
	assert.Equal(t, "****", Mask("12345678"))
	assert.Equal(t, "AIza...wxyz", Mask("AIzaSyB-abcdefwxyz"))
}

func TestLoadPrefersStoredKeys(t *testing.T) {
	resetEngine(t)
	secrets := newMemSecrets()
	secrets.data[YouTubeKeyName] = "stored-youtube-key"

	m := New(secrets, "env-youtube-key", "env-llm-key-123")
	m.Load(context.Background())

	assert.Equal(t, "stored-youtube-key", m.YouTubeAPIKey())
	assert.Equal(t, "env-llm-key-123", m.LLMAPIKey())
	// Env value seeds the empty slot.
	assert.Equal(t, "env-llm-key-123", secrets.data[LLMKeyName])
	assert.Equal(t, []string{"stored-youtube-key"}, engine.YouTubeKeys())
	assert.True(t, engine.HasLLMKey())
}

func TestLoadStoreErrorKeepsEnv(t *testing.T) {
	resetEngine(t)
	secrets := newMemSecrets()
	secrets.failGet = errors.New("disk gone")

	m := New(secrets, "env-youtube-key", "")
	m.Load(context.Background())

	assert.Equal(t, "env-youtube-key", m.YouTubeAPIKey())
	assert.False(t, m.HasLLMAPIKey())
	assert.False(t, engine.HasLLMKey())
}

func TestSaveAppliesLive(t *testing.T) {
	resetEngine(t)
	secrets := newMemSecrets()
	m := New(secrets, "", "")
	m.Load(context.Background())
	require.False(t, m.HasYouTubeAPIKey())

	require.NoError(t, m.SaveYouTubeAPIKey(context.Background(), "  yt-key-0001  "))
	require.NoError(t, m.SaveLLMAPIKey(context.Background(), "sk-test-0002"))

	assert.Equal(t, "yt-key-0001", secrets.data[YouTubeKeyName])
	assert.Equal(t, []string{"yt-key-0001"}, engine.YouTubeKeys())
	assert.True(t, engine.HasLLMKey())

	st := m.Status()
	assert.True(t, st.YouTube.Configured)
	assert.Equal(t, "yt-k...0001", st.YouTube.Masked)
	assert.Equal(t, "sk-t...0002", st.LLM.Masked)
}

func TestSaveRejectsBlank(t *testing.T) {
	m := New(newMemSecrets(), "", "")
	assert.ErrorIs(t, m.SaveYouTubeAPIKey(context.Background(), "   "), ErrEmptyYouTubeKey)
	assert.ErrorIs(t, m.SaveLLMAPIKey(context.Background(), ""), ErrEmptyLLMKey)
}

func TestSaveFailureKeepsOldKey(t *testing.T) {
	resetEngine(t)
	secrets := newMemSecrets()
	m := New(secrets, "old-youtube-key", "")
	secrets.failSet = errors.New("read-only")

	err := m.SaveYouTubeAPIKey(context.Background(), "new-youtube-key")
	require.Error(t, err)
	assert.Equal(t, "old-youtube-key", m.YouTubeAPIKey())
	assert.False(t, m.Status().LLM.Configured)
}
