package engine

import (
	"net/http"
	"sync"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
	"golang.org/x/time/rate"
)

// DefaultYouTubeAPIBase is the YouTube Data API v3 root.
const DefaultYouTubeAPIBase = "https://www.googleapis.com/youtube/v3"

// Config holds all engine configuration, injected from main.
type Config struct {
	YouTubeAPIKey             string
	YouTubeAPIKeyFallback     string
	YouTubeAPIBase            string
	YouTubeScrapeFallback     bool // scrape watch-page meta tags when no API key is set
	YouTubeTranscriptsEnabled bool
	TranscriptLangs           []string
	TranscriptMaxChars        int

	LLMAPIKey          string
	LLMAPIKeyFallbacks []string
	LLMAPIBase         string
	LLMModel           string
	LLMTemperature     float64
	LLMMaxTokens       int
	LLMRequestsPerMin  int // 0 = unlimited
	LLMClient          *llm.Client

	FetchTimeout         time.Duration
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	DataDir     string // sqlite database + default clip dir
	ClipDir     string
	DatabaseURL string // postgres; empty = sqlite in DataDir

	HTTPClient    *http.Client
	BrowserClient *BrowserClient // nil = plain HTTP for page scraping
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (sources, highlights, session).
// Always points to the current cfg value.
var Cfg = &cfg

var (
	llmLimiter *rate.Limiter
	keyMu      sync.RWMutex // guards the API keys and LLMClient after Init
)

// Init initializes the engine with the given configuration.
func Init(c Config) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if c.YouTubeAPIBase == "" {
		c.YouTubeAPIBase = DefaultYouTubeAPIBase
	}
	cfg = c
	Cfg = &cfg
	llmLimiter = newLLMLimiter(c.LLMRequestsPerMin)
}

// SetLLMKey swaps the LLM API key at runtime and rebuilds the client.
func SetLLMKey(key string) {
	keyMu.Lock()
	defer keyMu.Unlock()
	cfg.LLMAPIKey = key
	cfg.LLMClient = NewLLMClient(cfg)
}

// SetYouTubeKey swaps the YouTube Data API key at runtime.
func SetYouTubeKey(key string) {
	keyMu.Lock()
	cfg.YouTubeAPIKey = key
	keyMu.Unlock()
}

// HasLLMKey reports whether highlight inference can call the model.
func HasLLMKey() bool {
	keyMu.RLock()
	defer keyMu.RUnlock()
	return cfg.LLMAPIKey != "" && cfg.LLMClient != nil
}

// YouTubeKeys returns the configured Data API keys, primary first.
func YouTubeKeys() []string {
	keyMu.RLock()
	defer keyMu.RUnlock()
	var keys []string
	if cfg.YouTubeAPIKey != "" {
		keys = append(keys, cfg.YouTubeAPIKey)
	}
	if cfg.YouTubeAPIKeyFallback != "" && cfg.YouTubeAPIKeyFallback != cfg.YouTubeAPIKey {
		keys = append(keys, cfg.YouTubeAPIKeyFallback)
	}
	return keys
}

func currentLLMClient() *llm.Client {
	keyMu.RLock()
	defer keyMu.RUnlock()
	return cfg.LLMClient
}

// NewLLMClient builds the chat-completions client from c.
func NewLLMClient(c Config) *llm.Client {
	return llm.NewClient(c.LLMAPIBase, c.LLMAPIKey, c.LLMModel,
		llm.WithFallbackKeys(c.LLMAPIKeyFallbacks),
		llm.WithMaxTokens(c.LLMMaxTokens),
		llm.WithTemperature(c.LLMTemperature),
		llm.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
	)
}

func newLLMLimiter(perMin int) *rate.Limiter {
	if perMin <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), 1)
}
