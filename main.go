// go_highlight: YouTube highlight finder MCP server.
//
// Takes pasted YouTube links, fetches their metadata, asks an LLM for 3-5
// shareable moments per video (evenly spaced segments when no key is set) and
// exports clip placeholders. Runs as an HTTP MCP server, or one-shot via
// `go_highlight analyze <url>...`.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/proxypool"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_highlight/internal/engine"
	"github.com/anatolykoptev/go_highlight/internal/engine/clips"
	"github.com/anatolykoptev/go_highlight/internal/engine/credentials"
	"github.com/anatolykoptev/go_highlight/internal/engine/highlights"
	"github.com/anatolykoptev/go_highlight/internal/engine/session"
	"github.com/anatolykoptev/go_highlight/internal/engine/sources"
	"github.com/anatolykoptev/go_highlight/internal/engine/store"
	"github.com/anatolykoptev/go_highlight/internal/highlightserver"
	"github.com/anatolykoptev/go_highlight/internal/toolutil"
)

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8893")
)

type app struct {
	store    store.Store
	creds    *credentials.Manager
	analyzer *highlights.Analyzer
	sessions *session.Manager
	clips    *clips.Exporter

	fetchTranscript func(ctx context.Context, id string) (string, error)
	transcriptFor   func(ctx context.Context, id string, langs []string) (string, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		slog.Error("startup failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer a.store.Close()

	if len(os.Args) > 1 && os.Args[1] == "analyze" {
		if err := a.analyze(ctx, os.Args[2:], os.Stdin, os.Stdout); err != nil {
			slog.Error("analyze failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	slog.Info("starting go_highlight",
		slog.String("port", mcpPort),
		slog.Bool("llm", engine.HasLLMKey()),
		slog.Bool("youtube_key", a.creds.HasYouTubeAPIKey()),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_highlight",
		Version: version,
	}, nil)

	highlightserver.RegisterTools(server, highlightserver.Deps{
		Sessions:        a.sessions,
		Analyzer:        a.analyzer,
		Clips:           a.clips,
		Credentials:     a.creds,
		FetchTranscript: a.transcriptFor,
	})
	slog.Info("tools registered", slog.Int("count", 13))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_highlight",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 600 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func setup(ctx context.Context) (*app, error) {
	c := loadConfig()
	engine.Init(c)

	cacheTTL := env.Duration("CACHE_TTL", 6*time.Hour)
	engine.InitCache(env.Str("REDIS_URL", ""), cacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)
	engine.SetCacheTTL(engine.CacheKindTranscript, env.Duration("CACHE_TRANSCRIPT_TTL", 24*time.Hour))
	engine.SetCacheTTL(engine.CacheKindAnalysis, env.Duration("CACHE_ANALYSIS_TTL", 7*24*time.Hour))

	st, err := store.Open(ctx, c.DatabaseURL, filepath.Join(c.DataDir, "highlight.db"))
	if err != nil {
		return nil, err
	}

	creds := credentials.New(st, c.YouTubeAPIKey, c.LLMAPIKey)
	creds.Load(ctx)

	a := &app{
		store:    st,
		creds:    creds,
		analyzer: highlights.NewAnalyzer(engine.LLMCompleter{}),
		clips:    clips.NewExporter(c.ClipDir, clips.NewOpenSharer()),
	}
	if c.YouTubeTranscriptsEnabled {
		langs := c.TranscriptLangs
		a.transcriptFor = sources.FetchYouTubeTranscript
		a.fetchTranscript = func(ctx context.Context, id string) (string, error) {
			return sources.FetchYouTubeTranscript(ctx, id, langs)
		}
	}
	a.sessions = session.NewManager(ctx, session.Deps{
		Analyzer:        a.analyzer,
		Store:           st,
		FetchTranscript: a.fetchTranscript,
	})
	return a, nil
}

func loadConfig() engine.Config {
	dataDir := env.Str("DATA_DIR", defaultDataDir())
	c := engine.Config{
		YouTubeAPIKey:             env.Str("YOUTUBE_API_KEY", ""),
		YouTubeAPIKeyFallback:     env.Str("YOUTUBE_API_KEY_FALLBACK", ""),
		YouTubeAPIBase:            env.Str("YOUTUBE_API_BASE", engine.DefaultYouTubeAPIBase),
		YouTubeScrapeFallback:     envBool("YOUTUBE_SCRAPE_FALLBACK"),
		YouTubeTranscriptsEnabled: envBool("YOUTUBE_TRANSCRIPTS"),
		TranscriptLangs:           toolutil.NormLangs(env.List("TRANSCRIPT_LANGS", "en"), []string{"en"}),
		TranscriptMaxChars:        env.Int("TRANSCRIPT_MAX_CHARS", 12000),
		LLMAPIKey:                 env.Str("LLM_API_KEY", env.Str("OPENAI_API_KEY", "")),
		LLMAPIKeyFallbacks:        env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:                env.Str("LLM_API_BASE", "https://api.openai.com/v1"),
		LLMModel:                  env.Str("LLM_MODEL", "gpt-3.5-turbo"),
		LLMTemperature:            env.Float("LLM_TEMPERATURE", 0.7),
		LLMMaxTokens:              env.Int("LLM_MAX_TOKENS", 1500),
		LLMRequestsPerMin:         env.Int("LLM_REQUESTS_PER_MIN", 0),
		FetchTimeout:              env.Duration("FETCH_TIMEOUT", 10*time.Second),
		CacheMaxEntries:           env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval:      env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
		DataDir:                   dataDir,
		ClipDir:                   env.Str("CLIP_DIR", filepath.Join(dataDir, "clips")),
		DatabaseURL:               env.Str("DATABASE_URL", ""),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}

	opts := []stealth.ClientOption{stealth.WithTimeout(15)}
	if apiKey := env.Str("WEBSHARE_API_KEY", ""); apiKey != "" {
		pool, err := proxypool.NewWebshare(apiKey)
		if err != nil {
			slog.Warn("proxy pool init failed, running without proxy", slog.Any("error", err))
		} else {
			opts = append(opts, stealth.WithProxyPool(pool))
			slog.Info("proxy pool initialized", slog.Int("proxies", pool.Len()))
		}
	}
	bc, err := stealth.NewClient(opts...)
	if err != nil {
		slog.Error("stealth client init failed", slog.Any("error", err))
	} else {
		c.BrowserClient = bc
	}

	// Built even without a key so a key saved later only swaps the key.
	c.LLMClient = engine.NewLLMClient(c)
	return c
}

// envBool reads a 1/true/yes style flag; anything else is false.
func envBool(key string) bool {
	v := strings.ToLower(env.Str(key, ""))
	if v == "yes" || v == "on" {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".go_highlight"
	}
	return filepath.Join(home, ".go_highlight")
}

type analyzeOutput struct {
	Session *engine.Session    `json:"session,omitempty"`
	Errors  []session.URLError `json:"errors,omitempty"`
}

// analyze runs one session in the foreground. URLs come from args, or from
// stdin (one per line) when there are none.
func (a *app) analyze(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	input := strings.Join(args, "\n")
	if len(args) == 0 {
		var sb strings.Builder
		sc := bufio.NewScanner(stdin)
		for sc.Scan() {
			sb.WriteString(sc.Text())
			sb.WriteByte('\n')
		}
		if err := sc.Err(); err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		input = sb.String()
	}

	sess, urlErrs, err := a.sessions.NewSession(ctx, input)
	if err != nil {
		return err
	}
	for _, e := range urlErrs {
		slog.Warn(e.Message)
	}
	out := analyzeOutput{Errors: urlErrs}
	if sess != nil {
		if err := a.sessions.Run(ctx, sess); err != nil {
			slog.Warn("analyze: session cancelled", slog.String("session", sess.ID))
		}
		if out.Session, err = a.sessions.Get(context.WithoutCancel(ctx), sess.ID); err != nil {
			return err
		}
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
