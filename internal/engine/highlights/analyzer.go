// Package highlights picks clip-worthy segments of a video, through an LLM when
// one is configured and an even-spacing heuristic otherwise.
package highlights

import (
	"context"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/anatolykoptev/go_highlight/internal/engine"
)

// Completer is the chat model the analyzer talks to. engine.LLMCompleter is the
// production implementation.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Configured() bool
}

// Request describes one video to analyze.
type Request struct {
	Title       string
	Description string
	Duration    int // seconds
	Transcript  string
}

// Analyzer turns video metadata into highlight segments.
type Analyzer struct {
	llm      Completer
	useCache bool

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithRand sets the source used for fallback confidence jitter.
func WithRand(r *rand.Rand) Option {
	return func(a *Analyzer) { a.rng = r }
}

// WithoutCache disables result caching.
func WithoutCache() Option {
	return func(a *Analyzer) { a.useCache = false }
}

// NewAnalyzer returns an Analyzer backed by llm.
func NewAnalyzer(llm Completer, opts ...Option) *Analyzer {
	a := &Analyzer{
		llm:      llm,
		useCache: true,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // jitter only
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Analyze returns highlights for req. Model failures degrade to Fallback;
// the only error is a cancelled context.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*engine.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.llm == nil || !a.llm.Configured() {
		slog.Info("highlights: LLM key not configured, using fallback analysis", slog.String("title", req.Title))
		return a.fallback(req.Title, req.Duration), nil
	}

	key := engine.CacheKey(engine.CacheKindAnalysis, engine.Cfg.LLMModel,
		req.Title, req.Description, strconv.Itoa(req.Duration), req.Transcript)
	if a.useCache {
		if res, ok := engine.CacheLoadJSON[*engine.AnalysisResult](ctx, key); ok && res != nil {
			return res, nil
		}
	}

	raw, err := a.llm.Complete(ctx, systemPrompt, BuildPrompt(req))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("highlights: LLM call failed, using fallback", slog.String("title", req.Title), slog.Any("error", err))
		return a.fallback(req.Title, req.Duration), nil
	}

	res, err := parseResponse(raw, req.Duration)
	if err != nil {
		slog.Warn("highlights: unusable model output, using fallback",
			slog.Any("error", err), slog.String("raw", engine.TruncateRunes(raw, 200, "...")))
		return a.fallback("", req.Duration), nil
	}

	if a.useCache {
		engine.CacheStoreJSON(ctx, key, res)
	}
	return res, nil
}

func (a *Analyzer) fallback(title string, duration int) *engine.AnalysisResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Fallback(title, duration, a.rng)
}
