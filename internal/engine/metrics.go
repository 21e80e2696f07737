package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// metrics tracks operational counters across the engine.
var metrics struct {
	MetadataRequests   atomic.Int64
	MetadataErrors     atomic.Int64
	MetadataScrapes    atomic.Int64
	TranscriptRequests atomic.Int64
	LLMCalls           atomic.Int64
	LLMErrors          atomic.Int64
	FallbackAnalyses   atomic.Int64
	SessionsStarted    atomic.Int64
	VideosFailed       atomic.Int64
	ClipsWritten       atomic.Int64
}

// metricKeys fixes the output order of FormatMetrics.
var metricKeys = []string{
	"metadata_requests", "metadata_errors", "metadata_scrapes",
	"transcript_requests",
	"llm_calls", "llm_errors", "fallback_analyses",
	"sessions_started", "videos_failed",
	"clips_written",
	"cache_hits", "cache_misses",
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"metadata_requests":   metrics.MetadataRequests.Load(),
		"metadata_errors":     metrics.MetadataErrors.Load(),
		"metadata_scrapes":    metrics.MetadataScrapes.Load(),
		"transcript_requests": metrics.TranscriptRequests.Load(),
		"llm_calls":           metrics.LLMCalls.Load(),
		"llm_errors":          metrics.LLMErrors.Load(),
		"fallback_analyses":   metrics.FallbackAnalyses.Load(),
		"sessions_started":    metrics.SessionsStarted.Load(),
		"videos_failed":       metrics.VideosFailed.Load(),
		"clips_written":       metrics.ClipsWritten.Load(),
		"cache_hits":          hits,
		"cache_misses":        misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for sub-packages.
func IncrMetadataRequests()   { metrics.MetadataRequests.Add(1) }
func IncrMetadataErrors()     { metrics.MetadataErrors.Add(1) }
func IncrMetadataScrapes()    { metrics.MetadataScrapes.Add(1) }
func IncrTranscriptRequests() { metrics.TranscriptRequests.Add(1) }
func IncrFallbackAnalyses()   { metrics.FallbackAnalyses.Add(1) }
func IncrSessionsStarted()    { metrics.SessionsStarted.Add(1) }
func IncrVideosFailed()       { metrics.VideosFailed.Add(1) }
func IncrClipsWritten()       { metrics.ClipsWritten.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 10*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
