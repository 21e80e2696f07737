// Package toolutil provides shared helpers for the go_highlight MCP tools.
package toolutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/anatolykoptev/go_highlight/internal/engine"
)

// NormLangs trims and drops empty language codes, falling back to def.
func NormLangs(langs, def []string) []string {
	var out []string
	for _, l := range langs {
		if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// ParseTypes validates highlight type filters. Unlike model output, unknown
// names from a caller are an error rather than silently becoming visual.
func ParseTypes(names []string) ([]engine.HighlightType, error) {
	out := make([]engine.HighlightType, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		t := engine.ParseHighlightType(n)
		if string(t) != n {
			return nil, fmt.Errorf("unknown highlight type %q", n)
		}
		out = append(out, t)
	}
	return out, nil
}

// MetadataResult is one lookup of FetchMetadataParallel.
type MetadataResult struct {
	ID    string
	Meta  *engine.VideoMetadata
	Err   error
	Index int
}

// FetchMetadataParallel looks up every id with at most limit requests in
// flight. Results are returned in input order.
func FetchMetadataParallel(ctx context.Context, ids []string, limit int,
	fetch func(context.Context, string) (*engine.VideoMetadata, error)) []MetadataResult {
	if limit <= 0 {
		limit = 4
	}
	results := make([]MetadataResult, len(ids))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i] = MetadataResult{ID: id, Err: ctx.Err(), Index: i}
				return
			}
			defer func() { <-sem }()
			meta, err := fetch(ctx, id)
			results[i] = MetadataResult{ID: id, Meta: meta, Err: err, Index: i}
		}()
	}
	wg.Wait()
	return results
}
