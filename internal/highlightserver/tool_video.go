package highlightserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_highlight/internal/engine"
	"github.com/anatolykoptev/go_highlight/internal/engine/highlights"
	"github.com/anatolykoptev/go_highlight/internal/engine/session"
	"github.com/anatolykoptev/go_highlight/internal/engine/sources"
	"github.com/anatolykoptev/go_highlight/internal/toolutil"
)

var bareIDRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// resolveID accepts a YouTube URL or a bare video ID.
func resolveID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if id, ok := sources.ExtractVideoID(s); ok {
		return id, true
	}
	if bareIDRe.MatchString(s) {
		return s, true
	}
	return "", false
}

func (t *tools) videoIDsExtract(_ context.Context, _ *mcp.CallToolRequest, in VideoIDsExtractInput) (*mcp.CallToolResult, VideoIDsExtractOutput, error) {
	out := VideoIDsExtractOutput{Videos: []VideoRef{}, Invalid: []string{}}
	lines := session.SplitInput(in.Text)
	if len(lines) == 0 {
		return nil, out, session.ErrEmptyInput
	}
	for _, u := range lines {
		if id, ok := sources.ExtractVideoID(u); ok {
			out.Videos = append(out.Videos, VideoRef{URL: u, ID: id})
		} else {
			out.Invalid = append(out.Invalid, u)
		}
	}
	return nil, out, nil
}

func (t *tools) videoMetadata(ctx context.Context, _ *mcp.CallToolRequest, in VideoMetadataInput) (*mcp.CallToolResult, VideoMetadataOutput, error) {
	out := VideoMetadataOutput{Videos: []engine.VideoMetadata{}, Errors: []session.URLError{}}
	if len(in.URLs) == 0 {
		return nil, out, errors.New("urls is required")
	}

	var ids, urls []string
	for _, u := range in.URLs {
		id, ok := resolveID(u)
		if !ok {
			out.Errors = append(out.Errors, session.URLError{URL: u, Message: "Invalid YouTube URL: " + u})
			continue
		}
		ids = append(ids, id)
		urls = append(urls, u)
	}

	for _, r := range toolutil.FetchMetadataParallel(ctx, ids, 4, t.FetchMetadata) {
		if r.Err != nil {
			if errors.Is(r.Err, sources.ErrYouTubeKeyMissing) {
				return nil, out, session.ErrAPIKeyRequired
			}
			slog.Warn("video_metadata: fetch failed", slog.String("id", r.ID), slog.Any("error", r.Err))
			u := urls[r.Index]
			out.Errors = append(out.Errors, session.URLError{URL: u, Message: "Could not fetch metadata for video: " + u})
			continue
		}
		out.Videos = append(out.Videos, *r.Meta)
	}
	return nil, out, nil
}

func (t *tools) highlightsAnalyze(ctx context.Context, _ *mcp.CallToolRequest, in HighlightsAnalyzeInput) (*mcp.CallToolResult, HighlightsAnalyzeOutput, error) {
	var out HighlightsAnalyzeOutput
	id, ok := resolveID(in.URL)
	if !ok {
		return nil, out, fmt.Errorf("Invalid YouTube URL: %s", in.URL) //nolint:staticcheck // user-facing text
	}
	meta, err := t.FetchMetadata(ctx, id)
	if err != nil {
		if errors.Is(err, sources.ErrYouTubeKeyMissing) {
			return nil, out, session.ErrAPIKeyRequired
		}
		return nil, out, fmt.Errorf("Could not fetch metadata for video: %s: %w", in.URL, err) //nolint:staticcheck // user-facing text
	}

	req := highlights.Request{Title: meta.Title, Description: meta.Description, Duration: meta.Duration}
	if in.Transcript && t.FetchTranscript != nil {
		langs := toolutil.NormLangs(in.Languages, engine.Cfg.TranscriptLangs)
		if tr, err := t.FetchTranscript(ctx, id, langs); err == nil {
			req.Transcript = tr
		} else {
			slog.Debug("highlights_analyze: transcript unavailable", slog.String("id", id), slog.Any("error", err))
		}
	}

	var res *engine.AnalysisResult
	err = engine.TrackOperation(ctx, "highlights_analyze", func(ctx context.Context) error {
		var err error
		res, err = t.Analyzer.Analyze(ctx, req)
		return err
	})
	if err != nil {
		return nil, out, err
	}
	hs := session.ToHighlights(id, res)
	if hs == nil {
		hs = []engine.Highlight{}
	}
	return nil, HighlightsAnalyzeOutput{Video: *meta, Analysis: *res, Highlights: hs}, nil
}
