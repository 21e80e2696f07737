package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/anatolykoptev/go_highlight/internal/engine"
)

// Transcript strategies, tried in order:
//  1. watch page ytInitialPlayerResponse -> caption track timedtext XML
//  2. WEB /next engagement panel -> /get_transcript segments
//  3. ANDROID /player -> caption track timedtext XML

// ErrNoTranscript is returned when no strategy produced any caption text.
var ErrNoTranscript = errors.New("no transcript available")

// TranscriptLine is one caption cue with its offset into the video.
type TranscriptLine struct {
	Start float64
	Text  string
}

// FormatTranscript renders cues as "[m:ss] text" lines, the form fed to the LLM
// so it can anchor highlight offsets.
func FormatTranscript(lines []TranscriptLine) string {
	var sb strings.Builder
	for _, l := range lines {
		if l.Text == "" {
			continue
		}
		s := int(l.Start)
		if s < 0 {
			s = 0
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		if s >= 3600 {
			fmt.Fprintf(&sb, "[%d:%02d:%02d] ", s/3600, s%3600/60, s%60)
		} else {
			fmt.Fprintf(&sb, "[%d:%02d] ", s/60, s%60)
		}
		sb.WriteString(l.Text)
	}
	return sb.String()
}

var getTranscriptRE = regexp.MustCompile(`"getTranscriptEndpoint":\{"params":"([^"]+)"`)

// extractTranscriptToken pulls the /get_transcript params out of a raw /next response.
func extractTranscriptToken(data []byte) (string, error) {
	m := getTranscriptRE.FindSubmatch(data)
	if len(m) < 2 {
		return "", errors.New("getTranscriptEndpoint not found")
	}
	// URL-encoded in /next, raw base64 expected by /get_transcript.
	if decoded, err := url.QueryUnescape(string(m[1])); err == nil {
		return decoded, nil
	}
	return string(m[1]), nil
}

func segmentLines(resp getTranscriptResponse) []TranscriptLine {
	var out []TranscriptLine
	for _, action := range resp.Actions {
		if action.UpdateEngagementPanelAction == nil {
			continue
		}
		segs := action.UpdateEngagementPanelAction.Content.TranscriptRenderer.Content.
			TranscriptSearchPanelRenderer.Body.TranscriptSegmentListRenderer.InitialSegments
		for _, s := range segs {
			if s.Segment == nil {
				continue
			}
			parts := make([]string, 0, len(s.Segment.Snippet.Runs))
			for _, r := range s.Segment.Snippet.Runs {
				if t := strings.TrimSpace(r.Text); t != "" {
					parts = append(parts, t)
				}
			}
			if len(parts) == 0 {
				continue
			}
			ms, _ := strconv.ParseFloat(s.Segment.StartMs, 64)
			out = append(out, TranscriptLine{Start: ms / 1000, Text: strings.Join(parts, " ")})
		}
	}
	return out
}

// timedText is the classic (format 1) caption XML.
type timedText struct {
	Lines []struct {
		Start string `xml:"start,attr"`
		Text  string `xml:",chardata"`
	} `xml:"text"`
}

func parseTimedText(body []byte) ([]TranscriptLine, error) {
	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext: %w", err)
	}
	out := make([]TranscriptLine, 0, len(tt.Lines))
	for _, l := range tt.Lines {
		// Cue text is entity-escaped twice; xml.Unmarshal only undoes one level.
		text := engine.CollapseSpace(html.UnescapeString(l.Text))
		if text == "" {
			continue
		}
		start, _ := strconv.ParseFloat(l.Start, 64)
		out = append(out, TranscriptLine{Start: start, Text: text})
	}
	return out, nil
}

// needsPoToken reports whether a caption URL only works inside a browser session.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickBestTrack prefers a manual track in a preferred language, then an
// auto-generated one, then any English track, then whatever is usable.
func pickBestTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	var usable []captionTrack
	for _, t := range tracks {
		if !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, false
	}
	for _, manual := range []bool{true, false} {
		for _, lang := range langs {
			for _, t := range usable {
				if t.LanguageCode == lang && (!manual || t.Kind != "asr") {
					return t, true
				}
			}
		}
	}
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return usable[0], true
}

func fetchTrackLines(ctx context.Context, pr playerResponse, langs []string) ([]TranscriptLine, error) {
	if pr.Captions == nil || len(pr.Captions.Renderer.CaptionTracks) == 0 {
		if pr.PlayabilityStatus != nil && pr.PlayabilityStatus.Reason != "" {
			return nil, fmt.Errorf("captions unavailable: %s", pr.PlayabilityStatus.Reason)
		}
		return nil, errors.New("no caption tracks")
	}
	track, ok := pickBestTrack(pr.Captions.Renderer.CaptionTracks, langs)
	if !ok {
		return nil, errors.New("all caption tracks require PoToken")
	}

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, track.BaseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentBot)
		return engine.Cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return nil, err
	}
	return parseTimedText(body)
}

const playerResponseMarker = "ytInitialPlayerResponse = "

func transcriptFromWatchPage(ctx context.Context, videoID string, langs []string) ([]TranscriptLine, error) {
	body, err := engine.FetchPage(ctx, watchPageBase+url.QueryEscape(videoID))
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}
	idx := strings.Index(string(body), playerResponseMarker)
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse not found")
	}
	raw := extractJSON(body[idx+len(playerResponseMarker):])
	if raw == nil {
		return nil, errors.New("truncated ytInitialPlayerResponse")
	}
	var pr playerResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return fetchTrackLines(ctx, pr, langs)
}

func transcriptFromEngagementPanel(ctx context.Context, videoID string) ([]TranscriptLine, error) {
	client := webClient(newVisitorData())
	next, err := postInnertube(ctx, "next", client, map[string]any{"videoId": videoID})
	if err != nil {
		return nil, err
	}
	token, err := extractTranscriptToken(next)
	if err != nil {
		return nil, err
	}
	data, err := postInnertube(ctx, "get_transcript", client, map[string]any{"params": token})
	if err != nil {
		return nil, err
	}
	var resp getTranscriptResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode get_transcript: %w", err)
	}
	return segmentLines(resp), nil
}

func transcriptFromPlayer(ctx context.Context, videoID string, langs []string) ([]TranscriptLine, error) {
	data, err := postInnertube(ctx, "player", androidClient(), map[string]any{
		"videoId":        videoID,
		"racyCheckOk":    true,
		"contentCheckOk": true,
	})
	if err != nil {
		return nil, err
	}
	var pr playerResponse
	if err := json.Unmarshal(data, &pr); err != nil {
		return nil, fmt.Errorf("decode player: %w", err)
	}
	return fetchTrackLines(ctx, pr, langs)
}

// FetchYouTubeTranscript returns the timestamped transcript of a video, capped
// at Cfg.TranscriptMaxChars runes. Results are cached per (video, languages).
func FetchYouTubeTranscript(ctx context.Context, videoID string, langs []string) (string, error) {
	engine.IncrTranscriptRequests()

	key := engine.CacheKey(engine.CacheKindTranscript, videoID, strings.Join(langs, ","))
	if text, ok := engine.CacheLoadJSON[string](ctx, key); ok {
		return text, nil
	}

	strategies := []struct {
		name string
		run  func() ([]TranscriptLine, error)
	}{
		{"watch_page", func() ([]TranscriptLine, error) { return transcriptFromWatchPage(ctx, videoID, langs) }},
		{"engagement_panel", func() ([]TranscriptLine, error) { return transcriptFromEngagementPanel(ctx, videoID) }},
		{"player", func() ([]TranscriptLine, error) { return transcriptFromPlayer(ctx, videoID, langs) }},
	}

	var errs []error
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		lines, err := s.run()
		if err == nil && len(lines) == 0 {
			err = ErrNoTranscript
		}
		if err != nil {
			slog.Debug("youtube: transcript strategy failed",
				slog.String("id", videoID), slog.String("strategy", s.name), slog.Any("err", err))
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		text := FormatTranscript(lines)
		if limit := engine.Cfg.TranscriptMaxChars; limit > 0 {
			text = engine.TruncateRunes(text, limit, "")
		}
		engine.CacheStoreJSON(ctx, key, text)
		return text, nil
	}
	return "", fmt.Errorf("%w: %w", ErrNoTranscript, errors.Join(errs...))
}
