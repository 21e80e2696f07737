package highlightserver

import (
	"github.com/anatolykoptev/go_highlight/internal/engine"
	"github.com/anatolykoptev/go_highlight/internal/engine/credentials"
	"github.com/anatolykoptev/go_highlight/internal/engine/session"
)

// --- video tools ---

type VideoIDsExtractInput struct {
	Text string `json:"text" jsonschema:"Pasted text with one YouTube URL per line"`
}

type VideoRef struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

type VideoIDsExtractOutput struct {
	Videos  []VideoRef `json:"videos"`
	Invalid []string   `json:"invalid"`
}

type VideoMetadataInput struct {
	URLs []string `json:"urls" jsonschema:"YouTube URLs or bare 11-character video IDs"`
}

type VideoMetadataOutput struct {
	Videos []engine.VideoMetadata `json:"videos"`
	Errors []session.URLError     `json:"errors"`
}

type HighlightsAnalyzeInput struct {
	URL        string   `json:"url" jsonschema:"YouTube watch, short, embed or /v/ URL"`
	Transcript bool     `json:"transcript,omitempty" jsonschema:"Fetch captions and include them in the prompt"`
	Languages  []string `json:"languages,omitempty" jsonschema:"Preferred caption languages, e.g. en, de (default from config)"`
}

type HighlightsAnalyzeOutput struct {
	Video      engine.VideoMetadata  `json:"video"`
	Analysis   engine.AnalysisResult `json:"analysis"`
	Highlights []engine.Highlight    `json:"highlights"`
}

// --- analysis session tools ---

type AnalysisStartInput struct {
	URLs string `json:"urls" jsonschema:"YouTube URLs, one per line"`
	Wait bool   `json:"wait,omitempty" jsonschema:"Block until every video has been analyzed"`
}

type AnalysisStartOutput struct {
	SessionID string             `json:"session_id,omitempty"`
	View      engine.View        `json:"view"`
	Videos    []VideoProgress    `json:"videos"`
	Errors    []session.URLError `json:"errors"`
}

type SessionInput struct {
	SessionID string `json:"session_id" jsonschema:"Session ID returned by analysis_start"`
}

type VideoProgress struct {
	ID       string             `json:"id"`
	Title    string             `json:"title"`
	Status   engine.VideoStatus `json:"status"`
	Progress int                `json:"progress"`
	Error    string             `json:"error,omitempty"`
}

type AnalysisStatusOutput struct {
	SessionID string              `json:"session_id"`
	View      engine.View         `json:"view"`
	State     engine.SessionState `json:"state"`
	Analyzing bool                `json:"analyzing"`
	Completed int                 `json:"completed"`
	Total     int                 `json:"total"`
	Videos    []VideoProgress     `json:"videos"`
}

type AnalysisResultsInput struct {
	SessionID     string   `json:"session_id" jsonschema:"Session ID returned by analysis_start"`
	Types         []string `json:"types,omitempty" jsonschema:"Only these types: funny, emotional, motivational, quote, visual, action"`
	MinConfidence float64  `json:"min_confidence,omitempty" jsonschema:"Drop highlights below this confidence (0-1)"`
}

type AnalysisResultsOutput struct {
	SessionID  string             `json:"session_id"`
	View       engine.View        `json:"view"`
	Analyzing  bool               `json:"analyzing"`
	Count      int                `json:"count"`
	Highlights []engine.Highlight `json:"highlights"`
}

type AnalysisListInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum sessions to return (default 50)"`
}

// SessionRow is engine.SessionSummary with RFC 3339 timestamps.
type SessionRow struct {
	ID             string              `json:"id"`
	View           engine.View         `json:"view"`
	State          engine.SessionState `json:"state"`
	VideoCount     int                 `json:"video_count"`
	HighlightCount int                 `json:"highlight_count"`
	CreatedAt      string              `json:"created_at"`
	UpdatedAt      string              `json:"updated_at"`
}

type AnalysisListOutput struct {
	Sessions []SessionRow `json:"sessions"`
}

type AnalysisCancelOutput struct {
	SessionID string `json:"session_id"`
	Cancelled bool   `json:"cancelled"`
}

// --- clip tools ---

// ClipInput names a clip either by session highlight or by explicit range.
type ClipInput struct {
	SessionID   string  `json:"session_id,omitempty" jsonschema:"Session holding the highlight"`
	HighlightID string  `json:"highlight_id,omitempty" jsonschema:"Highlight ID such as dQw4w9WgXcQ-0; fills the fields below"`
	VideoID     string  `json:"video_id,omitempty" jsonschema:"YouTube video ID"`
	StartTime   float64 `json:"start_time,omitempty" jsonschema:"Clip start in seconds"`
	EndTime     float64 `json:"end_time,omitempty" jsonschema:"Clip end in seconds"`
	Title       string  `json:"title,omitempty" jsonschema:"Video title used for the file name"`
	Summary     string  `json:"summary,omitempty" jsonschema:"Highlight summary (metadata export only)"`
}

type ClipDownloadOutput struct {
	Shared  bool   `json:"shared"`
	Path    string `json:"path,omitempty"`
	URL     string `json:"url"`
	Message string `json:"message"`
}

type ClipURLOutput struct {
	URL string `json:"url"`
}

type ClipMetadataExportOutput struct {
	Exported bool   `json:"exported"`
	Path     string `json:"path"`
}

// --- settings ---

type SettingsGetInput struct{}

type SettingsSetInput struct {
	YouTubeAPIKey string `json:"youtube_api_key,omitempty" jsonschema:"YouTube Data API v3 key"`
	OpenAIAPIKey  string `json:"openai_api_key,omitempty" jsonschema:"API key for the OpenAI-compatible chat endpoint"`
}

type SettingsOutput struct {
	Keys           credentials.Status `json:"keys"`
	ScrapeFallback bool               `json:"scrape_fallback"`
	Transcripts    bool               `json:"transcripts"`
	Saved          []string           `json:"saved,omitempty"`
}
