// Package highlightserver exposes video analysis, sessions, clip export and
// settings as MCP tools.
package highlightserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_highlight/internal/engine"
	"github.com/anatolykoptev/go_highlight/internal/engine/clips"
	"github.com/anatolykoptev/go_highlight/internal/engine/credentials"
	"github.com/anatolykoptev/go_highlight/internal/engine/session"
	"github.com/anatolykoptev/go_highlight/internal/engine/sources"
)

// Deps are the services the tools operate on.
type Deps struct {
	Sessions    *session.Manager
	Analyzer    session.Analyzer
	Clips       *clips.Exporter
	Credentials *credentials.Manager

	// FetchMetadata defaults to sources.FetchVideoMetadata.
	FetchMetadata func(ctx context.Context, id string) (*engine.VideoMetadata, error)
	// FetchTranscript is used by highlights_analyze when asked; nil disables it.
	FetchTranscript func(ctx context.Context, id string, langs []string) (string, error)
}

type tools struct {
	Deps
}

// RegisterTools registers every highlight tool on server.
func RegisterTools(server *mcp.Server, d Deps) {
	if d.FetchMetadata == nil {
		d.FetchMetadata = sources.FetchVideoMetadata
	}
	t := &tools{Deps: d}

	readOnly := &mcp.ToolAnnotations{ReadOnlyHint: true}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_ids_extract",
		Description: "Extract YouTube video IDs from pasted text (one URL per line). Accepts watch, youtu.be, embed and /v/ links. Lines that are not YouTube links are listed as invalid.",
		Annotations: readOnly,
	}, t.videoIDsExtract)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_metadata",
		Description: "Fetch YouTube metadata (title, description, thumbnail, duration in seconds, channel, publish date) for one or more videos via the YouTube Data API.",
		Annotations: readOnly,
	}, t.videoMetadata)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "highlights_analyze",
		Description: "Analyze a single YouTube video and return 3-5 highlight segments (15-90 s) with type, confidence, summary, keywords and hashtags. Uses the configured LLM, or evenly spaced segments when no LLM key is set. Does not create a session.",
		Annotations: readOnly,
	}, t.highlightsAnalyze)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analysis_start",
		Description: "Queue pasted YouTube URLs (one per line) as an analysis session. Videos are analyzed one after another in the background; poll analysis_status, then read analysis_results. Set wait=true to block until done.",
	}, t.analysisStart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analysis_status",
		Description: "Dashboard view of an analysis session: per-video status (pending, analyzing, completed, error) and progress 0-100.",
		Annotations: readOnly,
	}, t.analysisStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analysis_results",
		Description: "Highlights found so far in a session, in video order. Optionally filter by type and minimum confidence.",
		Annotations: readOnly,
	}, t.analysisResults)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analysis_list",
		Description: "List recent analysis sessions, newest first, with video and highlight counts.",
		Annotations: readOnly,
	}, t.analysisList)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analysis_cancel",
		Description: "Stop a running session. The video being analyzed and all later ones stay pending.",
	}, t.analysisCancel)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clip_download",
		Description: "Write a placeholder .mp4 for a highlight into the clip directory and open it with the system share handler. Falls back to a YouTube link at the clip start when sharing is unavailable.",
	}, t.clipDownload)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clip_url",
		Description: "YouTube link that starts playback at the clip start time.",
		Annotations: readOnly,
	}, t.clipURL)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clip_metadata_export",
		Description: "Write a highlight's metadata (video ID, start, end, duration, title, summary, export time) as JSON into the clip directory and share it when possible.",
	}, t.clipMetadataExport)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "settings_get",
		Description: "Show which API keys are configured (masked) and whether scraping and transcripts are enabled.",
		Annotations: readOnly,
	}, t.settingsGet)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "settings_set",
		Description: "Save the YouTube Data API key and/or the LLM API key. Keys are stored and take effect immediately.",
	}, t.settingsSet)
}
