package highlightserver

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_highlight/internal/engine"
	"github.com/anatolykoptev/go_highlight/internal/engine/clips"
	"github.com/anatolykoptev/go_highlight/internal/engine/credentials"
	"github.com/anatolykoptev/go_highlight/internal/engine/highlights"
	"github.com/anatolykoptev/go_highlight/internal/engine/session"
	"github.com/anatolykoptev/go_highlight/internal/engine/sources"
	"github.com/anatolykoptev/go_highlight/internal/engine/store"
)

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(_ context.Context, req highlights.Request) (*engine.AnalysisResult, error) {
	return &engine.AnalysisResult{
		Highlights: []engine.Segment{
			{StartTime: 5, EndTime: 35, Type: engine.HighlightFunny, Confidence: 0.9, Summary: "joke", Keywords: []string{}},
			{StartTime: 60, EndTime: 90, Type: engine.HighlightQuote, Confidence: 0.5, Summary: "line", Keywords: []string{}},
		},
		Summary:  req.Title,
		Keywords: []string{},
		Hashtags: []string{},
	}, nil
}

func stubMetadata(_ context.Context, id string) (*engine.VideoMetadata, error) {
	if id == "missingvid1" {
		return nil, sources.ErrVideoNotFound
	}
	return &engine.VideoMetadata{ID: id, Title: "Video " + id, Duration: 300}, nil
}

func newTestTools(t *testing.T) *tools {
	t.Helper()
	engine.Init(engine.Config{LLMAPIBase: "http://127.0.0.1:1/v1", LLMModel: "test"})

	db, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mgr := session.NewManager(context.Background(), session.Deps{
		Analyzer:         stubAnalyzer{},
		Store:            db,
		FetchMetadata:    stubMetadata,
		CanFetchMetadata: func() bool { return true },
	})
	return &tools{Deps: Deps{
		Sessions:      mgr,
		Analyzer:      stubAnalyzer{},
		Clips:         clips.NewExporter(t.TempDir(), nil),
		Credentials:   credentials.New(db, "", ""),
		FetchMetadata: stubMetadata,
	}}
}

func TestVideoIDsExtract(t *testing.T) {
	tl := newTestTools(t)
	_, out, err := tl.videoIDsExtract(context.Background(), nil, VideoIDsExtractInput{
		Text: "https://youtu.be/aaaaaaaaaaa\nhello\nhttps://www.youtube.com/v/bbbbbbbbbbb",
	})
	require.NoError(t, err)
	require.Len(t, out.Videos, 2)
	assert.Equal(t, "bbbbbbbbbbb", out.Videos[1].ID)
	assert.Equal(t, []string{"hello"}, out.Invalid)

	_, _, err = tl.videoIDsExtract(context.Background(), nil, VideoIDsExtractInput{Text: " "})
	assert.ErrorIs(t, err, session.ErrEmptyInput)
}

func TestVideoMetadata(t *testing.T) {
	tl := newTestTools(t)
	_, out, err := tl.videoMetadata(context.Background(), nil, VideoMetadataInput{
		URLs: []string{"aaaaaaaaaaa", "https://youtu.be/missingvid1", "nope"},
	})
	require.NoError(t, err)
	require.Len(t, out.Videos, 1)
	assert.Equal(t, "Video aaaaaaaaaaa", out.Videos[0].Title)
	require.Len(t, out.Errors, 2)
	msgs := []string{out.Errors[0].Message, out.Errors[1].Message}
	sort.Strings(msgs)
	assert.Equal(t, []string{
		"Could not fetch metadata for video: https://youtu.be/missingvid1",
		"Invalid YouTube URL: nope",
	}, msgs)

	tl.FetchMetadata = func(context.Context, string) (*engine.VideoMetadata, error) {
		return nil, sources.ErrYouTubeKeyMissing
	}
	_, _, err = tl.videoMetadata(context.Background(), nil, VideoMetadataInput{URLs: []string{"aaaaaaaaaaa"}})
	assert.ErrorIs(t, err, session.ErrAPIKeyRequired)
}

func TestHighlightsAnalyze(t *testing.T) {
	tl := newTestTools(t)
	var asked string
	var askedLangs []string
	tl.FetchTranscript = func(_ context.Context, id string, langs []string) (string, error) {
		asked, askedLangs = id, langs
		return "", errors.New("no captions")
	}
	_, out, err := tl.highlightsAnalyze(context.Background(), nil, HighlightsAnalyzeInput{
		URL: "https://www.youtube.com/watch?v=aaaaaaaaaaa", Transcript: true, Languages: []string{" DE ", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "aaaaaaaaaaa", asked)
	assert.Equal(t, []string{"de"}, askedLangs)
	assert.Equal(t, "Video aaaaaaaaaaa", out.Analysis.Summary)
	require.Len(t, out.Highlights, 2)
	assert.Equal(t, "aaaaaaaaaaa-1", out.Highlights[1].ID)
	assert.Equal(t, 30.0, out.Highlights[1].Duration)

	_, _, err = tl.highlightsAnalyze(context.Background(), nil, HighlightsAnalyzeInput{URL: "x"})
	assert.Error(t, err)
}

func TestAnalysisFlow(t *testing.T) {
	tl := newTestTools(t)
	ctx := context.Background()

	_, start, err := tl.analysisStart(ctx, nil, AnalysisStartInput{
		URLs: "https://youtu.be/aaaaaaaaaaa\nbad line\nhttps://youtu.be/bbbbbbbbbbb",
		Wait: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, start.SessionID)
	assert.Equal(t, engine.ViewHighlights, start.View)
	assert.Len(t, start.Errors, 1)
	require.Len(t, start.Videos, 2)
	assert.Equal(t, engine.VideoCompleted, start.Videos[1].Status)

	_, status, err := tl.analysisStatus(ctx, nil, SessionInput{SessionID: start.SessionID})
	require.NoError(t, err)
	assert.False(t, status.Analyzing)
	assert.Equal(t, 2, status.Completed)
	assert.Equal(t, engine.SessionCompleted, status.State)

	_, res, err := tl.analysisResults(ctx, nil, AnalysisResultsInput{SessionID: start.SessionID})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Count)

	_, res, err = tl.analysisResults(ctx, nil, AnalysisResultsInput{
		SessionID: start.SessionID, Types: []string{"quote"}, MinConfidence: 0.4,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)

	_, _, err = tl.analysisResults(ctx, nil, AnalysisResultsInput{SessionID: start.SessionID, Types: []string{"dance"}})
	assert.Error(t, err)

	_, list, err := tl.analysisList(ctx, nil, AnalysisListInput{})
	require.NoError(t, err)
	require.Len(t, list.Sessions, 1)
	assert.Equal(t, 4, list.Sessions[0].HighlightCount)

	_, cancelled, err := tl.analysisCancel(ctx, nil, SessionInput{SessionID: start.SessionID})
	require.NoError(t, err)
	assert.False(t, cancelled.Cancelled)

	_, _, err = tl.analysisStatus(ctx, nil, SessionInput{SessionID: "missing"})
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	// Clip tools resolve a session highlight.
	_, dl, err := tl.clipDownload(ctx, nil, ClipInput{SessionID: start.SessionID, HighlightID: "bbbbbbbbbbb-0"})
	require.NoError(t, err)
	assert.False(t, dl.Shared)
	assert.Equal(t, "https://www.youtube.com/watch?v=bbbbbbbbbbb&t=5s", dl.URL)
	assert.Equal(t, "Video_bbbbbbbbbbb_5-35.mp4", filepath.Base(dl.Path))
	assert.Equal(t, "Clip URL generated. You can download it from YouTube.", dl.Message)

	_, meta, err := tl.clipMetadataExport(ctx, nil, ClipInput{SessionID: start.SessionID, HighlightID: "aaaaaaaaaaa-1"})
	require.NoError(t, err)
	assert.True(t, meta.Exported)
	assert.Equal(t, "Video_aaaaaaaaaaa_metadata.json", filepath.Base(meta.Path))

	_, _, err = tl.clipDownload(ctx, nil, ClipInput{SessionID: start.SessionID, HighlightID: "zzz-9"})
	assert.Error(t, err)
}

func TestAnalysisStartNothingQueued(t *testing.T) {
	tl := newTestTools(t)
	_, out, err := tl.analysisStart(context.Background(), nil, AnalysisStartInput{URLs: "garbage"})
	require.NoError(t, err)
	assert.Empty(t, out.SessionID)
	assert.Equal(t, engine.ViewInput, out.View)
	require.Len(t, out.Errors, 1)

	_, _, err = tl.analysisStart(context.Background(), nil, AnalysisStartInput{URLs: ""})
	assert.ErrorIs(t, err, session.ErrEmptyInput)
}

func TestClipURL(t *testing.T) {
	tl := newTestTools(t)
	_, out, err := tl.clipURL(context.Background(), nil, ClipInput{VideoID: "abc", StartTime: 61.7})
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc&t=61s", out.URL)

	_, _, err = tl.clipURL(context.Background(), nil, ClipInput{})
	assert.Error(t, err)
}

func TestSettings(t *testing.T) {
	tl := newTestTools(t)
	ctx := context.Background()

	_, out, err := tl.settingsGet(ctx, nil, SettingsGetInput{})
	require.NoError(t, err)
	assert.False(t, out.Keys.YouTube.Configured)

	_, out, err = tl.settingsSet(ctx, nil, SettingsSetInput{YouTubeAPIKey: "AIzaSy-test-key-1234"})
	require.NoError(t, err)
	assert.Equal(t, []string{credentials.YouTubeKeyName}, out.Saved)
	assert.True(t, out.Keys.YouTube.Configured)
	assert.Equal(t, "AIza...1234", out.Keys.YouTube.Masked)
	assert.Equal(t, []string{"AIzaSy-test-key-1234"}, engine.YouTubeKeys())

	_, _, err = tl.settingsSet(ctx, nil, SettingsSetInput{})
	assert.Error(t, err)
}

func TestRegisterToolsListsAll(t *testing.T) {
	tl := newTestTools(t)
	server := mcp.NewServer(&mcp.Implementation{Name: "go_highlight", Version: "test"}, nil)
	RegisterTools(server, tl.Deps)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	serverT, clientT := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverT, nil)
	require.NoError(t, err)
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	defer cs.Close()

	res, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"video_ids_extract", "video_metadata", "highlights_analyze",
		"analysis_start", "analysis_status", "analysis_results", "analysis_list", "analysis_cancel",
		"clip_download", "clip_url", "clip_metadata_export",
		"settings_get", "settings_set",
	}, names)
}
