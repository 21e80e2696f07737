// Package clips exports highlights as files. No video is cut: a clip is a
// small placeholder describing the range, plus a watch link at the start offset.
package clips

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/anatolykoptev/go_highlight/internal/engine"
	"github.com/anatolykoptev/go_highlight/internal/engine/sources"
)

const (
	clipMime     = "video/mp4"
	metadataMime = "application/json"

	metadataDialogTitle = "Share Clip Metadata"
)

// Options selects the range of a video to export.
type Options struct {
	VideoID string  `json:"video_id"`
	Start   float64 `json:"start_time"`
	End     float64 `json:"end_time"`
	Title   string  `json:"title"`
}

// Metadata is the JSON document written by ExportClipMetadata.
type Metadata struct {
	VideoID    string  `json:"videoId"`
	StartTime  float64 `json:"startTime"`
	EndTime    float64 `json:"endTime"`
	Duration   float64 `json:"duration"`
	Title      string  `json:"title"`
	Summary    string  `json:"summary"`
	ExportedAt string  `json:"exportedAt"`
}

// Exporter writes clip files into Dir and hands them to Sharer.
type Exporter struct {
	Dir    string
	Sharer Sharer
	now    func() time.Time
}

// NewExporter returns an Exporter. A nil sharer means sharing is unavailable.
func NewExporter(dir string, sharer Sharer) *Exporter {
	if sharer == nil {
		sharer = noSharer{}
	}
	return &Exporter{Dir: dir, Sharer: sharer, now: time.Now}
}

// formatSeconds prints offsets the way they appear in file names: 30, 12.5.
func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}

func (e *Exporter) write(name string, data []byte) (string, error) {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create clip dir: %w", err)
	}
	path := filepath.Join(e.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

// DownloadClip writes the placeholder clip and shares it. It reports false,
// with the written path, when no sharer is available; callers then fall back
// to GenerateClipURL.
func (e *Exporter) DownloadClip(ctx context.Context, opts Options) (bool, string, error) {
	name := fmt.Sprintf("%s_%s-%s.mp4", engine.SafeFileStem(opts.Title),
		formatSeconds(opts.Start), formatSeconds(opts.End))
	content := fmt.Sprintf("Video clip: %s\nStart: %ss\nEnd: %ss",
		opts.Title, formatSeconds(opts.Start), formatSeconds(opts.End))

	path, err := e.write(name, []byte(content))
	if err != nil {
		slog.Warn("clips: download failed", slog.String("video", opts.VideoID), slog.Any("error", err))
		return false, "", err
	}
	engine.IncrClipsWritten()

	if !e.Sharer.Available() {
		slog.Info("clips: sharing not available", slog.String("path", path))
		return false, path, nil
	}
	if err := e.Sharer.Share(ctx, path, clipMime, "Share "+opts.Title); err != nil {
		slog.Warn("clips: share failed", slog.String("path", path), slog.Any("error", err))
		return false, path, err
	}
	return true, path, nil
}

// GenerateClipURL links to the original video at the clip start.
// The end offset is accepted for symmetry but YouTube links cannot carry it.
func GenerateClipURL(videoID string, start, _ float64) string {
	return sources.WatchURL(videoID, start)
}

// ExportClipMetadata writes "{title}_metadata.json" and shares it when possible.
// A missing sharer is not a failure.
func (e *Exporter) ExportClipMetadata(ctx context.Context, opts Options, summary string) (string, error) {
	meta := Metadata{
		VideoID:    opts.VideoID,
		StartTime:  opts.Start,
		EndTime:    opts.End,
		Duration:   opts.End - opts.Start,
		Title:      opts.Title,
		Summary:    summary,
		ExportedAt: e.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	path, err := e.write(engine.SafeFileStem(opts.Title)+"_metadata.json", data)
	if err != nil {
		slog.Warn("clips: metadata export failed", slog.String("video", opts.VideoID), slog.Any("error", err))
		return "", err
	}
	if e.Sharer.Available() {
		if err := e.Sharer.Share(ctx, path, metadataMime, metadataDialogTitle); err != nil {
			slog.Warn("clips: share metadata failed", slog.String("path", path), slog.Any("error", err))
		}
	}
	return path, nil
}
