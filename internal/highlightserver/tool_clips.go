package highlightserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_highlight/internal/engine/clips"
)

// resolveClip fills in a ClipInput from its session highlight when one is named.
func (t *tools) resolveClip(ctx context.Context, in ClipInput) (ClipInput, error) {
	if in.HighlightID != "" {
		sess, err := t.getSession(ctx, in.SessionID)
		if err != nil {
			return in, err
		}
		found := false
		for _, h := range sess.Highlights {
			if h.ID != in.HighlightID {
				continue
			}
			in.VideoID, in.StartTime, in.EndTime = h.VideoID, h.StartTime, h.EndTime
			if in.Summary == "" {
				in.Summary = h.Summary
			}
			found = true
			break
		}
		if !found {
			return in, fmt.Errorf("highlight %q not found in session", in.HighlightID)
		}
		if in.Title == "" {
			for _, v := range sess.Videos {
				if v.ID == in.VideoID {
					in.Title = v.Title
					break
				}
			}
		}
	}
	if in.VideoID == "" {
		return in, errors.New("video_id or session_id + highlight_id is required")
	}
	if in.EndTime < in.StartTime {
		return in, fmt.Errorf("end_time %.1f is before start_time %.1f", in.EndTime, in.StartTime)
	}
	if in.Title == "" {
		in.Title = in.VideoID
	}
	return in, nil
}

func (t *tools) clipDownload(ctx context.Context, _ *mcp.CallToolRequest, in ClipInput) (*mcp.CallToolResult, ClipDownloadOutput, error) {
	in, err := t.resolveClip(ctx, in)
	if err != nil {
		return nil, ClipDownloadOutput{}, err
	}
	link := clips.GenerateClipURL(in.VideoID, in.StartTime, in.EndTime)
	shared, path, err := t.Clips.DownloadClip(ctx, clips.Options{
		VideoID: in.VideoID, Start: in.StartTime, End: in.EndTime, Title: in.Title,
	})
	if err != nil && path == "" {
		return nil, ClipDownloadOutput{}, fmt.Errorf("Failed to download clip: %w", err) //nolint:staticcheck // user-facing text
	}
	out := ClipDownloadOutput{Shared: shared, Path: path, URL: link}
	if shared {
		out.Message = "Clip shared successfully"
	} else {
		out.Message = "Clip URL generated. You can download it from YouTube."
	}
	return nil, out, nil
}

func (t *tools) clipURL(_ context.Context, _ *mcp.CallToolRequest, in ClipInput) (*mcp.CallToolResult, ClipURLOutput, error) {
	if in.VideoID == "" {
		return nil, ClipURLOutput{}, errors.New("video_id is required")
	}
	return nil, ClipURLOutput{URL: clips.GenerateClipURL(in.VideoID, in.StartTime, in.EndTime)}, nil
}

func (t *tools) clipMetadataExport(ctx context.Context, _ *mcp.CallToolRequest, in ClipInput) (*mcp.CallToolResult, ClipMetadataExportOutput, error) {
	in, err := t.resolveClip(ctx, in)
	if err != nil {
		return nil, ClipMetadataExportOutput{}, err
	}
	path, err := t.Clips.ExportClipMetadata(ctx, clips.Options{
		VideoID: in.VideoID, Start: in.StartTime, End: in.EndTime, Title: in.Title,
	}, in.Summary)
	if err != nil {
		return nil, ClipMetadataExportOutput{}, err
	}
	return nil, ClipMetadataExportOutput{Exported: true, Path: path}, nil
}
