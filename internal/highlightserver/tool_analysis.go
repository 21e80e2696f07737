package highlightserver

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_highlight/internal/engine"
	"github.com/anatolykoptev/go_highlight/internal/engine/session"
	"github.com/anatolykoptev/go_highlight/internal/toolutil"
)

func progressRows(videos []engine.Video) []VideoProgress {
	rows := make([]VideoProgress, 0, len(videos))
	for _, v := range videos {
		rows = append(rows, VideoProgress{
			ID: v.ID, Title: v.Title, Status: v.Status, Progress: v.Progress, Error: v.Error,
		})
	}
	return rows
}

func (t *tools) analysisStart(ctx context.Context, _ *mcp.CallToolRequest, in AnalysisStartInput) (*mcp.CallToolResult, AnalysisStartOutput, error) {
	out := AnalysisStartOutput{View: engine.ViewInput, Videos: []VideoProgress{}, Errors: []session.URLError{}}

	sess, urlErrs, err := t.Sessions.AddURLs(ctx, in.URLs)
	if urlErrs != nil {
		out.Errors = urlErrs
	}
	if err != nil {
		return nil, out, err
	}
	if sess == nil {
		return nil, out, nil
	}
	if in.Wait {
		if sess, err = t.Sessions.Wait(ctx, sess.ID); err != nil {
			return nil, out, err
		}
	}
	out.SessionID = sess.ID
	out.View = sess.View
	out.Videos = progressRows(sess.Videos)
	return nil, out, nil
}

func (t *tools) getSession(ctx context.Context, id string) (*engine.Session, error) {
	if id == "" {
		return nil, errors.New("session_id is required")
	}
	return t.Sessions.Get(ctx, id)
}

func (t *tools) analysisStatus(ctx context.Context, _ *mcp.CallToolRequest, in SessionInput) (*mcp.CallToolResult, AnalysisStatusOutput, error) {
	sess, err := t.getSession(ctx, in.SessionID)
	if err != nil {
		return nil, AnalysisStatusOutput{}, err
	}
	out := AnalysisStatusOutput{
		SessionID: sess.ID,
		View:      sess.View,
		State:     sess.State,
		Analyzing: sess.Analyzing(),
		Total:     len(sess.Videos),
		Videos:    progressRows(sess.Videos),
	}
	for _, v := range sess.Videos {
		if v.Status.IsFinished() {
			out.Completed++
		}
	}
	return nil, out, nil
}

func (t *tools) analysisResults(ctx context.Context, _ *mcp.CallToolRequest, in AnalysisResultsInput) (*mcp.CallToolResult, AnalysisResultsOutput, error) {
	types, err := toolutil.ParseTypes(in.Types)
	if err != nil {
		return nil, AnalysisResultsOutput{}, err
	}
	sess, err := t.getSession(ctx, in.SessionID)
	if err != nil {
		return nil, AnalysisResultsOutput{}, err
	}
	hs := session.FilterHighlights(sess.Highlights, types, in.MinConfidence)
	return nil, AnalysisResultsOutput{
		SessionID:  sess.ID,
		View:       sess.View,
		Analyzing:  sess.Analyzing(),
		Count:      len(hs),
		Highlights: hs,
	}, nil
}

func (t *tools) analysisList(ctx context.Context, _ *mcp.CallToolRequest, in AnalysisListInput) (*mcp.CallToolResult, AnalysisListOutput, error) {
	list, err := t.Sessions.List(ctx, in.Limit)
	if err != nil {
		return nil, AnalysisListOutput{}, err
	}
	out := AnalysisListOutput{Sessions: make([]SessionRow, 0, len(list))}
	for _, s := range list {
		out.Sessions = append(out.Sessions, SessionRow{
			ID:             s.ID,
			View:           s.View,
			State:          s.State,
			VideoCount:     s.VideoCount,
			HighlightCount: s.HighlightCount,
			CreatedAt:      s.CreatedAt.Format(time.RFC3339),
			UpdatedAt:      s.UpdatedAt.Format(time.RFC3339),
		})
	}
	return nil, out, nil
}

func (t *tools) analysisCancel(ctx context.Context, _ *mcp.CallToolRequest, in SessionInput) (*mcp.CallToolResult, AnalysisCancelOutput, error) {
	if in.SessionID == "" {
		return nil, AnalysisCancelOutput{}, errors.New("session_id is required")
	}
	err := t.Sessions.Cancel(ctx, in.SessionID)
	switch {
	case errors.Is(err, session.ErrNotRunning):
		return nil, AnalysisCancelOutput{SessionID: in.SessionID}, nil
	case err != nil:
		return nil, AnalysisCancelOutput{}, err
	}
	return nil, AnalysisCancelOutput{SessionID: in.SessionID, Cancelled: true}, nil
}
