package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_highlight/internal/engine"
	"github.com/anatolykoptev/go_highlight/internal/engine/highlights"
)

// process walks the queue in order. Cancellation leaves unstarted videos pending.
func (m *Manager) process(ctx context.Context, r *activeRun) {
	defer func() {
		m.mu.Lock()
		delete(m.active, r.sess.ID)
		m.mu.Unlock()
		close(r.done)
	}()
	// Persistence outlives cancellation so the final state is always recorded.
	storeCtx := context.WithoutCancel(ctx)
	id := r.sess.ID
	start := time.Now()

	r.mu.RLock()
	count := len(r.sess.Videos)
	r.mu.RUnlock()

	for i := range count {
		if ctx.Err() != nil {
			break
		}
		m.processVideo(ctx, storeCtx, r, i)
	}

	state := engine.SessionCompleted
	if ctx.Err() != nil {
		state = engine.SessionCancelled
	}
	r.mu.Lock()
	r.sess.State = state
	r.sess.View = engine.ViewHighlights
	r.sess.UpdatedAt = time.Now().UTC()
	highlightCount := len(r.sess.Highlights)
	r.mu.Unlock()

	if err := m.deps.Store.FinishSession(storeCtx, id, state, engine.ViewHighlights); err != nil {
		slog.Warn("session: persist finish failed", slog.String("session", id), slog.Any("error", err))
	}
	m.emit(Event{SessionID: id, Position: -1, State: state, View: engine.ViewHighlights})
	slog.Info("session: finished", slog.String("session", id), slog.String("state", string(state)),
		slog.Int("videos", count), slog.Int("highlights", highlightCount),
		slog.Duration("elapsed", time.Since(start)))
}

func (m *Manager) processVideo(ctx, storeCtx context.Context, r *activeRun, i int) {
	v := m.updateVideo(storeCtx, r, i, func(v *engine.Video) {
		v.Status = engine.VideoAnalyzing
		v.Progress = engine.ProgressAnalyzing
	})

	req := highlights.Request{Title: v.Title, Description: v.Description, Duration: v.Duration}
	if m.deps.FetchTranscript != nil {
		t, err := m.deps.FetchTranscript(ctx, v.ID)
		if err != nil {
			slog.Debug("session: transcript unavailable", slog.String("id", v.ID), slog.Any("error", err))
		}
		req.Transcript = t
	}

	res, err := m.deps.Analyzer.Analyze(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			// Interrupted mid-video: put it back in the queue.
			m.updateVideo(storeCtx, r, i, func(v *engine.Video) {
				v.Status = engine.VideoPending
				v.Progress = engine.ProgressQueued
			})
			return
		}
		engine.IncrVideosFailed()
		slog.Warn("session: video failed", slog.String("session", r.sess.ID),
			slog.String("id", v.ID), slog.Any("error", err))
		m.updateVideo(storeCtx, r, i, func(v *engine.Video) {
			v.Status = engine.VideoError
			v.Error = err.Error()
		})
		return
	}

	m.updateVideo(storeCtx, r, i, func(v *engine.Video) {
		v.Analysis = res
		v.Progress = engine.ProgressAnalyzed
	})

	hs := ToHighlights(v.ID, res)
	r.mu.Lock()
	r.sess.Highlights = mergeHighlights(r.sess.Highlights, v.ID, hs)
	r.mu.Unlock()
	if err := m.deps.Store.SaveHighlights(storeCtx, r.sess.ID, v.ID, hs); err != nil {
		slog.Warn("session: persist highlights failed", slog.String("session", r.sess.ID), slog.Any("error", err))
	}

	m.updateVideo(storeCtx, r, i, func(v *engine.Video) {
		v.Status = engine.VideoCompleted
		v.Progress = engine.ProgressDone
	})
}

// updateVideo applies fn under the run lock, persists the result and notifies
// the observer. It returns the updated copy.
func (m *Manager) updateVideo(storeCtx context.Context, r *activeRun, i int, fn func(*engine.Video)) engine.Video {
	r.mu.Lock()
	fn(&r.sess.Videos[i])
	r.sess.UpdatedAt = time.Now().UTC()
	v := r.sess.Videos[i]
	id, state, view := r.sess.ID, r.sess.State, r.sess.View
	r.mu.Unlock()

	if err := m.deps.Store.UpdateVideo(storeCtx, id, i, v); err != nil {
		slog.Warn("session: persist video failed", slog.String("session", id),
			slog.Int("position", i), slog.Any("error", err))
	}
	m.emit(Event{SessionID: id, Position: i, Video: v, State: state, View: view})
	return v
}

func (m *Manager) emit(e Event) {
	if m.deps.Observer != nil {
		m.deps.Observer(e)
	}
}

// ToHighlights binds a video's segments to it, with ids "{videoID}-{index}".
func ToHighlights(videoID string, res *engine.AnalysisResult) []engine.Highlight {
	if res == nil {
		return nil
	}
	out := make([]engine.Highlight, 0, len(res.Highlights))
	for idx, s := range res.Highlights {
		out = append(out, engine.Highlight{
			ID:         fmt.Sprintf("%s-%d", videoID, idx),
			VideoID:    videoID,
			StartTime:  s.StartTime,
			EndTime:    s.EndTime,
			Duration:   s.EndTime - s.StartTime,
			Type:       s.Type,
			Confidence: s.Confidence,
			Summary:    s.Summary,
			Keywords:   s.Keywords,
		})
	}
	return out
}

// mergeHighlights drops every earlier highlight of videoID (the same video
// pasted twice) and appends hs.
func mergeHighlights(dst []engine.Highlight, videoID string, hs []engine.Highlight) []engine.Highlight {
	out := dst[:0]
	for _, h := range dst {
		if h.VideoID != videoID {
			out = append(out, h)
		}
	}
	return append(out, hs...)
}

// FilterHighlights keeps highlights of the given types (all when empty) with
// confidence at or above minConfidence.
func FilterHighlights(hs []engine.Highlight, types []engine.HighlightType, minConfidence float64) []engine.Highlight {
	want := make(map[engine.HighlightType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	out := make([]engine.Highlight, 0, len(hs))
	for _, h := range hs {
		if len(want) > 0 && !want[h.Type] {
			continue
		}
		if h.Confidence < minConfidence {
			continue
		}
		out = append(out, h)
	}
	return out
}
