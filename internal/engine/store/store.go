// Package store persists analysis sessions and saved credentials, in SQLite by
// default or PostgreSQL when a database URL is configured.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anatolykoptev/go_highlight/internal/engine"
)

// ErrNotFound is returned when a session, video, or secret does not exist.
var ErrNotFound = errors.New("store: not found")

// interruptedError is recorded on videos that were mid-analysis when the process stopped.
const interruptedError = "interrupted by restart"

// Store is the persistence surface used by the session manager and credentials.
type Store interface {
	// SaveSession writes the session with its videos and highlights, replacing any previous copy.
	SaveSession(ctx context.Context, s *engine.Session) error
	// UpdateVideo rewrites the mutable fields of the video at position.
	UpdateVideo(ctx context.Context, sessionID string, position int, v engine.Video) error
	// SaveHighlights replaces the highlights of one video in a session with hs.
	// They are listed after every highlight saved before.
	SaveHighlights(ctx context.Context, sessionID, videoID string, hs []engine.Highlight) error
	FinishSession(ctx context.Context, sessionID string, state engine.SessionState, view engine.View) error
	GetSession(ctx context.Context, id string) (*engine.Session, error)
	// ListSessions returns the newest sessions first.
	ListSessions(ctx context.Context, limit int) ([]engine.SessionSummary, error)

	GetSecret(ctx context.Context, name string) (string, error)
	SetSecret(ctx context.Context, name, value string) error

	Close() error
}

// Open picks PostgreSQL when databaseURL is set, SQLite at sqlitePath otherwise.
func Open(ctx context.Context, databaseURL, sqlitePath string) (Store, error) {
	if databaseURL != "" {
		return OpenPostgres(ctx, databaseURL)
	}
	return OpenSQLite(ctx, sqlitePath)
}

func encodeAnalysis(a *engine.AnalysisResult) ([]byte, error) {
	if a == nil {
		return nil, nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}
	return data, nil
}

func decodeAnalysis(data []byte) (*engine.AnalysisResult, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var a engine.AnalysisResult
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	return &a, nil
}

func encodeStrings(ss []string) []byte {
	if ss == nil {
		ss = []string{}
	}
	data, _ := json.Marshal(ss)
	return data
}

func decodeStrings(data []byte) []string {
	out := []string{}
	if len(data) > 0 {
		_ = json.Unmarshal(data, &out)
	}
	return out
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}
