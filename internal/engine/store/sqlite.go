package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/anatolykoptev/go_highlight/internal/engine"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite is the single-file Store used when no database URL is configured.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path, applies pending
// migrations and marks sessions left running by a previous process as interrupted.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &SQLite{conn: conn}
	if err := s.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if n, err := s.markInterrupted(ctx); err != nil {
		slog.Warn("store: mark interrupted sessions failed", slog.Any("error", err))
	} else if n > 0 {
		slog.Info("store: marked interrupted sessions", slog.Int64("count", n))
	}
	slog.Info("store: sqlite ready", slog.String("path", path))
	return s, nil
}

func (s *SQLite) Close() error { return s.conn.Close() }

func (s *SQLite) migrate(ctx context.Context) error {
	entries, err := sqliteMigrations.ReadDir("migrations/sqlite")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if s.migrationApplied(ctx, name) {
			continue
		}
		content, err := sqliteMigrations.ReadFile("migrations/sqlite/" + name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := s.conn.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("execute %s: %w", name, err)
		}
		if _, err := s.conn.ExecContext(ctx, "INSERT INTO _migrations (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("record %s: %w", name, err)
		}
		slog.Info("store: applied migration", slog.String("name", name))
	}
	return nil
}

func (s *SQLite) migrationApplied(ctx context.Context, name string) bool {
	var one int
	if err := s.conn.QueryRowContext(ctx,
		"SELECT 1 FROM sqlite_master WHERE type='table' AND name='_migrations'").Scan(&one); err != nil {
		return false
	}
	err := s.conn.QueryRowContext(ctx, "SELECT 1 FROM _migrations WHERE name = ?", name).Scan(&one)
	return err == nil
}

func (s *SQLite) markInterrupted(ctx context.Context) (int64, error) {
	now := formatTime(time.Now())
	if _, err := s.conn.ExecContext(ctx,
		`UPDATE videos SET status = ?, error = ?
		 WHERE status = ? AND session_id IN (SELECT id FROM sessions WHERE state = ?)`,
		engine.VideoError, interruptedError, engine.VideoAnalyzing, engine.SessionRunning); err != nil {
		return 0, err
	}
	res, err := s.conn.ExecContext(ctx,
		`UPDATE sessions SET state = ?, view = ?, updated_at = ? WHERE state = ?`,
		engine.SessionInterrupted, engine.ViewHighlights, now, engine.SessionRunning)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

// nullable maps an empty payload to SQL NULL.
func nullable(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

func (s *SQLite) SaveSession(ctx context.Context, sess *engine.Session) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, view, state, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET view = excluded.view, state = excluded.state, updated_at = excluded.updated_at`,
		sess.ID, sess.View, sess.State, formatTime(sess.CreatedAt), formatTime(sess.UpdatedAt)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	for _, q := range []string{"DELETE FROM videos WHERE session_id = ?", "DELETE FROM highlights WHERE session_id = ?"} {
		if _, err := tx.ExecContext(ctx, q, sess.ID); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
	}
	for i, v := range sess.Videos {
		analysis, err := encodeAnalysis(v.Analysis)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO videos (session_id, position, video_id, url, title, description, thumbnail, duration,
			 channel_title, published_at, view_count, status, progress, error, analysis)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sess.ID, i, v.ID, v.URL, v.Title, v.Description, v.Thumbnail, v.Duration,
			v.ChannelTitle, v.PublishedAt, v.ViewCount, v.Status, v.Progress, v.Error, nullable(analysis)); err != nil {
			return fmt.Errorf("save video %d: %w", i, err)
		}
	}
	if err := insertHighlightsSQLite(ctx, tx, sess.ID, sess.Highlights); err != nil {
		return err
	}
	return tx.Commit()
}

func insertHighlightsSQLite(ctx context.Context, tx *sql.Tx, sessionID string, hs []engine.Highlight) error {
	for _, h := range hs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO highlights (session_id, id, video_id, start_time, end_time, duration, type, confidence, summary, keywords)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(session_id, id) DO UPDATE SET video_id = excluded.video_id,
			   start_time = excluded.start_time, end_time = excluded.end_time, duration = excluded.duration,
			   type = excluded.type, confidence = excluded.confidence, summary = excluded.summary,
			   keywords = excluded.keywords`,
			sessionID, h.ID, h.VideoID, h.StartTime, h.EndTime, h.Duration, h.Type, h.Confidence,
			h.Summary, string(encodeStrings(h.Keywords))); err != nil {
			return fmt.Errorf("save highlight %s: %w", h.ID, err)
		}
	}
	return nil
}

func (s *SQLite) UpdateVideo(ctx context.Context, sessionID string, position int, v engine.Video) error {
	analysis, err := encodeAnalysis(v.Analysis)
	if err != nil {
		return err
	}
	res, err := s.conn.ExecContext(ctx,
		`UPDATE videos SET status = ?, progress = ?, error = ?, analysis = ? WHERE session_id = ? AND position = ?`,
		v.Status, v.Progress, v.Error, nullable(analysis), sessionID, position)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return s.touch(ctx, sessionID)
}

func (s *SQLite) SaveHighlights(ctx context.Context, sessionID, videoID string, hs []engine.Highlight) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM highlights WHERE session_id = ? AND video_id = ?`, sessionID, videoID); err != nil {
		return fmt.Errorf("clear highlights: %w", err)
	}
	if err := insertHighlightsSQLite(ctx, tx, sessionID, hs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return s.touch(ctx, sessionID)
}

func (s *SQLite) FinishSession(ctx context.Context, sessionID string, state engine.SessionState, view engine.View) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE sessions SET state = ?, view = ?, updated_at = ? WHERE id = ?`,
		state, view, formatTime(time.Now()), sessionID)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) touch(ctx context.Context, sessionID string) error {
	_, err := s.conn.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`, formatTime(time.Now()), sessionID)
	return err
}

func (s *SQLite) GetSession(ctx context.Context, id string) (*engine.Session, error) {
	var sess engine.Session
	var created, updated string
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, view, state, created_at, updated_at FROM sessions WHERE id = ?`, id).
		Scan(&sess.ID, &sess.View, &sess.State, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	sess.CreatedAt, sess.UpdatedAt = parseTime(created), parseTime(updated)

	rows, err := s.conn.QueryContext(ctx,
		`SELECT video_id, url, title, description, thumbnail, duration, channel_title, published_at,
		 view_count, status, progress, error, analysis FROM videos WHERE session_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("get videos: %w", err)
	}
	defer rows.Close()
	sess.Videos = []engine.Video{}
	for rows.Next() {
		var v engine.Video
		var analysis sql.NullString
		if err := rows.Scan(&v.ID, &v.URL, &v.Title, &v.Description, &v.Thumbnail, &v.Duration,
			&v.ChannelTitle, &v.PublishedAt, &v.ViewCount, &v.Status, &v.Progress, &v.Error, &analysis); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		if v.Analysis, err = decodeAnalysis([]byte(analysis.String)); err != nil {
			return nil, err
		}
		sess.Videos = append(sess.Videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hrows, err := s.conn.QueryContext(ctx,
		`SELECT id, video_id, start_time, end_time, duration, type, confidence, summary, keywords
		 FROM highlights WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("get highlights: %w", err)
	}
	defer hrows.Close()
	sess.Highlights = []engine.Highlight{}
	for hrows.Next() {
		var h engine.Highlight
		var keywords string
		if err := hrows.Scan(&h.ID, &h.VideoID, &h.StartTime, &h.EndTime, &h.Duration, &h.Type,
			&h.Confidence, &h.Summary, &keywords); err != nil {
			return nil, fmt.Errorf("scan highlight: %w", err)
		}
		h.Keywords = decodeStrings([]byte(keywords))
		sess.Highlights = append(sess.Highlights, h)
	}
	return &sess, hrows.Err()
}

func (s *SQLite) ListSessions(ctx context.Context, limit int) ([]engine.SessionSummary, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT s.id, s.view, s.state, s.created_at, s.updated_at,
		   (SELECT COUNT(*) FROM videos v WHERE v.session_id = s.id),
		   (SELECT COUNT(*) FROM highlights h WHERE h.session_id = s.id)
		 FROM sessions s ORDER BY s.created_at DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()
	out := []engine.SessionSummary{}
	for rows.Next() {
		var sum engine.SessionSummary
		var created, updated string
		if err := rows.Scan(&sum.ID, &sum.View, &sum.State, &created, &updated,
			&sum.VideoCount, &sum.HighlightCount); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sum.CreatedAt, sum.UpdatedAt = parseTime(created), parseTime(updated)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLite) GetSecret(ctx context.Context, name string) (string, error) {
	var value string
	err := s.conn.QueryRowContext(ctx, `SELECT value FROM secrets WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get secret: %w", err)
	}
	return value, nil
}

func (s *SQLite) SetSecret(ctx context.Context, name, value string) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO secrets (name, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		name, value, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("set secret: %w", err)
	}
	return nil
}
