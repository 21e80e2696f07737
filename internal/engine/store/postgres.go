package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anatolykoptev/go_highlight/internal/engine"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// Postgres is the shared Store used when DATABASE_URL is set.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres creates a pgx pool, runs schema migrations and marks sessions
// left running by a previous process as interrupted.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if n, err := p.markInterrupted(ctx); err != nil {
		slog.Warn("store: mark interrupted sessions failed", slog.Any("error", err))
	} else if n > 0 {
		slog.Info("store: marked interrupted sessions", slog.Int64("count", n))
	}
	slog.Info("store: postgres connected", slog.String("addr", config.ConnConfig.Host))
	return p, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// migrate re-applies every schema file; they are written to be idempotent.
func (p *Postgres) migrate(ctx context.Context) error {
	entries, err := postgresMigrations.ReadDir("migrations/postgres")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		data, err := postgresMigrations.ReadFile("migrations/postgres/" + e.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", e.Name(), err)
		}
		if _, err := p.pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("execute %s: %w", e.Name(), err)
		}
	}
	return nil
}

func (p *Postgres) markInterrupted(ctx context.Context) (int64, error) {
	if _, err := p.pool.Exec(ctx,
		`UPDATE highlight_videos SET status = $1, error = $2
		 WHERE status = $3 AND session_id IN (SELECT id FROM highlight_sessions WHERE state = $4)`,
		engine.VideoError, interruptedError, engine.VideoAnalyzing, engine.SessionRunning); err != nil {
		return 0, err
	}
	tag, err := p.pool.Exec(ctx,
		`UPDATE highlight_sessions SET state = $1, view = $2, updated_at = now() WHERE state = $3`,
		engine.SessionInterrupted, engine.ViewHighlights, engine.SessionRunning)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) SaveSession(ctx context.Context, sess *engine.Session) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO highlight_sessions (id, view, state, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE SET view = EXCLUDED.view, state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`,
			sess.ID, sess.View, sess.State, sess.CreatedAt, sess.UpdatedAt); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		for _, q := range []string{
			"DELETE FROM highlight_videos WHERE session_id = $1",
			"DELETE FROM highlight_clips WHERE session_id = $1",
		} {
			if _, err := tx.Exec(ctx, q, sess.ID); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
		}
		for i, v := range sess.Videos {
			analysis, err := encodeAnalysis(v.Analysis)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO highlight_videos (session_id, position, video_id, url, title, description, thumbnail,
				 duration, channel_title, published_at, view_count, status, progress, error, analysis)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
				sess.ID, i, v.ID, v.URL, v.Title, v.Description, v.Thumbnail, v.Duration,
				v.ChannelTitle, v.PublishedAt, v.ViewCount, v.Status, v.Progress, v.Error, analysis); err != nil {
				return fmt.Errorf("save video %d: %w", i, err)
			}
		}
		return insertHighlightsPG(ctx, tx, sess.ID, sess.Highlights)
	})
}

func insertHighlightsPG(ctx context.Context, tx pgx.Tx, sessionID string, hs []engine.Highlight) error {
	for _, h := range hs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO highlight_clips (session_id, id, video_id, start_time, end_time, duration, type, confidence, summary, keywords)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (session_id, id) DO UPDATE SET video_id = EXCLUDED.video_id,
			   start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time, duration = EXCLUDED.duration,
			   type = EXCLUDED.type, confidence = EXCLUDED.confidence, summary = EXCLUDED.summary,
			   keywords = EXCLUDED.keywords`,
			sessionID, h.ID, h.VideoID, h.StartTime, h.EndTime, h.Duration, h.Type, h.Confidence,
			h.Summary, encodeStrings(h.Keywords)); err != nil {
			return fmt.Errorf("save highlight %s: %w", h.ID, err)
		}
	}
	return nil
}

func (p *Postgres) UpdateVideo(ctx context.Context, sessionID string, position int, v engine.Video) error {
	analysis, err := encodeAnalysis(v.Analysis)
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx,
		`UPDATE highlight_videos SET status = $1, progress = $2, error = $3, analysis = $4
		 WHERE session_id = $5 AND position = $6`,
		v.Status, v.Progress, v.Error, analysis, sessionID, position)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	_, err = p.pool.Exec(ctx, `UPDATE highlight_sessions SET updated_at = now() WHERE id = $1`, sessionID)
	return err
}

func (p *Postgres) SaveHighlights(ctx context.Context, sessionID, videoID string, hs []engine.Highlight) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM highlight_clips WHERE session_id = $1 AND video_id = $2`, sessionID, videoID); err != nil {
			return fmt.Errorf("clear highlights: %w", err)
		}
		if err := insertHighlightsPG(ctx, tx, sessionID, hs); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE highlight_sessions SET updated_at = now() WHERE id = $1`, sessionID)
		return err
	})
}

func (p *Postgres) FinishSession(ctx context.Context, sessionID string, state engine.SessionState, view engine.View) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE highlight_sessions SET state = $1, view = $2, updated_at = now() WHERE id = $3`,
		state, view, sessionID)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetSession(ctx context.Context, id string) (*engine.Session, error) {
	var sess engine.Session
	err := p.pool.QueryRow(ctx,
		`SELECT id, view, state, created_at, updated_at FROM highlight_sessions WHERE id = $1`, id).
		Scan(&sess.ID, &sess.View, &sess.State, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT video_id, url, title, description, thumbnail, duration, channel_title, published_at,
		 view_count, status, progress, error, analysis FROM highlight_videos WHERE session_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("get videos: %w", err)
	}
	sess.Videos = []engine.Video{}
	for rows.Next() {
		var v engine.Video
		var analysis []byte
		if err := rows.Scan(&v.ID, &v.URL, &v.Title, &v.Description, &v.Thumbnail, &v.Duration,
			&v.ChannelTitle, &v.PublishedAt, &v.ViewCount, &v.Status, &v.Progress, &v.Error, &analysis); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan video: %w", err)
		}
		if v.Analysis, err = decodeAnalysis(analysis); err != nil {
			rows.Close()
			return nil, err
		}
		sess.Videos = append(sess.Videos, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hrows, err := p.pool.Query(ctx,
		`SELECT id, video_id, start_time, end_time, duration, type, confidence, summary, keywords
		 FROM highlight_clips WHERE session_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("get highlights: %w", err)
	}
	defer hrows.Close()
	sess.Highlights = []engine.Highlight{}
	for hrows.Next() {
		var h engine.Highlight
		var keywords []byte
		if err := hrows.Scan(&h.ID, &h.VideoID, &h.StartTime, &h.EndTime, &h.Duration, &h.Type,
			&h.Confidence, &h.Summary, &keywords); err != nil {
			return nil, fmt.Errorf("scan highlight: %w", err)
		}
		h.Keywords = decodeStrings(keywords)
		sess.Highlights = append(sess.Highlights, h)
	}
	return &sess, hrows.Err()
}

func (p *Postgres) ListSessions(ctx context.Context, limit int) ([]engine.SessionSummary, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT s.id, s.view, s.state, s.created_at, s.updated_at,
		   (SELECT COUNT(*) FROM highlight_videos v WHERE v.session_id = s.id),
		   (SELECT COUNT(*) FROM highlight_clips h WHERE h.session_id = s.id)
		 FROM highlight_sessions s ORDER BY s.created_at DESC LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()
	out := []engine.SessionSummary{}
	for rows.Next() {
		var sum engine.SessionSummary
		var videos, clips int64
		if err := rows.Scan(&sum.ID, &sum.View, &sum.State, &sum.CreatedAt, &sum.UpdatedAt, &videos, &clips); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sum.VideoCount, sum.HighlightCount = int(videos), int(clips)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (p *Postgres) GetSecret(ctx context.Context, name string) (string, error) {
	var value string
	err := p.pool.QueryRow(ctx, `SELECT value FROM highlight_secrets WHERE name = $1`, name).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get secret: %w", err)
	}
	return value, nil
}

func (p *Postgres) SetSecret(ctx context.Context, name, value string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO highlight_secrets (name, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, name, value)
	if err != nil {
		return fmt.Errorf("set secret: %w", err)
	}
	return nil
}
