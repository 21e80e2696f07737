// Package session runs the paste-links → analyze → highlights flow: it turns a
// block of pasted URLs into a queue of videos and works through them one at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anatolykoptev/go_highlight/internal/engine"
	"github.com/anatolykoptev/go_highlight/internal/engine/highlights"
	"github.com/anatolykoptev/go_highlight/internal/engine/sources"
	"github.com/anatolykoptev/go_highlight/internal/engine/store"
)

var (
	ErrEmptyInput      = errors.New("Please enter at least one YouTube URL")                                                  //nolint:staticcheck // user-facing text
	ErrAPIKeyRequired  = errors.New("API Key Required: Please configure your YouTube API key in Settings to analyze real videos.") //nolint:staticcheck // user-facing text
	ErrSessionNotFound = errors.New("session not found")
	ErrNotRunning      = errors.New("session is not running")
)

// URLError reports one pasted line that did not make it into the queue.
type URLError struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

func (e URLError) Error() string { return e.Message }

// Analyzer produces highlights for one video.
type Analyzer interface {
	Analyze(ctx context.Context, req highlights.Request) (*engine.AnalysisResult, error)
}

// Event is sent to the Observer after every state change of a running session.
type Event struct {
	SessionID string
	Position  int          // index into Session.Videos; -1 for session-level events
	Video     engine.Video // zero for session-level events
	State     engine.SessionState
	View      engine.View
}

// Observer receives progress events. It is called from the run goroutine and must not block.
type Observer func(Event)

// Deps wires a Manager to its collaborators. Analyzer and Store are required.
type Deps struct {
	Analyzer Analyzer
	Store    store.Store

	// FetchMetadata defaults to sources.FetchVideoMetadata.
	FetchMetadata func(ctx context.Context, id string) (*engine.VideoMetadata, error)
	// FetchTranscript is optional; nil skips transcripts.
	FetchTranscript func(ctx context.Context, id string) (string, error)
	// CanFetchMetadata gates AddURLs. Defaults to "a YouTube key is configured or scraping is on".
	CanFetchMetadata func() bool
	Observer         Observer
}

// Manager owns all sessions of the process.
type Manager struct {
	deps Deps
	base context.Context

	mu     sync.Mutex
	active map[string]*activeRun
}

type activeRun struct {
	mu     sync.RWMutex
	sess   *engine.Session
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager returns a Manager. Background runs stop when base is cancelled.
func NewManager(base context.Context, deps Deps) *Manager {
	if deps.FetchMetadata == nil {
		deps.FetchMetadata = sources.FetchVideoMetadata
	}
	if deps.CanFetchMetadata == nil {
		deps.CanFetchMetadata = func() bool {
			return len(engine.YouTubeKeys()) > 0 || engine.Cfg.YouTubeScrapeFallback
		}
	}
	return &Manager{deps: deps, base: base, active: make(map[string]*activeRun)}
}

// SplitInput splits pasted text into trimmed, non-empty lines.
func SplitInput(input string) []string {
	var urls []string
	for _, line := range strings.Split(input, "\n") {
		if u := strings.TrimSpace(line); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// NewSession resolves every pasted URL to a queued video. Lines that fail are
// reported as URLErrors. A nil session means nothing was queued.
func (m *Manager) NewSession(ctx context.Context, input string) (*engine.Session, []URLError, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil, ErrEmptyInput
	}
	if !m.deps.CanFetchMetadata() {
		return nil, nil, ErrAPIKeyRequired
	}

	var videos []engine.Video
	var urlErrs []URLError
	for _, u := range SplitInput(input) {
		id, ok := sources.ExtractVideoID(u)
		if !ok {
			urlErrs = append(urlErrs, URLError{URL: u, Message: "Invalid YouTube URL: " + u})
			continue
		}
		meta, err := m.deps.FetchMetadata(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, urlErrs, ctx.Err()
			}
			slog.Warn("session: metadata fetch failed", slog.String("id", id), slog.Any("error", err))
			urlErrs = append(urlErrs, URLError{URL: u, Message: "Could not fetch metadata for video: " + u})
			continue
		}
		videos = append(videos, engine.Video{
			VideoMetadata: *meta,
			URL:           u,
			Status:        engine.VideoPending,
			Progress:      engine.ProgressQueued,
		})
	}
	if len(videos) == 0 {
		return nil, urlErrs, nil
	}

	now := time.Now().UTC()
	sess := &engine.Session{
		ID:         uuid.NewString(),
		View:       engine.ViewDashboard,
		State:      engine.SessionRunning,
		Videos:     videos,
		Highlights: []engine.Highlight{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := m.deps.Store.SaveSession(ctx, sess); err != nil {
		return nil, urlErrs, fmt.Errorf("save session: %w", err)
	}
	engine.IncrSessionsStarted()
	return sess, urlErrs, nil
}

// AddURLs queues the pasted URLs as a new session and starts analysing it in
// the background. It returns a snapshot of the session as queued.
func (m *Manager) AddURLs(ctx context.Context, input string) (*engine.Session, []URLError, error) {
	sess, urlErrs, err := m.NewSession(ctx, input)
	if err != nil || sess == nil {
		return nil, urlErrs, err
	}
	snapshot := cloneSession(sess)
	runCtx, cancel := context.WithCancel(m.base)
	r := m.register(sess, cancel)
	go func() {
		defer cancel()
		m.process(runCtx, r)
	}()
	return snapshot, urlErrs, nil
}

// Run analyses sess synchronously. It is what AddURLs does in the background.
func (m *Manager) Run(ctx context.Context, sess *engine.Session) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r := m.register(sess, cancel)
	m.process(ctx, r)
	return ctx.Err()
}

func (m *Manager) register(sess *engine.Session, cancel context.CancelFunc) *activeRun {
	r := &activeRun{sess: sess, cancel: cancel, done: make(chan struct{})}
	m.mu.Lock()
	m.active[sess.ID] = r
	m.mu.Unlock()
	return r
}

func (m *Manager) lookup(id string) *activeRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[id]
}

// Get returns a snapshot of the session, live when it is running.
func (m *Manager) Get(ctx context.Context, id string) (*engine.Session, error) {
	if r := m.lookup(id); r != nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		return cloneSession(r.sess), nil
	}
	sess, err := m.deps.Store.GetSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	return sess, err
}

// List returns the newest sessions first.
func (m *Manager) List(ctx context.Context, limit int) ([]engine.SessionSummary, error) {
	return m.deps.Store.ListSessions(ctx, limit)
}

// Cancel stops a running session after its current video.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	if r := m.lookup(id); r != nil {
		r.cancel()
		return nil
	}
	if _, err := m.Get(ctx, id); err != nil {
		return err
	}
	return ErrNotRunning
}

// Wait blocks until the session has finished, then returns its final state.
func (m *Manager) Wait(ctx context.Context, id string) (*engine.Session, error) {
	if r := m.lookup(id); r != nil {
		select {
		case <-r.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.Get(ctx, id)
}

func cloneSession(s *engine.Session) *engine.Session {
	c := *s
	c.Videos = make([]engine.Video, len(s.Videos))
	copy(c.Videos, s.Videos)
	c.Highlights = make([]engine.Highlight, len(s.Highlights))
	copy(c.Highlights, s.Highlights)
	return &c
}
