package engine

import "time"

// VideoStatus is the analysis state of one queued video.
type VideoStatus string

const (
	VideoPending   VideoStatus = "pending"
	VideoAnalyzing VideoStatus = "analyzing"
	VideoCompleted VideoStatus = "completed"
	VideoError     VideoStatus = "error"
)

// IsFinished reports whether the video will not change state again.
func (s VideoStatus) IsFinished() bool {
	return s == VideoCompleted || s == VideoError
}

// Progress checkpoints reported while a video moves through the pipeline.
const (
	ProgressQueued    = 0
	ProgressAnalyzing = 10
	ProgressAnalyzed  = 80
	ProgressDone      = 100
)

// HighlightType tags what kind of moment a highlight is.
type HighlightType string

const (
	HighlightFunny        HighlightType = "funny"
	HighlightEmotional    HighlightType = "emotional"
	HighlightMotivational HighlightType = "motivational"
	HighlightQuote        HighlightType = "quote"
	HighlightVisual       HighlightType = "visual"
	HighlightAction       HighlightType = "action"
)

// HighlightTypes lists every accepted highlight type.
var HighlightTypes = []HighlightType{
	HighlightFunny, HighlightEmotional, HighlightMotivational,
	HighlightQuote, HighlightVisual, HighlightAction,
}

// ParseHighlightType maps a model-supplied tag to a known type.
// Empty or unknown tags become visual.
func ParseHighlightType(s string) HighlightType {
	for _, t := range HighlightTypes {
		if string(t) == s {
			return t
		}
	}
	return HighlightVisual
}

// View is the stage of the input → dashboard → highlights flow a session is on.
type View string

const (
	ViewInput      View = "input"
	ViewDashboard  View = "dashboard"
	ViewHighlights View = "highlights"
)

// VideoMetadata is the subset of YouTube video data the analyzer needs.
type VideoMetadata struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Thumbnail    string `json:"thumbnail"`
	Duration     int    `json:"duration"` // seconds
	ChannelTitle string `json:"channel_title"`
	PublishedAt  string `json:"published_at"`
	ViewCount    int64  `json:"view_count,omitempty"`
}

// Video is one entry of a session's analysis queue.
type Video struct {
	VideoMetadata
	URL      string          `json:"url"`
	Status   VideoStatus     `json:"status"`
	Progress int             `json:"progress"` // 0–100
	Error    string          `json:"error,omitempty"`
	Analysis *AnalysisResult `json:"analysis,omitempty"`
}

// Segment is a highlight as returned by the analyzer, relative to one video.
type Segment struct {
	StartTime  float64       `json:"start_time"`
	EndTime    float64       `json:"end_time"`
	Type       HighlightType `json:"type"`
	Confidence float64       `json:"confidence"`
	Summary    string        `json:"summary"`
	Keywords   []string      `json:"keywords"`
}

// AnalysisResult is the analyzer output for one video.
type AnalysisResult struct {
	Highlights []Segment `json:"highlights"`
	Summary    string    `json:"summary"`
	Keywords   []string  `json:"keywords"`
	Hashtags   []string  `json:"hashtags"`
	Fallback   bool      `json:"fallback"` // true when produced without the model
}

// Highlight is a segment bound to its video, as listed in session results.
type Highlight struct {
	ID         string        `json:"id"` // "{videoID}-{index}"
	VideoID    string        `json:"video_id"`
	StartTime  float64       `json:"start_time"`
	EndTime    float64       `json:"end_time"`
	Duration   float64       `json:"duration"`
	Type       HighlightType `json:"type"`
	Confidence float64       `json:"confidence"`
	Summary    string        `json:"summary"`
	Keywords   []string      `json:"keywords"`
}

// SessionState is the lifecycle of one analysis run.
type SessionState string

const (
	SessionRunning     SessionState = "running"
	SessionCompleted   SessionState = "completed"
	SessionCancelled   SessionState = "cancelled"
	SessionInterrupted SessionState = "interrupted" // process exited mid-run
)

// Session is one batch of pasted links and everything derived from it.
type Session struct {
	ID         string       `json:"id"`
	View       View         `json:"view"`
	State      SessionState `json:"state"`
	Videos     []Video      `json:"videos"`
	Highlights []Highlight  `json:"highlights"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Analyzing reports whether the session is still working through its queue.
func (s *Session) Analyzing() bool { return s.State == SessionRunning }

// SessionSummary is a session row without its videos and highlights.
type SessionSummary struct {
	ID             string       `json:"id"`
	View           View         `json:"view"`
	State          SessionState `json:"state"`
	VideoCount     int          `json:"video_count"`
	HighlightCount int          `json:"highlight_count"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
