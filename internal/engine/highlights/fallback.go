package highlights

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/anatolykoptev/go_highlight/internal/engine"
)

const (
	fallbackSpacing  = 300 // one segment per this many seconds
	fallbackMaxCount = 5
	fallbackLength   = 45
)

var fallbackTypes = []engine.HighlightType{
	engine.HighlightFunny,
	engine.HighlightEmotional,
	engine.HighlightMotivational,
	engine.HighlightQuote,
	engine.HighlightVisual,
}

// Fallback spreads evenly spaced 45-second segments over the video.
// rng drives the confidence jitter in [0.7, 0.95).
func Fallback(title string, duration int, rng *rand.Rand) *engine.AnalysisResult {
	engine.IncrFallbackAnalyses()

	var n int
	if duration > 0 {
		n = min(fallbackMaxCount, int(math.Ceil(float64(duration)/fallbackSpacing)))
	}
	dur := float64(duration)
	segments := make([]engine.Segment, 0, n)
	for i := range n {
		start := math.Floor(dur / float64(n) * float64(i))
		segments = append(segments, engine.Segment{
			StartTime:  start,
			EndTime:    min(start+fallbackLength, dur),
			Type:       fallbackTypes[i%len(fallbackTypes)],
			Confidence: 0.7 + rng.Float64()*0.25,
			Summary:    fmt.Sprintf("Highlight segment %d", i+1),
			Keywords:   []string{"highlight", "moment", "engaging"},
		})
	}

	summary := title
	if summary == "" {
		summary = defaultSummary
	}
	return &engine.AnalysisResult{
		Highlights: segments,
		Summary:    summary,
		Keywords:   []string{"video", "highlight", "moment"},
		Hashtags:   []string{"#highlight", "#viral", "#shorts"},
		Fallback:   true,
	}
}
