package highlights

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/anatolykoptev/go_highlight/internal/engine"
)

const (
	minClipSeconds     = 15
	defaultEndSeconds  = 30
	defaultConfidence  = 0.8
	maxSegmentKeywords = 5
	maxKeywords        = 10
	maxHashtags        = 5

	defaultSegmentSummary = "Engaging moment"
	defaultSummary        = "Video analysis complete"
)

var errNoJSON = errors.New("no JSON object in model output")

// modelResponse mirrors the schema in the prompt. Fields are loosely typed:
// models return numbers as strings and omit or null fields freely.
type modelResponse struct {
	Highlights any `json:"highlights"`
	Summary    any `json:"summary"`
	Keywords   any `json:"keywords"`
	Hashtags   any `json:"hashtags"`
}

// parseResponse extracts and sanitises the model's JSON answer.
// Missing, zero, and empty values all take the defaults.
func parseResponse(raw string, duration int) (*engine.AnalysisResult, error) {
	obj, ok := engine.ExtractJSONObject(raw)
	if !ok {
		return nil, errNoJSON
	}
	var resp modelResponse
	if err := json.Unmarshal([]byte(obj), &resp); err != nil {
		return nil, fmt.Errorf("decode model output: %w", err)
	}

	var items []any
	switch h := resp.Highlights.(type) {
	case nil:
	case []any:
		items = h
	default:
		return nil, fmt.Errorf("highlights is %T, not a list", h)
	}

	dur := float64(duration)
	segments := make([]engine.Segment, 0, len(items))
	for i, it := range items {
		// A null entry has no fields to read. Any other non-object reads as
		// an object with every field missing.
		if it == nil {
			return nil, fmt.Errorf("highlight %d is null", i)
		}
		h, _ := it.(map[string]any)
		start := orNumber(h["startTime"], 0)
		end := orNumber(h["endTime"], defaultEndSeconds)
		segments = append(segments, engine.Segment{
			StartTime:  max(0, min(start, dur-minClipSeconds)),
			EndTime:    max(minClipSeconds, min(end, dur)),
			Type:       engine.ParseHighlightType(asString(h["type"])),
			Confidence: min(1, max(0, orNumber(h["confidence"], defaultConfidence))),
			Summary:    orString(h["summary"], defaultSegmentSummary),
			Keywords:   stringList(h["keywords"], maxSegmentKeywords),
		})
	}

	return &engine.AnalysisResult{
		Highlights: segments,
		Summary:    orString(resp.Summary, defaultSummary),
		Keywords:   stringList(resp.Keywords, maxKeywords),
		Hashtags:   stringList(resp.Hashtags, maxHashtags),
	}, nil
}

// orNumber returns v as a number, or def when v is missing, zero, or not numeric.
func orNumber(v any, def float64) float64 {
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case string:
		n, _ = strconv.ParseFloat(x, 64)
	}
	if n == 0 || n != n { // zero or NaN
		return def
	}
	return n
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}

func orString(v any, def string) string {
	if s := asString(v); s != "" {
		return s
	}
	return def
}

// stringList keeps the first limit entries of a JSON array. Non-arrays yield an empty list.
func stringList(v any, limit int) []string {
	arr, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, min(len(arr), limit))
	for _, e := range arr {
		if len(out) == limit {
			break
		}
		out = append(out, asString(e))
	}
	return out
}
