package sources

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// YouTube support is split across files by responsibility:
//   youtube.go             URL parsing, watch links, ISO 8601 durations
//   youtube_metadata.go    Data API v3 videos endpoint with fallback key + cache
//   youtube_scrape.go      watch-page meta tag scraping when no API key is set
//   youtube_innertube.go   Innertube request types and HTTP primitives
//   youtube_transcript.go  transcript fetching (watch page, engagement panel, ANDROID player)

// videoIDPatterns are tried in order; the first match wins.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/v/([a-zA-Z0-9_-]{11})`),
}

// ExtractVideoID pulls the 11-char video ID from a watch, short, embed or /v/ URL.
func ExtractVideoID(rawURL string) (string, bool) {
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(rawURL); len(m) >= 2 {
			return m[1], true
		}
	}
	return "", false
}

// WatchURL links to a video starting at startSeconds (floored).
func WatchURL(videoID string, startSeconds float64) string {
	start := int64(math.Floor(startSeconds))
	if start < 0 {
		start = 0
	}
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s&t=%ds", videoID, start)
}

var isoDurationRE = regexp.MustCompile(`P(?:(\d+)D)?T?(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// ParseISODuration converts a YouTube contentDetails duration ("PT1H2M3S") to seconds.
// Absent components count as zero; unparseable input yields 0.
func ParseISODuration(s string) int {
	m := isoDurationRE.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	units := [4]int{86400, 3600, 60, 1}
	total := 0
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0
		}
		total += n * unit
	}
	return total
}
