package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"

	"github.com/anatolykoptev/go_highlight/internal/engine"
)

// Innertube (YouTube's internal API) request types and HTTP primitives.
// Transcript strategies built on top of them live in youtube_transcript.go.

// innertubeBase is the API root; tests point it at an httptest server.
var innertubeBase = "https://www.youtube.com/youtubei/v1"

const (
	ytWebVersion     = "2.20250222.10.00"
	ytAndroidVersion = "20.10.38"
	ytAndroidUA      = "com.google.android.youtube/" + ytAndroidVersion + " (Linux; U; Android 11) gzip"
)

// innertubeClient identifies the calling app; WEB and ANDROID differ in what they unlock.
type innertubeClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
	VisitorData       string `json:"visitorData,omitempty"`
	Hl                string `json:"hl,omitempty"`
	Gl                string `json:"gl,omitempty"`
}

type innertubeContext struct {
	Client innertubeClient `json:"client"`
}

// playerResponse is the part of /player (and ytInitialPlayerResponse) we read.
type playerResponse struct {
	Captions *struct {
		Renderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

// getTranscriptResponse is the /get_transcript payload down to the segment list.
type getTranscriptResponse struct {
	Actions []struct {
		UpdateEngagementPanelAction *struct {
			Content struct {
				TranscriptRenderer struct {
					Content struct {
						TranscriptSearchPanelRenderer struct {
							Body struct {
								TranscriptSegmentListRenderer struct {
									InitialSegments []struct {
										Segment *transcriptSegment `json:"transcriptSegmentRenderer"`
									} `json:"initialSegments"`
								} `json:"transcriptSegmentListRenderer"`
							} `json:"body"`
						} `json:"transcriptSearchPanelRenderer"`
					} `json:"content"`
				} `json:"transcriptRenderer"`
			} `json:"content"`
		} `json:"updateEngagementPanelAction"`
	} `json:"actions"`
}

type transcriptSegment struct {
	StartMs string `json:"startMs"`
	Snippet struct {
		Runs []struct {
			Text string `json:"text"`
		} `json:"runs"`
	} `json:"snippet"`
}

// newVisitorData creates a random 11-char visitor ID for WEB Innertube requests.
func newVisitorData() string {
	const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	b := make([]byte, 11)
	for i := range b {
		b[i] = chars[rand.Intn(len(chars))] //nolint:gosec // non-cryptographic use
	}
	return string(b)
}

func webClient(visitorData string) innertubeClient {
	return innertubeClient{
		ClientName:    "WEB",
		ClientVersion: ytWebVersion,
		VisitorData:   visitorData,
		Hl:            "en",
		Gl:            "US",
	}
}

func androidClient() innertubeClient {
	return innertubeClient{
		ClientName:        "ANDROID",
		ClientVersion:     ytAndroidVersion,
		AndroidSdkVersion: 30,
		Hl:                "en",
		Gl:                "US",
	}
}

// postInnertube POSTs payload to an Innertube endpoint ("next", "get_transcript", "player").
// Headers are chosen from the client name in the payload context.
func postInnertube(ctx context.Context, endpoint string, client innertubeClient, payload map[string]any) ([]byte, error) {
	payload["context"] = innertubeContext{Client: client}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	endpointURL := innertubeBase + "/" + endpoint + "?prettyPrint=false"

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "*/*")
		if client.ClientName == "ANDROID" {
			req.Header.Set("User-Agent", ytAndroidUA)
			req.Header.Set("X-Youtube-Client-Name", "3")
		} else {
			req.Header.Set("User-Agent", engine.UserAgentChrome)
			req.Header.Set("X-Youtube-Client-Name", "1")
			req.Header.Set("X-Goog-Visitor-Id", client.VisitorData)
			req.Header.Set("Origin", "https://www.youtube.com")
			req.Header.Set("Referer", "https://www.youtube.com/")
		}
		req.Header.Set("X-Youtube-Client-Version", client.ClientVersion)
		return engine.Cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("innertube %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("innertube %s: HTTP %d: %s", endpoint, resp.StatusCode, snippet)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 3*1024*1024))
}

// extractJSON extracts a complete JSON object starting at b[0] == '{' by tracking brace depth.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}
