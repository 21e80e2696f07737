package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/anatolykoptev/go_highlight/internal/engine"
)

var (
	// ErrYouTubeKeyMissing means no Data API key is configured and scraping is off.
	ErrYouTubeKeyMissing = errors.New("youtube: API key not configured")
	// ErrVideoNotFound means the Data API returned no items for the ID.
	ErrVideoNotFound = errors.New("youtube: video not found")
)

// --- YouTube Data API v3 /videos types ---

type ytVideosResp struct {
	Items []ytVideoItem `json:"items"`
}

type ytVideoItem struct {
	ID      string `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		Description  string `json:"description"`
		ChannelTitle string `json:"channelTitle"`
		PublishedAt  string `json:"publishedAt"`
		Thumbnails   struct {
			Default *ytThumb `json:"default"`
			High    *ytThumb `json:"high"`
		} `json:"thumbnails"`
	} `json:"snippet"`
	ContentDetails struct {
		Duration string `json:"duration"`
	} `json:"contentDetails"`
	Statistics struct {
		ViewCount string `json:"viewCount"`
	} `json:"statistics"`
}

type ytThumb struct {
	URL string `json:"url"`
}

// FetchVideoMetadata returns title, description, thumbnail and duration for a video.
// Uses the Data API when a key is configured (falling back to the secondary key on
// failure), otherwise the watch page when scraping is enabled.
func FetchVideoMetadata(ctx context.Context, videoID string) (*engine.VideoMetadata, error) {
	cacheKey := engine.CacheKey(engine.CacheKindMetadata, videoID)
	if meta, ok := engine.CacheLoadJSON[engine.VideoMetadata](ctx, cacheKey); ok {
		return &meta, nil
	}

	engine.IncrMetadataRequests()
	meta, err := fetchVideoMetadata(ctx, videoID)
	if err != nil {
		engine.IncrMetadataErrors()
		return nil, err
	}
	engine.CacheStoreJSON(ctx, cacheKey, *meta)
	return meta, nil
}

func fetchVideoMetadata(ctx context.Context, videoID string) (*engine.VideoMetadata, error) {
	keys := engine.YouTubeKeys()
	if len(keys) == 0 {
		if engine.Cfg.YouTubeScrapeFallback {
			return ScrapeVideoMetadata(ctx, videoID)
		}
		return nil, ErrYouTubeKeyMissing
	}

	var lastErr error
	for _, key := range keys {
		meta, err := doVideosRequest(ctx, videoID, key)
		if err == nil {
			return meta, nil
		}
		if errors.Is(err, ErrVideoNotFound) {
			return nil, err
		}
		lastErr = err
		slog.Debug("youtube data API key failed, trying fallback", slog.String("id", videoID), slog.Any("err", err))
	}
	return nil, lastErr
}

func doVideosRequest(ctx context.Context, videoID, apiKey string) (*engine.VideoMetadata, error) {
	params := url.Values{}
	params.Set("part", "snippet,contentDetails,statistics")
	params.Set("id", videoID)
	params.Set("key", apiKey)
	apiURL := engine.Cfg.YouTubeAPIBase + "/videos?" + params.Encode()

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentBot)
		req.Header.Set("Accept", "application/json")
		return engine.Cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("youtube data API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("youtube data API %d: %s", resp.StatusCode, string(body))
	}

	var result ytVideosResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode youtube data API: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, ErrVideoNotFound
	}
	return itemToMetadata(videoID, result.Items[0]), nil
}

func itemToMetadata(videoID string, item ytVideoItem) *engine.VideoMetadata {
	thumb := ""
	switch {
	case item.Snippet.Thumbnails.High != nil && item.Snippet.Thumbnails.High.URL != "":
		thumb = item.Snippet.Thumbnails.High.URL
	case item.Snippet.Thumbnails.Default != nil:
		thumb = item.Snippet.Thumbnails.Default.URL
	}
	views, _ := strconv.ParseInt(item.Statistics.ViewCount, 10, 64)
	return &engine.VideoMetadata{
		ID:           videoID,
		Title:        item.Snippet.Title,
		Description:  item.Snippet.Description,
		Thumbnail:    thumb,
		Duration:     ParseISODuration(item.ContentDetails.Duration),
		ChannelTitle: item.Snippet.ChannelTitle,
		PublishedAt:  item.Snippet.PublishedAt,
		ViewCount:    views,
	}
}
