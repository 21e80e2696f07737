package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anatolykoptev/go_highlight/internal/engine"
)

const videosFixture = `{
  "items": [{
    "id": "dQw4w9WgXcQ",
    "snippet": {
      "title": "Never Gonna Give You Up",
      "description": "The official video",
      "channelTitle": "Rick Astley",
      "publishedAt": "2009-10-25T06:57:33Z",
      "thumbnails": {
        "default": {"url": "https://i.ytimg.com/vi/dQw4w9WgXcQ/default.jpg"},
        "high": {"url": "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg"}
      }
    },
    "contentDetails": {"duration": "PT3M33S"},
    "statistics": {"viewCount": "1500000000"}
  }]
}`

func initYouTube(t *testing.T, base, key, fallback string) {
	t.Helper()
	engine.Init(engine.Config{
		YouTubeAPIKey:         key,
		YouTubeAPIKeyFallback: fallback,
		YouTubeAPIBase:        base,
		HTTPClient:            &http.Client{Timeout: 5 * time.Second},
	})
	engine.InitCache("", time.Minute, 100, time.Minute)
}

func TestFetchVideoMetadata(t *testing.T) {
	var gotQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos" {
			http.NotFound(w, r)
			return
		}
		gotQuery.Store(r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(videosFixture))
	}))
	defer srv.Close()
	initYouTube(t, srv.URL, "key-1", "")

	meta, err := FetchVideoMetadata(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("FetchVideoMetadata() error = %v", err)
	}
	if meta.Title != "Never Gonna Give You Up" {
		t.Errorf("Title = %q", meta.Title)
	}
	if meta.Duration != 213 {
		t.Errorf("Duration = %d, want 213", meta.Duration)
	}
	if meta.Thumbnail != "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg" {
		t.Errorf("Thumbnail = %q, want high", meta.Thumbnail)
	}
	if meta.ChannelTitle != "Rick Astley" || meta.PublishedAt != "2009-10-25T06:57:33Z" {
		t.Errorf("channel/published = %q/%q", meta.ChannelTitle, meta.PublishedAt)
	}
	if meta.ViewCount != 1500000000 {
		t.Errorf("ViewCount = %d", meta.ViewCount)
	}

	q := gotQuery.Load().(url.Values)
	if q.Get("part") != "snippet,contentDetails,statistics" || q.Get("id") != "dQw4w9WgXcQ" || q.Get("key") != "key-1" {
		t.Errorf("unexpected query: %v", q)
	}
}

func TestFetchVideoMetadataCached(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(videosFixture))
	}))
	defer srv.Close()
	initYouTube(t, srv.URL, "key-1", "")

	for i := 0; i < 3; i++ {
		if _, err := FetchVideoMetadata(context.Background(), "dQw4w9WgXcQ"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("API calls = %d, want 1", got)
	}
}

func TestFetchVideoMetadataDefaultThumbnail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[{"snippet":{"title":"t","thumbnails":{"default":{"url":"d.jpg"}}},"contentDetails":{"duration":"PT1M"}}]}`))
	}))
	defer srv.Close()
	initYouTube(t, srv.URL, "k", "")

	meta, err := FetchVideoMetadata(context.Background(), "aaaaaaaaaaa")
	if err != nil {
		t.Fatalf("FetchVideoMetadata() error = %v", err)
	}
	if meta.Thumbnail != "d.jpg" || meta.Duration != 60 {
		t.Errorf("got thumbnail %q duration %d", meta.Thumbnail, meta.Duration)
	}
}

func TestFetchVideoMetadataNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()
	initYouTube(t, srv.URL, "k", "k2")

	_, err := FetchVideoMetadata(context.Background(), "bbbbbbbbbbb")
	if !errors.Is(err, ErrVideoNotFound) {
		t.Errorf("error = %v, want ErrVideoNotFound", err)
	}
}

func TestFetchVideoMetadataFallbackKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") == "exhausted" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"message":"quotaExceeded"}}`))
			return
		}
		_, _ = w.Write([]byte(videosFixture))
	}))
	defer srv.Close()
	initYouTube(t, srv.URL, "exhausted", "spare")

	meta, err := FetchVideoMetadata(context.Background(), "ccccccccccc")
	if err != nil {
		t.Fatalf("FetchVideoMetadata() error = %v", err)
	}
	if meta.ID != "ccccccccccc" {
		t.Errorf("ID = %q", meta.ID)
	}
}

func TestFetchVideoMetadataNoKey(t *testing.T) {
	initYouTube(t, "http://127.0.0.1:0", "", "")

	_, err := FetchVideoMetadata(context.Background(), "ddddddddddd")
	if !errors.Is(err, ErrYouTubeKeyMissing) {
		t.Errorf("error = %v, want ErrYouTubeKeyMissing", err)
	}
}
