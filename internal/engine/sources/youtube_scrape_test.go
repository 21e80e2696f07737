package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anatolykoptev/go_highlight/internal/engine"
)

const watchPageFixture = `<!DOCTYPE html><html><head>
<meta name="title" content="Cooking Pasta the Right Way">
<meta name="description" content="short desc">
<meta property="og:description" content="We cook pasta.">
<meta property="og:image" content="https://i.ytimg.com/vi/eeeeeeeeeee/maxresdefault.jpg">
</head><body>
<div itemscope itemtype="http://schema.org/VideoObject">
<meta itemprop="name" content="Cooking Pasta the Right Way">
<meta itemprop="duration" content="PT12M5S">
<span itemprop="author" itemscope itemtype="http://schema.org/Person"><link itemprop="name" content="Chef Lou"></span>
<meta itemprop="interactionCount" content="12345">
<meta itemprop="datePublished" content="2024-02-01">
</div></body></html>`

func TestParseWatchPageMeta(t *testing.T) {
	meta, err := parseWatchPageMeta([]byte(watchPageFixture))
	if err != nil {
		t.Fatalf("parseWatchPageMeta() error = %v", err)
	}
	if meta.Title != "Cooking Pasta the Right Way" {
		t.Errorf("Title = %q", meta.Title)
	}
	if meta.Description != "We cook pasta." {
		t.Errorf("Description = %q", meta.Description)
	}
	if meta.Duration != 725 {
		t.Errorf("Duration = %d, want 725", meta.Duration)
	}
	if meta.ChannelTitle != "Chef Lou" {
		t.Errorf("ChannelTitle = %q", meta.ChannelTitle)
	}
	if meta.ViewCount != 12345 || meta.PublishedAt != "2024-02-01" {
		t.Errorf("views/published = %d/%q", meta.ViewCount, meta.PublishedAt)
	}
}

func TestParseWatchPageMetaNoTitle(t *testing.T) {
	if _, err := parseWatchPageMeta([]byte("<html><head></head></html>")); err == nil {
		t.Error("expected error for page without title")
	}
}

func TestFetchVideoMetadataScrapeFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("v") != "eeeeeeeeeee" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(watchPageFixture))
	}))
	defer srv.Close()

	old := watchPageBase
	watchPageBase = srv.URL + "/watch?v="
	t.Cleanup(func() { watchPageBase = old })

	engine.Init(engine.Config{
		YouTubeScrapeFallback: true,
		HTTPClient:            &http.Client{Timeout: 5 * time.Second},
	})
	engine.InitCache("", time.Minute, 100, time.Minute)

	meta, err := FetchVideoMetadata(context.Background(), "eeeeeeeeeee")
	if err != nil {
		t.Fatalf("FetchVideoMetadata() error = %v", err)
	}
	if meta.ID != "eeeeeeeeeee" || meta.Duration != 725 {
		t.Errorf("got %+v", meta)
	}
}
