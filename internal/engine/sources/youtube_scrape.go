package sources

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/anatolykoptev/go_highlight/internal/engine"
)

// watchPageBase is the watch URL prefix; tests point it at an httptest server.
var watchPageBase = "https://www.youtube.com/watch?v="

// ScrapeVideoMetadata reads the schema.org and Open Graph meta tags of the watch page.
// Used when no Data API key is configured.
func ScrapeVideoMetadata(ctx context.Context, videoID string) (*engine.VideoMetadata, error) {
	engine.IncrMetadataScrapes()
	body, err := engine.FetchPage(ctx, watchPageBase+videoID)
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}
	meta, err := parseWatchPageMeta(body)
	if err != nil {
		return nil, err
	}
	meta.ID = videoID
	return meta, nil
}

// parseWatchPageMeta extracts metadata from watch-page HTML.
func parseWatchPageMeta(body []byte) (*engine.VideoMetadata, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse watch page: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	attr := func(selectors ...string) string {
		for _, sel := range selectors {
			if v, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}

	title := attr(`meta[name="title"]`, `meta[property="og:title"]`, `meta[itemprop="name"]`)
	if title == "" {
		return nil, ErrVideoNotFound
	}
	views, _ := strconv.ParseInt(attr(`meta[itemprop="interactionCount"]`), 10, 64)

	return &engine.VideoMetadata{
		Title:        title,
		Description:  attr(`meta[property="og:description"]`, `meta[name="description"]`),
		Thumbnail:    attr(`meta[property="og:image"]`),
		Duration:     ParseISODuration(attr(`meta[itemprop="duration"]`)),
		ChannelTitle: channelName(doc),
		PublishedAt:  attr(`meta[itemprop="datePublished"]`, `meta[itemprop="uploadDate"]`),
		ViewCount:    views,
	}, nil
}

// channelName reads the author block: <span itemprop="author"><link itemprop="name" content="…">.
func channelName(doc *goquery.Document) string {
	name, _ := doc.Find(`[itemprop="author"] link[itemprop="name"]`).First().Attr("content")
	return strings.TrimSpace(name)
}
