package engine

import (
	"context"
	"fmt"
	"net/http"

	stealth "github.com/anatolykoptev/go-stealth"
)

// Re-export stealth types and functions for engine consumers.
type BrowserClient = stealth.BrowserClient

// RetryConfig is the go-stealth retry policy used for API calls.
type RetryConfig = stealth.RetryConfig

var DefaultRetryConfig = stealth.DefaultRetryConfig

func RandomUserAgent() string         { return stealth.RandomUserAgent() }
func IsRetryableStatus(code int) bool { return stealth.IsRetryableStatus(code) }

func RetryHTTP(ctx context.Context, rc RetryConfig, fn func() (*http.Response, error)) (*http.Response, error) {
	return stealth.RetryHTTP(ctx, rc, fn)
}

// browserGet fetches pageURL through the Chrome-fingerprinted client.
// Only called when cfg.BrowserClient is set.
func browserGet(ctx context.Context, pageURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	headers := stealth.ChromeHeaders()
	headers["accept-language"] = "en-US,en;q=0.9"
	data, _, status, err := cfg.BrowserClient.Do(http.MethodGet, pageURL, headers, nil)
	if err != nil {
		return nil, fmt.Errorf("browser get: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("browser get: status %d", status)
	}
	return data, nil
}
