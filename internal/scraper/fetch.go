package scraper

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/html/charset"

	"pogocal/eventworker/logger"
	apperrors "pogocal/eventworker/pkg/errors"
)

// Fetcher retrieves a page body as UTF-8 text
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (io.Reader, error)
}

// fetchStrategy is one way of reaching the page
type fetchStrategy struct {
	name string
	url  string
}

// PageFetcher fetches pages over plain HTTP with a browser-like UA,
// falling back to a read proxy when the direct request fails. Each
// strategy gets its own timeout; when every strategy is exhausted the
// last failure propagates as a fetch error.
type PageFetcher struct {
	client      *http.Client
	proxyPrefix string
	timeout     time.Duration
	userAgent   string
	log         *logger.Logger
}

// NewPageFetcher creates a fetcher. proxyPrefix may be empty to disable
// the proxied fallback strategy.
func NewPageFetcher(proxyPrefix string, timeout time.Duration) *PageFetcher {
	return &PageFetcher{
		client:      &http.Client{Timeout: timeout},
		proxyPrefix: proxyPrefix,
		timeout:     timeout,
		userAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		log:         logger.ForScraper(),
	}
}

// Fetch tries each strategy in order until one succeeds or all fail
func (f *PageFetcher) Fetch(ctx context.Context, pageURL string) (io.Reader, error) {
	strategies := []fetchStrategy{
		{name: "direct", url: pageURL},
	}
	if f.proxyPrefix != "" {
		strategies = append(strategies, fetchStrategy{
			name: "proxy",
			url:  f.proxyPrefix + url.QueryEscape(pageURL),
		})
	}

	var lastErr error
	for i, strategy := range strategies {
		f.log.Debug().
			Str("strategy", strategy.name).
			Int("attempt", i+1).
			Int("total", len(strategies)).
			Msg("Trying fetch strategy")

		body, err := f.fetchOnce(ctx, strategy.url)
		if err == nil {
			f.log.Debug().Str("strategy", strategy.name).Msg("Fetch strategy succeeded")
			return body, nil
		}

		f.log.Warn().
			Str("strategy", strategy.name).
			Err(err).
			Msg("Fetch strategy failed")
		lastErr = err

		if errors.Is(ctx.Err(), context.Canceled) {
			break
		}
	}

	if apperrors.IsTimeout(lastErr) {
		return nil, apperrors.NewTimeout("all fetch strategies failed", lastErr)
	}
	return nil, apperrors.NewFetch("all fetch strategies failed", statusOf(lastErr), lastErr)
}

// fetchOnce performs a single request with its own deadline and converts
// the body to UTF-8
func (f *PageFetcher) fetchOnce(ctx context.Context, requestURL string) (io.Reader, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, apperrors.NewFetch("failed to create request", 0, err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "es-ES,es;q=0.9,en;q=0.7")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(reqCtx, err) {
			return nil, apperrors.NewTimeout("request timeout", err)
		}
		return nil, apperrors.NewFetch("request failed", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewFetch("unexpected status code", resp.StatusCode, nil)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(reqCtx, err) {
			return nil, apperrors.NewTimeout("request timeout reading body", err)
		}
		return nil, apperrors.NewFetch("failed to read response body", 0, err)
	}

	// Convert to UTF-8 when the page declares another encoding
	encoding, name, _ := charset.DetermineEncoding(bodyBytes, resp.Header.Get("Content-Type"))
	if name == "utf-8" || name == "UTF-8" {
		return bytes.NewReader(bodyBytes), nil
	}

	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(bodyBytes))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, apperrors.NewFetch("failed to convert body to UTF-8", 0, err)
	}
	return &buf, nil
}

// isTimeout distinguishes deadline expiry from other transport failures
func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func statusOf(err error) int {
	var se *apperrors.ScrapeError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
