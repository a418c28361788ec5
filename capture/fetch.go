package capture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/cmpmap/consent"
	"github.com/hazyhaar/cmpmap/idgen"
)

// DefaultUserAgent is sent by the HTTP fetcher.
const DefaultUserAgent = "Mozilla/5.0 (compatible; cmpmap/1.0)"

const defaultMaxBytes = 10 << 20

// Result is the outcome of an HTTP fetch.
type Result struct {
	Snapshot   *consent.Snapshot
	Sufficient bool // the body is a rendered page, no browser pass needed
	StatusCode int
}

// Fetcher performs HTTP GETs and produces Snapshots.
type Fetcher struct {
	client   *http.Client
	ua       string
	maxBytes int64
	newID    idgen.Generator
	logger   *slog.Logger
}

// FetchOption configures a Fetcher.
type FetchOption func(*Fetcher)

// WithClient sets a custom HTTP client.
func WithClient(c *http.Client) FetchOption {
	return func(f *Fetcher) { f.client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetchOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.ua = ua
		}
	}
}

// WithMaxBytes caps the body read. Default: 10MB.
func WithMaxBytes(n int64) FetchOption {
	return func(f *Fetcher) { f.maxBytes = n }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) FetchOption {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher creates a Fetcher with a 30s timeout.
func NewFetcher(opts ...FetchOption) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: 30 * time.Second},
		ua:       DefaultUserAgent,
		maxBytes: defaultMaxBytes,
		newID:    captureID,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch GETs pageURL. Non-2xx responses are errors.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("capture: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.7,fr;q=0.5,de;q=0.3")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("capture: get %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("capture: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("capture: get %s: status %d", pageURL, resp.StatusCode)
	}

	markup := string(body)
	scripts, styles := Harvest(markup)
	res := &Result{
		Snapshot: &consent.Snapshot{
			URL:        pageURL,
			Markup:     markup,
			Scripts:    scripts,
			Styles:     styles,
			CapturedAt: time.Now().UnixMilli(),
			Metadata:   map[string]string{"capture_id": f.newID(), "via": "http"},
		},
		StatusCode: resp.StatusCode,
		Sufficient: IsSufficient(body),
	}

	f.logger.Debug("capture: fetched",
		"url", pageURL, "status", resp.StatusCode,
		"size", len(body), "sufficient", res.Sufficient)
	return res, nil
}

// Capture implements Capturer.
func (f *Fetcher) Capture(ctx context.Context, pageURL string) (*consent.Snapshot, error) {
	res, err := f.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return res.Snapshot, nil
}
