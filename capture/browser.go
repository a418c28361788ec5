package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/cmpmap/consent"
	"github.com/hazyhaar/cmpmap/idgen"
)

// DefaultWaitSelectors are polled after load: most consent platforms
// render one of them once their script has run.
var DefaultWaitSelectors = []string{
	`[id*="cookie"]`, `[class*="cookie"]`,
	`[id*="consent"]`, `[class*="consent"]`,
	`#onetrust-banner-sdk`, `#CybotCookiebotDialog`, `#didomi-host`,
	`#usercentrics-root`, `.qc-cmp2-container`,
}

// BrowserConfig configures the headless capture path.
type BrowserConfig struct {
	// RemoteURL is the DevTools WebSocket URL of an external Chrome.
	// Empty launches a local headless Chrome.
	RemoteURL string

	// NavTimeout bounds navigation and load. Default: 30s.
	NavTimeout time.Duration

	// WaitTimeout bounds the wait for a consent element after load.
	// Default: 5s.
	WaitTimeout time.Duration

	// WaitSelectors override DefaultWaitSelectors.
	WaitSelectors []string

	// Block lists resource types to refuse (images, fonts, media).
	Block []string

	Logger *slog.Logger
}

func (c *BrowserConfig) defaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = 5 * time.Second
	}
	if len(c.WaitSelectors) == 0 {
		c.WaitSelectors = DefaultWaitSelectors
	}
	if c.Block == nil {
		c.Block = []string{"images", "fonts", "media"}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Browser captures pages through a stealth tab. Chrome is started on first
// use and shared by concurrent captures.
type Browser struct {
	cfg   BrowserConfig
	newID idgen.Generator

	mu     sync.Mutex
	rod    *rod.Browser
	lnch   *launcher.Launcher
	closed bool
}

// NewBrowser creates a Browser. No process is started until the first
// capture.
func NewBrowser(cfg BrowserConfig) *Browser {
	cfg.defaults()
	return &Browser{cfg: cfg, newID: captureID}
}

func (b *Browser) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("capture: browser is closed")
	}
	if b.rod != nil {
		return b.rod, nil
	}

	wsURL := b.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("capture: launch chrome: %w", err)
		}
		wsURL = u
		b.lnch = l
		b.cfg.Logger.Info("capture: launched local chrome", "url", wsURL)
	}

	r := rod.New().ControlURL(wsURL)
	if err := r.Connect(); err != nil {
		return nil, fmt.Errorf("capture: connect chrome: %w", err)
	}
	if err := r.IgnoreCertErrors(true); err != nil {
		b.cfg.Logger.Warn("capture: ignore cert errors failed", "error", err)
	}
	b.rod = r
	return r, nil
}

// Open navigates a fresh stealth tab to pageURL and waits for a consent
// element to appear or WaitTimeout to pass. The caller closes the page.
func (b *Browser) Open(ctx context.Context, pageURL string) (*rod.Page, error) {
	r, err := b.connect()
	if err != nil {
		return nil, err
	}
	page, err := stealth.Page(r)
	if err != nil {
		return nil, fmt.Errorf("capture: create tab: %w", err)
	}
	if len(b.cfg.Block) > 0 {
		blockResources(page, b.cfg.Block)
	}

	navCtx, cancel := context.WithTimeout(ctx, b.cfg.NavTimeout)
	defer cancel()
	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("capture: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		b.cfg.Logger.Warn("capture: wait load timeout", "url", pageURL, "error", err)
	}

	if !b.waitConsent(ctx, page) {
		b.cfg.Logger.Debug("capture: no consent element appeared", "url", pageURL)
	}
	return page, nil
}

func (b *Browser) waitConsent(ctx context.Context, page *rod.Page) bool {
	sel := strings.Join(b.cfg.WaitSelectors, ", ")
	deadline := time.Now().Add(b.cfg.WaitTimeout)
	for {
		if ok, _, err := page.Context(ctx).Has(sel); err == nil && ok {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(250 * time.Millisecond):
		}
	}
}

// Capture implements Capturer.
func (b *Browser) Capture(ctx context.Context, pageURL string) (*consent.Snapshot, error) {
	page, err := b.Open(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	res, err := page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("capture: serialise dom: %w", err)
	}
	markup := res.Value.Str()
	scripts, styles := Harvest(markup)
	return &consent.Snapshot{
		URL:        pageURL,
		Markup:     markup,
		Scripts:    scripts,
		Styles:     styles,
		CapturedAt: time.Now().UnixMilli(),
		Metadata:   map[string]string{"capture_id": b.newID(), "via": "browser"},
	}, nil
}

// Close shuts Chrome down. Further captures fail.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	var err error
	if b.rod != nil {
		err = b.rod.Close()
		b.rod = nil
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
	return err
}

func blockResources(page *rod.Page, types []string) {
	block := make(map[string]bool, len(types))
	for _, t := range types {
		block[strings.ToLower(t)] = true
	}
	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if shouldBlock(block, string(h.Request.Type())) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
}

func shouldBlock(block map[string]bool, resType string) bool {
	switch t := strings.ToLower(resType); t {
	case "image":
		return block["images"]
	case "font":
		return block["fonts"]
	case "media":
		return block["media"]
	case "stylesheet":
		// Styles feed the shape classifier; never blocked.
		return false
	default:
		return block[t]
	}
}
