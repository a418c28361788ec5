package capture

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/cmpmap/consent"
)

// Auto tries HTTP first and escalates to the browser when the body is an
// SPA shell or carries no consent vocabulary.
type Auto struct {
	HTTP    *Fetcher
	Browser *Browser
	Logger  *slog.Logger
}

// Capture implements Capturer. Without a Browser the HTTP snapshot is
// returned as is.
func (a *Auto) Capture(ctx context.Context, pageURL string) (*consent.Snapshot, error) {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	res, err := a.HTTP.Fetch(ctx, pageURL)
	if err == nil && (a.Browser == nil || !NeedsBrowser(res)) {
		return res.Snapshot, nil
	}
	if a.Browser == nil {
		return nil, err
	}
	if err != nil {
		logger.Info("capture: http failed, escalating", "url", pageURL, "error", err)
	} else {
		logger.Info("capture: escalating to browser", "url", pageURL, "sufficient", res.Sufficient)
	}

	snap, berr := a.Browser.Capture(ctx, pageURL)
	if berr != nil {
		if res != nil {
			logger.Warn("capture: browser failed, keeping http snapshot", "url", pageURL, "error", berr)
			return res.Snapshot, nil
		}
		return nil, berr
	}
	return snap, nil
}

// NeedsBrowser reports whether an HTTP result should be re-captured with a
// browser.
func NeedsBrowser(res *Result) bool {
	return !res.Sufficient || !MentionsConsent(res.Snapshot.Markup)
}
