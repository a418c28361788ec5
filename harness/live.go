package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/cmpmap/consent"
)

// Opener opens a browser tab on a URL, ready for inspection.
type Opener interface {
	Open(ctx context.Context, pageURL string) (*rod.Page, error)
}

// KeyBannerGone is the outcome key recording that no banner element is
// still rendered after the actions ran.
const KeyBannerGone = "bannerGone"

const hideJS = `(sel) => {
	let n = 0;
	for (const el of document.querySelectorAll(sel)) {
		el.style.setProperty('display', 'none', 'important');
		n++;
	}
	return n;
}`

const visibleJS = `(sel) => Array.from(document.querySelectorAll(sel)).some(
	(el) => el.offsetParent !== null || getComputedStyle(el).position === 'fixed' && getComputedStyle(el).display !== 'none'
)`

// Live replays a rule in a real tab. The snapshot supplies only the URL.
type Live struct {
	opener Opener
	logger *slog.Logger
}

// NewLive creates a Live validator using opener for tabs.
func NewLive(opener Opener, logger *slog.Logger) *Live {
	if logger == nil {
		logger = slog.Default()
	}
	return &Live{opener: opener, logger: logger}
}

func (l *Live) Validate(ctx context.Context, rule *consent.Rule, snap *consent.Snapshot) (*Report, error) {
	if rule == nil {
		return nil, ErrNilRule
	}
	if snap == nil || snap.URL == "" {
		return nil, errors.New("harness: live validation needs a URL")
	}
	page, err := l.opener.Open(ctx, snap.URL)
	if err != nil {
		return nil, fmt.Errorf("harness: open %s: %w", snap.URL, err)
	}
	defer page.Close()
	page = page.Context(ctx)

	rep := newReport(rule.Site, "live")
	for key, val := range rule.Selectors {
		ok, _, err := page.Has(val.String())
		if err != nil {
			rep.Errors = append(rep.Errors, fmt.Sprintf("%s: %v", key, err))
		}
		rep.Selectors[key] = ok
	}

	for _, a := range rule.Actions {
		sel := rule.Selectors.Get(a.Target())
		if sel == "" {
			rep.Actions[a] = false
			continue
		}
		ok, err := l.run(page, a, sel)
		if err != nil {
			rep.Errors = append(rep.Errors, fmt.Sprintf("%s: %v", a, err))
		}
		rep.Actions[a] = ok
	}

	if banner := rule.Selectors.Get(consent.KeyBanner); banner != "" {
		res, err := page.Eval(visibleJS, banner)
		if err != nil {
			rep.Errors = append(rep.Errors, fmt.Sprintf("%s: %v", KeyBannerGone, err))
		} else {
			rep.Selectors[KeyBannerGone] = !res.Value.Bool()
		}
	}

	rep.settle()
	if rep.Success && !rep.Selectors[KeyBannerGone] {
		rep.Success = false
	}
	l.logger.Debug("harness: live validation",
		"site", rule.Site, "success", rep.Success, "failed", rep.Failed())
	return rep, nil
}

func (l *Live) run(page *rod.Page, a consent.Action, sel string) (bool, error) {
	switch a {
	case consent.ActionHideBanner, consent.ActionHideOverlays:
		res, err := page.Eval(hideJS, sel)
		if err != nil {
			return false, err
		}
		return res.Value.Int() > 0, nil
	default:
		ok, el, err := page.Has(sel)
		if err != nil || !ok {
			return false, err
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return false, err
		}
		return true, nil
	}
}
