// Package capture produces page snapshots for the detection pipeline,
// either with a plain HTTP GET or through a stealth headless browser
// when the banner is injected by script.
package capture

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/cmpmap/consent"
	"github.com/hazyhaar/cmpmap/idgen"
)

// captureID labels snapshots in their metadata.
var captureID = idgen.Prefixed("cap_", idgen.Default)

// Capturer turns a URL into a Snapshot.
type Capturer interface {
	Capture(ctx context.Context, pageURL string) (*consent.Snapshot, error)
}

// Harvest collects inline script and style bodies from markup. External
// scripts contribute their src URL, which is where most consent platforms
// reveal themselves.
func Harvest(markup string) (scripts, styles []string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, nil
	}
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && strings.TrimSpace(src) != "" {
			scripts = append(scripts, strings.TrimSpace(src))
		}
		if body := strings.TrimSpace(s.Text()); body != "" {
			scripts = append(scripts, body)
		}
	})
	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		if body := strings.TrimSpace(s.Text()); body != "" {
			styles = append(styles, body)
		}
	})
	doc.Find(`link[rel="stylesheet"][href]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href = strings.TrimSpace(href); href != "" {
			styles = append(styles, href)
		}
	})
	return scripts, styles
}

// MentionsConsent reports whether raw markup carries any consent vocabulary
// at all. Pages without it are worth a browser pass because their banner is
// likely injected later.
func MentionsConsent(markup string) bool {
	lower := strings.ToLower(markup)
	for _, w := range []string{"cookie", "consent", "gdpr", "cmp"} {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
