package locate

import (
	"testing"

	"github.com/hazyhaar/cmpmap/mapper/internal/dom"
	"github.com/hazyhaar/cmpmap/mapper/internal/lexicon"
)

func newLocator(t *testing.T) *Locator {
	t.Helper()
	lx, err := lexicon.Default()
	if err != nil {
		t.Fatalf("lexicon: %v", err)
	}
	return New(lx, nil)
}

func parse(t *testing.T, markup string) *dom.Document {
	t.Helper()
	d, err := dom.Parse(markup)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func TestLocate_AcceptRejectBanner(t *testing.T) {
	l := newLocator(t)
	doc := parse(t, `<html><body>
<div id="cookie-banner"><button id="accept-btn">Accept All</button><button id="reject-btn">Reject All</button></div>
</body></html>`)

	got := l.Locate(doc)
	if len(got) != 1 {
		t.Fatalf("candidates: got %d, want 1", len(got))
	}
	c := got[0]
	if c.Element.ID() != "cookie-banner" {
		t.Errorf("candidate id: got %q", c.Element.ID())
	}
	if c.ButtonCount != 2 || c.AcceptTexts != 1 || c.RejectTexts != 1 {
		t.Errorf("button facts: %+v", c)
	}
	// keywords 2*0.1 + buttons 2*0.05 + accept 0.2 + reject 0.2 + attr 1*0.1
	if c.Relevance < 0.799 || c.Relevance > 0.801 {
		t.Errorf("relevance: got %v, want 0.8", c.Relevance)
	}
}

func TestLocate_NoKeywords(t *testing.T) {
	l := newLocator(t)
	doc := parse(t, `<html><body>
<div class="hero"><h1>Welcome</h1><button>Sign up</button></div>
<div role="dialog"><p>Subscribe to our newsletter</p><button>Subscribe</button></div>
</body></html>`)
	if got := l.Locate(doc); len(got) != 0 {
		t.Errorf("candidates: got %d, want 0", len(got))
	}
}

func TestLocate_EmptyMarkup(t *testing.T) {
	l := newLocator(t)
	for _, markup := range []string{"", "  \n"} {
		if got := l.Locate(parse(t, markup)); len(got) != 0 {
			t.Errorf("Locate(%q): got %d candidates", markup, len(got))
		}
	}
	if got := l.Locate(nil); got != nil {
		t.Error("Locate(nil): expected nil")
	}
}

// A privacy paragraph without any control passes the lenient path. The
// confidence gate, not the locator, is what rejects it.
func TestLocate_LenientPathAdmitsPrivacyParagraph(t *testing.T) {
	l := newLocator(t)
	doc := parse(t, `<html><body>
<div class="privacy-policy"><p>Our privacy policy explains how tracking and analytics data is processed.</p></div>
</body></html>`)
	got := l.Locate(doc)
	if len(got) != 1 {
		t.Fatalf("candidates: got %d, want 1", len(got))
	}
	if got[0].Clickables != 0 {
		t.Errorf("clickables: got %d, want 0", got[0].Clickables)
	}
}

func TestLocate_RankingAndDedup(t *testing.T) {
	l := newLocator(t)
	doc := parse(t, `<html><body class="cookie-consent-open">
<p class="cookie-hint">cookie</p>
<div id="cookie-consent" class="cookie-banner" style="position: fixed; bottom: 0">
  <p>We use cookies for analytics and advertising.</p>
  <button>Accept</button><button>Reject</button><a href="/p">Manage settings</a>
</div>
</body></html>`)
	got := l.Locate(doc)
	if len(got) == 0 {
		t.Fatal("no candidates")
	}
	if got[0].Element.ID() != "cookie-consent" {
		t.Errorf("top candidate: got %q, want cookie-consent", got[0].Element.ID())
	}
	seen := map[int]bool{}
	for _, c := range got {
		if c.Element.Tag == "body" {
			t.Error("body must not be a candidate")
		}
		if seen[c.Element.Index] {
			t.Errorf("duplicate candidate at index %d", c.Element.Index)
		}
		seen[c.Element.Index] = true
	}
	for i := 1; i < len(got); i++ {
		if got[i].Relevance > got[i-1].Relevance {
			t.Errorf("not sorted at %d", i)
		}
	}
}

func TestLocate_TiesKeepDocumentOrder(t *testing.T) {
	l := newLocator(t)
	doc := parse(t, `<html><body>
<div class="cookie-a">cookie consent</div>
<div class="cookie-b">cookie consent</div>
</body></html>`)
	got := l.Locate(doc)
	if len(got) != 2 {
		t.Fatalf("candidates: got %d, want 2", len(got))
	}
	if got[0].Relevance != got[1].Relevance {
		t.Fatalf("expected tie, got %v and %v", got[0].Relevance, got[1].Relevance)
	}
	if got[0].Element.Index > got[1].Element.Index {
		t.Error("tie broken against document order")
	}
}
