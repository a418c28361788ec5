package selector

import (
	"slices"
	"strings"
	"testing"

	"github.com/hazyhaar/cmpmap/mapper/internal/dom"
)

func parse(t *testing.T, markup string) *dom.Document {
	t.Helper()
	d, err := dom.Parse(markup)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func TestAlternatives_IDFirst(t *testing.T) {
	s := New(Options{})
	doc := parse(t, `<div id="cookie-banner" class="banner"><button id="accept-btn">Accept All</button></div>`)

	got := s.Alternatives(doc.Query("div")[0])
	want := []string{"#cookie-banner", ".banner"}
	if !slices.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := s.Synthesize(doc.Query("button")[0]); got != "#accept-btn" {
		t.Errorf("button: got %q", got)
	}
}

func TestAlternatives_GeneratedIDSkipped(t *testing.T) {
	s := New(Options{})
	doc := parse(t, `<div id="123e4567-e89b-12d3-a456-426614174000" data-testid="123E4567-E89B-12D3-A456-426614174000" class="cookie-banner">x</div>`)

	got := s.Synthesize(doc.Query("div")[0])
	if strings.Contains(got, "#") {
		t.Errorf("selector uses generated id: %q", got)
	}
	if strings.Contains(got, "data-testid") {
		t.Errorf("selector uses generated data-testid: %q", got)
	}
	if got != ".cookie-banner" {
		t.Errorf("got %q, want .cookie-banner", got)
	}
}

func TestAlternatives_AttributeOrder(t *testing.T) {
	s := New(Options{})
	doc := parse(t, `<button role="button" aria-label="Accept cookies" data-action="accept" class="btn btn-primary">OK</button>`)

	got := s.Alternatives(doc.Query("button")[0])
	want := []string{`[data-action="accept"]`, `[aria-label="Accept cookies"]`, ".btn.btn-primary"}
	if !slices.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestAlternatives_StateAndUnstableClasses(t *testing.T) {
	s := New(Options{})
	doc := parse(t, `<div class="fade show css-1x2y cookie-modal modal-wide extra">x</div>`)

	if got := s.Synthesize(doc.Query("div")[0]); got != ".cookie-modal.modal-wide" {
		t.Errorf("got %q", got)
	}
}

func TestAlternatives_StructuralFallback(t *testing.T) {
	s := New(Options{})
	doc := parse(t, `<div class="notice bar"><p><span>x</span></p></div>`)

	if got := s.Synthesize(doc.Query("p")[0]); got != "div > p" {
		t.Errorf("p: got %q", got)
	}
	if got := s.Synthesize(doc.Query("span")[0]); got != "p > span" {
		t.Errorf("span: got %q", got)
	}
}

func TestAlternatives_Cap(t *testing.T) {
	s := New(Options{MaxAlternatives: 2})
	doc := parse(t, `<div id="c" data-consent="banner" class="cookie">x</div>`)
	if got := s.Alternatives(doc.Query("div")[0]); len(got) != 2 {
		t.Errorf("got %q, want 2 alternatives", got)
	}
}

func TestRobust_NarrowsByAncestor(t *testing.T) {
	s := New(Options{})
	doc := parse(t, `<html><body>
<div id="a"><button class="btn">Accept</button></div>
<div id="b"><button class="btn">Accept</button></div>
</body></html>`)

	second := doc.Query("button")[1]
	got := s.Robust(doc, second)
	if got != "#b > .btn" {
		t.Fatalf("got %q, want #b > .btn", got)
	}
	if !doc.Unique(got) || !doc.Matches(got, second) {
		t.Errorf("%q does not identify the button", got)
	}
}

func TestRobust_PositionalFallback(t *testing.T) {
	s := New(Options{})
	doc := parse(t, `<html><body><div><span>x</span><span>y</span></div></body></html>`)

	second := doc.Query("span")[1]
	got := s.Robust(doc, second)
	if got != "body > div:nth-of-type(1) > span:nth-of-type(2)" {
		t.Fatalf("got %q", got)
	}
	if !doc.Unique(got) || !doc.Matches(got, second) {
		t.Errorf("%q does not identify the span", got)
	}
}

func TestRobust_EscapedIdentifiers(t *testing.T) {
	s := New(Options{})
	doc := parse(t, `<div id="1banner"><button aria-label='Say "yes"'>Yes</button></div>`)

	div := doc.Query("div")[0]
	got := s.Robust(doc, div)
	if got != `#\31 banner` {
		t.Errorf("div: got %q", got)
	}
	if !doc.Unique(got) {
		t.Errorf("div selector %q does not resolve", got)
	}

	btn := s.Robust(doc, doc.Query("button")[0])
	if btn != `[aria-label="Say \"yes\""]` {
		t.Errorf("button: got %q", btn)
	}
	if !doc.Unique(btn) {
		t.Errorf("button selector %q does not resolve", btn)
	}
}

func TestOverlays(t *testing.T) {
	s := New(Options{})
	doc := parse(t, `<html><body class="cookie-overlay-open">
<div class="modal-backdrop"></div>
<div id="cookie-modal" class="cookie-overlay-content"><div class="overlay-inner"></div></div>
</body></html>`)

	container := doc.Query("#cookie-modal")[0]
	got := s.Overlays(doc, container)
	if !slices.Equal(got, []string{".modal-backdrop"}) {
		t.Errorf("got %q, want [.modal-backdrop]", got)
	}
}

func TestOverlays_None(t *testing.T) {
	s := New(Options{})
	doc := parse(t, `<div id="cookie-banner"><button>OK</button></div>`)
	if got := s.Overlays(doc, doc.Query("#cookie-banner")[0]); len(got) != 0 {
		t.Errorf("got %q", got)
	}
}

func TestProblematicID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"123e4567-E89B-12d3-a456-426614174000", true},
		{strings.Repeat("a", 101), true},
		{"12345", true},
		{"__-1", true},
		{"cookie-banner", false},
		{"banner_2", false},
	}
	for _, tt := range tests {
		if got := ProblematicID(tt.id, 100); got != tt.want {
			t.Errorf("ProblematicID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestUnstableClass(t *testing.T) {
	tests := []struct {
		class string
		want  bool
	}{
		{"btn", false},
		{"cookie-banner", false},
		{"btn-1", true},
		{"ts-timestamp", true},
		{"auto-hide", true},
		{"RandomToken", true},
		{strings.Repeat("c", 51), true},
	}
	for _, tt := range tests {
		if got := UnstableClass(tt.class, 50); got != tt.want {
			t.Errorf("UnstableClass(%q) = %v, want %v", tt.class, got, tt.want)
		}
	}
}

func TestEscapeIdent(t *testing.T) {
	tests := []struct{ in, want string }{
		{"cookie-banner", "cookie-banner"},
		{"1abc", `\31 abc`},
		{"a.b", `a\.b`},
		{"a b", `a\ b`},
		{"-", `\-`},
		{"-1a", `-\31 a`},
		{"bannière", "bannière"},
	}
	for _, tt := range tests {
		if got := EscapeIdent(tt.in); got != tt.want {
			t.Errorf("EscapeIdent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
