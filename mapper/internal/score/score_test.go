package score

import (
	"math"
	"testing"

	"github.com/hazyhaar/cmpmap/consent"
	"github.com/hazyhaar/cmpmap/mapper/internal/lexicon"
)

type fakeDoc map[string]bool

func (f fakeDoc) Resolves(sel string) bool { return f[sel] }

func newAggregator(t *testing.T) *Aggregator {
	t.Helper()
	lx, err := lexicon.Default()
	if err != nil {
		t.Fatalf("lexicon: %v", err)
	}
	return NewAggregator(lx, DefaultWeights(), DefaultThresholds())
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestStrategy_Evaluate(t *testing.T) {
	s := Strategy[int]{
		Signals: []Signal[int]{
			{Name: "double", Weight: 0.5, Fn: func(v int) float64 { return float64(2 * v) }},
			{Name: "one", Weight: 0.25, Fn: func(int) float64 { return 1 }},
		},
	}
	total, parts := s.Evaluate(3)
	if !approx(total, 3.25) {
		t.Errorf("total: got %v, want 3.25", total)
	}
	if parts["double"] != 6 || parts["one"] != 1 {
		t.Errorf("parts: got %v", parts)
	}
	s.Clamp = true
	if got := s.Score(3); got != 1 {
		t.Errorf("clamped: got %v, want 1", got)
	}
}

func TestThresholds_Level(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		c    float64
		want string
	}{
		{0.95, LevelVeryHigh},
		{0.9, LevelVeryHigh},
		{0.85, LevelHigh},
		{0.6, LevelMedium},
		{0.59, LevelLow},
	}
	for _, tt := range tests {
		if got := th.Level(tt.c); got != tt.want {
			t.Errorf("Level(%v): got %q, want %q", tt.c, got, tt.want)
		}
	}
}

func TestAggregator_AcceptRejectBanner(t *testing.T) {
	agg := newAggregator(t)
	ev := &Evidence{
		Shape:             consent.ShapeModal,
		Text:              "accept all reject all",
		ContainerSelector: "#cookie-banner",
		ContainerAttrs:    map[string]string{"id": "cookie-banner"},
		Buttons: []consent.Button{
			{Text: "Accept All", Role: consent.RoleAccept, Selector: "#accept-btn", Visible: true},
			{Text: "Reject All", Role: consent.RoleReject, Selector: "#reject-btn", Visible: true},
		},
		FragmentLen: 116,
		Doc:         fakeDoc{"#cookie-banner": true, "#accept-btn": true, "#reject-btn": true},
	}
	res := agg.Score(ev)

	wantFactors := map[string]float64{
		FactorText:       0.4 * 2.0 / 6.0,
		FactorButton:     0.8,
		FactorStructural: 0.4,
		FactorSelector:   1.0,
		FactorAttribute:  0,
	}
	for name, want := range wantFactors {
		if !approx(res.Factors[name], want) {
			t.Errorf("factor %s: got %v, want %v", name, res.Factors[name], want)
		}
	}
	if !approx(res.Confidence, 0.6033333333333334) {
		t.Errorf("confidence: got %v, want ~0.6033", res.Confidence)
	}
	if !agg.Accepted(res.Confidence) {
		t.Error("expected acceptance")
	}
	if res.Level != LevelMedium {
		t.Errorf("level: got %q", res.Level)
	}
	if res.Adjustments["button_visibility"] != 0.05 || res.Adjustments["specific_selector"] != 0.05 {
		t.Errorf("adjustments: got %v", res.Adjustments)
	}
}

func TestAggregator_Bounds(t *testing.T) {
	agg := newAggregator(t)

	empty := agg.Score(&Evidence{})
	if empty.Confidence != 0 {
		t.Errorf("empty evidence: got %v, want 0", empty.Confidence)
	}

	var buttons []consent.Button
	attrs := map[string]string{"data-action": "x", "data-consent": "x", "aria-label": "x", "role": "button"}
	doc := fakeDoc{"#x": true}
	for _, r := range consent.Roles {
		for i := 0; i < 5; i++ {
			buttons = append(buttons, consent.Button{Text: "t", Role: r, Selector: "#x", Visible: true, Attributes: attrs})
		}
	}
	full := agg.Score(&Evidence{
		Shape:             consent.ShapeModal,
		Text:              "cookie consent gdpr privacy tracking analytics advertising personalization accept agree decline reject manage settings",
		ContainerSelector: "#x",
		ContainerAttrs:    map[string]string{"data-consent": "", "data-cookie": "", "data-gdpr": "", "aria-label": "", "role": ""},
		Buttons:           buttons,
		OverlaySelectors:  []string{".overlay"},
		ExtraSelectors:    map[string]string{"onetrust": "#x"},
		FragmentLen:       5000,
		Doc:               doc,
	})
	if full.Confidence != 1 {
		t.Errorf("saturated evidence: got %v, want 1", full.Confidence)
	}
	for name, v := range full.Factors {
		if v < 0 || v > 1 {
			t.Errorf("factor %s out of bounds: %v", name, v)
		}
	}
}

func TestTextStrategy_BestLanguage(t *testing.T) {
	agg := newAggregator(t)
	de := agg.Score(&Evidence{Text: "wir verwenden cookies zur analyse und werbung. alle akzeptieren oder ablehnen"})
	en := agg.Score(&Evidence{Text: "we use cookies"})
	if de.Factors[FactorText] <= en.Factors[FactorText] {
		t.Errorf("german text factor %v should beat %v", de.Factors[FactorText], en.Factors[FactorText])
	}
}

func TestIsSpecific(t *testing.T) {
	tests := map[string]bool{
		"#banner":              true,
		`[data-cookie="x"]`:    true,
		`[aria-label="x"]`:     true,
		`[role="dialog"]`:      true,
		".cookie-banner":       false,
		"body > div":           false,
	}
	for sel, want := range tests {
		if got := IsSpecific(sel); got != want {
			t.Errorf("IsSpecific(%q): got %v, want %v", sel, got, want)
		}
	}
}
