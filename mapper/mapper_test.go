package mapper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/cmpmap/consent"
	"github.com/hazyhaar/cmpmap/dbopen"
	"github.com/hazyhaar/cmpmap/mapper/internal/dom"
	"github.com/hazyhaar/cmpmap/mapper/internal/store"
	"github.com/hazyhaar/cmpmap/sink"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestMapper(t *testing.T, opts ...Option) *Mapper {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	m, err := New(&Config{}, opts...)
	if err != nil {
		t.Fatalf("new mapper: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func detect(t *testing.T, m *Mapper, snap *consent.Snapshot) *Result {
	t.Helper()
	res, err := m.Detect(context.Background(), snap)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	return res
}

func roles(b *consent.Banner) []consent.Role {
	var out []consent.Role
	for _, btn := range b.Buttons {
		out = append(out, btn.Role)
	}
	return out
}

// WHAT: an id-labelled container with accept and reject buttons.
func TestDetect_AcceptRejectBanner(t *testing.T) {
	m := newTestMapper(t)
	res := detect(t, m, snapshot(acceptRejectBanner))

	if !res.Detected || res.Banner == nil || res.Rule == nil {
		t.Fatalf("no banner detected: %+v", res)
	}
	b := res.Banner
	if b.Shape != consent.ShapeModal {
		t.Errorf("shape: got %q, want modal", b.Shape)
	}
	if got := roles(b); !slices.Equal(got, []consent.Role{consent.RoleAccept, consent.RoleReject}) {
		t.Errorf("roles: got %v", got)
	}
	if b.Confidence < 0.6 {
		t.Errorf("confidence: got %v, want >= 0.6", b.Confidence)
	}
	if b.ContainerSelector != "#cookie-banner" {
		t.Errorf("container: got %q", b.ContainerSelector)
	}
	if res.Site != "www.example.com" || res.Rule.Site != "www.example.com" {
		t.Errorf("site: got %q / %q", res.Site, res.Rule.Site)
	}
	for _, a := range []consent.Action{consent.ActionClickReject, consent.ActionHideBanner} {
		if !slices.Contains(res.Rule.Actions, a) {
			t.Errorf("actions %v missing %s", res.Rule.Actions, a)
		}
	}
	if got := res.Rule.Selectors.Get("rejectButton"); got != "#reject-btn" {
		t.Errorf("rejectButton: got %q", got)
	}
	if res.Score == nil || res.Score.Level != "medium" {
		t.Errorf("score: %+v", res.Score)
	}
	if !res.Rule.Metadata.GeneratedAt.Equal(fixedNow) {
		t.Errorf("generated_at: got %v", res.Rule.Metadata.GeneratedAt)
	}
}

// WHAT: a close-only control with generic cookie text.
func TestDetect_CloseOnlyBanner(t *testing.T) {
	m := newTestMapper(t)
	res := detect(t, m, snapshot(closeOnlyBanner))

	if !res.Detected {
		t.Fatalf("no banner detected: candidates=%d", res.Candidates)
	}
	if got := roles(res.Banner); !slices.Equal(got, []consent.Role{consent.RoleClose}) {
		t.Errorf("roles: got %v, want [close]", got)
	}
	want := []consent.Action{consent.ActionHideBanner, consent.ActionClickClose}
	if !slices.Equal(res.Rule.Actions, want) {
		t.Errorf("actions: got %v, want %v", res.Rule.Actions, want)
	}
	if slices.Contains(res.Rule.Actions, consent.ActionClickReject) {
		t.Error("close-only banner must not click reject")
	}
	if res.Language != "en" {
		t.Errorf("language: got %q", res.Language)
	}
}

// WHAT: nothing consent-related on the page.
func TestDetect_NoConsentKeywords(t *testing.T) {
	m := newTestMapper(t)
	res := detect(t, m, snapshot(newsletterBox))
	if res.Detected || res.Banner != nil || res.Rule != nil || res.Score != nil {
		t.Errorf("unexpected detection: %+v", res)
	}
	if res.Candidates != 0 {
		t.Errorf("candidates: got %d, want 0", res.Candidates)
	}
}

// WHAT: a UUID id is never used in the container selector.
func TestDetect_UUIDContainer(t *testing.T) {
	m := newTestMapper(t)
	snap := snapshot(uuidBanner)
	res := detect(t, m, snap)
	if !res.Detected {
		t.Fatal("no banner detected")
	}
	sel := res.Banner.ContainerSelector
	if strings.Contains(sel, "123e4567") || strings.Contains(sel, "#") {
		t.Errorf("container selector uses the generated id: %q", sel)
	}
	if sel != `[data-consent="banner"], .cookie-banner` {
		t.Errorf("container: got %q", sel)
	}
	doc, err := dom.Parse(snap.Markup)
	if err != nil {
		t.Fatal(err)
	}
	if !doc.Resolves(sel) {
		t.Errorf("container selector %q does not resolve", sel)
	}
}

func TestDetect_BottomBarWithManage(t *testing.T) {
	m := newTestMapper(t)
	res := detect(t, m, snapshot(bottomBar))
	if !res.Detected {
		t.Fatal("no banner detected")
	}
	if res.Banner.Shape != consent.ShapeBottomBar {
		t.Errorf("shape: got %q", res.Banner.Shape)
	}
	want := []consent.Action{consent.ActionClickManage, consent.ActionClickAcceptNoReject, consent.ActionHideBanner}
	if !slices.Equal(res.Rule.Actions, want) {
		t.Errorf("actions: got %v, want %v", res.Rule.Actions, want)
	}
	if got := res.Rule.Selectors.Get("manageButton"); got == "" {
		t.Error("manageButton missing")
	}
}

// WHAT: the lenient candidate path admits a buttonless privacy paragraph,
// the confidence gate then rejects it.
func TestDetect_PrivacyParagraphRejected(t *testing.T) {
	m := newTestMapper(t)
	res := detect(t, m, snapshot(privacyParagraph))
	if res.Candidates == 0 {
		t.Fatal("paragraph should be a candidate")
	}
	if res.Detected {
		t.Errorf("paragraph accepted with confidence %v", res.Banner.Confidence)
	}
}

func TestDetect_VendorSelectors(t *testing.T) {
	m := newTestMapper(t)
	snap := snapshot(`<div id="onetrust-banner-sdk"><p>We use cookies for analytics and advertising. Privacy notice.</p>` +
		`<button id="accept-btn">Accept All</button><button id="reject-btn">Reject All</button></div>`)
	snap.Scripts = []string{"https://cdn.example.net/onetrust/otSDKStub.js"}

	res := detect(t, m, snap)
	if !res.Detected {
		t.Fatal("no banner detected")
	}
	if !slices.Contains(res.Vendors, "onetrust") {
		t.Errorf("vendors: got %v", res.Vendors)
	}
	if got := res.Rule.Selectors.Get("onetrustBanner"); got != "#onetrust-banner-sdk" {
		t.Errorf("onetrustBanner: got %q", got)
	}
	if res.Score.Factors["structural"] <= 0.4 {
		t.Errorf("extra selectors should raise the structural factor: %v", res.Score.Factors)
	}
}

func TestDetect_NilSnapshot(t *testing.T) {
	m := newTestMapper(t)
	if _, err := m.Detect(context.Background(), nil); !errors.Is(err, ErrNilSnapshot) {
		t.Errorf("Detect: got %v", err)
	}
	if _, err := m.DetectBanner(nil); !errors.Is(err, ErrNilSnapshot) {
		t.Errorf("DetectBanner: got %v", err)
	}
	if _, err := m.DetectBanners(nil); !errors.Is(err, ErrNilSnapshot) {
		t.Errorf("DetectBanners: got %v", err)
	}
}

func TestDetect_EmptyMarkup(t *testing.T) {
	m := newTestMapper(t)
	for _, markup := range []string{"", "   ", "<html></html>"} {
		res, err := m.Detect(context.Background(), &consent.Snapshot{URL: "https://example.com", Markup: markup})
		if err != nil {
			t.Fatalf("%q: %v", markup, err)
		}
		if res.Detected {
			t.Errorf("%q: detected a banner", markup)
		}
	}
}

func TestDetect_Idempotent(t *testing.T) {
	snap := snapshot(uuidBanner)
	a := detect(t, newTestMapper(t), snap)
	b := detect(t, newTestMapper(t), snap)
	c := detect(t, newTestMapper(t), snap)

	ja, _ := json.Marshal(a.Rule)
	for _, other := range []*Result{b, c} {
		jb, _ := json.Marshal(other.Rule)
		if string(ja) != string(jb) {
			t.Errorf("rules differ:\n%s\n%s", ja, jb)
		}
		if other.Banner.Confidence != a.Banner.Confidence {
			t.Errorf("confidence differs: %v vs %v", other.Banner.Confidence, a.Banner.Confidence)
		}
	}
}

func TestDetect_Invariants(t *testing.T) {
	m := newTestMapper(t)
	fixtures := map[string]string{
		"accept_reject": acceptRejectBanner,
		"close_only":    closeOnlyBanner,
		"newsletter":    newsletterBox,
		"uuid":          uuidBanner,
		"bottom_bar":    bottomBar,
		"privacy":       privacyParagraph,
		"combined":      closeOnlyBanner + acceptRejectBanner,
	}
	for name, body := range fixtures {
		t.Run(name, func(t *testing.T) {
			snap := snapshot(body)
			doc, err := dom.Parse(snap.Markup)
			if err != nil {
				t.Fatal(err)
			}
			dets, err := m.DetectBanners(snap)
			if err != nil {
				t.Fatal(err)
			}
			for _, d := range dets {
				c := d.Banner.Confidence
				if c < 0.6 || c > 1 {
					t.Errorf("confidence %v outside the accepted range", c)
				}
				if d.Banner.ContainerSelector == "" || !doc.Resolves(d.Banner.ContainerSelector) {
					t.Errorf("container selector %q does not resolve", d.Banner.ContainerSelector)
				}
				rule := m.GenerateRule(d.Banner)
				if len(rule.Actions) == 0 {
					t.Error("empty action list")
				}
				if !slices.Equal(rule.Actions, consent.DedupActions(rule.Actions)) {
					t.Errorf("duplicate actions: %v", rule.Actions)
				}
				seen := map[string]bool{}
				for _, b := range d.Banner.Buttons {
					if seen[b.Selector] {
						t.Errorf("duplicate button selector %q", b.Selector)
					}
					seen[b.Selector] = true
					if strings.TrimSpace(b.Text) == "" {
						t.Error("button without text")
					}
				}
			}

			top, err := m.DetectBanner(snap)
			if err != nil {
				t.Fatal(err)
			}
			if top != nil && (top.Score.Confidence < 0.6 || top.Score.Confidence > 1) {
				t.Errorf("top detection confidence %v", top.Score.Confidence)
			}
		})
	}
}

func TestDetectBanners_Ranked(t *testing.T) {
	m := newTestMapper(t)
	dets, err := m.DetectBanners(snapshot(acceptRejectBanner, closeOnlyBanner))
	if err != nil {
		t.Fatal(err)
	}
	if len(dets) != 2 {
		t.Fatalf("detections: got %d, want 2", len(dets))
	}
	if !strings.Contains(dets[0].Banner.ContainerSelector, "#cookie-notice") ||
		dets[1].Banner.ContainerSelector != "#cookie-banner" {
		t.Errorf("order: %q, %q", dets[0].Banner.ContainerSelector, dets[1].Banner.ContainerSelector)
	}
	if dets[0].Score.Confidence < dets[1].Score.Confidence {
		t.Error("detections not sorted by confidence")
	}
}

func TestDetectBanners_DropsNested(t *testing.T) {
	m := newTestMapper(t)
	dets, err := m.DetectBanners(snapshot(`<div class="consent-wrapper">` + acceptRejectBanner + `</div>`))
	if err != nil {
		t.Fatal(err)
	}
	if len(dets) != 1 || dets[0].Banner.ContainerSelector != "#cookie-banner" {
		for _, d := range dets {
			t.Logf("kept %q %.3f", d.Banner.ContainerSelector, d.Score.Confidence)
		}
		t.Fatalf("detections: got %d", len(dets))
	}
	for i, a := range dets {
		for _, b := range dets[i+1:] {
			if a.el.Contains(b.el) || b.el.Contains(a.el) {
				t.Error("overlapping detections kept")
			}
		}
	}
}

func TestDetectAll(t *testing.T) {
	m := newTestMapper(t)
	snaps := []*consent.Snapshot{
		snapshot(acceptRejectBanner),
		snapshot(newsletterBox),
		snapshot(closeOnlyBanner),
		snapshot(uuidBanner),
		snapshot(privacyParagraph),
	}
	results, err := m.DetectAll(context.Background(), snaps)
	if err != nil {
		t.Fatal(err)
	}
	want := []bool{true, false, true, true, false}
	for i, res := range results {
		if res.Detected != want[i] {
			t.Errorf("snapshot %d: detected=%v, want %v", i, res.Detected, want[i])
		}
	}

	if _, err := m.DetectAll(context.Background(), []*consent.Snapshot{snaps[0], nil}); !errors.Is(err, ErrNilSnapshot) {
		t.Errorf("nil snapshot in batch: got %v", err)
	}
}

type fakeSuggester struct {
	selectors map[string]string
	err       error
	calls     int
}

func (f *fakeSuggester) Suggest(context.Context, *consent.Banner) (map[string]string, error) {
	f.calls++
	return f.selectors, f.err
}

func TestDetect_Enrichment(t *testing.T) {
	plain := detect(t, newTestMapper(t), snapshot(acceptRejectBanner))

	s := &fakeSuggester{selectors: map[string]string{
		"acceptButton": "#something-else",
		"promoLink":    "#accept-btn",
		"ghost":        "#does-not-exist",
	}}
	res := detect(t, newTestMapper(t, WithSuggester(s)), snapshot(acceptRejectBanner))

	if s.calls != 1 {
		t.Errorf("suggester calls: got %d", s.calls)
	}
	sels := res.Rule.Selectors
	if sels.Get("promoLink") != "#accept-btn" {
		t.Errorf("resolving suggestion dropped: %v", sels)
	}
	if _, ok := sels["ghost"]; ok {
		t.Error("unresolved suggestion kept")
	}
	if sels.Get("acceptButton") != "#accept-btn" {
		t.Errorf("suggestion replaced a pipeline key: %q", sels.Get("acceptButton"))
	}
	if res.Banner.Confidence != plain.Banner.Confidence {
		t.Errorf("enrichment changed confidence: %v vs %v", res.Banner.Confidence, plain.Banner.Confidence)
	}
}

func TestDetect_EnrichmentFailureIgnored(t *testing.T) {
	s := &fakeSuggester{err: errors.New("service down")}
	res := detect(t, newTestMapper(t, WithSuggester(s)), snapshot(acceptRejectBanner))
	if !res.Detected {
		t.Fatal("enrichment failure suppressed the detection")
	}
	if len(res.Banner.ExtraSelectors) != 0 {
		t.Errorf("extra selectors: %v", res.Banner.ExtraSelectors)
	}
}

type recorder struct {
	mu          sync.Mutex
	rules       []sink.RuleDelivery
	validations []sink.ValidationDelivery
}

func (r *recorder) sink() sink.Sink {
	return sink.NewCallback(
		func(_ context.Context, d sink.RuleDelivery) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.rules = append(r.rules, d)
			return nil
		},
		func(_ context.Context, v sink.ValidationDelivery) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.validations = append(r.validations, v)
			return nil
		},
	)
}

func newStoreMapper(t *testing.T, opts ...Option) (*Mapper, *recorder) {
	t.Helper()
	n := 0
	st, err := store.New(dbopen.OpenMemory(t),
		store.WithIDGenerator(func() string { n++; return fmt.Sprintf("rule-%03d", n) }),
		store.WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	opts = append([]Option{WithStore(st), WithSink(rec.sink())}, opts...)
	return newTestMapper(t, opts...), rec
}

func TestProcess(t *testing.T) {
	m, rec := newStoreMapper(t)
	ctx := context.Background()

	res, err := m.Process(ctx, snapshot(acceptRejectBanner))
	if err != nil {
		t.Fatal(err)
	}
	if res.RuleID != "rule-001" {
		t.Errorf("rule id: got %q", res.RuleID)
	}
	if len(rec.rules) != 1 || rec.rules[0].ID != "rule-001" || rec.rules[0].Level != "medium" {
		t.Fatalf("deliveries: %+v", rec.rules)
	}

	stored, err := m.GetRule(ctx, res.RuleID)
	if err != nil || stored == nil {
		t.Fatalf("stored rule: %v, %v", stored, err)
	}
	if stored.Site != "www.example.com" || !strings.Contains(stored.Fragment, "accept-btn") {
		t.Errorf("record: %+v", stored)
	}

	none, err := m.Process(ctx, snapshot(newsletterBox))
	if err != nil {
		t.Fatal(err)
	}
	if none.RuleID != "" || len(rec.rules) != 1 {
		t.Error("absence was persisted or delivered")
	}

	latest, err := m.LatestRule(ctx, "https://www.example.com/other")
	if err != nil || latest == nil || latest.ID != "rule-001" {
		t.Errorf("latest: %+v, %v", latest, err)
	}
	list, err := m.ListRules(ctx, "", 0)
	if err != nil || len(list) != 1 {
		t.Errorf("list: %d, %v", len(list), err)
	}
}

func TestValidateRule(t *testing.T) {
	m, rec := newStoreMapper(t)
	ctx := context.Background()
	res, err := m.Process(ctx, snapshot(acceptRejectBanner))
	if err != nil {
		t.Fatal(err)
	}

	rep, err := m.ValidateRule(ctx, res.RuleID, snapshot(acceptRejectBanner))
	if err != nil {
		t.Fatal(err)
	}
	if !rep.Success || len(rep.Failed()) != 0 {
		t.Errorf("report: %+v", rep)
	}
	stored, _ := m.GetRule(ctx, res.RuleID)
	if !stored.Tested {
		t.Error("rule not marked tested")
	}

	rep, err = m.ValidateRule(ctx, res.RuleID, snapshot(newsletterBox))
	if err != nil {
		t.Fatal(err)
	}
	if rep.Success {
		t.Error("validation passed on a page without the banner")
	}

	vals, err := m.Validations(ctx, res.RuleID)
	if err != nil || len(vals) != 2 {
		t.Fatalf("validations: %d, %v", len(vals), err)
	}
	if len(rec.validations) != 2 || !rec.validations[0].Success || !rec.validations[0].Outcomes["banner"] {
		t.Errorf("validation deliveries: %+v", rec.validations)
	}

	if _, err := m.ValidateRule(ctx, "missing", snapshot(acceptRejectBanner)); err == nil {
		t.Error("expected error for unknown rule")
	}
}

func TestRuleQueries_NoStore(t *testing.T) {
	m := newTestMapper(t)
	ctx := context.Background()
	if _, err := m.GetRule(ctx, "x"); !errors.Is(err, ErrNoStore) {
		t.Errorf("GetRule: %v", err)
	}
	if _, err := m.ListRules(ctx, "", 0); !errors.Is(err, ErrNoStore) {
		t.Errorf("ListRules: %v", err)
	}
	if _, err := m.DeleteRule(ctx, "x"); !errors.Is(err, ErrNoStore) {
		t.Errorf("DeleteRule: %v", err)
	}
	if _, err := m.ValidateRule(ctx, "x", nil); !errors.Is(err, ErrNoStore) {
		t.Errorf("ValidateRule: %v", err)
	}

	// Without a store Process still detects.
	res, err := m.Process(ctx, snapshot(acceptRejectBanner))
	if err != nil || !res.Detected || res.RuleID != "" {
		t.Errorf("process: %+v, %v", res, err)
	}
}

func TestConsentOMatic(t *testing.T) {
	m, _ := newStoreMapper(t)
	ctx := context.Background()
	res, err := m.Process(ctx, snapshot(`<div class="modal-backdrop"></div>`, acceptRejectBanner))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Detected {
		t.Fatal("no banner detected")
	}
	if !res.Rule.Selectors["overlay"].IsList() {
		t.Fatalf("overlay should be a list: %v", res.Rule.Selectors)
	}
	rule, err := m.ConsentOMatic(ctx, res.RuleID)
	if err != nil || rule == nil {
		t.Fatalf("export: %v, %v", rule, err)
	}
	if rule.Selectors["overlay"].IsList() || rule.Metadata.ConsentOMaticVersion != "2.0" {
		t.Errorf("export: %+v", rule)
	}

	missing, err := m.ConsentOMatic(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("missing: %v, %v", missing, err)
	}
}

type fakeCapturer struct {
	snap *consent.Snapshot
	err  error
	urls []string
}

func (f *fakeCapturer) Capture(_ context.Context, pageURL string) (*consent.Snapshot, error) {
	f.urls = append(f.urls, pageURL)
	return f.snap, f.err
}

func TestProcessURL(t *testing.T) {
	c := &fakeCapturer{snap: snapshot(acceptRejectBanner)}
	m, _ := newStoreMapper(t, WithCapturer(c))
	ctx := context.Background()

	res, err := m.ProcessURL(ctx, "https://www.example.com/")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Detected || res.RuleID == "" {
		t.Errorf("result: %+v", res)
	}

	// A nil snapshot is captured from the rule's site.
	if _, err := m.ValidateRule(ctx, res.RuleID, nil); err != nil {
		t.Fatal(err)
	}
	if got := c.urls[len(c.urls)-1]; got != "https://www.example.com" {
		t.Errorf("validation capture url: got %q", got)
	}

	c.err = errors.New("connection refused")
	if _, err := m.ProcessURL(ctx, "https://down.example.com/"); err == nil {
		t.Error("expected capture error")
	}
}

func TestDeleteRule(t *testing.T) {
	m, _ := newStoreMapper(t)
	ctx := context.Background()
	res, _ := m.Process(ctx, snapshot(acceptRejectBanner))
	ok, err := m.DeleteRule(ctx, res.RuleID)
	if err != nil || !ok {
		t.Fatalf("delete: %v, %v", ok, err)
	}
	got, err := m.GetRule(ctx, res.RuleID)
	if err != nil || got != nil {
		t.Errorf("rule survived delete: %v, %v", got, err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cmpmap.yaml")
	data := `
db_path: /tmp/rules.db
languages: [en, fr]
workers: 8
thresholds:
  minimum: 0.65
capture:
  timeout: 10s
  browser: true
  allow_private: true
http:
  rate_limit: 30
sinks:
  stdout: true
  nats_subject: consent
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != "/tmp/rules.db" || !slices.Equal(cfg.Languages, []string{"en", "fr"}) || cfg.Workers != 8 {
		t.Errorf("config: %+v", cfg)
	}
	if !cfg.Capture.AllowPrivate || cfg.HTTP.RateLimit != 30 {
		t.Errorf("capture/http: %+v %+v", cfg.Capture, cfg.HTTP)
	}
	if cfg.Capture.Timeout != 10*time.Second || !cfg.Capture.Browser || !cfg.Sinks.Stdout {
		t.Errorf("sections: %+v %+v", cfg.Capture, cfg.Sinks)
	}

	cfg.defaults()
	if cfg.Thresholds.Minimum != 0.65 || cfg.Thresholds.High != 0.8 || cfg.MaxCandidates != 5 {
		t.Errorf("defaults: %+v", cfg.Thresholds)
	}
	if cfg.Weights.Button != 0.30 || cfg.HTTP.Addr != ":8089" {
		t.Errorf("defaults: %+v %+v", cfg.Weights, cfg.HTTP)
	}

	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestNew_UnknownLanguage(t *testing.T) {
	if _, err := New(&Config{Languages: []string{"xx"}}); err == nil {
		t.Error("expected error for unknown language pack")
	}
}
