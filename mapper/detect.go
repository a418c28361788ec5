package mapper

import (
	"context"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/cmpmap/consent"
	"github.com/hazyhaar/cmpmap/mapper/internal/assets"
	"github.com/hazyhaar/cmpmap/mapper/internal/dom"
	"github.com/hazyhaar/cmpmap/mapper/internal/layout"
	"github.com/hazyhaar/cmpmap/mapper/internal/locate"
	"github.com/hazyhaar/cmpmap/mapper/internal/score"
)

// Detection is one accepted banner with its confidence breakdown.
type Detection struct {
	Banner    *consent.Banner `json:"banner"`
	Score     Confidence      `json:"score"`
	Relevance float64         `json:"relevance"`

	el *dom.Element
}

// Result is the outcome of a full detection pass. Banner and Rule are nil
// when no banner was detected.
type Result struct {
	URL        string          `json:"url"`
	Site       string          `json:"site"`
	Detected   bool            `json:"detected"`
	RuleID     string          `json:"rule_id,omitempty"`
	Banner     *consent.Banner `json:"banner,omitempty"`
	Rule       *consent.Rule   `json:"rule,omitempty"`
	Score      *Confidence     `json:"score,omitempty"`
	Language   string          `json:"language,omitempty"`
	Vendors    []string        `json:"vendors,omitempty"`
	Styled     bool            `json:"styled,omitempty"`
	Candidates int             `json:"candidates"`
}

// page is the per-snapshot state shared by the stages.
type page struct {
	snap   *consent.Snapshot
	doc    *dom.Document
	assets assets.Analysis
	cands  []locate.Candidate
}

func (m *Mapper) prepare(snap *consent.Snapshot) (*page, error) {
	if snap == nil {
		return nil, ErrNilSnapshot
	}
	p := &page{snap: snap}
	doc, err := dom.Parse(snap.Markup)
	if err != nil {
		// Unparsable markup is an absence, not a failure.
		m.logger.Debug("mapper: unparsable markup", "url", snap.URL, "error", err)
		return p, nil
	}
	p.doc = doc
	p.assets = assets.Analyze(doc, snap.Scripts, snap.Styles)
	p.cands = m.locator.Locate(doc)
	return p, nil
}

// evaluate runs the classifier, button, selector and confidence stages on
// one candidate.
func (m *Mapper) evaluate(p *page, c locate.Candidate) *Detection {
	el := c.Element
	container := m.syn.Robust(p.doc, el)
	fragment := el.Render()
	b := &consent.Banner{
		Site:              p.snap.Site(),
		Shape:             layout.Classify(el),
		ContainerSelector: container,
		Buttons:           m.buttons.Extract(p.doc, el),
		OverlaySelectors:  m.syn.Overlays(p.doc, el),
		RawFragment:       fragment,
		ExtraSelectors:    p.assets.Selectors,
	}
	res := m.agg.Score(&score.Evidence{
		Shape:             b.Shape,
		Text:              el.LowerText(),
		ContainerSelector: container,
		ContainerAttrs:    el.Attrs(),
		Buttons:           b.Buttons,
		OverlaySelectors:  b.OverlaySelectors,
		ExtraSelectors:    b.ExtraSelectors,
		FragmentLen:       len(fragment),
		Doc:               p.doc,
	})
	b.Confidence = res.Confidence
	return &Detection{Banner: b, Score: res, Relevance: c.Relevance, el: el}
}

// DetectBanner scores the most relevant candidate and returns it if it
// passes the confidence gate. A nil Detection means no banner.
func (m *Mapper) DetectBanner(snap *consent.Snapshot) (*Detection, error) {
	p, err := m.prepare(snap)
	if err != nil {
		return nil, err
	}
	return m.detectTop(p), nil
}

func (m *Mapper) detectTop(p *page) *Detection {
	if len(p.cands) == 0 {
		return nil
	}
	d := m.evaluate(p, p.cands[0])
	if !m.agg.Accepted(d.Score.Confidence) {
		m.logger.Debug("mapper: candidate below threshold",
			"url", p.snap.URL, "container", d.Banner.ContainerSelector,
			"confidence", d.Score.Confidence)
		return nil
	}
	return d
}

// DetectBanners scores up to MaxCandidates candidates and returns every
// accepted banner, most confident first. A candidate nested in, or
// wrapping, a more confident banner is dropped.
func (m *Mapper) DetectBanners(snap *consent.Snapshot) ([]*Detection, error) {
	p, err := m.prepare(snap)
	if err != nil {
		return nil, err
	}
	var scored []*Detection
	for i, c := range p.cands {
		if i >= m.cfg.MaxCandidates {
			break
		}
		if d := m.evaluate(p, c); m.agg.Accepted(d.Score.Confidence) {
			scored = append(scored, d)
		}
	}
	slices.SortStableFunc(scored, func(a, b *Detection) int {
		switch {
		case a.Score.Confidence > b.Score.Confidence:
			return -1
		case a.Score.Confidence < b.Score.Confidence:
			return 1
		}
		return a.el.Index - b.el.Index
	})

	var out []*Detection
	for _, d := range scored {
		overlaps := slices.ContainsFunc(out, func(k *Detection) bool {
			return k.el.Contains(d.el) || d.el.Contains(k.el)
		})
		if !overlaps {
			out = append(out, d)
		}
	}
	return out, nil
}

// GenerateRule assembles the rule for an accepted banner.
func (m *Mapper) GenerateRule(b *consent.Banner) *consent.Rule {
	return m.asm.Assemble(b)
}

// Detect runs the whole pipeline on snap. When a suggester is configured,
// resolving suggestions are added as extra selectors after acceptance.
func (m *Mapper) Detect(ctx context.Context, snap *consent.Snapshot) (*Result, error) {
	p, err := m.prepare(snap)
	if err != nil {
		return nil, err
	}
	res := &Result{
		URL:        snap.URL,
		Site:       snap.Site(),
		Vendors:    p.assets.Vendors,
		Styled:     p.assets.Styled,
		Candidates: len(p.cands),
	}

	d := m.detectTop(p)
	if d == nil {
		if p.doc != nil {
			if body := p.doc.Body(); body != nil {
				res.Language = m.lx.DetectLanguage(body.LowerText())
			}
		}
		m.logger.Debug("mapper: no banner", "url", snap.URL, "candidates", len(p.cands))
		return res, nil
	}

	banner := d.Banner
	if extra := m.suggest(ctx, p, banner); len(extra) > 0 {
		banner = banner.WithExtraSelectors(extra)
	}
	conf := d.Score
	res.Detected = true
	res.Banner = banner
	res.Score = &conf
	res.Rule = m.GenerateRule(banner)
	res.Language = m.lx.DetectLanguage(d.el.LowerText())

	m.logger.Info("mapper: banner detected",
		"site", res.Site, "shape", banner.Shape,
		"confidence", banner.Confidence, "level", conf.Level,
		"buttons", len(banner.Buttons), "container", banner.ContainerSelector)
	return res, nil
}

// suggest asks the enrichment service for extra selectors and keeps those
// that resolve in the page and do not shadow a pipeline key.
func (m *Mapper) suggest(ctx context.Context, p *page, b *consent.Banner) map[string]string {
	if m.suggester == nil {
		return nil
	}
	raw, err := m.suggester.Suggest(ctx, b)
	if err != nil {
		m.logger.Warn("mapper: enrichment failed", "site", b.Site, "error", err)
		return nil
	}
	out := make(map[string]string)
	for k, sel := range raw {
		if reservedKey(k) || !p.doc.Resolves(sel) {
			continue
		}
		out[k] = sel
	}
	return out
}

func reservedKey(k string) bool {
	if k == consent.KeyBanner || k == consent.KeyOverlay {
		return true
	}
	for _, r := range consent.Roles {
		if strings.EqualFold(k, r.SelectorKey()) {
			return true
		}
	}
	return false
}

// DetectAll runs Detect over snaps with at most Config.Workers in flight.
// Results are index-aligned with snaps. The first error cancels the rest.
func (m *Mapper) DetectAll(ctx context.Context, snaps []*consent.Snapshot) ([]*Result, error) {
	out := make([]*Result, len(snaps))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Workers)
	for i, snap := range snaps {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := m.Detect(ctx, snap)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
