// Package assemble turns an accepted banner into a replayable Rule.
package assemble

import (
	"slices"
	"time"

	"github.com/hazyhaar/cmpmap/consent"
	"github.com/hazyhaar/cmpmap/mapper/internal/score"
)

// Assembler is immutable and safe for concurrent use.
type Assembler struct {
	thresholds score.Thresholds
	now        func() time.Time
}

// New returns an Assembler labelling confidence with th. now stamps
// generated_at; nil means time.Now.
func New(th score.Thresholds, now func() time.Time) *Assembler {
	if now == nil {
		now = time.Now
	}
	return &Assembler{thresholds: th, now: now}
}

// Assemble derives the Rule for b. A banner without a container selector
// gets the generic keyword union and is marked as a fallback.
func (a *Assembler) Assemble(b *consent.Banner) *consent.Rule {
	sels, fallback := Selectors(b)
	return &consent.Rule{
		Site:      b.Site,
		Selectors: sels,
		Actions:   Actions(b),
		Metadata: consent.Metadata{
			ConfidenceScore:  b.Confidence,
			ConfidenceLevel:  a.thresholds.Level(b.Confidence),
			BannerType:       string(b.Shape),
			GeneratedAt:      a.now().UTC(),
			GeneratorVersion: consent.GeneratorVersion,
			ButtonCount:      len(b.Buttons),
			ButtonTypes:      buttonTypes(b),
			HasOverlays:      len(b.OverlaySelectors) > 0,
			OriginalSite:     b.Site,
			Fallback:         fallback,
		},
	}
}

// Actions chooses the replay script:
//
//	modal:        hideBanner, hideOverlays (if any), then the click
//	other shapes: clickManageIfAvailable (if a manage button exists), then the click
//
// The click is clickRejectIfPossible when a reject button exists,
// clickCloseIfAvailable when every button closes, and
// clickAcceptIfRejectNotAvailable otherwise. hideBanner always ends the list.
func Actions(b *consent.Banner) []consent.Action {
	var actions []consent.Action
	if b.Shape == consent.ShapeModal {
		actions = append(actions, consent.ActionHideBanner)
		if len(b.OverlaySelectors) > 0 {
			actions = append(actions, consent.ActionHideOverlays)
		}
	} else if b.HasRole(consent.RoleManage) {
		actions = append(actions, consent.ActionClickManage)
	}

	switch {
	case b.HasRole(consent.RoleReject):
		actions = append(actions, consent.ActionClickReject)
	case b.CloseOnly():
		actions = append(actions, consent.ActionClickClose)
	default:
		actions = append(actions, consent.ActionClickAcceptNoReject)
	}

	if !slices.Contains(actions, consent.ActionHideBanner) {
		actions = append(actions, consent.ActionHideBanner)
	}
	return consent.DedupActions(actions)
}

// Selectors builds the selectors map. Buttons of one role are joined into a
// single union under "{role}Button"; overlays are kept as a list; extra
// selectors never replace a fixed key. fallback is true when the banner had
// no container selector.
func Selectors(b *consent.Banner) (sels consent.Selectors, fallback bool) {
	sels = make(consent.Selectors)
	if b.ContainerSelector != "" {
		sels[consent.KeyBanner] = consent.Single(b.ContainerSelector)
	} else {
		sels[consent.KeyBanner] = consent.Single(consent.FallbackBannerSelector)
		fallback = true
	}

	for _, r := range consent.Roles {
		var group []string
		for _, btn := range b.Buttons {
			if btn.Role == r && btn.Selector != "" {
				group = append(group, btn.Selector)
			}
		}
		if len(group) > 0 {
			sels[r.SelectorKey()] = consent.Single(consent.JoinUnion(group))
		}
	}

	if len(b.OverlaySelectors) > 0 {
		sels[consent.KeyOverlay] = consent.List(b.OverlaySelectors...)
	}
	for k, v := range b.ExtraSelectors {
		if _, taken := sels[k]; !taken && v != "" {
			sels[k] = consent.Single(v)
		}
	}
	return sels, fallback
}

func buttonTypes(b *consent.Banner) []string {
	out := []string{}
	for _, r := range b.Roles() {
		out = append(out, string(r))
	}
	return out
}
