// Package assets inspects a snapshot's scripts and styles for consent
// platform fingerprints. Vendors whose known container resolves in the
// document contribute an extra selector.
package assets

import (
	"regexp"
	"slices"
	"strings"

	"github.com/hazyhaar/cmpmap/mapper/internal/dom"
)

// Vendor is a consent platform recognisable from its script.
type Vendor struct {
	Name         string
	Fingerprints []string
	Container    string
}

// SelectorKey is the Rule selectors key for the vendor's container.
func (v Vendor) SelectorKey() string { return v.Name + "Banner" }

// Vendors lists the platforms recognised by default.
var Vendors = []Vendor{
	{Name: "cookiebot", Fingerprints: []string{"cookiebot"}, Container: "#CybotCookiebotDialog"},
	{Name: "onetrust", Fingerprints: []string{"onetrust", "optanon"}, Container: "#onetrust-banner-sdk"},
	{Name: "trustarc", Fingerprints: []string{"trustarc", "truste.com", "truste-"}, Container: "#truste-consent-track"},
	{Name: "quantcast", Fingerprints: []string{"quantcast", "qc-cmp2"}, Container: ".qc-cmp2-container"},
	{Name: "didomi", Fingerprints: []string{"didomi"}, Container: "#didomi-host"},
	{Name: "usercentrics", Fingerprints: []string{"usercentrics"}, Container: "#usercentrics-root"},
	{Name: "cookieyes", Fingerprints: []string{"cookieyes", "cky-consent"}, Container: ".cky-consent-container"},
	{Name: "iubenda", Fingerprints: []string{"iubenda"}, Container: "#iubenda-cs-banner"},
	{Name: "osano", Fingerprints: []string{"osano"}, Container: ".osano-cm-window"},
}

var scriptPatterns = compileAll(
	`cookie.*consent`, `consent.*cookie`, `gdpr.*consent`,
	`privacy.*notice`, `tracking.*consent`, `analytics.*consent`,
)

var stylePatterns = compileAll(
	`cookie.*banner`, `consent.*banner`, `gdpr.*banner`,
	`privacy.*notice`, `cc-banner`, `cookie-notice`,
)

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// Analysis is the outcome of Analyze.
type Analysis struct {
	Vendors     []string          `json:"vendors,omitempty"`
	ScriptScore float64           `json:"script_score"`
	StyleScore  float64           `json:"style_score"`
	Styled      bool              `json:"styled"`
	Selectors   map[string]string `json:"selectors,omitempty"`
}

// Analyze fingerprints scripts and styles. doc may be nil, in which case no
// selectors are reported.
func Analyze(doc *dom.Document, scripts, styles []string) Analysis {
	var a Analysis

	matched := 0
	for _, js := range scripts {
		lower := strings.ToLower(js)
		for _, re := range scriptPatterns {
			if re.MatchString(lower) {
				matched++
			}
		}
		for _, v := range Vendors {
			if slices.Contains(a.Vendors, v.Name) {
				continue
			}
			for _, fp := range v.Fingerprints {
				if strings.Contains(lower, fp) {
					a.Vendors = append(a.Vendors, v.Name)
					break
				}
			}
		}
	}
	if len(scripts) > 0 {
		a.ScriptScore = min(1, float64(matched)/float64(len(scriptPatterns)*len(scripts))*0.7+0.3*boolf(len(a.Vendors) > 0))
	}

	matched = 0
	for _, css := range styles {
		lower := strings.ToLower(css)
		for _, re := range stylePatterns {
			if re.MatchString(lower) {
				matched++
			}
		}
	}
	if len(styles) > 0 {
		a.StyleScore = min(1, float64(matched)/float64(len(stylePatterns)*len(styles)))
		a.Styled = matched > 0
	}

	if doc != nil {
		for _, v := range Vendors {
			if slices.Contains(a.Vendors, v.Name) && doc.Resolves(v.Container) {
				if a.Selectors == nil {
					a.Selectors = make(map[string]string)
				}
				a.Selectors[v.SelectorKey()] = v.Container
			}
		}
	}
	return a
}

// Lookup returns the vendor by name.
func Lookup(name string) (Vendor, bool) {
	for _, v := range Vendors {
		if v.Name == name {
			return v, true
		}
	}
	return Vendor{}, false
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
