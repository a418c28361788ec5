// Package consent holds the data model shared by the detection pipeline and
// its collaborators: the captured page (Snapshot), the detected banner
// (Banner, Button) and the replayable output (Rule).
//
// Rule serialises to the schema expected by Consent-O-Matic style rule
// interpreters: fixed top-level keys site, selectors, actions and metadata.
package consent

import (
	"net/url"
	"strings"
)

// Snapshot is an already captured page. It is never modified by the pipeline.
type Snapshot struct {
	URL        string            `json:"url"`
	Markup     string            `json:"markup"`
	Scripts    []string          `json:"scripts,omitempty"`
	Styles     []string          `json:"styles,omitempty"`
	CapturedAt int64             `json:"captured_at,omitempty"` // unix ms
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Site returns the host part of the snapshot URL, or the raw URL when it
// cannot be parsed.
func (s *Snapshot) Site() string {
	return SiteOf(s.URL)
}

// SiteOf extracts the origin label used as Rule.Site.
func SiteOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		return u.Host
	}
	// Bare hosts ("example.com/path") parse as a path.
	if !strings.Contains(raw, "://") {
		if u, err := url.Parse("http://" + raw); err == nil && u.Host != "" {
			return u.Host
		}
	}
	return raw
}
