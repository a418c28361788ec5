// Package layout classifies a banner container's shape from its class list,
// inline style and id.
package layout

import (
	"strings"

	"github.com/hazyhaar/cmpmap/consent"
	"github.com/hazyhaar/cmpmap/mapper/internal/dom"
)

var modalTokens = []string{"modal", "popup", "overlay", "dialog"}

var sidebarTokens = []string{"sidebar", "side-panel", "drawer", "slide-out", "slideout"}

// Classify always returns a shape. Modal tokens win; otherwise fixed or
// absolute positioning with a bottom/top hint gives a bar, fixed alone
// gives bottom_bar, and everything else is modal.
func Classify(el *dom.Element) consent.Shape {
	classes := strings.ToLower(strings.Join(el.Classes(), " "))
	style := el.Style()
	id := strings.ToLower(el.ID())
	return classify(classes, style, id)
}

func classify(classes, style, id string) consent.Shape {
	all := classes + " " + style + " " + id
	if containsAny(all, modalTokens) {
		return consent.ShapeModal
	}

	fixed := strings.Contains(style, "fixed")
	positioned := fixed || strings.Contains(style, "absolute")
	if positioned {
		hint := classes + " " + style
		switch {
		case containsAny(classes+" "+id, sidebarTokens):
			return consent.ShapeSidebar
		case strings.Contains(hint, "bottom"):
			return consent.ShapeBottomBar
		case strings.Contains(hint, "top"):
			return consent.ShapeTopBar
		}
	}
	if fixed {
		return consent.ShapeBottomBar
	}
	return consent.ShapeModal
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
