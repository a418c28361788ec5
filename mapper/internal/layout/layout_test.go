package layout

import (
	"testing"

	"github.com/hazyhaar/cmpmap/consent"
	"github.com/hazyhaar/cmpmap/mapper/internal/dom"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   consent.Shape
	}{
		{"plain div defaults to modal", `<div id="cookie-banner">x</div>`, consent.ShapeModal},
		{"modal class", `<div id="c" class="cookie-modal">x</div>`, consent.ShapeModal},
		{"dialog in id beats fixed bottom", `<div id="consent-dialog" style="position:fixed;bottom:0">x</div>`, consent.ShapeModal},
		{"fixed bottom", `<div id="c" style="position: fixed; bottom: 0">x</div>`, consent.ShapeBottomBar},
		{"absolute top", `<div id="c" style="position:absolute; top:0; left:0">x</div>`, consent.ShapeTopBar},
		{"class hint top", `<div id="c" class="cookie-bar top" style="position:fixed">x</div>`, consent.ShapeTopBar},
		{"fixed without hint", `<div id="c" style="position:fixed; left:0">x</div>`, consent.ShapeBottomBar},
		{"absolute without hint", `<div id="c" style="position:absolute">x</div>`, consent.ShapeModal},
		{"sidebar", `<div id="c" class="consent-sidebar" style="position:fixed; right:0; top:0">x</div>`, consent.ShapeSidebar},
		{"sidebar token needs positioning", `<div id="c" class="consent-sidebar">x</div>`, consent.ShapeModal},
		{"uppercase style", `<div id="c" style="POSITION: FIXED; BOTTOM: 0">x</div>`, consent.ShapeBottomBar},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := dom.Parse("<html><body>" + tt.markup + "</body></html>")
			if err != nil {
				t.Fatal(err)
			}
			if got := Classify(doc.Query("div")[0]); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
