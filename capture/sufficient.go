package capture

import (
	"bytes"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

var spaShells = [][]byte{
	[]byte(`<div id="root"></div>`),
	[]byte(`<div id="app"></div>`),
	[]byte(`<div id="__next"></div>`),
	[]byte(`<noscript>you need to enable javascript`),
	[]byte(`<noscript>enable javascript`),
}

// IsSufficient reports whether an HTTP body already holds a rendered page,
// so no browser pass is needed. SPA shells and near-empty pages are not.
func IsSufficient(body []byte) bool {
	if len(body) < 256 {
		return false
	}
	lower := bytes.ToLower(body)
	for _, shell := range spaShells {
		if bytes.Contains(lower, shell) {
			return false
		}
	}

	text := visibleText(body)
	if text < 200 {
		return false
	}
	// Below 10% text the page is mostly markup and script.
	return float64(text)/float64(len(body)) >= 0.10
}

// visibleText counts non-space runes outside script, style and template.
func visibleText(body []byte) int {
	z := html.NewTokenizer(bytes.NewReader(body))
	skip := 0
	n := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return n
		case html.StartTagToken:
			if hidden(z) {
				skip++
			}
		case html.EndTagToken:
			if hidden(z) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				n += countNonSpace(string(z.Text()))
			}
		}
	}
}

func hidden(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch strings.ToLower(string(name)) {
	case "script", "style", "template", "noscript":
		return true
	}
	return false
}

func countNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
