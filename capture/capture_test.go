package capture

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const staticPage = `<!DOCTYPE html>
<html>
<head><title>Shop</title>
<script src="https://cdn.cookielaw.org/scripttemplates/otSDKStub.js"></script>
<style>.cookie-banner { position: fixed; bottom: 0; }</style>
<link rel="stylesheet" href="/css/cookie-notice.css">
</head>
<body>
<main><article><h1>Fresh coffee every week</h1>
<p>Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua. Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat. Duis aute irure dolor in reprehenderit.</p>
</article></main>
<div id="cookie-banner" class="cookie-banner"><p>We use cookies.</p><button id="accept-btn">Accept</button></div>
<script>window.cookieConsent = { gdpr: true };</script>
</body>
</html>`

func TestIsSufficient(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"static page", staticPage, true},
		{"spa shell", `<!DOCTYPE html><html><head><meta charset="utf-8"><title>App</title></head><body><div id="root"></div>` +
			`<script src="/static/js/main.chunk.js"></script>` + strings.Repeat(" ", 300) + `</body></html>`, false},
		{"too short", `<html><body>hi</body></html>`, false},
		{"script heavy", `<html><body><p>short text</p><script>` + strings.Repeat("var a = 1;", 200) + `</script></body></html>`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSufficient([]byte(tt.body)); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHarvest(t *testing.T) {
	scripts, styles := Harvest(staticPage)
	if len(scripts) != 2 {
		t.Fatalf("scripts: got %d %q", len(scripts), scripts)
	}
	if !strings.Contains(scripts[0], "cookielaw.org") || !strings.Contains(scripts[1], "cookieConsent") {
		t.Errorf("scripts: %q", scripts)
	}
	if len(styles) != 2 || !strings.Contains(styles[0], ".cookie-banner") || styles[1] != "/css/cookie-notice.css" {
		t.Errorf("styles: %q", styles)
	}
}

func TestMentionsConsent(t *testing.T) {
	if !MentionsConsent(staticPage) {
		t.Error("static page mentions cookies")
	}
	if MentionsConsent(`<html><body><p>Hello</p></body></html>`) {
		t.Error("plain page has no consent vocabulary")
	}
}

func TestFetcher_Fetch(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(staticPage))
	}))
	defer srv.Close()

	f := NewFetcher(WithUserAgent("cmpmap-test"))
	res, err := f.Fetch(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if ua != "cmpmap-test" {
		t.Errorf("user agent: got %q", ua)
	}
	if !res.Sufficient || res.StatusCode != http.StatusOK {
		t.Errorf("result: sufficient=%v status=%d", res.Sufficient, res.StatusCode)
	}
	snap := res.Snapshot
	if snap.URL != srv.URL+"/" || snap.Markup != staticPage || len(snap.Scripts) != 2 {
		t.Errorf("snapshot: %+v", snap)
	}
	if snap.Metadata["via"] != "http" || !strings.HasPrefix(snap.Metadata["capture_id"], "cap_") {
		t.Errorf("metadata: %v", snap.Metadata)
	}
	if NeedsBrowser(res) {
		t.Error("sufficient page with consent markup should not need a browser")
	}

	if _, err := f.Fetch(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("expected error on 404")
	}
}

func TestFetcher_MaxBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(staticPage))
	}))
	defer srv.Close()

	res, err := NewFetcher(WithMaxBytes(64)).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Snapshot.Markup) != 64 || res.Sufficient {
		t.Errorf("truncated body: len=%d sufficient=%v", len(res.Snapshot.Markup), res.Sufficient)
	}
}

func TestAuto_WithoutBrowser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div id="root"></div></body></html>`))
	}))
	defer srv.Close()

	a := &Auto{HTTP: NewFetcher()}
	snap, err := a.Capture(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if !strings.Contains(snap.Markup, `id="root"`) {
		t.Errorf("markup: %q", snap.Markup)
	}
}

func TestShouldBlock(t *testing.T) {
	block := map[string]bool{"images": true, "fonts": true, "stylesheets": true}
	tests := []struct {
		typ  string
		want bool
	}{
		{"Image", true},
		{"Font", true},
		{"Stylesheet", false},
		{"Script", false},
		{"Media", false},
	}
	for _, tt := range tests {
		if got := shouldBlock(block, tt.typ); got != tt.want {
			t.Errorf("shouldBlock(%q): got %v, want %v", tt.typ, got, tt.want)
		}
	}
}
