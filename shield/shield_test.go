package shield

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func ok(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Method", r.Method)
	w.WriteHeader(http.StatusOK)
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(APIHeaders())(http.HandlerFunc(ok))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/rules", nil))

	want := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Cache-Control":          "no-store",
		"Referrer-Policy":        "no-referrer",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s: got %q, want %q", k, got, v)
		}
	}
}

func TestSecurityHeaders_SkipsEmpty(t *testing.T) {
	h := SecurityHeaders(HeaderConfig{XFrameOptions: "DENY"})(http.HandlerFunc(ok))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if _, set := rec.Header()["Content-Security-Policy"]; set {
		t.Error("empty CSP was sent")
	}
}

func TestHeadToGet(t *testing.T) {
	rec := httptest.NewRecorder()
	HeadToGet(http.HandlerFunc(ok)).ServeHTTP(rec, httptest.NewRequest("HEAD", "/health", nil))
	if got := rec.Header().Get("X-Method"); got != "GET" {
		t.Errorf("method: got %q", got)
	}
}

func TestRateLimiter_Window(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("1.2.3.4") || !rl.Allow("1.2.3.4") {
		t.Fatal("first two requests refused")
	}
	if rl.Allow("1.2.3.4") {
		t.Error("third request allowed")
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("other client limited")
	}

	now = now.Add(61 * time.Second)
	if !rl.Allow("1.2.3.4") {
		t.Error("window did not reset")
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(0, time.Minute)
	for range 10 {
		if !rl.Allow("x") {
			t.Fatal("disabled limiter refused a request")
		}
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, "/health")
	h := rl.Middleware(http.HandlerFunc(ok))

	do := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", path, nil)
		req.RemoteAddr = "10.0.0.1:5555"
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := do("/api/detect"); rec.Code != 200 {
		t.Fatalf("first: %d", rec.Code)
	}
	rec := do("/api/detect")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second: got %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("retry-after: %q", rec.Header().Get("Retry-After"))
	}
	if rec := do("/health"); rec.Code != 200 {
		t.Errorf("excluded path limited: %d", rec.Code)
	}
}

func TestExtractIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	if got := ExtractIP(req); got != "192.0.2.1" {
		t.Errorf("remote addr: got %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := ExtractIP(req); got != "203.0.113.7" {
		t.Errorf("xff: got %q", got)
	}
}

func TestStack(t *testing.T) {
	if n := len(Stack(nil)); n != 2 {
		t.Errorf("without limiter: %d middlewares", n)
	}
	if n := len(Stack(NewRateLimiter(1, time.Second))); n != 3 {
		t.Errorf("with limiter: %d middlewares", n)
	}
}
