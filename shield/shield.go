// Package shield holds the HTTP middleware placed in front of the cmpmap
// API: response security headers, HEAD handling and a per-client rate limit
// on the endpoints that parse or capture pages.
//
//	r := chi.NewRouter()
//	for _, mw := range shield.Stack(shield.NewRateLimiter(60, time.Minute, "/health")) {
//	    r.Use(mw)
//	}
package shield

import "net/http"

// Stack returns HeadToGet, SecurityHeaders(APIHeaders()) and, when rl is
// non-nil, the rate limiter, in that order.
func Stack(rl *RateLimiter) []func(http.Handler) http.Handler {
	stack := []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(APIHeaders()),
	}
	if rl != nil {
		stack = append(stack, rl.Middleware)
	}
	return stack
}
