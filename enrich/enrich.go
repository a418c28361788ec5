// Package enrich asks an external model endpoint for additional selectors
// once a banner has been accepted. Suggestions only ever add keys to a
// rule; they never change its confidence.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/andybalholm/cascadia"

	"github.com/hazyhaar/cmpmap/consent"
)

// Suggester proposes extra selectors for an accepted banner.
type Suggester interface {
	Suggest(ctx context.Context, b *consent.Banner) (map[string]string, error)
}

// Request is the JSON body posted to the endpoint.
type Request struct {
	Site      string           `json:"site"`
	Shape     consent.Shape    `json:"shape"`
	Container string           `json:"container_selector"`
	Markdown  string           `json:"markdown"`
	Buttons   []consent.Button `json:"buttons"`
}

// Response is the expected endpoint reply.
type Response struct {
	Selectors map[string]string `json:"selectors"`
}

const maxResponse = 1 << 20

// HTTPSuggester posts the banner as markdown plus its button inventory.
type HTTPSuggester struct {
	endpoint string
	client   *http.Client
	conv     *converter.Converter
	breaker  *Breaker
	logger   *slog.Logger
}

// Option configures an HTTPSuggester.
type Option func(*HTTPSuggester)

// WithTimeout sets the HTTP client timeout. Default: 20s.
func WithTimeout(d time.Duration) Option {
	return func(s *HTTPSuggester) { s.client.Timeout = d }
}

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option {
	return func(s *HTTPSuggester) { s.client = c }
}

// WithBreaker replaces the default breaker (3 failures, 1 minute cooldown).
func WithBreaker(b *Breaker) Option {
	return func(s *HTTPSuggester) { s.breaker = b }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *HTTPSuggester) { s.logger = l }
}

// NewHTTP creates a suggester for endpoint.
func NewHTTP(endpoint string, opts ...Option) *HTTPSuggester {
	s := &HTTPSuggester{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 20 * time.Second},
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
		breaker: NewBreaker(3, time.Minute),
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Markdown renders a banner fragment for the prompt. Unconvertible
// fragments fall back to their raw text.
func (s *HTTPSuggester) Markdown(fragment string) string {
	md, err := s.conv.ConvertString(fragment)
	if err != nil {
		return fragment
	}
	return strings.TrimSpace(md)
}

// Suggest posts b and returns the syntactically valid suggestions. Keys
// already produced by the pipeline are left to the caller to protect.
// While the breaker is open it returns ErrUnavailable at once.
func (s *HTTPSuggester) Suggest(ctx context.Context, b *consent.Banner) (map[string]string, error) {
	if b == nil {
		return nil, nil
	}
	if !s.breaker.Allow() {
		return nil, ErrUnavailable
	}
	out, err := s.post(ctx, b)
	switch {
	case err == nil:
		s.breaker.Success()
	case ctx.Err() == nil:
		s.breaker.Failure()
		if s.breaker.State() == Open {
			s.logger.Warn("enrich: endpoint disabled after repeated failures", "endpoint", s.endpoint, "error", err)
		}
	}
	return out, err
}

func (s *HTTPSuggester) post(ctx context.Context, b *consent.Banner) (map[string]string, error) {
	body, err := json.Marshal(Request{
		Site:      b.Site,
		Shape:     b.Shape,
		Container: b.ContainerSelector,
		Markdown:  s.Markdown(b.RawFragment),
		Buttons:   b.Buttons,
	})
	if err != nil {
		return nil, fmt.Errorf("enrich: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("enrich: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("enrich: post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("enrich: status %d", resp.StatusCode)
	}

	var out Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponse)).Decode(&out); err != nil {
		return nil, fmt.Errorf("enrich: decode: %w", err)
	}
	return Clean(out.Selectors, s.logger), nil
}

// Clean drops suggestions with empty keys or selectors that do not compile.
func Clean(in map[string]string, logger *slog.Logger) map[string]string {
	if logger == nil {
		logger = slog.Default()
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		if _, err := cascadia.ParseGroup(v); err != nil {
			logger.Debug("enrich: dropping invalid selector", "key", k, "selector", v, "error", err)
			continue
		}
		out[k] = v
	}
	return out
}
