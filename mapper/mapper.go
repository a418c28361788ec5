// Package mapper is the cmpmap orchestrator. It turns a captured page into
// a consent banner detection and a replayable rule:
//
//	snapshot → locate → layout → buttons → selectors → confidence → rule
//
// Every stage is built once in New and is read-only afterwards, so a Mapper
// serves concurrent detections without locking. Persistence, delivery,
// enrichment, capture and validation are optional collaborators wired
// around the pipeline.
//
// Usage:
//
//	m, err := mapper.New(cfg)
//	defer m.Close()
//	res, err := m.Detect(ctx, snap)
//	if res.Rule != nil { ... }
package mapper

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/cmpmap/capture"
	"github.com/hazyhaar/cmpmap/enrich"
	"github.com/hazyhaar/cmpmap/harness"
	"github.com/hazyhaar/cmpmap/mapper/internal/assemble"
	"github.com/hazyhaar/cmpmap/mapper/internal/buttons"
	"github.com/hazyhaar/cmpmap/mapper/internal/lexicon"
	"github.com/hazyhaar/cmpmap/mapper/internal/locate"
	"github.com/hazyhaar/cmpmap/mapper/internal/score"
	"github.com/hazyhaar/cmpmap/mapper/internal/selector"
	"github.com/hazyhaar/cmpmap/mapper/internal/store"
	"github.com/hazyhaar/cmpmap/sink"
)

var (
	// ErrNilSnapshot signals a caller contract violation, distinct from
	// "no banner".
	ErrNilSnapshot = errors.New("mapper: nil snapshot")

	// ErrNoStore is returned by rule queries on a mapper without a database.
	ErrNoStore = errors.New("mapper: no rule store configured")

	// ErrNoCapturer is returned by ProcessURL when capture is disabled.
	ErrNoCapturer = errors.New("mapper: no capturer configured")
)

// Store, Record and Validation are the persisted forms of rules and their
// harness outcomes.
type (
	Store      = store.Store
	Record     = store.Record
	Validation = store.Validation
)

// Confidence is the scored breakdown of a detection.
type Confidence = score.Result

// OpenStore opens (or creates) a rule database at path.
func OpenStore(path string) (*Store, error) { return store.Open(path) }

// Mapper runs the detection pipeline.
type Mapper struct {
	cfg    *Config
	logger *slog.Logger
	now    func() time.Time

	lx      *lexicon.Lexicon
	locator *locate.Locator
	syn     *selector.Synthesizer
	buttons *buttons.Extractor
	agg     *score.Aggregator
	asm     *assemble.Assembler

	store     *store.Store
	ownStore  bool
	sink      sink.Sink
	suggester enrich.Suggester
	capturer  capture.Capturer
	validator harness.Validator
	closers   []io.Closer
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option { return func(m *Mapper) { m.logger = l } }

// WithClock overrides the rule timestamp source.
func WithClock(now func() time.Time) Option { return func(m *Mapper) { m.now = now } }

// WithStore uses an already opened store. The caller keeps ownership.
func WithStore(s *Store) Option { return func(m *Mapper) { m.store = s } }

// WithSink replaces the sinks built from Config.Sinks.
func WithSink(s sink.Sink) Option { return func(m *Mapper) { m.sink = s } }

// WithSuggester replaces the enrichment client built from Config.Enrich.
func WithSuggester(s enrich.Suggester) Option { return func(m *Mapper) { m.suggester = s } }

// WithCapturer replaces the capturer built from Config.Capture.
func WithCapturer(c capture.Capturer) Option { return func(m *Mapper) { m.capturer = c } }

// WithValidator replaces the static validator.
func WithValidator(v harness.Validator) Option { return func(m *Mapper) { m.validator = v } }

// New builds the pipeline from cfg (nil means defaults). Keyword packs and
// every pattern are compiled here, once.
func New(cfg *Config, opts ...Option) (*Mapper, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.defaults()

	m := &Mapper{cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}

	var err error
	if cfg.LexiconPath != "" {
		m.lx, err = lexicon.LoadFile(cfg.LexiconPath, cfg.Languages...)
	} else {
		m.lx, err = lexicon.Default(cfg.Languages...)
	}
	if err != nil {
		return nil, fmt.Errorf("mapper: %w", err)
	}

	th := score.Thresholds{
		Minimum:  cfg.Thresholds.Minimum,
		High:     cfg.Thresholds.High,
		VeryHigh: cfg.Thresholds.VeryHigh,
	}
	w := score.Weights{
		Text:       cfg.Weights.Text,
		Button:     cfg.Weights.Button,
		Structural: cfg.Weights.Structural,
		Selector:   cfg.Weights.Selector,
		Attribute:  cfg.Weights.Attribute,
	}
	m.locator = locate.New(m.lx, cfg.CandidateSelectors)
	m.syn = selector.New(selector.Options{
		MaxAlternatives: cfg.Selector.MaxAlternatives,
		MaxIDLength:     cfg.Selector.MaxIDLength,
		MaxClassLength:  cfg.Selector.MaxClassLength,
		MaxAttrValue:    cfg.Selector.MaxAttrValue,
	})
	m.buttons = buttons.New(m.lx, m.syn)
	m.agg = score.NewAggregator(m.lx, w, th)
	m.asm = assemble.New(th, func() time.Time { return m.now() })

	if err := m.wireCollaborators(); err != nil {
		m.Close()
		return nil, err
	}

	m.logger.Debug("mapper: ready",
		"languages", m.lx.Languages(), "candidate_selectors", len(m.locator.Selectors()),
		"store", m.store != nil, "sink", m.sink != nil, "enrich", m.suggester != nil)
	return m, nil
}

func (m *Mapper) wireCollaborators() error {
	cfg := m.cfg

	if m.store == nil && cfg.DBPath != "" {
		s, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("mapper: %w", err)
		}
		m.store = s
		m.ownStore = true
	}

	if m.sink == nil {
		var sinks []sink.Sink
		if cfg.Sinks.Stdout {
			sinks = append(sinks, sink.NewStdout(nil))
		}
		if cfg.Sinks.WebhookURL != "" {
			sinks = append(sinks, sink.NewWebhook(cfg.Sinks.WebhookURL, sink.WithWebhookLogger(m.logger)))
		}
		if cfg.Sinks.NATSURL != "" {
			n, err := sink.NewNATS(cfg.Sinks.NATSURL, cfg.Sinks.NATSSubject)
			if err != nil {
				return fmt.Errorf("mapper: %w", err)
			}
			sinks = append(sinks, n)
		}
		if len(sinks) > 0 {
			m.sink = sink.NewRouter(m.logger, sinks...)
			m.closers = append(m.closers, m.sink)
		}
	}

	if m.suggester == nil && cfg.Enrich.Endpoint != "" {
		m.suggester = enrich.NewHTTP(cfg.Enrich.Endpoint,
			enrich.WithTimeout(cfg.Enrich.Timeout),
			enrich.WithLogger(m.logger))
	}

	if m.capturer == nil {
		auto := &capture.Auto{
			HTTP: capture.NewFetcher(
				capture.WithClient(&http.Client{Timeout: cfg.Capture.Timeout}),
				capture.WithUserAgent(cfg.Capture.UserAgent),
				capture.WithLogger(m.logger),
			),
			Logger: m.logger,
		}
		if cfg.Capture.Browser || cfg.Capture.RemoteURL != "" {
			auto.Browser = capture.NewBrowser(capture.BrowserConfig{
				RemoteURL:   cfg.Capture.RemoteURL,
				NavTimeout:  cfg.Capture.Timeout,
				WaitTimeout: cfg.Capture.WaitTimeout,
				Logger:      m.logger,
			})
			m.closers = append(m.closers, auto.Browser)
		}
		m.capturer = auto
	}

	if m.validator == nil {
		m.validator = harness.NewStatic()
	}
	return nil
}

// Close releases the store (when opened by New), sinks and browser.
func (m *Mapper) Close() error {
	var firstErr error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if m.ownStore && m.store != nil {
		if err := m.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Store returns the rule store, or nil.
func (m *Mapper) Store() *Store { return m.store }

// Config returns the effective configuration.
func (m *Mapper) Config() Config { return *m.cfg }

// Capturer returns the snapshot capturer.
func (m *Mapper) Capturer() capture.Capturer { return m.capturer }
