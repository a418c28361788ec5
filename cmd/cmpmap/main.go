// Command cmpmap detects cookie consent banners and emits replayable rules.
//
// Usage:
//
//	cmpmap -file page.html -url https://example.com   # detect from saved markup
//	cmpmap -fetch https://example.com [-browser]      # capture, then detect
//	cmpmap -batch urls.txt -db rules.db               # many sites, concurrently
//	cmpmap -db rules.db -list [-site example.com]     # stored rules
//	cmpmap -db rules.db -serve -addr :8089            # HTTP API
//	cmpmap -db rules.db -mcp                          # MCP over stdio
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/cmpmap/capture"
	"github.com/hazyhaar/cmpmap/consent"
	"github.com/hazyhaar/cmpmap/mapper"
)

type options struct {
	configPath string
	dbPath     string
	file       string
	pageURL    string
	fetch      string
	browser    bool
	batch      string
	serve      bool
	mcp        bool
	list       bool
	site       string
	addr       string
	save       bool
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "path to cmpmap.yaml config file")
	flag.StringVar(&o.dbPath, "db", "", "path to SQLite rule database")
	flag.StringVar(&o.file, "file", "", "detect from a saved HTML file")
	flag.StringVar(&o.pageURL, "url", "", "page URL of -file (sets the rule site)")
	flag.StringVar(&o.fetch, "fetch", "", "capture URL then detect")
	flag.BoolVar(&o.browser, "browser", false, "allow escalation to a headless browser")
	flag.StringVar(&o.batch, "batch", "", "file with one URL per line")
	flag.BoolVar(&o.serve, "serve", false, "serve the HTTP API")
	flag.BoolVar(&o.mcp, "mcp", false, "serve MCP tools over stdio")
	flag.BoolVar(&o.list, "list", false, "list stored rules and exit")
	flag.StringVar(&o.site, "site", "", "site filter for -list")
	flag.StringVar(&o.addr, "addr", "", "HTTP listen address (default :8089)")
	flag.BoolVar(&o.save, "save", true, "persist and deliver rules when a database or sink is configured")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, o); err != nil {
		logger.Error("cmpmap: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, o options) error {
	cfg, err := resolveConfig(o)
	if err != nil {
		return err
	}

	m, err := mapper.New(cfg, mapper.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer m.Close()

	switch {
	case o.list:
		recs, err := m.ListRules(ctx, o.site, 0)
		if err != nil {
			return fmt.Errorf("list: %w", err)
		}
		return printJSON(recs)

	case o.file != "":
		data, err := os.ReadFile(o.file)
		if err != nil {
			return fmt.Errorf("read %s: %w", o.file, err)
		}
		scripts, styles := capture.Harvest(string(data))
		snap := &consent.Snapshot{
			URL:        o.pageURL,
			Markup:     string(data),
			Scripts:    scripts,
			Styles:     styles,
			CapturedAt: time.Now().UnixMilli(),
		}
		res, err := detect(ctx, m, snap, o.save)
		if err != nil {
			return err
		}
		return printJSON(res)

	case o.fetch != "":
		snap, err := m.Capturer().Capture(ctx, o.fetch)
		if err != nil {
			return fmt.Errorf("capture: %w", err)
		}
		res, err := detect(ctx, m, snap, o.save)
		if err != nil {
			return err
		}
		return printJSON(res)

	case o.batch != "":
		return runBatch(ctx, logger, m, o)

	case o.mcp:
		srv := mcp.NewServer(&mcp.Implementation{Name: "cmpmap", Version: consent.GeneratorVersion}, nil)
		m.RegisterMCP(srv)
		logger.Info("cmpmap: mcp on stdio")
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("mcp: %w", err)
		}
		return nil

	case o.serve:
		return serve(ctx, logger, m)
	}

	fmt.Fprintln(os.Stderr, "usage: cmpmap [-config <file>] [-db <path>] -file <html> [-url <url>] | -fetch <url> | -batch <file> | -list | -serve | -mcp")
	return errors.New("no mode selected")
}

func resolveConfig(o options) (*mapper.Config, error) {
	cfg := &mapper.Config{}
	if o.configPath != "" {
		var err error
		if cfg, err = mapper.LoadConfigFile(o.configPath); err != nil {
			return nil, err
		}
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	if o.browser {
		cfg.Capture.Browser = true
	}
	if o.addr != "" {
		cfg.HTTP.Addr = o.addr
	}
	return cfg, nil
}

func detect(ctx context.Context, m *mapper.Mapper, snap *consent.Snapshot, save bool) (*mapper.Result, error) {
	if save {
		return m.Process(ctx, snap)
	}
	return m.Detect(ctx, snap)
}

// batchSummary is printed after a -batch run.
type batchSummary struct {
	Total    int            `json:"total"`
	Detected int            `json:"detected"`
	Failed   int            `json:"failed"`
	Levels   map[string]int `json:"levels"`
	Errors   []string       `json:"errors,omitempty"`
}

func runBatch(ctx context.Context, logger *slog.Logger, m *mapper.Mapper, o options) error {
	urls, err := readURLs(o.batch)
	if err != nil {
		return err
	}

	var (
		mu  sync.Mutex
		sum = batchSummary{Total: len(urls), Levels: map[string]int{}}
		enc = json.NewEncoder(os.Stdout)
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.Config().Workers)
	for _, u := range urls {
		g.Go(func() error {
			snap, err := m.Capturer().Capture(ctx, u)
			var res *mapper.Result
			if err == nil {
				res, err = detect(ctx, m, snap, o.save)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("cmpmap: batch item failed", "url", u, "error", err)
				sum.Failed++
				sum.Errors = append(sum.Errors, fmt.Sprintf("%s: %v", u, err))
				return nil
			}
			if res.Detected {
				sum.Detected++
				sum.Levels[res.Score.Level]++
			}
			return enc.Encode(res)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("batch: %w", err)
	}
	logger.Info("cmpmap: batch done", "total", sum.Total, "detected", sum.Detected, "failed", sum.Failed)
	return printJSON(sum)
}

func readURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}
	defer f.Close()
	return parseURLs(f)
}

// parseURLs reads one URL per line; blank lines and # comments are skipped.
// Bare hosts get an https scheme.
func parseURLs(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.Contains(line, "://") {
			line = "https://" + line
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("batch: read: %w", err)
	}
	return out, nil
}

func serve(ctx context.Context, logger *slog.Logger, m *mapper.Mapper) error {
	addr := m.Config().HTTP.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * m.Config().Capture.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("cmpmap: http listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("cmpmap: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
