package mapper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/cmpmap/consent"
	"github.com/hazyhaar/cmpmap/kit"
	"github.com/hazyhaar/cmpmap/shield"
)

var errNotFound = errors.New("not found")

// maxBody bounds request bodies; snapshots carry full page markup.
const maxBody = 16 << 20

// Routes returns the HTTP API:
//
//	GET    /health
//	POST   /api/detect                        {url, markup?, scripts?, styles?, save?}
//	GET    /api/rules?site=&limit=
//	GET    /api/rules/{id}
//	DELETE /api/rules/{id}
//	GET    /api/rules/{id}/consent-o-matic
//	GET    /api/rules/{id}/validations
//	POST   /api/rules/{id}/validations        {url?, markup?}
func (m *Mapper) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	var rl *shield.RateLimiter
	if n := m.cfg.HTTP.RateLimit; n > 0 {
		rl = shield.NewRateLimiter(n, time.Minute, "/health")
		rl.SetLogger(m.logger)
	}
	for _, mw := range shield.Stack(rl) {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Post("/api/detect", m.handle("http_detect", func(ctx context.Context, r *http.Request) (any, error) {
		var req detectRequest
		if err := decodeBody(r, &req); err != nil {
			return nil, err
		}
		snap, err := m.snapshot(ctx, &req.snapshotRequest)
		if err != nil {
			return nil, err
		}
		if req.Save {
			return m.Process(ctx, snap)
		}
		return m.Detect(ctx, snap)
	}))

	r.Route("/api/rules", func(r chi.Router) {
		r.Get("/", m.handle("http_list_rules", func(ctx context.Context, r *http.Request) (any, error) {
			recs, err := m.ListRules(ctx, r.URL.Query().Get("site"), queryInt(r, "limit", 0))
			if err != nil {
				return nil, err
			}
			if recs == nil {
				recs = []*Record{}
			}
			return recs, nil
		}))

		r.Get("/{id}", m.handle("http_get_rule", func(ctx context.Context, r *http.Request) (any, error) {
			rec, err := m.GetRule(ctx, chi.URLParam(r, "id"))
			if err == nil && rec == nil {
				err = errNotFound
			}
			return rec, err
		}))

		r.Delete("/{id}", m.handle("http_delete_rule", func(ctx context.Context, r *http.Request) (any, error) {
			id := chi.URLParam(r, "id")
			ok, err := m.DeleteRule(ctx, id)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, errNotFound
			}
			return map[string]string{"id": id, "status": "deleted"}, nil
		}))

		r.Get("/{id}/consent-o-matic", m.handle("http_consent_o_matic", func(ctx context.Context, r *http.Request) (any, error) {
			rule, err := m.ConsentOMatic(ctx, chi.URLParam(r, "id"))
			if err == nil && rule == nil {
				err = errNotFound
			}
			return rule, err
		}))

		r.Get("/{id}/validations", m.handle("http_list_validations", func(ctx context.Context, r *http.Request) (any, error) {
			id := chi.URLParam(r, "id")
			rec, err := m.GetRule(ctx, id)
			if err != nil {
				return nil, err
			}
			if rec == nil {
				return nil, errNotFound
			}
			vals, err := m.Validations(ctx, id)
			if vals == nil {
				vals = []*Validation{}
			}
			return vals, err
		}))

		r.Post("/{id}/validations", m.handle("http_validate_rule", func(ctx context.Context, r *http.Request) (any, error) {
			id := chi.URLParam(r, "id")
			var req snapshotRequest
			if r.ContentLength != 0 {
				if err := decodeBody(r, &req); err != nil {
					return nil, err
				}
			}
			rec, err := m.GetRule(ctx, id)
			if err != nil {
				return nil, err
			}
			if rec == nil {
				return nil, errNotFound
			}
			var snap *consent.Snapshot
			if req.Markup != "" || req.URL != "" {
				if snap, err = m.snapshot(ctx, &req); err != nil {
					return nil, err
				}
			}
			return m.ValidateRule(ctx, id, snap)
		}))
	})
	return r
}

// handle adapts fn to an http.HandlerFunc through the shared endpoint
// middleware.
func (m *Mapper) handle(name string, fn func(context.Context, *http.Request) (any, error)) http.HandlerFunc {
	ep := m.endpoint(name, func(ctx context.Context, req any) (any, error) {
		return fn(ctx, req.(*http.Request))
	})
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := kit.WithTransport(r.Context(), kit.TransportHTTP)
		if id := middleware.GetReqID(ctx); id != "" {
			ctx = kit.WithRequestID(ctx, id)
		}
		resp, err := ep(ctx, r.WithContext(ctx))
		if err != nil {
			writeError(w, statusOf(err), err)
			return
		}
		writeJSON(w, 200, resp)
	}
}

type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBody)).Decode(v); err != nil {
		return badRequest{fmt.Errorf("decode body: %w", err)}
	}
	return nil
}

func statusOf(err error) int {
	var br badRequest
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest
	case errors.Is(err, errNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoStore), errors.Is(err, ErrNoCapturer):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
