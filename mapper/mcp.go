package mapper

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/cmpmap/consent"
	"github.com/hazyhaar/cmpmap/kit"
	"github.com/hazyhaar/cmpmap/safeurl"
)

// RegisterMCP registers the cmpmap tools on an MCP server.
func (m *Mapper) RegisterMCP(srv *mcp.Server) {
	m.registerDetectTool(srv)
	m.registerGetRuleTool(srv)
	m.registerListRulesTool(srv)
	m.registerDeleteRuleTool(srv)
	m.registerValidateRuleTool(srv)
}

func (m *Mapper) endpoint(name string, ep kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.Logging(m.logger, name), kit.Timeout(2*m.cfg.Capture.Timeout))(ep)
}

// snapshotRequest carries either inline markup or a URL to capture.
type snapshotRequest struct {
	URL     string   `json:"url"`
	Markup  string   `json:"markup,omitempty"`
	Scripts []string `json:"scripts,omitempty"`
	Styles  []string `json:"styles,omitempty"`
}

// snapshot builds the Snapshot for r. With no markup the URL is captured.
func (m *Mapper) snapshot(ctx context.Context, r *snapshotRequest) (*consent.Snapshot, error) {
	if r.Markup != "" {
		return &consent.Snapshot{
			URL:        r.URL,
			Markup:     r.Markup,
			Scripts:    r.Scripts,
			Styles:     r.Styles,
			CapturedAt: m.now().UnixMilli(),
		}, nil
	}
	if r.URL == "" {
		return nil, badRequest{errors.New("url or markup is required")}
	}
	if m.capturer == nil {
		return nil, ErrNoCapturer
	}
	if !m.cfg.Capture.AllowPrivate {
		if err := safeurl.Check(ctx, r.URL); err != nil {
			return nil, badRequest{err}
		}
	}
	return m.capturer.Capture(ctx, r.URL)
}

var snapshotProps = map[string]any{
	"url":     map[string]any{"type": "string", "description": "Page URL; captured when markup is empty"},
	"markup":  map[string]any{"type": "string", "description": "Rendered page HTML"},
	"scripts": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Script bodies or URLs"},
	"styles":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Stylesheet bodies or URLs"},
}

// --- detect ---

type detectRequest struct {
	snapshotRequest
	Save bool `json:"save,omitempty"`
}

func (m *Mapper) registerDetectTool(srv *mcp.Server) {
	props := map[string]any{
		"save": map[string]any{"type": "boolean", "description": "Persist and deliver the rule when a banner is found"},
	}
	for k, v := range snapshotProps {
		props[k] = v
	}
	tool := &mcp.Tool{
		Name:        "cmpmap_detect",
		Description: "Detect the cookie consent banner on a page and generate a replayable rule.",
		InputSchema: kit.InputSchema(props, []string{"url"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*detectRequest)
		snap, err := m.snapshot(ctx, &r.snapshotRequest)
		if err != nil {
			return nil, err
		}
		if r.Save {
			return m.Process(ctx, snap)
		}
		return m.Detect(ctx, snap)
	}
	kit.RegisterMCPTool(srv, tool, m.endpoint("cmpmap_detect", endpoint), kit.DecodeArgs[detectRequest]())
}

// --- get_rule ---

type ruleIDRequest struct {
	ID     string `json:"id"`
	Format string `json:"format,omitempty"`
}

func (m *Mapper) registerGetRuleTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "cmpmap_get_rule",
		Description: "Get a stored consent rule by id.",
		InputSchema: kit.InputSchema(map[string]any{
			"id":     map[string]any{"type": "string", "description": "Rule id"},
			"format": map[string]any{"type": "string", "enum": []any{"record", "consent-o-matic"}, "description": "Output format (default record)"},
		}, []string{"id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*ruleIDRequest)
		if r.Format == "consent-o-matic" {
			rule, err := m.ConsentOMatic(ctx, r.ID)
			if err == nil && rule == nil {
				err = fmt.Errorf("rule %q not found", r.ID)
			}
			return rule, err
		}
		rec, err := m.GetRule(ctx, r.ID)
		if err == nil && rec == nil {
			err = fmt.Errorf("rule %q not found", r.ID)
		}
		return rec, err
	}
	kit.RegisterMCPTool(srv, tool, m.endpoint("cmpmap_get_rule", endpoint), kit.DecodeArgs[ruleIDRequest]())
}

// --- list_rules ---

type listRulesRequest struct {
	Site  string `json:"site,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

func (m *Mapper) registerListRulesTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "cmpmap_list_rules",
		Description: "List stored consent rules, newest first.",
		InputSchema: kit.InputSchema(map[string]any{
			"site":  map[string]any{"type": "string", "description": "Filter by site host"},
			"limit": map[string]any{"type": "integer", "description": "Max results (default 100)"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*listRulesRequest)
		recs, err := m.ListRules(ctx, r.Site, r.Limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"rules": recs, "count": len(recs)}, nil
	}
	kit.RegisterMCPTool(srv, tool, m.endpoint("cmpmap_list_rules", endpoint), kit.DecodeArgs[listRulesRequest]())
}

// --- delete_rule ---

func (m *Mapper) registerDeleteRuleTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "cmpmap_delete_rule",
		Description: "Delete a stored consent rule and its validation history.",
		InputSchema: kit.InputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Rule id"},
		}, []string{"id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*ruleIDRequest)
		ok, err := m.DeleteRule(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"id": r.ID, "deleted": ok}, nil
	}
	kit.RegisterMCPTool(srv, tool, m.endpoint("cmpmap_delete_rule", endpoint), kit.DecodeArgs[ruleIDRequest]())
}

// --- validate_rule ---

type validateRequest struct {
	ID string `json:"id"`
	snapshotRequest
}

func (m *Mapper) registerValidateRuleTool(srv *mcp.Server) {
	props := map[string]any{
		"id": map[string]any{"type": "string", "description": "Rule id"},
	}
	for k, v := range snapshotProps {
		props[k] = v
	}
	tool := &mcp.Tool{
		Name:        "cmpmap_validate_rule",
		Description: "Check a stored rule against page markup (or a fresh capture of its site) and record the outcome.",
		InputSchema: kit.InputSchema(props, []string{"id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*validateRequest)
		var snap *consent.Snapshot
		if r.Markup != "" || r.URL != "" {
			var err error
			if snap, err = m.snapshot(ctx, &r.snapshotRequest); err != nil {
				return nil, err
			}
		}
		return m.ValidateRule(ctx, r.ID, snap)
	}
	kit.RegisterMCPTool(srv, tool, m.endpoint("cmpmap_validate_rule", endpoint), kit.DecodeArgs[validateRequest]())
}
