package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/shadowlight/internal/ai"
	"github.com/v0xg/shadowlight/internal/config"
	"github.com/v0xg/shadowlight/internal/crawler"
	"github.com/v0xg/shadowlight/internal/guide"
	"github.com/v0xg/shadowlight/internal/overlay"
	"github.com/v0xg/shadowlight/internal/session"
	"github.com/v0xg/shadowlight/internal/theme"
)

type fakeAssistant struct {
	calls    []string
	mode     theme.Mode
	filter   string
	resolve  func(goal string) (*guide.Plan, error)
	failWith error
}

func (f *fakeAssistant) record(call string) error {
	f.calls = append(f.calls, call)
	return f.failWith
}

func (f *fakeAssistant) Scrape(context.Context) (*crawler.DistilledMap, error) {
	return &crawler.DistilledMap{URL: "https://shop.test/", Title: "Shop", InteractiveElements: []crawler.InteractiveElement{}}, f.record("scrape")
}
func (f *fakeAssistant) Highlight(_ context.Context, sel string) error {
	return f.record("highlight " + sel)
}
func (f *fakeAssistant) ClearHighlight(context.Context) error { return f.record("clear") }
func (f *fakeAssistant) ApplyMode(_ context.Context, m theme.Mode) error {
	f.mode = m
	return f.record("mode " + m.String())
}
func (f *fakeAssistant) ApplyFilter(_ context.Context, expr string) error {
	f.filter = expr
	return f.record("filter " + expr)
}
func (f *fakeAssistant) ApplyTheme(_ context.Context, text, bg string) error {
	return f.record("theme " + text + " " + bg)
}
func (f *fakeAssistant) ResetTheme(context.Context) error { return f.record("reset") }
func (f *fakeAssistant) Navigate(_ context.Context, target string) error {
	return f.record("navigate " + target)
}
func (f *fakeAssistant) Summarize(_ context.Context, m ai.SummaryMode) (*ai.SummaryResult, error) {
	return &ai.SummaryResult{Title: "T", Content: string(m), KeyTakeaways: []string{"k"}}, f.record("summarize")
}
func (f *fakeAssistant) Chat(_ context.Context, q string) (string, error) {
	return "answer to " + q, f.record("chat")
}
func (f *fakeAssistant) Repurpose(_ context.Context, format ai.RepurposeFormat) (string, error) {
	return string(format) + " text", f.record("repurpose")
}
func (f *fakeAssistant) Resolve(_ context.Context, goal string) (*guide.Plan, error) {
	f.calls = append(f.calls, "resolve "+goal)
	return f.resolve(goal)
}

type nopHighlighter struct{}

func (nopHighlighter) Apply(context.Context, overlay.Command) error { return nil }

func twoSteps(goal string) (*guide.Plan, error) {
	return &guide.Plan{Goal: goal, Steps: []guide.NavStep{
		{Selector: "#a", Instruction: "Open menu", Action: guide.ActionClick, TargetPage: "/", ConfidenceScore: 1},
		{Selector: "#b", Instruction: "Pick settings", Action: guide.ActionClick, TargetPage: "/", ConfidenceScore: 1},
	}}, nil
}

func newTestServer(t *testing.T) (*Server, *fakeAssistant, *session.Session) {
	t.Helper()
	fa := &fakeAssistant{resolve: twoSteps}
	s := session.New(fa, nopHighlighter{}, nil)
	s.Observe(context.Background(), "/")
	return NewServer(config.Default().MCP, fa, s, nil), fa, s
}

func TestToolsRegistered(t *testing.T) {
	srv, _, _ := newTestServer(t)
	assert.Equal(t, []string{
		"apply_contrast", "apply_theme", "chat", "clear_highlight", "generate_nav",
		"guide_next", "guide_start", "guide_status", "guide_stop", "highlight_element",
		"navigate_to", "repurpose", "reset_theme", "scrape_page", "summarize",
	}, srv.ToolNames())

	for _, name := range srv.ToolNames() {
		tool := srv.tools[name]
		assert.NotEmpty(t, tool.Description(), name)
		_, err := json.Marshal(tool.InputSchema())
		assert.NoError(t, err, name)
	}
}

func TestExecuteTool(t *testing.T) {
	srv, fa, _ := newTestServer(t)
	ctx := context.Background()

	_, err := srv.ExecuteTool(ctx, "nope", nil)
	assert.EqualError(t, err, "tool not found: nope")

	_, err = srv.ExecuteTool(ctx, "highlight_element", map[string]interface{}{"selector": " #login "})
	require.NoError(t, err)
	_, err = srv.ExecuteTool(ctx, "highlight_element", nil)
	assert.EqualError(t, err, "selector is required")

	res, err := srv.ExecuteTool(ctx, "apply_contrast", map[string]interface{}{"mode": "dark-mode"})
	require.NoError(t, err)
	assert.Equal(t, theme.DarkMode, fa.mode)
	assert.Equal(t, theme.DarkMode.Filter(), res.(map[string]interface{})["filter"])

	_, err = srv.ExecuteTool(ctx, "apply_contrast", map[string]interface{}{"filter": "blur(2px)"})
	require.NoError(t, err)
	assert.Equal(t, "blur(2px)", fa.filter)

	_, err = srv.ExecuteTool(ctx, "apply_contrast", map[string]interface{}{"mode": "sepia"})
	assert.Error(t, err)
	_, err = srv.ExecuteTool(ctx, "apply_contrast", nil)
	assert.Error(t, err)

	_, err = srv.ExecuteTool(ctx, "apply_theme", map[string]interface{}{"textColor": "#fff"})
	assert.EqualError(t, err, "bgColor is required")

	res, err = srv.ExecuteTool(ctx, "summarize", map[string]interface{}{"mode": "eli5"})
	require.NoError(t, err)
	assert.Equal(t, "eli5", res.(*ai.SummaryResult).Content)

	_, err = srv.ExecuteTool(ctx, "repurpose", map[string]interface{}{"format": "poem"})
	assert.Error(t, err)

	res, err = srv.ExecuteTool(ctx, "chat", map[string]interface{}{"query": "why?"})
	require.NoError(t, err)
	assert.Equal(t, "answer to why?", res.(map[string]interface{})["text"])

	assert.Contains(t, fa.calls, "highlight #login")
	assert.Contains(t, fa.calls, "mode DARK_MODE")
}

func TestGuideTools(t *testing.T) {
	srv, _, s := newTestServer(t)
	ctx := context.Background()

	_, err := srv.ExecuteTool(ctx, "guide_next", nil)
	assert.ErrorContains(t, err, "guide_start")

	res, err := srv.ExecuteTool(ctx, "guide_start", map[string]interface{}{"goal": "open settings"})
	require.NoError(t, err)
	v := res.(statusView)
	require.NotNil(t, v.Step)
	assert.Equal(t, 1, v.Step.Number)
	assert.Equal(t, 2, v.Step.Of)
	assert.Equal(t, "#a", v.Step.Selector)
	assert.False(t, v.Done)

	res, err = srv.ExecuteTool(ctx, "guide_next", nil)
	require.NoError(t, err)
	assert.Equal(t, "#b", res.(statusView).Step.Selector)

	res, err = srv.ExecuteTool(ctx, "guide_next", nil)
	require.NoError(t, err)
	assert.True(t, res.(statusView).Done)
	assert.Nil(t, res.(statusView).Step)
	assert.Equal(t, session.Idle, s.Status().State)

	_, err = srv.ExecuteTool(ctx, "guide_start", map[string]interface{}{"goal": "x"})
	require.NoError(t, err)
	res, err = srv.ExecuteTool(ctx, "guide_stop", nil)
	require.NoError(t, err)
	assert.True(t, res.(statusView).Done)
}

func TestWrapTool(t *testing.T) {
	srv, fa, _ := newTestServer(t)
	ctx := context.Background()

	call := func(name string, args map[string]interface{}) *mcp.CallToolResult {
		var req mcp.CallToolRequest
		req.Params.Name = name
		req.Params.Arguments = args
		res, err := srv.wrapTool(srv.tools[name])(ctx, req)
		require.NoError(t, err)
		require.Len(t, res.Content, 1)
		return res
	}
	text := func(res *mcp.CallToolResult) string {
		tc, ok := res.Content[0].(mcp.TextContent)
		require.True(t, ok)
		return tc.Text
	}

	res := call("scrape_page", nil)
	assert.False(t, res.IsError)
	assert.JSONEq(t, `{"url":"https://shop.test/","title":"Shop","interactiveElements":[],"mainText":""}`, text(res))

	res = call("guide_status", nil)
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text(res)), &status))
	assert.Equal(t, "IDLE", status["state"])
	assert.Equal(t, true, status["done"])

	fa.resolve = func(string) (*guide.Plan, error) {
		return nil, ai.NewResolutionError("navigation", ai.ErrEmptyResponse)
	}
	res = call("guide_start", map[string]interface{}{"goal": "fly"})
	assert.True(t, res.IsError)
	assert.Contains(t, text(res), "could not find a way")

	fa.failWith = errors.New("page gone")
	res = call("reset_theme", nil)
	assert.True(t, res.IsError)
	assert.Equal(t, "tool reset_theme failed: page gone", text(res))
}

func TestMarshalToolPayloadFallback(t *testing.T) {
	payload := marshalToolPayload("bad", map[string]interface{}{"f": func() {}})
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &out))
	assert.Equal(t, false, out["success"])
	assert.Contains(t, out["error"], "non-serializable")
}
