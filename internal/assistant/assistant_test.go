package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/v0xg/shadowlight/internal/ai"
	"github.com/v0xg/shadowlight/internal/crawler"
	"github.com/v0xg/shadowlight/internal/overlay"
	"github.com/v0xg/shadowlight/internal/session"
	"github.com/v0xg/shadowlight/internal/theme"
	"github.com/v0xg/shadowlight/internal/transport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeHost is an in-memory page with a fixed set of locatable elements per URL.
type fakeHost struct {
	mu      sync.Mutex
	url     string
	pages   map[string]*crawler.DistilledMap
	boxes   map[string]overlay.Rect
	painted []overlay.State
	mounts  int
	filter  string
	css     string
	navErr  error
	distErr error
	visited []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		url: "https://shop.test/",
		pages: map[string]*crawler.DistilledMap{
			"https://shop.test/": {
				URL: "https://shop.test/", Title: "Home", MainText: "Welcome to the shop",
				InteractiveElements: []crawler.InteractiveElement{
					{TagName: "a", ID: "nav-login", Text: "Login", SuggestedSelector: "#nav-login"},
				},
			},
			"https://shop.test/login": {
				URL: "https://shop.test/login", Title: "Login", MainText: "Sign in",
				InteractiveElements: []crawler.InteractiveElement{
					{TagName: "input", ID: "email", Type: "email", SuggestedSelector: "#email"},
				},
			},
		},
		boxes: map[string]overlay.Rect{
			"https://shop.test/#nav-login":  {X: 10, Y: 10, Width: 80, Height: 20},
			"https://shop.test/login#email": {X: 100, Y: 200, Width: 300, Height: 40},
		},
	}
}

func (h *fakeHost) Distill(context.Context) (*crawler.DistilledMap, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.distErr != nil {
		return nil, h.distErr
	}
	m, ok := h.pages[h.url]
	if !ok {
		return &crawler.DistilledMap{URL: h.url, InteractiveElements: []crawler.InteractiveElement{}}, nil
	}
	return m, nil
}

func (h *fakeHost) NavigateTo(_ context.Context, target string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.navErr != nil {
		return h.navErr
	}
	dest, err := crawler.ResolveTarget(h.url, target)
	if err != nil {
		return err
	}
	h.url = dest
	h.visited = append(h.visited, dest)
	return nil
}

func (h *fakeHost) Locate(_ context.Context, selector string) (overlay.Rect, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	box, ok := h.boxes[h.url+selector]
	return box, ok, nil
}

func (h *fakeHost) Mount(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mounts++
	return nil
}

func (h *fakeHost) Paint(_ context.Context, st overlay.State) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.painted = append(h.painted, st)
	return nil
}

func (h *fakeHost) ScrollIntoView(context.Context, string) error { return nil }

func (h *fakeHost) SetFilter(_ context.Context, expr string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.filter = expr
	return nil
}

func (h *fakeHost) SetThemeCSS(_ context.Context, css string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.css = css
	return nil
}

func (h *fakeHost) currentURL() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.url
}

type rig struct {
	host       *fakeHost
	page       *Page
	pageBus    *transport.Bus
	background *transport.Bus
	panel      *Panel
}

func newRig(t *testing.T, model ai.ProviderFunc) *rig {
	t.Helper()
	host := newFakeHost()
	page := NewPage(host, nil)

	pr := transport.NewRouter(nil)
	RegisterPage(pr, page)
	br := transport.NewRouter(nil)
	RegisterBackground(br, ai.NewBrain(model), nil)

	r := &rig{
		host:       host,
		page:       page,
		pageBus:    transport.NewBus(context.Background(), pr),
		background: transport.NewBus(context.Background(), br),
	}
	r.panel = NewPanel(r.pageBus, r.background, nil)
	t.Cleanup(func() {
		r.pageBus.Close()
		r.background.Close()
	})
	return r
}

// sync waits until every notification queued on the page bus ran.
func (r *rig) sync(t *testing.T) {
	t.Helper()
	require.NoError(t, r.pageBus.Call(context.Background(), transport.KindResetTheme, nil, nil))
}

func noModel(context.Context, ai.Request) (string, error) {
	return "", errors.New("no model in this test")
}

func TestScrape(t *testing.T) {
	r := newRig(t, noModel)
	m, err := r.panel.Scrape(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Home", m.Title)
	require.Len(t, m.InteractiveElements, 1)
	assert.Equal(t, "#nav-login", m.InteractiveElements[0].SuggestedSelector)
}

func TestScrapeFailureIsAbsorbed(t *testing.T) {
	r := newRig(t, noModel)
	r.host.distErr = errors.New("target closed")

	m, err := r.panel.Scrape(context.Background())
	require.NoError(t, err)
	assert.True(t, m.Empty())
	assert.NotNil(t, m.InteractiveElements)
}

func TestGuidedTourAcrossPages(t *testing.T) {
	model := ai.ProviderFunc(func(_ context.Context, req ai.Request) (string, error) {
		if !strings.Contains(req.Prompt, "#nav-login") {
			return "", errors.New("map not in prompt")
		}
		return `[
		 {"selector":"#nav-login","instruction":"Click Login","action":"click","targetPage":"https://shop.test/","confidenceScore":0.9},
		 {"selector":"#email","instruction":"Type your email","action":"type","targetPage":"/login","confidenceScore":0.8}
		]`, nil
	})
	r := newRig(t, model)
	ctx := context.Background()

	s := session.New(r.panel, r.panel, r.panel)
	s.Observe(ctx, r.host.currentURL())
	require.NoError(t, s.Start(ctx, "log in"))
	r.sync(t)

	st := r.page.Overlay().State()
	assert.True(t, st.Visible)
	assert.Equal(t, "#nav-login", st.Selector)
	assert.Equal(t, overlay.Rect{X: 8, Y: 8, Width: 84, Height: 24}, st.Box)

	// Step 2 lives on /login: the session asks for navigation and clears.
	require.NoError(t, s.Advance(ctx))
	r.sync(t)
	assert.Equal(t, []string{"https://shop.test/login"}, r.host.visited)
	assert.False(t, r.page.Overlay().State().Visible)

	// The page reports the new location; the highlight comes back.
	s.Observe(ctx, r.host.currentURL())
	r.sync(t)
	st = r.page.Overlay().State()
	assert.True(t, st.Visible)
	assert.Equal(t, "#email", st.Selector)

	require.NoError(t, s.Advance(ctx))
	r.sync(t)
	assert.False(t, r.page.Overlay().State().Visible)
	assert.Equal(t, session.Idle, s.Status().State)
}

func TestResolveFailureSurfacesResolutionError(t *testing.T) {
	r := newRig(t, func(context.Context, ai.Request) (string, error) { return "[]", nil })
	s := session.New(r.panel, r.panel, r.panel)

	err := s.Start(context.Background(), "find the login button")
	require.Error(t, err)

	var rerr *ai.ResolutionError
	require.ErrorAs(t, err, &rerr)
	var remote *transport.RemoteError
	assert.ErrorAs(t, err, &remote)
	assert.NotEmpty(t, rerr.UserMessage())
	assert.Equal(t, session.Idle, s.Status().State)
}

func TestHighlightMissingSelectorIsNoop(t *testing.T) {
	r := newRig(t, noModel)
	ctx := context.Background()

	require.NoError(t, r.pageBus.Call(ctx, transport.KindHighlightElement, transport.Highlight{Selector: "#nav-login"}, nil))
	before := r.page.Overlay().State()

	require.NoError(t, r.pageBus.Call(ctx, transport.KindHighlightElement, transport.Highlight{Selector: "#missing"}, nil))
	assert.Equal(t, before, r.page.Overlay().State())
	assert.Equal(t, 1, r.host.mounts)
}

func TestClearTwiceIsNoop(t *testing.T) {
	r := newRig(t, noModel)
	ctx := context.Background()

	require.NoError(t, r.pageBus.Call(ctx, transport.KindHighlightElement, transport.Highlight{Selector: "#nav-login"}, nil))
	require.NoError(t, r.pageBus.Call(ctx, transport.KindClearHighlight, nil, nil))
	n := len(r.host.painted)
	require.NoError(t, r.pageBus.Call(ctx, transport.KindClearHighlight, nil, nil))
	assert.Len(t, r.host.painted, n)
}

func TestStaleHighlightDropped(t *testing.T) {
	r := newRig(t, noModel)
	ctx := context.Background()

	require.NoError(t, r.panel.Apply(ctx, overlay.Command{Seq: 2}))
	require.NoError(t, r.panel.Apply(ctx, overlay.Command{Seq: 1, Selector: "#nav-login"}))
	r.sync(t)
	assert.False(t, r.page.Overlay().State().Visible)
}

func TestModesAndTheme(t *testing.T) {
	r := newRig(t, noModel)
	ctx := context.Background()

	require.NoError(t, r.panel.ApplyMode(ctx, theme.Grayscale))
	assert.Equal(t, "grayscale(1)", r.host.filter)
	assert.Equal(t, theme.Grayscale, r.panel.Mode())

	require.NoError(t, r.panel.ApplyTheme(ctx, "#fff", "#000"))
	assert.Contains(t, r.host.css, "color: #fff !important")
	assert.Equal(t, "grayscale(1)", r.host.filter, "recolor leaves the filter alone")

	err := r.panel.ApplyTheme(ctx, "red; } body {", "#000")
	var remote *transport.RemoteError
	assert.ErrorAs(t, err, &remote)

	require.NoError(t, r.panel.ResetTheme(ctx))
	assert.Empty(t, r.host.css)
	assert.Equal(t, "grayscale(1)", r.host.filter)

	require.NoError(t, r.panel.ApplyMode(ctx, theme.Normal))
	assert.Empty(t, r.host.filter)

	assert.Error(t, r.panel.ApplyMode(ctx, theme.Mode(99)))
}

func TestNavigateReappliesStyling(t *testing.T) {
	r := newRig(t, noModel)
	ctx := context.Background()

	require.NoError(t, r.panel.ApplyMode(ctx, theme.DarkMode))
	require.NoError(t, r.pageBus.Call(ctx, transport.KindHighlightElement, transport.Highlight{Selector: "#nav-login"}, nil))
	r.host.filter = "" // a fresh document has no filter

	require.NoError(t, r.pageBus.Call(ctx, transport.KindNavigateTo, transport.Navigate{Target: "login"}, nil))
	assert.Equal(t, "https://shop.test/login", r.host.currentURL())
	assert.Equal(t, theme.DarkMode.Filter(), r.host.filter)
	assert.False(t, r.page.Overlay().State().Visible)

	require.NoError(t, r.pageBus.Call(ctx, transport.KindHighlightElement, transport.Highlight{Selector: "#email"}, nil))
	assert.Equal(t, 2, r.host.mounts, "overlay is injected again into the new document")

	r.host.navErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
	err := r.pageBus.Call(ctx, transport.KindNavigateTo, transport.Navigate{Target: "https://nowhere.invalid"}, nil)
	assert.Error(t, err)
}

func TestRefreshReappliesMode(t *testing.T) {
	r := newRig(t, noModel)
	ctx := context.Background()
	require.NoError(t, r.panel.ApplyMode(ctx, theme.HighContrast))
	r.host.filter = ""

	_, err := r.panel.Refresh(ctx)
	require.NoError(t, err)
	r.sync(t)
	assert.Equal(t, "contrast(1.5)", r.host.filter)
}

func TestSummarizeChatRepurpose(t *testing.T) {
	var prompts []string
	var mu sync.Mutex
	model := ai.ProviderFunc(func(_ context.Context, req ai.Request) (string, error) {
		mu.Lock()
		prompts = append(prompts, req.System+req.Prompt)
		mu.Unlock()
		switch {
		case req.Schema == ai.SummarySchema:
			return `{"title":"Shop","content":"A shop.","keyTakeaways":["buy things"]}`, nil
		case strings.Contains(req.Prompt, "tweet"):
			return "Shop now! #deals", nil
		default:
			return "It is a shop.", nil
		}
	})
	r := newRig(t, model)
	ctx := context.Background()

	sum, err := r.panel.Summarize(ctx, ai.SummaryShort)
	require.NoError(t, err)
	assert.Equal(t, "Shop", sum.Title)
	assert.Equal(t, []string{"buy things"}, sum.KeyTakeaways)

	answer, err := r.panel.Chat(ctx, "what is this?")
	require.NoError(t, err)
	assert.Equal(t, "It is a shop.", answer)

	tweet, err := r.panel.Repurpose(ctx, ai.FormatTweet)
	require.NoError(t, err)
	assert.Equal(t, "Shop now! #deals", tweet)

	for _, p := range prompts {
		assert.Contains(t, p, "Welcome to the shop")
	}
}

func TestSummarizeFailure(t *testing.T) {
	r := newRig(t, func(context.Context, ai.Request) (string, error) { return "not json", nil })
	_, err := r.panel.Summarize(context.Background(), ai.SummaryFull)
	assert.True(t, ai.IsResolution(err))
}

func TestPanelSurvivesClosedPage(t *testing.T) {
	r := newRig(t, noModel)
	r.pageBus.Close()
	ctx := context.Background()

	assert.NoError(t, r.panel.Apply(ctx, overlay.Command{Seq: 1, Selector: "#a"}))
	assert.NoError(t, r.panel.RequestNavigate(ctx, "/login"))
	_, err := r.panel.Scrape(ctx)
	assert.ErrorIs(t, err, transport.ErrUnavailable)
}

func TestDirectControls(t *testing.T) {
	r := newRig(t, noModel)
	ctx := context.Background()

	require.NoError(t, r.panel.Highlight(ctx, "#nav-login"))
	assert.True(t, r.page.Overlay().State().Visible)
	require.NoError(t, r.panel.Highlight(ctx, "#missing"), "missing selectors are absorbed")
	assert.Error(t, r.panel.Highlight(ctx, ""))

	require.NoError(t, r.panel.ClearHighlight(ctx))
	assert.False(t, r.page.Overlay().State().Visible)

	require.NoError(t, r.panel.ApplyFilter(ctx, "blur(1px)"))
	assert.Equal(t, "blur(1px)", r.host.filter)
	assert.Error(t, r.panel.ApplyFilter(ctx, "blur(1px); }"))

	require.NoError(t, r.panel.Navigate(ctx, "/login"))
	assert.Equal(t, "https://shop.test/login", r.host.currentURL())
	answer, err := r.panel.content(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Sign in", answer, "navigation refreshes the cached page text")
}

func (h *fakeHost) lastPaint() overlay.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.painted) == 0 {
		return overlay.State{}
	}
	return h.painted[len(h.painted)-1]
}

func (h *fakeHost) routeTo(url string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.url = url
}

func TestRouteChangeClearsSpotlight(t *testing.T) {
	model := ai.ProviderFunc(func(context.Context, ai.Request) (string, error) {
		return `[{"selector":"#nav-login","instruction":"Click Login","action":"click","targetPage":"https://shop.test/"}]`, nil
	})
	tests := []struct {
		name string
		nav  crawler.Navigation
	}{
		{"same document", crawler.Navigation{URL: "https://shop.test/cart", SameDocument: true}},
		{"new document", crawler.Navigation{URL: "https://shop.test/cart"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t, model)
			ctx := context.Background()

			s := session.New(r.panel, r.panel, r.panel)
			s.Observe(ctx, r.host.currentURL())
			require.NoError(t, s.Start(ctx, "log in"))
			r.sync(t)
			require.True(t, r.host.lastPaint().Visible)

			r.host.routeTo(tt.nav.URL)
			r.page.Navigated(ctx, tt.nav)
			s.Observe(ctx, tt.nav.URL)
			r.sync(t)

			assert.Empty(t, s.Status().Highlighted)
			assert.False(t, r.host.lastPaint().Visible, "spotlight left painted on a page the step does not target")
			assert.False(t, r.page.Overlay().State().Visible)

			// Coming back brings the highlight back.
			r.host.routeTo("https://shop.test/")
			r.page.Navigated(ctx, crawler.Navigation{URL: "https://shop.test/", SameDocument: tt.nav.SameDocument})
			s.Observe(ctx, "https://shop.test/")
			r.sync(t)
			assert.True(t, r.host.lastPaint().Visible)
			assert.Equal(t, "#nav-login", r.page.Overlay().State().Selector)
		})
	}
}
