package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/v0xg/shadowlight/internal/overlay"
)

// Options configures how the browser is obtained and how pages are distilled
type Options struct {
	Width      int
	Height     int
	Headless   bool
	ProfileDir string // Chrome/Chromium profile directory for authenticated sessions
	ControlURL string // attach to a running browser instead of launching one
	Timeout    time.Duration
	Limits     Limits
	Logger     *zap.Logger
}

// Browser wraps the Rod browser and the single page being guided. It is the
// live document every page-side operation runs against.
type Browser struct {
	browser *rod.Browser
	page    *rod.Page
	owned   bool // launched by us, so Close shuts the process down
	limits  Limits
	timeout time.Duration
	log     *zap.Logger
}

// Open launches (or attaches to) a browser and loads startURL.
func Open(ctx context.Context, startURL string, opts Options) (*Browser, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Width == 0 || opts.Height == 0 {
		opts.Width, opts.Height = 1280, 720
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	controlURL := opts.ControlURL
	owned := false
	if controlURL == "" {
		path, _ := launcher.LookPath()
		l := launcher.New().Context(ctx).Bin(path).Headless(opts.Headless)
		if opts.ProfileDir != "" {
			l = l.UserDataDir(opts.ProfileDir)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
		owned = true
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Width,
		Height:            opts.Height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		log.Warn("set viewport failed", zap.Error(err))
	}

	b := &Browser{
		browser: browser,
		page:    page,
		owned:   owned,
		limits:  opts.Limits.withDefaults(),
		timeout: opts.Timeout,
		log:     log,
	}

	if startURL != "" {
		if err := b.navigate(ctx, startURL); err != nil {
			b.Close()
			return nil, err
		}
	}
	return b, nil
}

// Close cleans up browser resources. An attached browser is left running.
func (b *Browser) Close() {
	if b.page != nil {
		_ = b.page.Close()
	}
	if b.browser != nil && b.owned {
		_ = b.browser.Close()
	}
}

// Page returns the underlying Rod page
func (b *Browser) Page() *rod.Page {
	return b.page
}

// URL returns the address of the current document.
func (b *Browser) URL(ctx context.Context) (string, error) {
	res, err := b.page.Context(ctx).Eval(`() => window.location.href`)
	if err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return res.Value.String(), nil
}

// Distill scans the live document. It has no side effects on the page.
func (b *Browser) Distill(ctx context.Context) (*DistilledMap, error) {
	res, err := b.page.Context(ctx).Eval(snapshotJS, b.limits.BodyTextLimit)
	if err != nil {
		return nil, fmt.Errorf("snapshot page: %w", err)
	}

	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	var page RawPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	m := Distill(page, b.limits)
	if m.Empty() {
		b.log.Warn("distillation found no interactive elements", zap.String("url", m.URL))
	} else {
		b.log.Debug("page distilled",
			zap.String("url", m.URL),
			zap.Int("candidates", len(page.Candidates)),
			zap.Int("elements", len(m.InteractiveElements)))
	}
	return m, nil
}

// Locate implements overlay.Surface.
func (b *Browser) Locate(ctx context.Context, selector string) (overlay.Rect, bool, error) {
	res, err := b.page.Context(ctx).Eval(locateJS, selector)
	if err != nil {
		return overlay.Rect{}, false, err
	}
	if res.Value.Nil() {
		return overlay.Rect{}, false, nil
	}
	return overlay.Rect{
		X:      res.Value.Get("x").Num(),
		Y:      res.Value.Get("y").Num(),
		Width:  res.Value.Get("width").Num(),
		Height: res.Value.Get("height").Num(),
	}, true, nil
}

// Mount implements overlay.Surface.
func (b *Browser) Mount(ctx context.Context) error {
	_, err := b.page.Context(ctx).Eval(`() => {` + ensureOverlayJS + `}`)
	return err
}

// Paint implements overlay.Surface.
func (b *Browser) Paint(ctx context.Context, st overlay.State) error {
	_, err := b.page.Context(ctx).Eval(paintJS, st.Visible, st.Box.X, st.Box.Y, st.Box.Width, st.Box.Height)
	return err
}

// ScrollIntoView implements overlay.Surface.
func (b *Browser) ScrollIntoView(ctx context.Context, selector string) error {
	_, err := b.page.Context(ctx).Eval(scrollJS, selector)
	return err
}

// SetFilter implements theme.Styler.
func (b *Browser) SetFilter(ctx context.Context, expr string) error {
	_, err := b.page.Context(ctx).Eval(`(f) => { document.documentElement.style.filter = f; }`, expr)
	return err
}

// SetThemeCSS implements theme.Styler.
func (b *Browser) SetThemeCSS(ctx context.Context, css string) error {
	_, err := b.page.Context(ctx).Eval(themeJS, css)
	return err
}

// NavigateTo moves the page to target, which may be an absolute URL, a path,
// or a relative reference resolved against the current location.
func (b *Browser) NavigateTo(ctx context.Context, target string) error {
	current, err := b.URL(ctx)
	if err != nil {
		return err
	}
	dest, err := ResolveTarget(current, target)
	if err != nil {
		return err
	}
	if dest == current {
		return nil
	}
	b.log.Info("navigating", zap.String("from", current), zap.String("to", dest))
	return b.navigate(ctx, dest)
}

// Navigation is one main-frame location change.
type Navigation struct {
	URL string
	// SameDocument marks history or hash changes that keep the document,
	// and with it any injected nodes.
	SameDocument bool
}

// WatchNavigation calls fn after every main-frame navigation, including
// same-document route changes of single page apps. It returns when ctx is
// done.
func (b *Browser) WatchNavigation(ctx context.Context, fn func(Navigation)) {
	wait := b.page.Context(ctx).EachEvent(
		func(e *proto.PageFrameNavigated) {
			if e.Frame.ParentID == "" {
				fn(Navigation{URL: e.Frame.URL})
			}
		},
		func(e *proto.PageNavigatedWithinDocument) {
			fn(Navigation{URL: e.URL, SameDocument: true})
		},
	)
	wait()
}

// Settle waits for the current page to finish loading and render controls.
// Used after actions that may change the page.
func (b *Browser) Settle(ctx context.Context) {
	page := b.page.Context(ctx)
	if err := page.Timeout(b.timeout).WaitLoad(); err != nil {
		b.log.Debug("wait load", zap.Error(err))
	}
	// Don't hang on persistent connections (WebSockets, polling, etc.)
	page.Timeout(5*time.Second).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
	waitForInteractiveElements(page, 5*time.Second)
}

func (b *Browser) navigate(ctx context.Context, dest string) error {
	page := b.page.Context(ctx).Timeout(b.timeout)
	if err := page.Navigate(dest); err != nil {
		return fmt.Errorf("navigate to %s: %w", dest, err)
	}
	b.Settle(ctx)
	return nil
}

// ResolveTarget resolves a step's target page against the current URL.
func ResolveTarget(current, target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", errors.New("empty navigation target")
	}
	base, err := url.Parse(current)
	if err != nil {
		return "", fmt.Errorf("parse current url: %w", err)
	}
	ref, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parse target %q: %w", target, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// waitForInteractiveElements polls until interactive elements appear or timeout
func waitForInteractiveElements(page *rod.Page, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	checkInterval := 200 * time.Millisecond

	for time.Now().Before(deadline) {
		res, err := page.Eval(countVisibleJS)
		if err != nil {
			return
		}
		if res.Value.Int() > 0 {
			// Found elements, wait a tiny bit more for any final renders
			time.Sleep(300 * time.Millisecond)
			return
		}
		time.Sleep(checkInterval)
	}
}
