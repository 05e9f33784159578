package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/v0xg/shadowlight/internal/ai"
	"github.com/v0xg/shadowlight/internal/crawler"
	"github.com/v0xg/shadowlight/internal/guide"
	"github.com/v0xg/shadowlight/internal/overlay"
	"github.com/v0xg/shadowlight/internal/theme"
	"github.com/v0xg/shadowlight/internal/transport"
)

// Caller is one end of a transport bus.
type Caller interface {
	Call(ctx context.Context, kind transport.Kind, payload, out any) error
	Notify(ctx context.Context, kind transport.Kind, payload any) error
}

// Panel is the user-facing client. It talks to the page and to the
// background worker and plugs into a session as its Resolver, Highlighter
// and Navigator.
type Panel struct {
	page       Caller
	background Caller
	log        *zap.Logger

	mu   sync.Mutex
	mode theme.Mode
	text string // main text of the last scrape
}

// NewPanel creates a panel over the page and background buses.
func NewPanel(page, background Caller, log *zap.Logger) *Panel {
	if log == nil {
		log = zap.NewNop()
	}
	return &Panel{page: page, background: background, log: log}
}

// Scrape distills the current page.
func (p *Panel) Scrape(ctx context.Context) (*crawler.DistilledMap, error) {
	var m crawler.DistilledMap
	if err := p.page.Call(ctx, transport.KindScrapePage, nil, &m); err != nil {
		return nil, fmt.Errorf("scrape page: %w", err)
	}
	if m.InteractiveElements == nil {
		m.InteractiveElements = []crawler.InteractiveElement{}
	}
	p.mu.Lock()
	p.text = m.MainText
	p.mu.Unlock()
	return &m, nil
}

// Refresh rescrapes after a page load and re-applies the selected mode.
func (p *Panel) Refresh(ctx context.Context) (*crawler.DistilledMap, error) {
	m, err := p.Scrape(ctx)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	mode := p.mode
	p.mu.Unlock()
	if mode != theme.Normal {
		p.notify(ctx, transport.KindApplyContrast, transport.Contrast{Filter: mode.Filter()})
	}
	return m, nil
}

// Resolve scrapes the page and asks the background worker for a plan.
func (p *Panel) Resolve(ctx context.Context, goal string) (*guide.Plan, error) {
	m, err := p.Scrape(ctx)
	if err != nil {
		return nil, ai.NewResolutionError("navigation", err)
	}

	var steps []guide.NavStep
	req := transport.GenerateNav{Goal: goal, Context: guide.Context{Map: m, CurrentPage: m.URL}}
	if err := p.background.Call(ctx, transport.KindGenerateNav, req, &steps); err != nil {
		return nil, ai.NewResolutionError("navigation", err)
	}
	if len(steps) == 0 {
		return nil, ai.NewResolutionError("navigation", ai.ErrEmptyResponse)
	}
	return &guide.Plan{Goal: goal, Steps: steps, Unverified: guide.Unverified(steps, m, m.URL)}, nil
}

// Apply sends a sequenced highlight or clear to the page. A closed page is
// not an error for fire-and-forget traffic.
func (p *Panel) Apply(ctx context.Context, cmd overlay.Command) error {
	if cmd.Selector == "" {
		p.notify(ctx, transport.KindClearHighlight, transport.Clear{Seq: cmd.Seq})
	} else {
		p.notify(ctx, transport.KindHighlightElement, transport.Highlight{Selector: cmd.Selector, Seq: cmd.Seq})
	}
	return nil
}

// RequestNavigate asks the page to move to target.
func (p *Panel) RequestNavigate(ctx context.Context, target string) error {
	p.notify(ctx, transport.KindNavigateTo, transport.Navigate{Target: target})
	return nil
}

// Highlight spotlights selector right away, outside any session ordering.
// A selector missing from the page is not an error.
func (p *Panel) Highlight(ctx context.Context, selector string) error {
	if selector == "" {
		return errors.New("empty selector")
	}
	return p.page.Call(ctx, transport.KindHighlightElement, transport.Highlight{Selector: selector}, nil)
}

// ClearHighlight hides the spotlight.
func (p *Panel) ClearHighlight(ctx context.Context) error {
	return p.page.Call(ctx, transport.KindClearHighlight, nil, nil)
}

// Navigate moves the page to target and waits for it to load.
func (p *Panel) Navigate(ctx context.Context, target string) error {
	if err := p.page.Call(ctx, transport.KindNavigateTo, transport.Navigate{Target: target}, nil); err != nil {
		return err
	}
	_, err := p.Refresh(ctx)
	return err
}

// ApplyFilter applies a raw filter expression.
func (p *Panel) ApplyFilter(ctx context.Context, expr string) error {
	return p.page.Call(ctx, transport.KindApplyContrast, transport.Contrast{Filter: expr}, nil)
}

// ApplyMode applies an accessibility mode and remembers it for later loads.
func (p *Panel) ApplyMode(ctx context.Context, mode theme.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid mode %d", mode)
	}
	if err := p.page.Call(ctx, transport.KindApplyContrast, transport.Contrast{Filter: mode.Filter()}, nil); err != nil {
		return err
	}
	p.mu.Lock()
	p.mode = mode
	p.mu.Unlock()
	return nil
}

// Mode is the last applied accessibility mode.
func (p *Panel) Mode() theme.Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// ApplyTheme recolors the page.
func (p *Panel) ApplyTheme(ctx context.Context, textColor, bgColor string) error {
	return p.page.Call(ctx, transport.KindApplyTheme, transport.Theme{TextColor: textColor, BgColor: bgColor}, nil)
}

// ResetTheme removes the recolor.
func (p *Panel) ResetTheme(ctx context.Context) error {
	return p.page.Call(ctx, transport.KindResetTheme, nil, nil)
}

// Summarize summarizes the page text.
func (p *Panel) Summarize(ctx context.Context, mode ai.SummaryMode) (*ai.SummaryResult, error) {
	content, err := p.content(ctx)
	if err != nil {
		return nil, ai.NewResolutionError("summary", err)
	}
	var out ai.SummaryResult
	if err := p.background.Call(ctx, transport.KindSummarize, transport.Summarize{Content: content, Mode: mode}, &out); err != nil {
		return nil, ai.NewResolutionError("summary", err)
	}
	return &out, nil
}

// Chat answers query about the page.
func (p *Panel) Chat(ctx context.Context, query string) (string, error) {
	content, err := p.content(ctx)
	if err != nil {
		return "", ai.NewResolutionError("chat", err)
	}
	var out transport.Text
	if err := p.background.Call(ctx, transport.KindChat, transport.Chat{Query: query, Context: content}, &out); err != nil {
		return "", ai.NewResolutionError("chat", err)
	}
	return out.Text, nil
}

// Repurpose rewrites the page text as format.
func (p *Panel) Repurpose(ctx context.Context, format ai.RepurposeFormat) (string, error) {
	content, err := p.content(ctx)
	if err != nil {
		return "", ai.NewResolutionError("repurpose", err)
	}
	var out transport.Text
	if err := p.background.Call(ctx, transport.KindRepurpose, transport.Repurpose{Content: content, Format: format}, &out); err != nil {
		return "", ai.NewResolutionError("repurpose", err)
	}
	return out.Text, nil
}

// content returns the cached page text, scraping once if there is none.
func (p *Panel) content(ctx context.Context) (string, error) {
	p.mu.Lock()
	text := p.text
	p.mu.Unlock()
	if text != "" {
		return text, nil
	}
	m, err := p.Scrape(ctx)
	if err != nil {
		return "", err
	}
	return m.MainText, nil
}

func (p *Panel) notify(ctx context.Context, kind transport.Kind, payload any) {
	err := p.page.Notify(ctx, kind, payload)
	if err != nil && !errors.Is(err, transport.ErrUnavailable) {
		p.log.Warn("notification not sent", zap.String("kind", string(kind)), zap.Error(err))
	}
}
