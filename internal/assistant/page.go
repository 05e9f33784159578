// Package assistant wires the page-side, background and panel halves of the
// guide together over transport buses.
package assistant

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/v0xg/shadowlight/internal/crawler"
	"github.com/v0xg/shadowlight/internal/overlay"
	"github.com/v0xg/shadowlight/internal/theme"
	"github.com/v0xg/shadowlight/internal/transport"
)

// PageHost is the live document the page-side handlers act on.
type PageHost interface {
	overlay.Surface
	theme.Styler
	Distill(ctx context.Context) (*crawler.DistilledMap, error)
	NavigateTo(ctx context.Context, target string) error
}

// Page owns the per-page resources: one overlay controller and one theme
// applier.
type Page struct {
	host    PageHost
	overlay *overlay.Controller
	theme   *theme.Applier
	log     *zap.Logger
}

// NewPage creates the page side for host. opts tune the overlay controller.
func NewPage(host PageHost, log *zap.Logger, opts ...overlay.Option) *Page {
	if log == nil {
		log = zap.NewNop()
	}
	opts = append([]overlay.Option{overlay.WithLogger(log.Named("overlay"))}, opts...)
	return &Page{
		host:    host,
		overlay: overlay.NewController(host, opts...),
		theme:   theme.NewApplier(host),
		log:     log,
	}
}

// Overlay returns the page's highlight controller.
func (p *Page) Overlay() *overlay.Controller { return p.overlay }

// Theme returns the page's theme applier.
func (p *Page) Theme() *theme.Applier { return p.theme }

// Reloaded tells the page side that the document was replaced, so the overlay
// nodes must be injected again. Active filter and recolor are re-applied.
func (p *Page) Reloaded(ctx context.Context) {
	p.overlay.Reset()
	filter, css := p.theme.Active()
	if filter != "" {
		if err := p.host.SetFilter(ctx, filter); err != nil {
			p.log.Debug("reapply filter failed", zap.Error(err))
		}
	}
	if css != "" {
		if err := p.host.SetThemeCSS(ctx, css); err != nil {
			p.log.Debug("reapply theme failed", zap.Error(err))
		}
	}
}

// Navigated reacts to a location change reported by the browser. Only a
// replaced document needs the overlay and styling injected again.
func (p *Page) Navigated(ctx context.Context, nav crawler.Navigation) {
	if nav.SameDocument {
		p.log.Debug("same-document navigation", zap.String("url", nav.URL))
		return
	}
	p.Reloaded(ctx)
}

// RegisterPage installs the page-side kinds. Distillation and highlight
// failures are absorbed here and never reach the caller.
func RegisterPage(r *transport.Router, p *Page) {
	r.Handle(transport.KindScrapePage, func(ctx context.Context, _ transport.Request) (any, error) {
		m, err := p.host.Distill(ctx)
		if err != nil {
			p.log.Warn("distillation failed, answering with an empty map", zap.Error(err))
			return &crawler.DistilledMap{InteractiveElements: []crawler.InteractiveElement{}}, nil
		}
		return m, nil
	})

	transport.On(r, transport.KindHighlightElement, func(ctx context.Context, h transport.Highlight) (any, error) {
		if h.Selector == "" {
			p.log.Debug("ignoring highlight without selector")
			return nil, nil
		}
		p.apply(ctx, overlay.Command{Seq: h.Seq, Selector: h.Selector})
		return nil, nil
	})

	transport.On(r, transport.KindClearHighlight, func(ctx context.Context, c transport.Clear) (any, error) {
		p.apply(ctx, overlay.Command{Seq: c.Seq})
		return nil, nil
	})

	transport.On(r, transport.KindApplyContrast, func(ctx context.Context, c transport.Contrast) (any, error) {
		return nil, p.theme.ApplyFilter(ctx, c.Filter)
	})

	transport.On(r, transport.KindApplyTheme, func(ctx context.Context, t transport.Theme) (any, error) {
		return nil, p.theme.ApplyTheme(ctx, t.TextColor, t.BgColor)
	})

	r.Handle(transport.KindResetTheme, func(ctx context.Context, _ transport.Request) (any, error) {
		return nil, p.theme.ResetTheme(ctx)
	})

	transport.On(r, transport.KindNavigateTo, func(ctx context.Context, n transport.Navigate) (any, error) {
		if err := p.host.NavigateTo(ctx, n.Target); err != nil {
			return nil, err
		}
		p.Reloaded(ctx)
		return nil, nil
	})
}

func (p *Page) apply(ctx context.Context, cmd overlay.Command) {
	err := p.overlay.Apply(ctx, cmd)
	switch {
	case err == nil, errors.Is(err, overlay.ErrStale):
	case errors.Is(err, overlay.ErrSelectorNotFound):
		p.log.Debug("highlight target not on page", zap.String("selector", cmd.Selector))
	default:
		p.log.Warn("highlight failed", zap.String("selector", cmd.Selector), zap.Error(err))
	}
}
