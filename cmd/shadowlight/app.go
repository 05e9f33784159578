package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/v0xg/shadowlight/internal/ai"
	"github.com/v0xg/shadowlight/internal/assistant"
	"github.com/v0xg/shadowlight/internal/crawler"
	"github.com/v0xg/shadowlight/internal/overlay"
	"github.com/v0xg/shadowlight/internal/session"
	"github.com/v0xg/shadowlight/internal/transport"
)

// app is one live page with its page-side and background halves running on
// their own buses, and the panel that talks to both.
type app struct {
	browser    *crawler.Browser
	page       *assistant.Page
	pageBus    *transport.Bus
	background *transport.Bus
	brain      *ai.Brain
	panel      *assistant.Panel
}

// openApp launches the browser on url and wires everything together. The
// model is only initialized when withModel is set.
func openApp(ctx context.Context, url string, withModel bool) (*app, error) {
	a := &app{}

	if withModel {
		p, err := ai.NewProvider(cfg.Model.Provider, cfg.Model.Name)
		if err != nil {
			return nil, fmt.Errorf("AI provider init failed: %w", err)
		}
		a.brain = ai.NewBrain(p, ai.WithMaxTokens(cfg.Model.MaxTokens), ai.WithLogger(logger.Named("ai")))
		logVerbose("  Provider: %s", p.Name())
	}

	fmt.Printf("→ Opening %s... ", url)
	browser, err := crawler.Open(ctx, url, crawler.Options{
		Width:      cfg.Browser.Width,
		Height:     cfg.Browser.Height,
		Headless:   cfg.Browser.Headless,
		ProfileDir: cfg.Browser.ProfileDir,
		ControlURL: cfg.Browser.ControlURL,
		Timeout:    cfg.NavigationTimeout(),
		Limits: crawler.Limits{
			TextLimit:     cfg.Distill.TextLimit,
			ClassLimit:    cfg.Distill.ClassLimit,
			BodyTextLimit: cfg.Distill.BodyTextLimit,
		},
		Logger: logger.Named("crawler"),
	})
	if err != nil {
		fmt.Println("failed")
		return nil, fmt.Errorf("open failed: %w", err)
	}
	fmt.Println("done")
	a.browser = browser

	a.page = assistant.NewPage(browser, logger.Named("page"), overlay.WithMargin(cfg.Highlight.Margin))
	pageRouter := transport.NewRouter(logger.Named("page"))
	assistant.RegisterPage(pageRouter, a.page)
	a.pageBus = transport.NewBus(ctx, pageRouter, transport.WithBusLogger(logger.Named("page-bus")))

	bgRouter := transport.NewRouter(logger.Named("background"))
	if a.brain != nil {
		assistant.RegisterBackground(bgRouter, a.brain, logger.Named("background"))
	}
	a.background = transport.NewBus(ctx, bgRouter, transport.WithBusLogger(logger.Named("background-bus")))

	a.panel = assistant.NewPanel(a.pageBus, a.background, logger.Named("panel"))
	return a, nil
}

func (a *app) close() {
	a.pageBus.Close()
	a.background.Close()
	a.browser.Close()
}

// newSession creates a guide session driven by the panel.
func (a *app) newSession(opts ...session.Option) *session.Session {
	opts = append([]session.Option{
		session.WithResolveTimeout(cfg.ModelTimeout()),
		session.WithLogger(logger.Named("session")),
	}, opts...)
	return session.New(a.panel, a.panel, a.panel, opts...)
}

// observe feeds every settled navigation of the live page to s until ctx
// ends. The current location is reported first.
func (a *app) observe(ctx context.Context, s *session.Session) error {
	if url, err := a.browser.URL(ctx); err == nil {
		s.Observe(ctx, url)
	}

	navs := make(chan crawler.Navigation, 16)
	go a.browser.WatchNavigation(ctx, func(nav crawler.Navigation) {
		select {
		case navs <- nav:
		default:
			logger.Debug("dropping navigation event", zap.String("url", nav.URL))
		}
	})

	for {
		select {
		case <-ctx.Done():
			return nil
		case nav := <-navs:
			a.browser.Settle(ctx)
			a.page.Navigated(ctx, nav)
			if _, err := a.panel.Refresh(ctx); err != nil {
				logger.Debug("refresh after navigation", zap.Error(err))
			}
			s.Observe(ctx, nav.URL)
		}
	}
}

// modelContext bounds a single model-backed command.
func modelContext(ctx context.Context) (context.Context, context.CancelFunc) {
	d := cfg.ModelTimeout()
	if d <= 0 {
		d = session.DefaultResolveTimeout
	}
	return context.WithTimeout(ctx, d+5*time.Second)
}

// userError turns a resolution failure into the message shown to the user.
func userError(err error) error {
	var re *ai.ResolutionError
	if errors.As(err, &re) {
		logger.Debug("resolution failed", zap.Error(err))
		return fmt.Errorf("%s", re.UserMessage())
	}
	return err
}
