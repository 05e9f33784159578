package theme

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrInvalidColor rejects color values that could break out of a declaration.
var ErrInvalidColor = errors.New("invalid color value")

// Styler writes page-wide styling. The filter and the injected stylesheet are
// separate resources.
type Styler interface {
	// SetFilter replaces the document-wide filter expression; "" removes it.
	SetFilter(ctx context.Context, expr string) error
	// SetThemeCSS replaces the content of the single injected style rule.
	SetThemeCSS(ctx context.Context, css string) error
}

// Applier tracks the two independent styling modes of a page.
type Applier struct {
	styler Styler

	mu     sync.Mutex
	filter string
	css    string
}

// NewApplier creates an applier over styler.
func NewApplier(styler Styler) *Applier {
	return &Applier{styler: styler}
}

// ApplyMode sets the filter for an accessibility preset. NORMAL clears it.
func (a *Applier) ApplyMode(ctx context.Context, m Mode) error {
	if m == Normal {
		return a.ClearFilter(ctx)
	}
	return a.ApplyFilter(ctx, m.Filter())
}

// ApplyFilter atomically replaces the page filter with expr.
func (a *Applier) ApplyFilter(ctx context.Context, expr string) error {
	expr = strings.TrimSpace(expr)
	if expr == "none" {
		expr = ""
	}
	if strings.ContainsAny(expr, ";{}<>") {
		return fmt.Errorf("invalid filter expression %q", expr)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.styler.SetFilter(ctx, expr); err != nil {
		return fmt.Errorf("apply filter: %w", err)
	}
	a.filter = expr
	return nil
}

// ClearFilter removes the page filter. The recolor stylesheet is untouched.
func (a *Applier) ClearFilter(ctx context.Context) error {
	return a.ApplyFilter(ctx, "")
}

// ApplyTheme overrides text and background colors document-wide.
func (a *Applier) ApplyTheme(ctx context.Context, textColor, bgColor string) error {
	css, err := ThemeCSS(textColor, bgColor)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.styler.SetThemeCSS(ctx, css); err != nil {
		return fmt.Errorf("apply theme: %w", err)
	}
	a.css = css
	return nil
}

// ResetTheme empties the recolor stylesheet. The filter is untouched.
func (a *Applier) ResetTheme(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.styler.SetThemeCSS(ctx, ""); err != nil {
		return fmt.Errorf("reset theme: %w", err)
	}
	a.css = ""
	return nil
}

// Active returns the current filter expression and recolor stylesheet.
func (a *Applier) Active() (filter, css string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.filter, a.css
}

// ThemeCSS renders the recolor stylesheet.
func ThemeCSS(textColor, bgColor string) (string, error) {
	text, err := checkColor(textColor)
	if err != nil {
		return "", err
	}
	bg, err := checkColor(bgColor)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"* { background-color: %[2]s !important; color: %[1]s !important; border-color: %[1]s !important; }\n"+
			"img, video { filter: contrast(1.2) grayscale(0.5) !important; }\n",
		text, bg), nil
}

func checkColor(c string) (string, error) {
	c = strings.TrimSpace(c)
	if c == "" || len(c) > 64 || strings.ContainsAny(c, ";{}<>!\"'\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidColor, c)
	}
	return c, nil
}
