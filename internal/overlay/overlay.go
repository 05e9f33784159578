// Package overlay owns the dimming overlay and the spotlight box drawn around
// the element the user should act on.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrSelectorNotFound means the selector does not resolve on the live page.
	// Page drift between planning and highlighting is expected, so callers
	// treat this as a no-op.
	ErrSelectorNotFound = errors.New("selector not found on current page")
	// ErrStale means a sequenced command arrived after a newer one was applied.
	ErrStale = errors.New("stale highlight command")
)

// DefaultMargin is the spotlight padding around the target, in CSS pixels.
const DefaultMargin = 2.0

// Rect is a box in document coordinates (viewport rect plus scroll offset).
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Grow returns r expanded by m on every side.
func (r Rect) Grow(m float64) Rect {
	return Rect{X: r.X - m, Y: r.Y - m, Width: r.Width + 2*m, Height: r.Height + 2*m}
}

// State is the full visual state of the overlay resource.
type State struct {
	Visible  bool   `json:"visible"` // overlay opaque and spotlight displayed
	Selector string `json:"selector,omitempty"`
	Box      Rect   `json:"box"`
}

// Surface is the live document the overlay is painted on.
type Surface interface {
	// Locate resolves selector against the current DOM. ok is false when
	// nothing matches or the selector is not valid CSS.
	Locate(ctx context.Context, selector string) (box Rect, ok bool, err error)
	// Mount creates the overlay and spotlight nodes if they do not exist yet.
	Mount(ctx context.Context) error
	// Paint writes st onto the mounted nodes.
	Paint(ctx context.Context, st State) error
	// ScrollIntoView smoothly centers the element matching selector.
	ScrollIntoView(ctx context.Context, selector string) error
}

// Command is one sequenced highlight instruction. An empty Selector clears.
type Command struct {
	Seq      uint64 `json:"seq"`
	Selector string `json:"selector,omitempty"`
}

// Controller is the single owner of the overlay on one page. Only one
// spotlight target exists at a time; Show replaces, never stacks.
type Controller struct {
	surface Surface
	margin  float64
	log     *zap.Logger

	mu      sync.Mutex
	mounted bool
	state   State
	lastSeq uint64
	// unsure is set by Reset: what the page shows is unknown until the next paint.
	unsure bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithMargin overrides DefaultMargin.
func WithMargin(m float64) Option {
	return func(c *Controller) { c.margin = m }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// NewController creates a controller. Nothing is injected into the page until
// the first successful Show.
func NewController(surface Surface, opts ...Option) *Controller {
	c := &Controller{surface: surface, margin: DefaultMargin, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current visual state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Show spotlights the element matching selector. If the selector does not
// resolve, the overlay keeps its prior state and ErrSelectorNotFound is returned.
func (c *Controller) Show(ctx context.Context, selector string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.show(ctx, selector)
}

// Clear hides overlay and spotlight. Clearing an already clear overlay does
// not touch the page.
func (c *Controller) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clear(ctx)
}

// Apply runs cmd unless a command with an equal or higher sequence number was
// already applied. Seq zero is unsequenced and always runs.
func (c *Controller) Apply(ctx context.Context, cmd Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cmd.Seq != 0 {
		if cmd.Seq <= c.lastSeq {
			c.log.Debug("dropping stale highlight command",
				zap.Uint64("seq", cmd.Seq), zap.Uint64("last", c.lastSeq))
			return ErrStale
		}
		c.lastSeq = cmd.Seq
	}

	if cmd.Selector == "" {
		return c.clear(ctx)
	}
	return c.show(ctx, cmd.Selector)
}

func (c *Controller) show(ctx context.Context, selector string) error {
	box, ok, err := c.surface.Locate(ctx, selector)
	if err != nil {
		return fmt.Errorf("locate %s: %w", selector, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrSelectorNotFound, selector)
	}

	if !c.mounted {
		if err := c.surface.Mount(ctx); err != nil {
			return fmt.Errorf("mount overlay: %w", err)
		}
		c.mounted = true
	}

	next := State{Visible: true, Selector: selector, Box: box.Grow(c.margin)}
	if err := c.surface.Paint(ctx, next); err != nil {
		return fmt.Errorf("paint spotlight: %w", err)
	}
	c.state = next
	c.unsure = false

	if err := c.surface.ScrollIntoView(ctx, selector); err != nil {
		c.log.Debug("scroll into view failed", zap.String("selector", selector), zap.Error(err))
	}
	return nil
}

func (c *Controller) clear(ctx context.Context) error {
	if !c.state.Visible && !c.unsure {
		return nil
	}
	next := State{}
	if err := c.surface.Paint(ctx, next); err != nil {
		return fmt.Errorf("paint cleared overlay: %w", err)
	}
	c.state = next
	c.unsure = false
	return nil
}

// Reset forgets the mounted overlay, e.g. after a full page load replaced the
// document. The state reads as cleared, but the next clear still paints in
// case the old nodes survived.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mounted = false
	c.state = State{}
	c.unsure = true
}
