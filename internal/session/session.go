// Package session runs one guided navigation: it holds the plan, tracks the
// current step against the page the user is looking at, and decides when the
// spotlight is shown.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/v0xg/shadowlight/internal/ai"
	"github.com/v0xg/shadowlight/internal/guide"
	"github.com/v0xg/shadowlight/internal/overlay"
)

var (
	// ErrIdle is returned by Advance when no plan is active.
	ErrIdle = errors.New("no active navigation session")
	// ErrSuperseded means a newer Start or a Stop replaced the resolution
	// this call was waiting for. Its result was discarded.
	ErrSuperseded = errors.New("navigation superseded")
)

// DefaultResolveTimeout bounds a single plan resolution.
const DefaultResolveTimeout = 60 * time.Second

// State of a session.
type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "ACTIVE"
	}
	return "IDLE"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Resolver produces a plan for a goal.
type Resolver interface {
	Resolve(ctx context.Context, goal string) (*guide.Plan, error)
}

// Highlighter applies sequenced highlight commands.
type Highlighter interface {
	Apply(ctx context.Context, cmd overlay.Command) error
}

// Navigator is asked to bring the user to a page. The session never
// navigates by itself.
type Navigator interface {
	RequestNavigate(ctx context.Context, target string) error
}

// Status is a snapshot of a session.
type Status struct {
	State        State           `json:"state"`
	Goal         string          `json:"goal,omitempty"`
	Index        int             `json:"index"`
	Steps        []guide.NavStep `json:"steps"`
	ObservedPage string          `json:"observedPage,omitempty"`
	// Highlighted is the selector the session asked the page to spotlight.
	// A selector missing from the page is still reported here.
	Highlighted  string          `json:"highlighted,omitempty"`
	Generation   uint64          `json:"generation"`
}

// Current returns the current step, if any.
func (st Status) Current() (guide.NavStep, bool) {
	if st.State != Active || st.Index < 0 || st.Index >= len(st.Steps) {
		return guide.NavStep{}, false
	}
	return st.Steps[st.Index], true
}

// SamePage reports whether two page identities refer to the same page.
func SamePage(a, b string) bool { return guide.SamePage(a, b) }

// Session is safe for concurrent use. The lock is never held while the
// resolver, highlighter or navigator runs.
type Session struct {
	resolver    Resolver
	highlighter Highlighter
	navigator   Navigator
	timeout     time.Duration
	log         *zap.Logger
	listeners   []func(Status)

	mu       sync.Mutex
	state    State
	goal     string
	steps    []guide.NavStep
	index    int
	observed string
	shown    string
	gen      uint64
	seq      uint64
}

// Option configures a Session.
type Option func(*Session)

// WithResolveTimeout bounds each resolution. Expiry is a resolution failure.
func WithResolveTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

// OnChange registers fn to receive a Status after every transition.
func OnChange(fn func(Status)) Option {
	return func(s *Session) { s.listeners = append(s.listeners, fn) }
}

// New creates an idle session. navigator may be nil.
func New(resolver Resolver, highlighter Highlighter, navigator Navigator, opts ...Option) *Session {
	s := &Session{
		resolver:    resolver,
		highlighter: highlighter,
		navigator:   navigator,
		timeout:     DefaultResolveTimeout,
		log:         zap.NewNop(),
		index:       -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// effects are the side effects of one transition, computed under the lock
// and performed after it is released.
type effects struct {
	highlight *overlay.Command
	navigate  string
	status    Status
}

// Start resolves goal into a plan and activates it. Any current plan is
// dropped first. On failure, including an empty plan, the session stays idle
// and the error is a *ai.ResolutionError, or ErrSuperseded when a newer Start
// or a Stop happened while resolving.
func (s *Session) Start(ctx context.Context, goal string) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.reset()
	fx := s.evaluate(false)
	s.mu.Unlock()
	s.perform(ctx, fx)

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	plan, err := s.resolver.Resolve(rctx, goal)
	cancel()

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.log.Debug("discarding superseded resolution", zap.String("goal", goal), zap.Uint64("generation", gen))
		return ErrSuperseded
	}
	if err == nil && (plan == nil || len(plan.Steps) == 0) {
		err = ai.ErrEmptyResponse
	}
	if err != nil {
		s.mu.Unlock()
		s.log.Warn("navigation plan unavailable", zap.String("goal", goal), zap.Error(err))
		return ai.NewResolutionError("navigation", err)
	}

	s.state = Active
	s.goal = goal
	s.steps = append([]guide.NavStep(nil), plan.Steps...)
	s.index = 0
	fx = s.evaluate(true)
	s.mu.Unlock()

	s.log.Info("navigation started", zap.String("goal", goal), zap.Int("steps", len(plan.Steps)))
	s.perform(ctx, fx)
	return nil
}

// Advance moves to the next step. Advancing past the last step ends the
// session exactly like Stop.
func (s *Session) Advance(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Active {
		s.mu.Unlock()
		return ErrIdle
	}
	var fx effects
	if s.index < len(s.steps)-1 {
		s.index++
		fx = s.evaluate(true)
	} else {
		goal := s.goal
		s.gen++
		s.reset()
		fx = s.evaluate(false)
		s.log.Info("navigation finished", zap.String("goal", goal))
	}
	s.mu.Unlock()

	s.perform(ctx, fx)
	return nil
}

// Stop ends the session and clears the highlight. It also invalidates any
// resolution in flight. Stopping an idle session is a no-op.
func (s *Session) Stop(ctx context.Context) {
	s.mu.Lock()
	s.gen++
	s.reset()
	fx := s.evaluate(false)
	s.mu.Unlock()
	s.perform(ctx, fx)
}

// Observe records the page the user is on and re-evaluates the highlight.
func (s *Session) Observe(ctx context.Context, page string) {
	s.mu.Lock()
	s.observed = page
	fx := s.evaluate(false)
	s.mu.Unlock()
	s.perform(ctx, fx)
}

// Status returns a copy of the session state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) reset() {
	s.state = Idle
	s.goal = ""
	s.steps = nil
	s.index = -1
}

// evaluate recomputes the highlight from scratch: a spotlight is wanted iff
// the session is active and the current step belongs to the observed page.
// entered marks a fresh step, which may need a navigation request.
func (s *Session) evaluate(entered bool) effects {
	var fx effects

	want := ""
	if s.state == Active {
		step := s.steps[s.index]
		if SamePage(step.TargetPage, s.observed) {
			want = step.Selector
		} else if entered {
			fx.navigate = step.TargetPage
		}
	}

	// Re-show even an unchanged selector: the document may have changed.
	if want != "" || s.shown != "" {
		s.seq++
		fx.highlight = &overlay.Command{Seq: s.seq, Selector: want}
	}
	s.shown = want
	fx.status = s.snapshot()
	return fx
}

func (s *Session) snapshot() Status {
	return Status{
		State:        s.state,
		Goal:         s.goal,
		Index:        s.index,
		Steps:        append([]guide.NavStep(nil), s.steps...),
		ObservedPage: s.observed,
		Highlighted:  s.shown,
		Generation:   s.gen,
	}
}

func (s *Session) perform(ctx context.Context, fx effects) {
	if fx.highlight != nil && s.highlighter != nil {
		err := s.highlighter.Apply(ctx, *fx.highlight)
		switch {
		case err == nil, errors.Is(err, overlay.ErrStale):
		case errors.Is(err, overlay.ErrSelectorNotFound):
			s.log.Debug("highlight target missing", zap.String("selector", fx.highlight.Selector))
		default:
			s.log.Warn("highlight failed", zap.Uint64("seq", fx.highlight.Seq), zap.Error(err))
		}
	}
	if fx.navigate != "" && s.navigator != nil {
		if err := s.navigator.RequestNavigate(ctx, fx.navigate); err != nil {
			s.log.Warn("navigation request failed", zap.String("target", fx.navigate), zap.Error(err))
		}
	}
	for _, fn := range s.listeners {
		fn(fx.status)
	}
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, goal string) (*guide.Plan, error)

func (f ResolverFunc) Resolve(ctx context.Context, goal string) (*guide.Plan, error) {
	return f(ctx, goal)
}
