package overlay

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSurface struct {
	boxes    map[string]Rect
	mounts   int
	paints   []State
	scrolled []string
	paintErr error
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{boxes: map[string]Rect{
		"#nav-login": {X: 100, Y: 20, Width: 80, Height: 40},
		"#cta":       {X: 10, Y: 500, Width: 180, Height: 50},
	}}
}

func (f *fakeSurface) Locate(_ context.Context, selector string) (Rect, bool, error) {
	box, ok := f.boxes[selector]
	return box, ok, nil
}

func (f *fakeSurface) Mount(context.Context) error {
	f.mounts++
	return nil
}

func (f *fakeSurface) Paint(_ context.Context, st State) error {
	if f.paintErr != nil {
		return f.paintErr
	}
	f.paints = append(f.paints, st)
	return nil
}

func (f *fakeSurface) ScrollIntoView(_ context.Context, selector string) error {
	f.scrolled = append(f.scrolled, selector)
	return nil
}

func TestShowSpotlightsWithMargin(t *testing.T) {
	ctx := context.Background()
	surface := newFakeSurface()
	c := NewController(surface)

	require.NoError(t, c.Show(ctx, "#nav-login"))

	st := c.State()
	assert.True(t, st.Visible)
	assert.Equal(t, "#nav-login", st.Selector)
	assert.Equal(t, Rect{X: 98, Y: 18, Width: 84, Height: 44}, st.Box)
	assert.Equal(t, []string{"#nav-login"}, surface.scrolled)
}

func TestShowMissingSelectorKeepsPriorState(t *testing.T) {
	ctx := context.Background()
	surface := newFakeSurface()
	c := NewController(surface)

	err := c.Show(ctx, "#missing")
	assert.True(t, errors.Is(err, ErrSelectorNotFound))
	assert.Equal(t, State{}, c.State())
	assert.Zero(t, surface.mounts, "nothing is injected for a miss")

	require.NoError(t, c.Show(ctx, "#cta"))
	before := c.State()
	err = c.Show(ctx, "#missing")
	assert.ErrorIs(t, err, ErrSelectorNotFound)
	assert.Equal(t, before, c.State())
}

func TestShowReplacesAndMountsOnce(t *testing.T) {
	ctx := context.Background()
	surface := newFakeSurface()
	c := NewController(surface)

	require.NoError(t, c.Show(ctx, "#nav-login"))
	require.NoError(t, c.Show(ctx, "#cta"))

	assert.Equal(t, 1, surface.mounts)
	assert.Equal(t, "#cta", c.State().Selector)
	assert.Len(t, surface.paints, 2)
}

func TestClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	surface := newFakeSurface()
	c := NewController(surface)

	require.NoError(t, c.Show(ctx, "#cta"))
	require.NoError(t, c.Clear(ctx))
	require.NoError(t, c.Clear(ctx))

	assert.False(t, c.State().Visible)
	assert.Len(t, surface.paints, 2, "second clear must not repaint")
}

func TestApplyDropsStaleCommands(t *testing.T) {
	ctx := context.Background()
	surface := newFakeSurface()
	c := NewController(surface)

	require.NoError(t, c.Apply(ctx, Command{Seq: 2, Selector: "#cta"}))
	require.NoError(t, c.Apply(ctx, Command{Seq: 3}))

	// An earlier show arriving late must not overtake the later clear.
	err := c.Apply(ctx, Command{Seq: 1, Selector: "#nav-login"})
	assert.ErrorIs(t, err, ErrStale)
	assert.False(t, c.State().Visible)

	require.NoError(t, c.Apply(ctx, Command{Selector: "#nav-login"}), "unsequenced commands always run")
	assert.True(t, c.State().Visible)
}

func TestPaintFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	surface := newFakeSurface()
	surface.paintErr = errors.New("target closed")
	c := NewController(surface)

	err := c.Show(ctx, "#cta")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSelectorNotFound)
	assert.Equal(t, State{}, c.State())
}

func TestWithMargin(t *testing.T) {
	c := NewController(newFakeSurface(), WithMargin(10))
	require.NoError(t, c.Show(context.Background(), "#cta"))
	assert.Equal(t, Rect{X: 0, Y: 490, Width: 200, Height: 70}, c.State().Box)
}

func TestResetForgetsMount(t *testing.T) {
	ctx := context.Background()
	surface := newFakeSurface()
	c := NewController(surface)

	require.NoError(t, c.Show(ctx, "#cta"))
	c.Reset()
	assert.False(t, c.State().Visible)
	require.NoError(t, c.Show(ctx, "#cta"))
	assert.Equal(t, 2, surface.mounts)
}

func TestClearAfterResetPaints(t *testing.T) {
	ctx := context.Background()
	surface := newFakeSurface()
	c := NewController(surface)

	require.NoError(t, c.Show(ctx, "#cta"))
	c.Reset()
	require.NoError(t, c.Clear(ctx))
	require.Len(t, surface.paints, 2)
	assert.Equal(t, State{}, surface.paints[1])

	require.NoError(t, c.Clear(ctx))
	assert.Len(t, surface.paints, 2, "a known clear overlay is not repainted")
}
