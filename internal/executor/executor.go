// Package executor performs navigation steps on a live page and captures
// frames of the guided tour while it runs.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/v0xg/shadowlight/internal/guide"
)

const (
	defaultFPS    = 10
	defaultWidth  = 1280
	defaultHeight = 720
	// maxHoldFrames caps a single hold at about six seconds of video.
	maxHoldFrames = 60
)

// Options configures an Executor.
type Options struct {
	// Record captures frames while steps run.
	Record bool
	FPS    int
	// Input is typed into fields of "type" steps. Empty only focuses them.
	Input string
	// Width and Height of the viewport; the mouse starts at its center.
	Width, Height int
	Logger        *zap.Logger
}

// Point is a viewport position.
type Point struct {
	X, Y float64
}

// Executor drives one page.
type Executor struct {
	page   *rod.Page
	opts   Options
	log    *zap.Logger
	mouse  Point
	frames []image.Image
}

// New creates an executor for page. The mouse starts at the viewport center.
func New(page *rod.Page, opts Options) *Executor {
	if opts.FPS <= 0 {
		opts.FPS = defaultFPS
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = defaultWidth, defaultHeight
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{page: page, opts: opts, log: log, mouse: Point{X: float64(opts.Width) / 2, Y: float64(opts.Height) / 2}}
}

// Frames returns everything captured so far.
func (e *Executor) Frames() []image.Image { return e.frames }

func (e *Executor) interval() time.Duration {
	return time.Second / time.Duration(e.opts.FPS)
}

// Perform carries out step: click, hover, or focus-and-type.
func (e *Executor) Perform(ctx context.Context, step guide.NavStep) error {
	page := e.page.Context(ctx)
	el, err := page.Element(step.Selector)
	if err != nil {
		return fmt.Errorf("element not found: %s: %w", step.Selector, err)
	}

	shape, err := el.Shape()
	if err != nil {
		return fmt.Errorf("element shape %s: %w", step.Selector, err)
	}
	if len(shape.Quads) == 0 {
		return fmt.Errorf("element has no shape: %s", step.Selector)
	}
	target := center(shape.Quads[0])

	if err := e.glide(ctx, target); err != nil {
		return err
	}

	switch step.Action {
	case guide.ActionClick:
		err = el.Click(proto.InputMouseButtonLeft, 1)
	case guide.ActionHover:
		err = el.Hover()
	case guide.ActionType:
		err = e.typeInto(el)
	default:
		err = fmt.Errorf("unknown action type: %s", step.Action)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", step.Action, step.Selector, err)
	}

	e.log.Debug("step performed", zap.String("action", string(step.Action)), zap.String("selector", step.Selector))
	return nil
}

func (e *Executor) typeInto(el *rod.Element) error {
	if err := el.Focus(); err != nil {
		return err
	}
	if e.opts.Input == "" {
		return nil
	}
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(e.opts.Input)
}

// glide moves the mouse to target over half a second, easing in and out.
func (e *Executor) glide(ctx context.Context, target Point) error {
	steps := e.opts.FPS / 2
	if steps < 5 {
		steps = 5
	}
	page := e.page.Context(ctx)
	for i := 1; i <= steps; i++ {
		p := lerp(e.mouse, target, easeInOutQuad(float64(i)/float64(steps)))
		if err := page.Mouse.MoveTo(proto.Point{X: p.X, Y: p.Y}); err != nil {
			return fmt.Errorf("move mouse: %w", err)
		}
		if e.opts.Record {
			e.capture(ctx)
			time.Sleep(e.interval() / 2)
		}
	}
	e.mouse = target
	return nil
}

// Hold keeps the current view for d, capturing frames when recording.
func (e *Executor) Hold(ctx context.Context, d time.Duration) {
	if !e.opts.Record {
		return
	}
	n := FrameCount(d, e.opts.FPS)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			return
		}
		e.capture(ctx)
		time.Sleep(e.interval())
	}
}

func (e *Executor) capture(ctx context.Context) {
	frame, err := CaptureFrame(ctx, e.page)
	if err != nil {
		e.log.Debug("frame capture failed", zap.Error(err))
		return
	}
	e.frames = append(e.frames, frame)
}

// CaptureFrame screenshots the viewport.
func CaptureFrame(ctx context.Context, page *rod.Page) (image.Image, error) {
	quality := 90
	data, err := page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatPng,
		Quality: &quality,
	})
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}

// FrameCount is the number of frames a hold of d takes at fps, at least one
// and at most maxHoldFrames.
func FrameCount(d time.Duration, fps int) int {
	if fps <= 0 {
		fps = defaultFPS
	}
	n := int(d * time.Duration(fps) / time.Second)
	if n < 1 {
		n = 1
	}
	if n > maxHoldFrames {
		n = maxHoldFrames
	}
	return n
}

// easeInOutQuad provides smooth acceleration/deceleration
func easeInOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - (-2*t+2)*(-2*t+2)/2
}

func lerp(a, b Point, t float64) Point {
	return Point{X: a.X + t*(b.X-a.X), Y: a.Y + t*(b.Y-a.Y)}
}

// center averages the four corners of a content quad.
func center(q proto.DOMQuad) Point {
	if len(q) < 8 {
		return Point{}
	}
	return Point{
		X: (q[0] + q[2] + q[4] + q[6]) / 4,
		Y: (q[1] + q[3] + q[5] + q[7]) / 4,
	}
}
