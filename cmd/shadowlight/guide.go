package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/v0xg/shadowlight/internal/executor"
	"github.com/v0xg/shadowlight/internal/gifgen"
	"github.com/v0xg/shadowlight/internal/guide"
	"github.com/v0xg/shadowlight/internal/overlay"
	"github.com/v0xg/shadowlight/internal/session"
)

var (
	autoplay  bool
	typeInput string
	output    string
	fps       int
	holdMs    int
)

func guideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guide <url> <goal>",
		Short: "Spotlight each step towards a goal on the live page",
		Long: `guide plans the steps towards a goal and spotlights them one at a time.
Press Enter after each step to move on, or q to stop. With --autoplay the
steps are performed automatically.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGuide(cmd.Context(), args[0], args[1], false)
		},
	}
	cmd.Flags().BoolVar(&autoplay, "autoplay", false, "Perform each step automatically")
	cmd.Flags().StringVar(&typeInput, "input", "", "Text typed into fields by type steps during autoplay")
	cmd.Flags().IntVar(&holdMs, "hold", 0, "How long each step stays spotlighted during autoplay, in ms (default: from config)")
	return cmd
}

func recordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record <url> <goal>",
		Short: "Play a guided tour automatically and save it as a GIF",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			autoplay = true
			return runGuide(cmd.Context(), args[0], args[1], true)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "tour.gif", "Output filename")
	cmd.Flags().IntVar(&fps, "fps", 0, "Frames per second (default: from config)")
	cmd.Flags().IntVar(&holdMs, "hold", 0, "How long each step stays spotlighted, in ms (default: from config)")
	cmd.Flags().StringVar(&typeInput, "input", "", "Text typed into fields by type steps")
	return cmd
}

func runGuide(ctx context.Context, url, goal string, record bool) error {
	logVerbose("Starting shadowlight")
	logVerbose("  URL: %s", url)
	logVerbose("  Goal: %s", goal)

	a, err := openApp(ctx, url, true)
	if err != nil {
		return err
	}
	defer a.close()

	s := a.newSession(session.OnChange(stepPrinter()))

	g, gctx := errgroup.WithContext(ctx)
	obsCtx, stopObserving := context.WithCancel(gctx)
	defer stopObserving()
	g.Go(func() error { return a.observe(obsCtx, s) })

	fmt.Printf("→ Planning %q via %s... ", goal, a.brain.Name())
	if err := s.Start(gctx, goal); err != nil {
		fmt.Println("failed")
		stopObserving()
		_ = g.Wait()
		return userError(err)
	}
	steps := s.Status().Steps
	fmt.Printf("done (%d steps)\n", len(steps))
	logSteps(steps)

	if autoplay {
		if fps <= 0 {
			fps = cfg.Record.FPS
		}
		if holdMs <= 0 {
			holdMs = cfg.Record.HoldMs
		}
		ex := executor.New(a.browser.Page(), executor.Options{
			Record: record,
			FPS:    fps,
			Input:  typeInput,
			Width:  cfg.Browser.Width,
			Height: cfg.Browser.Height,
			Logger: logger.Named("executor"),
		})
		err = play(gctx, s, a.page.Overlay(), ex, time.Duration(holdMs)*time.Millisecond)
		if err == nil && record {
			err = writeRecording(ex)
		}
	} else {
		err = interact(gctx, s)
	}

	s.Stop(context.Background())
	stopObserving()
	if werr := g.Wait(); err == nil {
		err = werr
	}
	return err
}

// play walks the plan, performing each step once it is spotlighted.
func play(ctx context.Context, s *session.Session, ov *overlay.Controller, ex *executor.Executor, hold time.Duration) error {
	for {
		st := s.Status()
		step, ok := st.Current()
		if !ok {
			fmt.Println("✓ Goal reached")
			return nil
		}

		if !waitForSpotlight(ctx, s, ov.State, st.Generation, st.Index, cfg.NavigationTimeout()) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("step was never spotlighted, performing anyway",
				zap.Int("step", st.Index), zap.String("selector", step.Selector))
		}

		ex.Hold(ctx, hold)
		if err := ex.Perform(ctx, step); err != nil {
			fmt.Printf("  ✗ step %d failed (%v)\n", st.Index+1, err)
		}

		if err := s.Advance(ctx); err != nil {
			return err
		}
	}
}

// waitForSpotlight polls until the step at index of generation gen is painted
// on the page, the session moved on, or timeout passes.
func waitForSpotlight(ctx context.Context, s *session.Session, painted func() overlay.State, gen uint64, index int, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	deadline := time.Now().Add(timeout)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	for {
		done, pending := spotlightState(s.Status(), painted(), gen, index)
		if done {
			return true
		}
		if !pending || time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-tick.C:
		}
	}
}

// spotlightState reports whether the current step of st is painted, and
// whether it is still worth waiting for: the session may have moved on.
func spotlightState(st session.Status, shown overlay.State, gen uint64, index int) (done, pending bool) {
	step, ok := st.Current()
	if !ok || st.Generation != gen || st.Index != index {
		return false, false
	}
	if st.Highlighted == "" {
		return false, true
	}
	return shown.Visible && shown.Selector == step.Selector, true
}

// interact advances on Enter and stops on q.
func interact(ctx context.Context, s *session.Session) error {
	fmt.Println("  Press Enter for the next step, q to stop.")

	done := make(chan struct{})
	defer close(done)
	lines := readLines(os.Stdin, done)

	for s.Status().State == session.Active {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok || strings.EqualFold(strings.TrimSpace(line), "q") {
				fmt.Println("→ Stopped")
				return nil
			}
			if err := s.Advance(ctx); err != nil {
				return err
			}
		}
	}
	fmt.Println("✓ Done")
	return nil
}

// readLines delivers the lines of in until it ends or done is closed.
func readLines(in io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}

func writeRecording(ex *executor.Executor) error {
	frames := ex.Frames()
	fmt.Printf("→ Generating GIF (%d frames)... ", len(frames))
	size, err := gifgen.WriteFile(output, frames, gifgen.Options{FPS: fps, MaxWidth: cfg.Record.MaxWidth})
	if err != nil {
		fmt.Println("failed")
		return fmt.Errorf("GIF generation failed: %w", err)
	}
	fmt.Println("done")
	fmt.Printf("✓ Saved to %s (%.1f MB)\n", output, float64(size)/(1024*1024))
	return nil
}

// stepPrinter prints each step once, when the session enters it.
func stepPrinter() func(session.Status) {
	var lastGen uint64
	lastIndex := -1
	return func(st session.Status) {
		step, ok := st.Current()
		if !ok || (st.Generation == lastGen && st.Index == lastIndex) {
			return
		}
		lastGen, lastIndex = st.Generation, st.Index
		fmt.Printf("  [%d/%d] %s\n", st.Index+1, len(st.Steps), step.Instruction)
		logVerbose("        %s → %s on %s", step.Action, step.Selector, step.TargetPage)
	}
}

// logSteps prints the plan
func logSteps(steps []guide.NavStep) {
	if !verbose {
		return
	}
	for i, step := range steps {
		switch step.Action {
		case guide.ActionType:
			fmt.Printf("  [%d] %s → %s (%s) confidence %.2f\n", i+1, step.Action, step.Selector, step.ElementDescription, step.ConfidenceScore)
		default:
			fmt.Printf("  [%d] %s → %s on %s, confidence %.2f\n", i+1, step.Action, step.Selector, step.TargetPage, step.ConfidenceScore)
		}
	}
}
