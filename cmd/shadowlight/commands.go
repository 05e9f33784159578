package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/v0xg/shadowlight/internal/ai"
	"github.com/v0xg/shadowlight/internal/crawler"
	"github.com/v0xg/shadowlight/internal/mcp"
	"github.com/v0xg/shadowlight/internal/theme"
)

var (
	summaryMode string
	distillOut  string
	format      string
	themeMode   string
	textColor   string
	bgColor     string
)

func distillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "distill <url>",
		Short: "Print the distilled map of a page as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, args[0], false)
			if err != nil {
				return err
			}
			defer a.close()

			m, err := a.panel.Scrape(ctx)
			if err != nil {
				return fmt.Errorf("distill failed: %w", err)
			}
			logVerbose("  %d interactive elements on %s", len(m.InteractiveElements), m.URL)

			data, err := json.MarshalIndent(m, "", "  ")
			if err != nil {
				return err
			}
			if distillOut == "" {
				fmt.Println(string(data))
				return nil
			}
			if err := os.WriteFile(distillOut, append(data, '\n'), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", distillOut, err)
			}
			fmt.Printf("✓ Saved to %s\n", distillOut)
			return nil
		},
	}
	cmd.Flags().StringVarP(&distillOut, "output", "o", "", "Write the map to a file instead of stdout")
	return cmd
}

func summarizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize <url>",
		Short: "Summarize the main content of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := ai.ParseSummaryMode(summaryMode)
			if err != nil {
				return err
			}
			return withModel(cmd.Context(), args[0], "Summarizing", func(ctx context.Context, a *app) error {
				res, err := a.panel.Summarize(ctx, mode)
				if err != nil {
					return err
				}
				if res.Title != "" {
					fmt.Printf("\n%s\n\n", res.Title)
				}
				fmt.Println(res.Content)
				if len(res.KeyTakeaways) > 0 {
					fmt.Println("\nKey takeaways:")
					for _, k := range res.KeyTakeaways {
						fmt.Printf("  • %s\n", k)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&summaryMode, "mode", "full", "Summary style: full, short, eli5")
	return cmd
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <url> <question>",
		Short: "Ask a question about a page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(args[1])
			if query == "" {
				return errors.New("question must not be empty")
			}
			return withModel(cmd.Context(), args[0], "Thinking", func(ctx context.Context, a *app) error {
				answer, err := a.panel.Chat(ctx, query)
				if err != nil {
					return err
				}
				fmt.Printf("\n%s\n", answer)
				return nil
			})
		},
	}
}

func repurposeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repurpose <url>",
		Short: "Rewrite the content of a page as a tweet, blog post or article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ai.ParseRepurposeFormat(format)
			if err != nil {
				return err
			}
			return withModel(cmd.Context(), args[0], "Rewriting", func(ctx context.Context, a *app) error {
				text, err := a.panel.Repurpose(ctx, f)
				if err != nil {
					return err
				}
				fmt.Printf("\n%s\n", text)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "tweet", "Output format: tweet, blog, article")
	return cmd
}

// withModel opens url, scrapes it and runs fn under the model timeout.
func withModel(ctx context.Context, url, verb string, fn func(context.Context, *app) error) error {
	a, err := openApp(ctx, url, true)
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := a.panel.Scrape(ctx); err != nil {
		return fmt.Errorf("scrape failed: %w", err)
	}

	mctx, cancel := modelContext(ctx)
	defer cancel()

	fmt.Printf("→ %s via %s...\n", verb, a.brain.Name())
	if err := fn(mctx, a); err != nil {
		return userError(err)
	}
	return nil
}

func themeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme <url>",
		Short: "Open a page with an accessibility mode or custom colors",
		Long: `theme opens a page with an accessibility filter or a custom text and
background color applied, and keeps it applied across navigation until
interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			custom := textColor != "" || bgColor != ""
			if custom && (textColor == "" || bgColor == "") {
				return errors.New("--text and --bg must be given together")
			}
			mode, err := theme.ParseMode(themeMode)
			if err != nil {
				return err
			}
			if !custom && mode == theme.Normal {
				return errors.New("nothing to apply: pass --mode or --text and --bg")
			}

			a, err := openApp(ctx, args[0], false)
			if err != nil {
				return err
			}
			defer a.close()

			if mode != theme.Normal {
				if err := a.panel.ApplyMode(ctx, mode); err != nil {
					return err
				}
				fmt.Printf("✓ %s applied\n", mode)
			}
			if custom {
				if err := a.panel.ApplyTheme(ctx, textColor, bgColor); err != nil {
					return err
				}
				fmt.Printf("✓ Colors applied (text %s, background %s)\n", textColor, bgColor)
			}

			fmt.Println("  Press Ctrl+C to exit.")
			a.browser.WatchNavigation(ctx, func(nav crawler.Navigation) {
				a.browser.Settle(ctx)
				a.page.Navigated(ctx, nav)
				logger.Debug("restyled after navigation", zap.String("url", nav.URL))
			})
			return nil
		},
	}
	cmd.Flags().StringVar(&themeMode, "mode", "normal", "Accessibility mode: high-contrast, dark-mode, grayscale, protanopia, deuteranopia, tritanopia")
	cmd.Flags().StringVar(&textColor, "text", "", "Custom text color (e.g. #ffffff)")
	cmd.Flags().StringVar(&bgColor, "bg", "", "Custom background color (e.g. #000000)")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve <url>",
		Short: "Expose the assistant for a page as MCP tools over stdio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			// stdout carries the protocol; progress output moves to stderr.
			stdout := os.Stdout
			os.Stdout = os.Stderr
			defer func() { os.Stdout = stdout }()

			a, err := openApp(ctx, args[0], true)
			if err != nil {
				return err
			}
			defer a.close()

			s := a.newSession()
			srv := mcp.NewServer(cfg.MCP, a.panel, s, logger.Named("mcp"))
			logger.Info("serving MCP over stdio", zap.Strings("tools", srv.ToolNames()))

			g, gctx := errgroup.WithContext(ctx)
			obsCtx, stopObserving := context.WithCancel(gctx)
			defer stopObserving()
			g.Go(func() error { return a.observe(obsCtx, s) })
			g.Go(func() error {
				// Stdin closing ends the session.
				defer stopObserving()
				defer s.Stop(context.Background())
				return srv.Listen(gctx, os.Stdin, stdout)
			})
			err = g.Wait()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
