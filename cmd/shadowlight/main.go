package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/v0xg/shadowlight/internal/config"
	"github.com/v0xg/shadowlight/internal/logging"
)

var (
	configPath string
	provider   string
	model      string
	profile    string
	controlURL string
	headless   bool
	verbose    bool
	logFile    string

	cfg    config.Config
	logger *zap.Logger
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "shadowlight",
		Short: "Guide users through web pages with an AI spotlight",
		Long: `shadowlight opens a page in Chrome, distills it into a compact map of its
interactive elements, and asks a model how to reach a goal. Each step is
spotlighted on the live page while the user follows along.

Example:
  shadowlight guide "https://myapp.com" "change my password"`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default: ./shadowlight.yaml if present)")
	pf.StringVar(&provider, "provider", "", "AI provider: gemini, claude, openai (default: from config)")
	pf.StringVar(&model, "model", "", "Specific model override")
	pf.StringVar(&profile, "profile", "", "Chrome/Chromium profile directory for authenticated sessions (close browser first)")
	pf.StringVar(&controlURL, "control-url", "", "Attach to a running browser (ws://...) instead of launching one")
	pf.BoolVar(&headless, "headless", false, "Run a launched browser headless")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Show detailed progress")
	pf.StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")

	rootCmd.AddCommand(
		distillCmd(),
		guideCmd(),
		recordCmd(),
		summarizeCmd(),
		chatCmd(),
		repurposeCmd(),
		themeCmd(),
		serveCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "✗", err)
		stop()
		os.Exit(1)
	}
}

// setup loads configuration, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Model.Provider = provider
	}
	if flags.Changed("model") {
		cfg.Model.Name = model
	}
	if flags.Changed("profile") {
		cfg.Browser.ProfileDir = profile
	}
	if flags.Changed("control-url") {
		cfg.Browser.ControlURL = controlURL
	}
	if flags.Changed("headless") {
		cfg.Browser.Headless = headless
	}
	if flags.Changed("log-file") {
		cfg.Log.File = logFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err = logging.New(logging.Options{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Verbose: verbose,
	})
	return err
}

func logVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}
