package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when --config is not given.
const DefaultFile = "shadowlight.yaml"

// Config captures every tunable of the assistant.
type Config struct {
	Browser   BrowserConfig   `yaml:"browser"`
	Model     ModelConfig     `yaml:"model"`
	Distill   DistillConfig   `yaml:"distill"`
	Highlight HighlightConfig `yaml:"highlight"`
	Log       LogConfig       `yaml:"log"`
	Record    RecordConfig    `yaml:"record"`
	MCP       MCPConfig       `yaml:"mcp"`
}

// BrowserConfig configures how rod launches or attaches to Chrome.
type BrowserConfig struct {
	// ControlURL attaches to a running browser (ws://...). Empty launches one.
	ControlURL string `yaml:"control_url"`
	// Headless controls whether a launched browser is headless (default: false, guidance is visual).
	Headless bool `yaml:"headless"`
	// ProfileDir is a Chrome/Chromium profile for authenticated sessions (close browser first).
	ProfileDir string `yaml:"profile_dir"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	// NavigationTimeout bounds page loads (e.g. "30s").
	NavigationTimeout string `yaml:"navigation_timeout"`
}

// ModelConfig selects the model backend.
type ModelConfig struct {
	Provider string `yaml:"provider"` // gemini, claude, openai
	Name     string `yaml:"name"`     // model override, empty uses provider default
	// Timeout is imposed on every model call; expiry is a resolution failure.
	Timeout   string `yaml:"timeout"`
	MaxTokens int    `yaml:"max_tokens"`
}

type DistillConfig struct {
	TextLimit     int `yaml:"text_limit"`
	ClassLimit    int `yaml:"class_limit"`
	BodyTextLimit int `yaml:"body_text_limit"`
}

type HighlightConfig struct {
	// Margin grows the spotlight around the target, in CSS pixels.
	Margin float64 `yaml:"margin"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// RecordConfig tunes tour recordings.
type RecordConfig struct {
	FPS      int  `yaml:"fps"`
	HoldMs   int  `yaml:"hold_ms"`
	MaxWidth uint `yaml:"max_width"`
}

type MCPConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// Default provides reasonable defaults for local use.
func Default() Config {
	return Config{
		Browser: BrowserConfig{
			Width:             1280,
			Height:            720,
			NavigationTimeout: "30s",
		},
		Model: ModelConfig{
			Provider:  "gemini",
			Timeout:   "60s",
			MaxTokens: 2048,
		},
		Distill: DistillConfig{
			TextLimit:     50,
			ClassLimit:    3,
			BodyTextLimit: 2000,
		},
		Highlight: HighlightConfig{Margin: 2},
		Log:       LogConfig{Level: "info"},
		Record: RecordConfig{
			FPS:      10,
			HoldMs:   1500,
			MaxWidth: 800,
		},
		MCP: MCPConfig{
			Name:    "shadowlight",
			Version: "0.1.0",
		},
	}
}

// Load reads YAML config from disk and overlays defaults. A missing file at
// the default location is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			cfg.applyEnv()
			return cfg, cfg.Validate()
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SHADOWLIGHT_PROVIDER"); v != "" {
		c.Model.Provider = v
	}
	if v := os.Getenv("SHADOWLIGHT_MODEL"); v != "" {
		c.Model.Name = v
	}
	if v := os.Getenv("SHADOWLIGHT_CONTROL_URL"); v != "" {
		c.Browser.ControlURL = v
	}
}

// Validate checks ranges and durations.
func (c Config) Validate() error {
	var errs []error

	if c.Browser.Width <= 0 || c.Browser.Height <= 0 {
		errs = append(errs, fmt.Errorf("browser viewport must be positive, got %dx%d", c.Browser.Width, c.Browser.Height))
	}
	if _, err := parseDuration(c.Browser.NavigationTimeout); err != nil {
		errs = append(errs, fmt.Errorf("browser.navigation_timeout: %w", err))
	}
	switch strings.ToLower(c.Model.Provider) {
	case "gemini", "google", "claude", "anthropic", "openai", "gpt":
	default:
		errs = append(errs, fmt.Errorf("model.provider %q is not supported (gemini, claude, openai)", c.Model.Provider))
	}
	if _, err := parseDuration(c.Model.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("model.timeout: %w", err))
	}
	if c.Distill.TextLimit <= 0 || c.Distill.BodyTextLimit <= 0 || c.Distill.ClassLimit <= 0 {
		errs = append(errs, errors.New("distill limits must be positive"))
	}
	if c.Highlight.Margin < 0 {
		errs = append(errs, errors.New("highlight.margin must not be negative"))
	}
	if c.Record.FPS <= 0 {
		errs = append(errs, errors.New("record.fps must be positive"))
	}

	return errors.Join(errs...)
}

// NavigationTimeout returns the parsed page-load timeout.
func (c Config) NavigationTimeout() time.Duration {
	d, _ := parseDuration(c.Browser.NavigationTimeout)
	return d
}

// ModelTimeout returns the parsed model-call timeout.
func (c Config) ModelTimeout() time.Duration {
	d, _ := parseDuration(c.Model.Timeout)
	return d
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q is negative", s)
	}
	return d, nil
}
