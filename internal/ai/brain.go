package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// SummaryMode selects the depth of a summary.
type SummaryMode string

const (
	SummaryFull  SummaryMode = "full"
	SummaryShort SummaryMode = "short"
	SummaryELI5  SummaryMode = "eli5"
)

func (m SummaryMode) describe() string {
	switch m {
	case SummaryFull:
		return "Comprehensive summary"
	case SummaryShort:
		return "Concise"
	default:
		return "ELI5"
	}
}

// ParseSummaryMode accepts full, short and eli5.
func ParseSummaryMode(s string) (SummaryMode, error) {
	switch m := SummaryMode(strings.ToLower(strings.TrimSpace(s))); m {
	case SummaryFull, SummaryShort, SummaryELI5:
		return m, nil
	case "":
		return SummaryFull, nil
	default:
		return "", fmt.Errorf("unknown summary mode %q (full, short, eli5)", s)
	}
}

// RepurposeFormat is the target format of Repurpose.
type RepurposeFormat string

const (
	FormatTweet   RepurposeFormat = "tweet"
	FormatBlog    RepurposeFormat = "blog"
	FormatArticle RepurposeFormat = "article"
)

// ParseRepurposeFormat accepts tweet, blog and article.
func ParseRepurposeFormat(s string) (RepurposeFormat, error) {
	switch f := RepurposeFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTweet, FormatBlog, FormatArticle:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (tweet, blog, article)", s)
	}
}

// SummaryResult is a structured page summary.
type SummaryResult struct {
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	KeyTakeaways []string `json:"keyTakeaways"`
}

// ChatFallback is answered when the model returns no text.
const ChatFallback = "I couldn't generate a response."

// Brain runs the non-navigation tasks against a Provider.
type Brain struct {
	provider  Provider
	maxTokens int
	log       *zap.Logger
}

// BrainOption configures a Brain.
type BrainOption func(*Brain)

// WithMaxTokens bounds every answer.
func WithMaxTokens(n int) BrainOption {
	return func(b *Brain) { b.maxTokens = n }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) BrainOption {
	return func(b *Brain) { b.log = l }
}

// NewBrain wraps provider.
func NewBrain(provider Provider, opts ...BrainOption) *Brain {
	b := &Brain{provider: provider, maxTokens: DefaultMaxTokens, log: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Provider returns the wrapped provider.
func (b *Brain) Provider() Provider { return b.provider }

// Name reports the wrapped provider's name, so a Brain is itself a Provider.
func (b *Brain) Name() string { return b.provider.Name() }

// Complete forwards req, filling in the token bound.
func (b *Brain) Complete(ctx context.Context, req Request) (string, error) {
	if req.MaxTokens == 0 {
		req.MaxTokens = b.maxTokens
	}
	b.log.Debug("model call",
		zap.String("provider", b.provider.Name()),
		zap.Bool("schema", req.Schema != nil),
		zap.Int("prompt_bytes", len(req.Prompt)))
	return b.provider.Complete(ctx, req)
}

// Summarize condenses page content.
func (b *Brain) Summarize(ctx context.Context, content string, mode SummaryMode) (*SummaryResult, error) {
	text, err := b.Complete(ctx, Request{
		Prompt: buildSummaryPrompt(content, mode),
		Schema: SummarySchema,
	})
	if err != nil {
		return nil, NewResolutionError("summary", err)
	}

	var raw struct {
		Title        *string   `json:"title"`
		Content      *string   `json:"content"`
		KeyTakeaways *[]string `json:"keyTakeaways"`
	}
	if err := DecodeObject(text, &raw); err != nil {
		return nil, NewResolutionError("summary", err)
	}
	if raw.Title == nil || raw.Content == nil || raw.KeyTakeaways == nil {
		return nil, NewResolutionError("summary", fmt.Errorf("%w: title, content and keyTakeaways are required", ErrMalformed))
	}

	return &SummaryResult{
		Title:        *raw.Title,
		Content:      *raw.Content,
		KeyTakeaways: *raw.KeyTakeaways,
	}, nil
}

// Chat answers a question about the page.
func (b *Brain) Chat(ctx context.Context, query, pageContext string) (string, error) {
	text, err := b.Complete(ctx, Request{
		System:    buildChatSystem(pageContext),
		Prompt:    query,
		MaxTokens: 1000,
	})
	if err != nil {
		return "", NewResolutionError("chat", err)
	}
	if strings.TrimSpace(text) == "" {
		return ChatFallback, nil
	}
	return text, nil
}

// Repurpose rewrites page content into another format.
func (b *Brain) Repurpose(ctx context.Context, content string, format RepurposeFormat) (string, error) {
	text, err := b.Complete(ctx, Request{Prompt: buildRepurposePrompt(content, format)})
	if err != nil {
		return "", NewResolutionError("repurpose", err)
	}
	if strings.TrimSpace(text) == "" {
		return "No content generated.", nil
	}
	return text, nil
}
