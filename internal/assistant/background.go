package assistant

import (
	"context"

	"go.uber.org/zap"

	"github.com/v0xg/shadowlight/internal/ai"
	"github.com/v0xg/shadowlight/internal/guide"
	"github.com/v0xg/shadowlight/internal/transport"
)

// RegisterBackground installs the model-backed kinds. Failures are answered
// as error responses.
func RegisterBackground(r *transport.Router, brain *ai.Brain, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	resolver := guide.NewResolver(brain, log.Named("guide"))

	transport.On(r, transport.KindSummarize, func(ctx context.Context, p transport.Summarize) (any, error) {
		mode, err := ai.ParseSummaryMode(string(p.Mode))
		if err != nil {
			return nil, err
		}
		return brain.Summarize(ctx, p.Content, mode)
	})

	transport.On(r, transport.KindGenerateNav, func(ctx context.Context, p transport.GenerateNav) (any, error) {
		plan, err := resolver.Resolve(ctx, p.Goal, p.Context)
		if err != nil {
			return nil, err
		}
		return plan.Steps, nil
	})

	transport.On(r, transport.KindChat, func(ctx context.Context, p transport.Chat) (any, error) {
		text, err := brain.Chat(ctx, p.Query, p.Context)
		if err != nil {
			return nil, err
		}
		return transport.Text{Text: text}, nil
	})

	transport.On(r, transport.KindRepurpose, func(ctx context.Context, p transport.Repurpose) (any, error) {
		format, err := ai.ParseRepurposeFormat(string(p.Format))
		if err != nil {
			return nil, err
		}
		text, err := brain.Repurpose(ctx, p.Content, format)
		if err != nil {
			return nil, err
		}
		return transport.Text{Text: text}, nil
	})
}
