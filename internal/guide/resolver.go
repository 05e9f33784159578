package guide

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/v0xg/shadowlight/internal/ai"
	"github.com/v0xg/shadowlight/internal/crawler"
)

// Context is what the model plans against: a distilled map, or a free-form
// page schema when no live map exists.
type Context struct {
	Map         *crawler.DistilledMap `json:"map,omitempty"`
	Schema      string                `json:"schema,omitempty"`
	CurrentPage string                `json:"currentPage,omitempty"`
}

// location is the page the plan starts from.
func (c Context) location() string {
	if c.CurrentPage != "" {
		return c.CurrentPage
	}
	if c.Map != nil {
		return c.Map.URL
	}
	return ""
}

func (c Context) schemaText() (string, error) {
	if c.Map == nil {
		return c.Schema, nil
	}
	b, err := json.MarshalIndent(c.Map, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal page map: %w", err)
	}
	return string(b), nil
}

// Plan is a validated, ordered sequence of steps.
type Plan struct {
	Goal  string    `json:"goal"`
	Steps []NavStep `json:"steps"`
	// Unverified holds indexes of steps whose selector is on the current page
	// but not in the map. They are kept: the model may still be right.
	Unverified []int `json:"unverified,omitempty"`
}

// Resolver asks the model for a plan and validates the answer. It never
// invents, drops, or reorders steps.
type Resolver struct {
	model ai.Provider
	log   *zap.Logger
}

// NewResolver creates a resolver over model.
func NewResolver(model ai.Provider, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{model: model, log: log}
}

// Resolve returns the plan for goal. Every failure, including an empty plan,
// is an *ai.ResolutionError.
func (r *Resolver) Resolve(ctx context.Context, goal string, pc Context) (*Plan, error) {
	schema, err := pc.schemaText()
	if err != nil {
		return nil, ai.NewResolutionError("navigation", err)
	}

	text, err := r.model.Complete(ctx, ai.Request{
		System: ai.NavSystemPrompt(),
		Prompt: ai.BuildNavPrompt(goal, pc.location(), schema),
		Schema: ai.NavStepsSchema,
	})
	if err != nil {
		return nil, ai.NewResolutionError("navigation", err)
	}

	steps, err := ParseSteps(text)
	if err != nil {
		r.log.Warn("unusable navigation response", zap.String("goal", goal), zap.Error(err))
		return nil, ai.NewResolutionError("navigation", err)
	}

	plan := &Plan{Goal: goal, Steps: steps}
	if pc.Map != nil {
		plan.Unverified = Unverified(steps, pc.Map, pc.location())
		for _, i := range plan.Unverified {
			r.log.Warn("step selector not in page map",
				zap.Int("step", i),
				zap.String("selector", steps[i].Selector),
				zap.String("page", steps[i].TargetPage))
		}
	}

	r.log.Info("navigation plan resolved",
		zap.String("goal", goal),
		zap.Int("steps", len(steps)),
		zap.Int("unverified", len(plan.Unverified)))
	return plan, nil
}

// ParseSteps decodes and validates a model answer. An empty list is an error:
// there is nothing to guide.
func ParseSteps(text string) ([]NavStep, error) {
	var raws []rawStep
	if err := ai.DecodeArray(text, &raws); err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, ai.ErrEmptyResponse
	}

	steps := make([]NavStep, 0, len(raws))
	for i, raw := range raws {
		s, err := raw.step()
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: %v", ai.ErrMalformed, i, err)
		}
		steps = append(steps, s)
	}
	return steps, nil
}

// Unverified cross-checks steps that target the current page against the
// selectors the map knows. Steps for other pages cannot be checked yet.
func Unverified(steps []NavStep, m *crawler.DistilledMap, currentPage string) []int {
	known := m.Selectors()
	var out []int
	for i, s := range steps {
		if currentPage != "" && !SamePage(s.TargetPage, currentPage) {
			continue
		}
		if _, ok := known[s.Selector]; !ok {
			out = append(out, i)
		}
	}
	return out
}
