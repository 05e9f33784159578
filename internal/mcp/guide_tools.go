package mcp

import (
	"context"
	"errors"

	"github.com/v0xg/shadowlight/internal/session"
)

// statusView is what the guide tools report back.
type statusView struct {
	session.Status
	Step *stepView `json:"step,omitempty"`
	Done bool      `json:"done"`
}

type stepView struct {
	Number      int    `json:"number"`
	Of          int    `json:"of"`
	Instruction string `json:"instruction"`
	Selector    string `json:"selector"`
	Action      string `json:"action"`
	TargetPage  string `json:"targetPage"`
}

func viewOf(st session.Status) statusView {
	v := statusView{Status: st, Done: st.State == session.Idle}
	if cur, ok := st.Current(); ok {
		v.Step = &stepView{
			Number:      st.Index + 1,
			Of:          len(st.Steps),
			Instruction: cur.Instruction,
			Selector:    cur.Selector,
			Action:      string(cur.Action),
			TargetPage:  cur.TargetPage,
		}
	}
	return v
}

type guideStartTool struct{ g Guide }

func (t *guideStartTool) Name() string { return "guide_start" }
func (t *guideStartTool) Description() string {
	return `Start a guided session for a goal. Replaces any running session. The first step's element is spotlighted when the user is on its page; otherwise the page is asked to navigate there.

Advance with guide_next after the user has acted.`
}
func (t *guideStartTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"goal": stringProp("What the user wants to do, in plain language"),
	}, "goal")
}
func (t *guideStartTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	goal, err := requireStringArg(args, "goal")
	if err != nil {
		return nil, err
	}
	if err := t.g.Start(ctx, goal); err != nil {
		return nil, err
	}
	return viewOf(t.g.Status()), nil
}

type guideNextTool struct{ g Guide }

func (t *guideNextTool) Name() string { return "guide_next" }
func (t *guideNextTool) Description() string {
	return "Advance the guided session. After the last step the session ends."
}
func (t *guideNextTool) InputSchema() map[string]interface{} { return objectSchema(nil) }
func (t *guideNextTool) Execute(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	if err := t.g.Advance(ctx); err != nil {
		if errors.Is(err, session.ErrIdle) {
			return nil, errors.New("no guided session is running; call guide_start first")
		}
		return nil, err
	}
	return viewOf(t.g.Status()), nil
}

type guideStopTool struct{ g Guide }

func (t *guideStopTool) Name() string        { return "guide_stop" }
func (t *guideStopTool) Description() string { return "Stop the guided session and clear the spotlight." }
func (t *guideStopTool) InputSchema() map[string]interface{} {
	return objectSchema(nil)
}
func (t *guideStopTool) Execute(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	t.g.Stop(ctx)
	return viewOf(t.g.Status()), nil
}

type guideStatusTool struct{ g Guide }

func (t *guideStatusTool) Name() string        { return "guide_status" }
func (t *guideStatusTool) Description() string { return "Report the guided session's state and current step." }
func (t *guideStatusTool) InputSchema() map[string]interface{} {
	return objectSchema(nil)
}
func (t *guideStatusTool) Execute(_ context.Context, _ map[string]interface{}) (interface{}, error) {
	return viewOf(t.g.Status()), nil
}
