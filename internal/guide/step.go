// Package guide turns a user goal and a page map into an ordered navigation
// plan, using the model as the only source of steps.
package guide

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Action is what the user does to a step's element.
type Action string

const (
	ActionClick Action = "click"
	ActionHover Action = "hover"
	ActionType  Action = "type"
)

// Valid reports whether a is one of the supported actions.
func (a Action) Valid() bool {
	switch a {
	case ActionClick, ActionHover, ActionType:
		return true
	}
	return false
}

// NavStep is one instruction of a plan. ConfidenceScore is passed through as
// the model returned it, without normalization.
type NavStep struct {
	Selector           string  `json:"selector"`
	Instruction        string  `json:"instruction"`
	Action             Action  `json:"action"`
	TargetPage         string  `json:"targetPage"`
	ContextHint        string  `json:"contextHint,omitempty"`
	ElementDescription string  `json:"elementDescription,omitempty"`
	ExpectedOutcome    string  `json:"expectedOutcome,omitempty"`
	ConfidenceScore    float64 `json:"confidenceScore"`
}

// Validate checks the fields the response schema marks required.
func (s NavStep) Validate() error {
	var missing []string
	if strings.TrimSpace(s.Selector) == "" {
		missing = append(missing, "selector")
	}
	if strings.TrimSpace(s.Instruction) == "" {
		missing = append(missing, "instruction")
	}
	if strings.TrimSpace(s.TargetPage) == "" {
		missing = append(missing, "targetPage")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	if !s.Action.Valid() {
		return fmt.Errorf("unsupported action %q", s.Action)
	}
	return nil
}

// rawStep mirrors NavStep with presence tracking for required fields.
type rawStep struct {
	Selector           string   `json:"selector"`
	Instruction        string   `json:"instruction"`
	Action             Action   `json:"action"`
	TargetPage         string   `json:"targetPage"`
	ContextHint        string   `json:"contextHint"`
	ElementDescription string   `json:"elementDescription"`
	ExpectedOutcome    string   `json:"expectedOutcome"`
	ConfidenceScore    *float64 `json:"confidenceScore"`
}

func (r rawStep) step() (NavStep, error) {
	s := NavStep{
		Selector:           strings.TrimSpace(r.Selector),
		Instruction:        strings.TrimSpace(r.Instruction),
		Action:             Action(strings.ToLower(strings.TrimSpace(string(r.Action)))),
		TargetPage:         strings.TrimSpace(r.TargetPage),
		ContextHint:        r.ContextHint,
		ElementDescription: r.ElementDescription,
		ExpectedOutcome:    r.ExpectedOutcome,
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	if r.ConfidenceScore == nil {
		return s, fmt.Errorf("missing confidenceScore")
	}
	s.ConfidenceScore = *r.ConfidenceScore
	return s, nil
}

// String renders a step for logs and terminals.
func (s NavStep) String() string {
	b, _ := json.Marshal(struct {
		Action   Action `json:"action"`
		Selector string `json:"selector"`
		Page     string `json:"page"`
	}{s.Action, s.Selector, s.TargetPage})
	return string(b)
}
