package mcp

import (
	"context"

	"github.com/v0xg/shadowlight/internal/ai"
)

type summarizeTool struct{ a Assistant }

func (t *summarizeTool) Name() string { return "summarize" }
func (t *summarizeTool) Description() string {
	return "Summarize the current page. Returns {title, content, keyTakeaways}."
}
func (t *summarizeTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"mode": enumProp("Summary depth (default full)", string(ai.SummaryFull), string(ai.SummaryShort), string(ai.SummaryELI5)),
	})
}
func (t *summarizeTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	mode, err := ai.ParseSummaryMode(getStringArg(args, "mode"))
	if err != nil {
		return nil, err
	}
	return t.a.Summarize(ctx, mode)
}

type generateNavTool struct{ a Assistant }

func (t *generateNavTool) Name() string { return "generate_nav" }
func (t *generateNavTool) Description() string {
	return `Plan how to reach a goal on the current page. Returns ordered steps, each with a selector, an instruction, an action (click, hover, type) and the page it applies to.

Does not start a guided session; use guide_start for that.`
}
func (t *generateNavTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"goal": stringProp("What the user wants to do, in plain language"),
	}, "goal")
}
func (t *generateNavTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	goal, err := requireStringArg(args, "goal")
	if err != nil {
		return nil, err
	}
	return t.a.Resolve(ctx, goal)
}

type chatTool struct{ a Assistant }

func (t *chatTool) Name() string        { return "chat" }
func (t *chatTool) Description() string { return "Ask a question about the current page." }
func (t *chatTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"query": stringProp("The question"),
	}, "query")
}
func (t *chatTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	query, err := requireStringArg(args, "query")
	if err != nil {
		return nil, err
	}
	text, err := t.a.Chat(ctx, query)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"text": text}, nil
}

type repurposeTool struct{ a Assistant }

func (t *repurposeTool) Name() string        { return "repurpose" }
func (t *repurposeTool) Description() string { return "Rewrite the current page's text as a tweet, blog post or article." }
func (t *repurposeTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"format": enumProp("Target format", string(ai.FormatTweet), string(ai.FormatBlog), string(ai.FormatArticle)),
	}, "format")
}
func (t *repurposeTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	format, err := ai.ParseRepurposeFormat(getStringArg(args, "format"))
	if err != nil {
		return nil, err
	}
	text, err := t.a.Repurpose(ctx, format)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"text": text}, nil
}
