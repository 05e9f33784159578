package mcp

import (
	"context"
	"errors"

	"github.com/v0xg/shadowlight/internal/theme"
)

func modeNames() []string {
	var names []string
	for _, m := range theme.Modes() {
		names = append(names, m.String())
	}
	return names
}

type scrapePageTool struct{ a Assistant }

func (t *scrapePageTool) Name() string { return "scrape_page" }
func (t *scrapePageTool) Description() string {
	return `Distill the current page into a compact map: URL, title, visible interactive elements with a suggested CSS selector each, and up to 2000 characters of body text.

Use the suggestedSelector values with highlight_element.`
}
func (t *scrapePageTool) InputSchema() map[string]interface{} { return objectSchema(nil) }
func (t *scrapePageTool) Execute(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	return t.a.Scrape(ctx)
}

type highlightTool struct{ a Assistant }

func (t *highlightTool) Name() string { return "highlight_element" }
func (t *highlightTool) Description() string {
	return "Dim the page and spotlight the element matching a CSS selector. Missing selectors leave the page unchanged."
}
func (t *highlightTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"selector": stringProp("CSS selector of the element to spotlight"),
	}, "selector")
}
func (t *highlightTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	sel, err := requireStringArg(args, "selector")
	if err != nil {
		return nil, err
	}
	if err := t.a.Highlight(ctx, sel); err != nil {
		return nil, err
	}
	return map[string]interface{}{"success": true, "selector": sel}, nil
}

type clearHighlightTool struct{ a Assistant }

func (t *clearHighlightTool) Name() string        { return "clear_highlight" }
func (t *clearHighlightTool) Description() string { return "Remove the dimming overlay and spotlight." }
func (t *clearHighlightTool) InputSchema() map[string]interface{} {
	return objectSchema(nil)
}
func (t *clearHighlightTool) Execute(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	if err := t.a.ClearHighlight(ctx); err != nil {
		return nil, err
	}
	return map[string]interface{}{"success": true}, nil
}

type contrastTool struct{ a Assistant }

func (t *contrastTool) Name() string { return "apply_contrast" }
func (t *contrastTool) Description() string {
	return "Apply an accessibility mode (or a raw CSS filter expression) to the whole page. NORMAL removes the filter."
}
func (t *contrastTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"mode":   enumProp("Accessibility preset", modeNames()...),
		"filter": stringProp("Raw CSS filter expression, used when mode is absent"),
	})
}
func (t *contrastTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if name := getStringArg(args, "mode"); name != "" {
		mode, err := theme.ParseMode(name)
		if err != nil {
			return nil, err
		}
		if err := t.a.ApplyMode(ctx, mode); err != nil {
			return nil, err
		}
		return map[string]interface{}{"success": true, "mode": mode.String(), "filter": mode.Filter()}, nil
	}

	filter := getStringArg(args, "filter")
	if filter == "" {
		return nil, errors.New("mode or filter is required")
	}
	if err := t.a.ApplyFilter(ctx, filter); err != nil {
		return nil, err
	}
	return map[string]interface{}{"success": true, "filter": filter}, nil
}

type themeTool struct{ a Assistant }

func (t *themeTool) Name() string { return "apply_theme" }
func (t *themeTool) Description() string {
	return "Force text and background colors on every element of the page. Independent of apply_contrast."
}
func (t *themeTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"textColor": stringProp("CSS color for text and borders"),
		"bgColor":   stringProp("CSS color for backgrounds"),
	}, "textColor", "bgColor")
}
func (t *themeTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	text, err := requireStringArg(args, "textColor")
	if err != nil {
		return nil, err
	}
	bg, err := requireStringArg(args, "bgColor")
	if err != nil {
		return nil, err
	}
	if err := t.a.ApplyTheme(ctx, text, bg); err != nil {
		return nil, err
	}
	return map[string]interface{}{"success": true}, nil
}

type resetThemeTool struct{ a Assistant }

func (t *resetThemeTool) Name() string        { return "reset_theme" }
func (t *resetThemeTool) Description() string { return "Remove the color override set by apply_theme." }
func (t *resetThemeTool) InputSchema() map[string]interface{} {
	return objectSchema(nil)
}
func (t *resetThemeTool) Execute(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	if err := t.a.ResetTheme(ctx); err != nil {
		return nil, err
	}
	return map[string]interface{}{"success": true}, nil
}

type navigateTool struct{ a Assistant }

func (t *navigateTool) Name() string { return "navigate_to" }
func (t *navigateTool) Description() string {
	return "Navigate the page to a URL, a path, or a page name relative to the current URL."
}
func (t *navigateTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"target": stringProp("Absolute URL, path such as /login, or page name"),
	}, "target")
}
func (t *navigateTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	target, err := requireStringArg(args, "target")
	if err != nil {
		return nil, err
	}
	if err := t.a.Navigate(ctx, target); err != nil {
		return nil, err
	}
	return map[string]interface{}{"success": true, "target": target}, nil
}
