// Package transport carries kind-tagged requests between the panel, the page
// and the background worker. Every request has a correlation id and gets at
// most one response.
package transport

import (
	"github.com/v0xg/shadowlight/internal/ai"
	"github.com/v0xg/shadowlight/internal/guide"
)

// Kind tags a request.
type Kind string

const (
	KindScrapePage       Kind = "SCRAPE_PAGE"
	KindHighlightElement Kind = "HIGHLIGHT_ELEMENT"
	KindClearHighlight   Kind = "CLEAR_HIGHLIGHT"
	KindApplyContrast    Kind = "APPLY_CONTRAST"
	KindApplyTheme       Kind = "APPLY_THEME"
	KindResetTheme       Kind = "RESET_THEME"
	KindNavigateTo       Kind = "NAVIGATE_TO"
	KindSummarize        Kind = "SUMMARIZE"
	KindGenerateNav      Kind = "GENERATE_NAV"
	KindChat             Kind = "CHAT"
	KindRepurpose        Kind = "REPURPOSE"
)

// Kinds lists every request kind, page-side kinds first.
func Kinds() []Kind {
	return []Kind{
		KindScrapePage, KindHighlightElement, KindClearHighlight,
		KindApplyContrast, KindApplyTheme, KindResetTheme, KindNavigateTo,
		KindSummarize, KindGenerateNav, KindChat, KindRepurpose,
	}
}

// Highlight is the HIGHLIGHT_ELEMENT payload. Seq orders highlight and clear
// commands; zero means unsequenced.
type Highlight struct {
	Selector string `json:"selector"`
	Seq      uint64 `json:"seq,omitempty"`
}

// Clear is the CLEAR_HIGHLIGHT payload.
type Clear struct {
	Seq uint64 `json:"seq,omitempty"`
}

// Contrast is the APPLY_CONTRAST payload.
type Contrast struct {
	Filter string `json:"filter"`
}

// Theme is the APPLY_THEME payload.
type Theme struct {
	TextColor string `json:"textColor"`
	BgColor   string `json:"bgColor"`
}

// Navigate is the NAVIGATE_TO payload.
type Navigate struct {
	Target string `json:"target"`
}

// Summarize is the SUMMARIZE payload.
type Summarize struct {
	Content string         `json:"content"`
	Mode    ai.SummaryMode `json:"mode"`
}

// GenerateNav is the GENERATE_NAV payload. The response is []guide.NavStep.
type GenerateNav struct {
	Goal    string        `json:"goal"`
	Context guide.Context `json:"context"`
}

// Chat is the CHAT payload.
type Chat struct {
	Query   string `json:"query"`
	Context string `json:"context"`
}

// Repurpose is the REPURPOSE payload.
type Repurpose struct {
	Content string             `json:"content"`
	Format  ai.RepurposeFormat `json:"format"`
}

// Text is the response of CHAT and REPURPOSE.
type Text struct {
	Text string `json:"text"`
}
