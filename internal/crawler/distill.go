package crawler

import (
	"strings"
	"unicode/utf8"
)

// Limits bounds the size of a distilled map.
type Limits struct {
	TextLimit     int // runes kept of an element's text
	ClassLimit    int // classes kept of an element's class list
	BodyTextLimit int // runes kept of the page body text
}

// DefaultLimits matches what the model prompt is tuned for.
var DefaultLimits = Limits{TextLimit: 50, ClassLimit: 3, BodyTextLimit: 2000}

// RawPage is the unfiltered in-page snapshot produced by snapshotJS.
type RawPage struct {
	URL        string         `json:"url"`
	Title      string         `json:"title"`
	BodyText   string         `json:"bodyText"`
	Candidates []RawCandidate `json:"candidates"`
}

// RawCandidate is one element matching the interactive predicate, in document order.
type RawCandidate struct {
	Tag         string  `json:"tag"`
	ID          string  `json:"id"`
	Class       string  `json:"class"`
	InnerText   string  `json:"innerText"`
	Value       string  `json:"value"`
	Placeholder string  `json:"placeholder"`
	AriaLabel   string  `json:"ariaLabel"`
	Type        string  `json:"type"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Display     string  `json:"display"`
}

// Visible reports whether a pointer action could reach the element.
func (c RawCandidate) Visible() bool {
	return c.Width > 0 && c.Height > 0 && c.Display != "none"
}

// Distill turns a raw snapshot into a DistilledMap. It is pure: the same raw
// page always yields the same map, in the same order.
func Distill(raw RawPage, limits Limits) *DistilledMap {
	limits = limits.withDefaults()

	elements := make([]InteractiveElement, 0, len(raw.Candidates))
	for _, c := range raw.Candidates {
		if !c.Visible() {
			continue
		}
		elements = append(elements, distillElement(c, limits))
	}

	return &DistilledMap{
		URL:                 raw.URL,
		Title:               raw.Title,
		InteractiveElements: elements,
		MainText:            truncate(raw.BodyText, limits.BodyTextLimit),
	}
}

func distillElement(c RawCandidate, limits Limits) InteractiveElement {
	tag := strings.ToLower(c.Tag)
	classes := strings.Fields(c.Class)
	if len(classes) > limits.ClassLimit {
		classes = classes[:limits.ClassLimit]
	}

	text := c.InnerText
	if text == "" {
		text = c.Value
	}
	if text == "" {
		text = c.Placeholder
	}

	return InteractiveElement{
		TagName:           tag,
		ID:                c.ID,
		ClassName:         strings.Join(classes, " "),
		Text:              strings.TrimSpace(truncate(text, limits.TextLimit)),
		AriaLabel:         c.AriaLabel,
		Type:              c.Type,
		SuggestedSelector: SuggestSelector(tag, c.ID, classes),
	}
}

// SuggestSelector prefers #id, then tag.firstClass, then the bare tag.
func SuggestSelector(tag, id string, classes []string) string {
	if id != "" {
		return "#" + cssEscape(id)
	}
	if len(classes) > 0 {
		return tag + "." + cssEscape(classes[0])
	}
	return tag
}

func (l Limits) withDefaults() Limits {
	if l.TextLimit <= 0 {
		l.TextLimit = DefaultLimits.TextLimit
	}
	if l.ClassLimit <= 0 {
		l.ClassLimit = DefaultLimits.ClassLimit
	}
	if l.BodyTextLimit <= 0 {
		l.BodyTextLimit = DefaultLimits.BodyTextLimit
	}
	return l
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// cssEscape escapes an identifier the way CSS.escape does for the common
// cases: special ASCII is backslash-escaped, a leading digit becomes a code
// point escape.
func cssEscape(ident string) string {
	var b strings.Builder
	for i, r := range ident {
		switch {
		case r == 0:
			b.WriteString("�")
		case r < 0x20 || r == 0x7f:
			b.WriteString(codePoint(r))
		case i == 0 && r >= '0' && r <= '9':
			b.WriteString(codePoint(r))
		case i == 1 && r >= '0' && r <= '9' && ident[0] == '-':
			b.WriteString(codePoint(r))
		case r == '-' && i == 0 && len(ident) == 1:
			b.WriteString(`\-`)
		case r >= 0x80 || r == '-' || r == '_' ||
			(r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}

func codePoint(r rune) string {
	const hex = "0123456789abcdef"
	var digits []byte
	for v := int(r); ; v >>= 4 {
		digits = append([]byte{hex[v&0xf]}, digits...)
		if v < 16 {
			break
		}
	}
	return `\` + string(digits) + " "
}
