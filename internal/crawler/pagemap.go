package crawler

// DistilledMap is one snapshot of a page, pruned to what a model needs to plan
// navigation. It is never mutated after Distill returns it.
type DistilledMap struct {
	URL                 string               `json:"url"`
	Title               string               `json:"title"`
	InteractiveElements []InteractiveElement `json:"interactiveElements"`
	MainText            string               `json:"mainText"`
}

// InteractiveElement represents one visible control on the page
type InteractiveElement struct {
	TagName   string `json:"tagName"`
	ID        string `json:"id,omitempty"`
	ClassName string `json:"className,omitempty"` // first few classes, space separated
	Text      string `json:"text"`
	AriaLabel string `json:"ariaLabel,omitempty"`
	Type      string `json:"type,omitempty"`
	// SuggestedSelector is a best-effort selector. It is not guaranteed to be
	// unique: two buttons sharing a first class share a selector.
	SuggestedSelector string `json:"suggestedSelector"`
}

// Empty reports whether no interactive element survived distillation.
func (m *DistilledMap) Empty() bool {
	return m == nil || len(m.InteractiveElements) == 0
}

// Selectors returns every selector the map vouches for: each suggested
// selector plus the #id form of elements that carry an id.
func (m *DistilledMap) Selectors() map[string]struct{} {
	set := make(map[string]struct{})
	if m == nil {
		return set
	}
	for _, el := range m.InteractiveElements {
		set[el.SuggestedSelector] = struct{}{}
		if el.ID != "" {
			set["#"+cssEscape(el.ID)] = struct{}{}
		}
	}
	return set
}
