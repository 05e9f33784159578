package ai

import (
	"github.com/sashabaranov/go-openai/jsonschema"
	"google.golang.org/genai"
)

// SchemaType names a JSON type in a declared response schema.
type SchemaType string

const (
	TypeObject SchemaType = "object"
	TypeArray  SchemaType = "array"
	TypeString SchemaType = "string"
	TypeNumber SchemaType = "number"
)

// Schema is a provider-neutral response schema. It marshals to plain JSON
// Schema and converts to each SDK's own representation.
type Schema struct {
	Name        string             `json:"-"`
	Type        SchemaType         `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

// NavStepsSchema is the declared shape of a navigation plan.
var NavStepsSchema = &Schema{
	Name: "nav_steps",
	Type: TypeArray,
	Items: &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"selector":           {Type: TypeString, Description: "CSS selector taken from the page map"},
			"instruction":        {Type: TypeString, Description: "What the user should do, one sentence"},
			"action":             {Type: TypeString, Enum: []string{"click", "type", "hover"}},
			"targetPage":         {Type: TypeString, Description: "URL or path of the page the element is on"},
			"contextHint":        {Type: TypeString},
			"elementDescription": {Type: TypeString},
			"expectedOutcome":    {Type: TypeString},
			"confidenceScore":    {Type: TypeNumber},
		},
		Required: []string{"selector", "instruction", "action", "targetPage", "confidenceScore"},
	},
}

// SummarySchema is the declared shape of a page summary.
var SummarySchema = &Schema{
	Name: "summary",
	Type: TypeObject,
	Properties: map[string]*Schema{
		"title":   {Type: TypeString},
		"content": {Type: TypeString},
		"keyTakeaways": {
			Type:  TypeArray,
			Items: &Schema{Type: TypeString},
		},
	},
	Required: []string{"title", "content", "keyTakeaways"},
}

func (s *Schema) nameOr(fallback string) string {
	if s.Name != "" {
		return s.Name
	}
	return fallback
}

func (s *Schema) genAI() *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
		Items:       s.Items.genAI(),
	}
	switch s.Type {
	case TypeObject:
		out.Type = genai.TypeObject
	case TypeArray:
		out.Type = genai.TypeArray
	case TypeNumber:
		out.Type = genai.TypeNumber
	default:
		out.Type = genai.TypeString
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = prop.genAI()
		}
	}
	return out
}

func (s *Schema) openAIDefinition() jsonschema.Definition {
	def := jsonschema.Definition{
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
	}
	switch s.Type {
	case TypeObject:
		def.Type = jsonschema.Object
	case TypeArray:
		def.Type = jsonschema.Array
	case TypeNumber:
		def.Type = jsonschema.Number
	default:
		def.Type = jsonschema.String
	}
	if s.Items != nil {
		items := s.Items.openAIDefinition()
		def.Items = &items
	}
	if len(s.Properties) > 0 {
		def.Properties = make(map[string]jsonschema.Definition, len(s.Properties))
		for name, prop := range s.Properties {
			def.Properties[name] = prop.openAIDefinition()
		}
	}
	return def
}
