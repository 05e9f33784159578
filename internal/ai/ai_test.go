package ai

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func static(text string, err error) ProviderFunc {
	return func(context.Context, Request) (string, error) { return text, err }
}

func TestDecodeArray(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int
		wantErr error
	}{
		{"plain", `[{"a":1},{"a":2}]`, 2, nil},
		{"prose around", "Here you go:\n[{\"a\":1}]\nGood luck!", 1, nil},
		{"fenced", "```json\n[{\"a\":\"x]\"}]\n```", 1, nil},
		{"empty array", `[]`, 0, nil},
		{"empty", "   ", 0, ErrEmptyResponse},
		{"no array", "I cannot help with that.", 0, ErrMalformed},
		{"unbalanced", `[{"a":1}`, 0, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out []map[string]any
			err := DecodeArray(tt.in, &out)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, out, tt.want)
		})
	}
}

func TestExtractBalancedSkipsStrings(t *testing.T) {
	got, ok := extractBalanced(`noise {"t":"a } b","n":{"x":1}} tail`, '{', '}')
	require.True(t, ok)
	assert.Equal(t, `{"t":"a } b","n":{"x":1}}`, got)
}

func TestSchemaMarshalsAsJSONSchema(t *testing.T) {
	b, err := json.Marshal(SummarySchema)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type":"object",
		"properties":{
			"title":{"type":"string"},
			"content":{"type":"string"},
			"keyTakeaways":{"type":"array","items":{"type":"string"}}
		},
		"required":["title","content","keyTakeaways"]
	}`, string(b))
}

func TestSchemaToGenAI(t *testing.T) {
	s := NavStepsSchema.genAI()
	assert.Equal(t, genai.TypeArray, s.Type)
	require.NotNil(t, s.Items)
	assert.Equal(t, genai.TypeObject, s.Items.Type)
	assert.Equal(t, []string{"click", "type", "hover"}, s.Items.Properties["action"].Enum)
	assert.Equal(t, genai.TypeNumber, s.Items.Properties["confidenceScore"].Type)
	assert.Contains(t, s.Items.Required, "targetPage")
}

func TestSchemaToOpenAI(t *testing.T) {
	def := SummarySchema.openAIDefinition()
	assert.Equal(t, jsonschema.Object, def.Type)
	assert.Equal(t, jsonschema.Array, def.Properties["keyTakeaways"].Type)
	assert.Equal(t, jsonschema.String, def.Properties["keyTakeaways"].Items.Type)

	assert.Nil(t, openAIResponseFormat(NavStepsSchema), "array roots are not declared")
	assert.Nil(t, openAIResponseFormat(nil))
	rf := openAIResponseFormat(SummarySchema)
	require.NotNil(t, rf)
	assert.Equal(t, "summary", rf.JSONSchema.Name)
}

func TestSummarize(t *testing.T) {
	var seen Request
	b := NewBrain(ProviderFunc(func(_ context.Context, req Request) (string, error) {
		seen = req
		return `{"title":"T","content":"C","keyTakeaways":["a","b"]}`, nil
	}), WithMaxTokens(512))

	res, err := b.Summarize(context.Background(), "page text", SummaryShort)
	require.NoError(t, err)
	assert.Equal(t, &SummaryResult{Title: "T", Content: "C", KeyTakeaways: []string{"a", "b"}}, res)
	assert.Same(t, SummarySchema, seen.Schema)
	assert.Equal(t, 512, seen.MaxTokens)
	assert.Contains(t, seen.Prompt, "Mode: Concise.")
	assert.Contains(t, seen.Prompt, "page text")
}

func TestSummarizeFailures(t *testing.T) {
	tests := []struct {
		name string
		p    Provider
		want error
	}{
		{"provider error", static("", errors.New("503")), nil},
		{"empty", static("", nil), ErrEmptyResponse},
		{"not json", static("sorry", nil), ErrMalformed},
		{"missing field", static(`{"title":"T","content":"C"}`, nil), ErrMalformed},
		{"timeout", static("", context.DeadlineExceeded), context.DeadlineExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBrain(tt.p).Summarize(context.Background(), "x", SummaryFull)
			require.Error(t, err)
			assert.True(t, IsResolution(err))
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestChat(t *testing.T) {
	var seen Request
	b := NewBrain(ProviderFunc(func(_ context.Context, req Request) (string, error) {
		seen = req
		return "It is a clinic.", nil
	}))
	answer, err := b.Chat(context.Background(), "What is this?", "HealthPlus clinic")
	require.NoError(t, err)
	assert.Equal(t, "It is a clinic.", answer)
	assert.Contains(t, seen.System, "HealthPlus clinic")
	assert.Equal(t, 1000, seen.MaxTokens)
	assert.Nil(t, seen.Schema)

	answer, err = NewBrain(static("  ", nil)).Chat(context.Background(), "q", "c")
	require.NoError(t, err)
	assert.Equal(t, ChatFallback, answer)

	_, err = NewBrain(static("", errors.New("boom"))).Chat(context.Background(), "q", "c")
	assert.True(t, IsResolution(err))
}

func TestRepurpose(t *testing.T) {
	var seen Request
	b := NewBrain(ProviderFunc(func(_ context.Context, req Request) (string, error) {
		seen = req
		return "short post", nil
	}))
	out, err := b.Repurpose(context.Background(), "long text", FormatTweet)
	require.NoError(t, err)
	assert.Equal(t, "short post", out)
	assert.Contains(t, seen.Prompt, "into a tweet format")
}

func TestParseModes(t *testing.T) {
	m, err := ParseSummaryMode("ELI5")
	require.NoError(t, err)
	assert.Equal(t, SummaryELI5, m)

	m, err = ParseSummaryMode("")
	require.NoError(t, err)
	assert.Equal(t, SummaryFull, m)

	_, err = ParseSummaryMode("haiku")
	assert.Error(t, err)

	f, err := ParseRepurposeFormat("Blog")
	require.NoError(t, err)
	assert.Equal(t, FormatBlog, f)
	_, err = ParseRepurposeFormat("poem")
	assert.Error(t, err)
}

func TestResolutionError(t *testing.T) {
	err := NewResolutionError("navigation", ErrEmptyResponse)
	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "navigation failed: empty response from model", err.Error())
	assert.Contains(t, re.UserMessage(), "could not find")

	assert.Nil(t, NewResolutionError("x", nil))
	assert.Same(t, err, NewResolutionError("other", err), "already typed errors are not re-wrapped")
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider("llama", "")
	assert.ErrorContains(t, err, "unknown provider")

	t.Setenv("SHADOWLIGHT_OPENAI_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	_, err = NewProvider("openai", "")
	assert.ErrorContains(t, err, "OPENAI_API_KEY")

	t.Setenv("OPENAI_API_KEY", "sk-test")
	p, err := NewProvider("gpt", "")
	require.NoError(t, err)
	assert.Equal(t, "openai:gpt-4o", p.Name())

	t.Setenv("SHADOWLIGHT_ANTHROPIC_KEY", "sk-ant-test")
	p, err = NewProvider("claude", "claude-test")
	require.NoError(t, err)
	assert.Equal(t, "claude:claude-test", p.Name())
}

func TestBuildNavPrompt(t *testing.T) {
	p := BuildNavPrompt("find login", "", `{"url":"x"}`)
	assert.Contains(t, p, `USER GOAL: "find login"`)
	assert.Contains(t, p, "CURRENT LOCATION: unknown")
	assert.Contains(t, p, `{"url":"x"}`)
	assert.NotEmpty(t, NavSystemPrompt())
}
