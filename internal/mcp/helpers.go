package mcp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/v0xg/shadowlight/internal/ai"
)

func getStringArg(args map[string]interface{}, key string) string {
	val, ok := args[key]
	if !ok || val == nil {
		return ""
	}
	switch v := val.(type) {
	case string:
		return strings.TrimSpace(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func requireStringArg(args map[string]interface{}, key string) (string, error) {
	v := getStringArg(args, key)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// userMessage keeps model failures to the plain message the user is shown.
func userMessage(err error) string {
	var re *ai.ResolutionError
	if errors.As(err, &re) {
		return re.UserMessage() + " (" + err.Error() + ")"
	}
	return err.Error()
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func enumProp(description string, values ...string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description, "enum": values}
}

func objectSchema(props map[string]interface{}, required ...string) map[string]interface{} {
	if props == nil {
		props = map[string]interface{}{}
	}
	schema := map[string]interface{}{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
