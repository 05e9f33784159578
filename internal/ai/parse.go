package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeArray parses a JSON array from a response that may contain
// surrounding text or a markdown fence.
func DecodeArray(response string, v any) error {
	return decodeJSON(response, '[', ']', v)
}

// DecodeObject parses a JSON object from a response that may contain
// surrounding text or a markdown fence.
func DecodeObject(response string, v any) error {
	return decodeJSON(response, '{', '}', v)
}

func decodeJSON(response string, open, close byte, v any) error {
	response = strings.TrimSpace(response)
	if response == "" {
		return ErrEmptyResponse
	}

	// First try direct parsing
	if err := json.Unmarshal([]byte(response), v); err == nil {
		return nil
	}

	jsonStr, ok := extractBalanced(response, open, close)
	if !ok {
		return fmt.Errorf("%w: no JSON %c...%c found in response", ErrMalformed, open, close)
	}
	if err := json.Unmarshal([]byte(jsonStr), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// extractBalanced returns the first balanced open...close span, skipping
// delimiters inside JSON strings.
func extractBalanced(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
