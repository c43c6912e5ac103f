package util

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSONArray parses the first well-formed JSON array found in text.
// Model output frequently wraps JSON in prose or markdown fences; this strips
// the wrapping before unmarshalling.
func ExtractJSONArray(text string, out any) error {
	return extractJSON(text, '[', ']', out)
}

// ExtractJSONObject parses the first well-formed JSON object found in text.
func ExtractJSONObject(text string, out any) error {
	return extractJSON(text, '{', '}', out)
}

func extractJSON(text string, open, close byte, out any) error {
	text = stripFences(text)
	start := strings.IndexByte(text, open)
	if start < 0 {
		return fmt.Errorf("no JSON payload found in response")
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return json.Unmarshal([]byte(text[start:i+1]), out)
			}
		}
	}
	return fmt.Errorf("unbalanced JSON payload in response")
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return text
}
