package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseResponse pulls the JSON array out of a reply. Markdown fences and
// prose around the array are tolerated; anything that is not an array of
// objects wraps ErrParseFailure.
func ParseResponse(text string) ([]map[string]any, error) {
	body := stripFences(strings.TrimSpace(text))
	if body == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrParseFailure)
	}

	var items []map[string]any
	err := json.Unmarshal([]byte(body), &items)
	if err != nil {
		start := strings.Index(body, "[")
		end := strings.LastIndex(body, "]")
		if start == -1 || end <= start {
			return nil, fmt.Errorf("%w: no JSON array in reply", ErrParseFailure)
		}
		if err := json.Unmarshal([]byte(body[start:end+1]), &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
		}
	}
	if items == nil {
		return nil, fmt.Errorf("%w: reply is not an array", ErrParseFailure)
	}
	return items, nil
}

// stripFences returns the contents of the first ``` block, if any
func stripFences(s string) string {
	open := strings.Index(s, "```")
	if open == -1 {
		return s
	}
	rest := s[open+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.ContainsAny(rest[:nl], "[{") {
		rest = rest[nl+1:] // language tag such as "json"
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
