package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when no JSON object can be recovered from a response.
var ErrNoJSON = errors.New("model response contains no JSON object")

var jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

// StripFences removes a surrounding ``` or ```json fence.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if end := strings.Index(s, "```"); end >= 0 {
		s = s[:end]
	}
	s = strings.TrimPrefix(s, "json")
	return strings.TrimSpace(s)
}

// ExtractJSONObject returns the outermost {...} span of s.
func ExtractJSONObject(s string) (string, bool) {
	m := jsonObjectRe.FindString(s)
	return m, m != ""
}

// DecodeJSON parses a model response into v: fenced or bare JSON first,
// then the outermost object found anywhere in the text.
func DecodeJSON(raw string, v any) error {
	cleaned := StripFences(raw)
	if cleaned == "" {
		return errors.New("model returned empty response")
	}
	err := json.Unmarshal([]byte(cleaned), v)
	if err == nil {
		return nil
	}
	obj, ok := ExtractJSONObject(raw)
	if !ok {
		return fmt.Errorf("%w: %v", ErrNoJSON, err)
	}
	if err2 := json.Unmarshal([]byte(obj), v); err2 != nil {
		return fmt.Errorf("decode model json: %w", err2)
	}
	return nil
}
