package normalize

import (
	"encoding/json"
	"strings"
)

const fence = "```"

// StripFences removes a Markdown code fence (``` or ```json) wrapping the
// payload. Text that does not start with a fence is returned unchanged.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, fence) {
		return text
	}
	s = strings.TrimPrefix(s, fence)
	// optional language tag, e.g. ```json
	if i := strings.IndexFunc(s, func(r rune) bool { return !isTagRune(r) }); i > 0 {
		s = s[i:]
	} else if i < 0 {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, fence)
	return strings.TrimSpace(s)
}

func isTagRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_'
}

// Parse decodes raw model text into a generic JSON value (map[string]any,
// []any, ...). It strips fences and tries a direct decode. On failure it
// retries on the object span ('{' to last '}') and the array span ('[' to
// last ']'), whichever opens first tried first.
func Parse(raw string) (any, error) {
	text := strings.TrimSpace(StripFences(raw))

	v, firstErr := decode(text)
	if firstErr == nil {
		return v, nil
	}
	for _, sub := range delimitedSpans(text) {
		if v, err := decode(sub); err == nil {
			return v, nil
		}
	}
	return nil, &MalformedResponseError{Raw: raw, Err: firstErr}
}

func decode(text string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	// A JSON document that was itself encoded as a string.
	if s, ok := v.(string); ok {
		inner := strings.TrimSpace(s)
		if strings.HasPrefix(inner, "{") || strings.HasPrefix(inner, "[") {
			var nested any
			if err := json.Unmarshal([]byte(inner), &nested); err == nil {
				return nested, nil
			}
		}
	}
	return v, nil
}

// delimitedSpans returns the candidate JSON substrings of text, ordered by
// where they open.
func delimitedSpans(text string) []string {
	obj, objStart := span(text, '{', '}')
	arr, arrStart := span(text, '[', ']')
	switch {
	case objStart < 0 && arrStart < 0:
		return nil
	case arrStart < 0:
		return []string{obj}
	case objStart < 0:
		return []string{arr}
	case arrStart < objStart:
		return []string{arr, obj}
	default:
		return []string{obj, arr}
	}
}

// span slices from the first open to the last close, inclusive. start is -1
// when there is no such span.
func span(text string, opener, closer byte) (string, int) {
	start := strings.IndexByte(text, opener)
	if start < 0 {
		return "", -1
	}
	end := strings.LastIndexByte(text, closer)
	if end <= start {
		return "", -1
	}
	return text[start : end+1], start
}
