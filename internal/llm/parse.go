package llm

import (
	"encoding/json"
	"strings"
)

// ParseFirstJSON extracts the first balanced JSON object from raw model
// output, tolerating markdown fences and prose around the object.
func ParseFirstJSON(raw string) ([]byte, error) {
	s := stripFences(strings.TrimSpace(raw))

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return nil, ErrInvalidModelJSON
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					candidate := []byte(s[start : i+1])
					if !json.Valid(candidate) {
						return nil, ErrInvalidModelJSON
					}
					return candidate, nil
				}
			}
		}
	}
	return nil, ErrInvalidModelJSON
}

// stripFences removes a surrounding markdown code fence when present.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
