// Package models contains domain models and utility types.
package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"
)

// FlexInt is an int that can be unmarshaled from either a JSON number or string.
// This is useful when parsing LLM responses that may return numbers as strings
// (e.g., "count": "5" instead of "count": 5).
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler for FlexInt.
// It accepts both numeric values and string representations of numbers.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	// Try to unmarshal as an int first
	var intVal int
	if err := json.Unmarshal(data, &intVal); err == nil {
		*f = FlexInt(intVal)
		return nil
	}

	// Try to unmarshal as a string and convert
	var strVal string
	if err := json.Unmarshal(data, &strVal); err == nil {
		if strVal == "" {
			*f = 0
			return nil
		}
		parsed, err := strconv.Atoi(strVal)
		if err != nil {
			// If not a valid number string, default to 0
			*f = 0
			return nil
		}
		*f = FlexInt(parsed)
		return nil
	}

	// Default to 0 for other cases (null, etc.)
	*f = 0
	return nil
}

// MarshalJSON implements json.Marshaler for FlexInt.
// Always marshals as a numeric value.
func (f FlexInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(f))
}

// Int returns the FlexInt as a standard int.
func (f FlexInt) Int() int {
	return int(f)
}

// FlexStrings is a string list that can be unmarshaled from a JSON array,
// a comma-separated string, or a JSON-encoded array embedded in a string.
// Ingest payloads and LLM responses use all three shapes interchangeably.
type FlexStrings []string

// UnmarshalJSON implements json.Unmarshaler for FlexStrings.
func (f *FlexStrings) UnmarshalJSON(data []byte) error {
	// Plain array first
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*f = FlexStrings(splitAndTrim(arr))
		return nil
	}

	var strVal string
	if err := json.Unmarshal(data, &strVal); err == nil {
		strVal = strings.TrimSpace(strVal)
		if strVal == "" {
			*f = FlexStrings{}
			return nil
		}
		// A string that itself holds a JSON array
		if strings.HasPrefix(strVal, "[") {
			var nested []string
			if err := json.Unmarshal([]byte(strVal), &nested); err == nil {
				*f = FlexStrings(splitAndTrim(nested))
				return nil
			}
		}
		*f = FlexStrings(splitAndTrim(strings.Split(strVal, ",")))
		return nil
	}

	// null and anything else collapse to empty
	*f = FlexStrings{}
	return nil
}

// MarshalJSON implements json.Marshaler for FlexStrings.
// Always marshals as a JSON array.
func (f FlexStrings) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(f))
}

// Strings returns the FlexStrings as a plain slice.
func (f FlexStrings) Strings() []string {
	return []string(f)
}

func splitAndTrim(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeStringSet trims, drops empties, and dedupes case-insensitively
// while keeping the first-seen casing. Keyword lists are order-insensitive
// sets, so callers may persist the result directly.
func NormalizeStringSet(vals []string) []string {
	if len(vals) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(vals))
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

// TruncateChars cuts s to at most n bytes without splitting a UTF-8
// sequence. Evidence snippets and notes carry hard caps in storage.
func TruncateChars(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
