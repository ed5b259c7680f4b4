package protocol

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Decoding records how DecodeArgs obtained its result.
type Decoding string

const (
	DecodedEmpty      Decoding = "empty"
	DecodedJSON       Decoding = "json"
	DecodedJSONString Decoding = "json_string"
	DecodedRegex      Decoding = "regex"
	DecodedText       Decoding = "text"
)

var (
	quotedPair = regexp.MustCompile(`["']([A-Za-z_][A-Za-z0-9_]*)["']\s*:\s*"([^"]*)"`)
	singlePair = regexp.MustCompile(`["']([A-Za-z_][A-Za-z0-9_]*)["']\s*:\s*'([^']*)'`)
	numberPair = regexp.MustCompile(`["']([A-Za-z_][A-Za-z0-9_]*)["']\s*:\s*(-?\d+(?:\.\d+)?)\b`)
	boolPair   = regexp.MustCompile(`["']([A-Za-z_][A-Za-z0-9_]*)["']\s*:\s*(true|false)\b`)
)

// DecodeArgs turns an Action Input payload into named arguments. It tries a
// JSON object, then a JSON string whose contents are an object, then
// regex extraction of "key": value pairs. When none of these yield any
// pairs the trimmed payload is returned as free text with a nil map.
func DecodeArgs(raw string) (map[string]any, Decoding, string) {
	raw = stripFences(strings.TrimSpace(raw))
	if raw == "" || raw == "{}" {
		return map[string]any{}, DecodedEmpty, ""
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		switch val := v.(type) {
		case map[string]any:
			return val, DecodedJSON, ""
		case string:
			var inner map[string]any
			if err := json.Unmarshal([]byte(strings.TrimSpace(val)), &inner); err == nil {
				return inner, DecodedJSONString, ""
			}
			if args := extractPairs(val); len(args) > 0 {
				return args, DecodedRegex, ""
			}
			return nil, DecodedText, strings.TrimSpace(val)
		}
	}

	if args := extractPairs(raw); len(args) > 0 {
		return args, DecodedRegex, ""
	}
	return nil, DecodedText, strings.Trim(raw, "\"'` ")
}

func extractPairs(s string) map[string]any {
	out := make(map[string]any)
	for _, m := range quotedPair.FindAllStringSubmatch(s, -1) {
		setOnce(out, m[1], m[2])
	}
	for _, m := range singlePair.FindAllStringSubmatch(s, -1) {
		setOnce(out, m[1], m[2])
	}
	for _, m := range numberPair.FindAllStringSubmatch(s, -1) {
		if n, err := strconv.ParseFloat(m[2], 64); err == nil {
			setOnce(out, m[1], n)
		}
	}
	for _, m := range boolPair.FindAllStringSubmatch(s, -1) {
		setOnce(out, m[1], m[2] == "true")
	}
	return out
}

// setOnce keeps the first occurrence of a key and drops empty strings.
func setOnce(m map[string]any, key string, v any) {
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return
	}
	if _, exists := m[key]; !exists {
		m[key] = v
	}
}

// IsPlaceholder reports whether an argument value is a stand-in the model
// emitted instead of a real value.
func IsPlaceholder(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "", "none", "null", "nil", "n/a", "unknown", "undefined", "<unknown>":
			return true
		}
	}
	return false
}
