package tools

import (
	"fmt"
	"strconv"
	"strings"
)

// Args are prepared tool arguments.
type Args map[string]any

// Str returns the string argument name, or "".
func (a Args) Str(name string) string {
	switch v := a[name].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the integer argument name, or def.
func (a Args) Int(name string, def int) int {
	switch v := a[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// Float returns the numeric argument name, or def.
func (a Args) Float(name string, def float64) float64 {
	switch v := a[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}
