package tools

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed schemas.yaml
var schemasYAML []byte

// LoadSchemas parses an OpenAPI document and returns its component schemas
// keyed by tool name.
func LoadSchemas(data []byte) (map[string]*openapi3.Schema, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load tool schemas: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("tool schemas are invalid: %w", err)
	}
	if doc.Components == nil {
		return nil, fmt.Errorf("tool schemas document has no components")
	}
	out := make(map[string]*openapi3.Schema, len(doc.Components.Schemas))
	for name, ref := range doc.Components.Schemas {
		if ref != nil && ref.Value != nil {
			out[name] = ref.Value
		}
	}
	return out, nil
}

// BuiltinSchemas returns the parameter schemas of the travel tools.
func BuiltinSchemas() (map[string]*openapi3.Schema, error) {
	return LoadSchemas(schemasYAML)
}

// describeSchema renders the parameters of a schema for a prompt, e.g.
// "origin (string, required): Origin city".
func describeSchema(s *openapi3.Schema) string {
	if s == nil || len(s.Properties) == 0 {
		return "no parameters"
	}
	required := make(map[string]bool, len(s.Required))
	for _, r := range s.Required {
		required[r] = true
	}
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if required[names[i]] != required[names[j]] {
			return required[names[i]]
		}
		return names[i] < names[j]
	})

	parts := make([]string, 0, len(names))
	for _, name := range names {
		prop := s.Properties[name].Value
		kind := "any"
		if prop != nil && prop.Type != nil && len(prop.Type.Slice()) > 0 {
			kind = prop.Type.Slice()[0]
		}
		flag := "optional"
		if required[name] {
			flag = "required"
		}
		part := fmt.Sprintf("%s (%s, %s)", name, kind, flag)
		if prop != nil && prop.Description != "" {
			part += ": " + prop.Description
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, "; ")
}

// prepareArgs coerces loosely typed values to the declared property types,
// fills defaults and drops unknown keys. It never fails; validation is a
// separate step.
func prepareArgs(s *openapi3.Schema, args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	if s == nil {
		for k, v := range args {
			out[k] = v
		}
		return out
	}
	for name, ref := range s.Properties {
		prop := ref.Value
		v, ok := args[name]
		if !ok || v == nil {
			if prop != nil && prop.Default != nil {
				out[name] = prop.Default
			}
			continue
		}
		out[name] = coerce(prop, v)
	}
	return out
}

func coerce(prop *openapi3.Schema, v any) any {
	if prop == nil || prop.Type == nil {
		return v
	}
	switch {
	case prop.Type.Is(openapi3.TypeString):
		switch val := v.(type) {
		case string:
			return strings.TrimSpace(val)
		case float64:
			return strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(val)
		}
	case prop.Type.Is(openapi3.TypeInteger):
		switch val := v.(type) {
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
				return float64(n)
			}
			if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
				return math.Round(f)
			}
		case int:
			return float64(val)
		case float64:
			return math.Round(val)
		}
	case prop.Type.Is(openapi3.TypeNumber):
		switch val := v.(type) {
		case string:
			clean := strings.NewReplacer(",", "", "$", "").Replace(strings.TrimSpace(val))
			if fields := strings.Fields(clean); len(fields) > 0 {
				if f, err := strconv.ParseFloat(fields[0], 64); err == nil {
					return f
				}
			}
		case int:
			return float64(val)
		}
	}
	return v
}

// validateArgs checks prepared args against the schema.
func validateArgs(s *openapi3.Schema, args map[string]any) error {
	if s == nil {
		return nil
	}
	if err := s.VisitJSON(args, openapi3.MultiErrors()); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
