// Package provider wraps external travel data sources behind a uniform
// success/failure interface.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FailureKind classifies why an adapter call did not produce data.
type FailureKind string

const (
	FailureNetwork      FailureKind = "network"
	FailureStatus       FailureKind = "status"
	FailureMalformed    FailureKind = "malformed"
	FailureAuth         FailureKind = "auth"
	FailureEmpty        FailureKind = "empty"
	FailureUnconfigured FailureKind = "unconfigured"
)

// Failure describes an unsuccessful adapter call.
type Failure struct {
	Kind   FailureKind `json:"kind"`
	Reason string      `json:"reason"`
}

func (f *Failure) String() string {
	return string(f.Kind) + ": " + f.Reason
}

// Result is either a raw provider payload or a Failure, never both.
type Result struct {
	Payload json.RawMessage
	Failure *Failure
}

// Success wraps a raw payload.
func Success(payload json.RawMessage) Result {
	return Result{Payload: payload}
}

// Fail builds a failed Result.
func Fail(kind FailureKind, format string, args ...any) Result {
	return Result{Failure: &Failure{Kind: kind, Reason: fmt.Sprintf(format, args...)}}
}

// OK reports whether the result carries a payload.
func (r Result) OK() bool {
	return r.Failure == nil
}

// Decode unmarshals the payload into v. A failed result or undecodable
// payload yields a malformed/propagated Failure.
func (r Result) Decode(v any) *Failure {
	if r.Failure != nil {
		return r.Failure
	}
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return &Failure{Kind: FailureMalformed, Reason: err.Error()}
	}
	return nil
}

// Params are the structured inputs of an adapter call.
type Params map[string]any

// Str returns the string value for key, or "".
func (p Params) Str(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the integer value for key, or def when absent or unparsable.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// Adapter is one external data source.
type Adapter interface {
	Name() string
	Search(ctx context.Context, params Params) Result
}

// FuncAdapter adapts a function to the Adapter interface.
type FuncAdapter struct {
	AdapterName string
	Fn          func(ctx context.Context, params Params) Result
}

func (f FuncAdapter) Name() string { return f.AdapterName }

func (f FuncAdapter) Search(ctx context.Context, params Params) Result {
	return f.Fn(ctx, params)
}

// Unavailable is used when an upstream has no credentials configured.
type Unavailable struct {
	AdapterName string
}

func (u Unavailable) Name() string { return u.AdapterName }

func (u Unavailable) Search(context.Context, Params) Result {
	return Fail(FailureUnconfigured, "%s is not configured", u.AdapterName)
}

// Set groups the adapters the travel tools depend on.
type Set struct {
	Flights  Adapter
	Hotels   Adapter
	Weather  Adapter
	Currency Adapter
	Geocode  Adapter
}

// UnavailableSet returns a Set where every call fails, so every tool
// answers from fallback data.
func UnavailableSet() Set {
	return Set{
		Flights:  Unavailable{AdapterName: "flights"},
		Hotels:   Unavailable{AdapterName: "hotels"},
		Weather:  Unavailable{AdapterName: "weather"},
		Currency: Unavailable{AdapterName: "currency"},
		Geocode:  Unavailable{AdapterName: "geocode"},
	}
}
