package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/xiaot623/gogo/navigator/internal/domain"
)

// Engine is the OPA policy engine gating tool invocations.
type Engine struct {
	query rego.PreparedEvalQuery
}

// Input is what the policy sees for one proposed tool call.
type Input struct {
	ToolName   string         `json:"tool_name"`
	Args       map[string]any `json:"args"`
	Required   []string       `json:"required"`
	KnownTools []string       `json:"known_tools"`
	// Repeats counts earlier identical calls in the same loop run.
	Repeats   int    `json:"repeats"`
	SessionID string `json:"session_id,omitempty"`
}

// Decision is the verdict for a tool call.
type Decision struct {
	Decision domain.ToolDecision `json:"decision"`
	Reason   string              `json:"reason"`
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.tool_policy.decision"),
		rego.Module("tool_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// NewEngineFromFile loads the policy from path, or DefaultPolicy when path is empty.
func NewEngineFromFile(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return NewEngine(ctx, string(content))
}

// Evaluate checks the tool policy.
func (e *Engine) Evaluate(ctx context.Context, input Input) (Decision, error) {
	if input.Args == nil {
		input.Args = map[string]any{}
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Decision: domain.ToolDecisionAllow, Reason: "default"}, nil
	}

	switch val := results[0].Expressions[0].Value.(type) {
	case string:
		return Decision{Decision: domain.ToolDecision(val)}, nil
	case map[string]any:
		d, _ := val["decision"].(string)
		reason, _ := val["reason"].(string)
		switch domain.ToolDecision(d) {
		case domain.ToolDecisionAllow, domain.ToolDecisionClarify, domain.ToolDecisionBlock:
			return Decision{Decision: domain.ToolDecision(d), Reason: reason}, nil
		}
		return Decision{}, fmt.Errorf("policy returned unknown decision %q", d)
	}
	return Decision{}, fmt.Errorf("policy returned unexpected type %T", results[0].Expressions[0].Value)
}

// DefaultPolicy blocks unknown tools and endless repeats, and asks for
// clarification when a required argument is missing or a placeholder.
const DefaultPolicy = `
package tool_policy

default decision := {"decision": "allow", "reason": "default"}

placeholders := {"", "none", "null", "nil", "n/a", "unknown", "undefined", "<unknown>"}

unknown_tool if {
	not input.tool_name in input.known_tools
}

has_arg(name) if {
	_ = input.args[name]
}

missing contains name if {
	some name in input.required
	not has_arg(name)
}

missing contains name if {
	some name in input.required
	input.args[name] == null
}

missing contains name if {
	some name in input.required
	v := input.args[name]
	is_string(v)
	lower(trim_space(v)) in placeholders
}

decision := {"decision": "block", "reason": sprintf("unknown tool %s", [input.tool_name])} if {
	unknown_tool
} else := {"decision": "block", "reason": "the same call was already made twice"} if {
	input.repeats >= 2
} else := {"decision": "clarify", "reason": concat(", ", sort(missing))} if {
	count(missing) > 0
}
`
