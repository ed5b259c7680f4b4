// Package protocol implements the textual tool-invocation grammar used by the
// reasoning loop:
//
//	Thought: <reasoning>
//	Action: <tool name>
//	Action Input: <JSON object>
//	Observation: <tool result, written by the loop>
//	...
//	Final Answer: <answer for the user>
package protocol

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind distinguishes the two successful parse outcomes.
type Kind string

const (
	KindToolCall    Kind = "tool_call"
	KindFinalAnswer Kind = "final_answer"
)

// Step is one parsed model turn.
type Step struct {
	Kind    Kind
	Thought string
	// Action and Input are set for tool calls. Input is the raw text after
	// "Action Input:"; decode it with DecodeArgs.
	Action string
	Input  string
	// Answer is set for final answers.
	Answer string
}

// ParseError reports model output that does not follow the grammar.
type ParseError struct {
	Reason string
	Output string
}

func (e *ParseError) Error() string {
	return "unparsable model output: " + e.Reason
}

var (
	thoughtRe = regexp.MustCompile(`(?is)Thought[ \t*]*:[ \t*]*(.*?)(?:\n[\s*]*(?:Action|Final[ \t]+Answer)[ \t*]*:|$)`)
	actionRe  = regexp.MustCompile(`(?im)^[ \t*]*Action[ \t*]*:[ \t*]*(.*)$`)
	inputRe   = regexp.MustCompile(`(?is)Action[ \t*]+Input[ \t*]*:[ \t*]*(.*?)(?:\n\s*(?:Observation|Thought|Final Answer)\s*:|$)`)
	finalRe   = regexp.MustCompile(`(?is)Final[ \t*]+Answer[ \t*]*:[ \t*]*(.*)$`)
	toolName  = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_.-]*`)
)

// Parse reads a model turn. When both an Action and a Final Answer appear,
// whichever comes first in the text wins.
func Parse(output string) (Step, error) {
	text := strings.TrimSpace(output)
	if text == "" {
		return Step{}, &ParseError{Reason: "empty output", Output: output}
	}

	var step Step
	if m := thoughtRe.FindStringSubmatch(text); m != nil {
		step.Thought = strings.TrimSpace(m[1])
	}

	actionLoc := actionRe.FindStringSubmatchIndex(text)
	finalLoc := finalRe.FindStringSubmatchIndex(text)

	if finalLoc != nil && (actionLoc == nil || finalLoc[0] < actionLoc[0]) {
		answer := strings.TrimSpace(text[finalLoc[2]:finalLoc[3]])
		if answer == "" {
			return Step{}, &ParseError{Reason: "empty final answer", Output: output}
		}
		step.Kind = KindFinalAnswer
		step.Answer = answer
		return step, nil
	}

	if actionLoc == nil {
		return Step{}, &ParseError{Reason: "missing Action or Final Answer", Output: output}
	}

	name := toolName.FindString(text[actionLoc[2]:actionLoc[3]])
	if name == "" {
		return Step{}, &ParseError{Reason: "empty action name", Output: output}
	}
	step.Kind = KindToolCall
	step.Action = name

	rest := text[actionLoc[0]:]
	if m := inputRe.FindStringSubmatch(rest); m != nil {
		step.Input = stripFences(strings.TrimSpace(m[1]))
	}
	return step, nil
}

// Validate checks that a tool call names one of the allowed tools.
func (s Step) Validate(allowed []string) error {
	if s.Kind != KindToolCall {
		return nil
	}
	for _, name := range allowed {
		if name == s.Action {
			return nil
		}
	}
	return &ParseError{Reason: fmt.Sprintf("unknown tool %q", s.Action)}
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "{[\"") {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
