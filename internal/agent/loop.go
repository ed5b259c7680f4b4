// Package agent runs the bounded Thought/Action/Observation reasoning loop.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xiaot623/gogo/navigator/internal/adapter/llm"
	"github.com/xiaot623/gogo/navigator/internal/domain"
	"github.com/xiaot623/gogo/navigator/internal/protocol"
	"github.com/xiaot623/gogo/navigator/internal/telemetry"
	"github.com/xiaot623/gogo/navigator/internal/tools"
	"github.com/xiaot623/gogo/navigator/policy"
)

// ErrNoEngine means no model is available to drive the loop. Callers answer
// from deterministic fallbacks instead.
var ErrNoEngine = errors.New("no reasoning engine available")

const (
	DefaultMaxIterations = 8
	DefaultTimeout       = 90 * time.Second

	maxParseFailures = 2

	apology = "I'm sorry, I wasn't able to finish working on your request. " +
		"Could you try rephrasing it or adding details such as the destination and travel dates?"
)

// Generator produces the next assistant turn.
type Generator interface {
	Generate(ctx context.Context, messages []llm.ChatMessage) (string, error)
}

// Toolbox is the tool surface the loop needs.
type Toolbox interface {
	Names() []string
	Describe() string
	Get(name string) (tools.Tool, bool)
	Prepare(name string, args map[string]any, text string) (tools.Args, error)
	Execute(ctx context.Context, name string, args tools.Args) (string, error)
}

// Gate decides whether a proposed tool call may run.
type Gate interface {
	Evaluate(ctx context.Context, input policy.Input) (policy.Decision, error)
}

// Config bounds a loop run.
type Config struct {
	MaxIterations int
	Timeout       time.Duration
	// SystemPrompt precedes the protocol instructions.
	SystemPrompt string
}

// Input is one user turn with its conversation state.
type Input struct {
	Query     string
	History   []domain.Message
	Context   map[string]any
	SessionID string
}

// Outcome is how a run ended.
type Outcome struct {
	Output     string            `json:"output"`
	Status     domain.LoopStatus `json:"status"`
	Iterations int               `json:"iterations"`
	Steps      []protocol.Record `json:"steps,omitempty"`
}

// Loop drives a Generator through the tool protocol.
type Loop struct {
	model  Generator
	tools  Toolbox
	gate   Gate
	cfg    Config
	logger zerolog.Logger
	tracer trace.Tracer
}

// New creates a Loop. A nil gate allows every known tool.
func New(model Generator, toolbox Toolbox, gate Gate, cfg Config, logger zerolog.Logger) *Loop {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	initMetrics()
	return &Loop{
		model:  model,
		tools:  toolbox,
		gate:   gate,
		cfg:    cfg,
		logger: logger,
		tracer: telemetry.Tracer(),
	}
}

// run is the mutable state of one Run call.
type run struct {
	in            Input
	messages      []llm.ChatMessage
	pad           protocol.Scratchpad
	machine       *protocol.Machine
	parseFailures int
	iterations    int
	// calls counts earlier tool calls by name and prepared arguments.
	calls map[string]int
}

// Run executes the loop for one user turn. The returned error is non-nil
// only when no model could be reached at all (wrapping ErrNoEngine); every
// other ending, including timeouts and the iteration cap, is an Outcome.
func (l *Loop) Run(ctx context.Context, in Input) (Outcome, error) {
	if l == nil || l.model == nil {
		return Outcome{Status: domain.LoopStatusFallback}, ErrNoEngine
	}

	start := time.Now()
	ctx, span := l.tracer.Start(ctx, "Agent.Run", trace.WithAttributes(
		attribute.String("session.id", in.SessionID),
		attribute.Int("agent.max_iterations", l.cfg.MaxIterations),
	))
	defer span.End()
	runCounter.Add(ctx, 1)

	deadline, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	r := &run{in: in, machine: protocol.NewMachine(), calls: make(map[string]int)}
	r.messages = l.initialMessages(in)

	out, err := l.iterate(deadline, r)
	out.Iterations = r.iterations
	out.Steps = r.pad.Records()

	span.SetAttributes(
		attribute.String("agent.status", string(out.Status)),
		attribute.Int("agent.iterations", out.Iterations),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		errorCounter.Add(ctx, 1)
	}
	statusAttr := metric.WithAttributes(attribute.String("status", string(out.Status)))
	iterationHist.Record(ctx, int64(out.Iterations), statusAttr)
	runLatencyMs.Record(ctx, float64(time.Since(start).Milliseconds()), statusAttr)

	l.logger.Info().
		Str("session_id", in.SessionID).
		Str("status", string(out.Status)).
		Int("iterations", out.Iterations).
		Int("tool_calls", len(out.Steps)).
		Dur("elapsed", time.Since(start)).
		Msg("reasoning loop finished")
	return out, err
}

func (l *Loop) iterate(ctx context.Context, r *run) (Outcome, error) {
	for r.iterations < l.cfg.MaxIterations {
		if ctx.Err() != nil {
			r.machine.Fail()
			return Outcome{Status: domain.LoopStatusTimeout, Output: partial(r)}, nil
		}
		r.iterations++

		out, done, err := l.step(ctx, r)
		if err != nil || done {
			return out, err
		}
	}
	r.machine.Fail()
	l.logger.Warn().Str("session_id", r.in.SessionID).Int("iterations", r.iterations).Msg("iteration cap reached")
	return Outcome{Status: domain.LoopStatusIterationCap, Output: partial(r)}, nil
}

// step runs one model turn and, for tool calls, the tool. done reports that
// the run has ended with out.
func (l *Loop) step(ctx context.Context, r *run) (out Outcome, done bool, err error) {
	ctx, span := l.tracer.Start(ctx, "Agent.Iteration", trace.WithAttributes(
		attribute.Int("agent.iteration", r.iterations),
	))
	defer span.End()

	llmStart := time.Now()
	llmCtx, llmSpan := l.tracer.Start(ctx, "Agent.LLM.Generate", trace.WithAttributes(
		attribute.Int("llm.messages", len(r.messages)),
	))
	text, err := l.model.Generate(llmCtx, r.messages)
	llmSpan.End()
	llmLatencyMs.Record(ctx, float64(time.Since(llmStart).Milliseconds()))

	if err != nil {
		r.machine.Fail()
		if ctx.Err() != nil {
			return Outcome{Status: domain.LoopStatusTimeout, Output: partial(r)}, true, nil
		}
		if r.pad.Len() > 0 {
			l.logger.Warn().Err(err).Msg("model failed mid-run, returning partial answer")
			return Outcome{Status: domain.LoopStatusFallback, Output: partial(r)}, true, nil
		}
		return Outcome{Status: domain.LoopStatusFallback}, true, fmt.Errorf("%w: %w", ErrNoEngine, err)
	}
	r.messages = append(r.messages, llm.ChatMessage{Role: "assistant", Content: text})

	parsed, err := protocol.Parse(text)
	if err != nil {
		r.parseFailures++
		span.SetAttributes(attribute.Int("agent.parse_failures", r.parseFailures))
		l.logger.Warn().Err(err).Int("consecutive", r.parseFailures).Msg("model output did not follow the protocol")
		if r.parseFailures >= maxParseFailures {
			r.machine.Fail()
			return Outcome{Status: domain.LoopStatusParseFailure, Output: partial(r)}, true, nil
		}
		r.messages = append(r.messages, llm.ChatMessage{Role: "user", Content: reprompt(err)})
		return Outcome{}, false, nil
	}
	r.parseFailures = 0

	if parsed.Kind == protocol.KindFinalAnswer {
		_ = r.machine.Transition(protocol.StateDone)
		span.SetAttributes(attribute.String("agent.decision", "final_answer"))
		return Outcome{Status: domain.LoopStatusFinal, Output: parsed.Answer}, true, nil
	}

	span.SetAttributes(attribute.String("agent.decision", "tool_call"), attribute.String("tool.name", parsed.Action))
	if err := r.machine.Transition(protocol.StateAwaitingToolResult); err != nil {
		return Outcome{Status: domain.LoopStatusParseFailure, Output: partial(r)}, true, nil
	}

	observation, clarify := l.invoke(ctx, r, parsed)
	if clarify != "" {
		r.machine.Fail()
		return Outcome{Status: domain.LoopStatusClarify, Output: clarify}, true, nil
	}
	_ = r.machine.Transition(protocol.StateReasoning)

	r.pad.Add(protocol.Record{Thought: parsed.Thought, Action: parsed.Action, Input: parsed.Input, Observation: observation})
	last, _ := r.pad.Last()
	r.messages = append(r.messages, llm.ChatMessage{Role: "user", Content: "Observation: " + last.Observation})
	return Outcome{}, false, nil
}

// invoke gates and runs one tool call. It returns the observation, or a
// clarification for the user when required arguments are missing.
func (l *Loop) invoke(ctx context.Context, r *run, s protocol.Step) (observation, clarification string) {
	raw, decoding, text := protocol.DecodeArgs(s.Input)

	var (
		args     tools.Args
		required []string
	)
	if t, ok := l.tools.Get(s.Action); ok {
		required = t.Required()
		args, _ = l.tools.Prepare(s.Action, raw, text)
	} else {
		args = tools.Args(raw)
	}
	fingerprint := callFingerprint(s.Action, args)
	seen := r.calls[fingerprint]
	r.calls[fingerprint]++

	if l.gate != nil {
		decision, err := l.gate.Evaluate(ctx, policy.Input{
			ToolName:   s.Action,
			Args:       args,
			Required:   required,
			KnownTools: l.tools.Names(),
			Repeats:    seen,
			SessionID:  r.in.SessionID,
		})
		if err != nil {
			l.logger.Error().Err(err).Str("tool", s.Action).Msg("policy evaluation failed")
			decision = policy.Decision{Decision: domain.ToolDecisionBlock, Reason: "policy unavailable"}
		}
		switch decision.Decision {
		case domain.ToolDecisionClarify:
			l.logger.Info().Str("tool", s.Action).Str("missing", decision.Reason).Msg("tool call needs clarification")
			return "", clarificationFor(s.Action, decision.Reason)
		case domain.ToolDecisionBlock:
			l.logger.Warn().Str("tool", s.Action).Str("reason", decision.Reason).Msg("tool call blocked")
			return "Policy denied: " + decision.Reason, ""
		}
	} else if _, ok := l.tools.Get(s.Action); !ok {
		return fmt.Sprintf("Tool %s not found. Use one of: %s", s.Action, strings.Join(l.tools.Names(), ", ")), ""
	}

	toolStart := time.Now()
	toolCtx, toolSpan := l.tracer.Start(ctx, "Agent.Tool.Call", trace.WithAttributes(
		attribute.String("tool.name", s.Action),
		attribute.String("tool.args_decoding", string(decoding)),
	))
	result, err := l.tools.Execute(toolCtx, s.Action, args)
	if err != nil {
		toolSpan.RecordError(err)
		toolSpan.SetStatus(codes.Error, err.Error())
	}
	toolSpan.End()
	toolLatencyMs.Record(ctx, float64(time.Since(toolStart).Milliseconds()),
		metric.WithAttributes(attribute.String("tool.name", s.Action)))

	if err != nil {
		errorCounter.Add(ctx, 1)
		l.logger.Warn().Err(err).Str("tool", s.Action).Msg("tool execution failed")
		return fmt.Sprintf("Error executing tool: %v", err), ""
	}
	l.logger.Debug().Str("tool", s.Action).Dur("elapsed", time.Since(toolStart)).Msg("tool call complete")
	return result, ""
}

func (l *Loop) initialMessages(in Input) []llm.ChatMessage {
	system := protocol.Instructions(l.tools.Describe(), l.tools.Names())
	if l.cfg.SystemPrompt != "" {
		system = l.cfg.SystemPrompt + "\n\n" + system
	}
	if c := renderContext(in.Context); c != "" {
		system += "\n\nKnown details about the user:\n" + c
	}

	msgs := make([]llm.ChatMessage, 0, len(in.History)+2)
	msgs = append(msgs, llm.ChatMessage{Role: "system", Content: system})
	for _, m := range in.History {
		msgs = append(msgs, llm.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	msgs = append(msgs, llm.ChatMessage{Role: "user", Content: "Question: " + in.Query})
	return msgs
}

func renderContext(ctx map[string]any) string {
	if len(ctx) == 0 {
		return ""
	}
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %v\n", k, ctx[k])
	}
	return strings.TrimRight(b.String(), "\n")
}

func reprompt(err error) string {
	reason := err.Error()
	var pe *protocol.ParseError
	if errors.As(err, &pe) {
		reason = pe.Reason
	}
	return fmt.Sprintf("Your last reply could not be understood (%s). Reply with either "+
		"\"Thought:\", \"Action:\" and \"Action Input:\" lines, or a \"Final Answer:\" line.", reason)
}

// partial is the best output available when a run ends early.
func partial(r *run) string {
	for i := len(r.pad.Records()) - 1; i >= 0; i-- {
		obs := r.pad.Records()[i].Observation
		if obs != "" && !strings.HasPrefix(obs, "Error") && !strings.HasPrefix(obs, "Policy denied") {
			return "Here is what I found so far:\n\n" + obs
		}
	}
	return apology
}

func clarificationFor(tool, missing string) string {
	names := strings.Split(missing, ", ")
	for i, n := range names {
		names[i] = strings.ReplaceAll(n, "_", " ")
	}
	return fmt.Sprintf("To continue with %s I need the following details: %s. Could you please provide them?",
		strings.ReplaceAll(tool, "_", " "), strings.Join(names, ", "))
}

func callFingerprint(name string, args tools.Args) string {
	b, _ := json.Marshal(args)
	return name + string(b)
}
