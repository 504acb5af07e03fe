// Package policy evaluates the agent access policy with OPA.
package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/apperrors"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// Input is the document the policy is evaluated against.
type Input struct {
	Operation       string `json:"operation"`
	AgentName       string `json:"agent_name"`
	DefaultAgent    string `json:"default_agent"`
	CanvasAgent     string `json:"canvas_agent"`
	TemplateAgent   string `json:"template_agent"`
	PromptLength    int    `json:"prompt_length"`
	MaxPromptLength int    `json:"max_prompt_length"`
}

// Decision is the outcome of an evaluation.
type Decision struct {
	Allow  bool
	Reason string
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.agent_policy.decision"),
		rego.Module("agent_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// NewEngineFromFile creates an engine from a policy file, or from
// DefaultPolicy when path is empty.
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

// Evaluate runs the policy. A policy that yields no decision denies.
func (e *Engine) Evaluate(ctx context.Context, input Input) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Allow: false, Reason: "no policy decision"}, nil
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{Allow: false, Reason: "unexpected policy result"}, nil
	}
	allow, _ := obj["allow"].(bool)
	reason, _ := obj["reason"].(string)
	return Decision{Allow: allow, Reason: reason}, nil
}

// Check evaluates the policy and turns a denial into a PolicyError.
func (e *Engine) Check(ctx context.Context, input Input) error {
	decision, err := e.Evaluate(ctx, input)
	if err != nil {
		return err
	}
	if !decision.Allow {
		return &apperrors.PolicyError{Operation: input.Operation, AgentName: input.AgentName, Reason: decision.Reason}
	}
	return nil
}

// DefaultPolicy is the default policy content. Calls may target the default
// agent, the canvas agent or a numbered clone of the template agent; only the
// template itself may be remixed; prompts above the limit are rejected.
const DefaultPolicy = `
package agent_policy

default decision = {"allow": false, "reason": "agent is not allowed"}

decision = {"allow": true, "reason": ""} {
	allowed_target
	not prompt_too_long
}

decision = {"allow": false, "reason": "prompt exceeds the maximum length"} {
	prompt_too_long
}

prompt_too_long {
	input.max_prompt_length > 0
	input.prompt_length > input.max_prompt_length
}

allowed_target {
	input.operation == "remix"
	input.template_agent != ""
	input.agent_name == input.template_agent
}

allowed_target {
	input.operation != "remix"
	allowed_agent
}

allowed_agent {
	input.agent_name != ""
	input.agent_name == input.default_agent
}

allowed_agent {
	input.agent_name != ""
	input.agent_name == input.canvas_agent
}

allowed_agent {
	input.template_agent != ""
	prefix := concat("", [input.template_agent, "-"])
	startswith(input.agent_name, prefix)
	regex.match("^[1-9][0-9]*$", trim_prefix(input.agent_name, prefix))
}
`
