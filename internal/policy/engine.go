// Package policy guards mutating and launching operations with an OPA policy.
package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"
)

// Actions checked by the guard.
const (
	ActionUpdate    = "update"
	ActionDelete    = "delete"
	ActionClone     = "clone"
	ActionStartCall = "start_call"
)

// Decisions returned by the policy.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content. The
// policy must define data.assistdesk.guard as {decision, reason}.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.assistdesk.guard"),
		rego.Module("assistdesk.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// LoadEngine uses the policy file at path, or DefaultPolicy when path is empty.
func LoadEngine(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy: %w", err)
	}
	return NewEngine(ctx, string(content))
}

// AgentFacts is what the catalog knows about the target.
type AgentFacts struct {
	Name        string
	Placeholder bool
	Duplicate   bool
	Protected   bool
}

// Input is one guarded operation.
type Input struct {
	Action   string
	Resource string
	TargetID string
	Agent    AgentFacts
}

func (in Input) toMap() map[string]interface{} {
	return map[string]interface{}{
		"action":    in.Action,
		"resource":  in.Resource,
		"target_id": in.TargetID,
		"agent": map[string]interface{}{
			"name":        in.Agent.Name,
			"placeholder": in.Agent.Placeholder,
			"duplicate":   in.Agent.Duplicate,
			"protected":   in.Agent.Protected,
		},
	}
}

// Evaluate returns the decision and reason for in.
func (e *Engine) Evaluate(ctx context.Context, in Input) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(in.toMap()))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, "default", nil
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return "", "", fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
	}
	decision, _ := obj["decision"].(string)
	reason, _ := obj["reason"].(string)
	if decision == "" {
		decision = DecisionAllow
	}
	return decision, reason, nil
}

// Check evaluates in and turns a block decision into a *BlockedError.
func (e *Engine) Check(ctx context.Context, in Input) error {
	decision, reason, err := e.Evaluate(ctx, in)
	if err != nil {
		return err
	}
	if decision == DecisionBlock {
		return &BlockedError{Action: in.Action, TargetID: in.TargetID, Reason: reason}
	}
	return nil
}

// BlockedError is returned when the policy refuses an operation.
type BlockedError struct {
	Action   string
	TargetID string
	Reason   string
}

func (e *BlockedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s on %s blocked by policy", e.Action, e.TargetID)
	}
	return fmt.Sprintf("%s on %s blocked by policy: %s", e.Action, e.TargetID, e.Reason)
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package assistdesk

default decision = "allow"

default reason = ""

decision = "block" {
	input.agent.placeholder
}

decision = "block" {
	input.action == "delete"
	input.agent.protected
}

reason = "target id is a placeholder, not a real assistant" {
	input.agent.placeholder
}

reason = "protected catalog entry cannot be deleted" {
	not input.agent.placeholder
	input.action == "delete"
	input.agent.protected
}

guard = {"decision": decision, "reason": reason}
`
