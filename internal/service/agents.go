package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/xiaot623/assistdesk/internal/adapter/vapi"
	"github.com/xiaot623/assistdesk/internal/catalog"
	"github.com/xiaot623/assistdesk/internal/policy"
)

// AgentView is a catalog entry with what the catalog knows about its id.
type AgentView struct {
	catalog.Agent
	Flags catalog.Flags `json:"flags"`
}

// AgentsReport lists the catalog and its validation findings.
type AgentsReport struct {
	Agents   []AgentView       `json:"agents"`
	Findings []catalog.Finding `json:"findings"`
}

// ListAgents returns every catalog entry, flagged ones included.
func (s *Service) ListAgents() AgentsReport {
	agents := s.catalog.Agents()
	report := AgentsReport{
		Agents:   make([]AgentView, 0, len(agents)),
		Findings: s.catalog.Validate(),
	}
	for _, a := range agents {
		report.Agents = append(report.Agents, AgentView{Agent: a, Flags: s.catalog.FlagsFor(a.ID)})
	}
	return report
}

// VerifyAgents checks every catalog id against the platform.
func (s *Service) VerifyAgents(ctx context.Context) ([]catalog.VerifyResult, error) {
	return s.catalog.Verify(ctx, s.platform, vapi.IsNotFound, vapi.IsConfiguration)
}

// resolvedAgent is a call or edit target.
type resolvedAgent struct {
	Name        string
	AssistantID string
}

// resolveAgent maps a catalog name or an assistant id to a target.
func (s *Service) resolveAgent(ref string) (resolvedAgent, error) {
	ref = strings.TrimSpace(ref)
	if a, ok := s.catalog.Lookup(ref); ok {
		return resolvedAgent{Name: a.Name, AssistantID: a.ID}, nil
	}
	if _, err := uuid.Parse(ref); err == nil {
		return resolvedAgent{Name: ref, AssistantID: ref}, nil
	}
	return resolvedAgent{}, ErrAgentNotFound
}

// resolveAssistantID accepts a catalog name or a raw id.
func (s *Service) resolveAssistantID(ref string) string {
	if a, ok := s.catalog.Lookup(ref); ok {
		return a.ID
	}
	return strings.TrimSpace(ref)
}

// guard evaluates the policy for an operation on an assistant.
func (s *Service) guard(ctx context.Context, action, id string) error {
	if s.policyEngine == nil {
		return nil
	}
	f := s.catalog.FlagsFor(id)
	return s.policyEngine.Check(ctx, policy.Input{
		Action:   action,
		Resource: "assistant",
		TargetID: id,
		Agent: policy.AgentFacts{
			Name:        f.Name,
			Placeholder: f.Placeholder,
			Duplicate:   f.Duplicate,
			Protected:   f.Protected,
		},
	})
}
