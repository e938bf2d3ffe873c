package domain

import "time"

// Customer is the remote party of a call.
type Customer struct {
	Number string `json:"number,omitempty"`
	Name   string `json:"name,omitempty"`
}

// Call is a call log entry kept by the platform.
type Call struct {
	ID            string     `json:"id"`
	AssistantID   string     `json:"assistantId,omitempty"`
	PhoneNumberID string     `json:"phoneNumberId,omitempty"`
	Type          string     `json:"type,omitempty"`
	Status        string     `json:"status,omitempty"`
	EndedReason   string     `json:"endedReason,omitempty"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	EndedAt       *time.Time `json:"endedAt,omitempty"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
	Cost          *float64   `json:"cost,omitempty"`
	Customer      *Customer  `json:"customer,omitempty"`
	Extra         Extra      `json:"-"`
}

type callFields Call

func (c *Call) UnmarshalJSON(data []byte) error {
	var f callFields
	extra, err := decodeWithExtra(data, &f)
	if err != nil {
		return err
	}
	*c = Call(f)
	c.Extra = extra
	return nil
}

func (c Call) MarshalJSON() ([]byte, error) {
	return encodeWithExtra(callFields(c), c.Extra)
}

// Duration is the wall time between start and end, or 0 when either is missing.
func (c Call) Duration() time.Duration {
	if c.StartedAt == nil || c.EndedAt == nil {
		return 0
	}
	return c.EndedAt.Sub(*c.StartedAt)
}

// CallStatusEnded is the platform status of a finished call.
const CallStatusEnded = "ended"

// PhoneNumber is a number provisioned on the platform.
type PhoneNumber struct {
	ID          string `json:"id"`
	Number      string `json:"number,omitempty"`
	Provider    string `json:"provider,omitempty"`
	Name        string `json:"name,omitempty"`
	AssistantID string `json:"assistantId,omitempty"`
	SquadID     string `json:"squadId,omitempty"`
	Extra       Extra  `json:"-"`
}

type phoneNumberFields PhoneNumber

func (p *PhoneNumber) UnmarshalJSON(data []byte) error {
	var f phoneNumberFields
	extra, err := decodeWithExtra(data, &f)
	if err != nil {
		return err
	}
	*p = PhoneNumber(f)
	p.Extra = extra
	return nil
}

func (p PhoneNumber) MarshalJSON() ([]byte, error) {
	return encodeWithExtra(phoneNumberFields(p), p.Extra)
}

// SquadMember is one assistant in a squad.
type SquadMember struct {
	AssistantID string `json:"assistantId,omitempty"`
}

// Squad is a group of assistants that hand calls to each other.
type Squad struct {
	ID      string        `json:"id"`
	Name    string        `json:"name,omitempty"`
	Members []SquadMember `json:"members,omitempty"`
	Extra   Extra         `json:"-"`
}

type squadFields Squad

func (s *Squad) UnmarshalJSON(data []byte) error {
	var f squadFields
	extra, err := decodeWithExtra(data, &f)
	if err != nil {
		return err
	}
	*s = Squad(f)
	s.Extra = extra
	return nil
}

func (s Squad) MarshalJSON() ([]byte, error) {
	return encodeWithExtra(squadFields(s), s.Extra)
}

// ToolFunction describes a function tool.
type ToolFunction struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// Tool is a tool an assistant can call.
type Tool struct {
	ID       string        `json:"id"`
	Type     string        `json:"type,omitempty"`
	Function *ToolFunction `json:"function,omitempty"`
	Extra    Extra         `json:"-"`
}

type toolFields Tool

func (t *Tool) UnmarshalJSON(data []byte) error {
	var f toolFields
	extra, err := decodeWithExtra(data, &f)
	if err != nil {
		return err
	}
	*t = Tool(f)
	t.Extra = extra
	return nil
}

func (t Tool) MarshalJSON() ([]byte, error) {
	return encodeWithExtra(toolFields(t), t.Extra)
}

// AssistantOverrides are per-call overrides of an assistant.
type AssistantOverrides struct {
	VariableValues map[string]string `json:"variableValues,omitempty"`
}

// CreateCallRequest is the body of POST /call.
type CreateCallRequest struct {
	AssistantID        string              `json:"assistantId"`
	AssistantOverrides *AssistantOverrides `json:"assistantOverrides,omitempty"`
	PhoneNumberID      string              `json:"phoneNumberId,omitempty"`
	Customer           *Customer           `json:"customer,omitempty"`
}
