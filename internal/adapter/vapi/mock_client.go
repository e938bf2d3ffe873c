package vapi

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/assistdesk/internal/domain"
)

// MockClient is an in-memory Platform for demos and tests.
type MockClient struct {
	mu           sync.Mutex
	assistants   map[string]json.RawMessage
	phoneNumbers map[string]json.RawMessage
	calls        map[string]*mockCall
	squads       []domain.Squad
	tools        []domain.Tool
	now          func() time.Time
}

type mockCall struct {
	call  domain.Call
	polls int
}

// mockCallProgression is the status a mock call reports on successive gets.
var mockCallProgression = []string{"queued", "ringing", "in-progress", domain.CallStatusEnded}

// NewMockClient creates a mock platform seeded with one assistant.
func NewMockClient() *MockClient {
	m := &MockClient{
		assistants:   make(map[string]json.RawMessage),
		phoneNumbers: make(map[string]json.RawMessage),
		calls:        make(map[string]*mockCall),
		now:          time.Now,
	}
	seed := domain.AssistantConfig{
		Name:         domain.Ptr("Mock Receptionist"),
		FirstMessage: domain.Ptr("Hello, how can I help?"),
		Model: &domain.ModelConfig{
			Provider: domain.Ptr("openai"),
			Model:    domain.Ptr("gpt-4o-mini"),
			Messages: []domain.Message{{Role: domain.RoleSystem, Content: "You are a helpful receptionist."}},
		},
		Voice: &domain.VoiceConfig{Provider: domain.Ptr("11labs"), VoiceID: domain.Ptr("rachel")},
	}
	if _, err := m.CreateAssistant(context.Background(), seed); err != nil {
		panic(fmt.Sprintf("mock seed: %v", err))
	}
	m.tools = []domain.Tool{{ID: uuid.NewString(), Type: "function", Function: &domain.ToolFunction{Name: "lookup_order", Description: "[MOCK] order lookup"}}}
	return m
}

// Ensure MockClient implements Platform interface.
var _ Platform = (*MockClient)(nil)

func notFound(op string) error {
	return &Error{Kind: KindNotFound, Op: op, StatusCode: 404, Body: `{"message":"Not Found"}`}
}

// SeedAssistant stores cfg under id, replacing any existing record.
func (m *MockClient) SeedAssistant(id string, cfg domain.AssistantConfig) {
	cfg.ID = domain.Ptr(id)
	data, _ := json.Marshal(cfg)
	m.mu.Lock()
	m.assistants[id] = data
	m.mu.Unlock()
}

func (m *MockClient) ListAssistants(ctx context.Context, filter ListFilter) ([]domain.AssistantConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AssistantConfig, 0, len(m.assistants))
	for _, raw := range m.assistants {
		var a domain.AssistantConfig
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return domain.Value(out[i].CreatedAt) < domain.Value(out[j].CreatedAt) })
	return limit(out, filter.Limit), nil
}

func (m *MockClient) GetAssistant(ctx context.Context, id string) (*domain.AssistantConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.assistants[id]
	if !ok {
		return nil, notFound("get assistant")
	}
	var a domain.AssistantConfig
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (m *MockClient) CreateAssistant(ctx context.Context, payload any) (*domain.AssistantConfig, error) {
	obj, err := toObject(payload)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: "create assistant", StatusCode: 400, Body: err.Error()}
	}
	id := uuid.NewString()
	stamp := m.now().UTC().Format(time.RFC3339Nano)
	obj["id"] = id
	obj["orgId"] = "mock-org"
	obj["createdAt"] = stamp
	obj["updatedAt"] = stamp

	data, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.assistants[id] = data
	m.mu.Unlock()

	var a domain.AssistantConfig
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (m *MockClient) UpdateAssistant(ctx context.Context, id string, payload any) (*domain.AssistantConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.assistants[id]
	if !ok {
		return nil, notFound("update assistant")
	}
	merged, err := patchObject(raw, payload)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: "update assistant", StatusCode: 400, Body: err.Error()}
	}
	merged["updatedAt"] = m.now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	m.assistants[id] = data

	var a domain.AssistantConfig
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (m *MockClient) DeleteAssistant(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assistants[id]; !ok {
		return notFound("delete assistant")
	}
	delete(m.assistants, id)
	return nil
}

func (m *MockClient) ListCalls(ctx context.Context, filter ListFilter) ([]domain.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Call, 0, len(m.calls))
	for _, c := range m.calls {
		if filter.AssistantID != "" && c.call.AssistantID != filter.AssistantID {
			continue
		}
		out = append(out, c.call)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(*out[j].CreatedAt) })
	return limit(out, filter.Limit), nil
}

// GetCall advances the mock call one status per request until it ends.
func (m *MockClient) GetCall(ctx context.Context, id string) (*domain.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[id]
	if !ok {
		return nil, notFound("get call")
	}
	if c.call.Status != domain.CallStatusEnded {
		c.polls++
		if c.polls >= len(mockCallProgression) {
			c.polls = len(mockCallProgression) - 1
		}
		c.call.Status = mockCallProgression[c.polls]
		now := m.now()
		if c.call.Status == "in-progress" && c.call.StartedAt == nil {
			c.call.StartedAt = &now
		}
		if c.call.Status == domain.CallStatusEnded {
			c.call.EndedAt = &now
			c.call.EndedReason = "customer-ended-call"
		}
	}
	out := c.call
	return &out, nil
}

func (m *MockClient) CreateCall(ctx context.Context, req domain.CreateCallRequest) (*domain.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assistants[req.AssistantID]; !ok {
		return nil, &Error{Kind: KindValidation, Op: "create call", StatusCode: 400, Body: `{"message":"assistant not found"}`}
	}
	now := m.now()
	call := domain.Call{
		ID:            uuid.NewString(),
		AssistantID:   req.AssistantID,
		PhoneNumberID: req.PhoneNumberID,
		Type:          "webCall",
		Status:        mockCallProgression[0],
		CreatedAt:     &now,
		Customer:      req.Customer,
	}
	if req.Customer != nil {
		call.Type = "outboundPhoneCall"
	}
	m.calls[call.ID] = &mockCall{call: call}
	return &call, nil
}

func (m *MockClient) ListPhoneNumbers(ctx context.Context, filter ListFilter) ([]domain.PhoneNumber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.PhoneNumber, 0, len(m.phoneNumbers))
	for _, raw := range m.phoneNumbers {
		var p domain.PhoneNumber
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return limit(out, filter.Limit), nil
}

func (m *MockClient) GetPhoneNumber(ctx context.Context, id string) (*domain.PhoneNumber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.phoneNumbers[id]
	if !ok {
		return nil, notFound("get phone-number")
	}
	var p domain.PhoneNumber
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (m *MockClient) CreatePhoneNumber(ctx context.Context, payload any) (*domain.PhoneNumber, error) {
	obj, err := toObject(payload)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: "create phone-number", StatusCode: 400, Body: err.Error()}
	}
	id := uuid.NewString()
	obj["id"] = id
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.phoneNumbers[id] = data
	m.mu.Unlock()

	var p domain.PhoneNumber
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (m *MockClient) UpdatePhoneNumber(ctx context.Context, id string, payload any) (*domain.PhoneNumber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.phoneNumbers[id]
	if !ok {
		return nil, notFound("update phone-number")
	}
	merged, err := patchObject(raw, payload)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: "update phone-number", StatusCode: 400, Body: err.Error()}
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	m.phoneNumbers[id] = data

	var p domain.PhoneNumber
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (m *MockClient) DeletePhoneNumber(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.phoneNumbers[id]; !ok {
		return notFound("delete phone-number")
	}
	delete(m.phoneNumbers, id)
	return nil
}

func (m *MockClient) ListSquads(ctx context.Context, filter ListFilter) ([]domain.Squad, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return limit(append([]domain.Squad(nil), m.squads...), filter.Limit), nil
}

func (m *MockClient) ListTools(ctx context.Context, filter ListFilter) ([]domain.Tool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return limit(append([]domain.Tool(nil), m.tools...), filter.Limit), nil
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

func toObject(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	obj := map[string]any{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	return obj, nil
}

// patchObject applies payload to raw the way the platform's PATCH does:
// nested objects merge, everything else replaces.
func patchObject(raw json.RawMessage, payload any) (map[string]any, error) {
	base := map[string]any{}
	if err := json.Unmarshal(raw, &base); err != nil {
		return nil, err
	}
	patch, err := toObject(payload)
	if err != nil {
		return nil, err
	}
	mergeInto(base, patch)
	return base, nil
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		srcObj, srcIsObj := v.(map[string]any)
		dstObj, dstIsObj := dst[k].(map[string]any)
		if srcIsObj && dstIsObj {
			mergeInto(dstObj, srcObj)
			continue
		}
		dst[k] = v
	}
}
