package vapi

import (
	"context"

	"github.com/xiaot623/assistdesk/internal/domain"
)

// Platform defines the remote assistant platform operations.
type Platform interface {
	ListAssistants(ctx context.Context, filter ListFilter) ([]domain.AssistantConfig, error)
	GetAssistant(ctx context.Context, id string) (*domain.AssistantConfig, error)
	CreateAssistant(ctx context.Context, payload any) (*domain.AssistantConfig, error)
	// UpdateAssistant sends a partial update; only the fields present in
	// payload change on the server.
	UpdateAssistant(ctx context.Context, id string, payload any) (*domain.AssistantConfig, error)
	DeleteAssistant(ctx context.Context, id string) error

	ListCalls(ctx context.Context, filter ListFilter) ([]domain.Call, error)
	GetCall(ctx context.Context, id string) (*domain.Call, error)
	CreateCall(ctx context.Context, req domain.CreateCallRequest) (*domain.Call, error)

	ListPhoneNumbers(ctx context.Context, filter ListFilter) ([]domain.PhoneNumber, error)
	GetPhoneNumber(ctx context.Context, id string) (*domain.PhoneNumber, error)
	CreatePhoneNumber(ctx context.Context, payload any) (*domain.PhoneNumber, error)
	UpdatePhoneNumber(ctx context.Context, id string, payload any) (*domain.PhoneNumber, error)
	DeletePhoneNumber(ctx context.Context, id string) error

	ListSquads(ctx context.Context, filter ListFilter) ([]domain.Squad, error)
	ListTools(ctx context.Context, filter ListFilter) ([]domain.Tool, error)
}

// Ensure Client implements Platform interface.
var _ Platform = (*Client)(nil)
