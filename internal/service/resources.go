package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/xiaot623/assistdesk/internal/adapter/vapi"
	"github.com/xiaot623/assistdesk/internal/domain"
)

// ListCalls returns platform call logs matching filter.
func (s *Service) ListCalls(ctx context.Context, filter vapi.ListFilter) ([]domain.Call, error) {
	if filter.AssistantID != "" {
		filter.AssistantID = s.resolveAssistantID(filter.AssistantID)
	}
	return s.platform.ListCalls(ctx, filter)
}

// GetCall fetches one call log.
func (s *Service) GetCall(ctx context.Context, id string) (*domain.Call, error) {
	return s.platform.GetCall(ctx, id)
}

func (s *Service) ListPhoneNumbers(ctx context.Context, limit int) ([]domain.PhoneNumber, error) {
	return s.platform.ListPhoneNumbers(ctx, vapi.ListFilter{Limit: limit})
}

func (s *Service) GetPhoneNumber(ctx context.Context, id string) (*domain.PhoneNumber, error) {
	return s.platform.GetPhoneNumber(ctx, id)
}

// CreatePhoneNumber provisions a number; payload is sent as is.
func (s *Service) CreatePhoneNumber(ctx context.Context, payload map[string]interface{}) (*domain.PhoneNumber, error) {
	p, err := s.platform.CreatePhoneNumber(ctx, payload)
	if err != nil {
		return nil, err
	}
	s.log.Info("phone number created", logrus.Fields{"phone_number_id": p.ID})
	return p, nil
}

// UpdatePhoneNumber sends a partial update. An assistantId given as a
// catalog name is resolved to its id.
func (s *Service) UpdatePhoneNumber(ctx context.Context, id string, payload map[string]interface{}) (*domain.PhoneNumber, error) {
	if ref, ok := payload["assistantId"].(string); ok && ref != "" {
		payload["assistantId"] = s.resolveAssistantID(ref)
	}
	p, err := s.platform.UpdatePhoneNumber(ctx, id, payload)
	if err != nil {
		return nil, err
	}
	s.log.Info("phone number updated", logrus.Fields{"phone_number_id": id})
	return p, nil
}

func (s *Service) DeletePhoneNumber(ctx context.Context, id string) error {
	if err := s.platform.DeletePhoneNumber(ctx, id); err != nil {
		return err
	}
	s.log.Info("phone number deleted", logrus.Fields{"phone_number_id": id})
	return nil
}

func (s *Service) ListSquads(ctx context.Context) ([]domain.Squad, error) {
	return s.platform.ListSquads(ctx, vapi.ListFilter{})
}

func (s *Service) ListTools(ctx context.Context) ([]domain.Tool, error) {
	return s.platform.ListTools(ctx, vapi.ListFilter{})
}
