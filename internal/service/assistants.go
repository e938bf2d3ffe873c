package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/xiaot623/assistdesk/internal/adapter/vapi"
	"github.com/xiaot623/assistdesk/internal/diff"
	"github.com/xiaot623/assistdesk/internal/domain"
	"github.com/xiaot623/assistdesk/internal/hub"
	"github.com/xiaot623/assistdesk/internal/policy"
)

// SaveResult reports what a save sent.
type SaveResult struct {
	NoOp      bool                    `json:"no_op"`
	Payload   diff.UpdatePayload      `json:"payload"`
	Fields    []string                `json:"fields,omitempty"`
	Assistant *domain.AssistantConfig `json:"assistant,omitempty"`
}

// ListAssistants returns the assistant list, served from the cache unless
// refresh is set.
func (s *Service) ListAssistants(ctx context.Context, refresh bool) ([]domain.AssistantConfig, error) {
	if refresh {
		s.assistants.Invalidate()
	}
	return s.assistants.List(ctx, vapi.ListFilter{})
}

// GetAssistant fetches one assistant by catalog name or id.
func (s *Service) GetAssistant(ctx context.Context, ref string) (*domain.AssistantConfig, error) {
	return s.platform.GetAssistant(ctx, s.resolveAssistantID(ref))
}

// LoadAssistant fetches an assistant and makes it the session's snapshot,
// the baseline every later save is compared against.
func (s *Service) LoadAssistant(ctx context.Context, sess *Session, ref string) (*domain.AssistantConfig, error) {
	a, err := s.GetAssistant(ctx, ref)
	if err != nil {
		return nil, err
	}
	sess.setAssistant(a)
	return a, nil
}

// ensureLoaded loads id into the session unless it already holds it.
func (s *Service) ensureLoaded(ctx context.Context, sess *Session, id string) (*domain.AssistantConfig, error) {
	if a := sess.Assistant(); a != nil && a.AssistantID() == s.resolveAssistantID(id) {
		return a, nil
	}
	return s.LoadAssistant(ctx, sess, id)
}

// PreviewSave returns the payload a save would send, without sending it.
func (s *Service) PreviewSave(ctx context.Context, sess *Session, form diff.AssistantForm) (diff.UpdatePayload, error) {
	original := sess.Assistant()
	if original == nil {
		return diff.UpdatePayload{}, ErrNoAssistantLoaded
	}
	return diff.BuildUpdatePayload(*original, form), nil
}

// PreviewUpdate loads id into the session when needed and returns the payload
// form would produce.
func (s *Service) PreviewUpdate(ctx context.Context, sess *Session, id string, form diff.AssistantForm) (diff.UpdatePayload, error) {
	if _, err := s.ensureLoaded(ctx, sess, id); err != nil {
		return diff.UpdatePayload{}, err
	}
	return s.PreviewSave(ctx, sess, form)
}

// SaveAssistant diffs form against the session snapshot, sends only the
// changed fields and reloads the assistant. An unchanged form sends nothing
// and reports NoOp.
func (s *Service) SaveAssistant(ctx context.Context, sess *Session, form diff.AssistantForm) (*SaveResult, error) {
	original := sess.Assistant()
	if original == nil {
		return nil, ErrNoAssistantLoaded
	}
	id := original.AssistantID()

	payload := diff.BuildUpdatePayload(*original, form)
	if payload.IsEmpty() {
		return &SaveResult{NoOp: true, Payload: payload, Assistant: original}, nil
	}

	if err := s.guard(ctx, policy.ActionUpdate, id); err != nil {
		return nil, err
	}

	if _, err := s.platform.UpdateAssistant(ctx, id, payload); err != nil {
		return nil, err
	}
	s.assistants.Invalidate()

	reloaded, err := s.LoadAssistant(ctx, sess, id)
	if err != nil {
		return nil, err
	}

	fields := payload.Fields()
	s.log.Info("assistant updated", logrus.Fields{"assistant_id": id, "fields": fields})
	sess.publish(hub.EventAssistantUpdated, map[string]interface{}{"assistant_id": id, "fields": fields})

	return &SaveResult{Payload: payload, Fields: fields, Assistant: reloaded}, nil
}

// UpdateAssistant loads id into the session when needed and saves form.
func (s *Service) UpdateAssistant(ctx context.Context, sess *Session, id string, form diff.AssistantForm) (*SaveResult, error) {
	if _, err := s.ensureLoaded(ctx, sess, id); err != nil {
		return nil, err
	}
	return s.SaveAssistant(ctx, sess, form)
}

// CreateAssistant creates an assistant from cfg, dropping server fields.
func (s *Service) CreateAssistant(ctx context.Context, cfg domain.AssistantConfig) (*domain.AssistantConfig, error) {
	created, err := s.platform.CreateAssistant(ctx, cfg.ForCreate())
	if err != nil {
		return nil, err
	}
	s.assistants.Invalidate()
	s.log.Info("assistant created", logrus.Fields{"assistant_id": created.AssistantID()})
	return created, nil
}

// CloneAssistant copies an assistant under newName, or "<name> (Copy)".
func (s *Service) CloneAssistant(ctx context.Context, ref, newName string) (*domain.AssistantConfig, error) {
	id := s.resolveAssistantID(ref)
	if err := s.guard(ctx, policy.ActionClone, id); err != nil {
		return nil, err
	}

	source, err := s.platform.GetAssistant(ctx, id)
	if err != nil {
		return nil, err
	}

	clone := source.ForCreate()
	if newName == "" {
		newName = source.DisplayName("Assistant") + " (Copy)"
	}
	clone.Name = domain.Ptr(newName)

	created, err := s.platform.CreateAssistant(ctx, clone)
	if err != nil {
		return nil, err
	}
	s.assistants.Invalidate()
	s.log.Info("assistant cloned", logrus.Fields{"source_id": id, "assistant_id": created.AssistantID()})
	return created, nil
}

// DeleteAssistant removes an assistant. A session holding it drops its
// snapshot.
func (s *Service) DeleteAssistant(ctx context.Context, sess *Session, ref string) error {
	id := s.resolveAssistantID(ref)
	if err := s.guard(ctx, policy.ActionDelete, id); err != nil {
		return err
	}
	if err := s.platform.DeleteAssistant(ctx, id); err != nil {
		return err
	}
	s.assistants.Invalidate()
	if sess != nil {
		if a := sess.Assistant(); a != nil && a.AssistantID() == id {
			sess.setAssistant(nil)
		}
	}
	s.log.Info("assistant deleted", logrus.Fields{"assistant_id": id})
	return nil
}
