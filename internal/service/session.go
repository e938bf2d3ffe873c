package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/xiaot623/assistdesk/internal/callsession"
	"github.com/xiaot623/assistdesk/internal/domain"
	"github.com/xiaot623/assistdesk/internal/hub"
)

// Session is one dashboard session: the loaded assistant snapshot, the call
// manager and the monitor of the running call. Handlers receive it explicitly.
type Session struct {
	ID        string
	CreatedAt time.Time

	svc   *Service
	calls *callsession.Manager

	// lifecycle serializes StartCall and StopCall so a stop never sees a
	// launched call whose record and monitor are not in place yet.
	lifecycle sync.Mutex

	mu            sync.Mutex
	assistant     *domain.AssistantConfig
	monitorCancel context.CancelFunc
	monitorDone   chan struct{}
	listener      func(hub.Event)
}

// NewSession creates and registers a session.
func (s *Service) NewSession() *Session {
	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		svc:       s,
		calls: callsession.NewManager(callsession.Options{
			Command:     s.helperCommand(),
			APIKey:      s.config.APIKey,
			StopTimeout: s.config.CallStopTimeout,
			OutputLines: s.config.CallOutputLines,
		}),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.log.Debug("session created", logrus.Fields{"session_id": sess.ID})
	return sess
}

// Session looks up a registered session.
func (s *Service) Session(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// CloseAll closes every registered session.
func (s *Service) CloseAll(ctx context.Context) {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		if err := sess.Close(ctx); err != nil {
			s.log.Warn("failed to close session", logrus.Fields{"session_id": sess.ID, "error": err.Error()})
		}
	}
}

// Close stops any running call and unregisters the session.
func (sess *Session) Close(ctx context.Context) error {
	_, err := sess.svc.StopCall(ctx, sess)

	sess.svc.mu.Lock()
	delete(sess.svc.sessions, sess.ID)
	sess.svc.mu.Unlock()

	sess.svc.log.Debug("session closed", logrus.Fields{"session_id": sess.ID})
	return err
}

// SetListener registers fn to receive every event of this session, in
// addition to the websocket hub.
func (sess *Session) SetListener(fn func(hub.Event)) {
	sess.mu.Lock()
	sess.listener = fn
	sess.mu.Unlock()
}

// Assistant returns the loaded assistant snapshot, if any.
func (sess *Session) Assistant() *domain.AssistantConfig {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.assistant == nil {
		return nil
	}
	a := sess.assistant.Clone()
	return &a
}

func (sess *Session) setAssistant(a *domain.AssistantConfig) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if a == nil {
		sess.assistant = nil
		return
	}
	c := a.Clone()
	sess.assistant = &c
}

// CallDone returns a channel closed when the current call's monitor exits,
// or nil when no call is being monitored.
func (sess *Session) CallDone() <-chan struct{} {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.monitorDone == nil {
		return nil
	}
	return sess.monitorDone
}

// publish sends an event to the hub and the session listener.
func (sess *Session) publish(eventType hub.EventType, data interface{}) {
	if sess.svc.hub != nil {
		if err := sess.svc.hub.Publish(sess.ID, eventType, data); err != nil {
			sess.svc.log.Warn("failed to publish event", logrus.Fields{"type": string(eventType), "error": err.Error()})
		}
	}

	sess.mu.Lock()
	listener := sess.listener
	sess.mu.Unlock()
	if listener != nil {
		listener(hub.Event{Type: eventType, Ts: time.Now().UnixMilli(), SessionID: sess.ID, Data: data})
	}
}
