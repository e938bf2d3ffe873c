package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/xiaot623/assistdesk/internal/callsession"
	"github.com/xiaot623/assistdesk/internal/domain"
	"github.com/xiaot623/assistdesk/internal/export"
	"github.com/xiaot623/assistdesk/internal/hub"
	"github.com/xiaot623/assistdesk/internal/policy"
)

const (
	defaultPollInterval = time.Second
	persistTimeout      = 5 * time.Second
)

// StartCall launches the call process for agentRef, a catalog name or an
// assistant id, and starts monitoring it. Overrides reach the platform as
// variable values.
func (s *Service) StartCall(ctx context.Context, sess *Session, agentRef string, overrides map[string]string) (domain.CallRecord, error) {
	agent, err := s.resolveAgent(agentRef)
	if err != nil {
		return domain.CallRecord{}, err
	}
	if err := s.guard(ctx, policy.ActionStartCall, agent.AssistantID); err != nil {
		return domain.CallRecord{}, err
	}
	if err := s.config.ValidateCredentials(); err != nil {
		return domain.CallRecord{}, err
	}

	sess.lifecycle.Lock()
	defer sess.lifecycle.Unlock()

	rec, err := sess.calls.Start(ctx, callsession.LaunchSpec{
		AgentName:   agent.Name,
		AssistantID: agent.AssistantID,
		Overrides:   overrides,
		BaseURL:     s.config.BaseURL,
	})
	if err != nil {
		var launchErr *callsession.ProcessLaunchError
		if errors.As(err, &launchErr) {
			s.recordLaunchFailure(ctx, agent)
		}
		return domain.CallRecord{}, err
	}

	if s.store != nil {
		if err := s.store.CreateCallRecord(ctx, &rec); err != nil {
			s.log.Warn("failed to persist call record", logrus.Fields{"call_record_id": rec.ID, "error": err.Error()})
		}
	}
	if s.metrics != nil {
		s.metrics.CallStarted()
	}
	s.log.Info("call session started", logrus.Fields{
		"session_id":   sess.ID,
		"agent":        rec.AgentName,
		"assistant_id": rec.AssistantID,
		"pid":          rec.PID,
	})
	sess.publish(hub.EventCallStarted, rec)

	monitorCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	sess.mu.Lock()
	sess.monitorCancel = cancel
	sess.monitorDone = done
	sess.mu.Unlock()
	go func() {
		defer close(done)
		sess.monitorCall(monitorCtx)
	}()

	return rec, nil
}

// recordLaunchFailure keeps a failed attempt in the history.
func (s *Service) recordLaunchFailure(ctx context.Context, agent resolvedAgent) {
	if s.metrics != nil {
		s.metrics.CallFinished(string(domain.CallRecordFailed))
	}
	if s.store == nil {
		return
	}
	now := time.Now()
	rec := domain.CallRecord{
		ID:          uuid.NewString(),
		CreatedAt:   now,
		AgentName:   agent.Name,
		AssistantID: agent.AssistantID,
		Status:      domain.CallRecordFailed,
		EndedAt:     &now,
	}
	if err := s.store.CreateCallRecord(ctx, &rec); err != nil {
		s.log.Warn("failed to persist failed call record", logrus.Fields{"error": err.Error()})
	}
}

// StopCall stops the session's call. It returns nil, nil when no call runs.
func (s *Service) StopCall(ctx context.Context, sess *Session) (*domain.CallRecord, error) {
	sess.lifecycle.Lock()
	defer sess.lifecycle.Unlock()

	sess.mu.Lock()
	cancel, done := sess.monitorCancel, sess.monitorDone
	sess.monitorCancel, sess.monitorDone = nil, nil
	sess.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	rec, err := sess.calls.Stop(ctx)
	if err != nil || rec == nil {
		return rec, err
	}

	s.finishRecord(rec)
	s.log.Info("call session stopped", logrus.Fields{"session_id": sess.ID, "call_record_id": rec.ID, "status": string(rec.Status)})
	sess.publish(hub.EventCallStopped, rec)
	return rec, nil
}

// CallStatus reports the session's call state.
func (s *Service) CallStatus(sess *Session) callsession.Status {
	return sess.calls.Status()
}

// CallHistory returns the newest call records first.
func (s *Service) CallHistory(ctx context.Context, limit int) ([]domain.CallRecord, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListCallRecords(ctx, limit)
}

// ExportCallHistory writes the whole history as CSV.
func (s *Service) ExportCallHistory(ctx context.Context, w io.Writer) error {
	records, err := s.CallHistory(ctx, 0)
	if err != nil {
		return err
	}
	return export.WriteCallRecordsCSV(w, records)
}

// finishRecord persists the end of a session.
func (s *Service) finishRecord(rec *domain.CallRecord) {
	if s.metrics != nil {
		s.metrics.CallFinished(string(rec.Status))
	}
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.store.FinishCallRecord(ctx, rec); err != nil {
		s.log.Warn("failed to finish call record", logrus.Fields{"call_record_id": rec.ID, "error": err.Error()})
	}
}

// monitorCall forwards call output to the session's subscribers until the
// process exits on its own or ctx is cancelled.
func (sess *Session) monitorCall(ctx context.Context) {
	interval := sess.svc.config.CallPollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if sess.sweepCall() {
				return
			}
		}
	}
}

// sweepCall runs one poll and reports whether the call ended.
func (sess *Session) sweepCall() bool {
	res := sess.calls.Poll()
	if len(res.Lines) > 0 || res.Dropped > 0 {
		sess.publish(hub.EventCallOutput, hub.OutputData{Lines: res.Lines, Dropped: res.Dropped})
	}
	if res.State == callsession.StateIdle {
		return true
	}
	if !res.Ended || res.Record == nil {
		return false
	}

	sess.svc.finishRecord(res.Record)
	sess.svc.log.Info("call session ended", logrus.Fields{
		"session_id":     sess.ID,
		"call_record_id": res.Record.ID,
		"exit_code":      domain.Value(res.Record.ExitCode),
	})
	sess.publish(hub.EventCallEnded, res.Record)
	return true
}
