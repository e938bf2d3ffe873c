package domain

import "time"

// CallRecordStatus is the local lifecycle status of a launched call session.
type CallRecordStatus string

const (
	CallRecordStarted CallRecordStatus = "started"
	// CallRecordCompleted marks a session stopped by the operator.
	CallRecordCompleted CallRecordStatus = "completed"
	// CallRecordEnded marks a session whose process exited on its own.
	CallRecordEnded  CallRecordStatus = "ended"
	CallRecordFailed CallRecordStatus = "failed"
)

// CallRecord is the local record of one call session.
type CallRecord struct {
	ID          string           `json:"id"`
	CreatedAt   time.Time        `json:"timestamp"`
	AgentName   string           `json:"agent_name"`
	AssistantID string           `json:"assistant_id"`
	Status      CallRecordStatus `json:"status"`
	PID         int              `json:"pid"`
	Duration    time.Duration    `json:"duration_ns"`
	ExitCode    *int             `json:"exit_code,omitempty"`
	EndedAt     *time.Time       `json:"ended_at,omitempty"`
}

// Finished reports whether the record reached a terminal status.
func (r CallRecord) Finished() bool {
	return r.Status != CallRecordStarted
}
