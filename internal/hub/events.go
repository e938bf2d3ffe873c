package hub

// EventType names a dashboard event.
type EventType string

const (
	EventCallStarted      EventType = "call_started"
	EventCallOutput       EventType = "call_output"
	EventCallEnded        EventType = "call_ended"
	EventCallStopped      EventType = "call_stopped"
	EventAssistantUpdated EventType = "assistant_updated"
	EventHello            EventType = "hello"
)

// Event is the envelope written to websocket clients.
type Event struct {
	Type      EventType   `json:"type"`
	Ts        int64       `json:"ts"`
	SessionID string      `json:"session_id"`
	Data      interface{} `json:"data,omitempty"`
}

// OutputData carries child process output lines.
type OutputData struct {
	Lines   []string `json:"lines"`
	Dropped int      `json:"dropped,omitempty"`
}
