package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	"github.com/xiaot623/assistdesk/internal/domain"
)

func TestWriteCallRecordsCSV(t *testing.T) {
	zero := 0
	killed := -1
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	records := []domain.CallRecord{
		{
			ID:          "r2",
			CreatedAt:   start.Add(time.Hour),
			AgentName:   "Agent, Doctor",
			AssistantID: "9d1cccc6-3193-4694-a9f7-853198ee4082",
			Status:      domain.CallRecordCompleted,
			PID:         4243,
			Duration:    95500 * time.Millisecond,
			ExitCode:    &killed,
		},
		{
			ID:          "r1",
			CreatedAt:   start,
			AgentName:   "Agent CEO",
			AssistantID: "bf161516-6d88-490c-972e-274098a6b51a",
			Status:      domain.CallRecordEnded,
			PID:         4242,
			Duration:    12 * time.Second,
			ExitCode:    &zero,
		},
		{
			ID:          "r0",
			CreatedAt:   start.Add(-time.Hour),
			AgentName:   "Agent Grant",
			AssistantID: "7673e69d-170b-4319-bdf4-e74e5370e98a",
			Status:      domain.CallRecordStarted,
			PID:         4100,
		},
	}

	var buf bytes.Buffer
	if err := WriteCallRecordsCSV(&buf, records); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "call_history", buf.Bytes())
}

func TestWriteEmptyHistoryHasHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCallRecordsCSV(&buf, nil); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	want := "id,timestamp,agent,assistant_id,status,pid,duration_seconds,exit_code\n"
	if buf.String() != want {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}
