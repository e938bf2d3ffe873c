package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/xiaot623/assistdesk/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCallRecordLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	rec := &domain.CallRecord{
		ID:          "r1",
		CreatedAt:   start,
		AgentName:   "Agent Doctor",
		AssistantID: "a1",
		Status:      domain.CallRecordStarted,
		PID:         4242,
	}
	if err := store.CreateCallRecord(ctx, rec); err != nil {
		t.Fatalf("CreateCallRecord failed: %v", err)
	}

	got, err := store.GetCallRecord(ctx, "r1")
	if err != nil {
		t.Fatalf("GetCallRecord failed: %v", err)
	}
	if got.Status != domain.CallRecordStarted || got.PID != 4242 || got.ExitCode != nil || got.EndedAt != nil {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.CreatedAt.Equal(start) {
		t.Fatalf("unexpected created_at: %v", got.CreatedAt)
	}

	end := start.Add(90 * time.Second)
	code := 0
	rec.Status = domain.CallRecordCompleted
	rec.Duration = 90 * time.Second
	rec.ExitCode = &code
	rec.EndedAt = &end
	if err := store.FinishCallRecord(ctx, rec); err != nil {
		t.Fatalf("FinishCallRecord failed: %v", err)
	}

	got, err = store.GetCallRecord(ctx, "r1")
	if err != nil {
		t.Fatalf("GetCallRecord failed: %v", err)
	}
	if got.Status != domain.CallRecordCompleted || got.Duration != 90*time.Second {
		t.Fatalf("unexpected finished record: %+v", got)
	}
	if got.ExitCode == nil || *got.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %v", got.ExitCode)
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(end) {
		t.Fatalf("unexpected ended_at: %v", got.EndedAt)
	}
}

func TestGetAndFinishMissingRecord(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if _, err := store.GetCallRecord(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.FinishCallRecord(ctx, &domain.CallRecord{ID: "nope"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListCallRecordsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"r1", "r2", "r3"} {
		rec := &domain.CallRecord{
			ID:          id,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
			AgentName:   "Agent",
			AssistantID: "a1",
			Status:      domain.CallRecordStarted,
		}
		if err := store.CreateCallRecord(ctx, rec); err != nil {
			t.Fatalf("CreateCallRecord failed: %v", err)
		}
	}

	all, err := store.ListCallRecords(ctx, 0)
	if err != nil {
		t.Fatalf("ListCallRecords failed: %v", err)
	}
	if len(all) != 3 || all[0].ID != "r3" || all[2].ID != "r1" {
		t.Fatalf("unexpected order: %+v", all)
	}

	limited, err := store.ListCallRecords(ctx, 2)
	if err != nil {
		t.Fatalf("ListCallRecords failed: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 records, got %d", len(limited))
	}
}

func TestFileStoreReopens(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "history.db")

	store, err := NewSQLiteStore(dsn)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := store.CreateCallRecord(ctx, &domain.CallRecord{ID: "r1", CreatedAt: time.Now(), AgentName: "A", AssistantID: "a1", Status: domain.CallRecordStarted}); err != nil {
		t.Fatalf("CreateCallRecord failed: %v", err)
	}
	store.Close()

	reopened, err := NewSQLiteStore(dsn)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.GetCallRecord(ctx, "r1"); err != nil {
		t.Fatalf("expected record to persist: %v", err)
	}
}

func TestSchemaHasCompletionColumns(t *testing.T) {
	store := newTestStore(t)

	rows, err := store.db.Query("PRAGMA table_info(call_records)")
	if err != nil {
		t.Fatalf("table_info failed: %v", err)
	}
	defer rows.Close()

	columns := map[string]bool{}
	for rows.Next() {
		var (
			cid, notnull, pk int
			name, ctype      string
			dflt             any
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		columns[name] = true
	}
	for _, want := range []string{"exit_code", "ended_at", "duration_ms"} {
		if !columns[want] {
			t.Fatalf("column %s missing from call_records", want)
		}
	}
}
