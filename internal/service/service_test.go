package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/assistdesk/internal/adapter/vapi"
	"github.com/xiaot623/assistdesk/internal/callsession"
	"github.com/xiaot623/assistdesk/internal/catalog"
	"github.com/xiaot623/assistdesk/internal/config"
	"github.com/xiaot623/assistdesk/internal/diff"
	"github.com/xiaot623/assistdesk/internal/domain"
	"github.com/xiaot623/assistdesk/internal/hub"
	"github.com/xiaot623/assistdesk/internal/metrics"
	"github.com/xiaot623/assistdesk/internal/policy"
	"github.com/xiaot623/assistdesk/internal/repository"
)

const (
	receptionistID = "6f1d3c2a-9b7e-4c1a-8d2f-0a1b2c3d4e5f"
	ceoID          = "bf161516-6d88-490c-972e-274098a6b51a"
)

type fixture struct {
	svc      *Service
	platform *vapi.MockClient
	store    *repository.SQLiteStore
	cfg      *config.Config
}

func writeHelper(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "helper.sh")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write helper: %v", err)
	}
	return "sh " + path
}

func newFixture(t *testing.T, helperScript string) *fixture {
	t.Helper()

	store, err := repository.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine, err := policy.LoadEngine(context.Background(), "")
	require.NoError(t, err)

	platform := vapi.NewMockClient()
	platform.SeedAssistant(receptionistID, domain.AssistantConfig{
		Name:         domain.Ptr("Receptionist"),
		FirstMessage: domain.Ptr("Hi"),
		Model: &domain.ModelConfig{
			Provider: domain.Ptr("openai"),
			Model:    domain.Ptr("gpt-4o"),
			Messages: []domain.Message{{Role: domain.RoleSystem, Content: "Be kind."}},
		},
	})
	platform.SeedAssistant(ceoID, domain.AssistantConfig{Name: domain.Ptr("Agent CEO")})

	cat := catalog.New([]catalog.Agent{
		{Name: "Receptionist", ID: receptionistID},
		{Name: "Agent CEO", ID: ceoID, Protected: true},
		{Name: "Invoice Agent", ID: "invoice-agent-id-placeholder"},
	})

	cfg := &config.Config{
		APIKey:           "sk-live-0123456789abcdef",
		BaseURL:          "http://127.0.0.1:1",
		CacheTTL:         time.Minute,
		CallStopTimeout:  2 * time.Second,
		CallPollInterval: 20 * time.Millisecond,
		CallOutputLines:  50,
	}
	if helperScript != "" {
		cfg.CallHelperCmd = writeHelper(t, helperScript)
	}

	svc := New(platform, cat, engine, store, nil, metrics.New(), cfg, nil)
	return &fixture{svc: svc, platform: platform, store: store, cfg: cfg}
}

type eventLog struct {
	mu     sync.Mutex
	events []hub.Event
}

func (l *eventLog) add(ev hub.Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) types() []hub.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]hub.EventType, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.Type)
	}
	return out
}

func (l *eventLog) output() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var lines []string
	for _, ev := range l.events {
		if data, ok := ev.Data.(hub.OutputData); ok {
			lines = append(lines, data.Lines...)
		}
	}
	return lines
}

func waitDone(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	require.NotNil(t, ch)
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("call monitor did not finish")
	}
}

func TestSaveAssistantUnchangedFormIsNoOp(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	sess := f.svc.NewSession()

	loaded, err := f.svc.LoadAssistant(ctx, sess, "Receptionist")
	require.NoError(t, err)

	res, err := f.svc.SaveAssistant(ctx, sess, diff.FormFromConfig(*loaded))
	require.NoError(t, err)
	assert.True(t, res.NoOp)
	assert.True(t, res.Payload.IsEmpty())
}

func TestSaveAssistantSendsChangesAndReloads(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	sess := f.svc.NewSession()
	events := &eventLog{}
	sess.SetListener(events.add)

	loaded, err := f.svc.LoadAssistant(ctx, sess, receptionistID)
	require.NoError(t, err)

	form := diff.FormFromConfig(*loaded)
	form.Name = domain.Ptr("Front Desk")
	form.SystemPrompt = domain.Ptr("Be brief.")

	res, err := f.svc.SaveAssistant(ctx, sess, form)
	require.NoError(t, err)
	assert.False(t, res.NoOp)
	assert.Equal(t, "Front Desk", domain.Value(res.Assistant.Name))
	assert.Equal(t, "Be brief.", diff.SystemPrompt(*res.Assistant))
	// Untouched fields survive the partial update.
	assert.Equal(t, "Hi", domain.Value(res.Assistant.FirstMessage))

	// The snapshot is the reloaded assistant, so saving again is a no-op.
	again, err := f.svc.SaveAssistant(ctx, sess, form)
	require.NoError(t, err)
	assert.True(t, again.NoOp)

	assert.Equal(t, []hub.EventType{hub.EventAssistantUpdated}, events.types())
}

func TestSaveAssistantWithoutLoad(t *testing.T) {
	f := newFixture(t, "")
	_, err := f.svc.SaveAssistant(context.Background(), f.svc.NewSession(), diff.AssistantForm{Name: domain.Ptr("x")})
	assert.ErrorIs(t, err, ErrNoAssistantLoaded)
}

func TestUpdateAssistantLoadsTarget(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	sess := f.svc.NewSession()

	res, err := f.svc.UpdateAssistant(ctx, sess, receptionistID, diff.AssistantForm{FirstMessage: domain.Ptr("Welcome")})
	require.NoError(t, err)
	assert.Equal(t, "Welcome", domain.Value(res.Assistant.FirstMessage))
	assert.Equal(t, []string{"firstMessage"}, res.Fields)
}

func TestCloneAssistantDefaultName(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	clone, err := f.svc.CloneAssistant(ctx, "Receptionist", "")
	require.NoError(t, err)
	assert.Equal(t, "Receptionist (Copy)", domain.Value(clone.Name))
	assert.NotEqual(t, receptionistID, clone.AssistantID())
	assert.Equal(t, "Be kind.", diff.SystemPrompt(*clone))

	named, err := f.svc.CloneAssistant(ctx, receptionistID, "Night Desk")
	require.NoError(t, err)
	assert.Equal(t, "Night Desk", domain.Value(named.Name))
}

func TestListAssistantsCachesUntilMutation(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	before, err := f.svc.ListAssistants(ctx, false)
	require.NoError(t, err)

	_, err = f.svc.CreateAssistant(ctx, domain.AssistantConfig{Name: domain.Ptr("New One")})
	require.NoError(t, err)

	after, err := f.svc.ListAssistants(ctx, false)
	require.NoError(t, err)
	assert.Len(t, after, len(before)+1)
}

func TestDeleteProtectedAgentIsBlocked(t *testing.T) {
	f := newFixture(t, "")
	err := f.svc.DeleteAssistant(context.Background(), nil, "Agent CEO")

	var blocked *policy.BlockedError
	require.True(t, errors.As(err, &blocked), "got %v", err)
	assert.Equal(t, policy.ActionDelete, blocked.Action)

	_, err = f.platform.GetAssistant(context.Background(), ceoID)
	assert.NoError(t, err)
}

func TestDeleteAssistantClearsSnapshot(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	sess := f.svc.NewSession()

	_, err := f.svc.LoadAssistant(ctx, sess, receptionistID)
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteAssistant(ctx, sess, receptionistID))
	assert.Nil(t, sess.Assistant())

	_, err = f.svc.GetAssistant(ctx, receptionistID)
	assert.True(t, vapi.IsNotFound(err))
}

func TestListAgentsFlagsEntries(t *testing.T) {
	f := newFixture(t, "")
	report := f.svc.ListAgents()
	require.Len(t, report.Agents, 3)

	byName := map[string]AgentView{}
	for _, a := range report.Agents {
		byName[a.Name] = a
	}
	assert.True(t, byName["Agent CEO"].Flags.Protected)
	assert.True(t, byName["Invoice Agent"].Flags.Placeholder)
	assert.False(t, byName["Receptionist"].Flags.Placeholder)
	assert.NotEmpty(t, report.Findings)
}

func TestVerifyAgentsReportsMissing(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, f.platform.DeleteAssistant(context.Background(), ceoID))

	results, err := f.svc.VerifyAgents(context.Background())
	require.NoError(t, err)

	status := map[string]string{}
	for _, r := range results {
		status[r.ID] = string(r.Status)
	}
	assert.Equal(t, "ok", status[receptionistID])
	assert.Equal(t, "missing", status[ceoID])
}

func TestStartCallUnknownAgent(t *testing.T) {
	f := newFixture(t, "echo hi\n")
	_, err := f.svc.StartCall(context.Background(), f.svc.NewSession(), "Nobody", nil)
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestStartCallPlaceholderIsBlocked(t *testing.T) {
	f := newFixture(t, "echo hi\n")
	_, err := f.svc.StartCall(context.Background(), f.svc.NewSession(), "Invoice Agent", nil)

	var blocked *policy.BlockedError
	assert.True(t, errors.As(err, &blocked), "got %v", err)
}

func TestStartCallRequiresCredential(t *testing.T) {
	f := newFixture(t, "echo hi\n")
	f.cfg.APIKey = "your-api-key"

	sess := f.svc.NewSession()
	_, err := f.svc.StartCall(context.Background(), sess, "Receptionist", nil)

	var cfgErr *config.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, callsession.StateIdle, f.svc.CallStatus(sess).State)
}

func TestCallEndsOnItsOwn(t *testing.T) {
	f := newFixture(t, "echo 'status: queued'\necho 'status: ended'\n")
	ctx := context.Background()
	sess := f.svc.NewSession()
	events := &eventLog{}
	sess.SetListener(events.add)

	rec, err := f.svc.StartCall(ctx, sess, "Receptionist", map[string]string{"customer.number": "+15550100"})
	require.NoError(t, err)
	assert.Equal(t, "Receptionist", rec.AgentName)
	assert.Equal(t, receptionistID, rec.AssistantID)

	waitDone(t, sess.CallDone())

	assert.Equal(t, []string{"status: queued", "status: ended"}, events.output())
	types := events.types()
	assert.Equal(t, hub.EventCallStarted, types[0])
	assert.Equal(t, hub.EventCallEnded, types[len(types)-1])

	history, err := f.svc.CallHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.CallRecordEnded, history[0].Status)
	require.NotNil(t, history[0].ExitCode)
	assert.Equal(t, 0, *history[0].ExitCode)

	assert.Equal(t, callsession.StateIdle, f.svc.CallStatus(sess).State)

	// Stopping after the call ended is a no-op.
	stopped, err := f.svc.StopCall(ctx, sess)
	require.NoError(t, err)
	assert.Nil(t, stopped)
}

func TestStopCallCompletes(t *testing.T) {
	f := newFixture(t, "trap 'echo \"status: terminated\"; exit 0' TERM\necho 'status: in-progress'\nwhile true; do sleep 0.05; done\n")
	ctx := context.Background()
	sess := f.svc.NewSession()
	events := &eventLog{}
	sess.SetListener(events.add)

	_, err := f.svc.StartCall(ctx, sess, receptionistID, nil)
	require.NoError(t, err)

	_, err = f.svc.StartCall(ctx, sess, receptionistID, nil)
	assert.ErrorIs(t, err, callsession.ErrSessionActive)

	rec, err := f.svc.StopCall(ctx, sess)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, domain.CallRecordCompleted, rec.Status)

	types := events.types()
	assert.Equal(t, hub.EventCallStopped, types[len(types)-1])

	stored, err := f.store.GetCallRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CallRecordCompleted, stored.Status)
	assert.Nil(t, sess.CallDone())
}

func TestStopRacingStartLeavesNoOpenRecord(t *testing.T) {
	f := newFixture(t, "trap 'exit 0' TERM\nwhile true; do sleep 0.05; done\n")
	ctx := context.Background()
	sess := f.svc.NewSession()

	for i := 0; i < 10; i++ {
		started := make(chan error, 1)
		go func() {
			_, err := f.svc.StartCall(ctx, sess, receptionistID, nil)
			started <- err
		}()
		_, err := f.svc.StopCall(ctx, sess)
		require.NoError(t, err)
		require.NoError(t, <-started)

		// The start may have won the race; stop whatever is running.
		_, err = f.svc.StopCall(ctx, sess)
		require.NoError(t, err)
	}

	history, err := f.svc.CallHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 10)
	for _, rec := range history {
		assert.Equal(t, domain.CallRecordCompleted, rec.Status, "record %s", rec.ID)
	}
}

func TestLaunchFailureIsRecorded(t *testing.T) {
	f := newFixture(t, "")
	f.cfg.CallHelperCmd = "/nonexistent/assistdesk-helper"
	sess := f.svc.NewSession()

	_, err := f.svc.StartCall(context.Background(), sess, "Receptionist", nil)
	var launchErr *callsession.ProcessLaunchError
	require.True(t, errors.As(err, &launchErr), "got %v", err)

	history, err := f.svc.CallHistory(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.CallRecordFailed, history[0].Status)
}

func TestExportCallHistory(t *testing.T) {
	f := newFixture(t, "echo done\n")
	ctx := context.Background()
	sess := f.svc.NewSession()

	_, err := f.svc.StartCall(ctx, sess, "Receptionist", nil)
	require.NoError(t, err)
	waitDone(t, sess.CallDone())

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportCallHistory(ctx, &buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id,timestamp,agent"))
	assert.Contains(t, lines[1], ",Receptionist,"+receptionistID+",ended,")
}

func TestSessionCloseStopsCall(t *testing.T) {
	f := newFixture(t, "while true; do sleep 0.05; done\n")
	ctx := context.Background()
	sess := f.svc.NewSession()

	_, err := f.svc.StartCall(ctx, sess, "Receptionist", nil)
	require.NoError(t, err)

	require.NoError(t, sess.Close(ctx))
	_, err = f.svc.Session(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	history, err := f.svc.CallHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.CallRecordCompleted, history[0].Status)
}
