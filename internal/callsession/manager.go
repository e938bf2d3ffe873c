// Package callsession runs the single child process that backs a live call.
package callsession

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/assistdesk/internal/config"
	"github.com/xiaot623/assistdesk/internal/domain"
)

// State is the lifecycle state of the managed session.
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateActive   State = "active"
	StateStopping State = "stopping"
	StateEnded    State = "ended"
)

const (
	DefaultStopTimeout = 10 * time.Second
	DefaultOutputLines = 200

	// readGrace bounds how long a finished session waits for the last
	// output lines once the process has exited.
	readGrace = 200 * time.Millisecond

	// maxOutputLine is the longest child output line forwarded as a line.
	maxOutputLine = 1 << 20
)

// LaunchSpec is handed to the child as one JSON argument.
type LaunchSpec struct {
	AgentName   string            `json:"agent_name"`
	AssistantID string            `json:"assistant_id"`
	Overrides   map[string]string `json:"overrides,omitempty"`
	BaseURL     string            `json:"base_url,omitempty"`
}

// ParseLaunchSpec decodes the child's argument.
func ParseLaunchSpec(arg string) (LaunchSpec, error) {
	var spec LaunchSpec
	if err := json.Unmarshal([]byte(arg), &spec); err != nil {
		return spec, err
	}
	if strings.TrimSpace(spec.AssistantID) == "" {
		return spec, errors.New("launch spec has no assistant_id")
	}
	return spec, nil
}

// Options configures a Manager.
type Options struct {
	// Command is the program and leading arguments; the JSON spec is
	// appended as the last argument.
	Command     []string
	APIKey      string
	StopTimeout time.Duration
	OutputLines int
	Now         func() time.Time
}

// PollResult is what one Poll observed.
type PollResult struct {
	State   State              `json:"state"`
	Lines   []string           `json:"lines,omitempty"`
	Dropped int                `json:"dropped,omitempty"`
	Ended   bool               `json:"ended"`
	Record  *domain.CallRecord `json:"record,omitempty"`
}

// Status is a snapshot of the manager.
type Status struct {
	State   State              `json:"state"`
	Elapsed time.Duration      `json:"elapsed_ns"`
	Record  *domain.CallRecord `json:"record,omitempty"`
}

// Manager owns at most one call session at a time.
type Manager struct {
	opts Options

	mu      sync.Mutex
	state   State
	cmd     *exec.Cmd
	record  *domain.CallRecord
	started time.Time
	lines   chan string
	done    chan struct{}
	dropped int
}

// NewManager creates an idle manager.
func NewManager(opts Options) *Manager {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}
	if opts.OutputLines <= 0 {
		opts.OutputLines = DefaultOutputLines
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{opts: opts, state: StateIdle}
}

// Start launches the call process. It fails fast with ErrSessionActive when a
// session is running and with *ProcessLaunchError when the process cannot be
// created; in both cases the current state is unchanged.
func (m *Manager) Start(ctx context.Context, spec LaunchSpec) (domain.CallRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle {
		return domain.CallRecord{}, ErrSessionActive
	}
	if err := ctx.Err(); err != nil {
		return domain.CallRecord{}, err
	}
	if len(m.opts.Command) == 0 {
		return domain.CallRecord{}, &ProcessLaunchError{Err: errors.New("no call helper command configured")}
	}

	arg, err := json.Marshal(spec)
	if err != nil {
		return domain.CallRecord{}, &ProcessLaunchError{Command: m.opts.Command[0], Err: err}
	}

	m.state = StateStarting

	args := append(append([]string(nil), m.opts.Command[1:]...), string(arg))
	cmd := exec.Command(m.opts.Command[0], args...)
	cmd.Env = append(os.Environ(), config.EnvAPIKey+"="+m.opts.APIKey)

	r, w, err := os.Pipe()
	if err != nil {
		m.state = StateIdle
		return domain.CallRecord{}, &ProcessLaunchError{Command: m.opts.Command[0], Err: err}
	}
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		m.state = StateIdle
		return domain.CallRecord{}, &ProcessLaunchError{Command: m.opts.Command[0], Err: err}
	}
	// The child holds its own copy.
	w.Close()

	now := m.opts.Now()
	m.cmd = cmd
	m.started = now
	m.dropped = 0
	m.lines = make(chan string, m.opts.OutputLines)
	m.done = make(chan struct{})
	m.record = &domain.CallRecord{
		ID:          uuid.NewString(),
		CreatedAt:   now,
		AgentName:   spec.AgentName,
		AssistantID: spec.AssistantID,
		Status:      domain.CallRecordStarted,
		PID:         cmd.Process.Pid,
	}

	readDone := make(chan struct{})
	go m.readOutput(r, m.lines, readDone)
	go func(cmd *exec.Cmd, done chan struct{}) {
		_ = cmd.Wait()
		select {
		case <-readDone:
		case <-time.After(readGrace):
		}
		close(done)
	}(cmd, m.done)

	m.state = StateActive
	return *m.record, nil
}

// readOutput forwards child output line by line. Lines that do not fit the
// buffer are counted and dropped so the child never blocks on us.
func (m *Manager) readOutput(r *os.File, lines chan<- string, readDone chan<- struct{}) {
	defer close(readDone)
	defer r.Close()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxOutputLine)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		default:
			m.mu.Lock()
			m.dropped++
			m.mu.Unlock()
		}
	}
	// Keep the pipe open until the child closes it, even after an oversized
	// line stopped the scanner.
	_, _ = io.Copy(io.Discard, r)
}

// Poll never blocks. It drains buffered output and, when the process exited on
// its own, finishes the session with status ended.
func (m *Manager) Poll() PollResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateIdle {
		return PollResult{State: StateIdle}
	}

	res := PollResult{State: m.state, Lines: m.drainLocked(m.opts.OutputLines)}

	if m.state != StateActive {
		res.Dropped, m.dropped = m.dropped, 0
		return res
	}

	select {
	case <-m.done:
		res.Lines = append(res.Lines, m.drainLocked(m.opts.OutputLines-len(res.Lines))...)
		m.dropped += len(m.lines)
		rec := m.finishLocked(domain.CallRecordEnded)
		res.State = StateEnded
		res.Ended = true
		res.Record = &rec
	default:
	}
	res.Dropped, m.dropped = m.dropped, 0
	return res
}

// Stop terminates the running session: SIGTERM first, then a kill once the
// stop timeout or ctx expires. It always leaves the manager idle and returns
// the final record. Stop on an idle manager is a no-op returning nil.
func (m *Manager) Stop(ctx context.Context) (*domain.CallRecord, error) {
	m.mu.Lock()
	if m.state != StateActive {
		m.mu.Unlock()
		return nil, nil
	}

	select {
	case <-m.done:
		// Exited before the stop request arrived.
		rec := m.finishLocked(domain.CallRecordEnded)
		m.mu.Unlock()
		return &rec, nil
	default:
	}

	m.state = StateStopping
	cmd, done := m.cmd, m.done
	m.mu.Unlock()

	// A process that is already gone makes the signal fail; that is fine.
	_ = cmd.Process.Signal(syscall.SIGTERM)

	timer := time.NewTimer(m.opts.StopTimeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		_ = cmd.Process.Kill()
		<-done
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.drainLocked(m.opts.OutputLines)
	rec := m.finishLocked(domain.CallRecordCompleted)
	return &rec, nil
}

// Status reports the current state, elapsed time and record.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{State: m.state}
	if m.record != nil {
		rec := *m.record
		st.Record = &rec
	}
	switch m.state {
	case StateActive, StateStopping:
		st.Elapsed = m.opts.Now().Sub(m.started)
	default:
		if m.record != nil {
			st.Elapsed = m.record.Duration
		}
	}
	return st
}

// Active reports whether a session is running.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateActive || m.state == StateStopping
}

func (m *Manager) drainLocked(n int) []string {
	var out []string
	for i := 0; i < n; i++ {
		select {
		case line := <-m.lines:
			out = append(out, line)
		default:
			return out
		}
	}
	return out
}

func (m *Manager) finishLocked(status domain.CallRecordStatus) domain.CallRecord {
	now := m.opts.Now()
	rec := m.record
	rec.Status = status
	rec.Duration = now.Sub(m.started)
	rec.EndedAt = &now
	if ps := m.cmd.ProcessState; ps != nil {
		code := ps.ExitCode()
		rec.ExitCode = &code
	}

	m.state = StateIdle
	m.cmd = nil
	return *rec
}
