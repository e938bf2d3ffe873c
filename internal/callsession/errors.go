package callsession

import (
	"errors"
	"fmt"
)

// ErrSessionActive rejects a start while another session is running.
var ErrSessionActive = errors.New("a call session is already active")

// ProcessLaunchError reports a child process that could not be created.
type ProcessLaunchError struct {
	Command string
	Err     error
}

func (e *ProcessLaunchError) Error() string {
	return fmt.Sprintf("failed to launch call process %q: %v", e.Command, e.Err)
}

func (e *ProcessLaunchError) Unwrap() error {
	return e.Err
}
