package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingServer struct {
	steps *[]string
	err   error
}

func (s recordingServer) Shutdown(ctx context.Context) error {
	*s.steps = append(*s.steps, "server")
	return s.err
}

func TestShutdownDrainsServerBeforeClosingApp(t *testing.T) {
	var steps []string
	err := shutdown(context.Background(), recordingServer{steps: &steps}, func(context.Context) {
		steps = append(steps, "app")
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"server", "app"}, steps)
}

func TestShutdownClosesAppWhenServerFails(t *testing.T) {
	var steps []string
	err := shutdown(context.Background(), recordingServer{steps: &steps, err: errors.New("deadline")}, func(context.Context) {
		steps = append(steps, "app")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server shutdown failed")
	assert.Equal(t, []string{"server", "app"}, steps)
}

func TestServeFlags(t *testing.T) {
	cmd := NewServeCommand(&RootOptions{})
	assert.NotNil(t, cmd.Flags().Lookup("host"))
	assert.NotNil(t, cmd.Flags().Lookup("port"))
}
