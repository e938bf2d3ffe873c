package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/xiaot623/assistdesk/internal/logger"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestPublishReachesSessionOnly(t *testing.T) {
	h := startHub(t)

	a := h.NewConnection(nil, "s1")
	b := h.NewConnection(nil, "s2")
	h.Register(a)
	h.Register(b)
	waitFor(t, func() bool { return h.GetConnectionCount() == 2 })

	if err := h.Publish("s1", EventCallStarted, map[string]string{"agent": "Agent CEO"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case data := <-a.Send:
		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			t.Fatalf("bad event: %v", err)
		}
		if evt.Type != EventCallStarted || evt.SessionID != "s1" {
			t.Fatalf("unexpected event: %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected event on s1 connection")
	}

	select {
	case data := <-b.Send:
		t.Fatalf("unexpected event on s2: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	h := startHub(t)
	conn := h.NewConnection(nil, "s1")
	h.Register(conn)
	waitFor(t, func() bool { return h.HasActiveConnections("s1") })

	h.Unregister(conn)
	waitFor(t, func() bool { return !h.HasActiveConnections("s1") })

	if _, ok := <-conn.Send; ok {
		t.Fatalf("expected send channel to be closed")
	}
}

func TestFullBufferDropsConnection(t *testing.T) {
	h := startHub(t)
	conn := h.NewConnection(nil, "s1")
	h.Register(conn)
	waitFor(t, func() bool { return h.GetConnectionCount() == 1 })

	for i := 0; i < sendBuffer+1; i++ {
		h.Broadcast("s1", []byte(`{}`))
	}
	waitFor(t, func() bool { return h.GetConnectionCount() == 0 })
}

func TestStoppedHubDoesNotBlock(t *testing.T) {
	h := NewHub(logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	done := make(chan struct{})
	go func() {
		h.Broadcast("s1", []byte(`{}`))
		h.Register(h.NewConnection(nil, "s1"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("calls on a stopped hub blocked")
	}
}
