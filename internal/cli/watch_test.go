package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/assistdesk/internal/hub"
)

func TestWatchPrintsEvents(t *testing.T) {
	var gotSession string
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/session/stream" {
			http.NotFound(w, r)
			return
		}
		gotSession = r.URL.Query().Get("session_id")
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		ws.WriteJSON(hub.Event{Type: hub.EventHello, SessionID: "s1", Data: map[string]string{"state": "idle"}})
		ws.WriteJSON(hub.Event{Type: hub.EventCallOutput, SessionID: "s1", Data: hub.OutputData{Lines: []string{"status: queued", "status: ringing"}}})
		ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		ws.ReadMessage()
	}))
	defer srv.Close()

	ctx := context.Background()
	client, err := dialStream(ctx, srv.URL, "s1")
	require.NoError(t, err)
	defer client.Close()

	var buf bytes.Buffer
	require.NoError(t, watchEvents(ctx, client, &OutputFormatter{Format: "text", Writer: &buf}))

	assert.Equal(t, "s1", gotSession)
	assert.Equal(t, "[hello] {\"state\":\"idle\"}\n[call_output] status: queued | status: ringing\n", buf.String())
}
