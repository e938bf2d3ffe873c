package v1

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/xiaot623/assistdesk/internal/hub"
)

const (
	streamPingInterval = 30 * time.Second
	streamReadTimeout  = 60 * time.Second
	streamWriteTimeout = 10 * time.Second
	streamReadLimit    = 4096
)

func (h *Handler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return h.origins.Allow(r.Header.Get("Origin"))
		},
	}
}

// Stream upgrades to a websocket that receives the session's events. The
// first message is a hello carrying the current call state.
// GET /v1/session/stream?session_id=
func (h *Handler) Stream(c echo.Context) error {
	if h.hub == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "streaming is not enabled"})
	}
	sess, err := h.session(c)
	if err != nil {
		return h.writeError(c, err)
	}

	ws, err := h.upgrader().Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("failed to upgrade websocket", logrus.Fields{"error": err.Error()})
		return err
	}

	conn := h.hub.NewConnection(ws, sess.ID)
	h.hub.Register(conn)
	ws.SetReadLimit(streamReadLimit)

	hello := hub.Event{
		Type:      hub.EventHello,
		Ts:        time.Now().UnixMilli(),
		SessionID: sess.ID,
		Data:      h.service.CallStatus(sess),
	}
	if err := h.hub.SendJSONToConnection(conn, hello); err != nil {
		h.log.Warn("failed to send hello", logrus.Fields{"conn_id": conn.ID, "error": err.Error()})
	}

	go h.writePump(conn)
	go h.readPump(conn)

	return nil
}

// readPump discards client messages and keeps the read deadline fresh.
func (h *Handler) readPump(conn *hub.Connection) {
	defer func() {
		h.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
		return nil
	})

	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket read failed", logrus.Fields{"conn_id": conn.ID, "error": err.Error()})
			}
			return
		}
	}
}

// writePump writes queued events and pings to the connection.
func (h *Handler) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(streamPingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.log.Warn("websocket write failed", logrus.Fields{"conn_id": conn.ID, "error": err.Error()})
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
