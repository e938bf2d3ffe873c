package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/xiaot623/assistdesk/internal/hub"
)

// streamClient reads dashboard events from a running server.
type streamClient struct {
	conn *websocket.Conn
}

// dialStream connects to the session stream of the server at baseURL.
func dialStream(ctx context.Context, baseURL, sessionID string) (*streamClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server address: %w", err)
	}
	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/v1/session/stream"
	if sessionID != "" {
		q := u.Query()
		q.Set("session_id", sessionID)
		u.RawQuery = q.Encode()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &streamClient{conn: conn}, nil
}

// Next blocks for the next event.
func (c *streamClient) Next() (hub.Event, error) {
	var ev hub.Event
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return ev, err
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, fmt.Errorf("unmarshal event: %w", err)
	}
	return ev, nil
}

func (c *streamClient) Close() error {
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		addr      string
		sessionID string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a dashboard session's events from a running server",
		Args:  commandArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := dialStream(ctx, addr, sessionID)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to connect", err)
			}
			defer client.Close()

			go func() {
				<-ctx.Done()
				client.conn.Close()
			}()

			return watchEvents(ctx, client, newFormatter(rootOpts, cmd))
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "http://localhost:8080", "server address")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id (default: the server's default session)")

	return cmd
}

// watchEvents prints events until the server closes the stream or ctx ends.
func watchEvents(ctx context.Context, client *streamClient, out *OutputFormatter) error {
	enc := json.NewEncoder(out.Writer)
	for {
		ev, err := client.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || err == io.EOF {
				return nil
			}
			return WrapExitError(ExitFailure, "stream closed", err)
		}

		if out.Format == "json" {
			if err := enc.Encode(ev); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(out.Writer, "[%s] %s\n", ev.Type, eventSummary(ev))
	}
}

// eventSummary renders an event's data on one line.
func eventSummary(ev hub.Event) string {
	raw, err := json.Marshal(ev.Data)
	if err != nil {
		return ""
	}
	if ev.Type == hub.EventCallOutput {
		var data hub.OutputData
		if json.Unmarshal(raw, &data) == nil {
			return strings.Join(data.Lines, " | ")
		}
	}
	return string(raw)
}
