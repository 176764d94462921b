package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// Log stream event types.
const (
	EventLogs    = "logs"
	EventError   = "error"
	EventDeleted = "deleted"
)

// LogEvent is one message of a log stream.
type LogEvent struct {
	Type    string          `json:"type"`
	Logs    json.RawMessage `json:"logs,omitempty"`
	Message string          `json:"message,omitempty"`
}

// StreamLogs follows an application's logs until ctx is done, the server
// closes the stream, or fn returns an error. Error events end the stream
// with their message.
func (c *Client) StreamLogs(ctx context.Context, token string, ref Ref, fn func(LogEvent) error) error {
	endpoint := c.baseURL + "/api" + ref.path() + "/logs/stream"
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint = "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		endpoint = "ws://" + strings.TrimPrefix(endpoint, "http://")
	}
	header := http.Header{}
	if strings.TrimSpace(token) != "" {
		header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}
	conn, resp, err := c.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return APIError{Status: resp.StatusCode, Message: extractError(resp.Body)}
		}
		return fmt.Errorf("dial log stream: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var event LogEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read log stream: %w", err)
		}
		if event.Type == EventError {
			return errors.New(event.Message)
		}
		if err := fn(event); err != nil {
			return err
		}
		if event.Type == EventDeleted {
			return nil
		}
	}
}
