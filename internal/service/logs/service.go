package logs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"log/slog"

	"github.com/stuga-cloud/console/internal/domain"
	"github.com/stuga-cloud/console/internal/ws"
)

// Reader fetches the current log payload of an application after resolving
// and authorizing it.
type Reader interface {
	Logs(ctx context.Context, principal domain.Principal, projectID, namespaceID, applicationID string) (json.RawMessage, error)
}

// Ref addresses one application.
type Ref struct {
	ProjectID     string
	NamespaceID   string
	ApplicationID string
}

// Event is a frame pushed to log followers.
type Event struct {
	Type    string          `json:"type"`
	Logs    json.RawMessage `json:"logs,omitempty"`
	Message string          `json:"message,omitempty"`
}

const (
	EventLogs    = "logs"
	EventError   = "error"
	EventDeleted = "deleted"
)

// Service streams application logs to websocket followers.
type Service struct {
	reader   Reader
	hub      *ws.Hub
	interval time.Duration
	logger   *slog.Logger
}

// New constructs a log streaming service.
func New(reader Reader, hub *ws.Hub, interval time.Duration, logger *slog.Logger) Service {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return Service{reader: reader, hub: hub, interval: interval, logger: logger}
}

// Snapshot returns the current payload. Applications without logs yet yield
// nil rather than an error so a stream can start before the first line.
func (s Service) Snapshot(ctx context.Context, principal domain.Principal, ref Ref) (json.RawMessage, error) {
	raw, err := s.reader.Logs(ctx, principal, ref.ProjectID, ref.NamespaceID, ref.ApplicationID)
	if err != nil {
		if domain.IsNotFound(err, domain.KindLogs) {
			return nil, nil
		}
		return nil, err
	}
	return raw, nil
}

// Follow pushes the log payload to sub whenever it changes, re-authorizing
// on every poll. It returns when ctx is done or a poll fails.
func (s Service) Follow(ctx context.Context, principal domain.Principal, ref Ref, sub ws.Subscriber, last json.RawMessage) error {
	s.hub.Register(ref.ApplicationID, sub)
	defer s.hub.Unregister(ref.ApplicationID, sub)

	if len(last) > 0 {
		if err := send(sub, Event{Type: EventLogs, Logs: last}); err != nil {
			return err
		}
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		raw, err := s.Snapshot(ctx, principal, ref)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn("log follow stopped",
				"project_id", ref.ProjectID, "namespace_id", ref.NamespaceID, "application_id", ref.ApplicationID, "error", err)
			_ = send(sub, Event{Type: EventError, Message: followMessage(err)})
			return err
		}
		if raw == nil || bytes.Equal(raw, last) {
			continue
		}
		last = raw
		if err := send(sub, Event{Type: EventLogs, Logs: raw}); err != nil {
			return err
		}
	}
}

// Deleted notifies and disconnects the followers of an application.
func (s Service) Deleted(applicationID string) {
	payload, err := json.Marshal(Event{Type: EventDeleted})
	if err != nil {
		return
	}
	s.hub.CloseAll(applicationID, payload)
}

// Followers reports how many streams are open for an application.
func (s Service) Followers(applicationID string) int {
	return s.hub.Count(applicationID)
}

func send(sub ws.Subscriber, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return sub.Send(payload)
}

func followMessage(err error) string {
	var (
		nf           *domain.NotFoundError
		unauthorized *domain.UnauthorizedError
	)
	switch {
	case errors.As(err, &nf):
		return nf.Error()
	case errors.As(err, &unauthorized):
		return "access to this application was revoked"
	default:
		return "log stream interrupted"
	}
}
