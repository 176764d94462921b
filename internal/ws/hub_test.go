package ws

import (
	"errors"
	"testing"
)

type recorder struct {
	got    [][]byte
	fail   bool
	closed bool
}

func (r *recorder) Send(p []byte) error {
	if r.fail {
		return errors.New("broken pipe")
	}
	r.got = append(r.got, p)
	return nil
}

func (r *recorder) Close() { r.closed = true }

func TestBroadcastDropsFailingClients(t *testing.T) {
	hub := NewHub()
	ok, broken := &recorder{}, &recorder{fail: true}
	hub.Register("app-1", ok)
	hub.Register("app-1", broken)
	hub.Register("app-2", &recorder{})

	if n := hub.Broadcast("app-1", []byte("hello")); n != 1 {
		t.Fatalf("expected 1 delivery, got %d", n)
	}
	if !broken.closed || hub.Count("app-1") != 1 {
		t.Fatalf("failing client must be closed and dropped")
	}
	if len(ok.got) != 1 || string(ok.got[0]) != "hello" {
		t.Fatalf("unexpected payloads %q", ok.got)
	}
}

func TestCloseAll(t *testing.T) {
	hub := NewHub()
	a := &recorder{}
	hub.Register("app-1", a)
	hub.CloseAll("app-1", []byte("bye"))

	if !a.closed || len(a.got) != 1 || hub.Count("app-1") != 0 {
		t.Fatalf("expected final payload and close, got %+v", a)
	}
	hub.Unregister("app-1", a)
}
