package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/avelichko/flock-server/internal/store"
	"github.com/avelichko/flock-server/internal/store/sqlite"
)

func mustEvent(t *testing.T, ch <-chan *Event, name string) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Name == name {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event %q not received", name)
	return nil
}

func assertNoEvent(t *testing.T, ch <-chan *Event, name string) {
	t.Helper()

	for {
		select {
		case ev := <-ch:
			if ev != nil && ev.Name == name {
				t.Fatalf("unexpected event %q: %+v", name, ev.Payload)
			}
		default:
			return
		}
	}
}

func drain(ch <-chan *Event) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

type engine struct {
	store      *sqlite.SQLiteStore
	presence   *Presence
	channels   *Channels
	dispatcher *Dispatcher
	gateway    *Gateway
	fanout     *Fanout
	actions    *Actions
}

func newTestEngine(t *testing.T) *engine {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	logger := zerolog.Nop()
	presence := NewPresence()
	channels := NewChannels()
	dispatcher := NewDispatcher(channels, &logger)
	fanout := NewFanout(st, dispatcher, &logger)
	return &engine{
		store:      st,
		presence:   presence,
		channels:   channels,
		dispatcher: dispatcher,
		gateway:    NewGateway(presence, channels, dispatcher, &logger),
		fanout:     fanout,
		actions:    NewActions(st, presence, dispatcher, fanout, &logger),
	}
}

func (e *engine) seedUser(t *testing.T, username string) *store.User {
	t.Helper()

	u, err := e.store.CreateUser(context.Background(), username, username, "x")
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

// connect admits a fresh connection for the user and drains the admission
// events so tests only see what happens afterwards.
func (e *engine) connect(t *testing.T, u *store.User) *Client {
	t.Helper()

	c := NewClient(u.Username+"-conn", u.ID, u.Username)
	e.gateway.Admit(c)
	drain(c.Events)
	return c
}
