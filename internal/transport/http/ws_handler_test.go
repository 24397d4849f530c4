package http

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/avelichko/flock-server/internal/proto"
	"github.com/avelichko/flock-server/internal/realtime"
)

func wsURL(e *testEnv, token string) string {
	return strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws?token=" + token
}

// readEvent reads outbound envelopes until the named event shows up.
func readEvent(ctx context.Context, t *testing.T, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()

	for {
		var outbound struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			t.Fatalf("read waiting for %q: %v", event, err)
		}
		if outbound.Type == proto.OutboundTypeEvent && outbound.Event == event {
			return outbound.Data
		}
	}
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	e := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, wsURL(e, "garbage"), nil)
	if err == nil {
		t.Fatal("expected dial to fail with a bad token")
	}
	if resp == nil || resp.StatusCode != 401 {
		t.Fatalf("expected 401 handshake rejection, got %+v", resp)
	}
}

func TestWebSocketPresenceAndDM(t *testing.T) {
	e := startTestServer(t)

	aliceToken := e.registerUser(t, "alice", "secret123")
	bobToken := e.registerUser(t, "bob", "secret123")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA, _, err := websocket.Dial(ctx, wsURL(e, aliceToken), nil)
	if err != nil {
		t.Fatalf("dial alice: %v", err)
	}
	defer connA.Close(websocket.StatusNormalClosure, "done")

	// Alice receives her own snapshot on connect.
	var snapshot realtime.OnlineUsersPayload
	if err := json.Unmarshal(readEvent(ctx, t, connA, "online_users"), &snapshot); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if len(snapshot.UserIDs) != 1 {
		t.Fatalf("expected only alice online, got %v", snapshot.UserIDs)
	}

	connB, _, err := websocket.Dial(ctx, wsURL(e, bobToken), nil)
	if err != nil {
		t.Fatalf("dial bob: %v", err)
	}
	defer connB.Close(websocket.StatusNormalClosure, "done")

	// Alice sees bob come online.
	var online realtime.PresencePayload
	if err := json.Unmarshal(readEvent(ctx, t, connA, "user_online"), &online); err != nil {
		t.Fatalf("unmarshal user_online: %v", err)
	}
	if online.Username != "bob" {
		t.Fatalf("expected bob online, got %+v", online)
	}

	// Drain bob's admission snapshot before the dm.
	readEvent(ctx, t, connB, "online_users")

	// Alice messages bob over the socket; both sides receive the dm event.
	payload, _ := json.Marshal(proto.SendDMData{ToUserID: online.UserID, Text: "hi bob"})
	if err := wsjson.Write(ctx, connA, proto.Inbound{Type: proto.InboundTypeSendDM, Data: payload}); err != nil {
		t.Fatalf("write send_dm: %v", err)
	}

	for name, conn := range map[string]*websocket.Conn{"alice": connA, "bob": connB} {
		var dm realtime.MessagePayload
		if err := json.Unmarshal(readEvent(ctx, t, conn, "dm"), &dm); err != nil {
			t.Fatalf("unmarshal dm for %s: %v", name, err)
		}
		if dm.Text != "hi bob" || dm.Sender.Username != "alice" {
			t.Fatalf("unexpected dm for %s: %+v", name, dm)
		}
	}

	// Typing reaches bob only.
	typing, _ := json.Marshal(proto.TypingData{ToUserID: online.UserID})
	if err := wsjson.Write(ctx, connA, proto.Inbound{Type: proto.InboundTypeTypingStart, Data: typing}); err != nil {
		t.Fatalf("write typing_start: %v", err)
	}
	var tp realtime.TypingPayload
	if err := json.Unmarshal(readEvent(ctx, t, connB, "typing_start"), &tp); err != nil {
		t.Fatalf("unmarshal typing: %v", err)
	}
	if tp.Username != "alice" {
		t.Fatalf("unexpected typing payload: %+v", tp)
	}
}

func TestWebSocketDMErrorScopedToSender(t *testing.T) {
	e := startTestServer(t)

	aliceToken := e.registerUser(t, "alice", "secret123")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(e, aliceToken), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// Messaging a user that does not exist yields dm_error to the sender.
	payload, _ := json.Marshal(proto.SendDMData{ToUserID: 9999, Text: "anyone there"})
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeSendDM, Data: payload}); err != nil {
		t.Fatalf("write send_dm: %v", err)
	}

	var errPayload realtime.ErrorPayload
	if err := json.Unmarshal(readEvent(ctx, t, conn, "dm_error"), &errPayload); err != nil {
		t.Fatalf("unmarshal dm_error: %v", err)
	}
	if errPayload.Message == "" {
		t.Fatal("expected an error message")
	}
}

func TestWebSocketOnlineSnapshotRequest(t *testing.T) {
	e := startTestServer(t)

	aliceToken := e.registerUser(t, "alice", "secret123")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(e, aliceToken), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	readEvent(ctx, t, conn, "online_users")

	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeOnlineUsers}); err != nil {
		t.Fatalf("write request_online_users: %v", err)
	}
	var snapshot realtime.OnlineUsersPayload
	if err := json.Unmarshal(readEvent(ctx, t, conn, "online_users"), &snapshot); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if len(snapshot.UserIDs) != 1 {
		t.Fatalf("unexpected snapshot: %v", snapshot.UserIDs)
	}
}
