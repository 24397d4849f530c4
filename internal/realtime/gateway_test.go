package realtime

import "testing"

func TestGatewayAdmitAnnouncesPresence(t *testing.T) {
	e := newTestEngine(t)
	alice := e.seedUser(t, "alice")
	bob := e.seedUser(t, "bob")

	aliceConn := e.connect(t, alice)

	bobConn := NewClient("bob-conn", bob.ID, bob.Username)
	e.gateway.Admit(bobConn)

	// The new connection gets the full snapshot including itself.
	snap := mustEvent(t, bobConn.Events, EventOnlineUsers)
	ids := snap.Payload.(OnlineUsersPayload).UserIDs
	if len(ids) != 2 {
		t.Fatalf("expected 2 users in snapshot, got %v", ids)
	}

	// Existing connections see both the refreshed snapshot and user_online.
	mustEvent(t, aliceConn.Events, EventOnlineUsers)
	online := mustEvent(t, aliceConn.Events, EventUserOnline)
	if got := online.Payload.(PresencePayload); got.UserID != bob.ID || got.Username != "bob" {
		t.Fatalf("unexpected user_online payload: %+v", got)
	}

	// The new connection never receives its own user_online.
	assertNoEvent(t, bobConn.Events, EventUserOnline)
}

func TestGatewaySecondTabDoesNotAnnounce(t *testing.T) {
	e := newTestEngine(t)
	alice := e.seedUser(t, "alice")
	bob := e.seedUser(t, "bob")

	aliceConn := e.connect(t, alice)
	e.connect(t, bob)

	second := NewClient("bob-conn-2", bob.ID, bob.Username)
	e.gateway.Admit(second)

	// The snapshot still broadcasts, but user_online does not repeat.
	mustEvent(t, aliceConn.Events, EventOnlineUsers)
	assertNoEvent(t, aliceConn.Events, EventUserOnline)
}

func TestGatewayDisconnectLastConnection(t *testing.T) {
	e := newTestEngine(t)
	alice := e.seedUser(t, "alice")
	bob := e.seedUser(t, "bob")

	aliceConn := e.connect(t, alice)
	tab1 := e.connect(t, bob)
	tab2 := e.connect(t, bob)
	drain(aliceConn.Events)

	e.gateway.Disconnect(tab1)
	assertNoEvent(t, aliceConn.Events, EventUserOffline)

	e.gateway.Disconnect(tab2)
	snap := mustEvent(t, aliceConn.Events, EventOnlineUsers)
	ids := snap.Payload.(OnlineUsersPayload).UserIDs
	if len(ids) != 1 || ids[0] != alice.ID {
		t.Fatalf("expected only alice online, got %v", ids)
	}
	off := mustEvent(t, aliceConn.Events, EventUserOffline)
	if got := off.Payload.(PresencePayload); got.UserID != bob.ID {
		t.Fatalf("unexpected user_offline payload: %+v", got)
	}

	// A repeated disconnect is a no-op.
	drain(aliceConn.Events)
	e.gateway.Disconnect(tab2)
	assertNoEvent(t, aliceConn.Events, EventUserOffline)
}

func TestGatewayDisconnectUnadmitted(t *testing.T) {
	e := newTestEngine(t)
	bob := e.seedUser(t, "bob")

	// Never admitted; must not panic or emit anything.
	e.gateway.Disconnect(NewClient("ghost", bob.ID, bob.Username))
}
