package realtime

import "testing"

func TestPresenceMultiTab(t *testing.T) {
	p := NewPresence()

	tab1 := NewClient("t1", 1, "alice")
	tab2 := NewClient("t2", 1, "alice")

	if !p.MarkOnline(tab1) {
		t.Fatal("first connection should flip the user online")
	}
	if p.MarkOnline(tab2) {
		t.Fatal("second tab must not report a fresh online transition")
	}
	if !p.IsOnline(1) {
		t.Fatal("user should be online")
	}

	if p.MarkOffline(tab1) {
		t.Fatal("closing one of two tabs must not flip the user offline")
	}
	if !p.IsOnline(1) {
		t.Fatal("user should still be online with one tab left")
	}
	if !p.MarkOffline(tab2) {
		t.Fatal("closing the last tab should flip the user offline")
	}
	if p.IsOnline(1) {
		t.Fatal("user should be offline")
	}
}

func TestPresenceMarkOfflineUnknownConnection(t *testing.T) {
	p := NewPresence()

	stray := NewClient("s", 7, "ghost")
	if p.MarkOffline(stray) {
		t.Fatal("unknown connection must not report an offline transition")
	}
}

func TestPresenceListOnline(t *testing.T) {
	p := NewPresence()

	p.MarkOnline(NewClient("a", 1, "alice"))
	p.MarkOnline(NewClient("b", 2, "bob"))

	ids := p.ListOnline()
	if len(ids) != 2 {
		t.Fatalf("expected 2 online users, got %d", len(ids))
	}
	seen := map[int64]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if !seen[1] || !seen[2] {
		t.Fatalf("unexpected snapshot: %v", ids)
	}
}
