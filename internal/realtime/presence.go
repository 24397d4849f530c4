package realtime

import "sync"

// Presence tracks which users have at least one open connection. It is
// set-valued per user: closing one of several connections for the same user
// does not mark the user offline.
type Presence struct {
	mu      sync.RWMutex
	entries map[int64]*presenceEntry
}

type presenceEntry struct {
	conns map[*Client]struct{}
	// username of the most recently admitted connection, kept for snapshots
	// and debugging.
	username string
}

// NewPresence constructs an empty presence registry.
func NewPresence() *Presence {
	return &Presence{entries: make(map[int64]*presenceEntry)}
}

// MarkOnline adds the connection to the user's open-connection set. Returns
// true when this is the user's first connection (offline -> online).
func (p *Presence) MarkOnline(c *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[c.UserID]
	if !ok {
		entry = &presenceEntry{conns: make(map[*Client]struct{})}
		p.entries[c.UserID] = entry
	}
	entry.conns[c] = struct{}{}
	entry.username = c.Username
	return !ok
}

// MarkOffline removes the connection. Returns true when the user's last
// connection closed (online -> offline). Unknown connections are a no-op.
func (p *Presence) MarkOffline(c *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[c.UserID]
	if !ok {
		return false
	}
	if _, ok := entry.conns[c]; !ok {
		return false
	}
	delete(entry.conns, c)
	if len(entry.conns) == 0 {
		delete(p.entries, c.UserID)
		return true
	}
	return false
}

// IsOnline reports whether the user has at least one open connection.
func (p *Presence) IsOnline(userID int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.entries[userID]
	return ok
}

// ListOnline returns the IDs of all currently online users.
func (p *Presence) ListOnline() []int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]int64, 0, len(p.entries))
	for id := range p.entries {
		ids = append(ids, id)
	}
	return ids
}
