package realtime

import (
	"strconv"
	"sync"
)

// UserChannel returns the personal channel key for a user. Every admitted
// connection joins its own personal channel; this is the unit of targeted
// delivery.
func UserChannel(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// Channels tracks which connections belong to which delivery channels, plus
// the roster of all registered connections for whole-server broadcasts. A
// connection may belong to any number of channels.
type Channels struct {
	mu      sync.RWMutex
	members map[string]map[*Client]struct{}
	joined  map[*Client]map[string]struct{}
	all     map[*Client]struct{}
}

// NewChannels constructs an empty membership registry.
func NewChannels() *Channels {
	return &Channels{
		members: make(map[string]map[*Client]struct{}),
		joined:  make(map[*Client]map[string]struct{}),
		all:     make(map[*Client]struct{}),
	}
}

// Register adds the connection to the roster.
func (ch *Channels) Register(c *Client) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.all[c] = struct{}{}
}

// Unregister removes the connection from the roster and from every channel
// it joined. Safe to call for a connection that was never registered.
func (ch *Channels) Unregister(c *Client) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	for key := range ch.joined[c] {
		delete(ch.members[key], c)
		if len(ch.members[key]) == 0 {
			delete(ch.members, key)
		}
	}
	delete(ch.joined, c)
	delete(ch.all, c)
}

// Join subscribes the connection to a channel.
func (ch *Channels) Join(c *Client, key string) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if _, ok := ch.members[key]; !ok {
		ch.members[key] = make(map[*Client]struct{})
	}
	ch.members[key][c] = struct{}{}

	if _, ok := ch.joined[c]; !ok {
		ch.joined[c] = make(map[string]struct{})
	}
	ch.joined[c][key] = struct{}{}
}

// Leave unsubscribes the connection from a channel.
func (ch *Channels) Leave(c *Client, key string) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	delete(ch.members[key], c)
	if len(ch.members[key]) == 0 {
		delete(ch.members, key)
	}
	delete(ch.joined[c], key)
}

// MembersOf returns the connections currently joined to the channel.
func (ch *Channels) MembersOf(key string) []*Client {
	ch.mu.RLock()
	defer ch.mu.RUnlock()

	clients := make([]*Client, 0, len(ch.members[key]))
	for c := range ch.members[key] {
		clients = append(clients, c)
	}
	return clients
}

// All returns every registered connection.
func (ch *Channels) All() []*Client {
	ch.mu.RLock()
	defer ch.mu.RUnlock()

	clients := make([]*Client, 0, len(ch.all))
	for c := range ch.all {
		clients = append(clients, c)
	}
	return clients
}
