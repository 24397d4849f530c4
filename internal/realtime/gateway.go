package realtime

import (
	"sync"

	"github.com/rs/zerolog"
)

// Gateway is the only component that admits and removes connections. It owns
// the presence and channel-membership mutations; everything else just reads.
type Gateway struct {
	presence   *Presence
	channels   *Channels
	dispatcher *Dispatcher
	log        *zerolog.Logger

	mu       sync.Mutex
	admitted map[*Client]struct{}
}

// NewGateway wires the gateway over its shared state. The same presence,
// channels and dispatcher instances must be shared with the fan-out engine.
func NewGateway(presence *Presence, channels *Channels, dispatcher *Dispatcher, logger *zerolog.Logger) *Gateway {
	return &Gateway{
		presence:   presence,
		channels:   channels,
		dispatcher: dispatcher,
		log:        logger,
		admitted:   make(map[*Client]struct{}),
	}
}

// Admit registers an authenticated connection: roster, personal channel,
// presence. The new connection receives the current online snapshot, everyone
// receives the updated snapshot, and on the user's offline -> online
// transition the rest of the server is told the user came online.
func (g *Gateway) Admit(c *Client) {
	g.mu.Lock()
	g.admitted[c] = struct{}{}
	g.mu.Unlock()

	g.channels.Register(c)
	g.channels.Join(c, UserChannel(c.UserID))
	first := g.presence.MarkOnline(c)

	snapshot := &Event{Name: EventOnlineUsers, Payload: OnlineUsersPayload{UserIDs: g.presence.ListOnline()}}
	g.dispatcher.Send(c, snapshot)
	g.dispatcher.BroadcastAll(snapshot)

	if first {
		g.dispatcher.BroadcastExcept(&Event{
			Name:    EventUserOnline,
			Payload: PresencePayload{UserID: c.UserID, Username: c.Username},
		}, c)
	}

	g.log.Info().
		Str("client_id", c.ID).
		Int64("user_id", c.UserID).
		Str("username", c.Username).
		Msg("connection admitted")
}

// Disconnect tears down all state for a connection. Idempotent: invoking it
// twice, or for a connection that was never admitted, is a no-op.
func (g *Gateway) Disconnect(c *Client) {
	g.mu.Lock()
	if _, ok := g.admitted[c]; !ok {
		g.mu.Unlock()
		return
	}
	delete(g.admitted, c)
	g.mu.Unlock()

	g.channels.Unregister(c)
	last := g.presence.MarkOffline(c)

	if last {
		g.dispatcher.BroadcastAll(&Event{
			Name:    EventOnlineUsers,
			Payload: OnlineUsersPayload{UserIDs: g.presence.ListOnline()},
		})
		g.dispatcher.BroadcastAll(&Event{
			Name:    EventUserOffline,
			Payload: PresencePayload{UserID: c.UserID, Username: c.Username},
		})
	}

	g.log.Info().
		Str("client_id", c.ID).
		Int64("user_id", c.UserID).
		Bool("went_offline", last).
		Msg("connection closed")
}
