package realtime

import "github.com/rs/zerolog"

// Dispatcher is the broadcast primitive. It only reads channel membership;
// it knows nothing about domain semantics. All delivery is best-effort and
// fire-and-forget: a registered connection gets exactly one delivery attempt,
// an offline target is a silent no-op.
type Dispatcher struct {
	channels *Channels
	log      *zerolog.Logger
}

// NewDispatcher builds a dispatcher over the given membership registry.
func NewDispatcher(channels *Channels, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{channels: channels, log: logger}
}

// DeliverToUser sends the event to every connection in the user's personal
// channel. Zero open connections is not an error.
func (d *Dispatcher) DeliverToUser(userID int64, event *Event) {
	for _, c := range d.channels.MembersOf(UserChannel(userID)) {
		d.Send(c, event)
	}
}

// DeliverToUsers applies DeliverToUser for each ID. Order across recipients
// is unspecified.
func (d *Dispatcher) DeliverToUsers(userIDs []int64, event *Event) {
	for _, id := range userIDs {
		d.DeliverToUser(id, event)
	}
}

// BroadcastAll delivers the event to every registered connection.
func (d *Dispatcher) BroadcastAll(event *Event) {
	for _, c := range d.channels.All() {
		d.Send(c, event)
	}
}

// BroadcastExcept delivers to every registered connection except skip.
func (d *Dispatcher) BroadcastExcept(event *Event, skip *Client) {
	for _, c := range d.channels.All() {
		if c == skip {
			continue
		}
		d.Send(c, event)
	}
}

// Send attempts delivery to a single connection. A full event buffer drops
// the event rather than blocking the caller; one slow consumer must never
// stall delivery to the remaining targets.
func (d *Dispatcher) Send(c *Client, event *Event) {
	select {
	case c.Events <- event:
	default:
		d.log.Warn().
			Str("client_id", c.ID).
			Int64("user_id", c.UserID).
			Str("event", event.Name).
			Msg("dropping event for slow consumer")
	}
}
