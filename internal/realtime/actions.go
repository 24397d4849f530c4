package realtime

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/avelichko/flock-server/internal/store"
)

// Actions implements the real-time operations a connection may originate
// itself: direct messages, poll votes and typing indicators. The HTTP layer
// reuses the same methods so both entry points share one validation path.
//
// Every method returns either nil, an *ActionError the caller may show to the
// user, or an internal error that must stay server-side.
type Actions struct {
	store      store.Store
	presence   *Presence
	dispatcher *Dispatcher
	fanout     *Fanout
	log        *zerolog.Logger
}

func NewActions(st store.Store, presence *Presence, dispatcher *Dispatcher, fanout *Fanout, logger *zerolog.Logger) *Actions {
	return &Actions{store: st, presence: presence, dispatcher: dispatcher, fanout: fanout, log: logger}
}

// SendDirectMessage validates, persists and fans out a direct message.
// Validation failures never persist anything and never reach anyone but the
// caller.
func (a *Actions) SendDirectMessage(ctx context.Context, sender *store.User, toUserID int64, text, gifURL string) (*store.DirectMessage, error) {
	text = strings.TrimSpace(text)
	gifURL = strings.TrimSpace(gifURL)

	if toUserID == sender.ID {
		return nil, badRequest("cannot message yourself")
	}
	if text == "" && gifURL == "" {
		return nil, badRequest("message is empty")
	}
	receiver, err := a.store.GetUserByID(ctx, toUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("recipient not found")
		}
		return nil, err
	}

	msg, err := a.store.CreateMessage(ctx, sender.ID, receiver.ID, text, gifURL)
	if err != nil {
		return nil, err
	}

	a.fanout.MessageSent(msg, sender, receiver)
	return msg, nil
}

// CastPollVote validates and records a vote, then fans out the notification
// and tally update. One vote per user per poll; the conflict comes from the
// storage layer's uniqueness guarantee, not an in-memory check.
func (a *Actions) CastPollVote(ctx context.Context, voter *store.User, pollID, optionID int64) (*store.Poll, error) {
	poll, err := a.store.GetPollByID(ctx, pollID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("poll not found")
		}
		return nil, err
	}
	if poll.Expired(time.Now()) {
		return nil, notFound("poll not found")
	}

	if err := a.store.RecordVote(ctx, pollID, optionID, voter.ID); err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyVoted):
			return nil, conflict("already voted in this poll")
		case errors.Is(err, store.ErrNotFound):
			return nil, notFound("option not found")
		default:
			return nil, err
		}
	}

	poll, err = a.store.GetPollByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	post, err := a.store.GetPostByID(ctx, poll.PostID)
	if err != nil {
		return nil, err
	}

	a.fanout.PollVoted(ctx, poll, post, voter)
	return poll, nil
}

// TypingStart relays a typing indicator to the recipient's channel only. No
// persistence, no echo to the sender.
func (a *Actions) TypingStart(sender *store.User, toUserID int64) error {
	return a.relayTyping(EventTypingStart, sender, toUserID)
}

// TypingStop relays the end of a typing indicator to the recipient's channel.
func (a *Actions) TypingStop(sender *store.User, toUserID int64) error {
	return a.relayTyping(EventTypingStop, sender, toUserID)
}

func (a *Actions) relayTyping(name string, sender *store.User, toUserID int64) error {
	if toUserID <= 0 {
		return badRequest("recipient is required")
	}
	a.dispatcher.DeliverToUser(toUserID, &Event{
		Name:    name,
		Payload: TypingPayload{FromUserID: sender.ID, Username: sender.Username},
	})
	return nil
}

// SendOnlineSnapshot replays the current presence snapshot to one connection.
func (a *Actions) SendOnlineSnapshot(c *Client) {
	a.dispatcher.Send(c, &Event{
		Name:    EventOnlineUsers,
		Payload: OnlineUsersPayload{UserIDs: a.presence.ListOnline()},
	})
}
