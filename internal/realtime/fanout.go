package realtime

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/avelichko/flock-server/internal/store"
)

// Fanout turns domain changes into persisted notifications and live events.
// Delivery is fire-and-forget: a failure to persist or deliver one
// notification is logged and never blocks the rest of the fan-out.
type Fanout struct {
	store      store.Store
	dispatcher *Dispatcher
	log        *zerolog.Logger
}

func NewFanout(st store.Store, dispatcher *Dispatcher, logger *zerolog.Logger) *Fanout {
	return &Fanout{store: st, dispatcher: dispatcher, log: logger}
}

// PostCreated fans out a freshly persisted post: a REPLY notification to the
// parent author, MENTION notifications to every resolvable @username, and the
// post itself to the author's followers. Self-references never notify, and a
// mention of a username that does not resolve is dropped silently.
func (f *Fanout) PostCreated(ctx context.Context, post *store.Post, author *store.User, poll *store.Poll) {
	if post.ParentID != nil {
		parent, err := f.store.GetPostByID(ctx, *post.ParentID)
		if err != nil {
			f.log.Warn().Err(err).Int64("parent_id", *post.ParentID).Msg("fanout: parent lookup failed")
		} else if parent.AuthorID != author.ID {
			f.notify(ctx, parent.AuthorID, store.NotificationReply, author, &post.ID)
		}
	}

	notified := map[int64]struct{}{author.ID: {}}
	for _, name := range ExtractMentions(post.Text) {
		mentioned, err := f.store.GetUserByUsername(ctx, name)
		if err != nil {
			continue
		}
		if _, ok := notified[mentioned.ID]; ok {
			continue
		}
		notified[mentioned.ID] = struct{}{}
		f.notify(ctx, mentioned.ID, store.NotificationMention, author, &post.ID)
	}

	followers, err := f.store.ListFollowers(ctx, author.ID)
	if err != nil {
		f.log.Error().Err(err).Int64("author_id", author.ID).Msg("fanout: follower lookup failed")
		return
	}
	f.dispatcher.DeliverToUsers(followers, &Event{
		Name: EventNewPost,
		Payload: PostPayload{
			ID:        post.ID,
			Author:    author.Summary(),
			Text:      post.Text,
			ParentID:  post.ParentID,
			Poll:      NewPollPayload(poll),
			CreatedAt: post.CreatedAt,
		},
	})
}

// PostLiked notifies the post author, unless they liked their own post.
func (f *Fanout) PostLiked(ctx context.Context, post *store.Post, actor *store.User) {
	if post.AuthorID == actor.ID {
		return
	}
	f.notify(ctx, post.AuthorID, store.NotificationLike, actor, &post.ID)
}

// PostRetweeted notifies the post author, unless they reposted themselves.
func (f *Fanout) PostRetweeted(ctx context.Context, post *store.Post, actor *store.User) {
	if post.AuthorID == actor.ID {
		return
	}
	f.notify(ctx, post.AuthorID, store.NotificationRetweet, actor, &post.ID)
}

// UserFollowed notifies the followed user about their new follower.
func (f *Fanout) UserFollowed(ctx context.Context, followeeID int64, actor *store.User) {
	f.notify(ctx, followeeID, store.NotificationFollow, actor, nil)
}

// PollVoted notifies the poll's post author (unless they voted themselves)
// and broadcasts the updated tally to everyone connected.
func (f *Fanout) PollVoted(ctx context.Context, poll *store.Poll, post *store.Post, voter *store.User) {
	if post.AuthorID != voter.ID {
		f.notify(ctx, post.AuthorID, store.NotificationPollVote, voter, &post.ID)
	}
	f.dispatcher.BroadcastAll(&Event{
		Name:    EventPollUpdate,
		Payload: PollUpdatePayload{PostID: post.ID, Poll: NewPollPayload(poll)},
	})
}

// MessageSent delivers a direct message to both participants' channels, so
// every open tab of either side sees it.
func (f *Fanout) MessageSent(msg *store.DirectMessage, sender, receiver *store.User) {
	event := &Event{
		Name: EventDM,
		Payload: MessagePayload{
			ID:        msg.ID,
			Sender:    sender.Summary(),
			Receiver:  receiver.Summary(),
			Text:      msg.Text,
			GifURL:    msg.GifURL,
			CreatedAt: msg.CreatedAt,
		},
	}
	f.dispatcher.DeliverToUsers([]int64{sender.ID, receiver.ID}, event)
}

// MessagesRead tells the original sender that readerID has read their
// conversation.
func (f *Fanout) MessagesRead(readerID, senderID int64) {
	f.dispatcher.DeliverToUser(senderID, &Event{
		Name:    EventMessagesRead,
		Payload: ReadReceiptPayload{ReadBy: readerID, ConversationWith: senderID},
	})
}

// MessageDeleted announces a tombstoned message to both participants.
func (f *Fanout) MessageDeleted(msg *store.DirectMessage) {
	f.dispatcher.DeliverToUsers([]int64{msg.SenderID, msg.ReceiverID}, &Event{
		Name: EventMessageDeleted,
		Payload: MessageDeletedPayload{
			MessageID:  msg.ID,
			SenderID:   msg.SenderID,
			ReceiverID: msg.ReceiverID,
			DeletedAt:  msg.DeletedAt,
		},
	})
}

// NotificationsRead echoes a read-state change back to the user's own channel
// so every open tab reconciles its badge counts.
func (f *Fanout) NotificationsRead(userID int64, ids []int64) {
	scope := "all"
	if len(ids) > 0 {
		scope = "specific"
	}
	f.dispatcher.DeliverToUser(userID, &Event{
		Name:    EventNotificationRead,
		Payload: NotificationsReadPayload{Scope: scope, IDs: ids},
	})
}

// notify persists a notification and delivers it to the owner's channel.
func (f *Fanout) notify(ctx context.Context, userID int64, typ store.NotificationType, source *store.User, postID *int64) {
	n, err := f.store.CreateNotification(ctx, userID, typ, source.ID, postID)
	if err != nil {
		f.log.Error().Err(err).
			Int64("user_id", userID).
			Str("type", string(typ)).
			Msg("fanout: notification persist failed")
		return
	}
	f.dispatcher.DeliverToUser(userID, &Event{
		Name: EventNotification,
		Payload: NotificationPayload{
			ID:         n.ID,
			Type:       n.Type,
			SourceUser: source.Summary(),
			PostID:     n.SourcePostID,
			CreatedAt:  n.CreatedAt,
		},
	})
}
