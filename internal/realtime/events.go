package realtime

import (
	"time"

	"github.com/avelichko/flock-server/internal/store"
)

// Outbound event names. These are the wire names clients subscribe to.
const (
	EventNewPost          = "new_post"
	EventNotification     = "notification"
	EventDM               = "dm"
	EventDMError          = "dm_error"
	EventMessagesRead     = "messages_read"
	EventMessageDeleted   = "message_deleted"
	EventNotificationRead = "notification_read"
	EventTypingStart      = "typing_start"
	EventTypingStop       = "typing_stop"
	EventOnlineUsers      = "online_users"
	EventUserOnline       = "user_online"
	EventUserOffline      = "user_offline"
	EventPollUpdate       = "poll_update"
	EventPollError        = "poll_error"
)

// Event is a named payload delivered to clients. Delivery is best-effort:
// handing an event to the dispatcher means it was attempted, not confirmed.
type Event struct {
	Name    string
	Payload any
}

// OnlineUsersPayload is the full presence snapshot.
type OnlineUsersPayload struct {
	UserIDs []int64 `json:"user_ids"`
}

// PresencePayload announces a single user's presence transition.
type PresencePayload struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// TypingPayload relays a typing indicator to the recipient.
type TypingPayload struct {
	FromUserID int64  `json:"from_user_id"`
	Username   string `json:"username"`
}

// PostPayload is the full post record fanned out to followers.
type PostPayload struct {
	ID        int64              `json:"id"`
	Author    store.UserSummary  `json:"author"`
	Text      string             `json:"text"`
	ParentID  *int64             `json:"parent_id,omitempty"`
	Poll      *PollPayload       `json:"poll,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// PollPayload carries a poll with its current tallies.
type PollPayload struct {
	ID        int64              `json:"id"`
	PostID    int64              `json:"post_id"`
	ExpiresAt time.Time          `json:"expires_at"`
	Options   []store.PollOption `json:"options"`
}

// NewPollPayload converts a stored poll into its wire shape.
func NewPollPayload(poll *store.Poll) *PollPayload {
	if poll == nil {
		return nil
	}
	return &PollPayload{
		ID:        poll.ID,
		PostID:    poll.PostID,
		ExpiresAt: poll.ExpiresAt,
		Options:   poll.Options,
	}
}

// NotificationPayload is the notification record delivered to its owner.
type NotificationPayload struct {
	ID         int64                  `json:"id"`
	Type       store.NotificationType `json:"type"`
	SourceUser store.UserSummary      `json:"source_user"`
	PostID     *int64                 `json:"post_id,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// MessagePayload is a direct message delivered to both participants.
type MessagePayload struct {
	ID        int64             `json:"id"`
	Sender    store.UserSummary `json:"sender"`
	Receiver  store.UserSummary `json:"receiver"`
	Text      string            `json:"text"`
	GifURL    string            `json:"gif_url,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// ReadReceiptPayload tells the original sender their messages were read.
type ReadReceiptPayload struct {
	ReadBy           int64 `json:"read_by"`
	ConversationWith int64 `json:"conversation_with"`
}

// MessageDeletedPayload announces a tombstoned message to both participants.
type MessageDeletedPayload struct {
	MessageID  int64      `json:"message_id"`
	SenderID   int64      `json:"sender_id"`
	ReceiverID int64      `json:"receiver_id"`
	DeletedAt  *time.Time `json:"deleted_at"`
}

// NotificationsReadPayload echoes a read-state change to the user's own
// channel so other open tabs stay in sync.
type NotificationsReadPayload struct {
	Scope string  `json:"scope"` // "all" or "specific"
	IDs   []int64 `json:"ids"`
}

// PollUpdatePayload broadcasts an updated tally to everyone.
type PollUpdatePayload struct {
	PostID int64        `json:"post_id"`
	Poll   *PollPayload `json:"poll"`
}

// ErrorPayload is a scoped error event sent only to the originating client.
type ErrorPayload struct {
	Message string `json:"message"`
}
