package store

import (
	"context"
	"errors"
	"time"
)

// Common storage errors. Implementations must return these sentinels so
// callers can map them to scoped client errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("duplicate")
	ErrAlreadyVoted = errors.New("already voted")
)

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	AvatarURL    string
	CreatedAt    time.Time
}

// Summary returns the public projection of a user used in event payloads.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

// UserSummary is the public slice of a user embedded in posts, messages
// and notifications.
type UserSummary struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Post is a published post. ParentID is set for replies.
type Post struct {
	ID        int64
	AuthorID  int64
	Text      string
	ParentID  *int64
	CreatedAt time.Time
}

// NotificationType enumerates the notification kinds the fan-out rules emit.
type NotificationType string

const (
	NotificationLike     NotificationType = "LIKE"
	NotificationRetweet  NotificationType = "RETWEET"
	NotificationReply    NotificationType = "REPLY"
	NotificationMention  NotificationType = "MENTION"
	NotificationFollow   NotificationType = "FOLLOW"
	NotificationPollVote NotificationType = "POLL_VOTE"
)

// Notification is a persisted notification record.
type Notification struct {
	ID           int64
	UserID       int64
	Type         NotificationType
	SourceUserID int64
	SourcePostID *int64
	IsRead       bool
	CreatedAt    time.Time
}

// DirectMessage is a persisted direct message. GifURL is an opaque external
// media reference; deletion is soft so both parties see a tombstone.
type DirectMessage struct {
	ID         int64
	SenderID   int64
	ReceiverID int64
	Text       string
	GifURL     string
	ReadAt     *time.Time
	IsDeleted  bool
	DeletedAt  *time.Time
	CreatedAt  time.Time
}

// ConversationSummary is the newest message exchanged with one partner.
type ConversationSummary struct {
	PartnerID   int64
	LastMessage DirectMessage
}

// Poll is attached to a post and carries its options with current tallies.
type Poll struct {
	ID        int64
	PostID    int64
	ExpiresAt time.Time
	Options   []PollOption
}

// Expired reports whether the poll no longer accepts votes.
func (p *Poll) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// PollOption is a single poll choice with its vote tally.
type PollOption struct {
	ID        int64  `json:"id"`
	PollID    int64  `json:"poll_id"`
	Text      string `json:"text"`
	VoteCount int64  `json:"vote_count"`
}

// UserStore handles account persistence and lookup.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, displayName, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username. The lookup is
	// case-insensitive.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// FollowStore handles the follower graph.
type FollowStore interface {
	// AddFollow records follower -> followee. Returns ErrDuplicate when the
	// edge already exists.
	AddFollow(ctx context.Context, followerID, followeeID int64) error

	// RemoveFollow deletes the edge. Returns ErrNotFound when absent.
	RemoveFollow(ctx context.Context, followerID, followeeID int64) error

	// IsFollowing reports whether follower -> followee exists.
	IsFollowing(ctx context.Context, followerID, followeeID int64) (bool, error)

	// ListFollowers returns the IDs of everyone following followeeID.
	ListFollowers(ctx context.Context, followeeID int64) ([]int64, error)
}

// PostStore handles posts and their engagement edges.
type PostStore interface {
	// CreatePost persists a post. parentID is non-nil for replies.
	CreatePost(ctx context.Context, authorID int64, text string, parentID *int64) (*Post, error)

	// GetPostByID retrieves a post by ID.
	GetPostByID(ctx context.Context, id int64) (*Post, error)

	// ListTimeline returns newest-first posts, optionally older than beforeID.
	ListTimeline(ctx context.Context, limit int, beforeID *int64) ([]*Post, error)

	// DeletePost removes a post and its dependent rows.
	DeletePost(ctx context.Context, id int64) error

	// AddLike records a like. Returns ErrDuplicate if already liked.
	AddLike(ctx context.Context, userID, postID int64) error

	// RemoveLike deletes a like. Returns ErrNotFound when absent.
	RemoveLike(ctx context.Context, userID, postID int64) error

	// HasLiked reports whether userID liked postID.
	HasLiked(ctx context.Context, userID, postID int64) (bool, error)

	// LikeCount returns the number of likes on postID.
	LikeCount(ctx context.Context, postID int64) (int64, error)

	// AddRetweet records a repost. Returns ErrDuplicate if already reposted.
	AddRetweet(ctx context.Context, userID, postID int64) error

	// RemoveRetweet deletes a repost. Returns ErrNotFound when absent.
	RemoveRetweet(ctx context.Context, userID, postID int64) error

	// HasRetweeted reports whether userID reposted postID.
	HasRetweeted(ctx context.Context, userID, postID int64) (bool, error)

	// RetweetCount returns the number of reposts of postID.
	RetweetCount(ctx context.Context, postID int64) (int64, error)

	// TagPost links a (lowercased) hashtag to a post, creating the hashtag
	// row on first use.
	TagPost(ctx context.Context, postID int64, tag string) error
}

// NotificationStore handles notification persistence.
type NotificationStore interface {
	// CreateNotification persists a notification and returns the stored record.
	CreateNotification(ctx context.Context, userID int64, typ NotificationType, sourceUserID int64, sourcePostID *int64) (*Notification, error)

	// ListNotifications returns newest-first notifications for userID.
	ListNotifications(ctx context.Context, userID int64, limit int, beforeID *int64) ([]*Notification, error)

	// CountUnreadNotifications returns the number of unread notifications.
	CountUnreadNotifications(ctx context.Context, userID int64) (int64, error)

	// MarkNotificationsRead marks the given IDs read; an empty slice marks
	// everything read. Only rows owned by userID are touched.
	MarkNotificationsRead(ctx context.Context, userID int64, ids []int64) error
}

// MessageStore handles direct message persistence.
type MessageStore interface {
	// CreateMessage persists a direct message.
	CreateMessage(ctx context.Context, senderID, receiverID int64, text, gifURL string) (*DirectMessage, error)

	// GetMessageByID retrieves a message by ID.
	GetMessageByID(ctx context.Context, id int64) (*DirectMessage, error)

	// ListConversation returns newest-first messages between two users.
	ListConversation(ctx context.Context, userID, otherUserID int64, limit int, beforeID *int64) ([]*DirectMessage, error)

	// ListConversations returns the latest message per conversation partner.
	ListConversations(ctx context.Context, userID int64) ([]*ConversationSummary, error)

	// MarkConversationRead marks all unread messages from fromUserID to
	// readerID as read, returning how many rows changed.
	MarkConversationRead(ctx context.Context, readerID, fromUserID int64) (int64, error)

	// SoftDeleteMessage tombstones a message and returns the updated record.
	SoftDeleteMessage(ctx context.Context, id int64) (*DirectMessage, error)

	// CountUnreadMessages returns the number of unread, undeleted messages
	// addressed to userID.
	CountUnreadMessages(ctx context.Context, userID int64) (int64, error)

	// CountUnreadBySender returns unread counts keyed by sender ID.
	CountUnreadBySender(ctx context.Context, userID int64) (map[int64]int64, error)
}

// PollStore handles polls and votes.
type PollStore interface {
	// CreatePoll attaches a poll with the given options to a post.
	CreatePoll(ctx context.Context, postID int64, options []string, expiresAt time.Time) (*Poll, error)

	// GetPollByID retrieves a poll with options and tallies.
	GetPollByID(ctx context.Context, id int64) (*Poll, error)

	// GetPollByPostID retrieves the poll attached to a post, if any.
	GetPollByPostID(ctx context.Context, postID int64) (*Poll, error)

	// RecordVote stores one vote and increments the option tally atomically.
	// Returns ErrAlreadyVoted when userID has voted in this poll before and
	// ErrNotFound when the option does not belong to the poll.
	RecordVote(ctx context.Context, pollID, optionID, userID int64) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	FollowStore
	PostStore
	NotificationStore
	MessageStore
	PollStore

	// Close closes the underlying database connection.
	Close() error
}
