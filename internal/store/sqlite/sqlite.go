package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/avelichko/flock-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens the database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup opens the database and runs a setup function before use.
// Tests use it to apply a custom schema or seed data.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isConstraintErr(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, displayName, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, display_name, password_hash)
		VALUES (?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, displayName, passwordHash)
	if err != nil {
		if isConstraintErr(err) {
			return nil, store.ErrDuplicate
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, display_name, password_hash, avatar_url, created_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByUsername retrieves a user by username (case-insensitive, the
// username column is COLLATE NOCASE).
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, display_name, password_hash, avatar_url, created_at
		FROM users
		WHERE username = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, username))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.DisplayName,
		&user.PasswordHash,
		&user.AvatarURL,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// ==== FollowStore implementation ====

// AddFollow records follower -> followee.
func (s *SQLiteStore) AddFollow(ctx context.Context, followerID, followeeID int64) error {
	query := `INSERT INTO follows (follower_id, followee_id) VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, query, followerID, followeeID); err != nil {
		if isConstraintErr(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert follow: %w", err)
	}
	return nil
}

// RemoveFollow deletes the follower -> followee edge.
func (s *SQLiteStore) RemoveFollow(ctx context.Context, followerID, followeeID int64) error {
	query := `DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`
	result, err := s.db.ExecContext(ctx, query, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("delete follow: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// IsFollowing reports whether follower -> followee exists.
func (s *SQLiteStore) IsFollowing(ctx context.Context, followerID, followeeID int64) (bool, error) {
	query := `SELECT 1 FROM follows WHERE follower_id = ? AND followee_id = ?`
	var one int
	err := s.db.QueryRowContext(ctx, query, followerID, followeeID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query follow: %w", err)
	}
	return true, nil
}

// ListFollowers returns the IDs of everyone following followeeID.
func (s *SQLiteStore) ListFollowers(ctx context.Context, followeeID int64) ([]int64, error) {
	query := `SELECT follower_id FROM follows WHERE followee_id = ?`
	rows, err := s.db.QueryContext(ctx, query, followeeID)
	if err != nil {
		return nil, fmt.Errorf("query followers: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan follower: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ==== PostStore implementation ====

// CreatePost persists a post.
func (s *SQLiteStore) CreatePost(ctx context.Context, authorID int64, text string, parentID *int64) (*store.Post, error) {
	query := `INSERT INTO posts (author_id, text, parent_id) VALUES (?, ?, ?)`
	result, err := s.db.ExecContext(ctx, query, authorID, text, parentID)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetPostByID(ctx, id)
}

// GetPostByID retrieves a post by ID.
func (s *SQLiteStore) GetPostByID(ctx context.Context, id int64) (*store.Post, error) {
	query := `
		SELECT id, author_id, text, parent_id, created_at
		FROM posts
		WHERE id = ?
	`
	var post store.Post
	var parentID sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&post.ID,
		&post.AuthorID,
		&post.Text,
		&parentID,
		&post.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query post: %w", err)
	}
	if parentID.Valid {
		post.ParentID = &parentID.Int64
	}
	return &post, nil
}

// ListTimeline returns newest-first posts.
func (s *SQLiteStore) ListTimeline(ctx context.Context, limit int, beforeID *int64) ([]*store.Post, error) {
	query := `
		SELECT id, author_id, text, parent_id, created_at
		FROM posts
		WHERE (? IS NULL OR id < ?)
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, beforeID, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("query timeline: %w", err)
	}
	defer rows.Close()

	var posts []*store.Post
	for rows.Next() {
		var post store.Post
		var parentID sql.NullInt64
		if err := rows.Scan(&post.ID, &post.AuthorID, &post.Text, &parentID, &post.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		if parentID.Valid {
			post.ParentID = &parentID.Int64
		}
		posts = append(posts, &post)
	}
	return posts, rows.Err()
}

// DeletePost removes a post; dependent rows cascade.
func (s *SQLiteStore) DeletePost(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AddLike records a like.
func (s *SQLiteStore) AddLike(ctx context.Context, userID, postID int64) error {
	return s.addEdge(ctx, "likes", userID, postID)
}

// RemoveLike deletes a like.
func (s *SQLiteStore) RemoveLike(ctx context.Context, userID, postID int64) error {
	return s.removeEdge(ctx, "likes", userID, postID)
}

// HasLiked reports whether userID liked postID.
func (s *SQLiteStore) HasLiked(ctx context.Context, userID, postID int64) (bool, error) {
	return s.hasEdge(ctx, "likes", userID, postID)
}

// LikeCount returns the number of likes on postID.
func (s *SQLiteStore) LikeCount(ctx context.Context, postID int64) (int64, error) {
	return s.countEdges(ctx, "likes", postID)
}

// AddRetweet records a repost.
func (s *SQLiteStore) AddRetweet(ctx context.Context, userID, postID int64) error {
	return s.addEdge(ctx, "retweets", userID, postID)
}

// RemoveRetweet deletes a repost.
func (s *SQLiteStore) RemoveRetweet(ctx context.Context, userID, postID int64) error {
	return s.removeEdge(ctx, "retweets", userID, postID)
}

// HasRetweeted reports whether userID reposted postID.
func (s *SQLiteStore) HasRetweeted(ctx context.Context, userID, postID int64) (bool, error) {
	return s.hasEdge(ctx, "retweets", userID, postID)
}

// RetweetCount returns the number of reposts of postID.
func (s *SQLiteStore) RetweetCount(ctx context.Context, postID int64) (int64, error) {
	return s.countEdges(ctx, "retweets", postID)
}

// likes and retweets share the same (user_id, post_id) shape; table names
// come from constants above, never from caller input.
func (s *SQLiteStore) addEdge(ctx context.Context, table string, userID, postID int64) error {
	query := fmt.Sprintf(`INSERT INTO %s (user_id, post_id) VALUES (?, ?)`, table)
	if _, err := s.db.ExecContext(ctx, query, userID, postID); err != nil {
		if isConstraintErr(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func (s *SQLiteStore) removeEdge(ctx context.Context, table string, userID, postID int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = ? AND post_id = ?`, table)
	result, err := s.db.ExecContext(ctx, query, userID, postID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) hasEdge(ctx context.Context, table string, userID, postID int64) (bool, error) {
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE user_id = ? AND post_id = ?`, table)
	var one int
	err := s.db.QueryRowContext(ctx, query, userID, postID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query %s: %w", table, err)
	}
	return true, nil
}

func (s *SQLiteStore) countEdges(ctx context.Context, table string, postID int64) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE post_id = ?`, table)
	var count int64
	if err := s.db.QueryRowContext(ctx, query, postID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}

// TagPost links a hashtag to a post, creating the hashtag row on first use.
func (s *SQLiteStore) TagPost(ctx context.Context, postID int64, tag string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO hashtags (tag) VALUES (?)`, tag); err != nil {
		return fmt.Errorf("upsert hashtag: %w", err)
	}

	query := `
		INSERT OR IGNORE INTO post_tags (post_id, hashtag_id)
		SELECT ?, id FROM hashtags WHERE tag = ?
	`
	if _, err := tx.ExecContext(ctx, query, postID, tag); err != nil {
		return fmt.Errorf("link hashtag: %w", err)
	}

	return tx.Commit()
}

// ==== NotificationStore implementation ====

// CreateNotification persists a notification.
func (s *SQLiteStore) CreateNotification(ctx context.Context, userID int64, typ store.NotificationType, sourceUserID int64, sourcePostID *int64) (*store.Notification, error) {
	query := `
		INSERT INTO notifications (user_id, type, source_user_id, source_post_id)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, userID, typ, sourceUserID, sourcePostID)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.getNotificationByID(ctx, id)
}

func (s *SQLiteStore) getNotificationByID(ctx context.Context, id int64) (*store.Notification, error) {
	query := `
		SELECT id, user_id, type, source_user_id, source_post_id, is_read, created_at
		FROM notifications
		WHERE id = ?
	`
	var n store.Notification
	var sourcePostID sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&n.ID,
		&n.UserID,
		&n.Type,
		&n.SourceUserID,
		&sourcePostID,
		&n.IsRead,
		&n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query notification: %w", err)
	}
	if sourcePostID.Valid {
		n.SourcePostID = &sourcePostID.Int64
	}
	return &n, nil
}

// ListNotifications returns newest-first notifications for userID.
func (s *SQLiteStore) ListNotifications(ctx context.Context, userID int64, limit int, beforeID *int64) ([]*store.Notification, error) {
	query := `
		SELECT id, user_id, type, source_user_id, source_post_id, is_read, created_at
		FROM notifications
		WHERE user_id = ? AND (? IS NULL OR id < ?)
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, userID, beforeID, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*store.Notification
	for rows.Next() {
		var n store.Notification
		var sourcePostID sql.NullInt64
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.SourceUserID, &sourcePostID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if sourcePostID.Valid {
			n.SourcePostID = &sourcePostID.Int64
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// CountUnreadNotifications returns the number of unread notifications.
func (s *SQLiteStore) CountUnreadNotifications(ctx context.Context, userID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`
	var count int64
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkNotificationsRead marks the given IDs read; empty marks all.
func (s *SQLiteStore) MarkNotificationsRead(ctx context.Context, userID int64, ids []int64) error {
	if len(ids) == 0 {
		query := `UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`
		if _, err := s.db.ExecContext(ctx, query, userID); err != nil {
			return fmt.Errorf("mark all notifications read: %w", err)
		}
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `UPDATE notifications SET is_read = 1 WHERE user_id = ? AND id = ?`
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, query, userID, id); err != nil {
			return fmt.Errorf("mark notification %d read: %w", id, err)
		}
	}
	return tx.Commit()
}

// ==== MessageStore implementation ====

const messageColumns = `id, sender_id, receiver_id, text, gif_url, read_at, is_deleted, deleted_at, created_at`

// CreateMessage persists a direct message.
func (s *SQLiteStore) CreateMessage(ctx context.Context, senderID, receiverID int64, text, gifURL string) (*store.DirectMessage, error) {
	query := `
		INSERT INTO direct_messages (sender_id, receiver_id, text, gif_url)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, senderID, receiverID, text, gifURL)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetMessageByID(ctx, id)
}

// GetMessageByID retrieves a message by ID.
func (s *SQLiteStore) GetMessageByID(ctx context.Context, id int64) (*store.DirectMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM direct_messages WHERE id = ?`
	row := s.db.QueryRowContext(ctx, query, id)
	msg, err := scanMessage(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query message: %w", err)
	}
	return msg, nil
}

func scanMessage(scan func(dest ...any) error) (*store.DirectMessage, error) {
	var m store.DirectMessage
	var readAt, deletedAt sql.NullTime
	err := scan(
		&m.ID,
		&m.SenderID,
		&m.ReceiverID,
		&m.Text,
		&m.GifURL,
		&readAt,
		&m.IsDeleted,
		&deletedAt,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if readAt.Valid {
		m.ReadAt = &readAt.Time
	}
	if deletedAt.Valid {
		m.DeletedAt = &deletedAt.Time
	}
	return &m, nil
}

// ListConversation returns newest-first messages between two users.
func (s *SQLiteStore) ListConversation(ctx context.Context, userID, otherUserID int64, limit int, beforeID *int64) ([]*store.DirectMessage, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM direct_messages
		WHERE ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))
		  AND (? IS NULL OR id < ?)
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, userID, otherUserID, otherUserID, userID, beforeID, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	defer rows.Close()

	var messages []*store.DirectMessage
	for rows.Next() {
		msg, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// ListConversations returns the latest message per conversation partner.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID int64) ([]*store.ConversationSummary, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM direct_messages
		WHERE id IN (
			SELECT MAX(id)
			FROM direct_messages
			WHERE sender_id = ? OR receiver_id = ?
			GROUP BY CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END
		)
		ORDER BY id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*store.ConversationSummary
	for rows.Next() {
		msg, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		partnerID := msg.SenderID
		if partnerID == userID {
			partnerID = msg.ReceiverID
		}
		conversations = append(conversations, &store.ConversationSummary{
			PartnerID:   partnerID,
			LastMessage: *msg,
		})
	}
	return conversations, rows.Err()
}

// MarkConversationRead marks all unread messages from fromUserID to readerID.
func (s *SQLiteStore) MarkConversationRead(ctx context.Context, readerID, fromUserID int64) (int64, error) {
	query := `
		UPDATE direct_messages
		SET read_at = ?
		WHERE sender_id = ? AND receiver_id = ? AND read_at IS NULL AND is_deleted = 0
	`
	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), fromUserID, readerID)
	if err != nil {
		return 0, fmt.Errorf("mark conversation read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// SoftDeleteMessage tombstones a message.
func (s *SQLiteStore) SoftDeleteMessage(ctx context.Context, id int64) (*store.DirectMessage, error) {
	query := `
		UPDATE direct_messages
		SET is_deleted = 1, deleted_at = ?
		WHERE id = ? AND is_deleted = 0
	`
	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("delete message: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetMessageByID(ctx, id)
}

// CountUnreadMessages returns the number of unread, undeleted messages.
func (s *SQLiteStore) CountUnreadMessages(ctx context.Context, userID int64) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM direct_messages
		WHERE receiver_id = ? AND read_at IS NULL AND is_deleted = 0
	`
	var count int64
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return count, nil
}

// CountUnreadBySender returns unread counts keyed by sender ID.
func (s *SQLiteStore) CountUnreadBySender(ctx context.Context, userID int64) (map[int64]int64, error) {
	query := `
		SELECT sender_id, COUNT(*)
		FROM direct_messages
		WHERE receiver_id = ? AND read_at IS NULL AND is_deleted = 0
		GROUP BY sender_id
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query unread by sender: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int64)
	for rows.Next() {
		var senderID, count int64
		if err := rows.Scan(&senderID, &count); err != nil {
			return nil, fmt.Errorf("scan unread count: %w", err)
		}
		counts[senderID] = count
	}
	return counts, rows.Err()
}

// ==== PollStore implementation ====

// CreatePoll attaches a poll with options to a post.
func (s *SQLiteStore) CreatePoll(ctx context.Context, postID int64, options []string, expiresAt time.Time) (*store.Poll, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `INSERT INTO polls (post_id, expires_at) VALUES (?, ?)`, postID, expiresAt.UTC())
	if err != nil {
		if isConstraintErr(err) {
			return nil, store.ErrDuplicate
		}
		return nil, fmt.Errorf("insert poll: %w", err)
	}

	pollID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	for _, option := range options {
		if _, err := tx.ExecContext(ctx, `INSERT INTO poll_options (poll_id, text) VALUES (?, ?)`, pollID, option); err != nil {
			return nil, fmt.Errorf("insert poll option: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit poll: %w", err)
	}

	return s.GetPollByID(ctx, pollID)
}

// GetPollByID retrieves a poll with options and tallies.
func (s *SQLiteStore) GetPollByID(ctx context.Context, id int64) (*store.Poll, error) {
	query := `SELECT id, post_id, expires_at FROM polls WHERE id = ?`
	var poll store.Poll
	err := s.db.QueryRowContext(ctx, query, id).Scan(&poll.ID, &poll.PostID, &poll.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query poll: %w", err)
	}

	if err := s.loadPollOptions(ctx, &poll); err != nil {
		return nil, err
	}
	return &poll, nil
}

// GetPollByPostID retrieves the poll attached to a post.
func (s *SQLiteStore) GetPollByPostID(ctx context.Context, postID int64) (*store.Poll, error) {
	query := `SELECT id, post_id, expires_at FROM polls WHERE post_id = ?`
	var poll store.Poll
	err := s.db.QueryRowContext(ctx, query, postID).Scan(&poll.ID, &poll.PostID, &poll.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query poll: %w", err)
	}

	if err := s.loadPollOptions(ctx, &poll); err != nil {
		return nil, err
	}
	return &poll, nil
}

func (s *SQLiteStore) loadPollOptions(ctx context.Context, poll *store.Poll) error {
	query := `
		SELECT id, poll_id, text, vote_count
		FROM poll_options
		WHERE poll_id = ?
		ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, poll.ID)
	if err != nil {
		return fmt.Errorf("query poll options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var opt store.PollOption
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.Text, &opt.VoteCount); err != nil {
			return fmt.Errorf("scan poll option: %w", err)
		}
		poll.Options = append(poll.Options, opt)
	}
	return rows.Err()
}

// RecordVote stores one vote and increments the option tally atomically.
// The poll_votes primary key (poll_id, user_id) enforces one vote per user
// per poll.
func (s *SQLiteStore) RecordVote(ctx context.Context, pollID, optionID, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM poll_options WHERE id = ? AND poll_id = ?`, optionID, pollID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("query poll option: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO poll_votes (poll_id, option_id, user_id) VALUES (?, ?, ?)`, pollID, optionID, userID); err != nil {
		if isConstraintErr(err) {
			return store.ErrAlreadyVoted
		}
		return fmt.Errorf("insert vote: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE poll_options SET vote_count = vote_count + 1 WHERE id = ?`, optionID); err != nil {
		return fmt.Errorf("update tally: %w", err)
	}

	return tx.Commit()
}
