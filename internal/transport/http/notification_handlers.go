package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/avelichko/flock-server/internal/realtime"
	"github.com/avelichko/flock-server/internal/store"
)

// NotificationHandlers provides HTTP handlers for notifications.
type NotificationHandlers struct {
	store  store.Store
	fanout *realtime.Fanout
	log    *zerolog.Logger
}

// NewNotificationHandlers creates a new notification handlers instance.
func NewNotificationHandlers(st store.Store, fanout *realtime.Fanout, logger *zerolog.Logger) *NotificationHandlers {
	return &NotificationHandlers{
		store:  st,
		fanout: fanout,
		log:    logger,
	}
}

// NotificationResponse represents a notification in API responses.
type NotificationResponse struct {
	ID         int64                  `json:"id"`
	Type       store.NotificationType `json:"type"`
	SourceUser store.UserSummary      `json:"source_user"`
	PostID     *int64                 `json:"post_id,omitempty"`
	IsRead     bool                   `json:"is_read"`
	CreatedAt  time.Time              `json:"created_at"`
}

// MarkReadRequest represents the mark notifications read request body. An
// empty or absent ids list marks everything read.
type MarkReadRequest struct {
	IDs []int64 `json:"ids"`
}

// List handles paginated notification listing with hydrated source users.
// GET /api/notifications?limit=20&before=123
func (h *NotificationHandlers) List(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = parsed
	}
	var beforeID *int64
	if raw := c.Query("before"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid before cursor"})
			return
		}
		beforeID = &parsed
	}

	ctx := c.Request.Context()
	notifications, err := h.store.ListNotifications(ctx, uid, limit, beforeID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list notifications")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	// Hydrate source users, deduplicating lookups across the page. A source
	// that fails to resolve degrades to a bare-ID summary instead of
	// shrinking the page.
	sources := make(map[int64]store.UserSummary)
	resp := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		summary, ok := sources[n.SourceUserID]
		if !ok {
			source, err := h.store.GetUserByID(ctx, n.SourceUserID)
			if err != nil {
				h.log.Warn().Err(err).Int64("source_user_id", n.SourceUserID).Msg("failed to hydrate notification source")
				summary = store.UserSummary{ID: n.SourceUserID}
			} else {
				summary = source.Summary()
			}
			sources[n.SourceUserID] = summary
		}
		resp = append(resp, NotificationResponse{
			ID:         n.ID,
			Type:       n.Type,
			SourceUser: summary,
			PostID:     n.SourcePostID,
			IsRead:     n.IsRead,
			CreatedAt:  n.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// UnreadCount returns the caller's unread notification count.
// GET /api/notifications/unread-count
func (h *NotificationHandlers) UnreadCount(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	count, err := h.store.CountUnreadNotifications(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to count unread notifications")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkRead marks notifications read and echoes the change to the caller's
// own channel so other open tabs reconcile.
// POST /api/notifications/read
func (h *NotificationHandlers) MarkRead(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.store.MarkNotificationsRead(c.Request.Context(), uid, req.IDs); err != nil {
		h.log.Error().Err(err).Msg("failed to mark notifications read")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	h.fanout.NotificationsRead(uid, req.IDs)
	c.Status(http.StatusNoContent)
}
