package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/avelichko/flock-server/internal/realtime"
	"github.com/avelichko/flock-server/internal/store"
)

// DMHandlers provides HTTP handlers for direct messages.
type DMHandlers struct {
	store   store.Store
	actions *realtime.Actions
	fanout  *realtime.Fanout
	log     *zerolog.Logger
}

// NewDMHandlers creates a new direct message handlers instance.
func NewDMHandlers(st store.Store, actions *realtime.Actions, fanout *realtime.Fanout, logger *zerolog.Logger) *DMHandlers {
	return &DMHandlers{
		store:   st,
		actions: actions,
		fanout:  fanout,
		log:     logger,
	}
}

// SendMessageRequest represents the send message request body.
type SendMessageRequest struct {
	ToUserID int64  `json:"to_user_id" binding:"required"`
	Text     string `json:"text"`
	GifURL   string `json:"gif_url"`
}

// MessageResponse represents a direct message in API responses.
type MessageResponse struct {
	ID         int64      `json:"id"`
	SenderID   int64      `json:"sender_id"`
	ReceiverID int64      `json:"receiver_id"`
	Text       string     `json:"text"`
	GifURL     string     `json:"gif_url,omitempty"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	IsDeleted  bool       `json:"is_deleted"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ConversationResponse is one entry in the conversation list.
type ConversationResponse struct {
	PartnerID   int64           `json:"partner_id"`
	LastMessage MessageResponse `json:"last_message"`
	Unread      int64           `json:"unread"`
}

func messageResponse(m *store.DirectMessage) MessageResponse {
	resp := MessageResponse{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		ReadAt:     m.ReadAt,
		IsDeleted:  m.IsDeleted,
		DeletedAt:  m.DeletedAt,
		CreatedAt:  m.CreatedAt,
	}
	// Tombstoned messages keep their metadata but hide content.
	if !m.IsDeleted {
		resp.Text = m.Text
		resp.GifURL = m.GifURL
	}
	return resp
}

// Send handles sending a direct message over REST. Delivery to connected
// clients rides the same path as the websocket action.
// POST /api/messages
func (h *DMHandlers) Send(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	sender, err := h.store.GetUserByID(ctx, uid)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to load sender")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	msg, err := h.actions.SendDirectMessage(ctx, sender, req.ToUserID, req.Text, req.GifURL)
	if err != nil {
		var actionErr *realtime.ActionError
		if errors.As(err, &actionErr) {
			c.JSON(actionErrorStatus(actionErr), ErrorResponse{Error: actionErr.Message})
			return
		}
		h.log.Error().Err(err).Msg("failed to send message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusCreated, messageResponse(msg))
}

// History handles paginated conversation history with one partner.
// GET /api/messages/:userID?limit=50&before=123
func (h *DMHandlers) History(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	partnerID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
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

	messages, err := h.store.ListConversation(c.Request.Context(), uid, partnerID, limit, beforeID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load conversation")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	resp := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		resp = append(resp, messageResponse(m))
	}
	c.JSON(http.StatusOK, resp)
}

// ListConversations handles the conversation overview with unread counts.
// GET /api/messages/conversations
func (h *DMHandlers) ListConversations(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	ctx := c.Request.Context()
	conversations, err := h.store.ListConversations(ctx, uid)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load conversations")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	unread, err := h.store.CountUnreadBySender(ctx, uid)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to count unread")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	resp := make([]ConversationResponse, 0, len(conversations))
	for _, conv := range conversations {
		resp = append(resp, ConversationResponse{
			PartnerID:   conv.PartnerID,
			LastMessage: messageResponse(&conv.LastMessage),
			Unread:      unread[conv.PartnerID],
		})
	}
	c.JSON(http.StatusOK, resp)
}

// MarkRead marks a conversation as read and notifies the partner.
// POST /api/messages/:userID/read
func (h *DMHandlers) MarkRead(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	partnerID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
		return
	}

	changed, err := h.store.MarkConversationRead(c.Request.Context(), uid, partnerID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to mark conversation read")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if changed > 0 {
		h.fanout.MessagesRead(uid, partnerID)
	}
	c.JSON(http.StatusOK, gin.H{"marked": changed})
}

// Delete tombstones a message the caller sent.
// DELETE /api/messages/:id
func (h *DMHandlers) Delete(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	messageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid message id"})
		return
	}

	ctx := c.Request.Context()
	msg, err := h.store.GetMessageByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "message not found"})
			return
		}
		h.log.Error().Err(err).Msg("failed to load message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if msg.SenderID != uid {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not your message"})
		return
	}
	if msg.IsDeleted {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "message already deleted"})
		return
	}

	deleted, err := h.store.SoftDeleteMessage(ctx, messageID)
	if err != nil {
		h.log.Error().Err(err).Int64("message_id", messageID).Msg("failed to delete message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	h.fanout.MessageDeleted(deleted)
	c.JSON(http.StatusOK, messageResponse(deleted))
}

// UnreadCount returns the caller's total unread message count.
// GET /api/messages/unread-count
func (h *DMHandlers) UnreadCount(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	count, err := h.store.CountUnreadMessages(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to count unread messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}
