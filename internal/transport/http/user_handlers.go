package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/avelichko/flock-server/internal/realtime"
	"github.com/avelichko/flock-server/internal/store"
)

// UserHandlers provides HTTP handlers for profile and follow operations.
type UserHandlers struct {
	store  store.Store
	fanout *realtime.Fanout
	log    *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(st store.Store, fanout *realtime.Fanout, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		store:  st,
		fanout: fanout,
		log:    logger,
	}
}

// ProfileResponse represents a user profile in API responses.
type ProfileResponse struct {
	store.UserSummary
	Followers   int64 `json:"followers"`
	IsFollowing bool  `json:"is_following"`
}

// GetProfile handles profile lookup by username.
// GET /api/users/:username
func (h *UserHandlers) GetProfile(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	user, err := h.store.GetUserByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Msg("failed to load profile")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	followers, err := h.store.ListFollowers(c.Request.Context(), user.ID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to count followers")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	following, err := h.store.IsFollowing(c.Request.Context(), uid, user.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to check follow state")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{
		UserSummary: user.Summary(),
		Followers:   int64(len(followers)),
		IsFollowing: following,
	})
}

// Follow handles following a user.
// POST /api/users/:username/follow
func (h *UserHandlers) Follow(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	target, err := h.store.GetUserByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Msg("failed to load follow target")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if target.ID == uid {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cannot follow yourself"})
		return
	}

	if err := h.store.AddFollow(c.Request.Context(), uid, target.ID); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "already following"})
			return
		}
		h.log.Error().Err(err).Msg("failed to add follow")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	actor, err := h.store.GetUserByID(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to load actor")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	h.fanout.UserFollowed(c.Request.Context(), target.ID, actor)

	c.Status(http.StatusNoContent)
}

// Unfollow handles unfollowing a user.
// DELETE /api/users/:username/follow
func (h *UserHandlers) Unfollow(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	target, err := h.store.GetUserByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Msg("failed to load unfollow target")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if err := h.store.RemoveFollow(c.Request.Context(), uid, target.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "not following"})
			return
		}
		h.log.Error().Err(err).Msg("failed to remove follow")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}
