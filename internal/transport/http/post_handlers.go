package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/avelichko/flock-server/internal/realtime"
	"github.com/avelichko/flock-server/internal/store"
)

// PostHandlers provides HTTP handlers for posts, engagement and polls.
type PostHandlers struct {
	store   store.Store
	actions *realtime.Actions
	fanout  *realtime.Fanout
	log     *zerolog.Logger
}

// NewPostHandlers creates a new post handlers instance.
func NewPostHandlers(st store.Store, actions *realtime.Actions, fanout *realtime.Fanout, logger *zerolog.Logger) *PostHandlers {
	return &PostHandlers{
		store:   st,
		actions: actions,
		fanout:  fanout,
		log:     logger,
	}
}

// CreatePollRequest describes an optional poll attached to a new post.
type CreatePollRequest struct {
	Options         []string `json:"options" binding:"required,min=2,max=4,dive,required,max=64"`
	DurationMinutes int      `json:"duration_minutes" binding:"required,min=1,max=10080"`
}

// CreatePostRequest represents the create post request body.
type CreatePostRequest struct {
	Text     string             `json:"text" binding:"required,max=280"`
	ParentID *int64             `json:"parent_id"`
	Poll     *CreatePollRequest `json:"poll"`
}

// PostResponse represents a post in API responses.
type PostResponse struct {
	ID        int64                  `json:"id"`
	Author    store.UserSummary      `json:"author"`
	Text      string                 `json:"text"`
	ParentID  *int64                 `json:"parent_id,omitempty"`
	Likes     int64                  `json:"likes"`
	Retweets  int64                  `json:"retweets"`
	Poll      *realtime.PollPayload  `json:"poll,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// CreatePost handles post creation, including replies and attached polls.
// POST /api/posts
func (h *PostHandlers) CreatePost(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create post request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	if req.ParentID != nil {
		if _, err := h.store.GetPostByID(ctx, *req.ParentID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, ErrorResponse{Error: "parent post not found"})
				return
			}
			h.log.Error().Err(err).Msg("failed to load parent post")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
	}

	author, err := h.store.GetUserByID(ctx, uid)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to load author")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	post, err := h.store.CreatePost(ctx, uid, req.Text, req.ParentID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to create post")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	for _, tag := range realtime.ExtractHashtags(req.Text) {
		if err := h.store.TagPost(ctx, post.ID, tag); err != nil {
			h.log.Warn().Err(err).Str("tag", tag).Int64("post_id", post.ID).Msg("failed to tag post")
		}
	}

	var poll *store.Poll
	if req.Poll != nil {
		expires := time.Now().Add(time.Duration(req.Poll.DurationMinutes) * time.Minute)
		poll, err = h.store.CreatePoll(ctx, post.ID, req.Poll.Options, expires)
		if err != nil {
			h.log.Error().Err(err).Int64("post_id", post.ID).Msg("failed to create poll")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
	}

	h.fanout.PostCreated(ctx, post, author, poll)

	c.JSON(http.StatusCreated, PostResponse{
		ID:        post.ID,
		Author:    author.Summary(),
		Text:      post.Text,
		ParentID:  post.ParentID,
		Poll:      realtime.NewPollPayload(poll),
		CreatedAt: post.CreatedAt,
	})
}

// GetPost handles post lookup with engagement counts.
// GET /api/posts/:id
func (h *PostHandlers) GetPost(c *gin.Context) {
	postID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid post id"})
		return
	}

	ctx := c.Request.Context()
	post, err := h.store.GetPostByID(ctx, postID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "post not found"})
			return
		}
		h.log.Error().Err(err).Msg("failed to load post")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	resp, err := h.buildPostResponse(c, post)
	if err != nil {
		h.log.Error().Err(err).Int64("post_id", postID).Msg("failed to hydrate post")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Timeline handles paginated timeline lookup.
// GET /api/timeline?limit=20&before=123
func (h *PostHandlers) Timeline(c *gin.Context) {
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

	posts, err := h.store.ListTimeline(c.Request.Context(), limit, beforeID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load timeline")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	resp := make([]PostResponse, 0, len(posts))
	for _, post := range posts {
		one, err := h.buildPostResponse(c, post)
		if err != nil {
			h.log.Error().Err(err).Int64("post_id", post.ID).Msg("failed to hydrate post")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		resp = append(resp, one)
	}
	c.JSON(http.StatusOK, resp)
}

// DeletePost handles post deletion by its author.
// DELETE /api/posts/:id
func (h *PostHandlers) DeletePost(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	postID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid post id"})
		return
	}

	ctx := c.Request.Context()
	post, err := h.store.GetPostByID(ctx, postID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "post not found"})
			return
		}
		h.log.Error().Err(err).Msg("failed to load post")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if post.AuthorID != uid {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not your post"})
		return
	}

	if err := h.store.DeletePost(ctx, postID); err != nil {
		h.log.Error().Err(err).Int64("post_id", postID).Msg("failed to delete post")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Like handles liking a post.
// POST /api/posts/:id/like
func (h *PostHandlers) Like(c *gin.Context) {
	h.engage(c, h.store.AddLike, func(ctx *gin.Context, post *store.Post, actor *store.User) {
		h.fanout.PostLiked(ctx.Request.Context(), post, actor)
	})
}

// Unlike removes a like.
// DELETE /api/posts/:id/like
func (h *PostHandlers) Unlike(c *gin.Context) {
	h.engage(c, h.store.RemoveLike, nil)
}

// Retweet handles reposting.
// POST /api/posts/:id/retweet
func (h *PostHandlers) Retweet(c *gin.Context) {
	h.engage(c, h.store.AddRetweet, func(ctx *gin.Context, post *store.Post, actor *store.User) {
		h.fanout.PostRetweeted(ctx.Request.Context(), post, actor)
	})
}

// Unretweet removes a repost.
// DELETE /api/posts/:id/retweet
func (h *PostHandlers) Unretweet(c *gin.Context) {
	h.engage(c, h.store.RemoveRetweet, nil)
}

// Vote casts a poll vote over REST. The same validation and fan-out path as
// the websocket action.
// POST /api/polls/:id/vote
func (h *PostHandlers) Vote(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	pollID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid poll id"})
		return
	}

	var req struct {
		OptionID int64 `json:"option_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	voter, err := h.store.GetUserByID(ctx, uid)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to load voter")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	poll, err := h.actions.CastPollVote(ctx, voter, pollID, req.OptionID)
	if err != nil {
		var actionErr *realtime.ActionError
		if errors.As(err, &actionErr) {
			c.JSON(actionErrorStatus(actionErr), ErrorResponse{Error: actionErr.Message})
			return
		}
		h.log.Error().Err(err).Int64("poll_id", pollID).Msg("failed to cast vote")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, realtime.NewPollPayload(poll))
}

// engage shares the load-validate-mutate-notify shape of like and retweet.
func (h *PostHandlers) engage(c *gin.Context, mutate func(ctx context.Context, userID, postID int64) error, notify func(*gin.Context, *store.Post, *store.User)) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	postID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid post id"})
		return
	}

	ctx := c.Request.Context()
	post, err := h.store.GetPostByID(ctx, postID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "post not found"})
			return
		}
		h.log.Error().Err(err).Msg("failed to load post")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if err := mutate(ctx, uid, postID); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "already done"})
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
		default:
			h.log.Error().Err(err).Int64("post_id", postID).Msg("failed to update engagement")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	if notify != nil {
		actor, err := h.store.GetUserByID(ctx, uid)
		if err != nil {
			h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to load actor")
		} else {
			notify(c, post, actor)
		}
	}
	c.Status(http.StatusNoContent)
}

// buildPostResponse hydrates a stored post with its author, counts and poll.
func (h *PostHandlers) buildPostResponse(c *gin.Context, post *store.Post) (PostResponse, error) {
	ctx := c.Request.Context()

	author, err := h.store.GetUserByID(ctx, post.AuthorID)
	if err != nil {
		return PostResponse{}, err
	}
	likes, err := h.store.LikeCount(ctx, post.ID)
	if err != nil {
		return PostResponse{}, err
	}
	retweets, err := h.store.RetweetCount(ctx, post.ID)
	if err != nil {
		return PostResponse{}, err
	}
	poll, err := h.store.GetPollByPostID(ctx, post.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return PostResponse{}, err
	}

	return PostResponse{
		ID:        post.ID,
		Author:    author.Summary(),
		Text:      post.Text,
		ParentID:  post.ParentID,
		Likes:     likes,
		Retweets:  retweets,
		Poll:      realtime.NewPollPayload(poll),
		CreatedAt: post.CreatedAt,
	}, nil
}

// actionErrorStatus maps scoped action error codes onto HTTP statuses.
func actionErrorStatus(err *realtime.ActionError) int {
	switch err.Code {
	case realtime.CodeNotFound:
		return http.StatusNotFound
	case realtime.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
