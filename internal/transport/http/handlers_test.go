package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/avelichko/flock-server/internal/config"
	"github.com/avelichko/flock-server/internal/realtime"
	"github.com/avelichko/flock-server/internal/store"
)

func TestHealthEndpoint(t *testing.T) {
	e := startTestServer(t)

	resp, err := e.ts.Client().Get(e.ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	e := startTestServer(t)

	token := e.registerUser(t, "alice", "secret123")
	if token == "" {
		t.Fatal("expected a token from register")
	}

	// Duplicate username conflicts, case-insensitively.
	resp := e.doJSON(t, "POST", "/api/register", "", RegisterRequest{Username: "Alice", Password: "secret123"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected conflict on duplicate register, got %d", resp.StatusCode)
	}

	resp = e.doJSON(t, "POST", "/api/login", "", LoginRequest{Username: "alice", Password: "secret123"})
	body := decodeBody[AuthResponse](t, resp)
	if resp.StatusCode != http.StatusOK || body.Token == "" {
		t.Fatalf("login failed: status %d", resp.StatusCode)
	}

	resp = e.doJSON(t, "POST", "/api/login", "", LoginRequest{Username: "alice", Password: "wrong"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized on bad password, got %d", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	e := startTestServer(t)

	resp, err := e.ts.Client().Get(e.ts.URL + "/api/timeline")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized without token, got %d", resp.StatusCode)
	}
}

func TestFollowLifecycle(t *testing.T) {
	e := startTestServer(t)

	aliceToken := e.registerUser(t, "alice", "secret123")
	e.registerUser(t, "bob", "secret123")

	resp := e.doJSON(t, "POST", "/api/users/bob/follow", aliceToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("follow failed: %d", resp.StatusCode)
	}

	resp = e.doJSON(t, "POST", "/api/users/bob/follow", aliceToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected conflict on duplicate follow, got %d", resp.StatusCode)
	}

	resp = e.doJSON(t, "POST", "/api/users/alice/follow", aliceToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request on self follow, got %d", resp.StatusCode)
	}

	resp = e.doJSON(t, "GET", "/api/users/bob", aliceToken, nil)
	profile := decodeBody[ProfileResponse](t, resp)
	if profile.Username != "bob" || profile.Followers != 1 || !profile.IsFollowing {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	resp = e.doJSON(t, "DELETE", "/api/users/bob/follow", aliceToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("unfollow failed: %d", resp.StatusCode)
	}

	resp = e.doJSON(t, "DELETE", "/api/users/bob/follow", aliceToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found on repeated unfollow, got %d", resp.StatusCode)
	}
}

func TestPostLifecycle(t *testing.T) {
	e := startTestServer(t)

	aliceToken := e.registerUser(t, "alice", "secret123")
	bobToken := e.registerUser(t, "bob", "secret123")

	resp := e.doJSON(t, "POST", "/api/posts", aliceToken, CreatePostRequest{Text: "hello #general world"})
	post := decodeBody[PostResponse](t, resp)
	if resp.StatusCode != http.StatusCreated || post.ID == 0 || post.Author.Username != "alice" {
		t.Fatalf("create post failed: status %d, %+v", resp.StatusCode, post)
	}

	// Bob likes it; a second like conflicts.
	likePath := "/api/posts/" + itoa(post.ID) + "/like"
	resp = e.doJSON(t, "POST", likePath, bobToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("like failed: %d", resp.StatusCode)
	}
	resp = e.doJSON(t, "POST", likePath, bobToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected conflict on duplicate like, got %d", resp.StatusCode)
	}

	resp = e.doJSON(t, "GET", "/api/posts/"+itoa(post.ID), aliceToken, nil)
	fetched := decodeBody[PostResponse](t, resp)
	if fetched.Likes != 1 {
		t.Fatalf("expected 1 like, got %+v", fetched)
	}

	// The like produced a persisted notification for alice.
	resp = e.doJSON(t, "GET", "/api/notifications", aliceToken, nil)
	notifications := decodeBody[[]NotificationResponse](t, resp)
	if len(notifications) != 1 || notifications[0].Type != "LIKE" || notifications[0].SourceUser.Username != "bob" {
		t.Fatalf("unexpected notifications: %+v", notifications)
	}

	// Only the author may delete.
	resp = e.doJSON(t, "DELETE", "/api/posts/"+itoa(post.ID), bobToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected forbidden deleting someone else's post, got %d", resp.StatusCode)
	}
	resp = e.doJSON(t, "DELETE", "/api/posts/"+itoa(post.ID), aliceToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete failed: %d", resp.StatusCode)
	}
}

func TestPollOverREST(t *testing.T) {
	e := startTestServer(t)

	aliceToken := e.registerUser(t, "alice", "secret123")
	bobToken := e.registerUser(t, "bob", "secret123")

	resp := e.doJSON(t, "POST", "/api/posts", aliceToken, CreatePostRequest{
		Text: "pick a side",
		Poll: &CreatePollRequest{Options: []string{"red", "blue"}, DurationMinutes: 60},
	})
	post := decodeBody[PostResponse](t, resp)
	if post.Poll == nil || len(post.Poll.Options) != 2 {
		t.Fatalf("expected poll on post: %+v", post)
	}

	votePath := "/api/polls/" + itoa(post.Poll.ID) + "/vote"
	resp = e.doJSON(t, "POST", votePath, bobToken, map[string]int64{"option_id": post.Poll.Options[0].ID})
	updated := decodeBody[realtime.PollPayload](t, resp)
	if resp.StatusCode != http.StatusOK || updated.Options[0].VoteCount != 1 {
		t.Fatalf("vote failed: status %d, %+v", resp.StatusCode, updated)
	}

	resp = e.doJSON(t, "POST", votePath, bobToken, map[string]int64{"option_id": post.Poll.Options[1].ID})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected conflict on repeat vote, got %d", resp.StatusCode)
	}
}

func TestDirectMessagesOverREST(t *testing.T) {
	e := startTestServer(t)

	aliceToken := e.registerUser(t, "alice", "secret123")
	bobToken := e.registerUser(t, "bob", "secret123")

	resp := e.doJSON(t, "POST", "/api/messages", aliceToken, SendMessageRequest{ToUserID: 2, Text: "hi bob"})
	msg := decodeBody[MessageResponse](t, resp)
	if resp.StatusCode != http.StatusCreated || msg.Text != "hi bob" {
		t.Fatalf("send failed: status %d, %+v", resp.StatusCode, msg)
	}

	// Self-target is rejected.
	resp = e.doJSON(t, "POST", "/api/messages", aliceToken, SendMessageRequest{ToUserID: 1, Text: "hi me"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request on self dm, got %d", resp.StatusCode)
	}

	resp = e.doJSON(t, "GET", "/api/messages/unread-count", bobToken, nil)
	unread := decodeBody[map[string]int64](t, resp)
	if unread["unread"] != 1 {
		t.Fatalf("expected 1 unread for bob, got %v", unread)
	}

	resp = e.doJSON(t, "GET", "/api/messages/1", bobToken, nil)
	history := decodeBody[[]MessageResponse](t, resp)
	if len(history) != 1 || history[0].ID != msg.ID {
		t.Fatalf("unexpected history: %+v", history)
	}

	resp = e.doJSON(t, "POST", "/api/messages/1/read", bobToken, nil)
	marked := decodeBody[map[string]int64](t, resp)
	if marked["marked"] != 1 {
		t.Fatalf("expected 1 marked, got %v", marked)
	}

	// Delete: only the sender, only once; content is hidden afterwards.
	resp = e.doJSON(t, "DELETE", "/api/messages/"+itoa(msg.ID), bobToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected forbidden deleting someone else's message, got %d", resp.StatusCode)
	}
	resp = e.doJSON(t, "DELETE", "/api/messages/"+itoa(msg.ID), aliceToken, nil)
	deleted := decodeBody[MessageResponse](t, resp)
	if !deleted.IsDeleted || deleted.Text != "" {
		t.Fatalf("expected tombstone, got %+v", deleted)
	}
	resp = e.doJSON(t, "DELETE", "/api/messages/"+itoa(msg.ID), aliceToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected conflict on double delete, got %d", resp.StatusCode)
	}
}

func TestWriteRoutesRateLimited(t *testing.T) {
	e := startCustomTestServer(t, func(cfg *config.Config) {
		cfg.PostRateLimit = 2
		cfg.DMRateLimit = 1
	}, nil)

	aliceToken := e.registerUser(t, "alice", "secret123")
	e.registerUser(t, "bob", "secret123")

	for i := 0; i < 2; i++ {
		resp := e.doJSON(t, "POST", "/api/posts", aliceToken, CreatePostRequest{Text: "hello"})
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("post %d failed: %d", i+1, resp.StatusCode)
		}
	}
	resp := e.doJSON(t, "POST", "/api/posts", aliceToken, CreatePostRequest{Text: "one too many"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over the post limit, got %d", resp.StatusCode)
	}

	// The DM route has its own budget, untouched by the post limiter.
	resp = e.doJSON(t, "POST", "/api/messages", aliceToken, SendMessageRequest{ToUserID: 2, Text: "hi"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first dm failed: %d", resp.StatusCode)
	}
	resp = e.doJSON(t, "POST", "/api/messages", aliceToken, SendMessageRequest{ToUserID: 2, Text: "again"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over the dm limit, got %d", resp.StatusCode)
	}

	// Reads stay unlimited.
	resp = e.doJSON(t, "GET", "/api/timeline", aliceToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("timeline should not be rate limited, got %d", resp.StatusCode)
	}
}

// vanishedUserStore makes one user unresolvable by ID, simulating a lookup
// failure during notification hydration.
type vanishedUserStore struct {
	store.Store
	missingID int64
}

func (s *vanishedUserStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	if s.missingID != 0 && id == s.missingID {
		return nil, store.ErrNotFound
	}
	return s.Store.GetUserByID(ctx, id)
}

func TestNotificationListToleratesMissingSource(t *testing.T) {
	vanished := &vanishedUserStore{}
	e := startCustomTestServer(t, nil, func(st store.Store) store.Store {
		vanished.Store = st
		return vanished
	})

	aliceToken := e.registerUser(t, "alice", "secret123")
	bobToken := e.registerUser(t, "bob", "secret123")

	resp := e.doJSON(t, "POST", "/api/posts", aliceToken, CreatePostRequest{Text: "hello"})
	post := decodeBody[PostResponse](t, resp)

	resp = e.doJSON(t, "POST", "/api/posts/"+itoa(post.ID)+"/like", bobToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("like failed: %d", resp.StatusCode)
	}

	resp = e.doJSON(t, "GET", "/api/users/bob", aliceToken, nil)
	bob := decodeBody[ProfileResponse](t, resp)

	// Bob's record stops resolving; the notification must still come back,
	// with a bare-ID summary instead of vanishing from the page.
	vanished.missingID = bob.ID

	resp = e.doJSON(t, "GET", "/api/notifications", aliceToken, nil)
	notifications := decodeBody[[]NotificationResponse](t, resp)
	if len(notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifications))
	}
	if notifications[0].SourceUser.ID != bob.ID || notifications[0].SourceUser.Username != "" {
		t.Fatalf("expected bare-ID source summary, got %+v", notifications[0].SourceUser)
	}
}
