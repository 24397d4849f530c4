package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/avelichko/flock-server/internal/auth"
	"github.com/avelichko/flock-server/internal/config"
	"github.com/avelichko/flock-server/internal/realtime"
	"github.com/avelichko/flock-server/internal/store"
	"github.com/avelichko/flock-server/internal/store/sqlite"
)

type testEnv struct {
	ts    *httptest.Server
	store store.Store
}

// startTestServer boots the full stack against an in-memory store.
func startTestServer(t *testing.T) *testEnv {
	t.Helper()
	return startCustomTestServer(t, nil, nil)
}

// startCustomTestServer boots the full stack with an optional config tweak
// and an optional store wrapper, for tests that need either.
func startCustomTestServer(t *testing.T, configure func(*config.Config), wrapStore func(store.Store) store.Store) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Default()
	cfg.JWTSecret = "test-secret"
	cfg.JWTIssuer = "test"
	cfg.JWTAudience = "test"
	if configure != nil {
		configure(&cfg)
	}

	var domainStore store.Store = st
	if wrapStore != nil {
		domainStore = wrapStore(st)
	}

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      time.Hour,
	})

	logger := zerolog.Nop()
	presence := realtime.NewPresence()
	channels := realtime.NewChannels()
	dispatcher := realtime.NewDispatcher(channels, &logger)
	gateway := realtime.NewGateway(presence, channels, dispatcher, &logger)
	fanout := realtime.NewFanout(domainStore, dispatcher, &logger)
	actions := realtime.NewActions(domainStore, presence, dispatcher, fanout, &logger)

	server := NewServer(authService, domainStore, gateway, actions, fanout, &cfg, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, store: st}
}

// registerUser creates an account over the API and returns its token.
func (e *testEnv) registerUser(t *testing.T, username, password string) string {
	t.Helper()

	resp := e.doJSON(t, "POST", "/api/register", "", RegisterRequest{
		Username: username,
		Password: password,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: unexpected status %d", username, resp.StatusCode)
	}

	var body AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return body.Token
}

// doJSON issues a JSON request, attaching the bearer token when non-empty.
func (e *testEnv) doJSON(t *testing.T, method, path, token string, payload any) *http.Response {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return out
}
