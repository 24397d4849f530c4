package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avelichko/flock-server/internal/store/sqlite"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := &JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}
	return NewService(st, cfg)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	token, err := svc.Register(ctx, "alice", "Alice", "password123")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	if _, err := svc.Register(ctx, "alice", "Alice", "password123"); !errors.Is(err, ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}

	if _, err := svc.Register(ctx, "al", "", "password123"); !errors.Is(err, ErrInvalidUsername) {
		t.Errorf("expected ErrInvalidUsername, got %v", err)
	}

	if _, err := svc.Register(ctx, "bob", "", "short"); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("expected ErrInvalidPassword, got %v", err)
	}

	if _, err := svc.Login(ctx, "alice", "password123"); err != nil {
		t.Errorf("Login failed: %v", err)
	}

	if _, err := svc.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}

	if _, err := svc.Login(ctx, "nobody", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestVerifyConnection(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	token, err := svc.Register(ctx, "alice", "Alice", "password123")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	user, err := svc.VerifyConnection(ctx, token)
	if err != nil {
		t.Fatalf("VerifyConnection failed: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("expected alice, got %s", user.Username)
	}

	if _, err := svc.VerifyConnection(ctx, ""); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated for empty credential, got %v", err)
	}

	if _, err := svc.VerifyConnection(ctx, "not-a-token"); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated for garbage credential, got %v", err)
	}

	// Token minted with a different secret must be rejected.
	otherCfg := &JWTConfig{Secret: []byte("other-secret"), TTL: time.Hour}
	forged, err := GenerateToken(otherCfg, user.ID, user.Username)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := svc.VerifyConnection(ctx, forged); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated for forged credential, got %v", err)
	}

	// Expired token must be rejected.
	expiredCfg := &JWTConfig{Secret: []byte("test-secret"), Issuer: "test", Audience: "test", TTL: -time.Minute}
	expired, err := GenerateToken(expiredCfg, user.ID, user.Username)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := svc.VerifyConnection(ctx, expired); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated for expired credential, got %v", err)
	}
}
