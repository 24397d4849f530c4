package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testJWTConfig() *JWTConfig {
	return &JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}
}

func TestTokenIdentityRoundTrip(t *testing.T) {
	cfg := testJWTConfig()

	token, err := GenerateToken(cfg, 42, "alice")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	ident, err := ValidateToken(cfg, token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if ident.UserID != 42 {
		t.Errorf("expected user ID 42, got %d", ident.UserID)
	}
	if ident.Username != "alice" {
		t.Errorf("expected username alice, got %s", ident.Username)
	}
}

func TestValidateTokenRejectsBadSubject(t *testing.T) {
	cfg := testJWTConfig()

	// Tokens whose subject is not a positive numeric user ID must be
	// rejected even when the signature and registered claims check out.
	for _, subject := range []string{"", "alice", "-1", "0"} {
		claims := tokenClaims{
			Username: "alice",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   subject,
				Issuer:    cfg.Issuer,
				Audience:  jwt.ClaimStrings{cfg.Audience},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				IssuedAt:  jwt.NewNumericDate(time.Now()),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Secret)
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		if _, err := ValidateToken(cfg, token); err == nil {
			t.Errorf("expected rejection for subject %q", subject)
		}
	}
}

func TestValidateTokenRejectsWrongIssuerAndAudience(t *testing.T) {
	cfg := testJWTConfig()

	otherIssuer := *cfg
	otherIssuer.Issuer = "someone-else"
	token, err := GenerateToken(&otherIssuer, 1, "alice")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := ValidateToken(cfg, token); err == nil {
		t.Error("expected rejection for foreign issuer")
	}

	otherAudience := *cfg
	otherAudience.Audience = "other-app"
	token, err = GenerateToken(&otherAudience, 1, "alice")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := ValidateToken(cfg, token); err == nil {
		t.Error("expected rejection for foreign audience")
	}
}
