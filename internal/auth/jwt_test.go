package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"registrar/internal/model"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	svc, err := NewTokenService("secret", time.Minute)
	if err != nil {
		t.Fatalf("service error: %v", err)
	}
	token, err := svc.Issue(model.Administrator{ID: "admin-1", Username: "admin"})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if claims.AdminID() != "admin-1" || claims.Username != "admin" {
		t.Fatalf("unexpected claims")
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != time.Minute {
		t.Fatalf("expected 1m lifetime, got %s", got)
	}
}

func TestMissingSecret(t *testing.T) {
	if _, err := NewTokenService("", time.Hour); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}

func TestVerifyRejects(t *testing.T) {
	svc, _ := NewTokenService("secret", 6*time.Hour)
	other, _ := NewTokenService("other-secret", 6*time.Hour)
	admin := model.Administrator{ID: "admin-1", Username: "admin"}

	foreign, err := other.Issue(admin)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	expiredSvc, _ := NewTokenService("secret", 6*time.Hour)
	expiredSvc.now = func() time.Time { return time.Now().Add(-7 * time.Hour) }
	expired, err := expiredSvc.Issue(admin)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "admin-1"},
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	for name, token := range map[string]string{
		"malformed":      "not-a-token",
		"foreign secret": foreign,
		"expired":        expired,
		"alg none":       noneToken,
		"no expiry":      noExpiry,
	} {
		if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":                 "",
		"Bearer abc":       "abc",
		"Bearer abc ":      "abc",
		"Bearer abc def":   "abc",
		"Bearer  abc":      "",
		"bearer abc":       "",
		"Bearer\tabc":      "",
		"Basic dXNlcjpwdw": "",
		"Bearer":           "",
		"Bearer ":          "",
	}
	for header, want := range cases {
		if got := BearerToken(header); got != want {
			t.Fatalf("header %q: expected %q, got %q", header, want, got)
		}
	}
}
