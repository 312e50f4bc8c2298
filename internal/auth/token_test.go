package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tapevault/internal/auth"
	"tapevault/internal/catalog"
	"tapevault/internal/testsupport"
)

const testSecret = "test-secret-0123456789"

func TestGenerateTokenRoundTrip(t *testing.T) {
	signed, expiresAt, err := auth.GenerateToken("user-1", catalog.RoleMember, testSecret, 30*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatal("token already expired")
	}

	claims := &auth.Claims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (any, error) {
		return []byte(testSecret), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != "user-1" || claims.Role != catalog.RoleMember {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	if _, _, err := auth.GenerateToken("user-1", catalog.RoleMember, "  ", time.Minute); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestLoginVerifiesPassword(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	user := testsupport.NewUser(t, store, "mum", "attic-box-of-vhs", catalog.RoleAdmin)
	ctx := context.Background()

	got, err := auth.Login(ctx, store, "mum", "attic-box-of-vhs")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("login returned %s, want %s", got.ID, user.ID)
	}

	if _, err := auth.Login(ctx, store, "mum", "wrong"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := auth.Login(ctx, store, "nobody", "whatever"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
	if _, err := auth.Login(ctx, store, "", ""); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for blank input, got %v", err)
	}
}
