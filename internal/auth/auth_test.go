package auth

import (
	"context"
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	ResetSecretForTests()

	token, err := GenerateToken("usr-42", "alice", []string{"admin", "admin", "staff"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Subject != "usr-42" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Username != "alice" {
		t.Fatalf("unexpected username: %s", claims.Username)
	}
	if len(claims.Roles) != 2 {
		t.Fatalf("expected deduplicated roles, got %v", claims.Roles)
	}
	if claims.ID == "" {
		t.Fatal("expected jti claim")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "first-secret")
	ResetSecretForTests()

	token, err := GenerateToken("usr-1", "bob", nil, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	t.Setenv("JWT_SECRET", "second-secret")
	ResetSecretForTests()

	if _, err := ParseAndValidate(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	ResetSecretForTests()

	token, err := GenerateToken("usr-1", "bob", nil, time.Millisecond)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := ParseAndValidate(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	if _, err := GenerateToken("usr-1", "bob", nil, time.Hour); err == nil {
		t.Fatal("expected error without configured secret")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := VerifyPassword(hash, "s3cret"); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = ContextWithUser(ctx, "usr-7", "carol", []string{"admin", "admin", "staff"})

	id, ok := UserIDFromContext(ctx)
	if !ok || id != "usr-7" {
		t.Fatalf("unexpected user id: %s, ok=%v", id, ok)
	}
	name, ok := UsernameFromContext(ctx)
	if !ok || name != "carol" {
		t.Fatalf("unexpected username: %s, ok=%v", name, ok)
	}
	if roles := RolesFromContext(ctx); len(roles) != 2 {
		t.Fatalf("expected deduplicated roles, got %v", roles)
	}
	if !HasAnyRole(ctx, "staff") {
		t.Fatal("expected staff role to match")
	}
	if HasAnyRole(ctx, "manager") {
		t.Fatal("unexpected role match")
	}
	if !HasAnyRole(ctx) {
		t.Fatal("empty required set must always pass")
	}
}
