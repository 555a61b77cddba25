package auth

import (
	"testing"
	"time"

	"coolwatch-server-go/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	manager := NewTokenManager("test-secret", "coolwatch", "coolwatch-clients", time.Hour)

	signed, err := manager.Generate(7, "jdoe", models.RoleTechnician)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	claims, err := manager.Verify(signed)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if claims.UserID != 7 || claims.Username != "jdoe" || claims.Role != models.RoleTechnician {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenRejectsExpired(t *testing.T) {
	manager := NewTokenManager("test-secret", "coolwatch", "coolwatch-clients", -time.Minute)

	signed, err := manager.Generate(1, "admin", models.RoleAdmin)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if _, err := manager.Verify(signed); err == nil {
		t.Fatalf("expected expired token to fail verification")
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	signer := NewTokenManager("secret-a", "coolwatch", "coolwatch-clients", time.Hour)
	verifier := NewTokenManager("secret-b", "coolwatch", "coolwatch-clients", time.Hour)

	signed, err := signer.Generate(1, "admin", models.RoleAdmin)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if _, err := verifier.Verify(signed); err == nil {
		t.Fatalf("expected signature mismatch to fail verification")
	}
}

func TestTokenRejectsWrongAudience(t *testing.T) {
	signer := NewTokenManager("secret", "coolwatch", "other-audience", time.Hour)
	verifier := NewTokenManager("secret", "coolwatch", "coolwatch-clients", time.Hour)

	signed, err := signer.Generate(1, "admin", models.RoleAdmin)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if _, err := verifier.Verify(signed); err == nil {
		t.Fatalf("expected audience mismatch to fail verification")
	}
}

func TestPasswordHashAndVerify(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if !VerifyPassword(hash, "s3cret!") {
		t.Fatalf("expected password to verify")
	}
	if VerifyPassword(hash, "wrong") {
		t.Fatalf("wrong password must not verify")
	}
	if VerifyPassword("s3cret!", hash) {
		t.Fatalf("swapped arguments must not verify")
	}
	if _, err := HashPassword(""); err == nil {
		t.Fatalf("empty password must be rejected")
	}
}
