package security

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatalf("expected hash to differ from password")
	}
	if !CheckPassword(hash, "s3cret-pass") {
		t.Fatalf("expected password to match")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestValidatePasswordLength(t *testing.T) {
	if err := ValidatePasswordLength(strings.Repeat("a", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	if err := ValidatePasswordLength("short"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGenerateRandomString(t *testing.T) {
	a, errA := GenerateRandomString(16)
	b, errB := GenerateRandomString(16)
	if errA != nil || errB != nil {
		t.Fatalf("GenerateRandomString() errors = %v, %v", errA, errB)
	}
	if len(a) != 32 || a == b {
		t.Fatalf("unexpected random strings %q %q", a, b)
	}
	if NewToken() == NewToken() {
		t.Fatalf("expected distinct tokens")
	}
}

func TestUserTokenRoundTrip(t *testing.T) {
	token, err := IssueUserToken("secret", 7, true, time.Hour)
	if err != nil {
		t.Fatalf("IssueUserToken() error = %v", err)
	}
	claims, err := ParseUserToken("secret", token)
	if err != nil {
		t.Fatalf("ParseUserToken() error = %v", err)
	}
	if claims.UserID != 7 || !claims.IsAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestUserTokenRejected(t *testing.T) {
	token, _ := IssueUserToken("secret", 7, false, time.Hour)
	if _, err := ParseUserToken("other", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
	expired, _ := IssueUserToken("secret", 7, false, -time.Minute)
	if _, err := ParseUserToken("secret", expired); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
	if _, err := ParseUserToken("secret", "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
	if _, err := IssueUserToken("", 1, false, time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
