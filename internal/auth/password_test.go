package auth

import (
	"strings"
	"testing"
)

func TestHashPassword_VerifiesWithExactPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !VerifyPassword("correct horse battery staple", hash) {
		t.Error("expected exact password to verify")
	}
}

func TestVerifyPassword_RejectsWrongPassword(t *testing.T) {
	hash, err := HashPassword("secret-password")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if VerifyPassword("secret-passwore", hash) {
		t.Error("expected near-miss password to be rejected")
	}
	if VerifyPassword("", hash) {
		t.Error("expected empty password to be rejected")
	}
}

func TestHashPassword_ProducesUniqueSalts(t *testing.T) {
	h1, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	h2, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// bcryptはハッシュごとにソルトを生成するため、同一入力でも出力は異なる
	if h1 == h2 {
		t.Error("expected different hashes for the same password")
	}
}

func TestHashPassword_UsesBcryptFormat(t *testing.T) {
	hash, err := HashPassword("any")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !strings.HasPrefix(hash, "$2a$10$") {
		t.Errorf("hash = %q, want $2a$10$ prefix", hash)
	}
}
