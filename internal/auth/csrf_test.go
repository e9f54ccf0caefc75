package auth

import (
	"testing"
	"time"
)

func newTestCSRFRegistry(t *testing.T, ttl time.Duration) *MemoryCSRFRegistry {
	t.Helper()
	r := NewMemoryCSRFRegistry(ttl)
	t.Cleanup(r.Stop)
	return r
}

func TestMemoryCSRFRegistry_IssueAndVerify(t *testing.T) {
	r := newTestCSRFRegistry(t, time.Hour)

	token, err := r.Issue("user-123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(token) != csrfTokenBytes*2 {
		t.Errorf("token length = %d, want %d hex chars", len(token), csrfTokenBytes*2)
	}

	if !r.Verify("user-123", token) {
		t.Error("expected issued token to verify")
	}
}

func TestMemoryCSRFRegistry_Verify_ConsumesToken(t *testing.T) {
	r := newTestCSRFRegistry(t, time.Hour)

	token, err := r.Issue("user-123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !r.Verify("user-123", token) {
		t.Fatal("expected first verification to succeed")
	}
	// ワンタイム: 同じトークンの再利用は失敗する
	if r.Verify("user-123", token) {
		t.Error("expected second verification of the same token to fail")
	}
}

func TestMemoryCSRFRegistry_Verify_RejectsWrongIdentity(t *testing.T) {
	r := newTestCSRFRegistry(t, time.Hour)

	token, err := r.Issue("user-123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if r.Verify("user-456", token) {
		t.Error("expected token issued to another identity to be rejected")
	}
	// 拒否によって元の所有者のトークンは消費されない
	if !r.Verify("user-123", token) {
		t.Error("expected original identity to still verify")
	}
}

func TestMemoryCSRFRegistry_Verify_RejectsNeverIssued(t *testing.T) {
	r := newTestCSRFRegistry(t, time.Hour)

	if r.Verify("user-123", "deadbeef") {
		t.Error("expected unknown identity to be rejected")
	}
	if r.Verify("user-123", "") {
		t.Error("expected empty token to be rejected")
	}
}

func TestMemoryCSRFRegistry_Verify_RejectsExpiredToken(t *testing.T) {
	r := newTestCSRFRegistry(t, time.Hour)

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }

	token, err := r.Issue("user-123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	r.now = func() time.Time { return base.Add(time.Hour + time.Minute) }
	if r.Verify("user-123", token) {
		t.Error("expected expired token to be rejected")
	}
}

func TestMemoryCSRFRegistry_Issue_OverwritesPreviousToken(t *testing.T) {
	r := newTestCSRFRegistry(t, time.Hour)

	first, err := r.Issue("user-123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := r.Issue("user-123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if first == second {
		t.Fatal("expected a fresh token on reissue")
	}
	if r.Verify("user-123", first) {
		t.Error("expected overwritten token to be rejected")
	}
	if !r.Verify("user-123", second) {
		t.Error("expected latest token to verify")
	}
}

func TestMemoryCSRFRegistry_Expire_DiscardsToken(t *testing.T) {
	r := newTestCSRFRegistry(t, time.Hour)

	token, err := r.Issue("user-123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	r.Expire("user-123")

	if r.Verify("user-123", token) {
		t.Error("expected expired identity to be rejected")
	}
}
