package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/roofmeasure/internal/auth"
	"github.com/hitoshi/roofmeasure/internal/middleware"
	"github.com/hitoshi/roofmeasure/internal/model"
)

// --- モック定義 ---

type mockHealthChecker struct {
	pingFn func() error
}

func (m *mockHealthChecker) Ping() error {
	if m.pingFn != nil {
		return m.pingFn()
	}
	return nil
}

var _ HealthChecker = (*mockHealthChecker)(nil)

// testRouter は実物のTokenManager・CSRFレジストリ・レートリミッターで
// ミドルウェアチェーン全体を組んだルーターを返す。
func testRouter(t *testing.T) (http.Handler, *auth.TokenManager) {
	t.Helper()

	tokens, err := auth.NewTokenManager([]byte("router-test-secret-32-bytes-long"), time.Hour)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	csrf := auth.NewMemoryCSRFRegistry(time.Hour)
	t.Cleanup(csrf.Stop)

	limiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(6000, 6000))
	t.Cleanup(limiter.Stop)

	deps := &RouterDeps{
		TokenVerifier:     tokens,
		CSRFRegistry:      csrf,
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       limiter,
		Logger:            slog.New(slog.NewJSONHandler(io.Discard, nil)),
		AuthService:       &mockAuthService{},
		ProjectService:    &mockProjectService{},
		ReportComposer:    &mockReportComposer{},
		Metrics:           &mockMetrics{},
		HealthChecker:     &mockHealthChecker{},
	}

	return NewRouter(deps), tokens
}

func issueSessionToken(t *testing.T, tokens *auth.TokenManager) string {
	t.Helper()
	token, err := tokens.Issue("user-123", "alice")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return token
}

func fetchCSRFToken(t *testing.T, router http.Handler, sessionToken string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/csrf-token", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("csrf-token status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode csrf-token body: %v", err)
	}
	if body["csrfToken"] == "" {
		t.Fatal("expected non-empty csrfToken")
	}
	return body["csrfToken"]
}

// --- テスト ---

func TestRouter_Health_ReturnsOK(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestRouter_Health_DBDown_Returns503(t *testing.T) {
	tokens, err := auth.NewTokenManager([]byte("router-test-secret-32-bytes-long"), time.Hour)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	csrf := auth.NewMemoryCSRFRegistry(time.Hour)
	t.Cleanup(csrf.Stop)
	limiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(6000, 6000))
	t.Cleanup(limiter.Stop)

	router := NewRouter(&RouterDeps{
		TokenVerifier:     tokens,
		CSRFRegistry:      csrf,
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       limiter,
		Logger:            slog.New(slog.NewJSONHandler(io.Discard, nil)),
		AuthService:       &mockAuthService{},
		ProjectService:    &mockProjectService{},
		ReportComposer:    &mockReportComposer{},
		Metrics:           &mockMetrics{},
		HealthChecker: &mockHealthChecker{
			pingFn: func() error { return errors.New("connection refused") },
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusServiceUnavailable)
	}
}

func TestRouter_Register_NoAuthRequired(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/register",
		strings.NewReader(`{"username":"alice","password":"password123"}`))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
	}
}

func TestRouter_Projects_NoToken_Returns401(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestRouter_SaveProject_CSRFWithoutSession_Returns401(t *testing.T) {
	router, _ := testRouter(t)

	// CSRFヘッダーがあってもセッションがなければ認証が先に失敗する
	req := httptest.NewRequest(http.MethodPost, "/projects", strings.NewReader(`{}`))
	req.Header.Set("X-CSRF-Token", "whatever")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestRouter_SaveProject_SessionWithoutCSRF_Returns403(t *testing.T) {
	router, tokens := testRouter(t)
	sessionToken := issueSessionToken(t, tokens)

	req := httptest.NewRequest(http.MethodPost, "/projects",
		strings.NewReader(`{"address":"123 Main St","polygons":[[{"lat":1,"lng":2}]]}`))
	req.Header.Set("Authorization", "Bearer "+sessionToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

func TestRouter_SaveProject_FullFlow_Succeeds(t *testing.T) {
	router, tokens := testRouter(t)
	sessionToken := issueSessionToken(t, tokens)
	csrfToken := fetchCSRFToken(t, router, sessionToken)

	req := httptest.NewRequest(http.MethodPost, "/projects",
		strings.NewReader(`{"address":"123 Main St","polygons":[[{"lat":1,"lng":2}]]}`))
	req.Header.Set("Authorization", "Bearer "+sessionToken)
	req.Header.Set("X-CSRF-Token", csrfToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
	}
}

func TestRouter_SaveProject_CSRFTokenIsSingleUse(t *testing.T) {
	router, tokens := testRouter(t)
	sessionToken := issueSessionToken(t, tokens)
	csrfToken := fetchCSRFToken(t, router, sessionToken)

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/projects",
			strings.NewReader(`{"address":"123 Main St","polygons":[[{"lat":1,"lng":2}]]}`))
		req.Header.Set("Authorization", "Bearer "+sessionToken)
		req.Header.Set("X-CSRF-Token", csrfToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Result().StatusCode
	}

	if status := send(); status != http.StatusCreated {
		t.Fatalf("first request: status = %d, want %d", status, http.StatusCreated)
	}
	// 検証成功でトークンは消費済み
	if status := send(); status != http.StatusForbidden {
		t.Errorf("second request: status = %d, want %d", status, http.StatusForbidden)
	}
}

func TestRouter_ListProjects_SessionOnly_Succeeds(t *testing.T) {
	router, tokens := testRouter(t)
	sessionToken := issueSessionToken(t, tokens)

	// GETは状態変更ではないためCSRFトークン不要
	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestRouter_GeneratePDF_FullFlow_ReturnsPDF(t *testing.T) {
	router, tokens := testRouter(t)
	sessionToken := issueSessionToken(t, tokens)
	csrfToken := fetchCSRFToken(t, router, sessionToken)

	req := httptest.NewRequest(http.MethodPost, "/generate-pdf",
		strings.NewReader(`{"address":"123 Main St","areas":[],"totalArea":0}`))
	req.Header.Set("Authorization", "Bearer "+sessionToken)
	req.Header.Set("X-CSRF-Token", csrfToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/pdf")
	}
}

func TestRouter_Logout_ExpiresCSRFToken(t *testing.T) {
	router, tokens := testRouter(t)
	sessionToken := issueSessionToken(t, tokens)
	csrfToken := fetchCSRFToken(t, router, sessionToken)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken)
	req.Header.Set("X-CSRF-Token", csrfToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestRouter_ExpiredSessionToken_Returns401(t *testing.T) {
	router, _ := testRouter(t)

	// 別のTokenManagerで署名されたトークンは拒否される
	other, err := auth.NewTokenManager([]byte("some-other-secret-32-bytes-long!"), time.Hour)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	foreign, err := other.Issue("user-123", "alice")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Bearer "+foreign)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != model.ErrCodeInvalidCredential {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidCredential)
	}
}

func TestRouter_PanicInHandler_Returns500(t *testing.T) {
	tokens, err := auth.NewTokenManager([]byte("router-test-secret-32-bytes-long"), time.Hour)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	csrf := auth.NewMemoryCSRFRegistry(time.Hour)
	t.Cleanup(csrf.Stop)
	limiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(6000, 6000))
	t.Cleanup(limiter.Stop)

	router := NewRouter(&RouterDeps{
		TokenVerifier:     tokens,
		CSRFRegistry:      csrf,
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       limiter,
		Logger:            slog.New(slog.NewJSONHandler(io.Discard, nil)),
		AuthService: &mockAuthService{
			registerFn: func(_ context.Context, _, _ string) (string, error) {
				panic("unexpected failure")
			},
		},
		ProjectService: &mockProjectService{},
		ReportComposer: &mockReportComposer{},
		Metrics:        &mockMetrics{},
		HealthChecker:  &mockHealthChecker{},
	})

	req := httptest.NewRequest(http.MethodPost, "/register",
		strings.NewReader(`{"username":"alice","password":"password123"}`))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusInternalServerError)
	}
}
