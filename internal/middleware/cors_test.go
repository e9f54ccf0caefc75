package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCORSMiddleware_SetsHeadersOnNormalRequest(t *testing.T) {
	mw := NewCORSMiddleware("http://localhost:3000")
	handler := mw(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q, want %q", got, "http://localhost:3000")
	}
	if got := resp.Header.Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q, want %q", got, "true")
	}
}

func TestCORSMiddleware_AllowsCSRFHeader(t *testing.T) {
	mw := NewCORSMiddleware("http://localhost:3000")
	handler := mw(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/projects", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	allowed := w.Result().Header.Get("Access-Control-Allow-Headers")
	for _, h := range []string{"Content-Type", "Authorization", "X-CSRF-Token"} {
		if !strings.Contains(allowed, h) {
			t.Errorf("Allow-Headers %q missing %q", allowed, h)
		}
	}
}

func TestCORSMiddleware_PreflightReturns204WithoutInvokingHandler(t *testing.T) {
	mw := NewCORSMiddleware("http://localhost:3000")
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached for preflight")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/projects", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
}
