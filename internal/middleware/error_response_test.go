package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/roofmeasure/internal/model"
)

func TestWriteErrorResponse_WritesUnifiedFormat(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponse(w, http.StatusNotFound, &model.APIError{
		Code:    model.ErrCodeProjectNotFound,
		Message: "project not found: abc",
	})

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	body := decodeErrorBody(t, resp)
	if body.Code != model.ErrCodeProjectNotFound {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeProjectNotFound)
	}
	if body.Error != "project not found: abc" {
		t.Errorf("error = %q, want %q", body.Error, "project not found: abc")
	}
}

func TestWriteInternalServerError_HidesDetails(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalServerError(w)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}
	body := decodeErrorBody(t, resp)
	if body.Error != "internal server error" {
		t.Errorf("error = %q, want generic message", body.Error)
	}
}
