// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hitoshi/roofmeasure/internal/auth"
	"github.com/hitoshi/roofmeasure/internal/middleware"
	"github.com/hitoshi/roofmeasure/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Register は新規ユーザーを登録し、ユーザーIDを返す。
	Register(ctx context.Context, username, password string) (string, error)
	// Login は資格情報を検証し、セッショントークンを発行する。
	Login(ctx context.Context, username, password string) (string, error)
}

// AuthMetrics は認証ハンドラーが記録するメトリクスのインターフェース。
type AuthMetrics interface {
	RecordRegistration()
	RecordLoginSuccess()
	RecordLoginFailure()
}

// AuthHandler はユーザー登録・ログイン・ログアウト・CSRFトークン発行のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	csrf    auth.CSRFRegistry
	metrics AuthMetrics
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, csrf auth.CSRFRegistry, metrics AuthMetrics) *AuthHandler {
	return &AuthHandler{
		service: service,
		csrf:    csrf,
		metrics: metrics,
	}
}

// credentialsRequest は登録・ログインリクエストのボディ。
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register は新規ユーザー登録を処理する。
// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:    model.ErrCodeInvalidRequest,
			Message: "malformed request body",
		})
		return
	}

	if missing := missingCredentialFields(req); missing != "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError(missing))
		return
	}

	id, err := h.service.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordRegistration()

	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "user registered",
		"id":      id,
	})
}

// Login は資格情報を検証し、セッショントークンを返す。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:    model.ErrCodeInvalidRequest,
			Message: "malformed request body",
		})
		return
	}

	if missing := missingCredentialFields(req); missing != "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError(missing))
		return
	}

	token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.metrics.RecordLoginFailure()
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordLoginSuccess()

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "login successful",
		"token":   token,
	})
}

// Logout はログアウトを処理する。
// POST /logout（セッション必須、CSRF必須）
// トークンはステートレスでサーバー側失効はできないため、
// クライアントへの破棄指示とCSRFトークンの破棄のみを行う。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:    model.ErrCodeNoCredential,
			Message: "no credential provided",
		})
		return
	}

	h.csrf.Expire(userID)

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "logged out; discard the token client-side",
	})
}

// CSRFToken は認証済みユーザーにCSRFトークンを発行する。
// GET /csrf-token（セッション必須）
// 発行のたびに既存トークンは上書きされる。
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:    model.ErrCodeNoCredential,
			Message: "no credential provided",
		})
		return
	}

	token, err := h.csrf.Issue(userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"csrfToken": token,
	})
}

// missingCredentialFields は欠落している必須フィールド名をカンマ区切りで返す。
func missingCredentialFields(req credentialsRequest) string {
	var missing []string
	if strings.TrimSpace(req.Username) == "" {
		missing = append(missing, "username")
	}
	if req.Password == "" {
		missing = append(missing, "password")
	}
	return strings.Join(missing, ", ")
}
