package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/roofmeasure/internal/model"
)

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeJSON(w, statusCode, apiErrorResponse{
		Code:  apiErr.Code,
		Error: apiErr.Message,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:    model.ErrCodeInternal,
		Message: "internal server error",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidRequest, model.ErrCodeMissingFields:
		return http.StatusBadRequest
	case model.ErrCodeInvalidCredentials:
		// ログイン失敗は資格情報の入力不備として400で返す
		return http.StatusBadRequest
	case model.ErrCodeDuplicateUsername:
		return http.StatusConflict
	case model.ErrCodeNoCredential, model.ErrCodeInvalidCredential:
		return http.StatusUnauthorized
	case model.ErrCodeInvalidCSRFToken:
		return http.StatusForbidden
	case model.ErrCodeProjectNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
