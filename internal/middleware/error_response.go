package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/roofmeasure/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// Errorフィールドにユーザー向けメッセージを格納する。
type ErrorResponseBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:  apiErr.Code,
		Error: apiErr.Message,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:    model.ErrCodeInternal,
		Message: "internal server error",
	})
}
