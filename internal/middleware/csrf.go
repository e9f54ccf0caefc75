package middleware

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/roofmeasure/internal/auth"
	"github.com/hitoshi/roofmeasure/internal/model"
)

// csrfHeaderName はリクエストヘッダーからCSRFトークンを読み取る際のヘッダー名。
const csrfHeaderName = "X-CSRF-Token"

// NewCSRFMiddleware はCSRFトークン検証ミドルウェアを返す。
// 状態変更ルートにのみ適用する前提で、常にトークン検証を行う。
// セッションミドルウェアの後段に配置し、認証済みユーザーIDを
// レジストリの識別子として使用する（認証→CSRF検証の順序が前提）。
// 検証成功でトークンは消費されるため、次の状態変更リクエストの前に
// GET /csrf-token での再取得が必要。
func NewCSRFMiddleware(registry auth.CSRFRegistry) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				// セッションミドルウェアより前に配置された場合のみ起こる
				WriteErrorResponse(w, http.StatusUnauthorized, &model.APIError{
					Code:    model.ErrCodeNoCredential,
					Message: "no credential provided",
				})
				return
			}

			token := r.Header.Get(csrfHeaderName)
			if !registry.Verify(userID, token) {
				slog.Warn("CSRF validation failed",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("user_id", userID),
				)
				WriteErrorResponse(w, http.StatusForbidden, &model.APIError{
					Code:    model.ErrCodeInvalidCSRFToken,
					Message: "invalid CSRF token",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
