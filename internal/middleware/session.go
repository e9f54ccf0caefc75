// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/roofmeasure/internal/auth"
	"github.com/hitoshi/roofmeasure/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// usernameContextKey はリクエストコンテキストにユーザー名を格納するためのキー。
var usernameContextKey = contextKey("username")

// TokenVerifier はセッショントークンの検証に必要なインターフェース。
// auth.TokenManagerの部分集合として定義する。
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// NewSessionMiddleware はAuthorization: Bearerヘッダーからセッショントークンを
// 読み取り、検証するミドルウェアを返す。
// 検証済みユーザーID・ユーザー名をリクエストコンテキストに注入する。
// ヘッダー欠落は「資格情報なし」、署名不正・期限切れは「資格情報不正」として
// いずれも401で短絡する。
func NewSessionMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. AuthorizationヘッダーからBearerトークンを取得
			token, ok := bearerToken(r)
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, &model.APIError{
					Code:    model.ErrCodeNoCredential,
					Message: "no credential provided",
				})
				return
			}

			// 2. トークンの署名と有効期限を検証
			claims, err := verifier.Verify(token)
			if err != nil {
				// 期限切れか不正かはクライアントに区別させない
				WriteErrorResponse(w, http.StatusUnauthorized, &model.APIError{
					Code:    model.ErrCodeInvalidCredential,
					Message: "invalid credential",
				})
				return
			}

			// 3. 検証済みユーザーをコンテキストに注入
			ctx := context.WithValue(r.Context(), userIDContextKey, claims.UserID)
			ctx = context.WithValue(ctx, usernameContextKey, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimPrefix(header, prefix)
	if token == "" {
		return "", false
	}
	return token, true
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", errors.New("user ID not found in context")
	}
	return userID, nil
}

// UsernameFromContext はリクエストコンテキストからユーザー名を取得する。
func UsernameFromContext(ctx context.Context) (string, error) {
	username, ok := ctx.Value(usernameContextKey).(string)
	if !ok || username == "" {
		return "", fmt.Errorf("username not found in context")
	}
	return username, nil
}

// ContextWithUser はコンテキストにユーザーIDとユーザー名を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, userID, username string) context.Context {
	ctx = context.WithValue(ctx, userIDContextKey, userID)
	return context.WithValue(ctx, usernameContextKey, username)
}
