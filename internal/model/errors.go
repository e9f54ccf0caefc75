// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// Messageはそのままクライアントに返せる内容のみを含める。
type APIError struct {
	Code    string // エラーコード
	Message string // ユーザー向けエラーメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeMissingFields      = "MISSING_FIELDS"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeDuplicateUsername  = "DUPLICATE_USERNAME"
	ErrCodeNoCredential       = "NO_CREDENTIAL"
	ErrCodeInvalidCredential  = "INVALID_CREDENTIAL"
	ErrCodeInvalidCSRFToken   = "INVALID_CSRF_TOKEN"
	ErrCodeProjectNotFound    = "PROJECT_NOT_FOUND"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewMissingFieldsError は必須フィールド欠落エラーを生成する。
func NewMissingFieldsError(fields string) *APIError {
	return &APIError{
		Code:    ErrCodeMissingFields,
		Message: fmt.Sprintf("missing required fields: %s", fields),
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// ユーザー不存在とパスワード不一致で同一のメッセージを返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:    ErrCodeInvalidCredentials,
		Message: "invalid username or password",
	}
}

// NewDuplicateUsernameError はユーザー名重複エラーを生成する。
func NewDuplicateUsernameError(username string) *APIError {
	return &APIError{
		Code:    ErrCodeDuplicateUsername,
		Message: fmt.Sprintf("username already taken: %s", username),
	}
}

// NewProjectNotFoundError はプロジェクト未検出エラーを生成する。
// 他ユーザー所有のプロジェクトへのアクセスでも同一のエラーを返し、
// 存在の有無を漏らさない。
func NewProjectNotFoundError(projectID string) *APIError {
	return &APIError{
		Code:    ErrCodeProjectNotFound,
		Message: fmt.Sprintf("project not found: %s", projectID),
	}
}
