// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/roofmeasure/internal/model"
)

// ErrDuplicateUsername はユーザー名の一意制約違反を表す。
// ハンドラー層で409 Conflictにマッピングされる。
var ErrDuplicateUsername = errors.New("username already exists")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成する。
	// ユーザー名が既に存在する場合はErrDuplicateUsernameを返す。
	Create(ctx context.Context, user *model.User) error

	// FindByUsername は指定ユーザー名のユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// ProjectRepository はプロジェクトデータの永続化インターフェース。
type ProjectRepository interface {
	// Create はプロジェクトを作成する。
	Create(ctx context.Context, project *model.Project) error

	// FindByIDAndUser は指定IDかつ指定ユーザー所有のプロジェクトを取得する。
	// 存在しない、または他ユーザー所有の場合はnilを返す。
	FindByIDAndUser(ctx context.Context, id, userID string) (*model.Project, error)

	// ListByUser はユーザーのプロジェクト要約一覧を作成日時降順で返す。
	ListByUser(ctx context.Context, userID string) ([]model.ProjectSummary, error)
}
