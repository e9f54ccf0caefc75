package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/roofmeasure/internal/model"
	"github.com/hitoshi/roofmeasure/internal/repository"
)

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	tokens   *TokenManager
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, tokens *TokenManager) *Service {
	return &Service{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

// Register は新規ユーザーを登録し、ユーザーIDを返す。
// ユーザー名が既に使用されている場合はDuplicateUsernameエラーを返す。
func (s *Service) Register(ctx context.Context, username, password string) (string, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return "", model.NewDuplicateUsernameError(username)
		}
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user registered", slog.String("user_id", user.ID))
	return user.ID, nil
}

// Login は資格情報を検証し、セッショントークンを発行する。
// ユーザー不存在とパスワード不一致は同一のエラーを返す（列挙攻撃対策）。
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return "", model.NewInvalidCredentialsError()
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return "", model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return token, nil
}
