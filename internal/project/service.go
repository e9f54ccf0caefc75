// Package project は屋根計測プロジェクトのビジネスロジックを提供する。
package project

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hitoshi/roofmeasure/internal/model"
	"github.com/hitoshi/roofmeasure/internal/repository"
)

// Service はプロジェクトの保存・取得に関するビジネスロジックを提供する。
type Service struct {
	repo      repository.ProjectRepository
	sanitizer *bluemonday.Policy
}

// NewService はServiceを生成する。
// 住所などユーザー入力のテキストはStrictPolicyでタグを除去して保存する。
func NewService(repo repository.ProjectRepository) *Service {
	return &Service{
		repo:      repo,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Save はプロジェクトを保存し、プロジェクトIDを返す。
// 住所は必須。polygonsは少なくとも1セクション必要。
func (s *Service) Save(ctx context.Context, userID, address string, polygons [][]model.LatLng, pitches []string) (string, error) {
	address = strings.TrimSpace(s.sanitizer.Sanitize(address))
	if address == "" {
		return "", model.NewMissingFieldsError("address")
	}
	if len(polygons) == 0 {
		return "", model.NewMissingFieldsError("polygons")
	}

	now := time.Now()
	p := &model.Project{
		ID:        uuid.New().String(),
		UserID:    userID,
		Address:   address,
		Polygons:  polygons,
		Pitches:   pitches,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return "", fmt.Errorf("failed to save project: %w", err)
	}

	slog.Info("project saved",
		slog.String("project_id", p.ID),
		slog.String("user_id", userID),
		slog.Int("sections", len(polygons)),
	)

	return p.ID, nil
}

// List はユーザーのプロジェクト要約一覧を返す。
func (s *Service) List(ctx context.Context, userID string) ([]model.ProjectSummary, error) {
	summaries, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return summaries, nil
}

// Get は指定IDのプロジェクトを所有者スコープで取得する。
// 存在しない場合と他ユーザー所有の場合は同一のProjectNotFoundエラーを返す。
func (s *Service) Get(ctx context.Context, userID, projectID string) (*model.Project, error) {
	p, err := s.repo.FindByIDAndUser(ctx, projectID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if p == nil {
		return nil, model.NewProjectNotFoundError(projectID)
	}
	return p, nil
}
