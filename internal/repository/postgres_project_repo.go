package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/roofmeasure/internal/model"
)

// PostgresProjectRepo はPostgreSQLを使用したプロジェクトリポジトリ。
// polygons/pitchesはJSONBカラムにシリアライズして保存する。
type PostgresProjectRepo struct {
	db *sql.DB
}

// NewPostgresProjectRepo はPostgresProjectRepoを生成する。
func NewPostgresProjectRepo(db *sql.DB) *PostgresProjectRepo {
	return &PostgresProjectRepo{db: db}
}

// Create はプロジェクトを作成する。
func (r *PostgresProjectRepo) Create(ctx context.Context, project *model.Project) error {
	polygons, err := json.Marshal(project.Polygons)
	if err != nil {
		return fmt.Errorf("failed to marshal polygons: %w", err)
	}
	pitches, err := json.Marshal(project.Pitches)
	if err != nil {
		return fmt.Errorf("failed to marshal pitches: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO projects (id, user_id, address, polygons, pitches, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		project.ID, project.UserID, project.Address, polygons, pitches,
		project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// FindByIDAndUser は指定IDかつ指定ユーザー所有のプロジェクトを取得する。
// 存在しない、または他ユーザー所有の場合はnilを返す。
func (r *PostgresProjectRepo) FindByIDAndUser(ctx context.Context, id, userID string) (*model.Project, error) {
	project := &model.Project{}
	var polygons, pitches []byte

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, address, polygons, pitches, created_at, updated_at
		 FROM projects
		 WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&project.ID, &project.UserID, &project.Address, &polygons, &pitches,
		&project.CreatedAt, &project.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if err := json.Unmarshal(polygons, &project.Polygons); err != nil {
		return nil, fmt.Errorf("failed to unmarshal polygons: %w", err)
	}
	if err := json.Unmarshal(pitches, &project.Pitches); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pitches: %w", err)
	}

	return project, nil
}

// ListByUser はユーザーのプロジェクト要約一覧を作成日時降順で返す。
func (r *PostgresProjectRepo) ListByUser(ctx context.Context, userID string) ([]model.ProjectSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, address FROM projects
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	summaries := []model.ProjectSummary{}
	for rows.Next() {
		var s model.ProjectSummary
		if err := rows.Scan(&s.ID, &s.Address); err != nil {
			return nil, fmt.Errorf("failed to scan project summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}

	return summaries, nil
}

// compile-time interface check
var _ ProjectRepository = (*PostgresProjectRepo)(nil)
