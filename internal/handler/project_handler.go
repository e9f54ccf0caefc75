package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/roofmeasure/internal/middleware"
	"github.com/hitoshi/roofmeasure/internal/model"
)

// ProjectServiceInterface はプロジェクトハンドラーが必要とするサービスインターフェース。
type ProjectServiceInterface interface {
	// Save はプロジェクトを保存し、プロジェクトIDを返す。
	Save(ctx context.Context, userID, address string, polygons [][]model.LatLng, pitches []string) (string, error)
	// List はユーザーのプロジェクト要約一覧を返す。
	List(ctx context.Context, userID string) ([]model.ProjectSummary, error)
	// Get は指定IDのプロジェクトを所有者スコープで取得する。
	Get(ctx context.Context, userID, projectID string) (*model.Project, error)
}

// ProjectMetrics はプロジェクトハンドラーが記録するメトリクスのインターフェース。
type ProjectMetrics interface {
	RecordProjectSaved()
}

// ProjectHandler はプロジェクト管理のHTTPハンドラー。
type ProjectHandler struct {
	service ProjectServiceInterface
	metrics ProjectMetrics
}

// NewProjectHandler はProjectHandlerを生成する。
func NewProjectHandler(service ProjectServiceInterface, metrics ProjectMetrics) *ProjectHandler {
	return &ProjectHandler{
		service: service,
		metrics: metrics,
	}
}

// saveProjectRequest はプロジェクト保存リクエストのボディ。
type saveProjectRequest struct {
	Address  string           `json:"address"`
	Polygons [][]model.LatLng `json:"polygons"`
	Pitches  []string         `json:"pitches"`
}

// projectSummaryResponse はプロジェクト一覧のAPIレスポンス要素。
type projectSummaryResponse struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// projectResponse はプロジェクト詳細のAPIレスポンス。
type projectResponse struct {
	ID       string           `json:"id"`
	Address  string           `json:"address"`
	Polygons [][]model.LatLng `json:"polygons"`
	Pitches  []string         `json:"pitches"`
}

// Save はプロジェクト保存を処理する。
// POST /projects（セッション必須、CSRF必須）
func (h *ProjectHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:    model.ErrCodeNoCredential,
			Message: "no credential provided",
		})
		return
	}

	var req saveProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:    model.ErrCodeInvalidRequest,
			Message: "malformed request body",
		})
		return
	}

	id, err := h.service.Save(r.Context(), userID, req.Address, req.Polygons, req.Pitches)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordProjectSaved()

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// List はプロジェクト要約一覧を返す。
// GET /projects（セッション必須）
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:    model.ErrCodeNoCredential,
			Message: "no credential provided",
		})
		return
	}

	summaries, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]projectSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		resp = append(resp, projectSummaryResponse{ID: s.ID, Address: s.Address})
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get はプロジェクト詳細を返す。
// GET /projects/{id}（セッション必須）
// 他ユーザー所有のプロジェクトは404として扱い、存在を漏らさない。
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:    model.ErrCodeNoCredential,
			Message: "no credential provided",
		})
		return
	}

	projectID := chi.URLParam(r, "id")

	p, err := h.service.Get(r.Context(), userID, projectID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, projectResponse{
		ID:       p.ID,
		Address:  p.Address,
		Polygons: p.Polygons,
		Pitches:  p.Pitches,
	})
}
