package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hitoshi/roofmeasure/internal/model"
)

// ReportComposerInterface はレポートハンドラーが必要とするPDF生成インターフェース。
type ReportComposerInterface interface {
	// Compose はレポート入力データからPDFバイト列を生成する。
	Compose(input model.ReportInput) ([]byte, error)
}

// ReportMetrics はレポートハンドラーが記録するメトリクスのインターフェース。
type ReportMetrics interface {
	RecordReportGenerated()
}

// ReportHandler は計測レポートPDF生成のHTTPハンドラー。
type ReportHandler struct {
	composer ReportComposerInterface
	metrics  ReportMetrics
}

// NewReportHandler はReportHandlerを生成する。
func NewReportHandler(composer ReportComposerInterface, metrics ReportMetrics) *ReportHandler {
	return &ReportHandler{
		composer: composer,
		metrics:  metrics,
	}
}

// Generate は計測レポートPDFを生成して返す。
// POST /generate-pdf（セッション必須、CSRF必須）
// レスポンスはapplication/pdfの添付ファイル。
func (h *ReportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var input model.ReportInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:    model.ErrCodeInvalidRequest,
			Message: "malformed request body",
		})
		return
	}

	pdf, err := h.composer.Compose(input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordReportGenerated()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename=roof-measure-report.pdf`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
