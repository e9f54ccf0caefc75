// Package report は計測レポートのPDF生成を提供する。
package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/hitoshi/roofmeasure/internal/model"
)

// 地図画像の最大表示サイズ（mm）。アスペクト比を維持して収める。
const (
	mapMaxWidthMM  = 160.0
	mapMaxHeightMM = 100.0
)

// Composer は計測レポートのPDFを組み立てる。
type Composer struct {
	// now はテストから生成日時を注入するためのフック。
	now func() time.Time
}

// NewComposer はComposerを生成する。
func NewComposer() *Composer {
	return &Composer{now: time.Now}
}

// Compose はレポート入力データからPDFバイト列を生成する。
// 地図画像が不正な場合はプレースホルダー文を出力し、レポート全体は失敗させない。
// areasが空でも合計面積0の整形済みPDFを返す。
func (c *Composer) Compose(input model.ReportInput) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.AddPage()

	// タイトルと生成日
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 10, "Saskatoon Roof Measure Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated on: %s", c.now().Format("January 2, 2006")), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	// 住所セクション
	pdf.SetFont("Helvetica", "BU", 14)
	pdf.CellFormat(0, 8, "Project Address:", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	address := input.Address
	if address == "" {
		address = "Not provided"
	}
	pdf.MultiCell(0, 6, address, "", "L", false)
	pdf.Ln(6)

	// 地図画像セクション
	if input.Screenshot != "" {
		c.composeMapSection(pdf, input.Screenshot)
	}

	// 面積テーブル
	composeAreaTable(pdf, input.Areas, input.Pitches)

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Total Flat Area: %.2f SQFT", input.TotalArea), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}

	return buf.Bytes(), nil
}

// composeMapSection は地図画像を描画する。
// 画像が復号できない場合はプレースホルダー文に置き換える。
func (c *Composer) composeMapSection(pdf *fpdf.Fpdf, screenshot string) {
	img, cfg, err := decodeScreenshot(screenshot)
	if err != nil {
		slog.Warn("invalid map screenshot, using placeholder", slog.String("error", err.Error()))
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(0, 6, "Unable to include map screenshot.", "", 1, "C", false, 0, "")
		pdf.Ln(6)
		return
	}

	pdf.SetFont("Helvetica", "BU", 14)
	pdf.CellFormat(0, 8, "Map Overview:", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	// アスペクト比を維持して最大枠に収める
	w := mapMaxWidthMM
	h := w * float64(cfg.Height) / float64(cfg.Width)
	if h > mapMaxHeightMM {
		h = mapMaxHeightMM
		w = h * float64(cfg.Width) / float64(cfg.Height)
	}

	pdf.RegisterImageOptionsReader("map-overview",
		fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(img))
	pdf.ImageOptions("map-overview", (210-w)/2, pdf.GetY(), w, h, true,
		fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	pdf.Ln(6)
}

// composeAreaTable はセクション別面積のテーブルを描画する。
// pitchesはインデックス対応で、欠けている場合は"N/A"を表示する。
func composeAreaTable(pdf *fpdf.Fpdf, areas []model.SectionArea, pitches []string) {
	pdf.SetFont("Helvetica", "BU", 14)
	pdf.CellFormat(0, 8, "Area Calculations:", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(70, 7, "Section", "B", 0, "L", false, 0, "")
	pdf.CellFormat(60, 7, "Area (SQFT)", "B", 0, "L", false, 0, "")
	pdf.CellFormat(40, 7, "Pitch", "B", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for i, area := range areas {
		pitch := "N/A"
		if i < len(pitches) && pitches[i] != "" {
			pitch = pitches[i]
		}
		pdf.CellFormat(70, 6, area.Section, "", 0, "L", false, 0, "")
		pdf.CellFormat(60, 6, fmt.Sprintf("%.2f", area.Area), "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, pitch, "", 1, "L", false, 0, "")
	}
}

// decodeScreenshot はbase64エンコードされたPNGを復号し、サイズを検証する。
// "data:image/png;base64," 形式のdata URLプレフィックスも受け付ける。
func decodeScreenshot(screenshot string) ([]byte, *image.Config, error) {
	raw := screenshot
	if strings.HasPrefix(raw, "data:") {
		_, after, found := strings.Cut(raw, ",")
		if !found {
			return nil, nil, fmt.Errorf("malformed data URL")
		}
		raw = after
	}

	img, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return nil, nil, fmt.Errorf("not a valid PNG: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, nil, fmt.Errorf("invalid PNG dimensions: %dx%d", cfg.Width, cfg.Height)
	}

	return img, &cfg, nil
}
