// Package model はドメインモデルを定義する。
package model

import "time"

// LatLng は地図上の1座標を表す。
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Project は保存された屋根計測プロジェクトを表す。
// Polygonsは屋根の各セクションを囲む座標列の列。
// Pitchesはインデックスでセクションに対応する勾配表記（例: "4/12"）。
type Project struct {
	ID        string
	UserID    string
	Address   string
	Polygons  [][]LatLng
	Pitches   []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProjectSummary はプロジェクト一覧表示用の要約を表す。
type ProjectSummary struct {
	ID      string
	Address string
}

// SectionArea は計測レポート内の1セクションの面積を表す。
type SectionArea struct {
	Section string  `json:"section"`
	Area    float64 `json:"area"`
}

// ReportInput はPDFレポート生成の入力データを表す。
// Screenshotはbase64エンコードされたPNG（data URLプレフィックス付きも許容）。
type ReportInput struct {
	Address    string        `json:"address"`
	Screenshot string        `json:"screenshot"`
	Polygons   [][]LatLng    `json:"polygons"`
	Pitches    []string      `json:"pitches"`
	Areas      []SectionArea `json:"areas"`
	TotalArea  float64       `json:"totalArea"`
}
