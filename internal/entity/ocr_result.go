package entity

import "time"

// OCRResult mirrors the `ocr_result` PostgreSQL table schema. Results are
// append-only per asset; the latest row by CreatedAt is authoritative.
type OCRResult struct {
	ID         int64
	AssetID    int64
	Content    string
	Confidence float64
	CreatedAt  time.Time
}

// Recognition is the raw outcome of one OCR service call.
type Recognition struct {
	Text       string
	Confidence float64
}
