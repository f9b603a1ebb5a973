package repository

import "errors"

// Catalog signals. ErrNotFound covers both a missing row and a row that was
// already claimed or advanced by another worker; callers must not retry it.
var (
	ErrNotFound = errors.New("entity not found")
	ErrConflict = errors.New("entity already exists")
)

// Page fetcher failures.
var (
	ErrFetchTimeout     = errors.New("page load timed out")
	ErrFetchBlocked     = errors.New("target blocked automated client")
	ErrNavigationFailed = errors.New("navigation failed")
	ErrInvalidContent   = errors.New("response is not renderable HTML")
)

// Storage uploader failures.
var (
	ErrAssetDownload = errors.New("asset download failed")
	ErrAssetUpload   = errors.New("asset upload failed")
	ErrAssetTooLarge = errors.New("asset exceeds size limit")
)

// OCR service failures. Quota is kept distinct from generic service errors
// because it drives a longer backoff.
var (
	ErrOCRService     = errors.New("ocr service error")
	ErrOCRQuota       = errors.New("ocr quota exceeded")
	ErrOCRUnsupported = errors.New("ocr unsupported format")
)
