package entity

import (
	"fmt"
	"time"
)

// AssetType classifies an extracted asset reference.
type AssetType string

const (
	AssetTypeImage AssetType = "image"
	AssetTypePDF   AssetType = "pdf"
)

// AssetStatus is the pipeline lifecycle state of an asset.
type AssetStatus string

const (
	AssetStatusPending     AssetStatus = "pending"
	AssetStatusDownloading AssetStatus = "downloading"
	AssetStatusStored      AssetStatus = "stored"
	AssetStatusOCRPending  AssetStatus = "ocr_pending"
	AssetStatusOCRDone     AssetStatus = "ocr_done"
	AssetStatusFailed      AssetStatus = "failed"
)

// assetTransitions enumerates the permitted status edges. Backward edges
// (downloading -> pending, ocr_pending -> stored) schedule transient retries.
var assetTransitions = map[AssetStatus][]AssetStatus{
	AssetStatusPending:     {AssetStatusDownloading},
	AssetStatusDownloading: {AssetStatusStored, AssetStatusFailed, AssetStatusPending},
	AssetStatusStored:      {AssetStatusOCRPending},
	AssetStatusOCRPending:  {AssetStatusOCRDone, AssetStatusFailed, AssetStatusStored},
}

// ParseAssetStatus validates a raw status string at the boundary.
func ParseAssetStatus(raw string) (AssetStatus, error) {
	switch s := AssetStatus(raw); s {
	case AssetStatusPending, AssetStatusDownloading, AssetStatusStored,
		AssetStatusOCRPending, AssetStatusOCRDone, AssetStatusFailed:
		return s, nil
	}
	return "", fmt.Errorf("unknown asset status %q", raw)
}

// Terminal reports whether no further automatic transition occurs.
func (s AssetStatus) Terminal() bool {
	return s == AssetStatusOCRDone || s == AssetStatusFailed
}

// CanTransitionTo reports whether the edge s -> next is permitted.
func (s AssetStatus) CanTransitionTo(next AssetStatus) bool {
	for _, t := range assetTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// AssetRef is a candidate asset reference found in a rendered page, before it
// is persisted as an Asset row.
type AssetRef struct {
	URL  string
	Type AssetType
}

// Asset mirrors the `asset` PostgreSQL table schema, extended with the
// storage key and retry/lease bookkeeping columns.
type Asset struct {
	ID             int64
	URLID          int64
	AssetURL       string
	Type           AssetType
	Status         AssetStatus
	StorageKey     string
	RetryCount     int
	NextRetryAt    time.Time
	LeaseExpiresAt *time.Time
	FailureReason  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
