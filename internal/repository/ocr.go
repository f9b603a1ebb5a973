package repository

import (
	"context"

	"github.com/user/asset-pipeline/internal/entity"
)

// OCRClient defines the contract for the external OCR service.
type OCRClient interface {
	// Recognize submits a stored asset by its storage key and returns the
	// extracted text with a confidence score in [0,1].
	Recognize(ctx context.Context, storageKey string) (*entity.Recognition, error)
}
