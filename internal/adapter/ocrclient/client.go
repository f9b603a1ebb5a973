// Package ocrclient talks to the external OCR service over its JSON API.
package ocrclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/user/asset-pipeline/internal/entity"
	"github.com/user/asset-pipeline/internal/repository"
)

// Config holds the OCR service connection settings.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// Client implements repository.OCRClient against an HTTP OCR service.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new OCR service client.
func NewClient(cfg Config) *Client {
	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type recognizeRequest struct {
	StorageKey string `json:"storage_key"`
}

type recognizeResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Recognize submits a stored asset handle and returns the extracted text with
// its confidence. Quota exhaustion and unsupported formats surface as their
// own error values so the caller can back off or fail terminally.
func (c *Client) Recognize(ctx context.Context, storageKey string) (*entity.Recognition, error) {
	payload, err := json.Marshal(recognizeRequest{StorageKey: storageKey})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", repository.ErrOCRService, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", repository.ErrOCRService, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: request timed out", repository.ErrOCRService)
		}
		return nil, fmt.Errorf("%w: %v", repository.ErrOCRService, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: received status code %d", repository.ErrOCRQuota, resp.StatusCode)
	case http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: received status code %d", repository.ErrOCRUnsupported, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: received status code %d", repository.ErrOCRService, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", repository.ErrOCRService, err)
	}

	var out recognizeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", repository.ErrOCRService, err)
	}

	return &entity.Recognition{
		Text:       out.Text,
		Confidence: clamp(out.Confidence),
	}, nil
}

func clamp(confidence float64) float64 {
	switch {
	case confidence < 0:
		return 0
	case confidence > 1:
		return 1
	}
	return confidence
}
