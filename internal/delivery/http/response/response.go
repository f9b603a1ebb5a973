package response

import "time"

type DomainResponse struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"created_at"`
}

type DomainStatusResponse struct {
	Domain    DomainResponse `json:"domain"`
	URLCounts map[string]int `json:"url_counts"`
}

type URLResponse struct {
	ID            int64     `json:"id"`
	DomainID      int64     `json:"domain_id"`
	URL           string    `json:"url"`
	Status        string    `json:"status"`
	RetryCount    int       `json:"retry_count"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type OCRResultResponse struct {
	Content    string    `json:"content"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

type AssetStatusResponse struct {
	ID            int64              `json:"id"`
	URLID         int64              `json:"url_id"`
	AssetURL      string             `json:"asset_url"`
	AssetType     string             `json:"asset_type"`
	Status        string             `json:"status"`
	StorageKey    string             `json:"storage_key,omitempty"`
	RetryCount    int                `json:"retry_count"`
	FailureReason string             `json:"failure_reason,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	OCRResult     *OCRResultResponse `json:"ocr_result,omitempty"`
}

type TriggerSweepResponse struct {
	Status  string `json:"status"`
	SweepID string `json:"sweep_id"`
}
