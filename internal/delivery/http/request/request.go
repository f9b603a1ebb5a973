package request

type SubmitDomainRequest struct {
	UserID int64  `json:"user_id"`
	Domain string `json:"domain"`
}

type SeedURLRequest struct {
	URL string `json:"url"`
}

type TriggerSweepRequest struct {
	DomainID *int64 `json:"domain_id,omitempty"`
}
