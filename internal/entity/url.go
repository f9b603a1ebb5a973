package entity

import (
	"fmt"
	"time"
)

// URLStatus is the crawl lifecycle state of a page URL.
type URLStatus string

const (
	URLStatusPending   URLStatus = "pending"
	URLStatusFetching  URLStatus = "fetching"
	URLStatusExtracted URLStatus = "extracted"
	URLStatusFailed    URLStatus = "failed"
)

// urlTransitions enumerates the permitted status edges. The only backward
// edge is fetching -> pending, used when a transient failure schedules a retry.
var urlTransitions = map[URLStatus][]URLStatus{
	URLStatusPending:  {URLStatusFetching},
	URLStatusFetching: {URLStatusExtracted, URLStatusFailed, URLStatusPending},
}

// ParseURLStatus validates a raw status string from the database or an API
// boundary. Unknown values are rejected rather than passed through.
func ParseURLStatus(raw string) (URLStatus, error) {
	switch s := URLStatus(raw); s {
	case URLStatusPending, URLStatusFetching, URLStatusExtracted, URLStatusFailed:
		return s, nil
	}
	return "", fmt.Errorf("unknown url status %q", raw)
}

// Terminal reports whether no further automatic transition occurs.
func (s URLStatus) Terminal() bool {
	return s == URLStatusExtracted || s == URLStatusFailed
}

// CanTransitionTo reports whether the edge s -> next is permitted.
func (s URLStatus) CanTransitionTo(next URLStatus) bool {
	for _, t := range urlTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// PageURL mirrors the `url` PostgreSQL table schema, extended with the retry
// and lease bookkeeping columns the pipeline needs.
type PageURL struct {
	ID             int64
	DomainID       int64
	Address        string
	Status         URLStatus
	RetryCount     int
	NextRetryAt    time.Time
	LeaseExpiresAt *time.Time
	FailureReason  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
