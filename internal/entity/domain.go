package entity

import "time"

// Domain mirrors the `domain` PostgreSQL table schema. A domain is immutable
// once registered; re-crawls never mutate it in place.
type Domain struct {
	ID        int64
	UserID    int64
	Domain    string
	CreatedAt time.Time
}
