package domain

import "time"

// User is the trust-relevant projection of a platform account.
type User struct {
	ID           string
	TenantID     string
	Name         string
	Email        string
	University   string
	TrustScore   int
	LastActiveAt time.Time
	CreatedAt    time.Time
}

// TrustSummary pairs a user's score with its display tier.
type TrustSummary struct {
	UserID       string
	TrustScore   int
	Level        Level
	LastActiveAt time.Time
}
