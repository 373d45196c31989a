package models

import "time"

// DownloadGrant records a quota reservation made when a download token was
// issued. JTI is the token id.
type DownloadGrant struct {
	JTI         string
	UserID      string
	FeedItemID  string
	SizeBytes   int64
	ExpiresAt   time.Time
	RedeemCount int
	RedeemedAt  *time.Time
	RefundedAt  *time.Time
	CreatedAt   time.Time
}

// DownloadRecord is one row of a user's append-only download log.
type DownloadRecord struct {
	ID         string
	UserID     string
	FeedItemID string
	SizeBytes  int64
	CreatedAt  time.Time
}
