// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account holder. Quota counters are kept in bytes.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Country      string
	IPAddress    string
	UserAgent    string
	DeviceToken  string
	LastLogin    *time.Time

	DownloadLimitBytes   int64
	TotalPurchasedBytes  int64
	TotalDownloadedBytes int64

	CreatedAt time.Time
}

// Quota is a snapshot of a user's quota counters.
type Quota struct {
	DownloadLimitBytes   int64
	TotalPurchasedBytes  int64
	TotalDownloadedBytes int64
}
