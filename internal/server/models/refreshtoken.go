package models

import "time"

// RefreshToken is an opaque session renewal token bound to the device that
// logged in.
type RefreshToken struct {
	ID          string
	UserID      string
	Token       string
	DeviceToken string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}
