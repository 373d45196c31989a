package models

import "time"

// Device is a device token seen at login. Approved devices are the ones an
// admin has allowed; the rest are pending.
type Device struct {
	UserID      string
	DeviceToken string
	IPAddress   string
	UserAgent   string
	Country     string
	Approved    bool
	CreatedAt   time.Time
}

// LoginRecord is one entry of a user's login history.
type LoginRecord struct {
	UserID      string
	DeviceToken string
	IPAddress   string
	UserAgent   string
	Country     string
	LoginTime   time.Time
}
