package models

import "time"

// Support thread statuses and message senders.
const (
	ThreadPending  = "pending"
	ThreadResolved = "resolved"

	SenderUser  = "user"
	SenderAdmin = "admin"
)

// SupportThread is the single conversation a user has with support.
type SupportThread struct {
	ID           string
	UserID       string
	UserName     string
	Status       string
	Conversation []SupportMessage
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type SupportMessage struct {
	ID        string
	ThreadID  string
	Sender    string
	Message   string
	CreatedAt time.Time
}
