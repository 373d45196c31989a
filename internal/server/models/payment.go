package models

import "time"

// Payment statuses.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// Payment providers.
const (
	ProviderBTCPay = "btcpay"
	ProviderPayPal = "paypal"
)

// Payment is a quota purchase. ExternalID is the provider's invoice/order id.
type Payment struct {
	ID          string
	UserID      string
	ExternalID  string
	Provider    string
	Plan        string
	AmountCents int64
	Currency    string
	QuotaBytes  int64
	Status      string
	CreatedAt   time.Time

	// Populated by admin listings.
	UserName  string
	UserEmail string
}
