package models

import "time"

const (
	OutcomeDelivered      = "delivered"
	OutcomeEndpointGone   = "endpoint_gone"
	OutcomeTransientError = "transient_error"
)

// DeliveryAttempt is an audit record only; nothing reads it back for
// correctness.
type DeliveryAttempt struct {
	ID             uint `gorm:"primaryKey"`
	SubscriptionID string
	EventKind      EventKind
	SentAt         time.Time
	Outcome        string
}
