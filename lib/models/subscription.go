package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PlatformWebpush = "webpush"
	PlatformEmail   = "email"
)

// Subscription is one registered notification target. For webpush the
// Endpoint is the transport-assigned push URL and P256dh/Auth carry the
// encryption material from the browser; for email the Endpoint is the
// address and the key fields stay empty.
type Subscription struct {
	ID          string `gorm:"primaryKey"`
	Platform    string
	DeviceLabel string
	Endpoint    string `gorm:"uniqueIndex"`
	P256dh      string
	Auth        string
	CreatedAt   time.Time

	Preferences []Preference
}

type Subscriptions []Subscription

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Preference is one row of the per-device x per-event-kind matrix. A missing
// row means enabled; only an explicit Enabled=false row excludes a
// subscription from a kind.
type Preference struct {
	ID             uint      `gorm:"primaryKey"`
	SubscriptionID string    `gorm:"index:idx_subscription_kind,unique"`
	EventKind      EventKind `gorm:"index:idx_subscription_kind,unique"`
	Enabled        bool
	UpdatedAt      time.Time
}
