package app

import (
	"time"

	"github.com/fiffu/arrwatch/lib/models"
)

type SubscriptionView struct {
	ID          string          `json:"id"`
	Platform    string          `json:"platform"`
	DeviceLabel string          `json:"device_label"`
	Endpoint    string          `json:"endpoint"`
	CreatedAt   string          `json:"created_at"`
	Preferences map[string]bool `json:"preferences"`
}

func (view SubscriptionView) From(entity *models.Subscription) SubscriptionView {
	prefs := make(map[string]bool, len(entity.Preferences))
	for _, p := range entity.Preferences {
		prefs[string(p.EventKind)] = p.Enabled
	}
	return SubscriptionView{
		ID:          entity.ID,
		Platform:    entity.Platform,
		DeviceLabel: entity.DeviceLabel,
		Endpoint:    entity.Endpoint,
		CreatedAt:   entity.CreatedAt.UTC().Format(time.RFC3339),
		Preferences: prefs,
	}
}

type ServiceView struct {
	ID           uint    `json:"id"`
	Kind         string  `json:"kind"`
	Name         string  `json:"name"`
	BaseURL      string  `json:"base_url"`
	LastPolledAt *string `json:"last_polled_at"`
}

// Credentials never leave through the API.
func (view ServiceView) From(entity *models.ServiceConnection, polledAt *time.Time) ServiceView {
	v := ServiceView{
		ID:      entity.ID,
		Kind:    string(entity.Kind),
		Name:    entity.Name,
		BaseURL: entity.BaseURL,
	}
	if polledAt != nil {
		v.LastPolledAt = isoformat(*polledAt)
	}
	return v
}

func isoformat(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
