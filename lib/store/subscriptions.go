package store

import (
	"context"
	"time"

	"github.com/fiffu/arrwatch/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionStore struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewSubscriptionStore(lc fx.Lifecycle, log *zap.Logger, db *gorm.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db, log: log}
}

func (s *SubscriptionStore) Create(ctx context.Context, sub *models.Subscription) error {
	tx := s.db.WithContext(ctx).Clauses(clause.Returning{}).Create(sub)
	return tx.Error
}

func (s *SubscriptionStore) List(ctx context.Context) (models.Subscriptions, error) {
	var subs models.Subscriptions
	tx := s.db.WithContext(ctx).Preload("Preferences").Order("created_at").Find(&subs)
	return subs, tx.Error
}

func (s *SubscriptionStore) Get(ctx context.Context, id string) (*models.Subscription, error) {
	var sub models.Subscription
	tx := s.db.WithContext(ctx).Preload("Preferences").Where("id = ?", id).First(&sub)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &sub, nil
}

func (s *SubscriptionStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("subscription_id = ?", id).Delete(&models.Preference{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Subscription{}).Error
	})
}

// SetPreferences upserts the per-kind toggles for one subscription. Kinds
// absent from prefs are left untouched (and so stay default-enabled).
func (s *SubscriptionStore) SetPreferences(ctx context.Context, subID string, prefs map[models.EventKind]bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for kind, enabled := range prefs {
			row := models.Preference{
				SubscriptionID: subID,
				EventKind:      kind,
				Enabled:        enabled,
				UpdatedAt:      time.Now().UTC(),
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "subscription_id"}, {Name: "event_kind"}},
				DoUpdates: clause.AssignmentColumns([]string{"enabled", "updated_at"}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Recipients resolves which subscriptions want a given event kind. A missing
// preference row means enabled, so new or unknown kinds reach every device
// without pre-seeded rows.
func (s *SubscriptionStore) Recipients(ctx context.Context, kind models.EventKind) (models.Subscriptions, error) {
	var subs models.Subscriptions
	tx := s.db.WithContext(ctx).
		Joins("LEFT JOIN preferences ON preferences.subscription_id = subscriptions.id AND preferences.event_kind = ?", kind).
		Where("preferences.id IS NULL OR preferences.enabled").
		Find(&subs)
	return subs, tx.Error
}

// DeleteByEndpoint is the dispatcher's pruning capability: the one mutation
// allowed from outside the subscription management surface.
func (s *SubscriptionStore) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		err := tx.Where("endpoint = ?", endpoint).First(&sub).Error
		if err == gorm.ErrRecordNotFound {
			return nil
		} else if err != nil {
			return err
		}
		if err := tx.Where("subscription_id = ?", sub.ID).Delete(&models.Preference{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", sub.ID).Delete(&models.Subscription{}).Error
	})
}

// RecordAttempt appends an audit row; failures only get logged since the
// audit trail is not load-bearing.
func (s *SubscriptionStore) RecordAttempt(ctx context.Context, attempt models.DeliveryAttempt) {
	if err := s.db.WithContext(ctx).Create(&attempt).Error; err != nil {
		s.log.Sugar().Warnw("Failed to record delivery attempt", "err", err)
	}
}
