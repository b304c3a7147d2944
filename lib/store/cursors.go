// Package store owns all writes to the persisted entities. Other components
// receive read views or narrow capabilities; nothing else touches the
// database directly.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/fiffu/arrwatch/lib/detect"
	"github.com/fiffu/arrwatch/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CursorStore struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewCursorStore(lc fx.Lifecycle, log *zap.Logger, db *gorm.DB) *CursorStore {
	return &CursorStore{db: db, log: log}
}

// Get returns the cursor state for a connection, or a zero state when the
// service has never completed a cycle.
func (s *CursorStore) Get(ctx context.Context, connID uint) (detect.State, error) {
	var row models.PollCursor
	tx := s.db.WithContext(ctx).Where("service_connection_id = ?", connID).First(&row)
	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return detect.State{}, nil
	} else if err != nil {
		return detect.State{}, err
	}
	return detect.ParseState(row.State)
}

// Advance upserts the cursor after a successful cycle. This is the only
// writer; a cursor is created lazily here and only ever moves forward.
func (s *CursorStore) Advance(ctx context.Context, connID uint, state detect.State, polledAt time.Time) error {
	encoded, err := state.Encode()
	if err != nil {
		return err
	}

	row := models.PollCursor{
		ServiceConnectionID: connID,
		LastPolledAt:        polledAt,
		State:               encoded,
	}
	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "service_connection_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_polled_at", "state", "updated_at"}),
	}).Create(&row)
	return tx.Error
}

func (s *CursorStore) LastPolledAt(ctx context.Context, connID uint) (time.Time, error) {
	var row models.PollCursor
	tx := s.db.WithContext(ctx).Where("service_connection_id = ?", connID).First(&row)
	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	} else if err != nil {
		return time.Time{}, err
	}
	return row.LastPolledAt, nil
}

// Delete removes the cursor when its connection is removed; the only
// explicit reset path.
func (s *CursorStore) Delete(ctx context.Context, connID uint) error {
	tx := s.db.WithContext(ctx).Unscoped().Where("service_connection_id = ?", connID).Delete(&models.PollCursor{})
	return tx.Error
}
