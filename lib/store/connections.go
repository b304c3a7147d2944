package store

import (
	"context"
	"fmt"

	"github.com/fiffu/arrwatch/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConnectionStore struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewConnectionStore(lc fx.Lifecycle, log *zap.Logger, db *gorm.DB) *ConnectionStore {
	return &ConnectionStore{db: db, log: log}
}

func (s *ConnectionStore) Create(ctx context.Context, conn *models.ServiceConnection) error {
	if !models.IsValidServiceKind(string(conn.Kind)) {
		return fmt.Errorf("unsupported service kind: %s", conn.Kind)
	}
	tx := s.db.WithContext(ctx).Clauses(clause.Returning{}).Create(conn)
	return tx.Error
}

func (s *ConnectionStore) List(ctx context.Context) (models.ServiceConnections, error) {
	var conns models.ServiceConnections
	tx := s.db.WithContext(ctx).Order("id").Find(&conns)
	return conns, tx.Error
}

func (s *ConnectionStore) Get(ctx context.Context, id uint) (*models.ServiceConnection, error) {
	var conn models.ServiceConnection
	tx := s.db.WithContext(ctx).Where("id = ?", id).First(&conn)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &conn, nil
}

// Delete removes a connection together with its cursor, so re-adding the
// same service later starts from a fresh baseline.
func (s *ConnectionStore) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("service_connection_id = ?", id).Delete(&models.PollCursor{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.ServiceConnection{}).Error
	})
}
