package app

import (
	"github.com/fiffu/arrwatch/config"
	"github.com/fiffu/arrwatch/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func NewDatabase(lc fx.Lifecycle, log *zap.Logger, cfg *config.Config) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{})
	if err != nil {
		log.Sugar().Panicw("failed to connect database", "err", err)
	}
	log.Info("Database started")

	log.Info("Starting migrations")
	db.AutoMigrate(
		&models.ServiceConnection{},
		&models.PollCursor{},
		&models.Subscription{},
		&models.Preference{},
		&models.DeliveryAttempt{},
	)
	return db
}
