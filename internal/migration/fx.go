package migration

import (
	"github.com/smallbiznis/printflow/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if err := Migrate(conn, cfg.DBAutoMigrate); err != nil {
			return err
		}
		log.Info("database schema ready", zap.String("dialect", conn.Dialector.Name()))
		return nil
	}),
)
