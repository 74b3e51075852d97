package migration

import (
	"strings"

	"github.com/blicktrack/platform/internal/config"
	"github.com/blicktrack/platform/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// golang-migrate drives the Postgres schema. Other dialects
		// (sqlite in tests, mysql) get the gorm fallback.
		if strings.EqualFold(strings.TrimSpace(cfg.DBType), "postgres") {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := AutoMigrate(conn); err != nil {
				return err
			}
		}

		if err := seed.EnsureCatalog(conn); err != nil {
			return err
		}
		if cfg.BootstrapDefaultTenant {
			return seed.EnsureMainTenant(conn)
		}
		return nil
	}),
)
