package migration

import (
	"strings"

	"github.com/finledger/backoffice/internal/config"
	"github.com/finledger/backoffice/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// The embedded migration set targets postgres. Other dialects are
		// expected to bring their own schema (tests create tables directly).
		if strings.ToLower(cfg.DBType) == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		}

		if cfg.DefaultOrgID != 0 {
			if err := seed.EnsureDefaultOrg(conn, cfg.DefaultOrgID); err != nil {
				return err
			}
			if strings.EqualFold(cfg.Environment, "development") {
				return seed.SeedDemoData(conn, cfg.DefaultOrgID)
			}
		}
		return nil
	}),
)
