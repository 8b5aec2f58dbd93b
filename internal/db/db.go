package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/config"
	pricecachedomain "github.com/diyak0413/garden-state-grocery-gap-yay/internal/pricecache/domain"
	quotadomain "github.com/diyak0413/garden-state-grocery-gap-yay/internal/quota/domain"
	"github.com/glebarez/sqlite"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var Module = fx.Module("db",
	fx.Provide(Open),
	fx.Invoke(Migrate),
)

func Open(cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Database.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.Database.DSN)
	case "sqlite", "":
		if dir := filepath.Dir(cfg.Database.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database dir: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	log.Info("database opened",
		zap.String("driver", cfg.Database.Driver),
	)
	return gdb, nil
}

// Migrate bootstraps the two pipeline tables. The schema is small enough
// that gorm's migrator covers both supported drivers.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&pricecachedomain.CachedPrice{},
		&quotadomain.QuotaCounter{},
	)
}
