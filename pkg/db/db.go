package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/accordhq/accord/internal/config"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects the single-writer sqlite store. WAL keeps readers off the
// writer's back; busy_timeout bounds lock waits so a contended transaction
// fails with a retryable error instead of blocking forever.
func Open(cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("db: create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(30000)&_pragma=foreign_keys(ON)", cfg.DBPath)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", cfg.DBPath, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers anyway; one connection avoids
	// SQLITE_BUSY churn between pooled handles.
	sqlDB.SetMaxOpenConns(1)

	log.Info("database opened", zap.String("path", cfg.DBPath))
	return gdb, nil
}
