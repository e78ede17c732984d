package storage

import (
	"context"
	"errors"
	"strings"

	"calbot/pkg/logx"
)

// Store is the persistence API used by the app and the command handlers.
type Store interface {
	AppendAudit(ctx context.Context, e AuditEntry) error
	AppendRun(ctx context.Context, r RunRecord) error
	// RecentRuns returns up to limit records, newest first.
	// An empty task matches every task.
	RecentRuns(ctx context.Context, task string, limit int) ([]RunRecord, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
