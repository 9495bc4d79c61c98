package storage

import (
	"database/sql"
	"fmt"

	"tradier-streamer/src/interfaces"
	"tradier-streamer/src/logger"
	"tradier-streamer/src/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// -----------------------------------------------------------------------------

// NewSessionStore returns the store selected by db_type, or nil when storage is disabled.
// The returned store is not initialized yet.
func NewSessionStore(cfg *models.MStorageConfig, log *logger.Logger) (interfaces.ISessionStore, error) {
	switch cfg.DBType {
	case "":
		return nil, nil
	case "sqlite":
		return NewSQLiteSessionStore(cfg.DBPath, log), nil
	case "postgres":
		return NewPostgresSessionStore(cfg.DBConnectionString, "", log), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.DBType)
	}
}

// -----------------------------------------------------------------------------

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}

// -----------------------------------------------------------------------------

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}
