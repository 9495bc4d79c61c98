package storage

import (
	"database/sql"
	"fmt"
	"time"

	"tradier-streamer/src/logger"
	"tradier-streamer/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

// SQLiteSessionStore keeps session history in a local SQLite file.
// Times are stored as unix milliseconds.
type SQLiteSessionStore struct {
	Path   string
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteSessionStore(path string, log *logger.Logger) *SQLiteSessionStore {
	return &SQLiteSessionStore{
		Path:   path,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (d *SQLiteSessionStore) Initialize() error {
	db, err := sql.Open("sqlite", d.Path)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}
	// A single writer avoids SQLITE_BUSY between the session and the status API
	db.SetMaxOpenConns(1)
	d.DB = db

	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("sqlite-store : failed to set WAL mode: %v", err)
	}

	query := `
		CREATE TABLE IF NOT EXISTS stream_sessions (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			stream_id TEXT,
			stream_url TEXT,
			created_at INTEGER NOT NULL,
			released_at INTEGER
		);
	`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create stream_sessions: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_stream_sessions_created ON stream_sessions (created_at)`); err != nil {
		return fmt.Errorf("failed to create stream_sessions index: %w", err)
	}

	d.Logger.Info("sqlite-store : initialized at %s", d.Path)
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteSessionStore) RecordSession(record *models.MSessionRecord) error {
	var released any
	if record.ReleasedAt != nil {
		released = record.ReleasedAt.UnixMilli()
	}
	_, err := d.DB.Exec(
		`INSERT INTO stream_sessions (id, kind, stream_id, stream_url, created_at, released_at) VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID, string(record.Kind), record.StreamID, record.StreamURL, record.CreatedAt.UnixMilli(), released,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session %s: %w", record.ID, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteSessionStore) MarkReleased(id string, releasedAt time.Time) error {
	res, err := d.DB.Exec(`UPDATE stream_sessions SET released_at = ? WHERE id = ?`, releasedAt.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to mark session %s released: %w", id, err)
	}
	return expectOneRow(res, id)
}

// -----------------------------------------------------------------------------

func (d *SQLiteSessionStore) ListRecent(limit int) ([]models.MSessionRecord, error) {
	rows, err := d.DB.Query(
		`SELECT id, kind, stream_id, stream_url, created_at, released_at FROM stream_sessions ORDER BY created_at DESC, id LIMIT ?`,
		normalizeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	records := []models.MSessionRecord{}
	for rows.Next() {
		var (
			r        models.MSessionRecord
			kind     string
			created  int64
			released sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &kind, &r.StreamID, &r.StreamURL, &created, &released); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		r.Kind = models.MSessionKind(kind)
		r.CreatedAt = time.UnixMilli(created).UTC()
		if released.Valid {
			at := time.UnixMilli(released.Int64).UTC()
			r.ReleasedAt = &at
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *SQLiteSessionStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
