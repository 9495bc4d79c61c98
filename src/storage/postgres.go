package storage

import (
	"database/sql"
	"fmt"
	"time"

	"tradier-streamer/src/logger"
	"tradier-streamer/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

// PostgresSessionStore keeps session history in a dedicated schema
type PostgresSessionStore struct {
	DSN    string
	Schema string
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresSessionStore(dsn, schema string, log *logger.Logger) *PostgresSessionStore {
	if schema == "" {
		schema = "tradier_streamer"
	}
	return &PostgresSessionStore{
		DSN:    dsn,
		Schema: schema,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (d *PostgresSessionStore) Initialize() error {
	db, err := sql.Open("postgres", d.DSN)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}
	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s".stream_sessions (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			stream_id TEXT,
			stream_url TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			released_at TIMESTAMPTZ
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create stream_sessions: %w", err)
	}

	d.Logger.Info("postgres-store : initialized (schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresSessionStore) table() string {
	return fmt.Sprintf(`"%s".stream_sessions`, d.Schema)
}

// -----------------------------------------------------------------------------

func (d *PostgresSessionStore) RecordSession(record *models.MSessionRecord) error {
	_, err := d.DB.Exec(
		fmt.Sprintf(`INSERT INTO %s (id, kind, stream_id, stream_url, created_at, released_at) VALUES ($1, $2, $3, $4, $5, $6)`, d.table()),
		record.ID, string(record.Kind), record.StreamID, record.StreamURL, record.CreatedAt, record.ReleasedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session %s: %w", record.ID, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresSessionStore) MarkReleased(id string, releasedAt time.Time) error {
	res, err := d.DB.Exec(fmt.Sprintf(`UPDATE %s SET released_at = $1 WHERE id = $2`, d.table()), releasedAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark session %s released: %w", id, err)
	}
	return expectOneRow(res, id)
}

// -----------------------------------------------------------------------------

func (d *PostgresSessionStore) ListRecent(limit int) ([]models.MSessionRecord, error) {
	rows, err := d.DB.Query(
		fmt.Sprintf(`SELECT id, kind, stream_id, stream_url, created_at, released_at FROM %s ORDER BY created_at DESC, id LIMIT $1`, d.table()),
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
			released sql.NullTime
		)
		if err := rows.Scan(&r.ID, &kind, &r.StreamID, &r.StreamURL, &r.CreatedAt, &released); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		r.Kind = models.MSessionKind(kind)
		if released.Valid {
			at := released.Time
			r.ReleasedAt = &at
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *PostgresSessionStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
