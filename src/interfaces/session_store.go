package interfaces

import (
	"time"

	"tradier-streamer/src/models"
)

// -----------------------------------------------------------------------------
// ISessionStore keeps the lifecycle history of negotiated sessions.
// -----------------------------------------------------------------------------

type ISessionStore interface {

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// RecordSession inserts a newly activated session.
	RecordSession(record *models.MSessionRecord) error

	// -----------------------------------------------------------------------------

	// MarkReleased sets the release time of a recorded session.
	MarkReleased(id string, releasedAt time.Time) error

	// -----------------------------------------------------------------------------

	// ListRecent returns up to limit records, newest first.
	ListRecent(limit int) ([]models.MSessionRecord, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
