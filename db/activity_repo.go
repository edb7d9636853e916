package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/linkdripai/linkdrip/domain"
)

var _ domain.ActivityRepository = (*Repository)(nil)

// dbActivity represents an activity feed entry as stored in the database.
type dbActivity struct {
	ID         uuid.UUID      `db:"id"`
	Timestamp  time.Time      `db:"timestamp"`
	Level      string         `db:"level"`
	Message    string         `db:"message"`
	Context    Metadata       `db:"context"`
	UserID     sql.NullString `db:"user_id"`
	ProspectID sql.NullString `db:"prospect_id"`
}

// toDomainActivity converts a dbActivity to a domain.ActivityEvent.
func toDomainActivity(dbAct *dbActivity) *domain.ActivityEvent {
	event := &domain.ActivityEvent{
		ID:        dbAct.ID,
		Timestamp: dbAct.Timestamp,
		Level:     dbAct.Level,
		Message:   dbAct.Message,
		Context:   map[string]any(dbAct.Context),
	}

	if dbAct.UserID.Valid {
		if id, err := uuid.Parse(dbAct.UserID.String); err == nil {
			event.UserID = &id
		}
	}

	if dbAct.ProspectID.Valid {
		if id, err := uuid.Parse(dbAct.ProspectID.String); err == nil {
			event.ProspectID = &id
		}
	}

	return event
}

// fromDomainActivity converts a domain.ActivityEvent to a dbActivity.
func fromDomainActivity(event *domain.ActivityEvent) *dbActivity {
	dbAct := &dbActivity{
		ID:        event.ID,
		Timestamp: event.Timestamp,
		Level:     event.Level,
		Message:   event.Message,
		Context:   Metadata(event.Context),
	}

	if event.UserID != nil {
		dbAct.UserID = sql.NullString{String: event.UserID.String(), Valid: true}
	}

	if event.ProspectID != nil {
		dbAct.ProspectID = sql.NullString{String: event.ProspectID.String(), Valid: true}
	}

	return dbAct
}

// InsertActivity saves a new activity entry.
func (repo *Repository) InsertActivity(event *domain.ActivityEvent) error {
	query := `INSERT INTO activity (id, timestamp, level, message, context, user_id, prospect_id)
	          VALUES (:id, :timestamp, :level, :message, :context, :user_id, :prospect_id)`

	_, err := repo.dbConn.NamedExec(query, fromDomainActivity(event))
	if err != nil {
		return fmt.Errorf("inserting activity %s: %w", event.ID, err)
	}

	return nil
}

// GetActivities retrieves the most recent activity entries, newest first.
func (repo *Repository) GetActivities(limit int) ([]*domain.ActivityEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	var dbActivities []*dbActivity
	query := `SELECT * FROM activity ORDER BY timestamp DESC LIMIT ?`

	err := repo.dbConn.Select(&dbActivities, query, limit)
	if err != nil {
		return nil, fmt.Errorf("retrieving activities: %w", err)
	}

	events := make([]*domain.ActivityEvent, len(dbActivities))
	for i, dbAct := range dbActivities {
		events[i] = toDomainActivity(dbAct)
	}

	return events, nil
}
