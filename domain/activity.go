package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActivityRepository defines the interface for the persistent activity feed.
// It provides methods for persisting and retrieving activity entries.
type ActivityRepository interface {
	// InsertActivity saves a new activity entry to the repository.
	InsertActivity(event *ActivityEvent) error
	// GetActivities retrieves the most recent activity entries, newest first.
	GetActivities(limit int) ([]*ActivityEvent, error)
}

// ActivityEvent represents a single entry in the activity feed, recording an
// event that occurred in the application (a drip allocation, a splash, a
// webhook, a discovery run).
type ActivityEvent struct {
	ID         uuid.UUID      // Unique identifier for the entry.
	Timestamp  time.Time      // The time at which the entry was created.
	Level      string         // The severity level (DEBUG, INFO, WARN, ERROR).
	Message    string         // The main content of the message.
	Context    map[string]any // A map of additional key-value data.
	UserID     *uuid.UUID     // An optional ID of an associated user.
	ProspectID *uuid.UUID     // An optional ID of an associated prospect.
}
