package domain

import (
	"time"

	"github.com/google/uuid"
)

// Outreach email status values.
const (
	EmailDraft   = "draft"
	EmailSent    = "sent"
	EmailReplied = "replied"
	EmailBounced = "bounced"
)

// OutreachRepository defines the interface for managing outreach emails
// drafted and sent against prospects.
type OutreachRepository interface {
	// InsertEmail persists a new outreach email, usually as a draft.
	InsertEmail(email *OutreachEmail) error

	// GetEmail retrieves an outreach email by ID.
	GetEmail(id uuid.UUID) (*OutreachEmail, error)

	// GetEmailsForUser retrieves all outreach emails created by a user,
	// newest first.
	GetEmailsForUser(userID uuid.UUID) ([]*OutreachEmail, error)

	// GetEmailsForProspect retrieves all outreach emails tied to a prospect.
	GetEmailsForProspect(prospectID uuid.UUID) ([]*OutreachEmail, error)

	// UpdateEmailDraft replaces the subject and body of a draft.
	// It returns an error if the email does not exist.
	UpdateEmailDraft(id uuid.UUID, subject, body string) error

	// UpdateEmailStatus transitions an email to the given status, recording
	// the send time when the status is "sent".
	UpdateEmailStatus(id uuid.UUID, status string, sentAt *time.Time) error

	// DeleteEmail removes an outreach email.
	// It returns an error if the email does not exist.
	DeleteEmail(id uuid.UUID) error
}

// OutreachEmail represents a single outreach message drafted for a prospect.
// Sending happens in the user's own mail client; LinkDrip tracks the state.
type OutreachEmail struct {
	ID         uuid.UUID  // Unique identifier for the email.
	UserID     uuid.UUID  // Author of the email.
	ProspectID uuid.UUID  // Prospect the email targets.
	Subject    string     // Email subject line.
	Body       string     // Email body text.
	Status     string     // Lifecycle status, see Email* constants.
	CreatedAt  time.Time  // Timestamp when the draft was created.
	SentAt     *time.Time // Timestamp when the email was marked sent.
}
