package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/linkdripai/linkdrip/domain"
)

var _ domain.OutreachRepository = (*Repository)(nil)

var (
	// ErrNoEmail is returned when an outreach email cannot be found.
	ErrNoEmail = errors.New("outreach email not found")
)

// dbOutreachEmail represents an outreach email as stored in the database.
type dbOutreachEmail struct {
	ID         uuid.UUID    `db:"id"`
	UserID     uuid.UUID    `db:"user_id"`
	ProspectID uuid.UUID    `db:"prospect_id"`
	Subject    string       `db:"subject"`
	Body       string       `db:"body"`
	Status     string       `db:"status"`
	CreatedAt  time.Time    `db:"created_at"`
	SentAt     sql.NullTime `db:"sent_at"`
}

// toDomainEmail converts a dbOutreachEmail to a domain.OutreachEmail.
func toDomainEmail(dbEmail *dbOutreachEmail) *domain.OutreachEmail {
	email := &domain.OutreachEmail{
		ID:         dbEmail.ID,
		UserID:     dbEmail.UserID,
		ProspectID: dbEmail.ProspectID,
		Subject:    dbEmail.Subject,
		Body:       dbEmail.Body,
		Status:     dbEmail.Status,
		CreatedAt:  dbEmail.CreatedAt,
	}

	if dbEmail.SentAt.Valid {
		t := dbEmail.SentAt.Time
		email.SentAt = &t
	}

	return email
}

// InsertEmail persists a new outreach email.
func (repo *Repository) InsertEmail(email *domain.OutreachEmail) error {
	query := `INSERT INTO outreach (id, user_id, prospect_id, subject, body, status, created_at, sent_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	var sentAt sql.NullTime
	if email.SentAt != nil {
		sentAt = sql.NullTime{Time: *email.SentAt, Valid: true}
	}

	_, err := repo.dbConn.Exec(query, email.ID, email.UserID, email.ProspectID, email.Subject, email.Body, email.Status, email.CreatedAt, sentAt)
	if err != nil {
		return fmt.Errorf("inserting outreach email %s: %w", email.ID, err)
	}

	return nil
}

// GetEmail retrieves an outreach email by ID.
func (repo *Repository) GetEmail(id uuid.UUID) (*domain.OutreachEmail, error) {
	var dbEmail dbOutreachEmail
	query := `SELECT * FROM outreach WHERE id = ?`

	err := repo.dbConn.Get(&dbEmail, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoEmail
		}
		return nil, fmt.Errorf("getting outreach email %s: %w", id, err)
	}

	return toDomainEmail(&dbEmail), nil
}

// GetEmailsForUser retrieves all outreach emails created by a user, newest first.
func (repo *Repository) GetEmailsForUser(userID uuid.UUID) ([]*domain.OutreachEmail, error) {
	var dbEmails []*dbOutreachEmail
	query := `SELECT * FROM outreach WHERE user_id = ? ORDER BY created_at DESC`

	err := repo.dbConn.Select(&dbEmails, query, userID)
	if err != nil {
		return nil, fmt.Errorf("getting outreach emails for user %s: %w", userID, err)
	}

	emails := make([]*domain.OutreachEmail, len(dbEmails))
	for i, dbEmail := range dbEmails {
		emails[i] = toDomainEmail(dbEmail)
	}

	return emails, nil
}

// GetEmailsForProspect retrieves all outreach emails tied to a prospect.
func (repo *Repository) GetEmailsForProspect(prospectID uuid.UUID) ([]*domain.OutreachEmail, error) {
	var dbEmails []*dbOutreachEmail
	query := `SELECT * FROM outreach WHERE prospect_id = ? ORDER BY created_at DESC`

	err := repo.dbConn.Select(&dbEmails, query, prospectID)
	if err != nil {
		return nil, fmt.Errorf("getting outreach emails for prospect %s: %w", prospectID, err)
	}

	emails := make([]*domain.OutreachEmail, len(dbEmails))
	for i, dbEmail := range dbEmails {
		emails[i] = toDomainEmail(dbEmail)
	}

	return emails, nil
}

// UpdateEmailDraft replaces the subject and body of a draft.
func (repo *Repository) UpdateEmailDraft(id uuid.UUID, subject, body string) error {
	query := `UPDATE outreach SET subject = ?, body = ? WHERE id = ?`

	result, err := repo.dbConn.Exec(query, subject, body, id)
	if err != nil {
		return fmt.Errorf("updating outreach draft %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking draft rows affected for %s: %w", id, err)
	}

	if rowsAffected == 0 {
		return ErrNoEmail
	}

	return nil
}

// UpdateEmailStatus transitions an email to the given status, recording the
// send time when provided.
func (repo *Repository) UpdateEmailStatus(id uuid.UUID, status string, sentAt *time.Time) error {
	var nullSentAt sql.NullTime
	if sentAt != nil {
		nullSentAt = sql.NullTime{Time: *sentAt, Valid: true}
	}

	query := `UPDATE outreach SET status = ?, sent_at = COALESCE(?, sent_at) WHERE id = ?`

	result, err := repo.dbConn.Exec(query, status, nullSentAt, id)
	if err != nil {
		return fmt.Errorf("updating outreach status %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking status rows affected for %s: %w", id, err)
	}

	if rowsAffected == 0 {
		return ErrNoEmail
	}

	return nil
}

// DeleteEmail removes an outreach email.
func (repo *Repository) DeleteEmail(id uuid.UUID) error {
	query := `DELETE FROM outreach WHERE id = ?`

	result, err := repo.dbConn.Exec(query, id)
	if err != nil {
		return fmt.Errorf("deleting outreach email %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking deletion rows affected for %s: %w", id, err)
	}

	if rowsAffected == 0 {
		return ErrNoEmail
	}

	return nil
}
