package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/linkdripai/linkdrip/domain"
)

var _ domain.SubscriptionRepository = (*Repository)(nil)

var (
	// ErrNoSubscription is returned when a user has no subscription row.
	ErrNoSubscription = errors.New("user has no subscription")
	// ErrNoSplashCredits is returned when a splash is spent on an empty balance.
	ErrNoSplashCredits = errors.New("no splash credits remaining")
)

// dbSubscription represents a subscription as stored in the database.
type dbSubscription struct {
	UserID           uuid.UUID    `db:"user_id"`
	LSSubscriptionID string       `db:"ls_subscription_id"`
	LSCustomerID     string       `db:"ls_customer_id"`
	Plan             string       `db:"plan"`
	Status           string       `db:"status"`
	SplashCredits    int          `db:"splash_credits"`
	RenewsAt         sql.NullTime `db:"renews_at"`
	UpdatedAt        time.Time    `db:"updated_at"`
}

// toDomainSubscription converts a dbSubscription to a domain.Subscription.
func toDomainSubscription(dbSub *dbSubscription) *domain.Subscription {
	sub := &domain.Subscription{
		UserID:           dbSub.UserID,
		LSSubscriptionID: dbSub.LSSubscriptionID,
		LSCustomerID:     dbSub.LSCustomerID,
		Plan:             dbSub.Plan,
		Status:           dbSub.Status,
		SplashCredits:    dbSub.SplashCredits,
		UpdatedAt:        dbSub.UpdatedAt,
	}

	if dbSub.RenewsAt.Valid {
		t := dbSub.RenewsAt.Time
		sub.RenewsAt = &t
	}

	return sub
}

// UpsertSubscription creates or updates the subscription row for a user.
func (repo *Repository) UpsertSubscription(sub *domain.Subscription) error {
	var renewsAt sql.NullTime
	if sub.RenewsAt != nil {
		renewsAt = sql.NullTime{Time: *sub.RenewsAt, Valid: true}
	}

	query := `INSERT INTO subscription (user_id, ls_subscription_id, ls_customer_id, plan, status, splash_credits, renews_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	          ON CONFLICT(user_id) DO UPDATE SET
	              ls_subscription_id=excluded.ls_subscription_id,
	              ls_customer_id=excluded.ls_customer_id,
	              plan=excluded.plan,
	              status=excluded.status,
	              splash_credits=excluded.splash_credits,
	              renews_at=excluded.renews_at,
	              updated_at=excluded.updated_at`

	_, err := repo.dbConn.Exec(query, sub.UserID, sub.LSSubscriptionID, sub.LSCustomerID, sub.Plan, sub.Status, sub.SplashCredits, renewsAt, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting subscription for user %s: %w", sub.UserID, err)
	}

	return nil
}

// GetSubscription retrieves the subscription for a user.
func (repo *Repository) GetSubscription(userID uuid.UUID) (*domain.Subscription, error) {
	var dbSub dbSubscription
	query := `SELECT * FROM subscription WHERE user_id = ?`

	err := repo.dbConn.Get(&dbSub, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSubscription
		}
		return nil, fmt.Errorf("getting subscription for user %s: %w", userID, err)
	}

	return toDomainSubscription(&dbSub), nil
}

// SpendSplash atomically decrements the user's splash credits. The guard in
// the WHERE clause makes a double spend impossible.
func (repo *Repository) SpendSplash(userID uuid.UUID) error {
	query := `UPDATE subscription SET splash_credits = splash_credits - 1
	          WHERE user_id = ? AND splash_credits > 0`

	result, err := repo.dbConn.Exec(query, userID)
	if err != nil {
		return fmt.Errorf("spending splash for user %s: %w", userID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking splash rows affected for %s: %w", userID, err)
	}

	if rowsAffected == 0 {
		return ErrNoSplashCredits
	}

	return nil
}

// ResetSplashCredits sets the splash credit balance.
func (repo *Repository) ResetSplashCredits(userID uuid.UUID, credits int) error {
	query := `UPDATE subscription SET splash_credits = ? WHERE user_id = ?`

	result, err := repo.dbConn.Exec(query, credits, userID)
	if err != nil {
		return fmt.Errorf("resetting splash credits for user %s: %w", userID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking reset rows affected for %s: %w", userID, err)
	}

	if rowsAffected == 0 {
		return ErrNoSubscription
	}

	return nil
}

// SplashProspect atomically spends one splash credit and unlocks a premium
// prospect. The unlock is conditional on the prospect still being locked,
// so two concurrent splashes spend at most one credit; if the prospect was
// already unlocked nothing is spent. The spend failing rolls the unlock
// back.
func (repo *Repository) SplashProspect(userID, prospectID uuid.UUID, at time.Time) error {
	tx, err := repo.dbConn.Beginx()
	if err != nil {
		return fmt.Errorf("beginning splash transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE prospect SET status = ?, unlocked_at = ? WHERE id = ? AND unlocked_at IS NULL`,
		domain.StatusUnlocked, at, prospectID)
	if err != nil {
		return fmt.Errorf("unlocking prospect %s: %w", prospectID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking unlock rows affected for %s: %w", prospectID, err)
	}
	if rowsAffected == 0 {
		// Already unlocked, nothing to spend.
		return nil
	}

	result, err = tx.Exec(`UPDATE subscription SET splash_credits = splash_credits - 1
	                       WHERE user_id = ? AND splash_credits > 0`, userID)
	if err != nil {
		return fmt.Errorf("spending splash for user %s: %w", userID, err)
	}
	rowsAffected, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking splash rows affected for %s: %w", userID, err)
	}
	if rowsAffected == 0 {
		return ErrNoSplashCredits
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing splash transaction: %w", err)
	}
	return nil
}

// SeenWebhookEvent reports whether a LemonSqueezy event ID has already
// been applied.
func (repo *Repository) SeenWebhookEvent(eventID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM webhook_event WHERE event_id = ?)`

	var seen bool
	if err := repo.dbConn.Get(&seen, query, eventID); err != nil {
		return false, fmt.Errorf("checking webhook event %s: %w", eventID, err)
	}
	return seen, nil
}

// MarkWebhookEvent records a LemonSqueezy event ID as applied. Marking the
// same event twice is a no-op.
func (repo *Repository) MarkWebhookEvent(eventID string) error {
	query := `INSERT INTO webhook_event (event_id) VALUES (?)
	          ON CONFLICT(event_id) DO NOTHING`

	if _, err := repo.dbConn.Exec(query, eventID); err != nil {
		return fmt.Errorf("recording webhook event %s: %w", eventID, err)
	}
	return nil
}
