package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionRepository defines the interface for managing billing state.
// Each user has at most one subscription row, kept in sync with LemonSqueezy
// through webhook events.
type SubscriptionRepository interface {
	// UpsertSubscription creates or updates the subscription row for a user.
	UpsertSubscription(sub *Subscription) error

	// GetSubscription retrieves the subscription for a user.
	// It returns an error if the user has no subscription row.
	GetSubscription(userID uuid.UUID) (*Subscription, error)

	// SpendSplash atomically decrements the user's splash credits.
	// It returns ErrNoSplashCredits-style errors when the balance is zero.
	SpendSplash(userID uuid.UUID) error

	// SplashProspect spends one splash credit and unlocks a premium
	// prospect in a single transaction. Unlocking is conditional on the
	// prospect still being locked; an already-unlocked prospect spends
	// nothing.
	SplashProspect(userID, prospectID uuid.UUID, at time.Time) error

	// ResetSplashCredits sets the splash credit balance, typically on a
	// successful renewal payment.
	ResetSplashCredits(userID uuid.UUID, credits int) error

	// SeenWebhookEvent reports whether a LemonSqueezy event ID has already
	// been applied. Used for idempotent webhook replay.
	SeenWebhookEvent(eventID string) (bool, error)

	// MarkWebhookEvent records a LemonSqueezy event ID as applied. Called
	// only after the event's effects are persisted, so a failed delivery
	// can be retried.
	MarkWebhookEvent(eventID string) error
}

// Subscription represents a user's billing state as mirrored from LemonSqueezy.
type Subscription struct {
	UserID           uuid.UUID  // Owning user.
	LSSubscriptionID string     // LemonSqueezy subscription ID.
	LSCustomerID     string     // LemonSqueezy customer ID.
	Plan             string     // Plan name (free, starter, grow, pro).
	Status           string     // LemonSqueezy status (active, past_due, cancelled, ...).
	SplashCredits    int        // Remaining splash credits this cycle.
	RenewsAt         *time.Time // Next renewal date reported by LemonSqueezy.
	UpdatedAt        time.Time  // Last time a webhook touched the row.
}
