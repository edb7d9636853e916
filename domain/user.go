package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserRepository defines the interface for managing user accounts.
type UserRepository interface {
	// CreateUser persists a new user account. The caller is responsible for
	// hashing the password before it reaches the repository.
	CreateUser(user *User) error

	// GetUser retrieves a user by ID. It returns an error if the user does not exist.
	GetUser(id uuid.UUID) (*User, error)

	// GetUserByEmail retrieves a user by their email address.
	// It returns ErrNoUser-style errors from the implementation when absent.
	GetUserByEmail(email string) (*User, error)

	// UpdateOnboarding updates the onboarding stage for a user.
	UpdateOnboarding(id uuid.UUID, stage string) error
}

// WebsiteRepository defines the interface for managing the websites users
// build links for. Prospects are always discovered on behalf of a website.
type WebsiteRepository interface {
	// CreateWebsite persists a new website for a user.
	CreateWebsite(site *Website) error

	// GetWebsite retrieves a website by ID.
	GetWebsite(id uuid.UUID) (*Website, error)

	// GetWebsitesForUser retrieves all websites registered by a user.
	GetWebsitesForUser(userID uuid.UUID) ([]*Website, error)
}

// User represents a LinkDrip account holder.
type User struct {
	ID           uuid.UUID // Unique identifier for the user.
	Email        string    // Login email, unique across accounts.
	Name         string    // Display name shown in the dashboard.
	PasswordHash string    // bcrypt hash of the account password.
	Onboarding   string    // Current onboarding stage ("website", "preferences", "done").
	CreatedAt    time.Time // Timestamp when the account was created.
}

// Website represents a site a user is building backlinks for. Discovery
// relevance is judged against the website's keywords.
type Website struct {
	ID        uuid.UUID // Unique identifier for the website.
	UserID    uuid.UUID // Owning user.
	URL       string    // Canonical URL of the site.
	Domain    string    // Registrable domain, derived from URL.
	Keywords  []string  // Topic keywords used for prospect relevance scoring.
	CreatedAt time.Time // Timestamp when the website was added.
}
