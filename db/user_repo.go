package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/linkdripai/linkdrip/domain"
)

var _ domain.UserRepository = (*Repository)(nil)
var _ domain.WebsiteRepository = (*Repository)(nil)

var (
	// ErrNoUser is returned when a user cannot be found.
	ErrNoUser = errors.New("user not found")
)

// dbUser represents a user account as stored in the database.
type dbUser struct {
	ID           uuid.UUID `db:"id"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	PasswordHash string    `db:"password_hash"`
	Onboarding   string    `db:"onboarding"`
	CreatedAt    time.Time `db:"created_at"`
}

// dbWebsite represents a website as stored in the database.
type dbWebsite struct {
	ID        uuid.UUID  `db:"id"`
	UserID    uuid.UUID  `db:"user_id"`
	URL       string     `db:"url"`
	Domain    string     `db:"domain"`
	Keywords  StringList `db:"keywords"`
	CreatedAt time.Time  `db:"created_at"`
}

// toDomainUser converts a dbUser to a domain.User.
func toDomainUser(dbUser *dbUser) *domain.User {
	return &domain.User{
		ID:           dbUser.ID,
		Email:        dbUser.Email,
		Name:         dbUser.Name,
		PasswordHash: dbUser.PasswordHash,
		Onboarding:   dbUser.Onboarding,
		CreatedAt:    dbUser.CreatedAt,
	}
}

// toDomainWebsite converts a dbWebsite to a domain.Website.
func toDomainWebsite(dbSite *dbWebsite) *domain.Website {
	return &domain.Website{
		ID:        dbSite.ID,
		UserID:    dbSite.UserID,
		URL:       dbSite.URL,
		Domain:    dbSite.Domain,
		Keywords:  []string(dbSite.Keywords),
		CreatedAt: dbSite.CreatedAt,
	}
}

// CreateUser persists a new user account.
func (repo *Repository) CreateUser(user *domain.User) error {
	query := `INSERT INTO users (id, email, name, password_hash, onboarding, created_at)
	          VALUES (?, ?, ?, ?, ?, ?)`

	_, err := repo.dbConn.Exec(query, user.ID, user.Email, user.Name, user.PasswordHash, user.Onboarding, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating user %s: %w", user.Email, err)
	}

	return nil
}

// GetUser retrieves a user by ID.
func (repo *Repository) GetUser(id uuid.UUID) (*domain.User, error) {
	var dbUser dbUser
	query := `SELECT * FROM users WHERE id = ?`

	err := repo.dbConn.Get(&dbUser, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoUser
		}
		return nil, fmt.Errorf("getting user %s: %w", id, err)
	}

	return toDomainUser(&dbUser), nil
}

// GetUserByEmail retrieves a user by their email address.
func (repo *Repository) GetUserByEmail(email string) (*domain.User, error) {
	var dbUser dbUser
	query := `SELECT * FROM users WHERE email = ?`

	err := repo.dbConn.Get(&dbUser, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoUser
		}
		return nil, fmt.Errorf("getting user by email %s: %w", email, err)
	}

	return toDomainUser(&dbUser), nil
}

// UpdateOnboarding updates the onboarding stage for a user.
func (repo *Repository) UpdateOnboarding(id uuid.UUID, stage string) error {
	query := `UPDATE users SET onboarding = ? WHERE id = ?`

	result, err := repo.dbConn.Exec(query, stage, id)
	if err != nil {
		return fmt.Errorf("updating onboarding for %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking onboarding rows affected for %s: %w", id, err)
	}

	if rowsAffected == 0 {
		return ErrNoUser
	}

	return nil
}

// CreateWebsite persists a new website for a user.
func (repo *Repository) CreateWebsite(site *domain.Website) error {
	query := `INSERT INTO website (id, user_id, url, domain, keywords, created_at)
	          VALUES (?, ?, ?, ?, ?, ?)`

	_, err := repo.dbConn.Exec(query, site.ID, site.UserID, site.URL, site.Domain, StringList(site.Keywords), site.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating website %s: %w", site.URL, err)
	}

	return nil
}

// GetWebsite retrieves a website by ID.
func (repo *Repository) GetWebsite(id uuid.UUID) (*domain.Website, error) {
	var dbSite dbWebsite
	query := `SELECT * FROM website WHERE id = ?`

	err := repo.dbConn.Get(&dbSite, query, id)
	if err != nil {
		return nil, fmt.Errorf("getting website %s: %w", id, err)
	}

	return toDomainWebsite(&dbSite), nil
}

// GetWebsitesForUser retrieves all websites registered by a user.
func (repo *Repository) GetWebsitesForUser(userID uuid.UUID) ([]*domain.Website, error) {
	var dbSites []*dbWebsite
	query := `SELECT * FROM website WHERE user_id = ? ORDER BY created_at ASC`

	err := repo.dbConn.Select(&dbSites, query, userID)
	if err != nil {
		return nil, fmt.Errorf("getting websites for user %s: %w", userID, err)
	}

	sites := make([]*domain.Website, len(dbSites))
	for i, dbSite := range dbSites {
		sites[i] = toDomainWebsite(dbSite)
	}

	return sites, nil
}
