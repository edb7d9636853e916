package db

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/linkdripai/linkdrip/domain"
)

var _ domain.StatsRepository = (*Repository)(nil)

// CountProspects returns the total number of prospects discovered for a website.
func (repo *Repository) CountProspects(websiteID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM prospect WHERE website_id = ?`

	err := repo.dbConn.Get(&count, query, websiteID)
	if err != nil {
		return 0, fmt.Errorf("getting prospect count: %w", err)
	}

	return count, nil
}

// CountUnlocked returns the number of prospects a user has unlocked or
// progressed past unlocking.
func (repo *Repository) CountUnlocked(websiteID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM prospect WHERE website_id = ? AND unlocked_at IS NOT NULL`

	err := repo.dbConn.Get(&count, query, websiteID)
	if err != nil {
		return 0, fmt.Errorf("getting unlocked count: %w", err)
	}

	return count, nil
}

// CountEmails returns the total number of outreach emails created by a user.
func (repo *Repository) CountEmails(userID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM outreach WHERE user_id = ?`

	err := repo.dbConn.Get(&count, query, userID)
	if err != nil {
		return 0, fmt.Errorf("getting email count: %w", err)
	}

	return count, nil
}

// CountCampaigns returns the total number of campaigns created by a user.
func (repo *Repository) CountCampaigns(userID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM campaign WHERE user_id = ?`

	err := repo.dbConn.Get(&count, query, userID)
	if err != nil {
		return 0, fmt.Errorf("getting campaign count: %w", err)
	}

	return count, nil
}
