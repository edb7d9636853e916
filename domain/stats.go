package domain

import "github.com/google/uuid"

// StatsRepository defines the interface for retrieving dashboard counters.
type StatsRepository interface {
	// CountProspects returns the total number of prospects discovered for a website.
	CountProspects(websiteID uuid.UUID) (int, error)
	// CountUnlocked returns the number of prospects a user has unlocked or progressed past.
	CountUnlocked(websiteID uuid.UUID) (int, error)
	// CountEmails returns the total number of outreach emails created by a user.
	CountEmails(userID uuid.UUID) (int, error)
	// CountCampaigns returns the total number of campaigns created by a user.
	CountCampaigns(userID uuid.UUID) (int, error)
}
