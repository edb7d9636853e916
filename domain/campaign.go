package domain

import "github.com/google/uuid"

// CampaignRepository defines the interface for managing Campaigns, which are
// collections of prospects a user works as a unit. It provides methods for
// creating, retrieving, updating, and deleting campaigns, as well as managing
// the prospects associated with them.
type CampaignRepository interface {
	// GetCampaigns retrieves all campaigns belonging to a user.
	GetCampaigns(userID uuid.UUID) ([]*Campaign, error)

	// CreateCampaign creates a new campaign with the given name and description.
	// It returns the UUID of the newly created campaign.
	CreateCampaign(userID uuid.UUID, name string, description string) (uuid.UUID, error)

	// UpdateCampaign updates the name and description of an existing campaign.
	// It returns an error if the campaign does not exist.
	UpdateCampaign(campaignID uuid.UUID, name, description string) error

	// DeleteCampaign removes a campaign identified by its UUID.
	// It returns an error if the campaign does not exist.
	DeleteCampaign(campaignID uuid.UUID) error

	// GetCampaignProspects retrieves all prospects linked to a campaign.
	// If the campaign has no prospects, it returns an empty slice.
	GetCampaignProspects(campaignID uuid.UUID) ([]*Prospect, error)

	// LinkProspectToCampaign associates a prospect with a campaign.
	// It returns an error if either side does not exist.
	LinkProspectToCampaign(prospectID uuid.UUID, campaignID uuid.UUID) error
}

// Campaign represents a named collection of prospects, allowing users to group
// and organize their outreach work.
type Campaign struct {
	ID          uuid.UUID // Unique identifier for the campaign.
	UserID      uuid.UUID // Owning user.
	Name        string    // The name of the campaign.
	Description string    // A brief description of the campaign's purpose.
}
