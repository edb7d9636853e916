package db

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/linkdripai/linkdrip/domain"
)

var _ domain.CampaignRepository = (*Repository)(nil)

var (
	// ErrNoCampaign is returned when a campaign cannot be found.
	ErrNoCampaign = errors.New("campaign not found")
)

// dbCampaign represents a campaign as stored in the database.
type dbCampaign struct {
	ID          uuid.UUID `db:"id"`
	UserID      uuid.UUID `db:"user_id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
}

// toDomainCampaign converts a dbCampaign to a domain.Campaign.
func toDomainCampaign(dbCamp *dbCampaign) *domain.Campaign {
	return &domain.Campaign{
		ID:          dbCamp.ID,
		UserID:      dbCamp.UserID,
		Name:        dbCamp.Name,
		Description: dbCamp.Description,
	}
}

// GetCampaigns retrieves all campaigns belonging to a user.
func (repo *Repository) GetCampaigns(userID uuid.UUID) ([]*domain.Campaign, error) {
	var dbCampaigns []*dbCampaign
	query := `SELECT * FROM campaign WHERE user_id = ?`

	err := repo.dbConn.Select(&dbCampaigns, query, userID)
	if err != nil {
		return nil, fmt.Errorf("retrieving campaigns for user %s: %w", userID, err)
	}

	campaigns := make([]*domain.Campaign, len(dbCampaigns))
	for i, dbCamp := range dbCampaigns {
		campaigns[i] = toDomainCampaign(dbCamp)
	}

	return campaigns, nil
}

// CreateCampaign creates a new campaign with the given name and description.
func (repo *Repository) CreateCampaign(userID uuid.UUID, name string, description string) (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("generating campaign id: %w", err)
	}

	query := `INSERT INTO campaign (id, user_id, name, description) VALUES (?, ?, ?, ?)`

	_, err = repo.dbConn.Exec(query, id, userID, name, description)
	if err != nil {
		return uuid.Nil, fmt.Errorf("creating campaign %s: %w", name, err)
	}

	return id, nil
}

// UpdateCampaign updates the name and description of an existing campaign.
func (repo *Repository) UpdateCampaign(campaignID uuid.UUID, name, description string) error {
	query := `UPDATE campaign SET name = ?, description = ? WHERE id = ?`

	result, err := repo.dbConn.Exec(query, name, description, campaignID)
	if err != nil {
		return fmt.Errorf("updating campaign %s: %w", campaignID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update rows affected for %s: %w", campaignID, err)
	}

	if rowsAffected == 0 {
		return ErrNoCampaign
	}

	return nil
}

// DeleteCampaign removes a campaign identified by its UUID.
func (repo *Repository) DeleteCampaign(campaignID uuid.UUID) error {
	query := `DELETE FROM campaign WHERE id = ?`

	result, err := repo.dbConn.Exec(query, campaignID)
	if err != nil {
		return fmt.Errorf("deleting campaign %s: %w", campaignID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking deletion rows affected for %s: %w", campaignID, err)
	}

	if rowsAffected == 0 {
		return ErrNoCampaign
	}

	return nil
}

// GetCampaignProspects retrieves all prospects linked to a campaign.
func (repo *Repository) GetCampaignProspects(campaignID uuid.UUID) ([]*domain.Prospect, error) {
	var dbProspects []*dbProspect
	query := `SELECT p.* FROM prospect p
	          JOIN campaign_prospect cp ON cp.prospect_id = p.id
	          WHERE cp.campaign_id = ?
	          ORDER BY p.fit_score DESC`

	err := repo.dbConn.Select(&dbProspects, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("retrieving prospects for campaign %s: %w", campaignID, err)
	}

	prospects := make([]*domain.Prospect, len(dbProspects))
	for i, dbPros := range dbProspects {
		prospects[i] = toDomainProspect(dbPros)
	}

	return prospects, nil
}

// LinkProspectToCampaign associates a prospect with a campaign.
func (repo *Repository) LinkProspectToCampaign(prospectID uuid.UUID, campaignID uuid.UUID) error {
	query := `INSERT INTO campaign_prospect (campaign_id, prospect_id)
	          VALUES (?, ?)
	          ON CONFLICT(campaign_id, prospect_id) DO NOTHING`

	_, err := repo.dbConn.Exec(query, campaignID, prospectID)
	if err != nil {
		return fmt.Errorf("linking prospect %s to campaign %s: %w", prospectID, campaignID, err)
	}

	return nil
}
