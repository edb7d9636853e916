package db

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestCampaignLifecycle(t *testing.T) {
	repo, teardown := setupTestDB(t)
	defer teardown()

	user := testUser(t, repo)

	id, err := repo.CreateCampaign(user.ID, "SaaS blogs", "Guest post targets in the SaaS space")
	if err != nil {
		t.Fatalf("creating campaign: %v", err)
	}

	campaigns, err := repo.GetCampaigns(user.ID)
	if err != nil {
		t.Fatalf("getting campaigns: %v", err)
	}
	if len(campaigns) != 1 || campaigns[0].Name != "SaaS blogs" {
		t.Fatalf("unexpected campaigns: %v", campaigns)
	}

	if err := repo.UpdateCampaign(id, "SaaS blogs (EU)", "Updated"); err != nil {
		t.Fatalf("updating campaign: %v", err)
	}

	campaigns, err = repo.GetCampaigns(user.ID)
	if err != nil {
		t.Fatalf("getting campaigns: %v", err)
	}
	if campaigns[0].Name != "SaaS blogs (EU)" {
		t.Errorf("wanted updated name, got %s", campaigns[0].Name)
	}

	if err := repo.DeleteCampaign(id); err != nil {
		t.Fatalf("deleting campaign: %v", err)
	}
	if err := repo.DeleteCampaign(id); !errors.Is(err, ErrNoCampaign) {
		t.Fatalf("wanted ErrNoCampaign, got %v", err)
	}
}

func TestLinkProspectToCampaign(t *testing.T) {
	repo, teardown := setupTestDB(t)
	defer teardown()

	user := testUser(t, repo)
	site := testWebsite(t, repo, user.ID)
	p := testProspect(t, repo, site.ID, 65)

	campaignID, err := repo.CreateCampaign(user.ID, "Resource pages", "")
	if err != nil {
		t.Fatalf("creating campaign: %v", err)
	}

	if err := repo.LinkProspectToCampaign(p.ID, campaignID); err != nil {
		t.Fatalf("linking prospect: %v", err)
	}
	// Linking twice is a no-op.
	if err := repo.LinkProspectToCampaign(p.ID, campaignID); err != nil {
		t.Fatalf("re-linking prospect: %v", err)
	}

	prospects, err := repo.GetCampaignProspects(campaignID)
	if err != nil {
		t.Fatalf("getting campaign prospects: %v", err)
	}
	if len(prospects) != 1 || prospects[0].ID != p.ID {
		t.Errorf("wanted prospect %s, got %v", p.ID, prospects)
	}
}

func TestLinkProspectMissingCampaign(t *testing.T) {
	repo, teardown := setupTestDB(t)
	defer teardown()

	user := testUser(t, repo)
	site := testWebsite(t, repo, user.ID)
	p := testProspect(t, repo, site.ID, 65)

	missing, _ := uuid.NewV7()
	if err := repo.LinkProspectToCampaign(p.ID, missing); err == nil {
		t.Fatal("expected foreign key violation for missing campaign")
	}
}
