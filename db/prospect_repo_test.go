package db

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/linkdripai/linkdrip/domain"
)

func TestInsertAndGetProspect(t *testing.T) {
	repo, teardown := setupTestDB(t)
	defer teardown()

	user := testUser(t, repo)
	site := testWebsite(t, repo, user.ID)
	inserted := testProspect(t, repo, site.ID, 70)

	got, err := repo.GetProspect(inserted.ID)
	if err != nil {
		t.Fatalf("getting prospect: %v", err)
	}

	if got.URL != inserted.URL {
		t.Errorf("url mismatch: wanted %s got %s", inserted.URL, got.URL)
	}
	if got.Status != domain.StatusNew {
		t.Errorf("status mismatch: wanted %s got %s", domain.StatusNew, got.Status)
	}
	if got.FitScore != 70 {
		t.Errorf("fit score mismatch: wanted 70 got %d", got.FitScore)
	}
	if got.Metadata["source"] != "sitemap" {
		t.Errorf("metadata mismatch: got %v", got.Metadata)
	}
	if got.UnlockedAt != nil {
		t.Errorf("expected nil unlock time, got %v", got.UnlockedAt)
	}
}

func TestGetProspectNotFound(t *testing.T) {
	repo, teardown := setupTestDB(t)
	defer teardown()

	id, _ := uuid.NewV7()
	_, err := repo.GetProspect(id)
	if !errors.Is(err, ErrNoProspect) {
		t.Fatalf("wanted ErrNoProspect, got %v", err)
	}
}

func TestListProspectsFilter(t *testing.T) {
	repo, teardown := setupTestDB(t)
	defer teardown()

	user := testUser(t, repo)
	site := testWebsite(t, repo, user.ID)

	low := testProspect(t, repo, site.ID, 20)
	high := testProspect(t, repo, site.ID, 90)

	if err := repo.UpdateProspectStatus(low.ID, domain.StatusDiscarded); err != nil {
		t.Fatalf("updating status: %v", err)
	}

	prospects, err := repo.ListProspects(site.ID, domain.ProspectFilter{Status: domain.StatusNew})
	if err != nil {
		t.Fatalf("listing prospects: %v", err)
	}

	if len(prospects) != 1 {
		t.Fatalf("wanted 1 prospect, got %d", len(prospects))
	}
	if prospects[0].ID != high.ID {
		t.Errorf("wanted prospect %s, got %s", high.ID, prospects[0].ID)
	}
}

func TestListProspectsOrdering(t *testing.T) {
	repo, teardown := setupTestDB(t)
	defer teardown()

	user := testUser(t, repo)
	site := testWebsite(t, repo, user.ID)

	testProspect(t, repo, site.ID, 10)
	testProspect(t, repo, site.ID, 80)
	testProspect(t, repo, site.ID, 50)

	prospects, err := repo.ListProspects(site.ID, domain.ProspectFilter{})
	if err != nil {
		t.Fatalf("listing prospects: %v", err)
	}

	if len(prospects) != 3 {
		t.Fatalf("wanted 3 prospects, got %d", len(prospects))
	}
	for i := 1; i < len(prospects); i++ {
		if prospects[i].FitScore > prospects[i-1].FitScore {
			t.Errorf("prospects not ordered by fit score: %d before %d", prospects[i-1].FitScore, prospects[i].FitScore)
		}
	}
}

func TestUnlockProspect(t *testing.T) {
	repo, teardown := setupTestDB(t)
	defer teardown()

	user := testUser(t, repo)
	site := testWebsite(t, repo, user.ID)
	p := testProspect(t, repo, site.ID, 60)

	unlockTime := time.Now().UTC().Truncate(time.Millisecond)
	if err := repo.UnlockProspect(p.ID, unlockTime); err != nil {
		t.Fatalf("unlocking prospect: %v", err)
	}

	got, err := repo.GetProspect(p.ID)
	if err != nil {
		t.Fatalf("getting prospect: %v", err)
	}

	if got.Status != domain.StatusUnlocked {
		t.Errorf("wanted status %s, got %s", domain.StatusUnlocked, got.Status)
	}
	if got.UnlockedAt == nil {
		t.Fatal("expected unlock time to be set")
	}
}

func TestUnlockProspectNotFound(t *testing.T) {
	repo, teardown := setupTestDB(t)
	defer teardown()

	id, _ := uuid.NewV7()
	err := repo.UnlockProspect(id, time.Now())
	if !errors.Is(err, ErrNoProspect) {
		t.Fatalf("wanted ErrNoProspect, got %v", err)
	}
}

func TestExistsProspectURL(t *testing.T) {
	repo, teardown := setupTestDB(t)
	defer teardown()

	user := testUser(t, repo)
	site := testWebsite(t, repo, user.ID)
	p := testProspect(t, repo, site.ID, 40)

	exists, err := repo.ExistsProspectURL(site.ID, p.URL)
	if err != nil {
		t.Fatalf("checking url: %v", err)
	}
	if !exists {
		t.Error("expected url to exist")
	}

	exists, err = repo.ExistsProspectURL(site.ID, "https://nope.example.com/")
	if err != nil {
		t.Fatalf("checking url: %v", err)
	}
	if exists {
		t.Error("expected url to not exist")
	}
}

func TestTopUnassigned(t *testing.T) {
	repo, teardown := setupTestDB(t)
	defer teardown()

	user := testUser(t, repo)
	site := testWebsite(t, repo, user.ID)

	testProspect(t, repo, site.ID, 30)
	best := testProspect(t, repo, site.ID, 95)
	dripped := testProspect(t, repo, site.ID, 99)
	if err := repo.UpdateProspectStatus(dripped.ID, domain.StatusDripped); err != nil {
		t.Fatalf("updating status: %v", err)
	}

	prospects, err := repo.TopUnassigned(site.ID, 1, true)
	if err != nil {
		t.Fatalf("getting unassigned: %v", err)
	}

	if len(prospects) != 1 {
		t.Fatalf("wanted 1 prospect, got %d", len(prospects))
	}
	if prospects[0].ID != best.ID {
		t.Errorf("wanted best new prospect %s, got %s", best.ID, prospects[0].ID)
	}
}

func TestTopUnassignedPremiumFilter(t *testing.T) {
	repo, teardown := setupTestDB(t)
	defer teardown()

	user := testUser(t, repo)
	site := testWebsite(t, repo, user.ID)

	// The best-scoring prospects are all premium; a plan without premium
	// access must still fill its feed from the ones below them.
	for _, score := range []int{98, 96, 94} {
		testPremiumProspect(t, repo, site.ID, score)
	}
	plainBest := testProspect(t, repo, site.ID, 60)
	plainNext := testProspect(t, repo, site.ID, 40)

	prospects, err := repo.TopUnassigned(site.ID, 2, false)
	if err != nil {
		t.Fatalf("getting unassigned: %v", err)
	}
	if len(prospects) != 2 {
		t.Fatalf("wanted 2 prospects, got %d", len(prospects))
	}
	if prospects[0].ID != plainBest.ID || prospects[1].ID != plainNext.ID {
		t.Errorf("wanted non-premium prospects %s, %s; got %s, %s",
			plainBest.ID, plainNext.ID, prospects[0].ID, prospects[1].ID)
	}

	prospects, err = repo.TopUnassigned(site.ID, 2, true)
	if err != nil {
		t.Fatalf("getting unassigned: %v", err)
	}
	if len(prospects) != 2 || !prospects[0].Premium || !prospects[1].Premium {
		t.Errorf("premium access should surface the premium prospects first, got %v", prospects)
	}
}

func TestAssignAndGetDrips(t *testing.T) {
	repo, teardown := setupTestDB(t)
	defer teardown()

	user := testUser(t, repo)
	site := testWebsite(t, repo, user.ID)
	p := testProspect(t, repo, site.ID, 50)

	day := "2026-08-30"
	if err := repo.AssignDrip(user.ID, p.ID, day); err != nil {
		t.Fatalf("assigning drip: %v", err)
	}

	// Re-assigning the same prospect on the same day must not duplicate.
	if err := repo.AssignDrip(user.ID, p.ID, day); err != nil {
		t.Fatalf("re-assigning drip: %v", err)
	}

	count, err := repo.CountDrips(user.ID, day)
	if err != nil {
		t.Fatalf("counting drips: %v", err)
	}
	if count != 1 {
		t.Errorf("wanted 1 drip, got %d", count)
	}

	drips, err := repo.GetDrips(user.ID, day)
	if err != nil {
		t.Fatalf("getting drips: %v", err)
	}
	if len(drips) != 1 || drips[0].ID != p.ID {
		t.Errorf("wanted prospect %s in drips, got %v", p.ID, drips)
	}

	count, err = repo.CountDrips(user.ID, "2026-08-31")
	if err != nil {
		t.Fatalf("counting drips: %v", err)
	}
	if count != 0 {
		t.Errorf("wanted 0 drips on another day, got %d", count)
	}
}

func TestUpdateProspectMetrics(t *testing.T) {
	repo, teardown := setupTestDB(t)
	defer teardown()

	user := testUser(t, repo)
	site := testWebsite(t, repo, user.ID)
	first := testProspect(t, repo, site.ID, 50)
	second := testProspect(t, repo, site.ID, 60)
	other := testPremiumProspect(t, repo, site.ID, 70)

	m := &domain.DomainMetrics{Domain: first.Domain, DomainAuthority: 77, SpamScore: 9}
	if err := repo.UpdateProspectMetrics(first.Domain, m); err != nil {
		t.Fatalf("updating prospect metrics: %v", err)
	}

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		got, err := repo.GetProspect(id)
		if err != nil {
			t.Fatalf("getting prospect: %v", err)
		}
		if got.DomainAuthority != 77 || got.SpamScore != 9 {
			t.Errorf("metrics not applied to %s: DA %d spam %d", id, got.DomainAuthority, got.SpamScore)
		}
	}

	// Prospects on other domains keep their numbers.
	got, err := repo.GetProspect(other.ID)
	if err != nil {
		t.Fatalf("getting prospect: %v", err)
	}
	if got.DomainAuthority != other.DomainAuthority {
		t.Errorf("unrelated prospect changed: DA %d", got.DomainAuthority)
	}
}
