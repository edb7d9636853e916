package db

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/linkdripai/linkdrip/domain"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tempFile, err := os.CreateTemp(t.TempDir(), "test_*.db")
	if err != nil {
		t.Fatalf("os.CreateTemp() failed: %v", err)
	}
	tempFile.Close()

	dbConn, err := New(tempFile.Name())
	if err != nil {
		t.Fatalf("db.New() failed: %v", err)
	}

	repo := NewRepo(dbConn)

	teardown := func() {
		repo.Close()
		os.Remove(tempFile.Name())
	}

	return repo, teardown
}

func testUser(t *testing.T, repo *Repository) *domain.User {
	t.Helper()
	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("creating uuid: %v", err)
	}

	user := &domain.User{
		ID:           id,
		Email:        id.String() + "@linkdrip.test",
		Name:         "Test User",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		Onboarding:   "website",
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}

	if err := repo.CreateUser(user); err != nil {
		t.Fatalf("creating user: %v", err)
	}
	return user
}

func testWebsite(t *testing.T, repo *Repository, userID uuid.UUID) *domain.Website {
	t.Helper()
	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("creating uuid: %v", err)
	}

	site := &domain.Website{
		ID:        id,
		UserID:    userID,
		URL:       "https://example.com",
		Domain:    "example.com",
		Keywords:  []string{"golang", "backlinks"},
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	if err := repo.CreateWebsite(site); err != nil {
		t.Fatalf("creating website: %v", err)
	}
	return site
}

func testProspect(t *testing.T, repo *Repository, websiteID uuid.UUID, fitScore int) *domain.Prospect {
	t.Helper()
	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("creating uuid: %v", err)
	}

	p := &domain.Prospect{
		ID:              id,
		WebsiteID:       websiteID,
		URL:             "https://blog.example.org/" + id.String(),
		Domain:          "blog.example.org",
		Kind:            domain.KindBlog,
		Title:           "Write for us",
		ContactEmail:    "editor@blog.example.org",
		DomainAuthority: 42,
		SpamScore:       3,
		FitScore:        fitScore,
		Status:          domain.StatusNew,
		Metadata:        map[string]any{"source": "sitemap"},
		DiscoveredAt:    time.Now().UTC().Truncate(time.Millisecond),
	}

	if err := repo.InsertProspect(p); err != nil {
		t.Fatalf("inserting prospect: %v", err)
	}
	return p
}

func testPremiumProspect(t *testing.T, repo *Repository, websiteID uuid.UUID, fitScore int) *domain.Prospect {
	t.Helper()
	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("creating uuid: %v", err)
	}

	p := &domain.Prospect{
		ID:              id,
		WebsiteID:       websiteID,
		URL:             "https://authority.example.net/" + id.String(),
		Domain:          "authority.example.net",
		Kind:            domain.KindBlog,
		Title:           "Guest posts welcome",
		ContactEmail:    "editor@authority.example.net",
		DomainAuthority: 72,
		SpamScore:       1,
		FitScore:        fitScore,
		Status:          domain.StatusNew,
		Premium:         true,
		Metadata:        map[string]any{"source": "sitemap"},
		DiscoveredAt:    time.Now().UTC().Truncate(time.Millisecond),
	}

	if err := repo.InsertProspect(p); err != nil {
		t.Fatalf("inserting prospect: %v", err)
	}
	return p
}
