package domain

import (
	"time"

	"github.com/google/uuid"
)

// Prospect status values. A prospect moves forward through these as the
// user works it; Discarded is terminal.
const (
	StatusNew       = "new"       // Discovered, not yet shown to the user.
	StatusDripped   = "dripped"   // Assigned to a user's daily drip feed.
	StatusUnlocked  = "unlocked"  // Contact details revealed (splash spent if premium).
	StatusContacted = "contacted" // An outreach email has been sent.
	StatusReplied   = "replied"   // The prospect answered.
	StatusWon       = "won"       // Backlink secured.
	StatusDiscarded = "discarded" // Rejected by the user or a scoring script.
)

// Prospect kinds describe where the link opportunity lives.
const (
	KindGuestPost    = "guest_post"
	KindResourcePage = "resource_page"
	KindDirectory    = "directory"
	KindBlog         = "blog"
)

// ProspectRepository defines the interface for managing link-building prospects.
type ProspectRepository interface {
	// InsertProspect persists a newly discovered prospect.
	InsertProspect(p *Prospect) error

	// GetProspect retrieves a prospect by ID, including its page snapshot.
	GetProspect(id uuid.UUID) (*Prospect, error)

	// ListProspects retrieves prospect summaries for a website matching the
	// filter, ordered by fit score descending.
	ListProspects(websiteID uuid.UUID, filter ProspectFilter) ([]*Prospect, error)

	// UpdateProspectStatus transitions a prospect to the given status.
	// It returns an error if the prospect does not exist.
	UpdateProspectStatus(id uuid.UUID, status string) error

	// UnlockProspect marks a prospect unlocked and records the unlock time.
	UnlockProspect(id uuid.UUID, at time.Time) error

	// TopUnassigned retrieves up to limit prospects for a website that are
	// still in the "new" status, best fit score first. Used by drip
	// allocation; includePremium false excludes premium prospects.
	TopUnassigned(websiteID uuid.UUID, limit int, includePremium bool) ([]*Prospect, error)

	// ExistsProspectURL reports whether a prospect with the given URL is
	// already recorded for the website. Discovery uses it to avoid duplicates.
	ExistsProspectURL(websiteID uuid.UUID, url string) (bool, error)

	// UpdateProspectMetrics refreshes the authority columns of every
	// prospect on a domain from a metrics row.
	UpdateProspectMetrics(domain string, m *DomainMetrics) error
}

// DripRepository defines the interface for the daily drip feed: the set of
// prospects handed to a user on a given day.
type DripRepository interface {
	// AssignDrip records that a prospect was dripped to a user on a day.
	// Day is in "2006-01-02" form.
	AssignDrip(userID, prospectID uuid.UUID, day string) error

	// GetDrips retrieves the prospects dripped to a user on a day.
	GetDrips(userID uuid.UUID, day string) ([]*Prospect, error)

	// CountDrips returns the number of prospects dripped to a user on a day.
	CountDrips(userID uuid.UUID, day string) (int, error)
}

// ProspectFilter narrows ListProspects results. Zero values mean "any".
type ProspectFilter struct {
	Status       string // Match a single status.
	Kind         string // Match a single kind.
	MinAuthority int    // Minimum domain authority.
	MaxSpam      int    // Maximum spam score; 0 disables the cap.
	Premium      *bool  // Filter on the premium flag when set.
	Limit        int    // Maximum rows; 0 means the repository default.
}

// Prospect represents a single backlink opportunity discovered for a website.
type Prospect struct {
	ID              uuid.UUID      // Unique identifier for the prospect.
	WebsiteID       uuid.UUID      // Website the prospect was discovered for.
	URL             string         // Page where the opportunity lives.
	Domain          string         // Registrable domain of the prospect page.
	Kind            string         // Opportunity kind (guest_post, resource_page, ...).
	Title           string         // Page title captured at discovery time.
	ContactEmail    string         // Best contact email found on the page, if any.
	DomainAuthority int            // Moz domain authority (0-100).
	SpamScore       int            // Moz spam score (0-100).
	FitScore        int            // LinkDrip fit score (0-100) from the scoring pipeline.
	Premium         bool           // Premium prospects cost a splash credit to unlock.
	Status          string         // Lifecycle status, see Status* constants.
	Snapshot        []byte         // Prettified page snapshot for the dashboard preview.
	Metadata        map[string]any // Additional signals recorded by scorers and scripts.
	DiscoveredAt    time.Time      // Timestamp when the prospect was discovered.
	UnlockedAt      *time.Time     // Timestamp when contact details were revealed.
}
