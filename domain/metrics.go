package domain

import "time"

// MetricsRepository defines the interface for the durable Moz metrics cache.
// Rows are keyed by registrable domain; FetchedAt drives re-fetch decisions.
type MetricsRepository interface {
	// UpsertMetrics creates or refreshes the metrics row for a domain.
	UpsertMetrics(m *DomainMetrics) error

	// GetMetrics retrieves the cached metrics for a domain.
	// It returns an error if the domain has never been fetched.
	GetMetrics(domain string) (*DomainMetrics, error)

	// StaleDomains returns up to limit domains whose metrics were fetched
	// before the cutoff, oldest first. Used by the background refresher.
	StaleDomains(cutoff time.Time, limit int) ([]string, error)
}

// DomainMetrics holds the Moz link metrics for a single domain.
type DomainMetrics struct {
	Domain             string    // Registrable domain the metrics describe.
	DomainAuthority    int       // Moz domain authority (0-100).
	PageAuthority      int       // Moz page authority of the root page (0-100).
	SpamScore          int       // Moz spam score (0-100).
	RootDomainsLinking int       // Count of distinct root domains linking in.
	FetchedAt          time.Time // When the metrics were fetched from Moz.
}
