package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/linkdripai/linkdrip/domain"
)

var _ domain.MetricsRepository = (*Repository)(nil)

var (
	// ErrNoMetricsForDomain is returned when a domain has never been fetched.
	ErrNoMetricsForDomain = errors.New("domain has no cached metrics")
)

// dbDomainMetrics represents a Moz metrics row as stored in the database.
type dbDomainMetrics struct {
	Domain             string    `db:"domain"`
	DomainAuthority    int       `db:"domain_authority"`
	PageAuthority      int       `db:"page_authority"`
	SpamScore          int       `db:"spam_score"`
	RootDomainsLinking int       `db:"root_domains_linking"`
	FetchedAt          time.Time `db:"fetched_at"`
}

// toDomainMetrics converts a dbDomainMetrics to a domain.DomainMetrics.
func toDomainMetrics(dbMetrics *dbDomainMetrics) *domain.DomainMetrics {
	return &domain.DomainMetrics{
		Domain:             dbMetrics.Domain,
		DomainAuthority:    dbMetrics.DomainAuthority,
		PageAuthority:      dbMetrics.PageAuthority,
		SpamScore:          dbMetrics.SpamScore,
		RootDomainsLinking: dbMetrics.RootDomainsLinking,
		FetchedAt:          dbMetrics.FetchedAt,
	}
}

// UpsertMetrics creates or refreshes the metrics row for a domain.
func (repo *Repository) UpsertMetrics(m *domain.DomainMetrics) error {
	query := `INSERT INTO domain_metrics (domain, domain_authority, page_authority, spam_score, root_domains_linking, fetched_at)
	          VALUES (?, ?, ?, ?, ?, ?)
	          ON CONFLICT(domain) DO UPDATE SET
	              domain_authority=excluded.domain_authority,
	              page_authority=excluded.page_authority,
	              spam_score=excluded.spam_score,
	              root_domains_linking=excluded.root_domains_linking,
	              fetched_at=excluded.fetched_at`

	_, err := repo.dbConn.Exec(query, m.Domain, m.DomainAuthority, m.PageAuthority, m.SpamScore, m.RootDomainsLinking, m.FetchedAt)
	if err != nil {
		return fmt.Errorf("upserting metrics for %s: %w", m.Domain, err)
	}

	return nil
}

// GetMetrics retrieves the cached metrics for a domain.
func (repo *Repository) GetMetrics(host string) (*domain.DomainMetrics, error) {
	var dbMetrics dbDomainMetrics
	query := `SELECT * FROM domain_metrics WHERE domain = ?`

	err := repo.dbConn.Get(&dbMetrics, query, host)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoMetricsForDomain
		}
		return nil, fmt.Errorf("getting metrics for %s: %w", host, err)
	}

	return toDomainMetrics(&dbMetrics), nil
}

// StaleDomains returns up to limit domains whose metrics were fetched before
// the cutoff, oldest first.
func (repo *Repository) StaleDomains(cutoff time.Time, limit int) ([]string, error) {
	var domains []string
	query := `SELECT domain FROM domain_metrics WHERE fetched_at < ? ORDER BY fetched_at ASC LIMIT ?`

	err := repo.dbConn.Select(&domains, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("getting stale domains: %w", err)
	}

	return domains, nil
}
