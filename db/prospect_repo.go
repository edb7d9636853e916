package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/linkdripai/linkdrip/domain"
)

var _ domain.ProspectRepository = (*Repository)(nil)
var _ domain.DripRepository = (*Repository)(nil)

var (
	// ErrNoProspect is returned when a prospect cannot be found.
	ErrNoProspect = errors.New("prospect not found")
)

// dbProspect represents a prospect as stored in the database. It uses
// sql.Null* types for fields that might be absent (e.g. the unlock time
// before a prospect has been unlocked).
type dbProspect struct {
	ID              uuid.UUID    `db:"id"`
	WebsiteID       uuid.UUID    `db:"website_id"`
	URL             string       `db:"url"`
	Domain          string       `db:"domain"`
	Kind            string       `db:"kind"`
	Title           string       `db:"title"`
	ContactEmail    string       `db:"contact_email"`
	DomainAuthority int          `db:"domain_authority"`
	SpamScore       int          `db:"spam_score"`
	FitScore        int          `db:"fit_score"`
	Premium         bool         `db:"premium"`
	Status          string       `db:"status"`
	Snapshot        []byte       `db:"snapshot"`
	Metadata        Metadata     `db:"metadata"`
	DiscoveredAt    time.Time    `db:"discovered_at"`
	UnlockedAt      sql.NullTime `db:"unlocked_at"`
}

// toDomainProspect converts a dbProspect to a domain.Prospect.
func toDomainProspect(dbPros *dbProspect) *domain.Prospect {
	p := &domain.Prospect{
		ID:              dbPros.ID,
		WebsiteID:       dbPros.WebsiteID,
		URL:             dbPros.URL,
		Domain:          dbPros.Domain,
		Kind:            dbPros.Kind,
		Title:           dbPros.Title,
		ContactEmail:    dbPros.ContactEmail,
		DomainAuthority: dbPros.DomainAuthority,
		SpamScore:       dbPros.SpamScore,
		FitScore:        dbPros.FitScore,
		Premium:         dbPros.Premium,
		Status:          dbPros.Status,
		Snapshot:        dbPros.Snapshot,
		Metadata:        map[string]any(dbPros.Metadata),
		DiscoveredAt:    dbPros.DiscoveredAt,
	}

	if dbPros.UnlockedAt.Valid {
		t := dbPros.UnlockedAt.Time
		p.UnlockedAt = &t
	}

	return p
}

// fromDomainProspect converts a domain.Prospect into a dbProspect for insertion.
func fromDomainProspect(p *domain.Prospect) *dbProspect {
	dbPros := &dbProspect{
		ID:              p.ID,
		WebsiteID:       p.WebsiteID,
		URL:             p.URL,
		Domain:          p.Domain,
		Kind:            p.Kind,
		Title:           p.Title,
		ContactEmail:    p.ContactEmail,
		DomainAuthority: p.DomainAuthority,
		SpamScore:       p.SpamScore,
		FitScore:        p.FitScore,
		Premium:         p.Premium,
		Status:          p.Status,
		Snapshot:        p.Snapshot,
		Metadata:        Metadata(p.Metadata),
		DiscoveredAt:    p.DiscoveredAt,
	}

	if p.UnlockedAt != nil {
		dbPros.UnlockedAt = sql.NullTime{Time: *p.UnlockedAt, Valid: true}
	}

	return dbPros
}

// InsertProspect persists a newly discovered prospect.
func (repo *Repository) InsertProspect(p *domain.Prospect) error {
	query := `INSERT INTO prospect (id, website_id, url, domain, kind, title, contact_email,
	              domain_authority, spam_score, fit_score, premium, status, snapshot, metadata,
	              discovered_at, unlocked_at)
	          VALUES (:id, :website_id, :url, :domain, :kind, :title, :contact_email,
	              :domain_authority, :spam_score, :fit_score, :premium, :status, :snapshot, :metadata,
	              :discovered_at, :unlocked_at)`

	_, err := repo.dbConn.NamedExec(query, fromDomainProspect(p))
	if err != nil {
		return fmt.Errorf("inserting prospect %s: %w", p.URL, err)
	}

	return nil
}

// GetProspect retrieves a prospect by ID, including its page snapshot.
func (repo *Repository) GetProspect(id uuid.UUID) (*domain.Prospect, error) {
	var dbPros dbProspect
	query := `SELECT * FROM prospect WHERE id = ?`

	err := repo.dbConn.Get(&dbPros, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoProspect
		}
		return nil, fmt.Errorf("getting prospect %s: %w", id, err)
	}

	return toDomainProspect(&dbPros), nil
}

// ListProspects retrieves prospects for a website matching the filter,
// best fit score first.
func (repo *Repository) ListProspects(websiteID uuid.UUID, filter domain.ProspectFilter) ([]*domain.Prospect, error) {
	conditions := []string{"website_id = ?"}
	args := []any{websiteID}

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.MinAuthority > 0 {
		conditions = append(conditions, "domain_authority >= ?")
		args = append(args, filter.MinAuthority)
	}
	if filter.MaxSpam > 0 {
		conditions = append(conditions, "spam_score <= ?")
		args = append(args, filter.MaxSpam)
	}
	if filter.Premium != nil {
		conditions = append(conditions, "premium = ?")
		args = append(args, *filter.Premium)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT * FROM prospect WHERE %s ORDER BY fit_score DESC, discovered_at DESC LIMIT ?`,
		strings.Join(conditions, " AND "))

	var dbProspects []*dbProspect
	err := repo.dbConn.Select(&dbProspects, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing prospects for website %s: %w", websiteID, err)
	}

	prospects := make([]*domain.Prospect, len(dbProspects))
	for i, dbPros := range dbProspects {
		prospects[i] = toDomainProspect(dbPros)
	}

	return prospects, nil
}

// UpdateProspectStatus transitions a prospect to the given status.
func (repo *Repository) UpdateProspectStatus(id uuid.UUID, status string) error {
	query := `UPDATE prospect SET status = ? WHERE id = ?`

	result, err := repo.dbConn.Exec(query, status, id)
	if err != nil {
		return fmt.Errorf("updating status for prospect %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking status rows affected for %s: %w", id, err)
	}

	if rowsAffected == 0 {
		return ErrNoProspect
	}

	return nil
}

// UnlockProspect marks a prospect unlocked and records the unlock time.
func (repo *Repository) UnlockProspect(id uuid.UUID, at time.Time) error {
	query := `UPDATE prospect SET status = ?, unlocked_at = ? WHERE id = ?`

	result, err := repo.dbConn.Exec(query, domain.StatusUnlocked, at, id)
	if err != nil {
		return fmt.Errorf("unlocking prospect %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking unlock rows affected for %s: %w", id, err)
	}

	if rowsAffected == 0 {
		return ErrNoProspect
	}

	return nil
}

// TopUnassigned retrieves up to limit prospects still in the "new" status,
// best fit score first. With includePremium false, premium prospects are
// filtered in the query so plans without premium access still fill their
// quota from the rest of the pool.
func (repo *Repository) TopUnassigned(websiteID uuid.UUID, limit int, includePremium bool) ([]*domain.Prospect, error) {
	var dbProspects []*dbProspect
	query := `SELECT * FROM prospect WHERE website_id = ? AND status = ? AND (? OR premium = 0)
	          ORDER BY fit_score DESC, discovered_at ASC LIMIT ?`

	err := repo.dbConn.Select(&dbProspects, query, websiteID, domain.StatusNew, includePremium, limit)
	if err != nil {
		return nil, fmt.Errorf("getting unassigned prospects for website %s: %w", websiteID, err)
	}

	prospects := make([]*domain.Prospect, len(dbProspects))
	for i, dbPros := range dbProspects {
		prospects[i] = toDomainProspect(dbPros)
	}

	return prospects, nil
}

// ExistsProspectURL reports whether a prospect with the given URL is already
// recorded for the website.
func (repo *Repository) ExistsProspectURL(websiteID uuid.UUID, url string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM prospect WHERE website_id = ? AND url = ?`

	err := repo.dbConn.Get(&count, query, websiteID, url)
	if err != nil {
		return false, fmt.Errorf("checking prospect url %s: %w", url, err)
	}

	return count > 0, nil
}

// UpdateProspectMetrics refreshes the authority columns of every prospect on
// a domain from a metrics row. A domain with no prospects is a no-op.
func (repo *Repository) UpdateProspectMetrics(domainName string, m *domain.DomainMetrics) error {
	query := `UPDATE prospect SET domain_authority = ?, spam_score = ? WHERE domain = ?`

	_, err := repo.dbConn.Exec(query, m.DomainAuthority, m.SpamScore, domainName)
	if err != nil {
		return fmt.Errorf("updating metrics for domain %s: %w", domainName, err)
	}

	return nil
}

// AssignDrip records that a prospect was dripped to a user on a day.
// Re-assigning the same prospect on the same day is a no-op.
func (repo *Repository) AssignDrip(userID, prospectID uuid.UUID, day string) error {
	query := `INSERT INTO drip (user_id, prospect_id, day)
	          VALUES (?, ?, ?)
	          ON CONFLICT(user_id, prospect_id, day) DO NOTHING`

	_, err := repo.dbConn.Exec(query, userID, prospectID, day)
	if err != nil {
		return fmt.Errorf("assigning drip for user %s: %w", userID, err)
	}

	return nil
}

// GetDrips retrieves the prospects dripped to a user on a day.
func (repo *Repository) GetDrips(userID uuid.UUID, day string) ([]*domain.Prospect, error) {
	var dbProspects []*dbProspect
	query := `SELECT p.* FROM prospect p
	          JOIN drip d ON d.prospect_id = p.id
	          WHERE d.user_id = ? AND d.day = ?
	          ORDER BY p.fit_score DESC`

	err := repo.dbConn.Select(&dbProspects, query, userID, day)
	if err != nil {
		return nil, fmt.Errorf("getting drips for user %s on %s: %w", userID, day, err)
	}

	prospects := make([]*domain.Prospect, len(dbProspects))
	for i, dbPros := range dbProspects {
		prospects[i] = toDomainProspect(dbPros)
	}

	return prospects, nil
}

// CountDrips returns the number of prospects dripped to a user on a day.
func (repo *Repository) CountDrips(userID uuid.UUID, day string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM drip WHERE user_id = ? AND day = ?`

	err := repo.dbConn.Get(&count, query, userID, day)
	if err != nil {
		return 0, fmt.Errorf("counting drips for user %s on %s: %w", userID, day, err)
	}

	return count, nil
}
