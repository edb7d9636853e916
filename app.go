package linkdrip

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/linkdripai/linkdrip/domain"
	"github.com/linkdripai/linkdrip/lemonsqueezy"
)

// maxDiscoveryPages caps how many candidate pages one discovery run crawls.
const maxDiscoveryPages = 25

// ErrNotConfigured is returned when an operation needs a collaborator that
// was never wired in through an option.
var ErrNotConfigured = errors.New("app is missing a required collaborator")

// DayFormat is how drip days are keyed.
const DayFormat = "2006-01-02"

// Today returns the current drip day in UTC.
func Today() string {
	return time.Now().UTC().Format(DayFormat)
}

// Discover crawls seed URLs for a website, expanding sitemap seeds, and
// persists every candidate that survives scope filtering and scoring.
// It returns the number of prospects accepted.
func (app *App) Discover(ctx context.Context, websiteID uuid.UUID, seeds []string) (int, error) {
	if app.Crawler == nil {
		return 0, fmt.Errorf("discovering prospects : %w", ErrNotConfigured)
	}

	site, err := app.Repo.GetWebsite(websiteID)
	if err != nil {
		return 0, fmt.Errorf("getting website %s : %w", websiteID, err)
	}

	candidates := app.expandSeeds(ctx, seeds)
	accepted := 0

	for _, candidateURL := range candidates {
		parsed, err := url.Parse(candidateURL)
		if err != nil || parsed.Hostname() == "" {
			continue
		}
		if parsed.Hostname() == site.Domain {
			// A site cannot be its own prospect.
			continue
		}
		if !app.Scope.MatchesCandidate(parsed.Hostname(), candidateURL) {
			continue
		}

		exists, err := app.Repo.ExistsProspectURL(websiteID, candidateURL)
		if err != nil {
			return accepted, fmt.Errorf("checking for existing prospect %s : %w", candidateURL, err)
		}
		if exists {
			continue
		}

		prospect, err := app.evaluateCandidate(ctx, site, candidateURL)
		if err != nil {
			app.Logger.Warn("skipping candidate", "url", candidateURL, "error", err)
			continue
		}
		if prospect == nil {
			continue
		}

		if err := app.Repo.InsertProspect(prospect); err != nil {
			return accepted, fmt.Errorf("inserting prospect %s : %w", candidateURL, err)
		}
		accepted++

		app.WriteActivity("INFO",
			fmt.Sprintf("Discovered %s (fit %d)", prospect.Domain, prospect.FitScore),
			ActivityWithUser(site.UserID),
			ActivityWithProspect(prospect.ID),
		)
	}

	return accepted, nil
}

// expandSeeds resolves sitemap seeds into page URLs and caps the total.
func (app *App) expandSeeds(ctx context.Context, seeds []string) []string {
	var candidates []string
	for _, seed := range seeds {
		if strings.HasSuffix(seed, "sitemap.xml") {
			pages, err := app.Crawler.Sitemap(ctx, seed)
			if err != nil {
				app.Logger.Warn("expanding sitemap", "url", seed, "error", err)
				continue
			}
			candidates = append(candidates, pages...)
		} else {
			candidates = append(candidates, seed)
		}
		if len(candidates) >= maxDiscoveryPages {
			return candidates[:maxDiscoveryPages]
		}
	}
	return candidates
}

// evaluateCandidate crawls one page, fetches its metrics and runs the
// scoring pipeline. A nil prospect means the candidate was discarded.
func (app *App) evaluateCandidate(ctx context.Context, site *domain.Website, candidateURL string) (*domain.Prospect, error) {
	page, err := app.Crawler.Fetch(ctx, candidateURL)
	if err != nil {
		return nil, fmt.Errorf("fetching page : %w", err)
	}
	if page.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned status %d", page.StatusCode)
	}

	var metrics *domain.DomainMetrics
	if app.Moz != nil {
		metrics, err = app.Moz.Metrics(ctx, page.Domain)
		if err != nil {
			app.Logger.Warn("fetching metrics", "domain", page.Domain, "error", err)
		} else if err := app.Repo.UpsertMetrics(metrics); err != nil {
			return nil, fmt.Errorf("persisting metrics for %s : %w", page.Domain, err)
		}
	}

	candidate := &Candidate{
		URL:           page.URL,
		Domain:        page.Domain,
		Title:         page.Title,
		ContactEmails: page.ContactEmails,
		OutboundLinks: page.Links,
		Keywords:      site.Keywords,
		Metrics:       metrics,
		Metadata:      make(map[string]any),
	}
	if err := app.runPipeline(candidate); err != nil {
		return nil, fmt.Errorf("scoring candidate : %w", err)
	}
	if candidate.Discarded {
		return nil, nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating new uuid : %w", err)
	}

	contactEmail := ""
	if len(page.ContactEmails) > 0 {
		contactEmail = page.ContactEmails[0]
	}
	prospect := &domain.Prospect{
		ID:              id,
		WebsiteID:       site.ID,
		URL:             page.URL,
		Domain:          page.Domain,
		Kind:            candidate.Kind,
		Title:           page.Title,
		ContactEmail:    contactEmail,
		DomainAuthority: candidate.DomainAuthority(),
		SpamScore:       candidate.SpamScore(),
		FitScore:        candidate.Score,
		Premium:         candidate.Premium,
		Status:          domain.StatusNew,
		Snapshot:        page.Snapshot,
		Metadata:        candidate.Metadata,
		DiscoveredAt:    time.Now().UTC(),
	}
	return prospect, nil
}

// AllocateDrips tops up a user's drip feed for a day to their plan quota.
// Already-assigned prospects are never reassigned, so calling it twice on
// the same day is safe. It returns the full feed for the day.
func (app *App) AllocateDrips(ctx context.Context, userID uuid.UUID, day string) ([]*domain.Prospect, error) {
	plan := app.planForUser(userID)

	existing, err := app.Repo.CountDrips(userID, day)
	if err != nil {
		return nil, fmt.Errorf("counting drips for %s on %s : %w", userID, day, err)
	}

	need := plan.DailyDrips - existing
	if need > 0 {
		websites, err := app.Repo.GetWebsitesForUser(userID)
		if err != nil {
			return nil, fmt.Errorf("getting websites for %s : %w", userID, err)
		}

		for _, site := range websites {
			if need <= 0 {
				break
			}
			prospects, err := app.Repo.TopUnassigned(site.ID, need, plan.Premium)
			if err != nil {
				return nil, fmt.Errorf("getting unassigned prospects for %s : %w", site.ID, err)
			}
			for _, prospect := range prospects {
				if need <= 0 {
					break
				}
				if err := app.Repo.AssignDrip(userID, prospect.ID, day); err != nil {
					return nil, fmt.Errorf("assigning drip %s : %w", prospect.ID, err)
				}
				if err := app.Repo.UpdateProspectStatus(prospect.ID, domain.StatusDripped); err != nil {
					return nil, fmt.Errorf("marking prospect dripped %s : %w", prospect.ID, err)
				}
				need--
			}
		}

		if allocated := plan.DailyDrips - existing - need; allocated > 0 {
			app.WriteActivity("INFO",
				fmt.Sprintf("Dripped %d prospects", allocated),
				ActivityWithUser(userID),
			)
		}
	}

	drips, err := app.Repo.GetDrips(userID, day)
	if err != nil {
		return nil, fmt.Errorf("getting drips for %s on %s : %w", userID, day, err)
	}
	return drips, nil
}

// Splash unlocks a prospect's contact details. Premium prospects cost one
// splash credit, spent in the same transaction as the unlock so a credit
// is never spent without an unlock or spent twice for the same prospect.
// Unlocking an already-unlocked prospect is a no-op.
func (app *App) Splash(ctx context.Context, userID uuid.UUID, prospectID uuid.UUID) (*domain.Prospect, error) {
	prospect, err := app.Repo.GetProspect(prospectID)
	if err != nil {
		return nil, fmt.Errorf("getting prospect %s : %w", prospectID, err)
	}
	if prospect.UnlockedAt != nil {
		return prospect, nil
	}

	if prospect.Premium {
		// Spend and unlock together; a concurrent splash of the same
		// prospect must not spend a second credit.
		if err := app.Repo.SplashProspect(userID, prospectID, time.Now().UTC()); err != nil {
			return nil, fmt.Errorf("splashing prospect %s : %w", prospectID, err)
		}
	} else {
		if err := app.Repo.UnlockProspect(prospectID, time.Now().UTC()); err != nil {
			return nil, fmt.Errorf("unlocking prospect %s : %w", prospectID, err)
		}
	}

	app.WriteActivity("INFO",
		fmt.Sprintf("Unlocked %s", prospect.Domain),
		ActivityWithUser(userID),
		ActivityWithProspect(prospectID),
	)

	unlocked, err := app.Repo.GetProspect(prospectID)
	if err != nil {
		return nil, fmt.Errorf("getting unlocked prospect %s : %w", prospectID, err)
	}
	return unlocked, nil
}

// RefreshMetrics re-fetches Moz metrics for the stalest domains and
// persists them. It returns the number of domains refreshed.
func (app *App) RefreshMetrics(ctx context.Context) (int, error) {
	if app.Moz == nil {
		return 0, fmt.Errorf("refreshing metrics : %w", ErrNotConfigured)
	}

	maxAgeDays := 30
	if app.Config != nil && app.Config.MetricsMaxAgeDays > 0 {
		maxAgeDays = app.Config.MetricsMaxAgeDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -maxAgeDays)

	domains, err := app.Repo.StaleDomains(cutoff, 50)
	if err != nil {
		return 0, fmt.Errorf("finding stale domains : %w", err)
	}
	if len(domains) == 0 {
		return 0, nil
	}

	results, err := app.Moz.MetricsBatch(ctx, domains)
	if err != nil {
		return 0, fmt.Errorf("batch fetching metrics : %w", err)
	}

	refreshed := 0
	for _, metrics := range results {
		if err := app.Repo.UpsertMetrics(metrics); err != nil {
			return refreshed, fmt.Errorf("persisting metrics for %s : %w", metrics.Domain, err)
		}
		// Carry the fresh numbers onto the prospects that reference the
		// domain, otherwise their authority columns never move again.
		if err := app.Repo.UpdateProspectMetrics(metrics.Domain, metrics); err != nil {
			return refreshed, fmt.Errorf("refreshing prospects for %s : %w", metrics.Domain, err)
		}
		refreshed++
	}
	return refreshed, nil
}

// ApplyWebhook maps a verified LemonSqueezy event onto the local
// subscription state. Events are applied at most once, keyed by event ID;
// the ID is only recorded once the event's effects are persisted, so a
// failed delivery stays retriable.
func (app *App) ApplyWebhook(ctx context.Context, event *lemonsqueezy.WebhookEvent) error {
	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		return fmt.Errorf("webhook event %s has no usable user id : %w", event.ID, err)
	}

	seen, err := app.Repo.SeenWebhookEvent(event.ID)
	if err != nil {
		return fmt.Errorf("checking webhook event %s : %w", event.ID, err)
	}
	if seen {
		return nil
	}

	plan := app.planForVariant(event.Subscription.VariantID)

	switch event.Name {
	case lemonsqueezy.EventSubscriptionCreated:
		err = app.Repo.UpsertSubscription(&domain.Subscription{
			UserID:           userID,
			LSSubscriptionID: event.Subscription.ID,
			LSCustomerID:     event.Subscription.CustomerID,
			Plan:             plan.Name,
			Status:           event.Subscription.Status,
			SplashCredits:    plan.MonthlySplash,
			RenewsAt:         event.Subscription.RenewsAt,
			UpdatedAt:        time.Now().UTC(),
		})
	case lemonsqueezy.EventSubscriptionUpdated, lemonsqueezy.EventSubscriptionCancelled:
		// Keep the remaining splash balance across plan changes.
		credits := 0
		if current, getErr := app.Repo.GetSubscription(userID); getErr == nil {
			credits = current.SplashCredits
		}
		err = app.Repo.UpsertSubscription(&domain.Subscription{
			UserID:           userID,
			LSSubscriptionID: event.Subscription.ID,
			LSCustomerID:     event.Subscription.CustomerID,
			Plan:             plan.Name,
			Status:           event.Subscription.Status,
			SplashCredits:    credits,
			RenewsAt:         event.Subscription.RenewsAt,
			UpdatedAt:        time.Now().UTC(),
		})
	case lemonsqueezy.EventSubscriptionPaymentSuccess:
		err = app.Repo.ResetSplashCredits(userID, plan.MonthlySplash)
	default:
		app.Logger.Info("ignoring webhook event", "name", event.Name, "id", event.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("applying webhook event %s : %w", event.ID, err)
	}

	if err := app.Repo.MarkWebhookEvent(event.ID); err != nil {
		return fmt.Errorf("marking webhook event %s : %w", event.ID, err)
	}

	app.WriteActivity("INFO",
		fmt.Sprintf("Billing event %s (%s plan)", event.Name, plan.Name),
		ActivityWithUser(userID),
	)
	return nil
}

// planForUser resolves the user's plan, falling back to Free when the user
// has no subscription row or the plan is unknown.
func (app *App) planForUser(userID uuid.UUID) Plan {
	sub, err := app.Repo.GetSubscription(userID)
	if err != nil {
		return app.Plan(PlanFree)
	}
	return app.Plan(sub.Plan)
}

// planForVariant resolves a LemonSqueezy variant to a catalog plan.
func (app *App) planForVariant(variantID string) Plan {
	for _, plan := range app.Plans {
		if plan.VariantID != "" && plan.VariantID == variantID {
			return plan
		}
	}
	return app.Plan(PlanFree)
}
