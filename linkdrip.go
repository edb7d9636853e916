// Package linkdrip implements the LinkDrip backend: a backlink-prospecting
// service that discovers link opportunities for a user's website, scores
// them, and feeds a daily drip of the best prospects into the dashboard.
// It is designed to be decoupled from any HTTP surface and provides
// methods to load handlers for building the API server and CLI tooling.
//
// The core functionality includes:
//   - Prospect discovery through a page crawler with scope-based filtering
//   - Fit scoring pipeline with Lua scoring script support
//   - Daily drip allocation against plan quotas
//   - Splash credits for unlocking premium prospects
//   - Moz domain metrics caching and refresh
//   - LemonSqueezy subscription state kept in sync via webhooks
//   - SQLite database storage for all entities
package linkdrip

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/linkdripai/linkdrip/crawler"
	"github.com/linkdripai/linkdrip/domain"
	"github.com/linkdripai/linkdrip/lemonsqueezy"
)

// Repository defines the methods consumed by the app to interact with the
// SQLite backend. It composes the per-concern domain repositories.
type Repository interface {
	domain.UserRepository
	domain.WebsiteRepository
	domain.ProspectRepository
	domain.DripRepository
	domain.MetricsRepository
	domain.CampaignRepository
	domain.OutreachRepository
	domain.SubscriptionRepository
	domain.ActivityRepository
	domain.StatsRepository
	domain.SettingsRepository
	Close() error
}

// MetricsSource is the slice of the Moz client the app consumes.
type MetricsSource interface {
	Metrics(ctx context.Context, host string) (*domain.DomainMetrics, error)
	MetricsBatch(ctx context.Context, hosts []string) (map[string]*domain.DomainMetrics, error)
}

// BillingService is the slice of the LemonSqueezy client the app consumes.
type BillingService interface {
	CreateCheckout(ctx context.Context, variantID string, userID string, email string) (string, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*lemonsqueezy.Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*lemonsqueezy.Subscription, error)
}

// PageFetcher is the slice of the crawler the app consumes.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*crawler.Page, error)
	Sitemap(ctx context.Context, sitemapURL string) ([]string, error)
}

// ScriptRunner scores candidates through a user-supplied script.
type ScriptRunner interface {
	Score(candidate Candidate) (ScriptVerdict, error)
}

// App is the main struct that orchestrates discovery, scoring, drip
// allocation, billing and the activity feed. It serves as the central
// coordinator for the LinkDrip backend.
type App struct {
	ConfigDir string            // The configuration directory.
	Config    *Config           // The backend configuration (separate from any UI config).
	Repo      Repository        // DB repository interface.
	Logger    *slog.Logger      // Structured logger, never nil after New.
	Moz       MetricsSource     // Moz metrics client.
	Billing   BillingService    // LemonSqueezy client.
	Crawler   PageFetcher       // Prospect page crawler.
	Script    ScriptRunner      // Optional Lua scoring script.
	Scope     *Scope            // Discovery scope configuration.
	Plans     map[string]Plan   // Plan catalog keyed by plan name.

	ActivityChannel chan *domain.ActivityEvent      // Buffered activity feed.
	OnActivity      func(*domain.ActivityEvent) error // Callback invoked after each persisted event.

	scorers []ScorerFunc
}

// New creates a new App instance with default configuration and applies any
// provided options. It initializes the activity channel, scope, plan catalog
// and the default scoring pipeline.
func New(options ...func(*App) error) (*App, error) {
	app := &App{
		Logger:          slog.Default(),
		Scope:           NewScope(true),
		Plans:           DefaultPlans(),
		ActivityChannel: make(chan *domain.ActivityEvent, 10),
	}
	app.scorers = defaultScorers()

	err := app.WithOptions(options...)
	if err != nil {
		return nil, err
	}
	return app, nil
}

// WithOptions applies a series of configuration functions to the app.
func (app *App) WithOptions(options ...func(*App) error) error {
	for _, option := range options {
		err := option(app)
		if err != nil {
			return fmt.Errorf("applying option on linkdrip : %w", err)
		}
	}
	return nil
}

// AddScorer appends a scorer to the fit-scoring pipeline.
func (app *App) AddScorer(scorer ScorerFunc) {
	app.scorers = append(app.scorers, scorer)
}

// Plan returns the catalog entry for a plan name, falling back to Free.
func (app *App) Plan(name string) Plan {
	if plan, ok := app.Plans[name]; ok {
		return plan
	}
	return app.Plans[PlanFree]
}

// WriteToDB drains the activity channel, persisting each event and invoking
// the OnActivity callback. Run it in its own goroutine; it exits when the
// channel is closed.
func (app *App) WriteToDB() {
	for event := range app.ActivityChannel {
		err := app.Repo.InsertActivity(event)
		if err != nil {
			app.Logger.Error("inserting activity", "error", err)
			continue
		}
		if app.OnActivity != nil {
			if err := app.OnActivity(event); err != nil {
				app.Logger.Error("running activity handler", "error", err)
			}
		}
	}
}

// WriteActivity queues an activity feed event. Level should be one of
// DEBUG, INFO, WARN, ERROR.
func (app *App) WriteActivity(level string, message string, options ...func(*domain.ActivityEvent) error) error {
	switch level {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("level should be either: debug, info, warn, error")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generating new uuid : %w", err)
	}
	event := &domain.ActivityEvent{
		ID:        id,
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
	}
	for _, option := range options {
		err := option(event)
		if err != nil {
			return fmt.Errorf("applying activity option : %w", err)
		}
	}
	app.ActivityChannel <- event
	return nil
}

// Close shuts down the activity feed and the repository.
func (app *App) Close() error {
	close(app.ActivityChannel)
	if app.Repo != nil {
		if err := app.Repo.Close(); err != nil {
			return fmt.Errorf("closing repository : %w", err)
		}
	}
	return nil
}

// ActivityWithUser associates an activity event with a user.
func ActivityWithUser(id uuid.UUID) func(*domain.ActivityEvent) error {
	return func(event *domain.ActivityEvent) error {
		event.UserID = &id
		return nil
	}
}

// ActivityWithProspect associates an activity event with a prospect.
func ActivityWithProspect(id uuid.UUID) func(*domain.ActivityEvent) error {
	return func(event *domain.ActivityEvent) error {
		event.ProspectID = &id
		return nil
	}
}

// ActivityWithContext attaches additional key-value data to an event.
func ActivityWithContext(context map[string]any) func(*domain.ActivityEvent) error {
	return func(event *domain.ActivityEvent) error {
		event.Context = context
		return nil
	}
}
