package linkdrip

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/linkdripai/linkdrip/domain"
	"github.com/linkdripai/linkdrip/scripting"
)

// WithConfigDir configures the app to use the specified configuration
// directory. It creates the directory if it doesn't exist and initializes
// the configuration file using Viper.
func WithConfigDir(appConfigDir string) func(*App) error {
	return func(app *App) error {
		_, err := os.ReadDir(appConfigDir)
		if err != nil {
			if os.IsNotExist(err) {
				log.Println("[*] creating config dir")
				err := os.MkdirAll(appConfigDir, 0700)
				if err != nil {
					return fmt.Errorf("creating config dir %s: %w", appConfigDir, err)
				}
			} else {
				return fmt.Errorf("checking if directory exists %s: %w", appConfigDir, err)
			}
		}
		app.ConfigDir = appConfigDir

		v := viper.New()
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(appConfigDir)
		v.SetDefault("first_run", true)
		v.SetDefault("default_address", "127.0.0.1")
		v.SetDefault("default_port", "8820")
		v.SetDefault("drip_hour_utc", 6)
		v.SetDefault("metrics_max_age_days", 30)
		err = v.ReadInConfig()
		if err != nil {
			// need to check if the error is config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				err = v.SafeWriteConfig()
				if err != nil {
					return fmt.Errorf("writing config file : %w", err)
				}
			} else {
				return fmt.Errorf("reading config file : %w", err)
			}
		}
		config := &Config{viper: v, ConfigDir: appConfigDir}
		if err := v.Unmarshal(config); err != nil {
			return fmt.Errorf("unmarshalling config to struct : %w", err)
		}
		app.Config = config

		// Rewrite entire file from struct
		err = v.WriteConfig()
		if err != nil {
			return fmt.Errorf("writing config after unmarshalling : %w", err)
		}

		// Plan catalog sits next to the config file when present.
		plans, err := LoadPlans(appConfigDir)
		if err != nil {
			return fmt.Errorf("loading plan catalog : %w", err)
		}
		if plans != nil {
			app.Plans = plans
		}
		return nil
	}
}

// WithRepo sets the repository and syncs the discovery scope from the saved
// dashboard filters.
func WithRepo(repo Repository) func(*App) error {
	return func(app *App) error {
		if app.Repo != nil {
			if err := app.Repo.Close(); err != nil {
				return err
			}
			app.Repo = nil
		}
		app.Repo = repo
		if err := app.SyncScope(); err != nil {
			app.Logger.Info("syncing scope", "error", err)
		}
		return nil
	}
}

// WithLogger sets the structured logger. A nil logger falls back to the
// default slog logger.
func WithLogger(logger *slog.Logger) func(*App) error {
	return func(app *App) error {
		if logger == nil {
			app.Logger = slog.Default()
			return nil
		}
		app.Logger = logger
		return nil
	}
}

// WithMozClient sets the Moz metrics source.
func WithMozClient(source MetricsSource) func(*App) error {
	return func(app *App) error {
		app.Moz = source
		return nil
	}
}

// WithBilling sets the LemonSqueezy billing client.
func WithBilling(billing BillingService) func(*App) error {
	return func(app *App) error {
		app.Billing = billing
		return nil
	}
}

// WithCrawler sets the prospect page crawler.
func WithCrawler(fetcher PageFetcher) func(*App) error {
	return func(app *App) error {
		app.Crawler = fetcher
		return nil
	}
}

// WithScript loads a Lua scoring script into a sandboxed runtime and hooks
// it into the scoring pipeline. Script log lines land in the activity feed.
func WithScript(name, source string) func(*App) error {
	return func(app *App) error {
		runtime, err := scripting.NewRuntime(name, source, scripting.WithLogHandler(func(entry scripting.LogEntry) {
			app.Logger.Info("script log", "script", name, "message", entry.Text)
		}))
		if err != nil {
			return fmt.Errorf("preparing script %s : %w", name, err)
		}
		app.Script = &scriptAdapter{runtime: runtime}
		return nil
	}
}

// WithActivityHandler takes a handler function that will be executed after
// each activity event is persisted.
func WithActivityHandler(handler func(*domain.ActivityEvent) error) func(*App) error {
	return func(app *App) error {
		if app.OnActivity != nil {
			return errors.New("app already has an activity handler defined")
		}
		app.OnActivity = handler
		return nil
	}
}

// WithPlans replaces the plan catalog.
func WithPlans(plans map[string]Plan) func(*App) error {
	return func(app *App) error {
		if len(plans) == 0 {
			return errors.New("plan catalog cannot be empty")
		}
		app.Plans = plans
		return nil
	}
}

// scriptAdapter bridges the scripting runtime into the pipeline's view of a
// scoring script.
type scriptAdapter struct {
	runtime *scripting.Runtime
}

func (adapter *scriptAdapter) Score(candidate Candidate) (ScriptVerdict, error) {
	verdict, err := adapter.runtime.Score(scripting.Candidate{
		URL:                candidate.URL,
		Domain:             candidate.Domain,
		Title:              candidate.Title,
		Kind:               candidate.Kind,
		DomainAuthority:    candidate.DomainAuthority(),
		SpamScore:          candidate.SpamScore(),
		RootDomainsLinking: candidate.RootDomainsLinking(),
		ContactEmails:      len(candidate.ContactEmails),
		OutboundLinks:      len(candidate.OutboundLinks),
		Premium:            candidate.Premium,
	})
	if err != nil {
		return ScriptVerdict{}, err
	}
	return ScriptVerdict{Delta: verdict.Delta, Discard: verdict.Discard}, nil
}
