package linkdrip

import (
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

// Plan names known to the default catalog.
const (
	PlanFree    = "free"
	PlanStarter = "starter"
	PlanGrow    = "grow"
	PlanPro     = "pro"
)

// Plan describes what a subscription tier entitles a user to.
type Plan struct {
	Name           string `yaml:"name"`            // Plan name, also the catalog key.
	DailyDrips     int    `yaml:"daily_drips"`     // Prospects allocated per day.
	MonthlySplash  int    `yaml:"monthly_splash"`  // Splash credits granted each billing cycle.
	Premium        bool   `yaml:"premium"`         // Whether premium prospects appear in the feed.
	VariantID      string `yaml:"variant_id"`      // LemonSqueezy variant for checkout, empty for free.
}

const plansFile = "plans.yaml"

// DefaultPlans returns the built-in plan catalog.
func DefaultPlans() map[string]Plan {
	return map[string]Plan{
		PlanFree:    {Name: PlanFree, DailyDrips: 3, MonthlySplash: 0, Premium: false},
		PlanStarter: {Name: PlanStarter, DailyDrips: 5, MonthlySplash: 1, Premium: false},
		PlanGrow:    {Name: PlanGrow, DailyDrips: 10, MonthlySplash: 3, Premium: true},
		PlanPro:     {Name: PlanPro, DailyDrips: 20, MonthlySplash: 7, Premium: true},
	}
}

// LoadPlans reads plans.yaml from the config dir. It returns (nil, nil) when
// the file does not exist so callers can fall back to the defaults.
func LoadPlans(configDir string) (map[string]Plan, error) {
	data, err := os.ReadFile(path.Join(configDir, plansFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s : %w", plansFile, err)
	}

	var entries []Plan
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing %s : %w", plansFile, err)
	}

	plans := make(map[string]Plan, len(entries))
	for _, plan := range entries {
		if plan.Name == "" {
			return nil, fmt.Errorf("plan entry in %s is missing a name", plansFile)
		}
		if plan.DailyDrips <= 0 {
			return nil, fmt.Errorf("plan %s must allow at least one daily drip", plan.Name)
		}
		plans[plan.Name] = plan
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("%s defines no plans", plansFile)
	}
	return plans, nil
}
