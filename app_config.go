package linkdrip

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Config is the backend configuration persisted as yaml in the config dir.
type Config struct {
	viper             *viper.Viper
	ConfigDir         string `mapstructure:"config_dir"`           // Current config dir
	FirstRun          bool   `mapstructure:"first_run"`            // Cleared after onboarding completes
	DefaultAddress    string `mapstructure:"default_address"`      // API listen address
	DefaultPort       string `mapstructure:"default_port"`         // API listen port
	DripHourUTC       int    `mapstructure:"drip_hour_utc"`        // Hour of day (UTC) for drip allocation
	MetricsMaxAgeDays int    `mapstructure:"metrics_max_age_days"` // Moz metrics older than this get refreshed
}

// SetListenAddress updates the API bind address and port and saves the file.
func (cfg *Config) SetListenAddress(address, port string) error {
	if address == "" || port == "" {
		return errors.New("address and port cannot be empty")
	}
	cfg.DefaultAddress = address
	cfg.DefaultPort = port
	cfg.viper.Set("default_address", address)
	cfg.viper.Set("default_port", port)
	if err := cfg.viper.WriteConfig(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}

// ClearFirstRun marks onboarding as done and saves the file.
func (cfg *Config) ClearFirstRun() error {
	cfg.FirstRun = false
	cfg.viper.Set("first_run", false)
	if err := cfg.viper.WriteConfig(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}
