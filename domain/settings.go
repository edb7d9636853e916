package domain

// SettingsRepository defines the interface for application-level settings
// persisted alongside user data.
type SettingsRepository interface {
	// GetFilters retrieves the saved dashboard filters. These control which
	// prospect kinds and score ranges the opportunity list shows by default.
	GetFilters() ([]string, error)

	// SetFilters replaces the saved dashboard filters.
	SetFilters(filters []string) error
}
