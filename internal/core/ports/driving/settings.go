package driving

import "github.com/fmrif/osmium-ingest/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current settings, falling back to defaults for unset keys.
	Get() (*domain.Settings, error)

	// Save persists settings.
	Save(settings *domain.Settings) error

	// Set updates one setting by its dotted key (e.g., "ingest.batch_size").
	Set(key, value string) error

	// Keys returns every recognised settings key.
	Keys() []string

	// GetDefaults returns default settings.
	GetDefaults() domain.Settings
}
