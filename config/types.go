package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Backend       BackendConfig       `mapstructure:"backend"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Search        SearchConfig        `mapstructure:"search"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Update        UpdateConfig        `mapstructure:"update"`
}

// BackendConfig holds the backend connection details
type BackendConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
	// AppSubURL is the path the backend is served under, e.g. "/grafana"
	AppSubURL string        `mapstructure:"app_sub_url" validate:"omitempty,startswith=/"`
	APIKey    string        `mapstructure:"api_key"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password" validate:"required_with=Username"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gte=0"`
	// MinVersion is the lowest backend version ping accepts
	MinVersion string `mapstructure:"min_version" validate:"omitempty,version"`
}

// NotificationsConfig controls how alerts are shown
type NotificationsConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Delay   time.Duration `mapstructure:"delay" validate:"gte=0"`
	Output  string        `mapstructure:"output" validate:"oneof=console log"`
}

// SearchConfig contains search defaults and named filter presets.
// Preset names are case-insensitive.
type SearchConfig struct {
	Presets      map[string]string `mapstructure:"presets"`
	DefaultLimit int               `mapstructure:"default_limit" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
	Color  bool   `mapstructure:"color"`
}

// UpdateConfig configures self-update
type UpdateConfig struct {
	Repository string `mapstructure:"repository" validate:"required"`
}
