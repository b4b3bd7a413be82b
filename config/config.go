package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/blang/semver"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// GRAFCLI_BACKEND_API_KEY overrides backend.api_key.
const EnvPrefix = "GRAFCLI"

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Load loads the configuration from file and environment. When configPath is
// empty the standard locations are searched and a missing file is not an
// error, so the CLI can run from environment variables alone.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".grafcli"))
		}
		v.AddConfigPath("/etc/grafcli/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values. Every key is given a
// default so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	// Backend defaults
	v.SetDefault("backend.url", "http://localhost:3000")
	v.SetDefault("backend.app_sub_url", "")
	v.SetDefault("backend.api_key", "")
	v.SetDefault("backend.username", "")
	v.SetDefault("backend.password", "")
	v.SetDefault("backend.timeout", "30s")
	v.SetDefault("backend.min_version", "")

	// Notification defaults
	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.delay", "50ms")
	v.SetDefault("notifications.output", "console")

	v.SetDefault("search.default_limit", 100)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)

	v.SetDefault("update.repository", "s0up4200/grafcli")
}

var validate = newValidator()

func newValidator() func(cfg *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report fields by their config key
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	if err := v.RegisterValidation("version", func(fl validator.FieldLevel) bool {
		_, err := semver.ParseTolerant(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}

	return func(cfg *Config) error {
		err := v.Struct(cfg)
		if err == nil {
			return nil
		}

		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}

		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
	}
}

func fieldMessage(fe validator.FieldError) string {
	// drop the leading "Config."
	_, key, _ := strings.Cut(fe.Namespace(), ".")

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", key)
	case "required_with":
		return fmt.Sprintf("%s is required when %s is set", key, strings.ToLower(fe.Param()))
	case "url":
		return fmt.Sprintf("%s must be a valid URL", key)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", key, fe.Param(), fe.Value())
	case "startswith":
		return fmt.Sprintf("%s must start with %q", key, fe.Param())
	case "version":
		return fmt.Sprintf("%s must be a version like 10.4.0, got %q", key, fe.Value())
	case "gte":
		return fmt.Sprintf("%s must not be negative", key)
	default:
		return fmt.Sprintf("%s failed %s validation", key, fe.Tag())
	}
}
