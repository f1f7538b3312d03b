package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "SCRY"

// setDefaults registers every key so that AutomaticEnv can resolve it
// during Unmarshal, even when no config file is present.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "scry-capture.db")
	v.SetDefault("storage.url", "")

	v.SetDefault("remote.base_url", "")
	v.SetDefault("remote.api_token", "")
	v.SetDefault("remote.request_timeout", 8*time.Second)
	v.SetDefault("remote.analyze_timeout", 30*time.Second)

	v.SetDefault("auth.signing_secret", "")
	v.SetDefault("auth.token_lifetime_minutes", 15)

	v.SetDefault("outbox.capacity", 200)

	v.SetDefault("schedule.opportunistic_interval", 15*time.Minute)
	v.SetDefault("schedule.constrained_interval", time.Hour)
	v.SetDefault("schedule.window_duration", 30*time.Second)
	v.SetDefault("schedule.foreground_interval", time.Minute)

	v.SetDefault("profile.user_id", "")
	v.SetDefault("profile.goal_id", "")
	v.SetDefault("profile.goal_description", "")
	v.SetDefault("profile.career_stage", "")
	v.SetDefault("profile.intervention_policy", "focused")
	v.SetDefault("profile.learning_mode", "general")
}

// Load reads configuration from environment variables and, when present, a
// config.yaml file in the working directory or ./config.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile behaves like Load but reads the given config file when path is
// non-empty. A missing explicit file is an error; a missing default file is not.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
