package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage" validate:"required"`
	Remote   RemoteConfig   `mapstructure:"remote" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Outbox   OutboxConfig   `mapstructure:"outbox" validate:"required"`
	Schedule ScheduleConfig `mapstructure:"schedule" validate:"required"`
	Profile  ProfileConfig  `mapstructure:"profile" validate:"required"`
}

// ServerConfig contains the host HTTP surface settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// StorageConfig selects the key-value backend that persists outbox state.
type StorageConfig struct {
	// Driver is one of sqlite, postgres, redis or memory.
	Driver string `mapstructure:"driver" validate:"required,oneof=sqlite postgres redis memory"`

	// Path is the SQLite database file used by the sqlite driver.
	Path string `mapstructure:"path" validate:"required_if=Driver sqlite"`

	// URL is the connection string for the postgres and redis drivers.
	URL string `mapstructure:"url" validate:"required_if=Driver postgres,required_if=Driver redis"`
}

// RemoteConfig describes the analysis/grading/ingest service.
type RemoteConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`

	// APIToken is the configuration-level credential. The environment
	// variable SCRY_API_TOKEN takes precedence over it at resolve time.
	APIToken string `mapstructure:"api_token"`

	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	AnalyzeTimeout time.Duration `mapstructure:"analyze_timeout" validate:"gt=0"`
}

// AuthConfig configures the signed fallback credential.
type AuthConfig struct {
	// SigningSecret enables minting short-lived bearer tokens when neither the
	// environment nor the configuration provide a token. Empty disables it.
	SigningSecret        string `mapstructure:"signing_secret" validate:"omitempty,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gt=0"`
}

// OutboxConfig bounds every durable outbox.
type OutboxConfig struct {
	Capacity int `mapstructure:"capacity" validate:"gt=0"`
}

// ScheduleConfig controls how often drains are triggered.
type ScheduleConfig struct {
	OpportunisticInterval time.Duration `mapstructure:"opportunistic_interval" validate:"gt=0"`
	ConstrainedInterval   time.Duration `mapstructure:"constrained_interval" validate:"gt=0"`
	WindowDuration        time.Duration `mapstructure:"window_duration" validate:"gt=0"`

	// ForegroundInterval is the periodic trigger while the host is active.
	// Zero disables the periodic trigger.
	ForegroundInterval time.Duration `mapstructure:"foreground_interval" validate:"gte=0"`
}

// ProfileConfig carries the learner context sent with every analysis.
type ProfileConfig struct {
	UserID             string `mapstructure:"user_id" validate:"required"`
	GoalID             string `mapstructure:"goal_id"`
	GoalDescription    string `mapstructure:"goal_description"`
	CareerStage        string `mapstructure:"career_stage" validate:"omitempty,oneof=student early_career mid_career senior career_switcher"`
	InterventionPolicy string `mapstructure:"intervention_policy" validate:"required,oneof=focused aggressive"`
	LearningMode       string `mapstructure:"learning_mode" validate:"required,oneof=exam_prep interview_prep general"`
}
