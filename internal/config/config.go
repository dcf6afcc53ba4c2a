package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Task     TaskConfig     `mapstructure:"task"`
	Mastery  MasteryConfig  `mapstructure:"mastery"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// CacheConfig selects and configures the dashboard snapshot cache backend.
// With Backend "memory" the Redis settings are ignored.
type CacheConfig struct {
	Backend   string        `mapstructure:"backend"    validate:"omitempty,oneof=memory redis"`
	RedisAddr string        `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	RedisDB   int           `mapstructure:"redis_db"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// TaskConfig tunes the background task runner.
type TaskConfig struct {
	WorkerCount   int           `mapstructure:"worker_count"   validate:"omitempty,gt=0"`
	QueueSize     int           `mapstructure:"queue_size"     validate:"omitempty,gt=0"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// MasteryConfig holds learning progression settings.
type MasteryConfig struct {
	// Threshold is the mastery level at which a concept transitions to
	// mastered status. Per-edge minimum mastery levels override this for
	// readiness gating.
	Threshold float64 `mapstructure:"threshold" validate:"omitempty,gte=0,lte=1"`
}
