package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the runtime configuration for a gradebook instance. It is
// passed explicitly into constructors; nothing reads the environment after
// Load returns.
type Config struct {
	CourseID            string
	DatabaseURL         string
	ExecutionTimeout    time.Duration
	LatePenaltyPerHour  float64
	PartialCreditScheme string
	LogLevel            string
}

// Load reads configuration values from environment variables and an
// optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GRADEBOOK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("course.id", "course101")
	v.SetDefault("database.url", "gradebook.db")
	v.SetDefault("execution_timeout_ms", 30000)
	v.SetDefault("late_penalty_per_hour", 0.0)
	v.SetDefault("partial_credit", "full")
	v.SetDefault("log.level", "info")

	timeoutMs := v.GetInt("execution_timeout_ms")
	if timeoutMs <= 0 {
		timeoutMs = 30000
	}

	cfg := Config{
		CourseID:            v.GetString("course.id"),
		DatabaseURL:         v.GetString("database.url"),
		ExecutionTimeout:    time.Duration(timeoutMs) * time.Millisecond,
		LatePenaltyPerHour:  v.GetFloat64("late_penalty_per_hour"),
		PartialCreditScheme: strings.ToLower(v.GetString("partial_credit")),
		LogLevel:            strings.ToLower(v.GetString("log.level")),
	}

	if cfg.CourseID == "" {
		return Config{}, fmt.Errorf("course id must be provided")
	}
	if cfg.LatePenaltyPerHour < 0 || cfg.LatePenaltyPerHour > 1 {
		return Config{}, fmt.Errorf("late penalty per hour must be a fraction between 0 and 1")
	}
	switch cfg.PartialCreditScheme {
	case "full", "assertion_ratio":
	default:
		return Config{}, fmt.Errorf("unknown partial credit scheme %q", cfg.PartialCreditScheme)
	}

	return cfg, nil
}
