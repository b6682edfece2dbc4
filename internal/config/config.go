package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port         string   `mapstructure:"PORT"`
	Env          string   `mapstructure:"ENV"`
	DatabaseURL  string   `mapstructure:"DATABASE_URL"`
	DBMaxConns   int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns   int32    `mapstructure:"DB_MIN_CONNS"`
	RedisURL     string   `mapstructure:"REDIS_URL"`
	AuthIssuer   string   `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL  string   `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience string   `mapstructure:"AUTH_AUDIENCE"`
	CORSOrigins  []string `mapstructure:"CORS_ORIGINS"`

	// Scheduler tuning. The soft-cost weighting is configurable rather than
	// hard-coded; defaults favor patient wait over load balance.
	SchedHorizonHours          int     `mapstructure:"SCHED_HORIZON_HOURS"`
	SchedWaitWeight            float64 `mapstructure:"SCHED_WAIT_WEIGHT"`
	SchedRoomBalanceWeight     float64 `mapstructure:"SCHED_ROOM_BALANCE_WEIGHT"`
	SchedStaffBalanceWeight    float64 `mapstructure:"SCHED_STAFF_BALANCE_WEIGHT"`
	SchedLatePenalty           float64 `mapstructure:"SCHED_LATE_PENALTY"`
	SchedImbalancePenalty      float64 `mapstructure:"SCHED_IMBALANCE_PENALTY"`
	SchedImbalanceThresholdMin int     `mapstructure:"SCHED_IMBALANCE_THRESHOLD_MIN"`
	SchedEscalateAfterHours    int     `mapstructure:"SCHED_ESCALATE_AFTER_HOURS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("SCHED_HORIZON_HOURS", 168)
	v.SetDefault("SCHED_WAIT_WEIGHT", 1.0)
	v.SetDefault("SCHED_ROOM_BALANCE_WEIGHT", 0.05)
	v.SetDefault("SCHED_STAFF_BALANCE_WEIGHT", 0.01)
	v.SetDefault("SCHED_LATE_PENALTY", 5)
	v.SetDefault("SCHED_IMBALANCE_PENALTY", 3)
	v.SetDefault("SCHED_IMBALANCE_THRESHOLD_MIN", 240)
	v.SetDefault("SCHED_ESCALATE_AFTER_HOURS", 48)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("REDIS_URL")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_JWKS_URL")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("SCHED_HORIZON_HOURS")
	v.BindEnv("SCHED_WAIT_WEIGHT")
	v.BindEnv("SCHED_ROOM_BALANCE_WEIGHT")
	v.BindEnv("SCHED_STAFF_BALANCE_WEIGHT")
	v.BindEnv("SCHED_LATE_PENALTY")
	v.BindEnv("SCHED_IMBALANCE_PENALTY")
	v.BindEnv("SCHED_IMBALANCE_THRESHOLD_MIN")
	v.BindEnv("SCHED_ESCALATE_AFTER_HOURS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Production requires
// a real JWT issuer; scheduler weights must be non-negative.
func (c *Config) Validate() error {
	if c.IsProduction() && c.AuthIssuer == "" {
		return fmt.Errorf("AUTH_ISSUER is required in production (ENV=%q)", c.Env)
	}
	if c.SchedHorizonHours <= 0 {
		return fmt.Errorf("SCHED_HORIZON_HOURS must be positive, got %d", c.SchedHorizonHours)
	}
	if c.SchedWaitWeight < 0 || c.SchedRoomBalanceWeight < 0 || c.SchedStaffBalanceWeight < 0 {
		return fmt.Errorf("scheduler weights must be non-negative")
	}
	if c.SchedLatePenalty < 0 || c.SchedImbalancePenalty < 0 {
		return fmt.Errorf("scheduler penalties must be non-negative")
	}
	if c.SchedEscalateAfterHours <= 0 {
		return fmt.Errorf("SCHED_ESCALATE_AFTER_HOURS must be positive, got %d", c.SchedEscalateAfterHours)
	}
	return nil
}
