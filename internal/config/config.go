package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env            string        `mapstructure:"ENV"`
	Port           string        `mapstructure:"PORT"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	AdminKey       string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed    string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`

	DefaultSpeedKmh float64 `mapstructure:"DEFAULT_SPEED_KMH"`

	SLASweepInterval time.Duration `mapstructure:"SLA_SWEEP_INTERVAL"`
	SLASweepLimit    int           `mapstructure:"SLA_SWEEP_LIMIT"`

	RouteSolverTimeout time.Duration `mapstructure:"ROUTE_SOLVER_TIMEOUT"`

	MLURL             string        `mapstructure:"ML_URL"`
	MLRolloutPct      float64       `mapstructure:"ML_ROLLOUT_PCT"`
	MLCacheTTL        time.Duration `mapstructure:"ML_CACHE_TTL"`
	MLDisableFallback bool          `mapstructure:"ML_DISABLE_FALLBACK"`
	MLStickyKey       string        `mapstructure:"ML_STICKY_KEY"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("DEFAULT_SPEED_KMH", 40.0)
	v.SetDefault("SLA_SWEEP_INTERVAL", "5m")
	v.SetDefault("SLA_SWEEP_LIMIT", 200)
	v.SetDefault("ROUTE_SOLVER_TIMEOUT", "5s")
	v.SetDefault("ML_ROLLOUT_PCT", 100.0)
	v.SetDefault("ML_CACHE_TTL", "24h")
	v.SetDefault("ML_DISABLE_FALLBACK", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
