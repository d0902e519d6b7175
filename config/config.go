package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Config holds all configuration for the application
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Env         string `env:"ENV" envDefault:"development"`
	DatabaseURL string `env:"DATABASE_URL"`

	JWTSecret     string `env:"JWT_SECRET"`
	SessionSecret string `env:"SESSION_SECRET" envDefault:"dev-session-secret"`
	CronSecret    string `env:"CRON_SECRET"`

	AdminEmail        string `env:"ADMIN_EMAIL"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"Banners On The Fly <support@bannersonthefly.com>"`

	FrontendURL      string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	PublicURL        string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`
	EmailDispatchURL string `env:"EMAIL_DISPATCH_URL"`
	RedisURL         string `env:"REDIS_URL"`

	SweepInterval      string `env:"SWEEP_INTERVAL" envDefault:"1h"`
	SchedulerEnabled   bool   `env:"SCHEDULER_ENABLED" envDefault:"true"`
	RecoveryPolicyFile string `env:"RECOVERY_POLICY_FILE"`

	LogDir        string `env:"LOG_PATH" envDefault:"./logs"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogMaxSize    int    `env:"LOG_MAX_SIZE" envDefault:"100"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"7"`
	LogMaxAge     int    `env:"LOG_MAX_AGE" envDefault:"7"`
}

// DevSessionSecret signs guest cookies outside production only
const DevSessionSecret = "dev-session-secret"

// ErrMissingDatabaseURL is returned when no database connection string is configured
var ErrMissingDatabaseURL = fmt.Errorf("DATABASE_URL is not configured")

// LoadConfig loads configuration from .env and environment variables
func LoadConfig() (*Config, error) {
	// .env is optional outside local development
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("error parsing environment: %v", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	if _, err := cfg.SweepEvery(); err != nil {
		return nil, err
	}
	if err := cfg.checkSecrets(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// checkSecrets refuses to start a production instance with missing or
// development signing keys.
func (c *Config) checkSecrets() error {
	if !c.IsProduction() {
		return nil
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.SessionSecret == "" || c.SessionSecret == DevSessionSecret {
		return fmt.Errorf("SESSION_SECRET must be set in production")
	}
	return nil
}

// SweepEvery returns the scheduler interval
func (c *Config) SweepEvery() (time.Duration, error) {
	d, err := time.ParseDuration(c.SweepInterval)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid SWEEP_INTERVAL %q", c.SweepInterval)
	}
	return d, nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Addr returns the listen address
func (c *Config) Addr() string {
	if _, err := strconv.Atoi(c.Port); err == nil {
		return ":" + c.Port
	}
	return c.Port
}
