package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable; optional values fall back to the defaults below.
type Config struct {
	Env      string // application environment (development, production)
	Port     string // HTTP port to listen on
	LogLevel string // zap level name (debug, info, warn, error)

	DB DBConfig

	JWTSecret  string        // secret used to sign JWTs
	AccessTTL  time.Duration // access token lifetime
	RefreshTTL time.Duration // refresh token lifetime
	BcryptCost int           // bcrypt cost for password hashing

	TxMaxAttempts int // attempts for transactions aborted by deadlocks

	RevocationSweepInterval time.Duration // 0 disables the ledger sweeper

	AMQPURL              string // empty disables borrow events
	BorrowEventsQueue    string
	BorrowAuditConsumer  bool   // run the audit consumer in-process
	BorrowAuditLogPath   string // file the audit consumer appends to
	ShutdownGraceTimeout time.Duration
}

// DBConfig groups the MySQL connection settings.
type DBConfig struct {
	User            string
	Pass            string
	Host            string
	Port            string
	Name            string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	MigrateOnStart  bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:      envStr("APP_ENV", "development"),
		Port:     envStr("PORT", envStr("APP_PORT", "8080")),
		LogLevel: envStr("LOG_LEVEL", "info"),
		DB: DBConfig{
			User:            envStr("DB_USER", ""),
			Pass:            envStr("DB_PASS", ""),
			Host:            envStr("DB_HOST", ""),
			Port:            envStr("DB_PORT", "3306"),
			Name:            envStr("DB_NAME", ""),
			MaxOpen:         envInt("DB_MAX_OPEN", 25),
			MaxIdle:         envInt("DB_MAX_IDLE", 25),
			ConnMaxLifetime: envDur("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			MigrateOnStart:  envBool("MIGRATE_ON_START", true),
		},
		JWTSecret:               envStr("JWT_SECRET", ""),
		AccessTTL:               envDur("ACCESS_TTL", time.Hour),
		RefreshTTL:              envDur("REFRESH_TTL", 7*24*time.Hour),
		BcryptCost:              envInt("BCRYPT_COST", 12),
		TxMaxAttempts:           envInt("TX_MAX_ATTEMPTS", 3),
		RevocationSweepInterval: envDur("REVOCATION_SWEEP_INTERVAL", time.Hour),
		AMQPURL:                 envStr("AMQP_URL", ""),
		BorrowEventsQueue:       envStr("BORROW_EVENTS_QUEUE", "borrow.events"),
		BorrowAuditConsumer:     envBool("BORROW_AUDIT_CONSUMER", false),
		BorrowAuditLogPath:      envStr("BORROW_AUDIT_LOG", "logs/borrow.log"),
		ShutdownGraceTimeout:    envDur("SHUTDOWN_GRACE_TIMEOUT", 10*time.Second),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

func (c *Config) validate() error {
	var missing []string
	for key, v := range map[string]string{
		"DB_USER":    c.DB.User,
		"DB_HOST":    c.DB.Host,
		"DB_NAME":    c.DB.Name,
		"JWT_SECRET": c.JWTSecret,
	} {
		if v == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.TxMaxAttempts < 1 {
		c.TxMaxAttempts = 1
	}
	return nil
}
