// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// DatabasePath is the filesystem path of the sqlite database file.
	DatabasePath string
	// DBMaxOpenConnections is the maximum number of open connections. The store
	// is single-writer; more than one writer connection serializes on sqlite locks.
	DBMaxOpenConnections int
	// DBBusyTimeout is how long a statement waits on a locked database.
	DBBusyTimeout time.Duration

	// KeyFilePath is where the master secret for field encryption is persisted.
	// If the file is absent on startup a new secret is generated and written.
	KeyFilePath string

	// BackupDir is the directory where snapshot archives are written.
	BackupDir string

	// LogLevel is the logging level (debug, info, warn, error).
	LogLevel string

	// LockoutMaxAttempts is the number of consecutive failed logins allowed
	// before the login flow terminates.
	LockoutMaxAttempts int
	// FailedLoginWindow is the trailing window inspected by the brute-force
	// detector.
	FailedLoginWindow time.Duration

	// LoginRatePerSec throttles authentication attempts per identity.
	LoginRatePerSec float64
	// LoginRateBurst is the burst size of the login limiter.
	LoginRateBurst int

	// MetricsNamespace is the prefix for application metric names.
	MetricsNamespace string
}

// Load loads configuration from environment variables and an optional .env file.
func Load() *Config {
	loadDotEnv()

	return &Config{
		DatabasePath:         env.GetString("DATABASE_PATH", "data/fleetcore.db"),
		DBMaxOpenConnections: env.GetInt("DB_MAX_OPEN_CONNECTIONS", 1),
		DBBusyTimeout:        env.GetDuration("DB_BUSY_TIMEOUT_MS", 5000, time.Millisecond),

		KeyFilePath: env.GetString("KEY_FILE_PATH", "data/fleetcore.key"),
		BackupDir:   env.GetString("BACKUP_DIR", "backups"),

		LogLevel: env.GetString("LOG_LEVEL", "info"),

		LockoutMaxAttempts: env.GetInt("LOCKOUT_MAX_ATTEMPTS", 3),
		FailedLoginWindow:  env.GetDuration("FAILED_LOGIN_WINDOW_MINUTES", 10, time.Minute),

		LoginRatePerSec: env.GetFloat64("LOGIN_RATE_PER_SEC", 1.0),
		LoginRateBurst:  env.GetInt("LOGIN_RATE_BURST", 5),

		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "fleetcore"),
	}
}

// loadDotEnv searches for a .env file from the current directory up to the
// filesystem root and loads the first one found.
func loadDotEnv() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
}
