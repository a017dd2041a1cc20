package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port          int
	DatabaseURL   string
	DatabaseType  string
	AdminKeySalt  string
	SessionSlugSalt string
	OracleURL     string
	OracleTimeout time.Duration
}

// ParseFlags validates flags and sets port number
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var oracleTimeoutSec int

	fs := flag.NewFlagSet("cineforum", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminKeySalt, "admin-salt", "", "Admin key salt (prefer env)")
	fs.StringVar(&cfg.SessionSlugSalt, "slug-salt", "", "Session slug salt (prefer env)")

	// External consensus oracle
	fs.StringVar(&cfg.OracleURL, "oracle", "", "Consensus oracle base URL")
	fs.IntVar(&oracleTimeoutSec, "oracle-timeout", 0, "Consensus oracle timeout in seconds")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3419 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, errors.New("DATABASE_TYPE must be sqlite or postgres")
	}

	// Secrets - MUST be provided
	if cfg.AdminKeySalt == "" {
		cfg.AdminKeySalt = os.Getenv("ADMIN_KEY_SALT")
	}
	if cfg.AdminKeySalt == "" {
		return Config{}, errors.New("ADMIN_KEY_SALT required")
	}

	if cfg.SessionSlugSalt == "" {
		cfg.SessionSlugSalt = os.Getenv("SESSION_SLUG_SALT")
	}
	if cfg.SessionSlugSalt == "" {
		return Config{}, errors.New("SESSION_SLUG_SALT required")
	}

	// Oracle is optional: without it, slot resolution and moderator
	// lines are unavailable but everything else works.
	if cfg.OracleURL == "" {
		cfg.OracleURL = os.Getenv("ORACLE_URL")
	}
	if oracleTimeoutSec == 0 {
		if s := os.Getenv("ORACLE_TIMEOUT_SECONDS"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return Config{}, errors.New("invalid ORACLE_TIMEOUT_SECONDS env variable")
			}
			oracleTimeoutSec = n
		} else {
			oracleTimeoutSec = 15
		}
	}
	cfg.OracleTimeout = time.Duration(oracleTimeoutSec) * time.Second

	return cfg, nil
}
