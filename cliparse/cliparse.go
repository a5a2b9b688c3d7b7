package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
)

type Config struct {
	Port              int
	DatabaseURL       string
	DatabaseType      string
	VoteEncryptionKey string
	TxRetries         int
}

// ParseFlags reads flags, then falls back to the environment (and .env if present)
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	// Existing environment always wins over .env
	_ = godotenv.Load()

	fs := flag.NewFlagSet("secure-poll", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.IntVar(&cfg.TxRetries, "tx-retries", 0, "Attempts for a transaction that hits a serialization conflict")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.VoteEncryptionKey, "vote-key", "", "Vote encryption key (prefer env)")

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
			cfg.Port = 3318 // default
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
			cfg.DatabaseType = DatabaseSQLite
		}
	}
	if cfg.DatabaseType != DatabaseSQLite && cfg.DatabaseType != DatabasePostgres {
		return Config{}, errors.New("database type must be sqlite or postgres")
	}

	if cfg.TxRetries == 0 {
		if s := os.Getenv("TX_RETRIES"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				return Config{}, errors.New("invalid TX_RETRIES env variable")
			}
			cfg.TxRetries = n
		} else {
			cfg.TxRetries = 3
		}
	}
	if cfg.TxRetries < 1 {
		return Config{}, errors.New("tx-retries must be at least 1")
	}

	// Secret - MUST be provided. Tokens issued under one key do not verify under another.
	if cfg.VoteEncryptionKey == "" {
		cfg.VoteEncryptionKey = os.Getenv("VOTE_ENCRYPTION_KEY")
	}
	if cfg.VoteEncryptionKey == "" {
		return Config{}, errors.New("VOTE_ENCRYPTION_KEY required")
	}

	return cfg, nil
}
