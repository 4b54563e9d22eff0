package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted in STORE_DRIVER
const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverDynamoDB = "dynamodb"
	DriverMemory   = "memory"
)

// Config holds application configuration
type Config struct {
	Host     string
	Port     string
	LogLevel string

	StoreDriver string
	DBConn      string
	DBMigrate   bool

	DynamoRegion            string
	DynamoEndpoint          string
	DynamoUsersTable        string
	DynamoTransactionsTable string
	DynamoCreateTables      bool

	JWTSecret string
	TokenTTL  time.Duration

	CORSOrigins []string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
}

// NewConfig loads configuration from an optional .env file and environment variables
func NewConfig() (*Config, error) {
	// .env is optional, real environment wins
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		Host:                    getEnv("APP_HOST", "0.0.0.0"),
		Port:                    getEnv("APP_PORT", "8000"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		StoreDriver:             strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),
		DBConn:                  getEnv("DB_CONN", "host=localhost port=5432 user=budget password=budget dbname=budget_app sslmode=disable"),
		DynamoRegion:            getEnv("DYNAMO_REGION", "us-east-1"),
		DynamoEndpoint:          getEnv("DYNAMO_ENDPOINT", ""),
		DynamoUsersTable:        getEnv("DYNAMO_USERS_TABLE", "users"),
		DynamoTransactionsTable: getEnv("DYNAMO_TRANSACTIONS_TABLE", "transactions"),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		SMTPHost:                getEnv("SMTP_HOST", ""),
		SMTPPort:                getEnv("SMTP_PORT", "587"),
		SMTPUsername:            getEnv("SMTP_USERNAME", ""),
		SMTPPassword:            getEnv("SMTP_PASSWORD", ""),
		SenderEmail:             getEnv("SENDER_EMAIL", ""),
	}

	var err error
	if cfg.DBMigrate, err = getBool("DB_MIGRATE", true); err != nil {
		return nil, err
	}
	if cfg.DynamoCreateTables, err = getBool("DYNAMO_CREATE_TABLES", false); err != nil {
		return nil, err
	}

	minutes, err := strconv.Atoi(getEnv("ACCESS_TOKEN_EXPIRE_MINUTES", "30"))
	if err != nil || minutes <= 0 {
		return nil, fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be a positive integer")
	}
	cfg.TokenTTL = time.Duration(minutes) * time.Minute

	for _, origin := range strings.Split(getEnv("CORS_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	switch cfg.StoreDriver {
	case DriverPostgres, DriverPgx:
		if cfg.DBConn == "" {
			return nil, fmt.Errorf("DB_CONN is required for driver %s", cfg.StoreDriver)
		}
	case DriverDynamoDB:
		if cfg.DynamoUsersTable == "" || cfg.DynamoTransactionsTable == "" {
			return nil, fmt.Errorf("DYNAMO_USERS_TABLE and DYNAMO_TRANSACTIONS_TABLE are required")
		}
	case DriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// SMTPEnabled reports whether outgoing mail is configured
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SenderEmail != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) (bool, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return v, nil
}
