// internal/infrastructure/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"flight-aggregator-service/internal/domain/entity"

	"github.com/joho/godotenv"
)

// FlightDateLayout is the format of the flight_date query parameter
const FlightDateLayout = "2006-01-02"

// Catalog sources
const (
	CatalogSourceStatic   = "static"
	CatalogSourcePostgres = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion string
	LogLevel   string

	// Server
	Port               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	CORSAllowedOrigins []string

	// Flight source
	SourceBaseURL   string
	SourceAccessKey string
	FlightDate      string
	ResultLimit     int
	SourceTimeout   time.Duration

	// Aggregation
	RunTimeout    time.Duration
	FailurePolicy entity.FailurePolicy
	CatalogSource string

	// Remote flight store
	PersistEndpoint string
	PersistTimeout  time.Duration

	// PostgreSQL (catalog)
	PostgresURI string

	// MongoDB (run history)
	MongoURI      string
	MongoDB       string
	MongoUser     string
	MongoPassword string

	// Redis (run lock)
	RedisAddr     string
	RedisPassword string
	RunLockTTL    time.Duration

	// S3 archive
	AWSRegion     string
	ArchiveBucket string
	ArchivePrefix string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		AppVersion: getEnv("APP_VERSION", "1.0.0"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		Port:               getEnv("PORT", "8080"),
		ReadTimeout:        time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout:       time.Duration(getEnvAsInt("WRITE_TIMEOUT", 60)) * time.Second,
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		SourceBaseURL:   getEnv("AVIATIONSTACK_BASE_URL", "https://api.aviationstack.com/v1"),
		SourceAccessKey: getEnv("AVIATIONSTACK_ACCESS_KEY", ""),
		FlightDate:      getEnv("FLIGHT_DATE", "2023-12-29"),
		ResultLimit:     getEnvAsInt("RESULT_LIMIT", 10000),
		SourceTimeout:   getEnvAsDuration("SOURCE_TIMEOUT", 30*time.Second),

		RunTimeout:    getEnvAsDuration("RUN_TIMEOUT", 30*time.Minute),
		// partial keeps the flights of targets that succeeded. Set abort to end the
		// run at the first failed target and leave the collection empty.
		FailurePolicy: entity.FailurePolicy(getEnv("FAILURE_POLICY", string(entity.FailurePolicyPartial))),
		CatalogSource: getEnv("CATALOG_SOURCE", CatalogSourceStatic),

		PersistEndpoint: getEnv("PERSIST_ENDPOINT", "http://localhost:5000/saveFlights"),
		PersistTimeout:  getEnvAsDuration("PERSIST_TIMEOUT", 30*time.Second),

		PostgresURI: getEnv("POSTGRES_DSN", ""),

		MongoURI:      getEnv("MONGODB_DSN", ""),
		MongoDB:       getEnv("MONGO_DB", "flights"),
		MongoUser:     getEnv("MONGO_USER", ""),
		MongoPassword: getEnv("MONGO_PASSWORD", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RunLockTTL:    getEnvAsDuration("RUN_LOCK_TTL", 35*time.Minute),

		AWSRegion:     getEnv("AWS_REGION", "eu-west-1"),
		ArchiveBucket: getEnv("ARCHIVE_BUCKET", ""),
		ArchivePrefix: getEnv("ARCHIVE_PREFIX", "flights/"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects values the service cannot run with
func (c *Config) Validate() error {
	switch c.FailurePolicy {
	case entity.FailurePolicyAbort, entity.FailurePolicyPartial:
	default:
		return fmt.Errorf("invalid FAILURE_POLICY %q: want %q or %q", c.FailurePolicy, entity.FailurePolicyAbort, entity.FailurePolicyPartial)
	}

	if _, err := time.Parse(FlightDateLayout, c.FlightDate); err != nil {
		return fmt.Errorf("invalid FLIGHT_DATE %q: %w", c.FlightDate, err)
	}

	if c.ResultLimit <= 0 {
		return fmt.Errorf("invalid RESULT_LIMIT %d: must be positive", c.ResultLimit)
	}

	switch c.CatalogSource {
	case CatalogSourceStatic:
	case CatalogSourcePostgres:
		if c.PostgresURI == "" {
			return fmt.Errorf("CATALOG_SOURCE=postgres requires POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("invalid CATALOG_SOURCE %q", c.CatalogSource)
	}

	return nil
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("45s", "2m")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
