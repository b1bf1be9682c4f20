// Package config loads the static process configuration from environment
// variables and, optionally, a watched tuning file for values that may
// change at runtime.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion     string
	DynamoDBTable string
	GSI1IndexName string // primary sort index (title / start date)
	GSI2IndexName string // secondary sort index (created at / title)
	EventBusName  string

	// Lambda configuration
	IsLambda bool

	// WebSocket push configuration
	WebSocketEndpoint string

	// External events feed
	FeedBaseURL string
	FeedAPIKey  string
	FeedTimeout time.Duration

	// Identity provider
	SupabaseURL            string
	SupabaseServiceRoleKey string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Image storage
	StorageDir string

	// Cache tuning defaults; the tuning file may override these at runtime.
	PageCacheTTL    time.Duration
	MergedCacheTTL  time.Duration
	ArchiveCacheTTL time.Duration

	// Runtime tuning file, optional.
	TuningFile string

	// Logging and features
	LogLevel      string
	EnableMetrics bool
	EnableCORS    bool
	CORSOrigins   []string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		AWSRegion:     getEnv("AWS_REGION", "eu-central-1"),
		DynamoDBTable: getEnv("TABLE_NAME", "songarchive"),
		GSI1IndexName: getEnv("GSI1_INDEX_NAME", "SortIndex1"),
		GSI2IndexName: getEnv("GSI2_INDEX_NAME", "SortIndex2"),
		EventBusName:  getEnv("EVENT_BUS_NAME", "songarchive-events"),

		IsLambda: getEnvBool("IS_LAMBDA", os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""),

		WebSocketEndpoint: getEnv("WEBSOCKET_ENDPOINT", ""),

		FeedBaseURL: getEnv("FEED_BASE_URL", ""),
		FeedAPIKey:  getEnv("FEED_API_KEY", ""),
		FeedTimeout: getEnvDuration("FEED_TIMEOUT", 10*time.Second),

		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabaseServiceRoleKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "songarchive-backend"),

		StorageDir: getEnv("STORAGE_DIR", "./data/images"),

		PageCacheTTL:    getEnvDuration("PAGE_CACHE_TTL", 5*time.Minute),
		MergedCacheTTL:  getEnvDuration("MERGED_CACHE_TTL", 10*time.Minute),
		ArchiveCacheTTL: getEnvDuration("ARCHIVE_CACHE_TTL", 45*time.Minute),

		TuningFile: getEnv("TUNING_FILE", ""),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
		CORSOrigins:   getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is an alias for LoadConfig.
func Load() (*Config, error) {
	return LoadConfig()
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.DynamoDBTable == "" {
			return fmt.Errorf("TABLE_NAME is required")
		}
		if c.SupabaseURL == "" || c.SupabaseServiceRoleKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required in production")
		}
	}
	if c.PageCacheTTL <= 0 || c.MergedCacheTTL <= 0 || c.ArchiveCacheTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	return nil
}

// IsDevelopment checks if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
