package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	AppMode  string
	Port     string
	Timezone string
	Database DatabaseConfig
	JWT      JWTConfig
	Admin    AdminConfig
	Password PasswordConfig
	LLM      LLMConfig
	Events   EventsConfig
	Pool     PoolConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string // mysql, postgres or memory
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// JWTConfig holds session token configuration
type JWTConfig struct {
	Secret       string
	Issuer       string
	TokenTTLDays int
}

// AdminConfig holds the shared secret for the provisioning API
type AdminConfig struct {
	APIKey string
}

// PasswordConfig holds bcrypt settings
type PasswordConfig struct {
	BcryptCost int
}

// LLMConfig holds the upstream generator settings
type LLMConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	Timeout   time.Duration
	MaxTokens int
}

// EventsConfig holds the usage-event broker settings (optional)
type EventsConfig struct {
	AMQPURL string
	Queue   string
}

// PoolConfig holds the pool watcher settings
type PoolConfig struct {
	CheckSpec  string
	MinUnused  int
	RefillUses int
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	config := &Config{
		AppMode:  appMode,
		Port:     getEnv("PORT", "3001"),
		Timezone: getEnv("APP_TIMEZONE", "Asia/Shanghai"),
		Database: loadDatabaseConfig(appMode),
		JWT:      loadJWTConfig(appMode),
		Admin:    AdminConfig{APIKey: getEnv("ADMIN_API_KEY", "")},
		Password: PasswordConfig{BcryptCost: getEnvInt("BCRYPT_COST", 10)},
		LLM:      loadLLMConfig(),
		Events: EventsConfig{
			AMQPURL: getEnv("AMQP_URL", ""),
			Queue:   getEnv("USAGE_EVENTS_QUEUE", "usage_events"),
		},
		Pool: PoolConfig{
			CheckSpec:  getEnv("POOL_CHECK_SPEC", "@every 10m"),
			MinUnused:  getEnvInt("POOL_MIN_UNUSED", 0),
			RefillUses: getEnvInt("POOL_REFILL_USES", 3),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Set global config
	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s, DB: %s]", appMode, config.Database.Driver)
	return config, nil
}

// Validate checks settings that cannot fall back to a default
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "memory":
	default:
		return fmt.Errorf("invalid DB_DRIVER: '%s' (must be 'mysql', 'postgres' or 'memory')", c.Database.Driver)
	}
	if c.Database.Driver == "memory" && c.IsProd() {
		return fmt.Errorf("DB_DRIVER=memory is not allowed in prod mode")
	}
	if c.IsProd() && (c.JWT.Secret == "" || c.JWT.Secret == defaultJWTSecret) {
		return fmt.Errorf("PROD_JWT_SECRET must be set in prod mode")
	}
	if c.JWT.TokenTTLDays < 1 {
		return fmt.Errorf("invalid TOKEN_TTL_DAYS: %d", c.JWT.TokenTTLDays)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	return nil
}

const defaultJWTSecret = "default_secret"

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := modePrefix(mode)

	driver := strings.ToLower(getEnv("DB_DRIVER", "mysql"))
	defaultPort := "3306"
	if driver == "postgres" {
		defaultPort = "5432"
	}

	return DatabaseConfig{
		Driver:   driver,
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", defaultPort),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "lifekline"),
		SSLMode:  getEnv(prefix+"DB_SSLMODE", "disable"),
	}
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	prefix := modePrefix(mode)

	return JWTConfig{
		Secret:       getEnv(prefix+"JWT_SECRET", defaultJWTSecret),
		Issuer:       getEnv("JWT_ISSUER", "lifekline-api"),
		TokenTTLDays: getEnvInt("TOKEN_TTL_DAYS", 7),
	}
}

// loadLLMConfig loads the upstream generator config
func loadLLMConfig() LLMConfig {
	return LLMConfig{
		APIKey:    getEnv("LLM_API_KEY", ""),
		Model:     getEnv("LLM_MODEL", "qwen-plus"),
		BaseURL:   strings.TrimRight(getEnv("LLM_BASE_URL", "https://dashscope.aliyuncs.com/compatible-mode/v1"), "/"),
		Timeout:   time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 180)) * time.Second,
		MaxTokens: getEnvInt("LLM_MAX_TOKENS", 30000),
	}
}

func modePrefix(mode string) string {
	if mode == "prod" {
		return "PROD_"
	}
	return "DEV_"
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with default value
func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// Location returns the timezone used for daily username sequences
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TokenTTL returns the session token lifetime
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWT.TokenTTLDays) * 24 * time.Hour
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://lifekline.app"
	}
	return origins
}
