package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"

	"attendance-tracker-go/models"
	"github.com/joho/godotenv"
)

// Storage backends
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	App      AppConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Tracker  TrackerConfig
}

// AppConfig holds HTTP server settings
type AppConfig struct {
	Port int
	Env  string
}

type StorageConfig struct {
	Backend string
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// TrackerConfig holds attendance store settings
type TrackerConfig struct {
	DefaultGoal    int
	PersistRetries int
	SeedDemo       bool
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
		log.Println("No .env file found, using environment")
	}

	config := &Config{}

	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}
	config.App = AppConfig{
		Port: appPort,
		Env:  getEnv("APP_ENV", "development"),
	}

	backend := strings.ToLower(getEnv("STORAGE_BACKEND", BackendRedis))
	switch backend {
	case BackendRedis, BackendPostgres, BackendMemory:
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND %q", backend)
	}
	config.Storage = StorageConfig{Backend: backend}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	config.Redis = RedisConfig{
		Addr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		Password:  getEnv("REDIS_PASSWORD", ""),
		DB:        redisDB,
		KeyPrefix: getEnv("REDIS_KEY_PREFIX", ""),
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "attendance_tracker"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	goal, err := strconv.Atoi(getEnv("DEFAULT_GOAL", strconv.Itoa(models.DefaultGoal)))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_GOAL: %w", err)
	}
	if err := models.ValidateGoal(goal); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_GOAL: %w", err)
	}
	retries, err := strconv.Atoi(getEnv("PERSIST_RETRIES", "0"))
	if err != nil || retries < 0 {
		return nil, fmt.Errorf("invalid PERSIST_RETRIES %q", os.Getenv("PERSIST_RETRIES"))
	}
	seed, err := strconv.ParseBool(getEnv("SEED_DEMO", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid SEED_DEMO: %w", err)
	}
	config.Tracker = TrackerConfig{
		DefaultGoal:    goal,
		PersistRetries: retries,
		SeedDemo:       seed,
	}

	return config, nil
}

// DatabaseURL builds the postgres DSN
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
