package config

import (
	"log"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	Session   SessionConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Database  DatabaseConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
}

// BackendConfig describes the hosted backend (REST, storage and auth).
type BackendConfig struct {
	URL           string
	AnonKey       string
	StorageBucket string
	ImageBaseURL  string
	Timeout       time.Duration // zero means no client timeout
	MaxRPS        int           // zero means unlimited
}

type SessionConfig struct {
	Store      string // memory, redis or badger
	Secret     string
	BadgerPath string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	LoginRequests int
	LoginWindow   time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
	SessionStoreBadger = "badger"
)

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not read .env file: %v", err)
	}

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "")
	viper.SetDefault("SUPABASE_URL", "http://localhost:54321")
	viper.SetDefault("SUPABASE_STORAGE_BUCKET", "images")
	viper.SetDefault("BACKEND_TIMEOUT_SECONDS", 0)
	viper.SetDefault("BACKEND_MAX_RPS", 0)
	viper.SetDefault("SESSION_STORE", SessionStoreMemory)
	viper.SetDefault("SESSION_BADGER_PATH", "./data/sessions")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("LOGIN_RATE_LIMIT", 0)
	viper.SetDefault("LOGIN_RATE_WINDOW_SECONDS", 60)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")

	backendURL := strings.TrimRight(viper.GetString("SUPABASE_URL"), "/")
	bucket := viper.GetString("SUPABASE_STORAGE_BUCKET")

	imageBaseURL := viper.GetString("SUPABASE_IMAGE_URL")
	if imageBaseURL == "" {
		imageBaseURL = backendURL + "/storage/v1/object/public/" + bucket + "/"
	}

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Backend: BackendConfig{
			URL:           backendURL,
			AnonKey:       viper.GetString("SUPABASE_ANON_KEY"),
			StorageBucket: bucket,
			ImageBaseURL:  imageBaseURL,
			Timeout:       time.Duration(viper.GetInt("BACKEND_TIMEOUT_SECONDS")) * time.Second,
			MaxRPS:        viper.GetInt("BACKEND_MAX_RPS"),
		},
		Session: SessionConfig{
			Store:      strings.ToLower(viper.GetString("SESSION_STORE")),
			Secret:     viper.GetString("SESSION_SECRET"),
			BadgerPath: viper.GetString("SESSION_BADGER_PATH"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			LoginRequests: viper.GetInt("LOGIN_RATE_LIMIT"),
			LoginWindow:   time.Duration(viper.GetInt("LOGIN_RATE_WINDOW_SECONDS")) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
	}
}

// IsDevelopment reports whether the server runs outside production.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env != "production"
}

// NeedsRedis reports whether any component is configured to use Redis.
func (c *Config) NeedsRedis() bool {
	return c.Session.Store == SessionStoreRedis || c.RateLimit.LoginRequests > 0
}

// DSN returns the Postgres connection string used by the migrator.
func (d DatabaseConfig) DSN() string {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Database,
		RawQuery: url.Values{"sslmode": {"disable"}, "search_path": {d.Schema}}.Encode(),
	}
	return dsn.String()
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
