package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	Port           string
	IsProduction   bool
	EnableDBCheck  bool
	JWTSecret      string
	MigrationsPath string
	AllowedOrigins []string
	RateLimit      string // ulule limiter format, e.g. "100-M"

	// Idempotency cache; an empty RedisAddr disables it.
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	IdempotencyTTL time.Duration

	// Ledger policy
	AllowOverdraft bool
	TxMaxRetries   int
}

// SyncConfig holds the client-side settings of the offline queue.
type SyncConfig struct {
	DBPath      string
	ServerURL   string
	Token       string
	OwnerID     string
	MaxAttempts int
	PassTimeout time.Duration
}

func setDefaults() {
	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("MIGRATIONS_PATH", "file://migrations")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("RATE_LIMIT", "300-M")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("IDEMPOTENCY_TTL", "24h")
	viper.SetDefault("ALLOW_OVERDRAFT", false)
	viper.SetDefault("TX_MAX_RETRIES", 3)

	viper.SetDefault("SYNC_DB_PATH", "ledger_sync.db")
	viper.SetDefault("SYNC_SERVER_URL", "http://localhost:8080")
	viper.SetDefault("SYNC_TOKEN", "")
	viper.SetDefault("SYNC_OWNER_ID", "")
	viper.SetDefault("SYNC_MAX_ATTEMPTS", 5)
	viper.SetDefault("SYNC_PASS_TIMEOUT", "30s")
}

func load() {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()
	setDefaults()
	viper.AutomaticEnv()
}

func durationOr(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback)
		return fallback
	}
	return d
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	load()

	cfg := &Config{
		DatabaseURL:    viper.GetString("PGSQL_URL"),
		Port:           viper.GetString("PORT"),
		IsProduction:   viper.GetBool("IS_PRODUCTION"),
		EnableDBCheck:  viper.GetBool("ENABLE_DB_CHECK"),
		JWTSecret:      viper.GetString("JWT_SECRET"),
		MigrationsPath: viper.GetString("MIGRATIONS_PATH"),
		RateLimit:      viper.GetString("RATE_LIMIT"),
		RedisAddr:      viper.GetString("REDIS_ADDR"),
		RedisPassword:  viper.GetString("REDIS_PASSWORD"),
		RedisDB:        viper.GetInt("REDIS_DB"),
		IdempotencyTTL: durationOr("IDEMPOTENCY_TTL", 24*time.Hour),
		AllowOverdraft: viper.GetBool("ALLOW_OVERDRAFT"),
		TxMaxRetries:   viper.GetInt("TX_MAX_RETRIES"),
	}

	for _, origin := range strings.Split(viper.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set. Using the in-memory ledger store.")
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	if cfg.TxMaxRetries < 0 {
		log.Printf("Warning: TX_MAX_RETRIES must not be negative (%d). Defaulting to 3.\n", cfg.TxMaxRetries)
		cfg.TxMaxRetries = 3
	}

	return cfg, nil
}

// LoadSyncConfig loads the offline queue settings.
func LoadSyncConfig() (*SyncConfig, error) {
	load()

	cfg := &SyncConfig{
		DBPath:      viper.GetString("SYNC_DB_PATH"),
		ServerURL:   strings.TrimRight(viper.GetString("SYNC_SERVER_URL"), "/"),
		Token:       viper.GetString("SYNC_TOKEN"),
		OwnerID:     viper.GetString("SYNC_OWNER_ID"),
		MaxAttempts: viper.GetInt("SYNC_MAX_ATTEMPTS"),
		PassTimeout: durationOr("SYNC_PASS_TIMEOUT", 30*time.Second),
	}
	if cfg.MaxAttempts <= 0 {
		log.Printf("Warning: SYNC_MAX_ATTEMPTS must be positive (%d). Defaulting to 5.\n", cfg.MaxAttempts)
		cfg.MaxAttempts = 5
	}
	if cfg.Token == "" {
		log.Println("Warning: SYNC_TOKEN not set. Requests to the server will be rejected.")
	}
	return cfg, nil
}
