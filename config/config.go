package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	ScopeOwn = "own"
	ScopeAny = "any"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Issues   IssueConfig
	LogLevel string
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Env         string
	Domain      string
	CORSOrigins []string
	// RateLimitIP is a ulule limiter rate such as "100-M". Empty disables it.
	RateLimitIP string
}

type StoreConfig struct {
	Driver            string
	MongoURI          string
	MongoDatabase     string
	MongoTransactions bool
	DatabaseURL       string
}

type RedisConfig struct {
	Address  string
	Password string
	// IssueLimitQueue prefixes the per-user daily issue counters.
	IssueLimitQueue string
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

type IssueConfig struct {
	DailyLimit int
	// MutationScope decides which issues an organization may mutate: "own"
	// (assigned to it or unassigned) or "any".
	MutationScope string
	RoleCacheTTL  time.Duration
}

// Production reports whether cookies should be marked secure.
func (c *Config) Production() bool {
	return c.Server.Env == "production"
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	viper.AutomaticEnv()
	if p := os.Getenv("CONFIG_FILE"); p != "" {
		viper.SetConfigFile(p)
		_ = viper.ReadInConfig()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnvOrDefault("PORT", "8080"),
			GinMode:     getEnvOrDefault("GIN_MODE", "debug"),
			Env:         getEnvOrDefault("GO_ENV", "development"),
			Domain:      viper.GetString("DOMAIN"),
			CORSOrigins: splitList(getEnvOrDefault("CORS_ORIGINS", "http://localhost:5173")),
			RateLimitIP: getEnvOrDefault("RATE_LIMIT_IP", "300-M"),
		},
		Store: StoreConfig{
			Driver:            strings.ToLower(getEnvOrDefault("STORE_DRIVER", StoreMongo)),
			MongoURI:          viper.GetString("MONGODB_URI"),
			MongoDatabase:     getEnvOrDefault("MONGODB_DATABASE", "civicconnect"),
			MongoTransactions: getBoolOrDefault("MONGODB_TRANSACTIONS", true),
			DatabaseURL:       viper.GetString("DATABASE_URL"),
		},
		Redis: RedisConfig{
			Address:         viper.GetString("REDIS_ADDRESS"),
			Password:        viper.GetString("REDIS_PASSWORD"),
			IssueLimitQueue: getEnvOrDefault("REDIS_QUEUE_FOR_ISSUE_LIMIT", "issue_limit"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
			Expiry: time.Duration(viper.GetInt64("JWT_EXPIRY_HOURS")) * time.Hour,
		},
		Issues: IssueConfig{
			DailyLimit:    viper.GetInt("ISSUE_DAILY_LIMIT"),
			MutationScope: strings.ToLower(getEnvOrDefault("ORG_MUTATION_SCOPE", ScopeOwn)),
			RoleCacheTTL:  viper.GetDuration("ROLE_CACHE_TTL"),
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}
	if cfg.JWT.Expiry <= 0 {
		cfg.JWT.Expiry = 72 * time.Hour
	}
	if cfg.Issues.DailyLimit <= 0 {
		cfg.Issues.DailyLimit = 10
	}
	if cfg.Issues.RoleCacheTTL <= 0 {
		cfg.Issues.RoleCacheTTL = 5 * time.Minute
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the selected store driver depends on.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.Store.Driver {
	case StoreMongo:
		if c.Store.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required when STORE_DRIVER=%s", StoreMongo)
		}
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", StorePostgres)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	switch c.Issues.MutationScope {
	case ScopeOwn, ScopeAny:
	default:
		return fmt.Errorf("unknown ORG_MUTATION_SCOPE %q", c.Issues.MutationScope)
	}
	return nil
}

func getEnvOrDefault(key, def string) string {
	if v := viper.GetString(key); v != "" {
		return v
	}
	return def
}

func getBoolOrDefault(key string, def bool) bool {
	if !viper.IsSet(key) || viper.GetString(key) == "" {
		return def
	}
	return viper.GetBool(key)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
