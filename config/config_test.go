package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, 72*time.Hour, cfg.JWT.Expiry)
	assert.Equal(t, ScopeOwn, cfg.Issues.MutationScope)
	assert.Equal(t, 5*time.Minute, cfg.Issues.RoleCacheTTL)
	assert.True(t, cfg.Store.MongoTransactions)
	assert.Positive(t, cfg.Issues.DailyLimit)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("ORG_MUTATION_SCOPE", "ANY")
	t.Setenv("MONGODB_TRANSACTIONS", "false")
	t.Setenv("ROLE_CACHE_TTL", "30s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ISSUE_DAILY_LIMIT", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ScopeAny, cfg.Issues.MutationScope)
	assert.False(t, cfg.Store.MongoTransactions)
	assert.Equal(t, 30*time.Second, cfg.Issues.RoleCacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 3, cfg.Issues.DailyLimit)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Store:  StoreConfig{Driver: StoreMemory},
			JWT:    JWTConfig{Secret: "s"},
			Issues: IssueConfig{MutationScope: ScopeOwn},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"memory store", func(*Config) {}, true},
		{"missing secret", func(c *Config) { c.JWT.Secret = "" }, false},
		{"mongo without uri", func(c *Config) { c.Store.Driver = StoreMongo }, false},
		{"postgres with url", func(c *Config) { c.Store.Driver = StorePostgres; c.Store.DatabaseURL = "postgres://x" }, true},
		{"unknown driver", func(c *Config) { c.Store.Driver = "sqlite" }, false},
		{"unknown scope", func(c *Config) { c.Issues.MutationScope = "mine" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
