package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsAndEnv(t *testing.T) {
	t.Setenv("GO_DOCFLOW_JWT_SECRET_KEY", "s3cret")
	t.Setenv("GO_DOCFLOW_DATABASE_TYPE", DatabaseMemory)
	t.Setenv("GO_DOCFLOW_SERVER_PORT", "9090")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.JWT.SecretKey)
	assert.Equal(t, DatabaseMemory, cfg.Database.Type)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, StorageMinIO, cfg.Storage.Type)
	assert.Equal(t, "documents", cfg.Storage.PathPrefix)
	assert.Equal(t, 10*time.Minute, cfg.Catalog.CacheTTL)
	assert.Equal(t, 20, cfg.Catalog.PageSize)
	assert.Equal(t, "@every 5m", cfg.Catalog.ResyncSchedule)
	assert.Empty(t, cfg.Elasticsearch.Addresses)
	assert.Same(t, cfg, AppConfig)
}

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("GO_DOCFLOW_JWT_SECRET_KEY", "")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "jwt.secret_key")
}

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Mode: "release"},
		Database: DatabaseConfig{Type: DatabaseMySQL},
		Storage:  StorageConfig{Type: StorageMinIO},
		Auth:     AuthConfig{Provider: AuthJWT},
		JWT:      JWTConfig{SecretKey: "k"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad database", func(c *Config) { c.Database.Type = "postgres" }, "database.type"},
		{"bad storage", func(c *Config) { c.Storage.Type = "s3" }, "storageconfig.type"},
		{"bad provider", func(c *Config) { c.Auth.Provider = "ldap" }, "auth.provider"},
		{"bad mode", func(c *Config) { c.Server.Mode = "prod" }, "server.mode"},
		{"firebase needs no secret", func(c *Config) { c.Auth.Provider = AuthFirebase; c.JWT.SecretKey = "" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateDefaultsPageSize(t *testing.T) {
	c := validConfig()
	require.NoError(t, c.Validate())
	assert.Equal(t, 20, c.Catalog.PageSize)
}

func TestUsesFirebase(t *testing.T) {
	c := validConfig()
	assert.False(t, c.UsesFirebase())

	c.Storage.Type = StorageFirebase
	assert.True(t, c.UsesFirebase())
}
