package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "teamskills", cfg.Database.Name)
	assert.False(t, cfg.Database.AutoSchema)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, uint8(4), cfg.Security.Parallelism)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_AUTO_SCHEMA", "true")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("RATELIMIT_REQUESTS_PER_SECOND", "2.5")
	t.Setenv("SERVER_REQUEST_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.Database.AutoSchema)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.Observability.Enabled)
	assert.Equal(t, 2.5, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 3*time.Second, cfg.Server.RequestTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without password", map[string]string{"STORE_DRIVER": "postgres"}},
		{"unknown driver", map[string]string{"STORE_DRIVER": "sqlite"}},
		{"zero burst", map[string]string{"STORE_DRIVER": "memory", "RATELIMIT_BURST": "0"}},
		{"bootstrap without password", map[string]string{"STORE_DRIVER": "memory", "BOOTSTRAP_ADMIN_USERNAME": "root", "BOOTSTRAP_ADMIN_EMAIL": "root@example.com"}},
		{"malformed duration", map[string]string{"STORE_DRIVER": "memory", "SERVER_READ_TIMEOUT": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_PASSWORD", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
