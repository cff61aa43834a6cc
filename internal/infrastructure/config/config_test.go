package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"REPLICATOR_APP_NAME",
	"REPLICATOR_APP_ENV",
	"REPLICATOR_LOG_LEVEL",
	"REPLICATOR_REPLICATION_TRIGGER_FORM_TYPE",
	"REPLICATOR_REPLICATION_SOURCE_KIND",
	"REPLICATOR_REPLICATION_DERIVED_KIND",
	"REPLICATOR_REPLICATION_SOURCE_LABEL",
	"REPLICATOR_SERVICE_LAYER_TIMEOUT",
	"REPLICATOR_SERVICE_LAYER_INSECURE_SKIP_VERIFY",
	"REPLICATOR_DATABASE_MAX_OPEN_CONNS",
	"REPLICATOR_DATABASE_MAX_IDLE_CONNS",
	"REPLICATOR_DATABASE_AUTO_MIGRATE",
	"REPLICATOR_HTTP_PORT",
	"REPLICATOR_HTTP_AUTH_SECRET",
	"REPLICATOR_HTTP_RATE_LIMIT_ENABLED",
	"REPLICATOR_HTTP_RATE_LIMIT_REQUESTS",
	"REPLICATOR_TELEMETRY_SAMPLING_RATIO",
	"REPLICATOR_TELEMETRY_DB_LOG_FULL_SQL",
}

// isolateEnv clears every key the tests touch and restores the originals afterwards
func isolateEnv(t *testing.T) {
	t.Helper()
	original := make(map[string]string, len(envKeys))
	for _, k := range envKeys {
		original[k] = os.Getenv(k)
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for k, v := range original {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		isolateEnv(t)

		cfg, err := LoadFile("")
		require.NoError(t, err)

		assert.Equal(t, "replicator", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "139", cfg.Replication.TriggerFormType)
		assert.Equal(t, "17", cfg.Replication.SourceKind)
		assert.Equal(t, "15", cfg.Replication.DerivedKind)
		assert.Equal(t, "Sales Orders", cfg.Replication.SourceLabel)
		assert.Equal(t, "Delivery Note", cfg.Replication.DerivedLabel)
		assert.Equal(t, 30*time.Second, cfg.ServiceLayer.Timeout)
		assert.Equal(t, uint(3), cfg.ServiceLayer.LoginAttempts)
		assert.Equal(t, 10, cfg.Database.MaxOpenConns)
		assert.True(t, cfg.Database.AutoMigrate)
		assert.Equal(t, "8080", cfg.HTTP.Port)
		assert.Empty(t, cfg.HTTP.CORSAllowOrigins)
		assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
		assert.Equal(t, "replicator", cfg.Telemetry.ServiceName)
		assert.False(t, cfg.IsProduction())
	})

	t.Run("loads values from environment variables with REPLICATOR prefix", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("REPLICATOR_APP_NAME", "b1-addon")
		os.Setenv("REPLICATOR_LOG_LEVEL", "debug")
		os.Setenv("REPLICATOR_REPLICATION_TRIGGER_FORM_TYPE", "149")
		os.Setenv("REPLICATOR_REPLICATION_SOURCE_KIND", "23")
		os.Setenv("REPLICATOR_REPLICATION_DERIVED_KIND", "17")
		os.Setenv("REPLICATOR_REPLICATION_SOURCE_LABEL", "Sales Quotations")
		os.Setenv("REPLICATOR_SERVICE_LAYER_TIMEOUT", "5s")
		os.Setenv("REPLICATOR_DATABASE_AUTO_MIGRATE", "false")
		os.Setenv("REPLICATOR_HTTP_PORT", "9090")

		cfg, err := LoadFile("")
		require.NoError(t, err)

		assert.Equal(t, "b1-addon", cfg.App.Name)
		assert.Equal(t, "b1-addon", cfg.Telemetry.ServiceName)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, "149", cfg.Replication.TriggerFormType)
		assert.Equal(t, "23", cfg.Replication.SourceKind)
		assert.Equal(t, "17", cfg.Replication.DerivedKind)
		assert.Equal(t, "Sales Quotations", cfg.Replication.SourceLabel)
		assert.Equal(t, 5*time.Second, cfg.ServiceLayer.Timeout)
		assert.False(t, cfg.Database.AutoMigrate)
		assert.Equal(t, "9090", cfg.HTTP.Port)
	})

	t.Run("rejects identical source and derived kinds", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("REPLICATOR_REPLICATION_DERIVED_KIND", "17")

		_, err := LoadFile("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "derived_kind")
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("REPLICATOR_DATABASE_MAX_OPEN_CONNS", "4")
		os.Setenv("REPLICATOR_DATABASE_MAX_IDLE_CONNS", "8")

		_, err := LoadFile("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("validates MaxIdleConns cannot be negative", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("REPLICATOR_DATABASE_MAX_IDLE_CONNS", "-1")

		_, err := LoadFile("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})

	t.Run("validates sampling ratio range", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("REPLICATOR_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := LoadFile("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})

	t.Run("validates rate limit when enabled", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("REPLICATOR_HTTP_RATE_LIMIT_ENABLED", "true")
		os.Setenv("REPLICATOR_HTTP_RATE_LIMIT_REQUESTS", "-3")

		_, err := LoadFile("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate_limit_requests")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	secret := strings.Repeat("s", 32)

	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "auth secret required",
			env:     map[string]string{},
			wantErr: "http.auth_secret is required",
		},
		{
			name:    "auth secret too short",
			env:     map[string]string{"REPLICATOR_HTTP_AUTH_SECRET": "short"},
			wantErr: "at least 32 characters",
		},
		{
			name: "tls verification required",
			env: map[string]string{
				"REPLICATOR_HTTP_AUTH_SECRET":                   secret,
				"REPLICATOR_SERVICE_LAYER_INSECURE_SKIP_VERIFY": "true",
			},
			wantErr: "insecure_skip_verify",
		},
		{
			name: "full sql logging forbidden",
			env: map[string]string{
				"REPLICATOR_HTTP_AUTH_SECRET":          secret,
				"REPLICATOR_TELEMETRY_DB_LOG_FULL_SQL": "true",
			},
			wantErr: "db_log_full_sql",
		},
		{
			name: "valid production config",
			env:  map[string]string{"REPLICATOR_HTTP_AUTH_SECRET": secret},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			os.Setenv("REPLICATOR_APP_ENV", "production")
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			cfg, err := LoadFile("")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, cfg.IsProduction())
		})
	}
}

func TestLoadFile(t *testing.T) {
	isolateEnv(t)

	t.Run("explicit file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "replicator.toml")
		require.NoError(t, os.WriteFile(path, []byte(`
[replication]
trigger_form_type = "140"
derived_label = "Delivery"

[http]
port = "9090"
`), 0o600))

		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "140", cfg.Replication.TriggerFormType)
		assert.Equal(t, "Delivery", cfg.Replication.DerivedLabel)
		assert.Equal(t, "9090", cfg.HTTP.Port)
		assert.Equal(t, "17", cfg.Replication.SourceKind, "unset keys keep their defaults")
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
		assert.Error(t, err)
	})
}
