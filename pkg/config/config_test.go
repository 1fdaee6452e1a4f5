package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseConfig_Validate(t *testing.T) {
	testCases := []struct {
		name        string
		cfg         DatabaseConfig
		expectError string
	}{
		{
			name: "valid",
			cfg:  DatabaseConfig{URI: "mongodb://localhost:27017", Name: "fleximart", Timeout: time.Second},
		},
		{
			name: "valid srv",
			cfg:  DatabaseConfig{URI: "mongodb+srv://cluster.example.net", Name: "fleximart", Timeout: time.Second},
		},
		{
			name:        "missing uri",
			cfg:         DatabaseConfig{Name: "fleximart", Timeout: time.Second},
			expectError: "database URI is not configured",
		},
		{
			name:        "postgres uri",
			cfg:         DatabaseConfig{URI: "postgres://localhost", Name: "fleximart", Timeout: time.Second},
			expectError: "must start with 'mongodb://'",
		},
		{
			name:        "missing name",
			cfg:         DatabaseConfig{URI: "mongodb://localhost", Timeout: time.Second},
			expectError: "database name is not configured",
		},
		{
			name:        "missing timeout",
			cfg:         DatabaseConfig{URI: "mongodb://localhost", Name: "fleximart"},
			expectError: "invalid database timeout",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "products", tc.cfg.Collection)
		})
	}
}

func TestMaskURI(t *testing.T) {
	assert.Equal(t, "<not configured>", MaskURI(""))
	assert.Equal(t, "mongodb://localhost:27017", MaskURI("mongodb://localhost:27017"))
	assert.Equal(t, "mongodb://****@localhost:27017/fleximart", MaskURI("mongodb://user:p@ss@localhost:27017/fleximart"))
	assert.Equal(t, "****", MaskURI("not a uri"))
}

func TestLogConfig_Validate(t *testing.T) {
	for _, level := range []string{"", "debug", "INFO", "warn", "error"} {
		c := LogConfig{Level: level}
		assert.NoError(t, c.Validate(), level)
	}
	c := LogConfig{Level: "verbose"}
	assert.Error(t, c.Validate())
}

func TestTelemetryConfig_Validate(t *testing.T) {
	disabled := TelemetryConfig{}
	require.NoError(t, disabled.Validate(), "disabled telemetry needs no exporter settings")

	enabled := TelemetryConfig{Enabled: true}
	require.Error(t, enabled.Validate())

	enabled.Traces.OtlpHttp.Endpoint = "otel-collector:4318"
	enabled.Traces.OtlpHttp.Timeout = time.Second
	require.NoError(t, enabled.Validate())

	metrics := TelemetryConfig{Metrics: MetricsConfig{Enabled: true, Path: "metrics"}}
	require.Error(t, metrics.Validate(), "metrics path must be absolute")
	metrics.Metrics.Path = "/metrics"
	require.NoError(t, metrics.Validate())
}

func TestNATSConfig_Validate(t *testing.T) {
	assert.NoError(t, (&NATSConfig{}).Validate(), "disabled config is not checked")
	assert.NoError(t, (&NATSConfig{Enabled: true, Url: "nats://localhost:4222", Timeout: time.Second}).Validate())
	assert.ErrorContains(t, (&NATSConfig{Enabled: true, Timeout: time.Second}).Validate(), "NATS URL is not configured")
	assert.ErrorContains(t, (&NATSConfig{Enabled: true, Url: "nats://localhost:4222"}).Validate(), "timeout")
}
