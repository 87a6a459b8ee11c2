package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixora/analytics/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, DataSourceSynthetic, cfg.Dashboard.DataSource)
	assert.Equal(t, domain.DefaultSLATarget, cfg.Dashboard.SLATarget)
	assert.Equal(t, []string{"*"}, cfg.Security.CORSOrigins)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Kafka.Enabled)

	spec, err := cfg.DefaultWindow()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultWindowSpec(), spec)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DASHBOARD_DATA_SOURCE", "Postgres")
	t.Setenv("DASHBOARD_DEFAULT_RANGE", "3m")
	t.Setenv("DASHBOARD_SLA_TARGET", "90")
	t.Setenv("DASHBOARD_SEED", "42")
	t.Setenv("CORS_ORIGINS", "https://ops.example.com, https://noc.example.com,")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, DataSourcePostgres, cfg.Dashboard.DataSource)
	assert.Equal(t, 90.0, cfg.Dashboard.SLATarget)
	assert.Equal(t, int64(42), cfg.Dashboard.Seed)
	assert.Equal(t, []string{"https://ops.example.com", "https://noc.example.com"}, cfg.Security.CORSOrigins)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Second, cfg.Security.RateLimitWindow)

	spec, err := cfg.DefaultWindow()
	require.NoError(t, err)
	assert.Equal(t, domain.Range3M, spec.Range)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown data source", map[string]string{"DASHBOARD_DATA_SOURCE": "mongo"}},
		{"unknown default range", map[string]string{"DASHBOARD_DEFAULT_RANGE": "2y"}},
		{"sla target above 100", map[string]string{"DASHBOARD_SLA_TARGET": "120"}},
		{"production auth without secret", map[string]string{"ENVIRONMENT": "production", "AUTH_ENABLED": "true"}},
		{"postgres without database name", map[string]string{"DASHBOARD_DATA_SOURCE": "postgres", "DB_NAME": " "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestGetDatabaseURL(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host: "db", Port: 5432, User: "analytics", Password: "secret",
		DBName: "metrics", SSLMode: "disable", ConnectTimeout: 10 * time.Second,
	}}

	assert.Equal(t,
		"host=db port=5432 user=analytics password=secret dbname=metrics sslmode=disable connect_timeout=10",
		cfg.GetDatabaseURL())
}
