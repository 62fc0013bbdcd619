package turborest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ListenPort)
	assert.Equal(t, "localhost:27017", cfg.DBHostPort)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("CONF_LISTEN_PORT", "9090")
	t.Setenv("CONF_DB_SERVERNAME_PORT", "db.internal:27017")
	t.Setenv("CONF_DB_USERNAME", "svc")
	t.Setenv("CONF_DB_USERPASSWORD", "secret")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.ListenPort)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)

	conn := cfg.Connection()
	assert.Equal(t, "db.internal:27017", conn.HostPort)
	assert.Equal(t, "svc", conn.Username)
	assert.Equal(t, "secret", conn.Password)
}

func TestLoadConfig_BadDuration(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LoggerConfig{Component: "test", Level: "debug"})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	_, err = NewLogger(LoggerConfig{Level: "shouting"})
	assert.Error(t, err)
}
