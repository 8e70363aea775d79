package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("WORKFLOW_STRICT_STAGE_ORDER", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "robotcare-service", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Empty(t, cfg.Postgres.DSN)
	assert.False(t, cfg.Workflow.StrictStageOrder)
	assert.Equal(t, 3, cfg.Workflow.BusyThreshold)
	assert.Equal(t, "robotcare:notifications", cfg.Notification.Channel)
	assert.Equal(t, 256, cfg.Notification.QueueSize)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, "robotcare", cfg.Auth.JWTIssuer)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("WORKFLOW_STRICT_STAGE_ORDER", "true")
	t.Setenv("WORKFLOW_ENGINEER_BUSY_THRESHOLD", "not-a-number")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.App.Port)
	assert.True(t, cfg.Workflow.StrictStageOrder)
	assert.Equal(t, 3, cfg.Workflow.BusyThreshold)
	assert.Zero(t, cfg.App.RequestTimeout())
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "abc")
	_, err := Load()
	assert.Error(t, err)
}
