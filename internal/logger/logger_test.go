package logger_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/estate-sales-api/internal/auth"
	"github.com/straye-as/estate-sales-api/internal/config"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/straye-as/estate-sales-api/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	t.Run("falls back to info on unknown level", func(t *testing.T) {
		log, err := logger.NewLogger(
			&config.LoggingConfig{Level: "chatty", Format: "json"},
			&config.AppConfig{Name: "estate-sales-api", Environment: "development"},
		)
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("honours debug level", func(t *testing.T) {
		log, err := logger.NewLogger(
			&config.LoggingConfig{Level: "debug", Format: "console"},
			&config.AppConfig{Name: "estate-sales-api", Environment: "development"},
		)
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
	})
}

func TestWithActor(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	actor := &auth.Actor{EmployeeID: uuid.New(), Role: domain.EmployeeRoleSales}
	logger.WithActor(base, actor).Info("reserved")
	logger.WithActor(base, nil).Info("anonymous")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, actor.EmployeeID.String(), entries[0].ContextMap()["employee_id"])
	assert.Equal(t, "sales", entries[0].ContextMap()["employee_role"])
	assert.NotContains(t, entries[1].ContextMap(), "employee_id")
}
