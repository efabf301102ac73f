package log

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestHelpersCarryRequestFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	app := fiber.New()
	app.Use(requestid.New())
	app.Get("/x", func(c *fiber.Ctx) error {
		Audit(c, "auth.login.success", map[string]any{"email": "a@b.co"})
		Security(c, "auth.login.fail", nil)
		Error(c, "server.error", errors.New("boom"), nil)
		return c.SendStatus(fiber.StatusNoContent)
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/x", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)

	audit := entries[0].ContextMap()
	assert.Equal(t, "auth.login.success", audit["action"])
	assert.Equal(t, "a@b.co", audit["email"])
	assert.Equal(t, "GET", audit["method"])
	assert.Equal(t, "/x", audit["path"])
	assert.Equal(t, true, audit["audit"])
	assert.NotEmpty(t, audit["req_id"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "boom", entries[2].ContextMap()["error"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("chatty", "")
	assert.Error(t, err)

	l, err := New("debug", "")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNilContextIsFine(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	Info(nil, "startup", map[string]any{"port": "8080"})
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "8080", logs.All()[0].ContextMap()["port"])
}
