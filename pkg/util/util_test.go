package util

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCronExpr(t *testing.T) {
	assert.NoError(t, ValidateCronExpr("0 * * * *"))
	assert.NoError(t, ValidateCronExpr("*/15 2 * * 1-5"))
	assert.Error(t, ValidateCronExpr("every hour"))
	assert.Error(t, ValidateCronExpr("0 * * * * *"))
}

func TestNextCronTime(t *testing.T) {
	from := time.Date(2024, 3, 10, 10, 20, 0, 0, time.UTC)

	next, err := NextCronTime("0 * * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 10, 11, 0, 0, 0, time.UTC), next)

	_, err = NextCronTime("bogus", from)
	assert.Error(t, err)
}

func TestNewLogger_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("production", &buf)

	logger.Debug("hidden")
	logger.Info("visible", "key", "value")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "go-contacts", entry["service"])
}

func TestNewLogger_DevelopmentIncludesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("development", &buf)

	logger.Debug("debug line")
	assert.Contains(t, buf.String(), "debug line")
}
