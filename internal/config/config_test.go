package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"roomly/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
app:
  name: roomly
  environment: test
database:
  path: /tmp/roomly-test.db
rooms:
  - id: 1
    name: Aurora
    capacity: 8
    is_active: true
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, models.DefaultMaxBookingDays, cfg.Booking.MaxBookingDays)
	assert.Equal(t, "log", cfg.Notifications.Mode)
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.Tick())
	assert.Equal(t, 7*24*time.Hour, cfg.Scheduler.Lookahead())
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "/tmp/expanded.db")
	cfg, err := Load(writeConfig(t, `
database:
  path: ${TEST_DB_PATH}
`))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/expanded.db", cfg.Database.Path)
}

func TestLoadRequiresDatabasePath(t *testing.T) {
	_, err := Load(writeConfig(t, `
app:
  name: roomly
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database path")
}

func TestLoadRejectsAuthWithoutKeys(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
api:
  auth:
    enabled: true
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no api keys")
}

func TestLoadRejectsSMTPWithoutHost(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
notifications:
  mode: smtp
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp")
}

func TestValidateRooms(t *testing.T) {
	assert.NoError(t, ValidateRooms([]models.Room{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}))

	err := ValidateRooms([]models.Room{{ID: 0, Name: "A"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ID 0")

	err = ValidateRooms([]models.Room{{ID: 1, Name: "A"}, {ID: 1, Name: "B"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestSchedulerTickParsing(t *testing.T) {
	assert.Equal(t, 30*time.Second, SchedulerConfig{TickInterval: "30s"}.Tick())
	assert.Equal(t, 2*time.Minute, SchedulerConfig{TickInterval: "bogus"}.Tick())
}

func TestSchedulerDisplayLocation(t *testing.T) {
	assert.Equal(t, time.UTC, SchedulerConfig{}.DisplayLocation())
	assert.Equal(t, time.UTC, SchedulerConfig{DisplayTimezone: "Nowhere/Nope"}.DisplayLocation())

	loc := SchedulerConfig{DisplayTimezone: "Europe/Berlin"}.DisplayLocation()
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestRetryConfigDurations(t *testing.T) {
	cfg := RetryConfig{InitialDelay: "500ms", MaxDelay: "5s"}
	assert.Equal(t, 500*time.Millisecond, cfg.InitialDelayDuration())
	assert.Equal(t, 5*time.Second, cfg.MaxDelayDuration())

	var empty RetryConfig
	assert.Equal(t, 2*time.Second, empty.InitialDelayDuration())
	assert.Equal(t, time.Minute, empty.MaxDelayDuration())
}
