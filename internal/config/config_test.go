package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "life_os.db", cfg.Store.Path)
	assert.Equal(t, "none", cfg.Calendar.Backend)
	assert.Equal(t, 3, cfg.Processor.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Processor.RetryDelay)
	assert.Equal(t, "07:00", cfg.Schedule.MorningBrief)
	assert.True(t, cfg.AI.RepairJSON)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeConfig(t, `
timezone: America/New_York
store:
  backend: sheets
  sheet_id: from-file
  credentials_file: /secrets/sa.json
ai:
  provider: openai
  model: gpt-4o-mini
  timeout: 45s
calendar:
  backend: google
processor:
  retry_delay: 500ms
telegram:
  token: abc
  allowed_chats: [11, 22]
schedule:
  process_interval: 5m
`)
	t.Setenv("LIFEOS_STORE_SHEET_ID", "from-env")
	t.Setenv("LIFEOS_AI_API_KEY", "sk-test")
	t.Setenv("LIFEOS_SERVER_API_KEY", "phone-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Store.SheetID)
	assert.Equal(t, "/secrets/sa.json", cfg.Store.CredentialsFile)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.Equal(t, 45*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "primary", cfg.Calendar.CalendarID)
	assert.Equal(t, 500*time.Millisecond, cfg.Processor.RetryDelay)
	assert.Equal(t, []int64{11, 22}, cfg.Telegram.AllowedChats)
	assert.Equal(t, 5*time.Minute, cfg.Schedule.ProcessInterval)
	assert.Equal(t, "phone-key", cfg.Server.APIKey)
	assert.NoError(t, cfg.RequireAI())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown store":        "store:\n  backend: postgres\n",
		"sheets without id":    "store:\n  backend: sheets\n",
		"bad calendar":         "calendar:\n  backend: outlook\n",
		"local needs sqlite":   "store:\n  backend: sheets\n  sheet_id: x\ncalendar:\n  backend: local\n",
		"telegram needs chats": "telegram:\n  token: abc\n",
		"bad timezone":         "timezone: Mars/Olympus\n",
		"bad log format":       "log:\n  format: xml\n",
		"zero retries":         "processor:\n  max_retries: 0\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestRequireAI(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.RequireAI())
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "ai.api_key", envKey("LIFEOS_AI_API_KEY"))
	assert.Equal(t, "schedule.morning_brief", envKey("LIFEOS_SCHEDULE_MORNING_BRIEF"))
	assert.Equal(t, "timezone", envKey("LIFEOS_TIMEZONE"))
}
