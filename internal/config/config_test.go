package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/CalebPenning/game-calendar-bot/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, "gamin", cfg.Discord.GameChannel)
	assert.Equal(t, common.DriverSqlite, cfg.Database.Driver)
	assert.Equal(t, 2, cfg.Rotation.ExcludeRecent)
	assert.Equal(t, []string{"1085028125336948898"}, cfg.Rotation.ExcludedUserIDs)
	assert.Equal(t, 7, cfg.Rotation.AutoNominationDaysLeft)
	assert.Equal(t, 60*time.Second, cfg.Selection.Timeout)
	assert.Equal(t, "0 9 1 * *", cfg.Schedule.Monthly)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.ErrorIs(t, cfg.ValidateDiscord(), ErrInvalidConfig)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "gameclub.yaml", `
discord:
  token: from-file
  guildId: "42"
database:
  driver: postgres
  dsn: host=localhost user=gameclub dbname=gameclub
rotation:
  excludeRecent: 3
  excludedUserIds: ["1", "2"]
  timezone: Europe/Madrid
selection:
  timeout: 90s
log:
  level: debug
  pretty: true
`)
	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Discord.Token)
	assert.Equal(t, "42", cfg.Discord.GuildID)
	assert.Equal(t, "gamin", cfg.Discord.GameChannel, "keys missing from the file keep their default")
	assert.Equal(t, common.DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Rotation.ExcludeRecent)
	assert.Equal(t, []string{"1", "2"}, cfg.Rotation.ExcludedUserIDs)
	assert.Equal(t, 90*time.Second, cfg.Selection.Timeout)
	assert.True(t, cfg.Log.Pretty)
	assert.NoError(t, cfg.ValidateDiscord())
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, "gameclub.yaml", "discord:\n  token: from-file\n")
	t.Setenv("DISCORD_TOKEN", "plain")
	t.Setenv("GAMECLUB_DISCORD_TOKEN", "prefixed")
	t.Setenv("GIANT_BOMB_API_KEY", "gb-key")
	t.Setenv("GAMECLUB_EXCLUDED_USER_IDS", "7,8")
	t.Setenv("GAMECLUB_SELECTION_TIMEOUT", "2m")

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.Discord.Token, "the prefixed name wins")
	assert.Equal(t, "gb-key", cfg.GiantBomb.APIKey)
	assert.Equal(t, []string{"7", "8"}, cfg.Rotation.ExcludedUserIDs)
	assert.Equal(t, 2*time.Minute, cfg.Selection.Timeout)
}

func TestLoadEnvFile(t *testing.T) {
	envFile := writeFile(t, ".env", "CLIENT_ID=1234\nGUILD_ID=5678\n")
	t.Cleanup(func() {
		os.Unsetenv("CLIENT_ID")
		os.Unsetenv("GUILD_ID")
	})

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "1234", cfg.Discord.ApplicationID)
	assert.Equal(t, "5678", cfg.Discord.GuildID)

	// A missing env file is fine
	_, err = Load("", filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.ErrorContains(t, err, "error reading config file")

	_, err = Load(writeFile(t, "broken.yaml", "discord: ["), "")
	assert.ErrorContains(t, err, "error parsing config file")

	t.Setenv("GAMECLUB_EXCLUDE_RECENT", "two")
	_, err = Load("", "")
	assert.ErrorContains(t, err, "error processing environment")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Database.Driver = "mysql"
	cfg.Rotation.ExcludeRecent = -1
	cfg.Rotation.Timezone = "Mars/Olympus_Mons"
	cfg.Schedule.Weekly = "every sunday"
	cfg.Selection.Timeout = 0
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrInvalidConfig)
	for _, expected := range []string{"mysql", "excludeRecent", "Mars/Olympus_Mons", "schedule weekly", "selection timeout", "loud"} {
		assert.ErrorContains(t, err, expected)
	}
}

func TestValidateAutoNominationDaysLeft(t *testing.T) {
	for _, daysLeft := range []int{1, 7, 30} {
		cfg := Default()
		cfg.Rotation.AutoNominationDaysLeft = daysLeft
		assert.NoError(t, cfg.Validate(), "%d days left", daysLeft)
	}
	for _, daysLeft := range []int{-1, 0, 31} {
		cfg := Default()
		cfg.Rotation.AutoNominationDaysLeft = daysLeft
		err := cfg.Validate()
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.ErrorContains(t, err, "autoNominationDaysLeft must be between 1 and 30")
	}
}
