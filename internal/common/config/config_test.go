package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "g!", cfg.Discord.Prefix)
	assert.Equal(t, ";", cfg.Discord.ArgDelimiter)
	assert.Equal(t, StoreBackendRedis, cfg.Store.Backend)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
	assert.Equal(t, 15*time.Minute, cfg.Giveaway.SweepInterval)
	assert.Equal(t, 10*time.Second, cfg.Giveaway.DedupWindow)
	assert.Equal(t, 7*24*time.Hour, cfg.Giveaway.WinnerReplyTimeout)
	assert.Equal(t, "🎉", cfg.Giveaway.EntryEmoji)
	assert.Equal(t, "📩", cfg.Discord.ModmailEmoji)
	assert.Empty(t, cfg.Discord.ModmailChannelID)
	assert.Equal(t, 5*time.Second, cfg.Disqualify.Interval)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Empty(t, cfg.HTTP.AdminToken)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/g.db")
	t.Setenv("GIVEAWAY_CHANNEL_IDS", "100,200")
	t.Setenv("MOD_ROLE_IDS", "9")
	t.Setenv("GIVEAWAY_SWEEP_INTERVAL", "1m")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("MODMAIL_CHANNEL_ID", "300")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreBackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "/tmp/g.db", cfg.SQLite.Path)
	assert.Equal(t, []string{"100", "200"}, cfg.Discord.GiveawayChannelIDs)
	assert.Equal(t, []string{"9"}, cfg.Discord.ModRoleIDs)
	assert.Equal(t, time.Minute, cfg.Giveaway.SweepInterval)
	assert.Equal(t, "redis:6380", cfg.RedisAddr())
	assert.Equal(t, "300", cfg.Discord.ModmailChannelID)
}

func TestLoad_RequiresToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.Store.Backend = StoreBackendRedis
		c.Giveaway.SweepInterval = time.Minute
		c.Giveaway.EntryEmoji = "🎉"
		c.Discord.ModmailEmoji = "📩"
		c.Disqualify.Interval = time.Second
		return c
	}
	require.NoError(t, valid().Validate())

	c := valid()
	c.Store.Backend = "postgres"
	assert.ErrorContains(t, c.Validate(), "STORE_BACKEND")

	c = valid()
	c.Giveaway.SweepInterval = 0
	assert.ErrorContains(t, c.Validate(), "GIVEAWAY_SWEEP_INTERVAL")

	c = valid()
	c.Disqualify.Interval = -time.Second
	assert.ErrorContains(t, c.Validate(), "DISQUALIFY_INTERVAL")

	c = valid()
	c.Giveaway.EntryEmoji = ""
	assert.ErrorContains(t, c.Validate(), "GIVEAWAY_ENTRY_EMOJI")

	c = valid()
	c.Discord.ModmailEmoji = "🎉"
	assert.ErrorContains(t, c.Validate(), "MODMAIL_EMOJI")
}

func TestIsGiveawayChannel(t *testing.T) {
	c := &Config{}
	c.Discord.GiveawayChannelIDs = []string{"1", "2"}

	assert.True(t, c.IsGiveawayChannel("2"))
	assert.False(t, c.IsGiveawayChannel("3"))
	assert.False(t, (&Config{}).IsGiveawayChannel(""))
}
