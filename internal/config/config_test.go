package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DISCORD_GUILD_ID", "123")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Staff", cfg.Tickets.StaffRoleName)
	assert.Equal(t, "Admin", cfg.Tickets.AdminRoleName)
	assert.Equal(t, "priority", cfg.Tickets.PriorityChannelName)
	assert.Equal(t, "ticket-logs", cfg.Tickets.LogsChannelName)
	assert.Equal(t, "feedback", cfg.Tickets.FeedbackChannelName)
	assert.Equal(t, 15*time.Second, cfg.Tickets.CloseDelay())
	assert.Equal(t, 5*time.Minute, cfg.Tickets.ConfirmTTL())
	assert.Equal(t, "ticketbot", cfg.Redis.KeyPrefix)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DISCORD_GUILD_ID", "123")
	t.Setenv("TICKET_CLOSE_DELAY_SECONDS", "3")
	t.Setenv("TICKET_STAFF_ROLE", "Helpers")
	t.Setenv("REDIS_DB", "4")
	t.Setenv("REDIS_KEY_PREFIX", "shop-eu")
	t.Setenv("REDIS_PING_TIMEOUT_MS", "250")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "15")
	t.Setenv("POSTGRES_MAX_CONNS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Tickets.CloseDelay())
	assert.Equal(t, "Helpers", cfg.Tickets.StaffRoleName)
	assert.Equal(t, 4, cfg.Redis.DB)
	assert.Equal(t, "shop-eu", cfg.Redis.KeyPrefix)
	assert.Equal(t, 250*time.Millisecond, cfg.Redis.PingTimeout())
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL())
	assert.Equal(t, int32(10), cfg.Postgres.MaxConns)
}

func TestLoadRejectsInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "primary")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRequiresDiscordIdentity(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("DISCORD_GUILD_ID", "")

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISCORD_TOKEN")
	assert.Contains(t, err.Error(), "DISCORD_GUILD_ID")
}
