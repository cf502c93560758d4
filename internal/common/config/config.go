package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	StoreBackendRedis  = "redis"
	StoreBackendSQLite = "sqlite"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Discord struct {
		Token        string `env:"DISCORD_TOKEN,required,notEmpty"`
		Prefix       string `env:"COMMAND_PREFIX" envDefault:"g!"`
		ArgDelimiter string `env:"ARG_DELIMITER" envDefault:";"`
		GuildID      string `env:"GUILD_ID"`
		OwnerID      string `env:"OWNER_ID"`

		LogChannelID      string `env:"LOG_CHANNEL_ID"`
		ModLogChannelID   string `env:"MOD_LOG_CHANNEL_ID"`
		OperatorChannelID string `env:"OPERATOR_CHANNEL_ID"`
		// Parent channel for winner follow-up threads.
		TicketChannelID string `env:"TICKET_CHANNEL_ID"`
		// Parent channel for modmail threads; empty disables modmail.
		ModmailChannelID string `env:"MODMAIL_CHANNEL_ID"`
		ModmailEmoji     string `env:"MODMAIL_EMOJI" envDefault:"📩"`

		GiveawayChannelIDs []string `env:"GIVEAWAY_CHANNEL_IDS" envSeparator:","`
		GiveawayRoleIDs    []string `env:"GIVEAWAY_ROLE_IDS" envSeparator:","`
		ModRoleIDs         []string `env:"MOD_ROLE_IDS" envSeparator:","`
		DisqualifiedRoleID string   `env:"DISQUALIFIED_ROLE_ID"`
	}

	Store struct {
		Backend string `env:"STORE_BACKEND" envDefault:"redis"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	SQLite struct {
		Path string `env:"SQLITE_PATH" envDefault:"./data/giveaways.db"`
	}

	Giveaway struct {
		SweepInterval      time.Duration `env:"GIVEAWAY_SWEEP_INTERVAL" envDefault:"15m"`
		DedupWindow        time.Duration `env:"GIVEAWAY_DEDUP_WINDOW" envDefault:"10s"`
		WinnerReplyTimeout time.Duration `env:"GIVEAWAY_WINNER_REPLY_TIMEOUT" envDefault:"168h"`
		EntryEmoji         string        `env:"GIVEAWAY_ENTRY_EMOJI" envDefault:"🎉"`
	}

	Disqualify struct {
		Interval time.Duration `env:"DISQUALIFY_INTERVAL" envDefault:"5s"`
	}

	HTTP struct {
		Addr       string `env:"HTTP_ADDR" envDefault:":8080"`
		AdminToken string `env:"ADMIN_TOKEN"`
		Origin     string `env:"CORS_ORIGIN" envDefault:"http://localhost:3000"`
	}
}

// Load reads .env (if present) and the process environment into a Config.
func Load() (*Config, error) {
	// A missing .env is fine: production sets variables directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreBackendRedis, StoreBackendSQLite:
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q: want %q or %q", c.Store.Backend, StoreBackendRedis, StoreBackendSQLite)
	}
	if c.Giveaway.SweepInterval <= 0 {
		return fmt.Errorf("GIVEAWAY_SWEEP_INTERVAL must be positive")
	}
	if c.Disqualify.Interval <= 0 {
		return fmt.Errorf("DISQUALIFY_INTERVAL must be positive")
	}
	if c.Giveaway.EntryEmoji == "" {
		return fmt.Errorf("GIVEAWAY_ENTRY_EMOJI must not be empty")
	}
	if c.Discord.ModmailEmoji == "" || c.Discord.ModmailEmoji == c.Giveaway.EntryEmoji {
		return fmt.Errorf("MODMAIL_EMOJI must be set and differ from GIVEAWAY_ENTRY_EMOJI")
	}
	return nil
}

// RedisAddr returns host:port for the Redis client.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// IsGiveawayChannel reports whether winner threads are opened for results
// posted in channelID.
func (c *Config) IsGiveawayChannel(channelID string) bool {
	for _, id := range c.Discord.GiveawayChannelIDs {
		if id == channelID {
			return true
		}
	}
	return false
}
