package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Storage drivers understood by storage.Open.
const (
	DriverJSON     = "json"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,required"`
	Prefix       string `env:"BOT_PREFIX" envDefault:"."`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"json"`
	StoragePath   string `env:"STORAGE_PATH" envDefault:"datastore.json"`
	DatabaseURL   string `env:"DATABASE_URL"`

	LogChannelID string `env:"LOG_CHANNEL_ID"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty    bool   `env:"LOG_PRETTY" envDefault:"true"`
	InviteEmoji  string `env:"INVITE_EMOJI" envDefault:"📨"`

	SlashGuildID string `env:"SLASH_GUILD_ID"`
	SlashSync    bool   `env:"SLASH_SYNC" envDefault:"true"`

	DisableMessage       bool `env:"DISABLE_MESSAGE"`
	DisableSlash         bool `env:"DISABLE_SLASH"`
	DisableMentionPrefix bool `env:"DISABLE_MENTION_PREFIX"`

	// DefaultGuildPrefix seeds the "prefix" setting of guilds that have none.
	DefaultGuildPrefix string `env:"DEFAULT_GUILD_PREFIX"`

	MessagesFile string   `env:"MESSAGES_FILE"`
	Messages     Messages `env:"-"`
}

// New loads .env if present, then the process environment, then the message
// templates.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, falling back to system environment variables")
	}
	return Parse()
}

// Parse reads the configuration from the current environment only.
func Parse() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	switch cfg.StorageDriver {
	case DriverJSON, DriverSQLite, DriverPostgres, DriverNone:
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
	if cfg.StorageDriver == DriverPostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
	}
	msgs, err := LoadMessages(cfg.MessagesFile)
	if err != nil {
		return nil, err
	}
	cfg.Messages = msgs
	return &cfg, nil
}

// GuildDefaults returns the settings a guild starts with.
func (c *Config) GuildDefaults() map[string]any {
	out := map[string]any{}
	if c.DefaultGuildPrefix != "" {
		out["prefix"] = c.DefaultGuildPrefix
	}
	return out
}

// StoragePathOrDSN returns the location string for the configured driver.
func (c *Config) StoragePathOrDSN() string {
	if c.StorageDriver == DriverPostgres {
		return c.DatabaseURL
	}
	return c.StoragePath
}
