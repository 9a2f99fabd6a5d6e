package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/CalebPenning/game-calendar-bot/internal/common"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "GAMECLUB"

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Discord   DiscordConfig   `yaml:"discord"`
	GiantBomb GiantBombConfig `yaml:"giantBomb"`
	Database  DatabaseConfig  `yaml:"database"`
	Rotation  RotationConfig  `yaml:"rotation"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Selection SelectionConfig `yaml:"selection"`
	Status    StatusConfig    `yaml:"status"`
	Log       LogConfig       `yaml:"log"`
}

type DiscordConfig struct {
	Token         string `yaml:"token"`
	ApplicationID string `yaml:"applicationId"`
	// Commands are registered in this guild only when set
	GuildID     string `yaml:"guildId"`
	GameChannel string `yaml:"gameChannel"`
}

type GiantBombConfig struct {
	APIKey          string `yaml:"apiKey"`
	BaseURL         string `yaml:"baseUrl"`
	SearchLimit     int    `yaml:"searchLimit"`
	RequestsPerHour int    `yaml:"requestsPerHour"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type RotationConfig struct {
	ExcludeRecent          int      `yaml:"excludeRecent"`
	ExcludedUserIDs        []string `yaml:"excludedUserIds"`
	AutoNominationDaysLeft int      `yaml:"autoNominationDaysLeft"`
	Timezone               string   `yaml:"timezone"`
}

type ScheduleConfig struct {
	Monthly        string `yaml:"monthly"`
	Weekly         string `yaml:"weekly"`
	AutoNomination string `yaml:"autoNomination"`
	NextMonth      string `yaml:"nextMonth"`
}

type SelectionConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

type StatusConfig struct {
	// Empty disables the listener
	ListenAddress string `yaml:"listenAddress"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func Default() *Config {
	return &Config{
		Discord: DiscordConfig{
			GameChannel: "gamin",
		},
		GiantBomb: GiantBombConfig{
			BaseURL:         "https://www.giantbomb.com/api",
			SearchLimit:     10,
			RequestsPerHour: 200,
		},
		Database: DatabaseConfig{
			Driver: common.DriverSqlite,
			DSN:    "gameclub.db",
		},
		Rotation: RotationConfig{
			ExcludeRecent:          2,
			ExcludedUserIDs:        []string{"1085028125336948898"},
			AutoNominationDaysLeft: 7,
			Timezone:               "UTC",
		},
		Schedule: ScheduleConfig{
			Monthly:        "0 9 1 * *",
			Weekly:         "0 10 * * 0",
			AutoNomination: "0 12 * * *",
			NextMonth:      "0 10 25 * *",
		},
		Selection: SelectionConfig{
			Timeout: 60 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// environment lists the variables that override the file. Each one is read as
// GAMECLUB_<NAME> first and then as plain <NAME>, so DISCORD_TOKEN keeps working
type environment struct {
	DiscordToken           *string        `envconfig:"DISCORD_TOKEN"`
	ClientID               *string        `envconfig:"CLIENT_ID"`
	GuildID                *string        `envconfig:"GUILD_ID"`
	GameChannel            *string        `envconfig:"GAME_CHANNEL"`
	GiantBombAPIKey        *string        `envconfig:"GIANT_BOMB_API_KEY"`
	GiantBombBaseURL       *string        `envconfig:"GIANT_BOMB_BASE_URL"`
	DatabaseDriver         *string        `envconfig:"DATABASE_DRIVER"`
	DatabaseDSN            *string        `envconfig:"DATABASE_DSN"`
	ExcludeRecent          *int           `envconfig:"EXCLUDE_RECENT"`
	ExcludedUserIDs        *[]string      `envconfig:"EXCLUDED_USER_IDS"`
	AutoNominationDaysLeft *int           `envconfig:"AUTO_NOMINATION_DAYS_LEFT"`
	Timezone               *string        `envconfig:"TIMEZONE"`
	SelectionTimeout       *time.Duration `envconfig:"SELECTION_TIMEOUT"`
	StatusListenAddress    *string        `envconfig:"STATUS_LISTEN_ADDRESS"`
	LogLevel               *string        `envconfig:"LOG_LEVEL"`
	LogPretty              *bool          `envconfig:"LOG_PRETTY"`
}

// Load builds the configuration from the defaults, the optional YAML file, the
// optional env file and finally the process environment, then validates it
func Load(configFile string, envFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	// Variables already set in the environment win over the env file
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading env file: %w", err)
		}
	}

	var env environment
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	cfg.applyEnvironment(env)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) applyEnvironment(env environment) {
	setString(&cfg.Discord.Token, env.DiscordToken)
	setString(&cfg.Discord.ApplicationID, env.ClientID)
	setString(&cfg.Discord.GuildID, env.GuildID)
	setString(&cfg.Discord.GameChannel, env.GameChannel)
	setString(&cfg.GiantBomb.APIKey, env.GiantBombAPIKey)
	setString(&cfg.GiantBomb.BaseURL, env.GiantBombBaseURL)
	setString(&cfg.Database.Driver, env.DatabaseDriver)
	setString(&cfg.Database.DSN, env.DatabaseDSN)
	setString(&cfg.Rotation.Timezone, env.Timezone)
	setString(&cfg.Status.ListenAddress, env.StatusListenAddress)
	setString(&cfg.Log.Level, env.LogLevel)
	if env.ExcludeRecent != nil {
		cfg.Rotation.ExcludeRecent = *env.ExcludeRecent
	}
	if env.ExcludedUserIDs != nil {
		cfg.Rotation.ExcludedUserIDs = *env.ExcludedUserIDs
	}
	if env.AutoNominationDaysLeft != nil {
		cfg.Rotation.AutoNominationDaysLeft = *env.AutoNominationDaysLeft
	}
	if env.SelectionTimeout != nil {
		cfg.Selection.Timeout = *env.SelectionTimeout
	}
	if env.LogPretty != nil {
		cfg.Log.Pretty = *env.LogPretty
	}
}

func setString(target *string, value *string) {
	if value != nil {
		*target = *value
	}
}

// Validate checks everything but the discord credentials, which only some commands need
func (cfg *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	switch cfg.Database.Driver {
	case common.DriverSqlite, common.DriverPostgres:
	default:
		invalid("unknown database driver %q", cfg.Database.Driver)
	}
	if cfg.Database.DSN == "" {
		invalid("database dsn is empty")
	}
	if cfg.Discord.GameChannel == "" {
		invalid("game channel is empty")
	}
	if cfg.Rotation.ExcludeRecent < 0 {
		invalid("excludeRecent must not be negative, got %d", cfg.Rotation.ExcludeRecent)
	}
	if cfg.Rotation.AutoNominationDaysLeft < 1 || cfg.Rotation.AutoNominationDaysLeft > 30 {
		invalid("autoNominationDaysLeft must be between 1 and 30, got %d", cfg.Rotation.AutoNominationDaysLeft)
	}
	if _, err := time.LoadLocation(cfg.Rotation.Timezone); err != nil {
		invalid("unknown timezone %q", cfg.Rotation.Timezone)
	}
	if cfg.GiantBomb.SearchLimit < 1 || cfg.GiantBomb.SearchLimit > 25 {
		invalid("giantBomb.searchLimit must be between 1 and 25, got %d", cfg.GiantBomb.SearchLimit)
	}
	if cfg.GiantBomb.RequestsPerHour < 1 {
		invalid("giantBomb.requestsPerHour must be positive, got %d", cfg.GiantBomb.RequestsPerHour)
	}
	if cfg.Selection.Timeout <= 0 {
		invalid("selection timeout must be positive, got %s", cfg.Selection.Timeout)
	}
	for name, spec := range map[string]string{
		"monthly":        cfg.Schedule.Monthly,
		"weekly":         cfg.Schedule.Weekly,
		"autoNomination": cfg.Schedule.AutoNomination,
		"nextMonth":      cfg.Schedule.NextMonth,
	} {
		if _, err := cron.ParseStandard(spec); err != nil {
			invalid("schedule %s: %v", name, err)
		}
	}
	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		invalid("unknown log level %q", cfg.Log.Level)
	}
	return errors.Join(errs...)
}

// ValidateDiscord checks the credentials needed to talk to discord
func (cfg *Config) ValidateDiscord() error {
	if cfg.Discord.Token == "" {
		return fmt.Errorf("%w: discord token is missing (DISCORD_TOKEN)", ErrInvalidConfig)
	}
	return nil
}

func (cfg *Config) Location() *time.Location {
	location, err := time.LoadLocation(cfg.Rotation.Timezone)
	if err != nil {
		return time.UTC
	}
	return location
}
