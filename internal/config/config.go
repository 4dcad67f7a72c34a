// ABOUTME: Configuration loading and parsing for the raketa bot
// ABOUTME: TOML with ${VAR} expansion, optional .env file, duration parsing and validation

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Defaults applied when a value is left out of the file.
const (
	DefaultDriver      = "sqlite"
	DefaultWorkers     = 8
	DefaultSendTimeout = 15 * time.Second
	DefaultCountryCode = "7"
	DefaultTrunkPrefix = "8"
	DefaultLogLevel    = "info"
)

// Config represents the complete bot configuration
type Config struct {
	Matrix    MatrixConfig    `toml:"matrix"`
	Bot       BotConfig       `toml:"bot"`
	Database  DatabaseConfig  `toml:"database"`
	Broadcast BroadcastConfig `toml:"broadcast"`
	Logging   LoggingConfig   `toml:"logging"`
}

// MatrixConfig holds the homeserver account the bot runs as.
// Either an access token or a username/password pair is required.
type MatrixConfig struct {
	Homeserver  string `toml:"homeserver"`
	UserID      string `toml:"user_id"`
	AccessToken string `toml:"access_token"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	RecoveryKey string `toml:"recovery_key"` // enables E2EE cross-signing
	DataDir     string `toml:"data_dir"`     // crypto database location
}

// BotConfig holds community settings
type BotConfig struct {
	Admins      []string `toml:"admins"` // Matrix user IDs
	TextsPath   string   `toml:"texts_path"`
	CountryCode string   `toml:"country_code"`
	TrunkPrefix string   `toml:"trunk_prefix"`
}

// DatabaseConfig selects the storage backend
type DatabaseConfig struct {
	Driver string `toml:"driver"` // sqlite or postgres
	Path   string `toml:"path"`   // sqlite file
	URL    string `toml:"url"`    // postgres connection string
}

// DSN returns the connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "postgres" {
		return d.URL
	}
	return d.Path
}

// BroadcastConfig holds dispatcher tuning
type BroadcastConfig struct {
	Workers     int           `toml:"workers"`
	SendTimeout time.Duration `toml:"-"`

	// Raw string value for TOML decoding
	SendTimeoutRaw string `toml:"send_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Path returns the config file location.
// Priority: RAKETA_CONFIG > XDG_CONFIG_HOME/raketa/bot.toml > ~/.config/raketa/bot.toml
func Path() string {
	if p := os.Getenv("RAKETA_CONFIG"); p != "" {
		return p
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "bot.toml"
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "raketa", "bot.toml")
}

// DataPath returns the default data directory.
// Priority: XDG_DATA_HOME/raketa > ~/.local/share/raketa
func DataPath() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "raketa")
}

// LoadEnv loads variables from a .env file if it exists. Variables already
// set in the environment win.
func LoadEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(string(data))
}

// Parse decodes configuration text, applies defaults and validates it.
func Parse(data string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(expandEnvVars(data), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

var envVar = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the variable's value, or nothing
// when it is unset.
func expandEnvVars(s string) string {
	return envVar.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVar.FindStringSubmatch(match)[1])
	})
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDriver
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = filepath.Join(DataPath(), "raketa.db")
	}
	if c.Matrix.DataDir == "" {
		c.Matrix.DataDir = DataPath()
	}
	if c.Bot.CountryCode == "" {
		c.Bot.CountryCode = DefaultCountryCode
		if c.Bot.TrunkPrefix == "" {
			c.Bot.TrunkPrefix = DefaultTrunkPrefix
		}
	}
	if c.Broadcast.Workers == 0 {
		c.Broadcast.Workers = DefaultWorkers
	}
	if c.Broadcast.SendTimeout == 0 {
		c.Broadcast.SendTimeout = DefaultSendTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}

var digits = regexp.MustCompile(`^\d+$`)

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Matrix.Homeserver == "" {
		return fmt.Errorf("matrix.homeserver is required")
	}
	u, err := url.Parse(c.Matrix.Homeserver)
	if err != nil {
		return fmt.Errorf("matrix.homeserver is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("matrix.homeserver must use http or https scheme")
	}
	if c.Matrix.AccessToken == "" && (c.Matrix.Username == "" || c.Matrix.Password == "") {
		return fmt.Errorf("matrix.access_token or matrix.username and matrix.password are required")
	}
	if c.Matrix.AccessToken != "" && c.Matrix.UserID == "" {
		return fmt.Errorf("matrix.user_id is required with matrix.access_token")
	}

	for _, admin := range c.Bot.Admins {
		if !strings.HasPrefix(admin, "@") || !strings.Contains(admin, ":") {
			return fmt.Errorf("bot.admins: %q is not a Matrix user ID", admin)
		}
	}
	if !digits.MatchString(c.Bot.CountryCode) {
		return fmt.Errorf("bot.country_code must be digits, got %q", c.Bot.CountryCode)
	}
	if c.Bot.TrunkPrefix != "" && !digits.MatchString(c.Bot.TrunkPrefix) {
		return fmt.Errorf("bot.trunk_prefix must be digits, got %q", c.Bot.TrunkPrefix)
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}

	if c.Broadcast.Workers < 0 {
		return fmt.Errorf("broadcast.workers must not be negative")
	}
	if c.Broadcast.SendTimeout < 0 {
		return fmt.Errorf("broadcast.send_timeout must not be negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Broadcast.SendTimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.Broadcast.SendTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing send_timeout %q: %w", cfg.Broadcast.SendTimeoutRaw, err)
		}
		cfg.Broadcast.SendTimeout = d
	}
	return nil
}
