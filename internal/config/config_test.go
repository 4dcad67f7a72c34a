// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers TOML loading, env var expansion, .env files, defaults and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalConfig = `
[matrix]
homeserver = "https://matrix.example.org"
user_id = "@raketa:example.org"
access_token = "syt_token"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
[matrix]
homeserver = "https://matrix.example.org"
username = "raketa"
password = "secret"
recovery_key = "EsTc 1234"
data_dir = "/var/lib/raketa"

[bot]
admins = ["@alice:example.org", "@bob:example.org"]
texts_path = "/etc/raketa/texts.yaml"
country_code = "375"
trunk_prefix = "80"

[database]
driver = "postgres"
url = "postgres://raketa@localhost/raketa?sslmode=disable"

[broadcast]
workers = 16
send_timeout = "30s"

[logging]
level = "debug"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Matrix.Username != "raketa" {
		t.Errorf("Matrix.Username = %q, want %q", cfg.Matrix.Username, "raketa")
	}
	if cfg.Matrix.DataDir != "/var/lib/raketa" {
		t.Errorf("Matrix.DataDir = %q, want %q", cfg.Matrix.DataDir, "/var/lib/raketa")
	}
	if len(cfg.Bot.Admins) != 2 {
		t.Errorf("Bot.Admins len = %d, want 2", len(cfg.Bot.Admins))
	}
	if cfg.Bot.CountryCode != "375" || cfg.Bot.TrunkPrefix != "80" {
		t.Errorf("Bot phone rules = %q/%q, want 375/80", cfg.Bot.CountryCode, cfg.Bot.TrunkPrefix)
	}
	if cfg.Database.DSN() != "postgres://raketa@localhost/raketa?sslmode=disable" {
		t.Errorf("Database.DSN() = %q", cfg.Database.DSN())
	}
	if cfg.Broadcast.Workers != 16 {
		t.Errorf("Broadcast.Workers = %d, want 16", cfg.Broadcast.Workers)
	}
	if cfg.Broadcast.SendTimeout != 30*time.Second {
		t.Errorf("Broadcast.SendTimeout = %v, want %v", cfg.Broadcast.SendTimeout, 30*time.Second)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")

	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if want := filepath.Join("/data", "raketa", "raketa.db"); cfg.Database.DSN() != want {
		t.Errorf("Database.DSN() = %q, want %q", cfg.Database.DSN(), want)
	}
	if cfg.Bot.CountryCode != DefaultCountryCode || cfg.Bot.TrunkPrefix != DefaultTrunkPrefix {
		t.Errorf("Bot phone rules = %q/%q, want defaults", cfg.Bot.CountryCode, cfg.Bot.TrunkPrefix)
	}
	if cfg.Broadcast.Workers != DefaultWorkers {
		t.Errorf("Broadcast.Workers = %d, want %d", cfg.Broadcast.Workers, DefaultWorkers)
	}
	if cfg.Broadcast.SendTimeout != DefaultSendTimeout {
		t.Errorf("Broadcast.SendTimeout = %v, want %v", cfg.Broadcast.SendTimeout, DefaultSendTimeout)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoad_CountryWithoutTrunkPrefix(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
[bot]
country_code = "1"
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Bot.TrunkPrefix != "" {
		t.Errorf("Bot.TrunkPrefix = %q, want empty", cfg.Bot.TrunkPrefix)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("RAKETA_TEST_TOKEN", "syt_from_env")
	t.Setenv("RAKETA_TEST_DB", "/tmp/from-env.db")

	cfg, err := Load(writeConfig(t, `
[matrix]
homeserver = "https://matrix.example.org"
user_id = "@raketa:example.org"
access_token = "${RAKETA_TEST_TOKEN}"

[database]
path = "${RAKETA_TEST_DB}"
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Matrix.AccessToken != "syt_from_env" {
		t.Errorf("Matrix.AccessToken = %q, want %q", cfg.Matrix.AccessToken, "syt_from_env")
	}
	if cfg.Database.Path != "/tmp/from-env.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/from-env.db")
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("RAKETA_TEST_DOTENV=from-dotenv\n"), 0600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	// Register cleanup for a variable godotenv is about to set.
	t.Setenv("RAKETA_TEST_DOTENV", "")
	os.Unsetenv("RAKETA_TEST_DOTENV")

	if err := LoadEnv(envPath); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if got := os.Getenv("RAKETA_TEST_DOTENV"); got != "from-dotenv" {
		t.Errorf("RAKETA_TEST_DOTENV = %q, want %q", got, "from-dotenv")
	}

	if err := LoadEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("LoadEnv() on a missing file error = %v, want nil", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/bot.toml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	_, err := Load(writeConfig(t, "[matrix\nhomeserver = "))
	if err == nil {
		t.Fatal("Load() expected error for invalid TOML, got nil")
	}
	if !strings.Contains(err.Error(), "parsing config") {
		t.Errorf("error = %v, want a parse error", err)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
[broadcast]
send_timeout = "soon"
`))
	if err == nil {
		t.Fatal("Load() expected error for invalid duration, got nil")
	}
	if !strings.Contains(err.Error(), "send_timeout") {
		t.Errorf("error = %v, want it to mention send_timeout", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing homeserver",
			content: "[matrix]\naccess_token = \"x\"\nuser_id = \"@a:b\"\n",
			wantErr: "matrix.homeserver is required",
		},
		{
			name:    "bad homeserver scheme",
			content: "[matrix]\nhomeserver = \"ftp://x\"\naccess_token = \"x\"\nuser_id = \"@a:b\"\n",
			wantErr: "http or https",
		},
		{
			name:    "no credentials",
			content: "[matrix]\nhomeserver = \"https://x\"\nusername = \"bot\"\n",
			wantErr: "matrix.access_token",
		},
		{
			name:    "token without user id",
			content: "[matrix]\nhomeserver = \"https://x\"\naccess_token = \"x\"\n",
			wantErr: "matrix.user_id",
		},
		{
			name:    "bad admin",
			content: minimalConfig + "[bot]\nadmins = [\"alice\"]\n",
			wantErr: "bot.admins",
		},
		{
			name:    "bad country code",
			content: minimalConfig + "[bot]\ncountry_code = \"+7\"\n",
			wantErr: "bot.country_code",
		},
		{
			name:    "unknown driver",
			content: minimalConfig + "[database]\ndriver = \"mysql\"\n",
			wantErr: "database.driver",
		},
		{
			name:    "postgres without url",
			content: minimalConfig + "[database]\ndriver = \"postgres\"\n",
			wantErr: "database.url",
		},
		{
			name:    "negative workers",
			content: minimalConfig + "[broadcast]\nworkers = -1\n",
			wantErr: "broadcast.workers",
		},
		{
			name:    "bad log level",
			content: minimalConfig + "[logging]\nlevel = \"loud\"\n",
			wantErr: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.content)
			if err == nil {
				t.Fatalf("Parse() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("FOO", "bar")
	t.Setenv("BAZ", "qux")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"single env var", "${FOO}", "bar"},
		{"env var with surrounding text", "prefix-${FOO}-suffix", "prefix-bar-suffix"},
		{"multiple env vars", "${FOO}/${BAZ}", "bar/qux"},
		{"no env vars", "no-vars-here", "no-vars-here"},
		{"unset env var", "${RAKETA_UNSET_VAR}", ""},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandEnvVars(tt.input)
			if result != tt.expected {
				t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestPath(t *testing.T) {
	t.Setenv("RAKETA_CONFIG", "/etc/raketa.toml")
	if got := Path(); got != "/etc/raketa.toml" {
		t.Errorf("Path() = %q, want /etc/raketa.toml", got)
	}

	t.Setenv("RAKETA_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	if want := filepath.Join("/cfg", "raketa", "bot.toml"); Path() != want {
		t.Errorf("Path() = %q, want %q", Path(), want)
	}
}
