// Package config handles configuration loading for the raketa bot.
//
// # Configuration File
//
// Location (first match wins):
//
//  1. Path from RAKETA_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/raketa/bot.toml
//  3. ~/.config/raketa/bot.toml
//
// A .env file next to the working directory is loaded first when present,
// so secrets can stay out of the TOML file.
//
// # Environment Variable Expansion
//
//	[matrix]
//	access_token = "${RAKETA_MATRIX_TOKEN}"
//
// Unset variables expand to the empty string.
//
// # Sections
//
//	[matrix]
//	homeserver = "https://matrix.example.org"
//	user_id = "@raketa:example.org"
//	access_token = "${RAKETA_MATRIX_TOKEN}"  # or username + password
//	recovery_key = ""                         # enables E2EE verification
//
//	[bot]
//	admins = ["@alice:example.org"]
//	texts_path = ""        # YAML overrides for user-facing texts
//	country_code = "7"
//	trunk_prefix = "8"
//
//	[database]
//	driver = "sqlite"      # sqlite or postgres
//	path = "~/.local/share/raketa/raketa.db"
//	url = "${DATABASE_URL}"
//
//	[broadcast]
//	workers = 8
//	send_timeout = "15s"
//
//	[logging]
//	level = "info"         # debug, info, warn, error
package config
