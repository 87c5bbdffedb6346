// Package config loads the gymplanner configuration file.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/gymplanner/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing or empty, use defaults
//  5. Environment variables (GYMPLANNER_*) override the file
//
// LoadEnvFile reads a .env file into the environment first, so secrets such
// as the Redis password or the Mongo URI can stay out of the TOML file.
//
// # File Format
//
//	identity     = "marta"
//	log_file     = "~/.local/share/gymplanner/gymplanner.log"
//	log_level    = "info"
//	metrics_addr = "127.0.0.1:9464"
//
//	[remote]
//	backend = "redis"            # memory | redis | mongo
//
//	[remote.redis]
//	addr = "127.0.0.1:6379"
//	db   = 0
//
//	[remote.mongo]
//	uri      = "mongodb://127.0.0.1:27017/?replicaSet=rs0"
//	database = "gymplanner"
//
//	[cache]
//	backend = "file"             # file | memory
//	dir     = "~/.local/share/gymplanner/cache"
//
//	[sync]
//	debounce = "2s"
//
//	[workout]
//	rest_seconds = 60
//	rest_options = [60, 90]
//	auto_rest    = true
//
// # Path Expansion
//
// Paths beginning with ~ are expanded to the user's home directory and made
// absolute. Values are trimmed; a value that is empty after trimming counts
// as missing.
package config
