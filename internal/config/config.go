package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Remote backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Cache backends.
const (
	CacheFile   = "file"
	CacheMemory = "memory"
)

// Config captures everything needed to assemble the app.
type Config struct {
	Identity    string
	Remote      Remote
	Cache       Cache
	Debounce    time.Duration
	Workout     Workout
	LogFile     string
	LogLevel    string
	MetricsAddr string
}

type Remote struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MongoURI      string
	MongoDatabase string
}

type Cache struct {
	Backend string
	Dir     string
}

type Workout struct {
	RestSeconds int
	RestOptions []int
	AutoRest    bool
}

const (
	defaultConfigPath    = "~/.config/gymplanner/config.toml"
	defaultCacheDir      = "~/.local/share/gymplanner/cache"
	defaultLogFile       = "~/.local/share/gymplanner/gymplanner.log"
	defaultLogLevel      = "info"
	defaultRedisAddr     = "127.0.0.1:6379"
	defaultMongoURI      = "mongodb://127.0.0.1:27017/?replicaSet=rs0"
	defaultMongoDatabase = "gymplanner"
	defaultDebounce      = 2 * time.Second
	defaultRestSeconds   = 60
)

var defaultRestOptions = []int{60, 90}

// Environment variables overriding the file. They may also come from a .env
// file next to the working directory.
const (
	EnvIdentity      = "GYMPLANNER_IDENTITY"
	EnvRemote        = "GYMPLANNER_REMOTE"
	EnvRedisAddr     = "GYMPLANNER_REDIS_ADDR"
	EnvRedisPassword = "GYMPLANNER_REDIS_PASSWORD"
	EnvMongoURI      = "GYMPLANNER_MONGO_URI"
	EnvLogLevel      = "GYMPLANNER_LOG_LEVEL"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Remote: Remote{
			Backend:       BackendMemory,
			RedisAddr:     defaultRedisAddr,
			MongoURI:      defaultMongoURI,
			MongoDatabase: defaultMongoDatabase,
		},
		Cache:    Cache{Backend: CacheFile, Dir: mustExpand(defaultCacheDir)},
		Debounce: defaultDebounce,
		Workout: Workout{
			RestSeconds: defaultRestSeconds,
			RestOptions: append([]int(nil), defaultRestOptions...),
			AutoRest:    true,
		},
		LogFile:  mustExpand(defaultLogFile),
		LogLevel: defaultLogLevel,
	}
}

type rawConfig struct {
	Identity    string `toml:"identity"`
	LogFile     string `toml:"log_file"`
	LogLevel    string `toml:"log_level"`
	MetricsAddr string `toml:"metrics_addr"`
	Remote      struct {
		Backend string `toml:"backend"`
		Redis   struct {
			Addr     string `toml:"addr"`
			Password string `toml:"password"`
			DB       int    `toml:"db"`
		} `toml:"redis"`
		Mongo struct {
			URI      string `toml:"uri"`
			Database string `toml:"database"`
		} `toml:"mongo"`
	} `toml:"remote"`
	Cache struct {
		Backend string `toml:"backend"`
		Dir     string `toml:"dir"`
	} `toml:"cache"`
	Sync struct {
		Debounce string `toml:"debounce"`
	} `toml:"sync"`
	Workout struct {
		RestSeconds int   `toml:"rest_seconds"`
		RestOptions []int `toml:"rest_options"`
		AutoRest    *bool `toml:"auto_rest"`
	} `toml:"workout"`
}

// Load reads the config file at path (the default path when empty), applies
// environment overrides and validates the result. A missing file yields the
// defaults.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
	} else {
		defer file.Close()

		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		var raw rawConfig
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		if err := cfg.apply(raw); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) apply(raw rawConfig) error {
	c.Identity = strings.TrimSpace(raw.Identity)
	c.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	setString(&c.LogLevel, raw.LogLevel)
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		c.LogFile = mustExpand(v)
	}

	setString(&c.Remote.Backend, strings.ToLower(raw.Remote.Backend))
	setString(&c.Remote.RedisAddr, raw.Remote.Redis.Addr)
	c.Remote.RedisPassword = strings.TrimSpace(raw.Remote.Redis.Password)
	c.Remote.RedisDB = raw.Remote.Redis.DB
	setString(&c.Remote.MongoURI, raw.Remote.Mongo.URI)
	setString(&c.Remote.MongoDatabase, raw.Remote.Mongo.Database)

	setString(&c.Cache.Backend, strings.ToLower(raw.Cache.Backend))
	if v := strings.TrimSpace(raw.Cache.Dir); v != "" {
		c.Cache.Dir = mustExpand(v)
	}

	if v := strings.TrimSpace(raw.Sync.Debounce); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse sync.debounce: %w", err)
		}
		c.Debounce = d
	}

	if raw.Workout.RestSeconds != 0 {
		c.Workout.RestSeconds = raw.Workout.RestSeconds
	}
	if len(raw.Workout.RestOptions) > 0 {
		c.Workout.RestOptions = raw.Workout.RestOptions
	}
	if raw.Workout.AutoRest != nil {
		c.Workout.AutoRest = *raw.Workout.AutoRest
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvIdentity)); v != "" {
		c.Identity = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRemote)); v != "" {
		c.Remote.Backend = strings.ToLower(v)
	}
	setString(&c.Remote.RedisAddr, os.Getenv(EnvRedisAddr))
	if v, ok := os.LookupEnv(EnvRedisPassword); ok {
		c.Remote.RedisPassword = v
	}
	setString(&c.Remote.MongoURI, os.Getenv(EnvMongoURI))
	setString(&c.LogLevel, os.Getenv(EnvLogLevel))
}

// Validate reports configuration values that cannot work.
func (c Config) Validate() error {
	switch c.Remote.Backend {
	case BackendMemory, BackendRedis, BackendMongo:
	default:
		return fmt.Errorf("remote.backend %q: want %s, %s or %s", c.Remote.Backend, BackendMemory, BackendRedis, BackendMongo)
	}
	switch c.Cache.Backend {
	case CacheFile, CacheMemory:
	default:
		return fmt.Errorf("cache.backend %q: want %s or %s", c.Cache.Backend, CacheFile, CacheMemory)
	}
	if c.Debounce <= 0 {
		return fmt.Errorf("sync.debounce %v: must be positive", c.Debounce)
	}
	if c.Workout.RestSeconds <= 0 {
		return fmt.Errorf("workout.rest_seconds %d: must be positive", c.Workout.RestSeconds)
	}
	for _, s := range c.Workout.RestOptions {
		if s <= 0 {
			return fmt.Errorf("workout.rest_options %v: values must be positive", c.Workout.RestOptions)
		}
	}
	return nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
