package config

import (
	"fmt"
	"time"

	"github.com/rpattn/gridsync/internal/db"
	"github.com/spf13/viper"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// GridConfig holds the grid session tuning knobs.
type GridConfig struct {
	DebounceWindow time.Duration
	HistoryLimit   int
	RequestTimeout time.Duration
}

// AssistConfig holds the AI validation settings. An empty APIKey selects the
// heuristic validator.
type AssistConfig struct {
	APIKey string
	Model  string
}

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig
	Database db.Config
	Grid     GridConfig
	Assist   AssistConfig
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Database: db.DefaultConfig(),
		Grid: GridConfig{
			DebounceWindow: 1000 * time.Millisecond,
			HistoryLimit:   10,
			RequestTimeout: 10 * time.Second,
		},
		Assist: AssistConfig{
			Model: "gemini-2.0-flash",
		},
	}
}

// Load reads config.yaml from configPath, falling back to defaults and
// environment overrides (GRIDSYNC_ prefix, e.g. GRIDSYNC_DATABASE_HOST).
func Load(configPath string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv() // allow environment overrides
	v.SetEnvPrefix("GRIDSYNC")

	v.BindEnv("server.addr")
	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("grid.debounce_ms")
	v.BindEnv("grid.history_limit")
	v.BindEnv("grid.request_timeout_s")
	v.BindEnv("assist.api_key")
	v.BindEnv("assist.model")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found? Just log it, use defaults + env
		fmt.Println("No config.yaml found, using defaults and env vars")
	} else {
		fmt.Println("Loaded config.yaml")
	}

	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}
	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("grid.debounce_ms") {
		cfg.Grid.DebounceWindow = time.Duration(v.GetInt("grid.debounce_ms")) * time.Millisecond
	}
	if v.IsSet("grid.history_limit") {
		cfg.Grid.HistoryLimit = v.GetInt("grid.history_limit")
	}
	if v.IsSet("grid.request_timeout_s") {
		cfg.Grid.RequestTimeout = time.Duration(v.GetInt("grid.request_timeout_s")) * time.Second
	}
	if v.IsSet("assist.api_key") {
		cfg.Assist.APIKey = v.GetString("assist.api_key")
	}
	if v.IsSet("assist.model") {
		cfg.Assist.Model = v.GetString("assist.model")
	}

	return cfg, nil
}
