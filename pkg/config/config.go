package config

import (
	"runtime"

	"github.com/spf13/viper"
)

// Config carries the tool-wide settings shared by the seedtool
// subcommands. Values come from seedtrace.yaml, SEEDTRACE_* environment
// variables, then per-command flags, in that order of precedence.
type Config struct {
	Workers    int    `mapstructure:"workers"`     // fan-out of the engine's inner loops
	LogDBFile  string `mapstructure:"log_db_file"` // SQLite log database, relative to the app dir
	ConsoleLog bool   `mapstructure:"console_log"` // log to stdout instead of SQLite
	ConfigFile string `mapstructure:"config_file"`
}

func DefaultConfig() *Config {
	return &Config{
		Workers:    runtime.NumCPU(),
		LogDBFile:  "seedtool.db",
		ConsoleLog: false,
		ConfigFile: "seedtrace.yaml",
	}
}

// LoadConfig loads configuration from file and environment, in that
// order of precedence.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName(cfg.ConfigFile)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/seedtrace/")
	viper.AddConfigPath("$HOME/.seedtrace")
	viper.SetEnvPrefix("SEEDTRACE") // will be uppercased automatically, SEEDTRACE_...
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return nil, err
		}
		// Config file not found; run on defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	return cfg, nil
}
