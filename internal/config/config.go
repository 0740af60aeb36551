// Package config loads dashboard settings from the optional config file,
// environment, and defaults. Flag values are merged on top by the CLI.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"

	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = ".vitals.yaml"
	// GlobalConfigDir is the directory for global config, relative to home.
	GlobalConfigDir = ".config/vitals"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"

	// DefaultTimeoutSeconds is how long the supervisor waits for a flush
	// before reconnecting.
	DefaultTimeoutSeconds = 15
	// DefaultReplaySpeed paces file replays at one flush per second.
	DefaultReplaySpeed = 1
)

// Settings holds the configuration surface consumed by the dashboard core.
type Settings struct {
	// Scroll forces scroll mode: each report block is appended instead of
	// redrawn in place.
	Scroll bool `mapstructure:"scroll"`
	// Debug emits diagnostics to stderr.
	Debug bool `mapstructure:"debug"`
	// Timeout is the heartbeat timeout in seconds.
	Timeout int `mapstructure:"timeout"`
	// ReplaySpeed is the speedup multiplier for file replays. Zero means
	// unlimited (as fast as possible).
	ReplaySpeed int `mapstructure:"replay-speed"`
}

// Default returns the settings used when nothing is configured.
func Default() *Settings {
	return &Settings{
		Timeout:     DefaultTimeoutSeconds,
		ReplaySpeed: DefaultReplaySpeed,
	}
}

// Load reads settings from the found config file (if any), environment
// variables prefixed VITALS_, and defaults.
func Load(explicit string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("VITALS")
	v.AutomaticEnv()

	path, err := Find(explicit)
	if err != nil {
		return nil, err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file "+path,
				"Check the file exists and is valid YAML")
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+path)
	}
	return cfg, nil
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .vitals.yaml in current directory
// 3. ~/.config/vitals/config.yaml (global defaults)
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Specified config file not found: "+explicit,
				"Check the path is correct")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}
	localConfig := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	if home, _ := os.UserHomeDir(); home != "" {
		globalConfig := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}

	return "", nil
}

// setDefaults seeds viper with the baseline settings.
func setDefaults(v *viper.Viper) {
	v.SetDefault("scroll", false)
	v.SetDefault("debug", false)
	v.SetDefault("timeout", DefaultTimeoutSeconds)
	v.SetDefault("replay-speed", DefaultReplaySpeed)
}

// ParseIntOption parses an integer option value best-effort. A value that
// is not a valid integer prints a message through the logger and falls back
// to def rather than failing the run.
func ParseIntOption(log logger.Logger, name, value string, def int) int {
	if value == "" {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Warn("Not valid integer value for --%s: %s", name, value)
		return def
	}
	return n
}
