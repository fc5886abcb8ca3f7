// Package settings loads the host configuration consumed by the script
// bridge and its runtime.
package settings

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Setting keys.
const (
	KeyDeprecatedHandling = "deprecated_lua_api_handling"
	KeyMemoryLimitMB      = "memory_limit_mb"
	KeyStackLimit         = "stack_limit"
	KeyLogLevel           = "log_level"
)

// EnvPrefix prefixes environment variable overrides, e.g.
// HOSTBRIDGE_DEPRECATED_LUA_API_HANDLING=error.
const EnvPrefix = "HOSTBRIDGE"

// Getter is the read side of a settings source.
type Getter interface {
	GetString(key string) string
}

// Settings is a mutable settings source backed by viper. Readers that need a
// stable view should take a Snapshot.
type Settings struct {
	v *viper.Viper
}

// New returns Settings holding the defaults, with environment overrides
// enabled.
func New() *Settings {
	v := viper.New()
	v.SetDefault(KeyDeprecatedHandling, "log")
	v.SetDefault(KeyMemoryLimitMB, 0)
	v.SetDefault(KeyStackLimit, 1000000)
	v.SetDefault(KeyLogLevel, "info")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return &Settings{v: v}
}

// Load reads the file at path. The format follows the file extension (toml,
// yaml, json, ...).
func (s *Settings) Load(path string) error {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	s.v.SetConfigFile(expanded)
	if err := s.v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading settings %s: %w", expanded, err)
	}
	return nil
}

// Viper exposes the underlying viper instance, e.g. for binding CLI flags.
func (s *Settings) Viper() *viper.Viper {
	return s.v
}

// GetString implements Getter.
func (s *Settings) GetString(key string) string {
	return s.v.GetString(key)
}

// Set overrides a setting.
func (s *Settings) Set(key string, value any) {
	s.v.Set(key, value)
}

// Snapshot is an immutable copy of the settings.
type Snapshot struct {
	DeprecatedHandling string `json:"deprecated_lua_api_handling"`
	MemoryLimitMB      int64  `json:"memory_limit_mb"`
	StackLimit         int    `json:"stack_limit"`
	LogLevel           string `json:"log_level"`
}

// Snapshot copies the current values.
func (s *Settings) Snapshot() Snapshot {
	return Snapshot{
		DeprecatedHandling: s.v.GetString(KeyDeprecatedHandling),
		MemoryLimitMB:      s.v.GetInt64(KeyMemoryLimitMB),
		StackLimit:         s.v.GetInt(KeyStackLimit),
		LogLevel:           s.v.GetString(KeyLogLevel),
	}
}

// GetString implements Getter, so a Snapshot can stand in for live Settings.
func (s Snapshot) GetString(key string) string {
	switch key {
	case KeyDeprecatedHandling:
		return s.DeprecatedHandling
	case KeyLogLevel:
		return s.LogLevel
	default:
		return ""
	}
}

// MemoryLimitBytes returns the memory limit in bytes, 0 when unlimited.
func (s Snapshot) MemoryLimitBytes() int64 {
	return s.MemoryLimitMB << 20
}

// Level parses LogLevel.
func (s Snapshot) Level() (zerolog.Level, error) {
	return zerolog.ParseLevel(s.LogLevel)
}

// Validate reports every problem with the snapshot. Unrecognized values of
// deprecated_lua_api_handling are not errors; they select "ignore".
func (s Snapshot) Validate() error {
	var result *multierror.Error
	if s.MemoryLimitMB < 0 {
		result = multierror.Append(result, fmt.Errorf("%s must not be negative (got %d)",
			KeyMemoryLimitMB, s.MemoryLimitMB))
	}
	if s.StackLimit < 1 {
		result = multierror.Append(result, fmt.Errorf("%s must be positive (got %d)",
			KeyStackLimit, s.StackLimit))
	}
	if _, err := s.Level(); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: %w", KeyLogLevel, err))
	}
	return result.ErrorOrNil()
}

// DefaultPath returns the default settings file location.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "hostbridge", "settings.toml"), nil
}
