// Package config handles configuration management using Viper
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend names
const (
	BackendEIS    = "eis"
	BackendUinput = "uinput"
)

// EnvPrefix prefixes environment overrides, e.g. EITYPE_TYPING_DELAY_MS
const EnvPrefix = "EITYPE"

// Config represents the application configuration
type Config struct {
	// Backend selects how keys are injected: "eis" or "uinput"
	Backend string `mapstructure:"backend"`

	Typing  TypingConfig  `mapstructure:"typing"`
	EIS     EISConfig     `mapstructure:"eis"`
	Uinput  UinputConfig  `mapstructure:"uinput"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// TypingConfig contains pacing settings
type TypingConfig struct {
	DelayMS int `mapstructure:"delay_ms"` // Pause between press and release, and after each character
}

// EISConfig contains settings for the EIS session
type EISConfig struct {
	ClientName      string `mapstructure:"client_name"`
	PollIntervalMS  int    `mapstructure:"poll_interval_ms"`
	MaxPollTimeouts int    `mapstructure:"max_poll_timeouts"`
	DeviceSelection string `mapstructure:"device_selection"` // "last" or "first"
	Socket          string `mapstructure:"socket"`           // Empty means $LIBEI_SOCKET, then KWin
	Capabilities    int32  `mapstructure:"capabilities"`     // Mask passed to KWin connectToEIS
}

// UinputConfig contains settings for the uinput fallback backend
type UinputConfig struct {
	DevicePath string `mapstructure:"device_path"`
	DeviceName string `mapstructure:"device_name"`
	SettleMS   int    `mapstructure:"settle_ms"` // Wait after creating the device
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level"` // Override LOG_LEVEL env var
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Backend: BackendEIS,
		Typing: TypingConfig{
			DelayMS: 5,
		},
		EIS: EISConfig{
			ClientName:      "ei-type",
			PollIntervalMS:  500,
			MaxPollTimeouts: 10,
			DeviceSelection: "last",
			Socket:          "",
			Capabilities:    63,
		},
		Uinput: UinputConfig{
			DevicePath: "/dev/uinput",
			DeviceName: "ei-type virtual keyboard",
			SettleMS:   200,
		},
		Logging: LoggingConfig{
			LogLevel: "", // Empty means use LOG_LEVEL env var
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("ei-type")
	viper.SetConfigType("toml")

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		viper.AddConfigPath("/etc/ei-type")
		if dir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(filepath.Join(dir, "ei-type"))
		}
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults - need to set individual fields for proper merging
	viper.SetDefault("backend", DefaultConfig.Backend)
	viper.SetDefault("typing.delay_ms", DefaultConfig.Typing.DelayMS)

	viper.SetDefault("eis.client_name", DefaultConfig.EIS.ClientName)
	viper.SetDefault("eis.poll_interval_ms", DefaultConfig.EIS.PollIntervalMS)
	viper.SetDefault("eis.max_poll_timeouts", DefaultConfig.EIS.MaxPollTimeouts)
	viper.SetDefault("eis.device_selection", DefaultConfig.EIS.DeviceSelection)
	viper.SetDefault("eis.socket", DefaultConfig.EIS.Socket)
	viper.SetDefault("eis.capabilities", DefaultConfig.EIS.Capabilities)

	viper.SetDefault("uinput.device_path", DefaultConfig.Uinput.DevicePath)
	viper.SetDefault("uinput.device_name", DefaultConfig.Uinput.DeviceName)
	viper.SetDefault("uinput.settle_ms", DefaultConfig.Uinput.SettleMS)

	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults
	}

	c := &Config{}
	if err := viper.Unmarshal(c); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c

	return nil
}

// Validate checks values that would otherwise fail deep inside a session
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendEIS, BackendUinput:
	default:
		return fmt.Errorf("invalid backend %q (must be %s or %s)", c.Backend, BackendEIS, BackendUinput)
	}
	if c.Typing.DelayMS < 0 {
		return fmt.Errorf("typing.delay_ms must not be negative, got %d", c.Typing.DelayMS)
	}
	if c.EIS.PollIntervalMS <= 0 {
		return fmt.Errorf("eis.poll_interval_ms must be positive, got %d", c.EIS.PollIntervalMS)
	}
	if c.EIS.MaxPollTimeouts <= 0 {
		return fmt.Errorf("eis.max_poll_timeouts must be positive, got %d", c.EIS.MaxPollTimeouts)
	}
	switch c.EIS.DeviceSelection {
	case "", "last", "first":
	default:
		return fmt.Errorf("invalid eis.device_selection %q (must be last or first)", c.EIS.DeviceSelection)
	}
	return nil
}

// Delay returns the typing delay as a duration
func (c *Config) Delay() time.Duration {
	return time.Duration(c.Typing.DelayMS) * time.Millisecond
}

// PollInterval returns the EIS poll interval as a duration
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.EIS.PollIntervalMS) * time.Millisecond
}

// UinputSettle returns the uinput settle time as a duration
func (c *Config) UinputSettle() time.Duration {
	return time.Duration(c.Uinput.SettleMS) * time.Millisecond
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		d := DefaultConfig
		return &d
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// Save writes the current settings to the config file
func Save() error {
	configPath := GetConfigPath()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		if os.IsPermission(err) && strings.HasPrefix(configPath, "/etc/") {
			return fmt.Errorf("failed to create config directory %s: permission denied. Try running with sudo", dir)
		}
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	if os.Getuid() == 0 {
		return "/etc/ei-type/ei-type.toml"
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "/etc/ei-type/ei-type.toml"
	}

	return filepath.Join(dir, "ei-type", "ei-type.toml")
}
