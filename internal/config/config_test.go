package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every config search path at an empty temp dir
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	viper.Reset()
	SetConfigPath("")
	Set(nil)
	t.Cleanup(func() {
		viper.Reset()
		SetConfigPath("")
		Set(nil)
	})
	return dir
}

func TestInit(t *testing.T) {
	t.Run("initializes with defaults when no config exists", func(t *testing.T) {
		isolate(t)
		if _, err := os.Stat("/etc/ei-type/ei-type.toml"); err == nil {
			t.Skip("system config present")
		}

		require.NoError(t, Init())
		cfg := Get()
		require.NotNil(t, cfg)
		assert.Equal(t, BackendEIS, cfg.Backend)
		assert.Equal(t, 5*time.Millisecond, cfg.Delay())
		assert.Equal(t, 500*time.Millisecond, cfg.PollInterval())
		assert.Equal(t, 10, cfg.EIS.MaxPollTimeouts)
		assert.Equal(t, "last", cfg.EIS.DeviceSelection)
		assert.Equal(t, int32(63), cfg.EIS.Capabilities)
		assert.Equal(t, 200*time.Millisecond, cfg.UinputSettle())
	})

	t.Run("reads an explicit config file", func(t *testing.T) {
		dir := isolate(t)
		path := filepath.Join(dir, "custom.toml")
		require.NoError(t, os.WriteFile(path, []byte(`backend = "uinput"

[typing]
delay_ms = 12

[eis]
device_selection = "first"
socket = "eis-0"
`), 0644))

		SetConfigPath(path)
		require.NoError(t, Init())
		cfg := Get()
		assert.Equal(t, BackendUinput, cfg.Backend)
		assert.Equal(t, 12*time.Millisecond, cfg.Delay())
		assert.Equal(t, "first", cfg.EIS.DeviceSelection)
		assert.Equal(t, "eis-0", cfg.EIS.Socket)
		assert.Equal(t, 500, cfg.EIS.PollIntervalMS, "unset keys keep their defaults")
	})

	t.Run("reads ei-type.toml from the current directory", func(t *testing.T) {
		dir := isolate(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "ei-type.toml"), []byte("[typing]\ndelay_ms = 7\n"), 0644))

		require.NoError(t, Init())
		assert.Equal(t, 7, Get().Typing.DelayMS)
	})

	t.Run("environment overrides file values", func(t *testing.T) {
		dir := isolate(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "ei-type.toml"), []byte("[typing]\ndelay_ms = 7\n"), 0644))
		t.Setenv("EITYPE_TYPING_DELAY_MS", "40")

		require.NoError(t, Init())
		assert.Equal(t, 40, Get().Typing.DelayMS)
	})

	t.Run("handles invalid TOML", func(t *testing.T) {
		dir := isolate(t)
		path := filepath.Join(dir, "ei-type.toml")
		require.NoError(t, os.WriteFile(path, []byte("[typing\ndelay_ms = 5"), 0644))

		SetConfigPath(path)
		assert.Error(t, Init())
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		dir := isolate(t)
		path := filepath.Join(dir, "ei-type.toml")
		require.NoError(t, os.WriteFile(path, []byte(`backend = "x11"`), 0644))

		SetConfigPath(path)
		assert.Error(t, Init())
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "defaults", modify: func(*Config) {}},
		{name: "uinput backend", modify: func(c *Config) { c.Backend = BackendUinput }},
		{name: "zero delay", modify: func(c *Config) { c.Typing.DelayMS = 0 }},
		{name: "unknown backend", modify: func(c *Config) { c.Backend = "wlroots" }, wantErr: true},
		{name: "negative delay", modify: func(c *Config) { c.Typing.DelayMS = -1 }, wantErr: true},
		{name: "zero poll interval", modify: func(c *Config) { c.EIS.PollIntervalMS = 0 }, wantErr: true},
		{name: "zero poll budget", modify: func(c *Config) { c.EIS.MaxPollTimeouts = 0 }, wantErr: true},
		{name: "unknown device selection", modify: func(c *Config) { c.EIS.DeviceSelection = "random" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig
			tt.modify(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGet_ReturnsCopyOfDefaults(t *testing.T) {
	isolate(t)
	cfg := Get()
	cfg.Typing.DelayMS = 99
	assert.Equal(t, 5, DefaultConfig.Typing.DelayMS)
}

func TestConfigPathResolution(t *testing.T) {
	t.Run("override wins", func(t *testing.T) {
		isolate(t)
		SetConfigPath("/tmp/custom.toml")
		assert.Equal(t, "/tmp/custom.toml", GetConfigPath())
	})

	t.Run("user config directory", func(t *testing.T) {
		dir := isolate(t)
		if os.Getuid() == 0 {
			assert.Equal(t, "/etc/ei-type/ei-type.toml", GetConfigPath())
			return
		}
		assert.Equal(t, filepath.Join(dir, ".config", "ei-type", "ei-type.toml"), GetConfigPath())
	})
}

func TestSave(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "out", "ei-type.toml")
	SetConfigPath(path)

	require.NoError(t, Init())
	viper.Set("typing.delay_ms", 25)
	require.NoError(t, Save())

	viper.Reset()
	require.NoError(t, Init())
	assert.Equal(t, 25, Get().Typing.DelayMS)
}
