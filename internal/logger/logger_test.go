package logger

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]log.Level{
		"debug":   log.DebugLevel,
		"INFO":    log.InfoLevel,
		"warning": log.WarnLevel,
		"Warn":    log.WarnLevel,
		"error":   log.ErrorLevel,
		"fatal":   log.FatalLevel,
		"":        log.InfoLevel,
		"verbose": log.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestConfigure(t *testing.T) {
	saved := Logger
	t.Cleanup(func() { Logger = saved })

	var buf bytes.Buffer
	Logger = New(&buf)
	Logger.SetLevel(log.InfoLevel)

	Configure("error", false)
	assert.Equal(t, log.ErrorLevel, Logger.GetLevel())

	Configure("", false)
	assert.Equal(t, log.ErrorLevel, Logger.GetLevel(), "empty level keeps the current one")

	Configure("error", true)
	assert.Equal(t, log.DebugLevel, Logger.GetLevel(), "verbose wins")

	Debug("typed text", "characters", 3)
	assert.Contains(t, buf.String(), Prefix)
	assert.Contains(t, buf.String(), "typed text")
}
