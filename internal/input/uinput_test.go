package input

import (
	"os"
	"testing"

	"github.com/bnema/eitype/internal/keymap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireUinput skips unless the default uinput device can be opened
func requireUinput(t *testing.T) {
	t.Helper()
	f, err := os.OpenFile(DefaultUinputPath, os.O_WRONLY, 0)
	if err != nil {
		t.Skipf("cannot open %s: %v (add the user to the input group)", DefaultUinputPath, err)
	}
	_ = f.Close()
}

// TestUinputSink_Integration creates a real virtual keyboard if permissions allow
func TestUinputSink_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	requireUinput(t)

	sink, err := NewUinputSink("", "", 0)
	require.NoError(t, err)

	// Shift alone types nothing in the focused window
	require.NoError(t, sink.Key(keymap.KEY_LEFTSHIFT, true))
	require.NoError(t, sink.Frame())
	require.NoError(t, sink.Key(keymap.KEY_LEFTSHIFT, false))
	require.NoError(t, sink.Flush())
	require.NoError(t, sink.Dispatch())

	require.NoError(t, sink.Close())
	assert.NoError(t, sink.Close(), "second close is a no-op")
	assert.ErrorIs(t, sink.Key(keymap.KEY_A, true), ErrSinkClosed)
	assert.ErrorIs(t, sink.Flush(), ErrSinkClosed)
}

func TestNewUinputSink_BadPath(t *testing.T) {
	_, err := NewUinputSink("/nonexistent/uinput", "test", 0)
	assert.Error(t, err)
}
