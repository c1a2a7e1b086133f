package input

import (
	"errors"
	"testing"
	"time"

	"github.com/bnema/eitype/internal/keymap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type opKind int

const (
	opKey opKind = iota
	opFrame
	opFlush
	opDispatch
)

type op struct {
	kind    opKind
	code    uint32
	pressed bool
}

func press(code uint32) op   { return op{kind: opKey, code: code, pressed: true} }
func release(code uint32) op { return op{kind: opKey, code: code} }

var (
	frame    = op{kind: opFrame}
	flush    = op{kind: opFlush}
	dispatch = op{kind: opDispatch}
)

// MockSink records every call for testing without a compositor
type MockSink struct {
	ops []op
	// failAt makes the n-th call (1-based) fail with errSink
	failAt int
}

var errSink = errors.New("sink failure")

func (m *MockSink) record(o op) error {
	m.ops = append(m.ops, o)
	if m.failAt > 0 && len(m.ops) == m.failAt {
		return errSink
	}
	return nil
}

func (m *MockSink) Key(code uint32, pressed bool) error {
	return m.record(op{kind: opKey, code: code, pressed: pressed})
}
func (m *MockSink) Frame() error    { return m.record(frame) }
func (m *MockSink) Flush() error    { return m.record(flush) }
func (m *MockSink) Dispatch() error { return m.record(dispatch) }

func (m *MockSink) count(kind opKind) int {
	n := 0
	for _, o := range m.ops {
		if o.kind == kind {
			n++
		}
	}
	return n
}

type sleepRecorder struct {
	sleeps []time.Duration
}

func (s *sleepRecorder) sleep(d time.Duration) {
	s.sleeps = append(s.sleeps, d)
}

func newTestDriver(sink Sink) (*Driver, *sleepRecorder) {
	rec := &sleepRecorder{}
	return NewDriver(sink, 3*time.Millisecond, WithSleep(rec.sleep)), rec
}

func TestDriver_TypeText_Lowercase(t *testing.T) {
	sink := &MockSink{}
	d, sleeps := newTestDriver(sink)

	require.NoError(t, d.TypeText("a"))
	assert.Equal(t, []op{
		press(keymap.KEY_A), frame, flush,
		release(keymap.KEY_A), frame, flush,
		dispatch,
	}, sink.ops)
	assert.Equal(t, []time.Duration{3 * time.Millisecond, 3 * time.Millisecond}, sleeps.sleeps,
		"one wait between press and release, one after the character")
}

func TestDriver_TypeText_Shifted(t *testing.T) {
	sink := &MockSink{}
	d, _ := newTestDriver(sink)

	require.NoError(t, d.TypeText("A"))
	assert.Equal(t, []op{
		press(keymap.KEY_LEFTSHIFT), frame,
		press(keymap.KEY_A), frame, flush,
		release(keymap.KEY_A), frame,
		release(keymap.KEY_LEFTSHIFT), frame, flush,
		dispatch,
	}, sink.ops)
}

func TestDriver_TypeText_OneFramePerTransition(t *testing.T) {
	sink := &MockSink{}
	d, _ := newTestDriver(sink)

	require.NoError(t, d.TypeText("Hello, World!\n"))
	assert.Equal(t, sink.count(opKey), sink.count(opFrame))
	for i, o := range sink.ops {
		if o.kind == opKey {
			require.Less(t, i+1, len(sink.ops))
			assert.Equal(t, opFrame, sink.ops[i+1].kind, "transition %d is not followed by a frame", i)
		}
	}

	characters := len("Hello, World!\n")
	assert.Equal(t, 2*characters, sink.count(opFlush), "two flushes per key")
	assert.Equal(t, characters, sink.count(opDispatch), "one dispatch per key")
}

func TestDriver_TypeText_SkipsUnmapped(t *testing.T) {
	sink := &MockSink{}
	d, _ := newTestDriver(sink)

	require.NoError(t, d.TypeText("é1€"))
	assert.Equal(t, []op{
		press(keymap.KEY_1), frame, flush,
		release(keymap.KEY_1), frame, flush,
		dispatch,
	}, sink.ops)
}

func TestDriver_TypeText_Empty(t *testing.T) {
	sink := &MockSink{}
	d, _ := newTestDriver(sink)

	require.NoError(t, d.TypeText(""))
	assert.Empty(t, sink.ops)
}

func TestDriver_TypeText_AbortsOnSinkError(t *testing.T) {
	sink := &MockSink{failAt: 3} // first flush
	d, _ := newTestDriver(sink)

	err := d.TypeText("ab")
	require.Error(t, err)
	assert.ErrorIs(t, err, errSink)
	assert.Len(t, sink.ops, 3, "nothing is sent after the failure")
}

func TestDriver_SendCombo(t *testing.T) {
	tests := []struct {
		name  string
		combo string
		want  []op
	}{
		{
			name:  "ctrl+v",
			combo: "ctrl+v",
			want: []op{
				press(keymap.KEY_LEFTCTRL), frame,
				press(keymap.KEY_V), frame, flush,
				release(keymap.KEY_V), frame,
				release(keymap.KEY_LEFTCTRL), frame, flush,
				dispatch,
			},
		},
		{
			name:  "modifiers released in reverse",
			combo: "ctrl+alt+shift+t",
			want: []op{
				press(keymap.KEY_LEFTCTRL), frame,
				press(keymap.KEY_LEFTALT), frame,
				press(keymap.KEY_LEFTSHIFT), frame,
				press(keymap.KEY_T), frame, flush,
				release(keymap.KEY_T), frame,
				release(keymap.KEY_LEFTSHIFT), frame,
				release(keymap.KEY_LEFTALT), frame,
				release(keymap.KEY_LEFTCTRL), frame, flush,
				dispatch,
			},
		},
		{
			name:  "named key without modifiers",
			combo: "enter",
			want: []op{
				press(keymap.KEY_ENTER), frame, flush,
				release(keymap.KEY_ENTER), frame, flush,
				dispatch,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &MockSink{}
			d, sleeps := newTestDriver(sink)

			require.NoError(t, d.SendCombo(tt.combo))
			assert.Equal(t, tt.want, sink.ops)
			assert.Len(t, sleeps.sleeps, 1)
		})
	}
}

func TestDriver_SendCombo_ParseErrorSendsNothing(t *testing.T) {
	for _, combo := range []string{"ctrl+foo", "hyper+a", "", "ctrl+"} {
		t.Run(combo, func(t *testing.T) {
			sink := &MockSink{}
			d, sleeps := newTestDriver(sink)

			err := d.SendCombo(combo)
			require.Error(t, err)
			assert.ErrorIs(t, err, keymap.ErrInvalidCombo)
			assert.Empty(t, sink.ops)
			assert.Empty(t, sleeps.sleeps)
		})
	}
}

func TestDriver_SendCombo_AbortsOnSinkError(t *testing.T) {
	sink := &MockSink{failAt: 5} // first flush
	d, _ := newTestDriver(sink)

	err := d.SendCombo("ctrl+c")
	assert.ErrorIs(t, err, errSink)
	assert.Len(t, sink.ops, 5)
}
