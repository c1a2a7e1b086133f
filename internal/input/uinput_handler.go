package input

import (
	"fmt"
	"sync"
	"time"

	"github.com/ThomasT75/uinput"
)

// Defaults for the uinput backend
const (
	DefaultUinputPath = "/dev/uinput"
	DefaultUinputName = "ei-type virtual keyboard"
	// DefaultUinputSettle is how long a new device is given before typing;
	// the compositor has to notice it first or the first keys are lost
	DefaultUinputSettle = 200 * time.Millisecond
)

// UinputSink writes key transitions to a kernel virtual keyboard. Every
// transition is visible as soon as Key returns, so Frame, Flush and
// Dispatch have nothing to do.
type UinputSink struct {
	keyboard uinput.Keyboard
	mu       sync.Mutex
	closed   bool
}

// NewUinputSink creates a virtual keyboard at path and waits settle
// before returning
func NewUinputSink(path, name string, settle time.Duration) (*UinputSink, error) {
	if path == "" {
		path = DefaultUinputPath
	}
	if name == "" {
		name = DefaultUinputName
	}

	keyboard, err := uinput.CreateKeyboard(path, []byte(name))
	if err != nil {
		return nil, fmt.Errorf("failed to create virtual keyboard: %w", err)
	}
	if settle > 0 {
		time.Sleep(settle)
	}
	return &UinputSink{keyboard: keyboard}, nil
}

// Key presses or releases a key
func (s *UinputSink) Key(code uint32, pressed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	if pressed {
		return s.keyboard.KeyDown(int(code))
	}
	return s.keyboard.KeyUp(int(code))
}

// Frame is a no-op: uinput emits SYN_REPORT with every key
func (s *UinputSink) Frame() error { return s.check() }

// Flush is a no-op
func (s *UinputSink) Flush() error { return s.check() }

// Dispatch is a no-op
func (s *UinputSink) Dispatch() error { return s.check() }

func (s *UinputSink) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	return nil
}

// Close destroys the virtual keyboard
func (s *UinputSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.keyboard.Close()
}
