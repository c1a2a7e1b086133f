// Package session establishes an EI sender session with a compositor and
// exposes the resulting keyboard device as a key sink.
package session

import (
	"errors"
	"fmt"

	"github.com/bnema/eitype/internal/ei"
	"github.com/charmbracelet/log"
	"golang.org/x/sys/unix"
)

// Session is a keyboard device that has been resumed and is emulating. It
// is only created by Establish and is not safe for concurrent use.
type Session struct {
	c          *ei.Context
	connection *ei.Connection
	keyboard   *ei.Keyboard
	device     *ei.Device
	serial     uint32
	interfaces map[string]uint32
	log        *log.Logger
	closed     bool
}

// Serial returns the last serial observed from the server
func (s *Session) Serial() uint32 {
	return s.serial
}

// Interfaces returns the interface versions negotiated during the handshake
func (s *Session) Interfaces() map[string]uint32 {
	return s.interfaces
}

// Key queues a key state change. Nothing is written until Flush.
func (s *Session) Key(code uint32, pressed bool) error {
	if s.closed {
		return ErrClosed
	}
	state := ei.KeyStateReleased
	if pressed {
		state = ei.KeyStatePressed
	}
	s.keyboard.Key(code, state)
	return nil
}

// Frame queues a frame marker carrying the last observed serial
func (s *Session) Frame() error {
	if s.closed {
		return ErrClosed
	}
	s.device.Frame(s.serial, monotonicMicros())
	return nil
}

// Flush writes every queued request
func (s *Session) Flush() error {
	if s.closed {
		return ErrClosed
	}
	if err := s.c.Flush(); err != nil {
		return transportError("flush", err)
	}
	return nil
}

// Dispatch performs one non-blocking read and handles whatever it brought:
// pings are answered with done(0), keymap descriptors are closed and the
// session serial follows the server. A disconnect is returned as
// *DisconnectError.
func (s *Session) Dispatch() error {
	if s.closed {
		return ErrClosed
	}
	if err := s.c.Read(); err != nil {
		return transportError("read", err)
	}
	return s.drainBuffered()
}

// settle clears whatever the server sent right after start_emulating
// without blocking. Read failures are ignored here; the next Dispatch
// reports them.
func (s *Session) settle() error {
	if err := s.drainBuffered(); err != nil {
		return err
	}
	_ = s.c.Read()
	return s.drainBuffered()
}

func (s *Session) drainBuffered() error {
	for {
		ev, err := s.c.PendingEvent()
		if err != nil {
			var unknown *ei.UnknownObjectError
			if errors.As(err, &unknown) {
				s.log.Debug("skipping event for unknown object", "id", unknown.ID, "opcode", unknown.Opcode)
				continue
			}
			return parseError(err)
		}
		if ev == nil {
			break
		}
		if err := s.handle(ev); err != nil {
			return err
		}
	}
	s.serial = s.c.LastSerial()
	return s.Flush()
}

func (s *Session) handle(ev ei.Event) error {
	switch ev := ev.(type) {
	case *ei.PingEvent:
		s.log.Debug("responding to ping")
		ev.Ping.Done(0)
	case *ei.DisconnectedEvent:
		return &DisconnectError{LastSerial: ev.LastSerial, Reason: ev.Reason, Explanation: ev.Explanation}
	case *ei.KeymapEvent:
		_ = unix.Close(ev.FD)
	case *ei.DevicePausedEvent:
		if ev.Device.ID() == s.device.ID() {
			s.log.Warn("keyboard device paused by the compositor", "serial", ev.Serial)
		}
	case *ei.DeviceResumedEvent:
		if ev.Device.ID() == s.device.ID() {
			s.log.Debug("keyboard device resumed", "serial", ev.Serial)
		}
	case *ei.DeviceDestroyedEvent:
		if ev.Device.ID() == s.device.ID() {
			return fmt.Errorf("%w: keyboard device removed by the compositor", ErrNoKeyboardDevice)
		}
	}
	return nil
}

// Close stops emulating, says goodbye and closes the socket. It is safe to
// call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.device.StopEmulating(s.serial)
	s.connection.Disconnect()
	if err := s.c.Flush(); err != nil {
		s.log.Debug("failed to flush disconnect", "error", err)
	}
	return s.c.Close()
}

// monotonicMicros is the frame timestamp: CLOCK_MONOTONIC in microseconds
func monotonicMicros() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return uint64(ts.Nano() / 1000)
}
