package session

import (
	"errors"
	"fmt"
	"io"

	"github.com/bnema/eitype/internal/ei"
	"golang.org/x/sys/unix"
)

var (
	// ErrHandshakeFailed is returned when the protocol handshake does not complete
	ErrHandshakeFailed = errors.New("handshake failed")
	// ErrTimeout is returned when establishment runs out of its poll budget
	ErrTimeout = errors.New("timed out waiting for EIS events")
	// ErrServerDisconnected is matched by every *DisconnectError
	ErrServerDisconnected = errors.New("server disconnected")
	// ErrParse is returned for malformed protocol data
	ErrParse = errors.New("protocol parse error")
	// ErrNoKeyboardDevice is returned when negotiation finished without a keyboard
	ErrNoKeyboardDevice = errors.New("no keyboard device")
	// ErrTransport wraps read, write and poll failures on the socket
	ErrTransport = errors.New("transport error")
	// ErrClosed is returned when a closed session is used
	ErrClosed = errors.New("session closed")
)

// DisconnectError carries what the server said when it disconnected us
type DisconnectError struct {
	LastSerial  uint32
	Reason      ei.DisconnectReason
	Explanation string
}

func (e *DisconnectError) Error() string {
	if e.Explanation == "" {
		return fmt.Sprintf("server disconnected (reason: %s, serial: %d)", e.Reason, e.LastSerial)
	}
	return fmt.Sprintf("server disconnected (reason: %s, serial: %d): %s", e.Reason, e.LastSerial, e.Explanation)
}

// Is makes errors.Is(err, ErrServerDisconnected) hold
func (e *DisconnectError) Is(target error) bool {
	return target == ErrServerDisconnected
}

// transportError classifies a socket failure. A peer that went away (EOF,
// EPIPE, ECONNRESET) is reported as ErrServerDisconnected, anything else as
// ErrTransport.
func transportError(op string, err error) error {
	if peerGone(err) {
		return fmt.Errorf("%w: %s: %w", ErrServerDisconnected, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
}

func peerGone(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, unix.EPIPE) || errors.Is(err, unix.ECONNRESET)
}

func parseError(err error) error {
	return fmt.Errorf("%w: %w", ErrParse, err)
}
