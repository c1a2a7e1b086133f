package ei

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// DefaultHandshakePollInterval is used when PerformHandshake is given a
// non-positive poll interval
const DefaultHandshakePollInterval = 100 * time.Millisecond

// HandshakeResult is what the server hands back once the handshake is done
type HandshakeResult struct {
	Serial               uint32
	Connection           *Connection
	NegotiatedInterfaces map[string]uint32
}

// PerformHandshake runs the blocking ei_handshake exchange: it waits for the
// server version, announces the client, and returns once the server creates
// the ei_connection object. Events that arrive in the same read as the
// connection event stay buffered in c. ctx is checked between polls of
// pollInterval.
func PerformHandshake(ctx context.Context, c *Context, name string, contextType ContextType, pollInterval time.Duration) (*HandshakeResult, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultHandshakePollInterval
	}
	negotiated := make(map[string]uint32)

	for {
		ev, err := c.PendingEvent()
		if err != nil {
			var unknown *UnknownObjectError
			if errors.As(err, &unknown) {
				continue
			}
			return nil, err
		}

		if ev == nil {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("handshake did not complete: %w", err)
			}
			ready, err := c.WaitReadable(pollInterval)
			if err != nil {
				return nil, err
			}
			if !ready {
				continue
			}
			if err := c.Read(); err != nil {
				if errors.Is(err, io.EOF) {
					return nil, fmt.Errorf("server closed the connection during handshake: %w", err)
				}
				return nil, err
			}
			continue
		}

		switch e := ev.(type) {
		case *HandshakeVersionEvent:
			version := min(e.Version, ProtocolVersion)
			if version == 0 {
				return nil, fmt.Errorf("server offered handshake version %d", e.Version)
			}
			hs := c.Handshake()
			hs.HandshakeVersion(version)
			hs.Name(name)
			hs.ContextType(contextType)
			for _, iface := range sortedInterfaces() {
				hs.InterfaceVersion(iface, SupportedInterfaces[iface])
			}
			hs.Finish()
			if err := c.Flush(); err != nil {
				return nil, err
			}
		case *InterfaceVersionEvent:
			negotiated[e.Name] = e.Version
		case *ConnectionEvent:
			return &HandshakeResult{
				Serial:               e.Serial,
				Connection:           e.Connection,
				NegotiatedInterfaces: negotiated,
			}, nil
		case *DisconnectedEvent:
			return nil, fmt.Errorf("server disconnected during handshake: %s: %s", e.Reason, e.Explanation)
		}
	}
}

// sortedInterfaces returns the announced interfaces in a stable order with
// ei_connection first, since the server needs it to create the connection.
func sortedInterfaces() []string {
	return []string{
		InterfaceConnection,
		InterfaceCallback,
		InterfacePingpong,
		InterfaceSeat,
		InterfaceDevice,
		InterfacePointer,
		InterfacePointerAbsolute,
		InterfaceScroll,
		InterfaceButton,
		InterfaceKeyboard,
		InterfaceTouchscreen,
	}
}
