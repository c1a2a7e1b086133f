// Package portal obtains the EIS socket: from KWin over the session bus,
// or from a socket path following the libei LIBEI_SOCKET convention
package portal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/godbus/dbus/v5"
)

const (
	kwinService = "org.kde.KWin"
	kwinPath    = dbus.ObjectPath("/org/kde/KWin/EIS/RemoteDesktop")
	kwinMethod  = "org.kde.KWin.EIS.RemoteDesktop.connectToEIS"

	// EnvSocket names the socket libei clients connect to when set
	EnvSocket = "LIBEI_SOCKET"

	// DefaultCapabilities asks KWin for every device type
	DefaultCapabilities int32 = 63
)

var (
	// ErrNoSocket is returned when no socket path is configured
	ErrNoSocket = errors.New("no EIS socket configured")
	// ErrKWinUnavailable is returned when KWin does not hand out a socket
	ErrKWinUnavailable = errors.New("KWin EIS interface unavailable")
)

// Handoff is an open EIS socket plus whatever must stay alive with it
type Handoff struct {
	Conn *net.UnixConn
	// Cookie identifies the EIS client to KWin. Zero for plain sockets.
	Cookie int32
	// Source describes where the socket came from, for diagnostics
	Source string

	bus *dbus.Conn
}

// Close releases the session bus connection. KWin tears the EIS client
// down when it goes, so call it after the session is finished. Conn is not
// closed here.
func (h *Handoff) Close() error {
	if h.bus == nil {
		return nil
	}
	err := h.bus.Close()
	h.bus = nil
	return err
}

// Connect uses socket, or $LIBEI_SOCKET, when set and asks KWin otherwise
func Connect(ctx context.Context, socket string, caps int32) (*Handoff, error) {
	if socket == "" {
		socket = os.Getenv(EnvSocket)
	}
	if socket != "" {
		return ConnectSocket(socket)
	}
	return ConnectKWin(ctx, caps)
}

// ConnectKWin calls connectToEIS on KWin and wraps the returned descriptor.
// The private bus connection is kept in the Handoff.
func ConnectKWin(ctx context.Context, caps int32) (*Handoff, error) {
	bus, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	var fd dbus.UnixFD
	var cookie int32
	call := bus.Object(kwinService, kwinPath).CallWithContext(ctx, kwinMethod, 0, caps)
	if err := call.Store(&fd, &cookie); err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("%w: %w", ErrKWinUnavailable, err)
	}

	conn, err := unixConnFromFD(int(fd), "kwin-eis")
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	return &Handoff{Conn: conn, Cookie: cookie, Source: kwinService, bus: bus}, nil
}

// ConnectSocket dials an EIS socket. Relative paths are resolved against
// $XDG_RUNTIME_DIR.
func ConnectSocket(path string) (*Handoff, error) {
	resolved, err := ResolveSocketPath(path)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: resolved, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", resolved, err)
	}
	return &Handoff{Conn: conn, Source: resolved}, nil
}

// ResolveSocketPath returns the absolute socket path for path
func ResolveSocketPath(path string) (string, error) {
	if path == "" {
		return "", ErrNoSocket
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return "", fmt.Errorf("cannot resolve socket %q: XDG_RUNTIME_DIR is not set", path)
	}
	return filepath.Join(runtimeDir, path), nil
}

// unixConnFromFD takes ownership of fd
func unixConnFromFD(fd int, name string) (*net.UnixConn, error) {
	f := os.NewFile(uintptr(fd), name)
	if f == nil {
		return nil, fmt.Errorf("invalid descriptor %d", fd)
	}
	defer f.Close()

	c, err := net.FileConn(f)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap EIS descriptor: %w", err)
	}
	uc, ok := c.(*net.UnixConn)
	if !ok {
		_ = c.Close()
		return nil, fmt.Errorf("EIS descriptor is not a unix socket")
	}
	return uc, nil
}
