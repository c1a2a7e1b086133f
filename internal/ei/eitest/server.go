// Package eitest provides a scripted EIS server for tests. It speaks the
// server side of the wire format over one end of a socketpair.
package eitest

import (
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/bnema/eitype/internal/ei"
	"golang.org/x/sys/unix"
)

// FirstServerID is the first id a server allocates for its own objects
const FirstServerID uint64 = 0xff00000000000000

// Request is one decoded client request
type Request struct {
	Object uint64
	Opcode uint32
	Args   []byte
}

// Reader returns an argument reader over the request body
func (r Request) Reader() *ei.ArgReader {
	return ei.NewArgReader(r.Args)
}

// Server is the server end of a socketpair
type Server struct {
	t      testing.TB
	conn   *net.UnixConn
	nextID uint64
}

// NewPair returns a connected client socket and a Server on the other end.
// Both are closed when the test ends.
func NewPair(t testing.TB) (*net.UnixConn, *Server) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	client := fileConn(t, fds[0])
	server := fileConn(t, fds[1])
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return client, &Server{t: t, conn: server, nextID: FirstServerID}
}

func fileConn(t testing.TB, fd int) *net.UnixConn {
	t.Helper()
	f := os.NewFile(uintptr(fd), "socketpair")
	defer f.Close()
	c, err := net.FileConn(f)
	if err != nil {
		t.Fatalf("file conn: %v", err)
	}
	return c.(*net.UnixConn)
}

// NewID allocates a server-side object id
func (s *Server) NewID() uint64 {
	id := s.nextID
	s.nextID++
	return id
}

// Send writes one event
func (s *Server) Send(object uint64, opcode uint32, args *ei.MessageBuilder) {
	s.t.Helper()
	if args == nil {
		args = &ei.MessageBuilder{}
	}
	if _, err := s.conn.Write(args.Bytes(object, opcode)); err != nil {
		s.t.Fatalf("server write: %v", err)
	}
}

// SendRaw writes arbitrary bytes, for fragmentation and corruption tests
func (s *Server) SendRaw(b []byte) {
	s.t.Helper()
	if _, err := s.conn.Write(b); err != nil {
		s.t.Fatalf("server write: %v", err)
	}
}

// SendWithFD writes one event and passes fd alongside it
func (s *Server) SendWithFD(object uint64, opcode uint32, args *ei.MessageBuilder, fd int) {
	s.t.Helper()
	if _, _, err := s.conn.WriteMsgUnix(args.Bytes(object, opcode), unix.UnixRights(fd), nil); err != nil {
		s.t.Fatalf("server write with fd: %v", err)
	}
}

// ReadRequest reads the next client request, failing the test after timeout
func (s *Server) ReadRequest(timeout time.Duration) Request {
	s.t.Helper()
	req, err := s.TryReadRequest(timeout)
	if err != nil {
		s.t.Fatalf("server read: %v", err)
	}
	return req
}

// TryReadRequest reads the next client request or returns an error
func (s *Server) TryReadRequest(timeout time.Duration) (Request, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return Request{}, err
	}
	hdr := make([]byte, ei.HeaderSize)
	if _, err := io.ReadFull(s.conn, hdr); err != nil {
		return Request{}, err
	}
	h, err := ei.ParseHeader(hdr)
	if err != nil {
		return Request{}, err
	}
	args := make([]byte, int(h.Length)-ei.HeaderSize)
	if _, err := io.ReadFull(s.conn, args); err != nil {
		return Request{}, err
	}
	return Request{Object: h.Object, Opcode: h.Opcode, Args: args}, nil
}

// ReadUntil reads requests until match returns true and returns every
// request read, including the matching one
func (s *Server) ReadUntil(timeout time.Duration, match func(Request) bool) []Request {
	s.t.Helper()
	deadline := time.Now().Add(timeout)
	var reqs []Request
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			s.t.Fatalf("no matching request within %s (read %d requests)", timeout, len(reqs))
		}
		req := s.ReadRequest(remaining)
		reqs = append(reqs, req)
		if match(req) {
			return reqs
		}
	}
}

// Close closes the server end, which the client observes as EOF
func (s *Server) Close() error {
	return s.conn.Close()
}

// Handshake plays the server side of the handshake and returns the id of
// the ei_connection object.
func (s *Server) Handshake(timeout time.Duration, serial uint32) uint64 {
	s.t.Helper()
	s.Send(ei.HandshakeObjectID, 0, new(ei.MessageBuilder).PutUint32(1))
	s.ReadUntil(timeout, func(r Request) bool {
		return r.Object == ei.HandshakeObjectID && r.Opcode == 1
	})
	s.Send(ei.HandshakeObjectID, 1, new(ei.MessageBuilder).PutString(ei.InterfaceKeyboard).PutUint32(1))
	conn := s.NewID()
	s.Send(ei.HandshakeObjectID, 2, new(ei.MessageBuilder).PutUint32(serial).PutUint64(conn).PutUint32(1))
	return conn
}

// Ping sends an ei_connection.ping and returns the ei_pingpong id
func (s *Server) Ping(conn uint64) uint64 {
	s.t.Helper()
	id := s.NewID()
	s.Send(conn, 3, new(ei.MessageBuilder).PutUint64(id).PutUint32(1))
	return id
}

// Disconnect sends ei_connection.disconnected
func (s *Server) Disconnect(conn uint64, serial uint32, reason ei.DisconnectReason, explanation string) {
	s.t.Helper()
	s.Send(conn, 0, new(ei.MessageBuilder).PutUint32(serial).PutUint32(uint32(reason)).PutString(explanation))
}

// Seat announces a seat with the given capabilities followed by done and
// returns the seat id
func (s *Server) Seat(conn uint64, caps map[string]uint64) uint64 {
	s.t.Helper()
	seat := s.NewID()
	s.Send(conn, 1, new(ei.MessageBuilder).PutUint64(seat).PutUint32(1))
	s.Send(seat, 1, new(ei.MessageBuilder).PutString("default"))
	for _, iface := range sortedKeys(caps) {
		s.Send(seat, 2, new(ei.MessageBuilder).PutUint64(caps[iface]).PutString(iface))
	}
	s.Send(seat, 3, nil)
	return seat
}

// Device announces a device with the given sub-interfaces followed by done.
// It returns the device id and the ids of the sub-interfaces by name.
func (s *Server) Device(seat uint64, name string, interfaces ...string) (uint64, map[string]uint64) {
	s.t.Helper()
	device := s.NewID()
	s.Send(seat, 4, new(ei.MessageBuilder).PutUint64(device).PutUint32(1))
	s.Send(device, 1, new(ei.MessageBuilder).PutString(name))
	s.Send(device, 2, new(ei.MessageBuilder).PutUint32(1))
	ids := make(map[string]uint64, len(interfaces))
	for _, iface := range interfaces {
		id := s.NewID()
		ids[iface] = id
		s.Send(device, 5, new(ei.MessageBuilder).PutUint64(id).PutString(iface).PutUint32(1))
	}
	s.Send(device, 6, nil)
	return device, ids
}

// Resume sends ei_device.resumed
func (s *Server) Resume(device uint64, serial uint32) {
	s.t.Helper()
	s.Send(device, 7, new(ei.MessageBuilder).PutUint32(serial))
}

// Keymap sends ei_keyboard.keymap backed by a pipe
func (s *Server) Keymap(keyboard uint64) {
	s.t.Helper()
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC); err != nil {
		s.t.Fatalf("pipe: %v", err)
	}
	defer unix.Close(p[0])
	defer unix.Close(p[1])
	s.SendWithFD(keyboard, 1, new(ei.MessageBuilder).PutUint32(uint32(ei.KeymapTypeXKB)).PutUint32(64), p[0])
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return m[keys[i]] < m[keys[j]] })
	return keys
}

// String renders a request for test failure messages
func (r Request) String() string {
	return fmt.Sprintf("object=%#x opcode=%d len=%d", r.Object, r.Opcode, len(r.Args))
}
