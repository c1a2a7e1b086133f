package ei

import (
	"errors"
	"fmt"
	"io"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

const (
	readBufferSize = 4096
	// maxFDsPerRead bounds the SCM_RIGHTS payload accepted by one Read
	maxFDsPerRead = 16
)

// Conn is the transport a Context runs on. *net.UnixConn satisfies it.
type Conn interface {
	syscall.Conn
	io.Closer
}

// ParseError reports protocol data that could not be decoded. The stream
// cannot be resynchronised after a ParseError.
type ParseError struct {
	Object uint64
	Opcode uint32
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed message for object %d opcode %d: %v", e.Object, e.Opcode, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnknownObjectError reports an event addressed to an object id the
// client does not know. The message itself has been consumed.
type UnknownObjectError struct {
	ID     uint64
	Opcode uint32
}

func (e *UnknownObjectError) Error() string {
	return fmt.Sprintf("event opcode %d for unknown object %d", e.Opcode, e.ID)
}

// Context owns one client connection: buffered input, queued output and
// the registry of live protocol objects. It is not safe for concurrent use.
type Context struct {
	conn       Conn
	raw        syscall.RawConn
	readBuf    []byte
	oobBuf     []byte
	in         []byte
	fds        []int
	out        []byte
	objects    map[uint64]Object
	nextID     uint64
	lastSerial uint32
	handshake  *Handshake
}

// NewContext wraps an already connected socket
func NewContext(conn Conn) (*Context, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("failed to access socket: %w", err)
	}

	c := &Context{
		conn:    conn,
		raw:     raw,
		readBuf: make([]byte, readBufferSize),
		oobBuf:  make([]byte, unix.CmsgSpace(maxFDsPerRead*4)),
		objects: make(map[uint64]Object),
		nextID:  1,
	}
	c.handshake = &Handshake{proxy{ctx: c, id: HandshakeObjectID, iface: InterfaceHandshake, version: ProtocolVersion}}
	c.register(c.handshake)
	return c, nil
}

// Handshake returns the ei_handshake object
func (c *Context) Handshake() *Handshake {
	return c.handshake
}

// LastSerial returns the most recent serial carried by any decoded event
func (c *Context) LastSerial() uint32 {
	return c.lastSerial
}

// Read performs exactly one non-blocking receive. Having nothing to read is
// not an error. A closed peer is reported as io.EOF.
func (c *Context) Read() error {
	var n, oobn int
	var opErr error
	err := c.raw.Read(func(fd uintptr) bool {
		n, oobn, _, _, opErr = unix.Recvmsg(int(fd), c.readBuf, c.oobBuf, unix.MSG_CMSG_CLOEXEC|unix.MSG_DONTWAIT)
		return true
	})
	if err != nil {
		return err
	}
	if errors.Is(opErr, unix.EAGAIN) || errors.Is(opErr, unix.EINTR) {
		return nil
	}
	if opErr != nil {
		return opErr
	}

	if oobn > 0 {
		if err := c.collectFDs(c.oobBuf[:oobn]); err != nil {
			return err
		}
	}
	if n == 0 {
		return io.EOF
	}
	c.in = append(c.in, c.readBuf[:n]...)
	return nil
}

func (c *Context) collectFDs(oob []byte) error {
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return fmt.Errorf("failed to parse control message: %w", err)
	}
	for i := range msgs {
		fds, err := unix.ParseUnixRights(&msgs[i])
		if err != nil {
			continue
		}
		c.fds = append(c.fds, fds...)
	}
	return nil
}

func (c *Context) takeFD() (int, bool) {
	if len(c.fds) == 0 {
		return -1, false
	}
	fd := c.fds[0]
	c.fds = c.fds[1:]
	return fd, true
}

// Flush writes every queued request, waiting for the socket to become
// writable if needed.
func (c *Context) Flush() error {
	for len(c.out) > 0 {
		var n int
		var opErr error
		err := c.raw.Write(func(fd uintptr) bool {
			n, opErr = unix.SendmsgN(int(fd), c.out, nil, nil, unix.MSG_NOSIGNAL|unix.MSG_DONTWAIT)
			return !errors.Is(opErr, unix.EAGAIN) && !errors.Is(opErr, unix.EINTR)
		})
		if err != nil {
			return err
		}
		if opErr != nil {
			return opErr
		}
		c.out = c.out[n:]
	}
	c.out = nil
	return nil
}

// Pending reports whether requests are queued but not yet flushed
func (c *Context) Pending() bool {
	return len(c.out) > 0
}

// Poll waits up to timeout for the socket to become readable. An
// interrupted poll is returned as unix.EINTR.
func (c *Context) Poll(timeout time.Duration) (bool, error) {
	var ready bool
	var opErr error
	err := c.raw.Control(func(fd uintptr) {
		pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		var n int
		n, opErr = unix.Poll(pfd, int(timeout.Milliseconds()))
		ready = n > 0
	})
	if err != nil {
		return false, err
	}
	if opErr != nil {
		return false, opErr
	}
	return ready, nil
}

// WaitReadable is Poll with one retry when a signal interrupts the wait
func (c *Context) WaitReadable(timeout time.Duration) (bool, error) {
	ready, err := c.Poll(timeout)
	if errors.Is(err, unix.EINTR) {
		ready, err = c.Poll(timeout)
	}
	return ready, err
}

// PendingEvent decodes the next fully buffered event. It returns (nil, nil)
// when no complete message is buffered, a *ParseError for malformed data and
// an *UnknownObjectError for events addressed to unknown objects.
func (c *Context) PendingEvent() (Event, error) {
	if len(c.in) < HeaderSize {
		return nil, nil
	}
	h, err := ParseHeader(c.in)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	if len(c.in) < int(h.Length) {
		return nil, nil
	}
	args := c.in[HeaderSize:h.Length]
	c.in = c.in[h.Length:]
	if len(c.in) == 0 {
		c.in = nil
	}

	obj, ok := c.objects[h.Object]
	if !ok {
		return nil, &UnknownObjectError{ID: h.Object, Opcode: h.Opcode}
	}
	ev, err := c.decode(obj, h.Opcode, NewArgReader(args))
	if err != nil {
		return nil, &ParseError{Object: h.Object, Opcode: h.Opcode, Err: err}
	}
	return ev, nil
}

// Close closes the socket and any received but unclaimed descriptors
func (c *Context) Close() error {
	for _, fd := range c.fds {
		_ = unix.Close(fd)
	}
	c.fds = nil
	return c.conn.Close()
}

func (c *Context) enqueue(msg []byte) {
	c.out = append(c.out, msg...)
}

func (c *Context) allocateID() uint64 {
	id := c.nextID
	c.nextID++
	return id
}

func (c *Context) register(obj Object) {
	c.objects[obj.ID()] = obj
}

func (c *Context) unregister(id uint64) {
	delete(c.objects, id)
}

func (c *Context) observeSerial(serial uint32) {
	c.lastSerial = serial
}
