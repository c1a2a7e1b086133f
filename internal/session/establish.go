package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"time"

	"github.com/bnema/eitype/internal/ei"
	"github.com/charmbracelet/log"
	"golang.org/x/sys/unix"
)

// Default establishment parameters
const (
	DefaultName            = "ei-type"
	DefaultPollInterval    = 500 * time.Millisecond
	DefaultMaxPollTimeouts = 10
)

// DeviceSelection decides which keyboard device wins when the server
// announces more than one
type DeviceSelection string

const (
	// SelectLast uses the last keyboard device whose announcement completed
	SelectLast DeviceSelection = "last"
	// SelectFirst keeps the first keyboard device and ignores later ones
	SelectFirst DeviceSelection = "first"
)

// ParseDeviceSelection validates a device selection name
func ParseDeviceSelection(s string) (DeviceSelection, error) {
	switch DeviceSelection(s) {
	case "", SelectLast:
		return SelectLast, nil
	case SelectFirst:
		return SelectFirst, nil
	}
	return "", fmt.Errorf("invalid device selection %q (want %q or %q)", s, SelectLast, SelectFirst)
}

// Options configures Establish. Zero fields take the defaults above.
type Options struct {
	Name            string
	PollInterval    time.Duration
	MaxPollTimeouts int
	DeviceSelection DeviceSelection
	// Logger receives diagnostics. Nil discards them.
	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.MaxPollTimeouts <= 0 {
		o.MaxPollTimeouts = DefaultMaxPollTimeouts
	}
	if o.DeviceSelection == "" {
		o.DeviceSelection = SelectLast
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}

// capabilityMask accumulates one seat's capability announcements until the
// seat reports done
type capabilityMask struct {
	bits map[string]uint64
}

func (m *capabilityMask) add(iface string, mask uint64) {
	if m.bits == nil {
		m.bits = make(map[string]uint64)
	}
	m.bits[iface] = mask
}

func (m *capabilityMask) union() uint64 {
	var all uint64
	for _, bit := range m.bits {
		all |= bit
	}
	return all
}

func (m *capabilityMask) has(iface string) bool {
	_, ok := m.bits[iface]
	return ok
}

// deviceRecord collects the sub-interfaces announced for one device
type deviceRecord struct {
	device     *ei.Device
	interfaces map[string]ei.Object
	done       bool
}

func newDeviceRecord(d *ei.Device) *deviceRecord {
	return &deviceRecord{device: d, interfaces: make(map[string]ei.Object)}
}

func (r *deviceRecord) keyboard() *ei.Keyboard {
	kb, _ := r.interfaces[ei.InterfaceKeyboard].(*ei.Keyboard)
	return kb
}

// establisher is the state of one Establish call
type establisher struct {
	c    *ei.Context
	opts Options
	log  *log.Logger

	seats   map[uint64]*capabilityMask
	devices map[uint64]*deviceRecord

	// selected keyboard device, set once its announcement is done
	keyboard    *ei.Keyboard
	device      *ei.Device
	resumed     bool
	devicesDone int

	seatsDone    int
	keyboardSeat bool
}

// Establish runs the handshake on conn, binds every capability the seat
// offers and waits until a keyboard device is resumed. It then starts
// emulating on that device. Establish owns conn: it is closed on failure
// and by Session.Close on success.
func Establish(ctx context.Context, conn ei.Conn, opts Options) (*Session, error) {
	opts = opts.withDefaults()

	c, err := ei.NewContext(conn)
	if err != nil {
		_ = conn.Close()
		return nil, transportError("setup", err)
	}

	s, err := establish(ctx, c, opts)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return s, nil
}

func establish(ctx context.Context, c *ei.Context, opts Options) (*Session, error) {
	l := opts.Logger
	l.Debug("starting handshake", "name", opts.Name)

	budget := opts.PollInterval * time.Duration(opts.MaxPollTimeouts)
	hctx, cancel := context.WithTimeout(ctx, budget)
	res, err := ei.PerformHandshake(hctx, c, opts.Name, ei.ContextTypeSender, opts.PollInterval)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}
	l.Debug("handshake complete", "serial", res.Serial, "interfaces", res.NegotiatedInterfaces)

	// The sync is flushed together with answers to any pings that arrived
	// with the handshake
	res.Connection.Sync(1)

	e := &establisher{
		c:       c,
		opts:    opts,
		log:     l,
		seats:   make(map[uint64]*capabilityMask),
		devices: make(map[uint64]*deviceRecord),
	}
	if err := e.drain(ctx); err != nil {
		return nil, err
	}

	l.Debug("keyboard device ready", "device", e.device.ID(), "serial", c.LastSerial())
	e.device.StartEmulating(c.LastSerial(), 0)
	if err := c.Flush(); err != nil {
		return nil, transportError("flush", err)
	}

	s := &Session{
		c:          c,
		connection: res.Connection,
		keyboard:   e.keyboard,
		device:     e.device,
		serial:     c.LastSerial(),
		interfaces: maps.Clone(res.NegotiatedInterfaces),
		log:        l,
	}
	if err := s.settle(); err != nil {
		return nil, err
	}
	l.Debug("ready to type")
	return s, nil
}

// drain processes events until a keyboard device is ready. Readiness is
// only judged once every buffered event has been handled, so a resume
// followed by a pause in the same read does not count. Only then does it
// flush and poll.
func (e *establisher) drain(ctx context.Context) error {
	emptyPolls := 0
	for {
		ev, err := e.c.PendingEvent()
		if err != nil {
			var unknown *ei.UnknownObjectError
			if errors.As(err, &unknown) {
				e.log.Debug("skipping event for unknown object", "id", unknown.ID, "opcode", unknown.Opcode)
				continue
			}
			return parseError(err)
		}
		if ev != nil {
			if err := e.handle(ev); err != nil {
				return err
			}
			emptyPolls = 0
			continue
		}
		if e.ready() {
			return nil
		}

		if err := e.c.Flush(); err != nil {
			return transportError("flush", err)
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		}

		readable, err := e.c.WaitReadable(e.opts.PollInterval)
		if err != nil {
			return transportError("poll", err)
		}
		if !readable {
			emptyPolls++
			e.log.Debug("poll timeout", "count", emptyPolls, "max", e.opts.MaxPollTimeouts)
			if emptyPolls >= e.opts.MaxPollTimeouts {
				return e.timeoutError()
			}
			continue
		}
		if err := e.c.Read(); err != nil {
			return transportError("read", err)
		}
	}
}

// timeoutError reports an exhausted poll budget. Negotiation that finished
// without any keyboard is ErrNoKeyboardDevice rather than ErrTimeout.
func (e *establisher) timeoutError() error {
	if e.seatsDone > 0 && !e.keyboardSeat {
		return fmt.Errorf("%w: %d seat(s) announced without %s", ErrNoKeyboardDevice, e.seatsDone, ei.InterfaceKeyboard)
	}
	if e.devicesDone > 0 && e.keyboard == nil {
		return fmt.Errorf("%w: %d device(s) announced without %s", ErrNoKeyboardDevice, e.devicesDone, ei.InterfaceKeyboard)
	}
	budget := e.opts.PollInterval * time.Duration(e.opts.MaxPollTimeouts)
	return fmt.Errorf("%w: no response in %s", ErrTimeout, budget)
}

func (e *establisher) ready() bool {
	return e.keyboard != nil && e.resumed
}

func (e *establisher) handle(ev ei.Event) error {
	switch ev := ev.(type) {
	case *ei.DisconnectedEvent:
		return &DisconnectError{LastSerial: ev.LastSerial, Reason: ev.Reason, Explanation: ev.Explanation}

	case *ei.PingEvent:
		e.log.Debug("responding to ping")
		ev.Ping.Done(0)
		if err := e.c.Flush(); err != nil {
			return transportError("flush", err)
		}

	case *ei.SeatAddedEvent:
		e.log.Debug("seat announced", "seat", ev.Seat.ID())
		e.seats[ev.Seat.ID()] = &capabilityMask{}

	case *ei.SeatNameEvent:
		e.log.Debug("seat name", "seat", ev.Seat.ID(), "name", ev.Name)

	case *ei.SeatCapabilityEvent:
		e.log.Debug("seat capability", "interface", ev.Interface, "mask", ev.Mask)
		e.seat(ev.Seat).add(ev.Interface, ev.Mask)

	case *ei.SeatDoneEvent:
		caps := e.seat(ev.Seat)
		e.seatsDone++
		if caps.has(ei.InterfaceKeyboard) {
			e.keyboardSeat = true
		} else {
			e.log.Debug("seat does not offer a keyboard", "seat", ev.Seat.ID())
		}
		mask := caps.union()
		e.log.Debug("binding all capabilities", "seat", ev.Seat.ID(), "mask", mask)
		ev.Seat.Bind(mask)
		if err := e.c.Flush(); err != nil {
			return transportError("flush", err)
		}

	case *ei.SeatDestroyedEvent:
		delete(e.seats, ev.Seat.ID())

	case *ei.DeviceAddedEvent:
		e.log.Debug("device announced", "device", ev.Device.ID())
		e.devices[ev.Device.ID()] = newDeviceRecord(ev.Device)

	case *ei.DeviceNameEvent:
		e.log.Debug("device name", "device", ev.Device.ID(), "name", ev.Name)

	case *ei.DeviceInterfaceEvent:
		e.log.Debug("device interface", "device", ev.Device.ID(), "interface", ev.Object.Interface())
		if rec := e.devices[ev.Device.ID()]; rec != nil {
			rec.interfaces[ev.Object.Interface()] = ev.Object
		}

	case *ei.DeviceDoneEvent:
		rec := e.devices[ev.Device.ID()]
		if rec == nil {
			return nil
		}
		rec.done = true
		e.devicesDone++
		e.selectDevice(rec)

	case *ei.DeviceResumedEvent:
		e.log.Debug("device resumed", "device", ev.Device.ID(), "serial", ev.Serial)
		if e.device != nil && ev.Device.ID() == e.device.ID() {
			e.resumed = true
		}

	case *ei.DevicePausedEvent:
		e.log.Debug("device paused", "device", ev.Device.ID(), "serial", ev.Serial)
		if e.device != nil && ev.Device.ID() == e.device.ID() {
			e.resumed = false
		}

	case *ei.DeviceDestroyedEvent:
		delete(e.devices, ev.Device.ID())
		if e.device != nil && ev.Device.ID() == e.device.ID() {
			e.log.Debug("selected device destroyed", "device", ev.Device.ID())
			e.device, e.keyboard, e.resumed = nil, nil, false
		}

	case *ei.KeymapEvent:
		e.log.Debug("keymap received", "type", ev.Type, "size", ev.Size)
		_ = unix.Close(ev.FD)

	case *ei.CallbackDoneEvent:
		e.log.Debug("sync done")
	}
	return nil
}

func (e *establisher) seat(s *ei.Seat) *capabilityMask {
	caps, ok := e.seats[s.ID()]
	if !ok {
		caps = &capabilityMask{}
		e.seats[s.ID()] = caps
	}
	return caps
}

func (e *establisher) selectDevice(rec *deviceRecord) {
	kb := rec.keyboard()
	if kb == nil {
		e.log.Debug("device has no keyboard", "device", rec.device.ID())
		return
	}
	if e.keyboard != nil && e.opts.DeviceSelection == SelectFirst {
		e.log.Debug("ignoring additional keyboard device", "device", rec.device.ID())
		return
	}
	e.log.Debug("keyboard device found", "device", rec.device.ID())
	e.keyboard = kb
	e.device = rec.device
	e.resumed = false
}
