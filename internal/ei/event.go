package ei

import "fmt"

// Event is a decoded server event
type Event interface {
	Sender() Object
}

// HandshakeVersionEvent is the first message sent by the server
type HandshakeVersionEvent struct {
	Handshake *Handshake
	Version   uint32
}

// InterfaceVersionEvent reports the negotiated version of one interface
type InterfaceVersionEvent struct {
	Handshake *Handshake
	Name      string
	Version   uint32
}

// ConnectionEvent completes the handshake
type ConnectionEvent struct {
	Handshake  *Handshake
	Serial     uint32
	Connection *Connection
	Version    uint32
}

// DisconnectedEvent is the last event a server sends before closing
type DisconnectedEvent struct {
	Connection  *Connection
	LastSerial  uint32
	Reason      DisconnectReason
	Explanation string
}

// SeatAddedEvent announces a new seat
type SeatAddedEvent struct {
	Connection *Connection
	Seat       *Seat
}

// InvalidObjectEvent reports a request sent to an object the server no
// longer knows about
type InvalidObjectEvent struct {
	Connection *Connection
	LastSerial uint32
	ObjectID   uint64
}

// PingEvent is a keep-alive probe that must be answered with Pingpong.Done
type PingEvent struct {
	Connection *Connection
	Ping       *Pingpong
}

// CallbackDoneEvent fires once for every Connection.Sync
type CallbackDoneEvent struct {
	Callback *Callback
	Data     uint64
}

// SeatDestroyedEvent removes a seat
type SeatDestroyedEvent struct {
	Seat   *Seat
	Serial uint32
}

// SeatNameEvent carries the human readable seat name
type SeatNameEvent struct {
	Seat *Seat
	Name string
}

// SeatCapabilityEvent announces one capability of a seat and the bit the
// client must use to bind it
type SeatCapabilityEvent struct {
	Seat      *Seat
	Mask      uint64
	Interface string
}

// SeatDoneEvent ends the capability announcement of a seat
type SeatDoneEvent struct {
	Seat *Seat
}

// DeviceAddedEvent announces a new device on a seat
type DeviceAddedEvent struct {
	Seat   *Seat
	Device *Device
}

// DeviceDestroyedEvent removes a device
type DeviceDestroyedEvent struct {
	Device *Device
	Serial uint32
}

// DeviceNameEvent carries the human readable device name
type DeviceNameEvent struct {
	Device *Device
	Name   string
}

// DeviceTypeEvent tells whether the device is virtual or physical
type DeviceTypeEvent struct {
	Device *Device
	Type   uint32
}

// DeviceDimensionsEvent carries the size of a physical device
type DeviceDimensionsEvent struct {
	Device        *Device
	Width, Height uint32
}

// DeviceRegionEvent describes one region of an absolute pointer device
type DeviceRegionEvent struct {
	Device                          *Device
	OffsetX, OffsetY, Width, Height uint32
	Scale                           float32
}

// DeviceInterfaceEvent announces one sub-interface of a device
type DeviceInterfaceEvent struct {
	Device *Device
	Object Object
}

// DeviceDoneEvent ends the announcement of a device
type DeviceDoneEvent struct {
	Device *Device
}

// DeviceResumedEvent allows the client to emulate input on a device
type DeviceResumedEvent struct {
	Device *Device
	Serial uint32
}

// DevicePausedEvent stops the client from emulating input on a device
type DevicePausedEvent struct {
	Device *Device
	Serial uint32
}

// KeyboardDestroyedEvent removes a keyboard
type KeyboardDestroyedEvent struct {
	Keyboard *Keyboard
	Serial   uint32
}

// KeymapEvent hands over the keymap of a keyboard. The receiver owns FD
// and must close it.
type KeymapEvent struct {
	Keyboard *Keyboard
	Type     KeymapType
	Size     uint32
	FD       int
}

// KeyboardModifiersEvent reports the server-side modifier state
type KeyboardModifiersEvent struct {
	Keyboard                          *Keyboard
	Serial                            uint32
	Depressed, Locked, Latched, Group uint32
}

// UnknownEvent is any event this client does not decode
type UnknownEvent struct {
	Object Object
	Opcode uint32
}

func (e *HandshakeVersionEvent) Sender() Object  { return e.Handshake }
func (e *InterfaceVersionEvent) Sender() Object  { return e.Handshake }
func (e *ConnectionEvent) Sender() Object        { return e.Handshake }
func (e *DisconnectedEvent) Sender() Object      { return e.Connection }
func (e *SeatAddedEvent) Sender() Object         { return e.Connection }
func (e *InvalidObjectEvent) Sender() Object     { return e.Connection }
func (e *PingEvent) Sender() Object              { return e.Connection }
func (e *CallbackDoneEvent) Sender() Object      { return e.Callback }
func (e *SeatDestroyedEvent) Sender() Object     { return e.Seat }
func (e *SeatNameEvent) Sender() Object          { return e.Seat }
func (e *SeatCapabilityEvent) Sender() Object    { return e.Seat }
func (e *SeatDoneEvent) Sender() Object          { return e.Seat }
func (e *DeviceAddedEvent) Sender() Object       { return e.Seat }
func (e *DeviceDestroyedEvent) Sender() Object   { return e.Device }
func (e *DeviceNameEvent) Sender() Object        { return e.Device }
func (e *DeviceTypeEvent) Sender() Object        { return e.Device }
func (e *DeviceDimensionsEvent) Sender() Object  { return e.Device }
func (e *DeviceRegionEvent) Sender() Object      { return e.Device }
func (e *DeviceInterfaceEvent) Sender() Object   { return e.Device }
func (e *DeviceDoneEvent) Sender() Object        { return e.Device }
func (e *DeviceResumedEvent) Sender() Object     { return e.Device }
func (e *DevicePausedEvent) Sender() Object      { return e.Device }
func (e *KeyboardDestroyedEvent) Sender() Object { return e.Keyboard }
func (e *KeymapEvent) Sender() Object            { return e.Keyboard }
func (e *KeyboardModifiersEvent) Sender() Object { return e.Keyboard }
func (e *UnknownEvent) Sender() Object           { return e.Object }

// decode turns one message addressed to obj into a typed event. Objects
// created by the event are registered as a side effect.
func (c *Context) decode(obj Object, opcode uint32, r *ArgReader) (Event, error) {
	var ev Event
	switch o := obj.(type) {
	case *Handshake:
		ev = c.decodeHandshake(o, opcode, r)
	case *Connection:
		ev = c.decodeConnection(o, opcode, r)
	case *Callback:
		if opcode == evCallbackDone {
			ev = &CallbackDoneEvent{Callback: o, Data: r.Uint64()}
			c.unregister(o.id)
		}
	case *Seat:
		ev = c.decodeSeat(o, opcode, r)
	case *Device:
		ev = c.decodeDevice(o, opcode, r)
	case *Keyboard:
		var err error
		ev, err = c.decodeKeyboard(o, opcode, r)
		if err != nil {
			return nil, err
		}
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if ev == nil {
		return &UnknownEvent{Object: obj, Opcode: opcode}, nil
	}
	return ev, nil
}

func (c *Context) decodeHandshake(h *Handshake, opcode uint32, r *ArgReader) Event {
	switch opcode {
	case evHandshakeVersion:
		return &HandshakeVersionEvent{Handshake: h, Version: r.Uint32()}
	case evHandshakeInterfaceVersion:
		return &InterfaceVersionEvent{Handshake: h, Name: r.Str(), Version: r.Uint32()}
	case evHandshakeConnection:
		serial, id, version := r.Uint32(), r.Uint64(), r.Uint32()
		if r.Err() != nil {
			return nil
		}
		c.observeSerial(serial)
		conn := c.newObject(id, InterfaceConnection, version).(*Connection)
		return &ConnectionEvent{Handshake: h, Serial: serial, Connection: conn, Version: version}
	}
	return nil
}

func (c *Context) decodeConnection(conn *Connection, opcode uint32, r *ArgReader) Event {
	switch opcode {
	case evConnectionDisconnected:
		ev := &DisconnectedEvent{Connection: conn, LastSerial: r.Uint32(), Reason: DisconnectReason(r.Uint32()), Explanation: r.Str()}
		c.observeSerial(ev.LastSerial)
		return ev
	case evConnectionSeat:
		id, version := r.Uint64(), r.Uint32()
		if r.Err() != nil {
			return nil
		}
		return &SeatAddedEvent{Connection: conn, Seat: c.newObject(id, InterfaceSeat, version).(*Seat)}
	case evConnectionInvalidObject:
		ev := &InvalidObjectEvent{Connection: conn, LastSerial: r.Uint32(), ObjectID: r.Uint64()}
		c.observeSerial(ev.LastSerial)
		return ev
	case evConnectionPing:
		id, version := r.Uint64(), r.Uint32()
		if r.Err() != nil {
			return nil
		}
		return &PingEvent{Connection: conn, Ping: c.newObject(id, InterfacePingpong, version).(*Pingpong)}
	}
	return nil
}

func (c *Context) decodeSeat(s *Seat, opcode uint32, r *ArgReader) Event {
	switch opcode {
	case evSeatDestroyed:
		ev := &SeatDestroyedEvent{Seat: s, Serial: r.Uint32()}
		c.observeSerial(ev.Serial)
		c.unregister(s.id)
		return ev
	case evSeatName:
		return &SeatNameEvent{Seat: s, Name: r.Str()}
	case evSeatCapability:
		return &SeatCapabilityEvent{Seat: s, Mask: r.Uint64(), Interface: r.Str()}
	case evSeatDone:
		return &SeatDoneEvent{Seat: s}
	case evSeatDevice:
		id, version := r.Uint64(), r.Uint32()
		if r.Err() != nil {
			return nil
		}
		return &DeviceAddedEvent{Seat: s, Device: c.newObject(id, InterfaceDevice, version).(*Device)}
	}
	return nil
}

func (c *Context) decodeDevice(d *Device, opcode uint32, r *ArgReader) Event {
	switch opcode {
	case evDeviceDestroyed:
		ev := &DeviceDestroyedEvent{Device: d, Serial: r.Uint32()}
		c.observeSerial(ev.Serial)
		c.unregister(d.id)
		return ev
	case evDeviceName:
		return &DeviceNameEvent{Device: d, Name: r.Str()}
	case evDeviceType:
		return &DeviceTypeEvent{Device: d, Type: r.Uint32()}
	case evDeviceDimensions:
		return &DeviceDimensionsEvent{Device: d, Width: r.Uint32(), Height: r.Uint32()}
	case evDeviceRegion:
		return &DeviceRegionEvent{Device: d, OffsetX: r.Uint32(), OffsetY: r.Uint32(), Width: r.Uint32(), Height: r.Uint32(), Scale: r.Float()}
	case evDeviceInterface:
		id, name, version := r.Uint64(), r.Str(), r.Uint32()
		if r.Err() != nil {
			return nil
		}
		return &DeviceInterfaceEvent{Device: d, Object: c.newObject(id, name, version)}
	case evDeviceDone:
		return &DeviceDoneEvent{Device: d}
	case evDeviceResumed:
		ev := &DeviceResumedEvent{Device: d, Serial: r.Uint32()}
		c.observeSerial(ev.Serial)
		return ev
	case evDevicePaused:
		ev := &DevicePausedEvent{Device: d, Serial: r.Uint32()}
		c.observeSerial(ev.Serial)
		return ev
	}
	return nil
}

func (c *Context) decodeKeyboard(k *Keyboard, opcode uint32, r *ArgReader) (Event, error) {
	switch opcode {
	case evKeyboardDestroyed:
		ev := &KeyboardDestroyedEvent{Keyboard: k, Serial: r.Uint32()}
		c.observeSerial(ev.Serial)
		c.unregister(k.id)
		return ev, nil
	case evKeyboardKeymap:
		ev := &KeymapEvent{Keyboard: k, Type: KeymapType(r.Uint32()), Size: r.Uint32(), FD: -1}
		if r.Err() != nil {
			return nil, r.Err()
		}
		fd, ok := c.takeFD()
		if !ok {
			return nil, fmt.Errorf("keymap event without a file descriptor")
		}
		ev.FD = fd
		return ev, nil
	case evKeyboardModifiers:
		ev := &KeyboardModifiersEvent{Keyboard: k, Serial: r.Uint32(), Depressed: r.Uint32(), Locked: r.Uint32(), Latched: r.Uint32(), Group: r.Uint32()}
		c.observeSerial(ev.Serial)
		return ev, nil
	}
	return nil, nil
}
