package ei

// Object is a protocol object known to a Context
type Object interface {
	ID() uint64
	Interface() string
	Version() uint32
}

type proxy struct {
	ctx     *Context
	id      uint64
	iface   string
	version uint32
}

func (p *proxy) ID() uint64        { return p.id }
func (p *proxy) Interface() string { return p.iface }
func (p *proxy) Version() uint32   { return p.version }

func (p *proxy) send(opcode uint32, m *MessageBuilder) {
	if m == nil {
		m = &MessageBuilder{}
	}
	p.ctx.enqueue(m.Bytes(p.id, opcode))
}

// GenericObject stands in for interfaces this client never sends requests
// on, such as the pointer sub-interfaces of a device.
type GenericObject struct{ proxy }

// Handshake is the ei_handshake object (id 0)
type Handshake struct{ proxy }

// HandshakeVersion announces the handshake version the client will use
func (h *Handshake) HandshakeVersion(version uint32) {
	h.send(opHandshakeVersion, new(MessageBuilder).PutUint32(version))
}

// Finish ends the client side of the handshake
func (h *Handshake) Finish() {
	h.send(opHandshakeFinish, nil)
}

// ContextType announces whether this client sends or receives events
func (h *Handshake) ContextType(t ContextType) {
	h.send(opHandshakeContextType, new(MessageBuilder).PutUint32(uint32(t)))
}

// Name sets the client name shown by the compositor
func (h *Handshake) Name(name string) {
	h.send(opHandshakeName, new(MessageBuilder).PutString(name))
}

// InterfaceVersion announces the highest supported version of an interface
func (h *Handshake) InterfaceVersion(name string, version uint32) {
	h.send(opHandshakeInterfaceVersion, new(MessageBuilder).PutString(name).PutUint32(version))
}

// Connection is the ei_connection object created by the handshake
type Connection struct{ proxy }

// Sync asks the server to emit ei_callback.done once every request sent so
// far has been processed.
func (c *Connection) Sync(version uint32) *Callback {
	cb := &Callback{proxy{ctx: c.ctx, id: c.ctx.allocateID(), iface: InterfaceCallback, version: version}}
	c.ctx.register(cb)
	c.send(opConnectionSync, new(MessageBuilder).PutUint64(cb.id).PutUint32(version))
	return cb
}

// Disconnect tells the server the client is going away
func (c *Connection) Disconnect() {
	c.send(opConnectionDisconnect, nil)
}

// Callback is a one-shot ei_callback created by Connection.Sync
type Callback struct{ proxy }

// Pingpong is a keep-alive probe created by the server
type Pingpong struct{ proxy }

// Done answers the probe. The object is dead afterwards.
func (p *Pingpong) Done(data uint64) {
	p.send(opPingpongDone, new(MessageBuilder).PutUint64(data))
	p.ctx.unregister(p.id)
}

// Seat is an ei_seat announced by the server
type Seat struct{ proxy }

// Bind requests devices for the given capability mask
func (s *Seat) Bind(capabilities uint64) {
	s.send(opSeatBind, new(MessageBuilder).PutUint64(capabilities))
}

// Device is an ei_device announced by a seat
type Device struct{ proxy }

// StartEmulating marks the beginning of an emulation sequence
func (d *Device) StartEmulating(lastSerial, sequence uint32) {
	d.send(opDeviceStartEmulating, new(MessageBuilder).PutUint32(lastSerial).PutUint32(sequence))
}

// StopEmulating ends the current emulation sequence
func (d *Device) StopEmulating(lastSerial uint32) {
	d.send(opDeviceStopEmulating, new(MessageBuilder).PutUint32(lastSerial))
}

// Frame groups every event sent since the previous frame into one
// logical hardware event. timestamp is in microseconds, CLOCK_MONOTONIC.
func (d *Device) Frame(lastSerial uint32, timestamp uint64) {
	d.send(opDeviceFrame, new(MessageBuilder).PutUint32(lastSerial).PutUint64(timestamp))
}

// Keyboard is the ei_keyboard sub-interface of a device
type Keyboard struct{ proxy }

// Key sends a key state change for an evdev keycode
func (k *Keyboard) Key(key uint32, state KeyState) {
	k.send(opKeyboardKey, new(MessageBuilder).PutUint32(key).PutUint32(uint32(state)))
}

// newObject creates the client-side proxy for a server-created object
func (c *Context) newObject(id uint64, iface string, version uint32) Object {
	p := proxy{ctx: c, id: id, iface: iface, version: version}
	var obj Object
	switch iface {
	case InterfaceConnection:
		obj = &Connection{p}
	case InterfaceCallback:
		obj = &Callback{p}
	case InterfacePingpong:
		obj = &Pingpong{p}
	case InterfaceSeat:
		obj = &Seat{p}
	case InterfaceDevice:
		obj = &Device{p}
	case InterfaceKeyboard:
		obj = &Keyboard{p}
	default:
		obj = &GenericObject{p}
	}
	c.register(obj)
	return obj
}
