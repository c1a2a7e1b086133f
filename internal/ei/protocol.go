// Package ei implements the client side of the EI input emulation protocol
// (the wire protocol spoken by libei and EIS implementations such as KWin
// and Mutter) over a connected Unix socket.
//
// The package only encodes requests and decodes events. It performs no I/O
// on its own except through Context.Read, Context.Flush and Context.Poll,
// so callers stay in full control of when the socket is touched.
package ei

// Interface names as announced on the wire
const (
	InterfaceHandshake       = "ei_handshake"
	InterfaceConnection      = "ei_connection"
	InterfaceCallback        = "ei_callback"
	InterfacePingpong        = "ei_pingpong"
	InterfaceSeat            = "ei_seat"
	InterfaceDevice          = "ei_device"
	InterfacePointer         = "ei_pointer"
	InterfacePointerAbsolute = "ei_pointer_absolute"
	InterfaceScroll          = "ei_scroll"
	InterfaceButton          = "ei_button"
	InterfaceKeyboard        = "ei_keyboard"
	InterfaceTouchscreen     = "ei_touchscreen"
)

// HandshakeObjectID is the fixed id of the ei_handshake object
const HandshakeObjectID uint64 = 0

// ProtocolVersion is the highest ei_handshake version this client speaks
const ProtocolVersion uint32 = 1

// SupportedInterfaces lists every interface announced during the handshake
// together with the highest version this client implements.
var SupportedInterfaces = map[string]uint32{
	InterfaceConnection:      1,
	InterfaceCallback:        1,
	InterfacePingpong:        1,
	InterfaceSeat:            1,
	InterfaceDevice:          1,
	InterfacePointer:         1,
	InterfacePointerAbsolute: 1,
	InterfaceScroll:          1,
	InterfaceButton:          1,
	InterfaceKeyboard:        1,
	InterfaceTouchscreen:     1,
}

// ContextType tells the server which role the client plays
type ContextType uint32

const (
	ContextTypeReceiver ContextType = 1
	ContextTypeSender   ContextType = 2
)

// KeyState is the state argument of ei_keyboard.key
type KeyState uint32

const (
	KeyStateReleased KeyState = 0
	KeyStatePressed  KeyState = 1
)

// DisconnectReason is the reason argument of ei_connection.disconnected
type DisconnectReason uint32

const (
	DisconnectReasonDisconnected DisconnectReason = 0
	DisconnectReasonError        DisconnectReason = 1
	DisconnectReasonMode         DisconnectReason = 2
	DisconnectReasonProtocol     DisconnectReason = 3
	DisconnectReasonValue        DisconnectReason = 4
	DisconnectReasonTransport    DisconnectReason = 5
)

func (r DisconnectReason) String() string {
	switch r {
	case DisconnectReasonDisconnected:
		return "disconnected"
	case DisconnectReasonError:
		return "error"
	case DisconnectReasonMode:
		return "mode"
	case DisconnectReasonProtocol:
		return "protocol"
	case DisconnectReasonValue:
		return "value"
	case DisconnectReasonTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// KeymapType is the keymap_type argument of ei_keyboard.keymap
type KeymapType uint32

const KeymapTypeXKB KeymapType = 1

// Request opcodes (client to server)
const (
	opHandshakeVersion          uint32 = 0
	opHandshakeFinish           uint32 = 1
	opHandshakeContextType      uint32 = 2
	opHandshakeName             uint32 = 3
	opHandshakeInterfaceVersion uint32 = 4

	opConnectionSync       uint32 = 0
	opConnectionDisconnect uint32 = 1

	opPingpongDone uint32 = 0

	opSeatRelease uint32 = 0
	opSeatBind    uint32 = 1

	opDeviceRelease        uint32 = 0
	opDeviceStartEmulating uint32 = 1
	opDeviceStopEmulating  uint32 = 2
	opDeviceFrame          uint32 = 3

	opKeyboardRelease uint32 = 0
	opKeyboardKey     uint32 = 1
)

// Event opcodes (server to client)
const (
	evHandshakeVersion          uint32 = 0
	evHandshakeInterfaceVersion uint32 = 1
	evHandshakeConnection       uint32 = 2

	evConnectionDisconnected  uint32 = 0
	evConnectionSeat          uint32 = 1
	evConnectionInvalidObject uint32 = 2
	evConnectionPing          uint32 = 3

	evCallbackDone uint32 = 0

	evSeatDestroyed  uint32 = 0
	evSeatName       uint32 = 1
	evSeatCapability uint32 = 2
	evSeatDone       uint32 = 3
	evSeatDevice     uint32 = 4

	evDeviceDestroyed  uint32 = 0
	evDeviceName       uint32 = 1
	evDeviceType       uint32 = 2
	evDeviceDimensions uint32 = 3
	evDeviceRegion     uint32 = 4
	evDeviceInterface  uint32 = 5
	evDeviceDone       uint32 = 6
	evDeviceResumed    uint32 = 7
	evDevicePaused     uint32 = 8

	evKeyboardDestroyed uint32 = 0
	evKeyboardKeymap    uint32 = 1
	evKeyboardKey       uint32 = 2
	evKeyboardModifiers uint32 = 3
)
