package ei

import (
	"encoding/binary"
	"fmt"
	"math"
)

// HeaderSize is the size of the fixed message header: object id (u64),
// total length (u32) and opcode (u32).
const HeaderSize = 16

// maxMessageSize bounds a single message; anything larger is treated as
// corrupt data rather than buffered.
const maxMessageSize = 1 << 16

// byteOrder is the host byte order used on the wire. All supported
// targets are little endian.
var byteOrder = binary.LittleEndian

// Header is the fixed prefix of every protocol message
type Header struct {
	Object uint64
	Length uint32
	Opcode uint32
}

// ParseHeader decodes a message header. It does not check that the full
// message is available.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("short header: %d bytes", len(b))
	}
	h := Header{
		Object: byteOrder.Uint64(b[0:8]),
		Length: byteOrder.Uint32(b[8:12]),
		Opcode: byteOrder.Uint32(b[12:16]),
	}
	if h.Length < HeaderSize || h.Length > maxMessageSize || h.Length%4 != 0 {
		return Header{}, fmt.Errorf("invalid message length %d for object %d", h.Length, h.Object)
	}
	return h, nil
}

// MessageBuilder encodes message arguments. The zero value is ready to use.
type MessageBuilder struct {
	args []byte
}

// PutUint32 appends a uint32 argument
func (m *MessageBuilder) PutUint32(v uint32) *MessageBuilder {
	m.args = byteOrder.AppendUint32(m.args, v)
	return m
}

// PutInt32 appends an int32 argument
func (m *MessageBuilder) PutInt32(v int32) *MessageBuilder {
	return m.PutUint32(uint32(v))
}

// PutUint64 appends a uint64 argument. new_id and object arguments use the
// same encoding.
func (m *MessageBuilder) PutUint64(v uint64) *MessageBuilder {
	m.args = byteOrder.AppendUint64(m.args, v)
	return m
}

// PutFloat appends a 32-bit IEEE 754 argument
func (m *MessageBuilder) PutFloat(v float32) *MessageBuilder {
	return m.PutUint32(math.Float32bits(v))
}

// PutString appends a NUL-terminated string padded to 4 bytes
func (m *MessageBuilder) PutString(s string) *MessageBuilder {
	n := len(s) + 1
	m.PutUint32(uint32(n))
	m.args = append(m.args, s...)
	m.args = append(m.args, 0)
	for pad := (4 - n%4) % 4; pad > 0; pad-- {
		m.args = append(m.args, 0)
	}
	return m
}

// Bytes returns the complete message for object and opcode
func (m *MessageBuilder) Bytes(object uint64, opcode uint32) []byte {
	out := make([]byte, HeaderSize, HeaderSize+len(m.args))
	byteOrder.PutUint64(out[0:8], object)
	byteOrder.PutUint32(out[8:12], uint32(HeaderSize+len(m.args)))
	byteOrder.PutUint32(out[12:16], opcode)
	return append(out, m.args...)
}

// ArgReader decodes message arguments in order. The first decoding failure
// is sticky and reported by Err.
type ArgReader struct {
	data []byte
	off  int
	err  error
}

// NewArgReader returns a reader over the argument bytes of one message
func NewArgReader(args []byte) *ArgReader {
	return &ArgReader{data: args}
}

func (r *ArgReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.data) {
		r.err = fmt.Errorf("argument overrun: need %d bytes at offset %d, have %d", n, r.off, len(r.data))
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// Uint32 reads a uint32 argument
func (r *ArgReader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return byteOrder.Uint32(b)
}

// Int32 reads an int32 argument
func (r *ArgReader) Int32() int32 {
	return int32(r.Uint32())
}

// Uint64 reads a uint64, new_id or object argument
func (r *ArgReader) Uint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return byteOrder.Uint64(b)
}

// Float reads a 32-bit float argument
func (r *ArgReader) Float() float32 {
	return math.Float32frombits(r.Uint32())
}

// Str reads a string argument. A null string decodes as "".
func (r *ArgReader) Str() string {
	n := int(r.Uint32())
	if n == 0 || r.err != nil {
		return ""
	}
	padded := n + (4-n%4)%4
	b := r.take(padded)
	if b == nil {
		return ""
	}
	if b[n-1] != 0 {
		r.err = fmt.Errorf("string argument is not NUL-terminated")
		return ""
	}
	return string(b[:n-1])
}

// Err returns the first decoding error, if any
func (r *ArgReader) Err() error {
	return r.err
}

// Remaining returns the number of undecoded argument bytes
func (r *ArgReader) Remaining() int {
	return len(r.data) - r.off
}
