package ei

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageBuilder_StringPadding(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantBytes int
	}{
		{name: "empty string still carries the terminator", value: "", wantBytes: 4 + 4},
		{name: "three bytes fit one word with NUL", value: "abc", wantBytes: 4 + 4},
		{name: "four bytes need a second word", value: "abcd", wantBytes: 4 + 8},
		{name: "interface name", value: InterfaceKeyboard, wantBytes: 4 + 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := new(MessageBuilder).PutString(tt.value).Bytes(7, 3)
			require.Len(t, msg, HeaderSize+tt.wantBytes)
			assert.Zero(t, len(msg)%4, "messages are 4-byte aligned")

			h, err := ParseHeader(msg)
			require.NoError(t, err)
			assert.Equal(t, uint64(7), h.Object)
			assert.Equal(t, uint32(3), h.Opcode)
			assert.Equal(t, uint32(len(msg)), h.Length)

			r := NewArgReader(msg[HeaderSize:])
			assert.Equal(t, tt.value, r.Str())
			require.NoError(t, r.Err())
			assert.Zero(t, r.Remaining())
		})
	}
}

func TestArgReader_MixedArguments(t *testing.T) {
	msg := new(MessageBuilder).
		PutUint64(0xff00000000000001).
		PutString("ei_pointer").
		PutUint32(2).
		PutFloat(1.5).
		PutInt32(-4).
		Bytes(1, 5)

	r := NewArgReader(msg[HeaderSize:])
	assert.Equal(t, uint64(0xff00000000000001), r.Uint64())
	assert.Equal(t, "ei_pointer", r.Str())
	assert.Equal(t, uint32(2), r.Uint32())
	assert.Equal(t, float32(1.5), r.Float())
	assert.Equal(t, int32(-4), r.Int32())
	require.NoError(t, r.Err())
}

func TestArgReader_NullString(t *testing.T) {
	msg := new(MessageBuilder).PutUint32(0).PutUint32(9).Bytes(1, 0)
	r := NewArgReader(msg[HeaderSize:])
	assert.Equal(t, "", r.Str())
	assert.Equal(t, uint32(9), r.Uint32())
	require.NoError(t, r.Err())
}

func TestArgReader_Errors(t *testing.T) {
	t.Run("overrun is sticky", func(t *testing.T) {
		r := NewArgReader([]byte{1, 0, 0, 0})
		assert.Equal(t, uint32(1), r.Uint32())
		assert.Zero(t, r.Uint64())
		assert.Error(t, r.Err())
		assert.Zero(t, r.Uint32(), "reads after an error return zero values")
	})

	t.Run("string without terminator", func(t *testing.T) {
		b := new(MessageBuilder).PutUint32(4)
		b.args = append(b.args, 'a', 'b', 'c', 'd')
		r := NewArgReader(b.args)
		assert.Equal(t, "", r.Str())
		assert.Error(t, r.Err())
	})

	t.Run("string longer than message", func(t *testing.T) {
		r := NewArgReader(new(MessageBuilder).PutUint32(100).args)
		r.Str()
		assert.Error(t, r.Err())
	})
}

func TestParseHeader_RejectsInvalidLengths(t *testing.T) {
	tests := []struct {
		name   string
		length uint32
	}{
		{name: "shorter than header", length: 8},
		{name: "unaligned", length: HeaderSize + 3},
		{name: "oversized", length: maxMessageSize + 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := new(MessageBuilder).Bytes(1, 0)
			byteOrder.PutUint32(msg[8:12], tt.length)
			_, err := ParseHeader(msg)
			assert.Error(t, err)
		})
	}

	_, err := ParseHeader([]byte{0, 1, 2})
	assert.Error(t, err, "short buffers are rejected")
}
