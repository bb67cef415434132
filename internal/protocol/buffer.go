package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Buffer is a sequential reader/writer over a packet payload. Every
// packet decoder owns exactly one Buffer for the duration of a decode;
// it is never shared or reused across packets.
//
// All multi-byte integers are little-endian, the protocol's native byte
// order. Reads never move past the end of the data; writes append.
type Buffer struct {
	data []byte
	pos  int
}

func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Pos returns the current read position.
func (b *Buffer) Pos() int {
	return b.pos
}

// Remaining returns the number of unread bytes.
func (b *Buffer) Remaining() int {
	return len(b.data) - b.pos
}

// Bytes returns the full backing slice, including already read bytes.
func (b *Buffer) Bytes() []byte {
	return b.data
}

func (b *Buffer) ReadByte() (byte, error) {
	if b.Remaining() < 1 {
		return 0, fmt.Errorf("read byte at %d: %w", b.pos, ErrUnderrun)
	}

	v := b.data[b.pos]
	b.pos++
	return v, nil
}

func (b *Buffer) ReadUint16() (uint16, error) {
	if b.Remaining() < 2 {
		return 0, fmt.Errorf("read uint16 at %d: %w", b.pos, ErrUnderrun)
	}

	v := binary.LittleEndian.Uint16(b.data[b.pos:])
	b.pos += 2
	return v, nil
}

func (b *Buffer) ReadUint32() (uint32, error) {
	if b.Remaining() < 4 {
		return 0, fmt.Errorf("read uint32 at %d: %w", b.pos, ErrUnderrun)
	}

	v := binary.LittleEndian.Uint32(b.data[b.pos:])
	b.pos += 4
	return v, nil
}

func (b *Buffer) ReadInt32() (int32, error) {
	v, err := b.ReadUint32()
	return int32(v), err
}

func (b *Buffer) ReadUint64() (uint64, error) {
	if b.Remaining() < 8 {
		return 0, fmt.Errorf("read uint64 at %d: %w", b.pos, ErrUnderrun)
	}

	v := binary.LittleEndian.Uint64(b.data[b.pos:])
	b.pos += 8
	return v, nil
}

func (b *Buffer) ReadFloat32() (float32, error) {
	v, err := b.ReadUint32()
	return math.Float32frombits(v), err
}

// ReadString reads a NUL-terminated string. A missing terminator before
// the end of the buffer is an underrun, not an implicit end of string.
func (b *Buffer) ReadString() (string, error) {
	for i := b.pos; i < len(b.data); i++ {
		if b.data[i] == 0 {
			s := string(b.data[b.pos:i])
			b.pos = i + 1
			return s, nil
		}
	}

	return "", fmt.Errorf("read string at %d: unterminated: %w", b.pos, ErrUnderrun)
}

// ReadBytes reads exactly n bytes.
func (b *Buffer) ReadBytes(n int) ([]byte, error) {
	if n < 0 || b.Remaining() < n {
		return nil, fmt.Errorf("read %d bytes at %d: %w", n, b.pos, ErrUnderrun)
	}

	v := b.data[b.pos : b.pos+n]
	b.pos += n
	return v, nil
}

// Rest reads all remaining bytes.
func (b *Buffer) Rest() []byte {
	v := b.data[b.pos:]
	b.pos = len(b.data)
	return v
}

func (b *Buffer) WriteUint8(v byte) {
	b.data = append(b.data, v)
}

func (b *Buffer) WriteUint16(v uint16) {
	b.data = binary.LittleEndian.AppendUint16(b.data, v)
}

func (b *Buffer) WriteUint32(v uint32) {
	b.data = binary.LittleEndian.AppendUint32(b.data, v)
}

func (b *Buffer) WriteInt32(v int32) {
	b.WriteUint32(uint32(v))
}

func (b *Buffer) WriteUint64(v uint64) {
	b.data = binary.LittleEndian.AppendUint64(b.data, v)
}

func (b *Buffer) WriteFloat32(v float32) {
	b.WriteUint32(math.Float32bits(v))
}

// WriteString writes the given string followed by a NUL terminator.
func (b *Buffer) WriteString(s string) {
	b.data = append(b.data, s...)
	b.data = append(b.data, 0)
}

func (b *Buffer) WriteBytes(v []byte) {
	b.data = append(b.data, v...)
}
