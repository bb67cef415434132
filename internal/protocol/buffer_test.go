package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestBufferRoundTrip(t *testing.T) {
	w := NewBuffer(nil)
	w.WriteUint8(0x7F)
	w.WriteUint16(0xBEEF)
	w.WriteUint32(0xDEADBEEF)
	w.WriteInt32(-42)
	w.WriteUint64(0x0123456789ABCDEF)
	w.WriteFloat32(13.37)
	w.WriteString("de_dust2")
	w.WriteBytes([]byte{1, 2, 3})

	r := NewBuffer(w.Bytes())

	if v, err := r.ReadByte(); err != nil || v != 0x7F {
		t.Fatalf("ReadByte: %v, %v", v, err)
	}
	if v, err := r.ReadUint16(); err != nil || v != 0xBEEF {
		t.Fatalf("ReadUint16: %v, %v", v, err)
	}
	if v, err := r.ReadUint32(); err != nil || v != 0xDEADBEEF {
		t.Fatalf("ReadUint32: %v, %v", v, err)
	}
	if v, err := r.ReadInt32(); err != nil || v != -42 {
		t.Fatalf("ReadInt32: %v, %v", v, err)
	}
	if v, err := r.ReadUint64(); err != nil || v != 0x0123456789ABCDEF {
		t.Fatalf("ReadUint64: %v, %v", v, err)
	}
	if v, err := r.ReadFloat32(); err != nil || v != 13.37 {
		t.Fatalf("ReadFloat32: %v, %v", v, err)
	}
	if v, err := r.ReadString(); err != nil || v != "de_dust2" {
		t.Fatalf("ReadString: %q, %v", v, err)
	}
	if v, err := r.ReadBytes(3); err != nil || !bytes.Equal(v, []byte{1, 2, 3}) {
		t.Fatalf("ReadBytes: %v, %v", v, err)
	}
	if r.Remaining() != 0 {
		t.Fatalf("expected empty buffer, %d bytes remaining", r.Remaining())
	}
}

func TestBufferLittleEndian(t *testing.T) {
	r := NewBuffer([]byte{0x39, 0x30, 0x00, 0x00})
	v, err := r.ReadInt32()
	if err != nil {
		t.Fatal(err)
	}
	if v != 12345 {
		t.Fatalf("expected 12345, got %d", v)
	}
}

func TestBufferUnderrun(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		read func(*Buffer) error
	}{
		{"byte", nil, func(b *Buffer) error { _, err := b.ReadByte(); return err }},
		{"uint16", []byte{1}, func(b *Buffer) error { _, err := b.ReadUint16(); return err }},
		{"uint32", []byte{1, 2, 3}, func(b *Buffer) error { _, err := b.ReadUint32(); return err }},
		{"int32", []byte{1, 2, 3}, func(b *Buffer) error { _, err := b.ReadInt32(); return err }},
		{"uint64", []byte{1, 2, 3, 4, 5, 6, 7}, func(b *Buffer) error { _, err := b.ReadUint64(); return err }},
		{"float32", []byte{1, 2}, func(b *Buffer) error { _, err := b.ReadFloat32(); return err }},
		{"bytes", []byte{1, 2}, func(b *Buffer) error { _, err := b.ReadBytes(3); return err }},
		{"unterminated string", []byte("no terminator"), func(b *Buffer) error { _, err := b.ReadString(); return err }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.read(NewBuffer(test.data))
			if !errors.Is(err, ErrUnderrun) {
				t.Fatalf("expected ErrUnderrun, got: %v", err)
			}
		})
	}
}

func TestBufferPosition(t *testing.T) {
	b := NewBuffer([]byte{1, 2, 3, 4})
	if b.Pos() != 0 || b.Remaining() != 4 {
		t.Fatalf("fresh buffer: pos=%d remaining=%d", b.Pos(), b.Remaining())
	}

	if _, err := b.ReadUint16(); err != nil {
		t.Fatal(err)
	}
	if b.Pos() != 2 || b.Remaining() != 2 {
		t.Fatalf("after read: pos=%d remaining=%d", b.Pos(), b.Remaining())
	}

	// A failed read must not move the position.
	if _, err := b.ReadUint32(); !errors.Is(err, ErrUnderrun) {
		t.Fatalf("expected ErrUnderrun, got: %v", err)
	}
	if b.Pos() != 2 {
		t.Fatalf("position moved on failed read: %d", b.Pos())
	}

	rest := b.Rest()
	if !bytes.Equal(rest, []byte{3, 4}) || b.Remaining() != 0 {
		t.Fatalf("Rest: %v, remaining=%d", rest, b.Remaining())
	}
}
