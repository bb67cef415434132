package query

import (
	"bytes"
	"testing"

	"github.com/DeFirence/steam-condenser/internal/protocol"
)

func sourceEnvelope(requestID int32, total, number byte, payload []byte) []byte {
	buf := protocol.NewBuffer(nil)
	buf.WriteInt32(requestID)
	buf.WriteUint8(total)
	buf.WriteUint8(number)
	buf.WriteUint16(1248)
	buf.WriteBytes(payload)
	return buf.Bytes()
}

func TestParseSplitEnvelopeSource(t *testing.T) {
	data := sourceEnvelope(77, 3, 1, []byte("CD"))

	env, payload, err := parseSplitEnvelope(protocol.NewBuffer(data), false)
	if err != nil {
		t.Fatal(err)
	}

	if env.RequestID != 77 || env.Total != 3 || env.Number != 1 || env.Compressed {
		t.Fatalf("bad envelope: %+v", env)
	}
	if !bytes.Equal(payload, []byte("CD")) {
		t.Fatalf("bad payload: %q", payload)
	}
}

func TestParseSplitEnvelopeCompressed(t *testing.T) {
	buf := protocol.NewBuffer(nil)
	buf.WriteUint32(uint32(42) | compressedFlag)
	buf.WriteUint8(2)
	buf.WriteUint8(0)
	buf.WriteUint16(1248)
	buf.WriteInt32(512)
	buf.WriteUint32(0xCAFEBABE)
	buf.WriteBytes([]byte("bz"))

	env, payload, err := parseSplitEnvelope(protocol.NewBuffer(buf.Bytes()), false)
	if err != nil {
		t.Fatal(err)
	}

	if !env.Compressed {
		t.Fatal("compressed flag not detected")
	}
	if env.UncompressedSize != 512 || env.Checksum != 0xCAFEBABE {
		t.Fatalf("bad compression metadata: %+v", env)
	}
	if !bytes.Equal(payload, []byte("bz")) {
		t.Fatalf("bad payload: %q", payload)
	}
}

func TestParseSplitEnvelopeGoldSrc(t *testing.T) {
	buf := protocol.NewBuffer(nil)
	buf.WriteInt32(7)
	// Upper nibble fragment number, lower nibble total.
	buf.WriteUint8(1<<4 | 2)
	buf.WriteBytes([]byte("EF"))

	env, payload, err := parseSplitEnvelope(protocol.NewBuffer(buf.Bytes()), true)
	if err != nil {
		t.Fatal(err)
	}

	if env.Total != 2 || env.Number != 1 || env.Compressed {
		t.Fatalf("bad envelope: %+v", env)
	}
	if !bytes.Equal(payload, []byte("EF")) {
		t.Fatalf("bad payload: %q", payload)
	}
}

func TestParseSplitEnvelopeBadNumbering(t *testing.T) {
	data := sourceEnvelope(1, 2, 2, nil)
	if _, _, err := parseSplitEnvelope(protocol.NewBuffer(data), false); err == nil {
		t.Fatal("expected an error for fragment number >= total")
	}

	data = sourceEnvelope(1, 0, 0, nil)
	if _, _, err := parseSplitEnvelope(protocol.NewBuffer(data), false); err == nil {
		t.Fatal("expected an error for zero fragment total")
	}
}

func TestSplitCollectorOutOfOrder(t *testing.T) {
	collector := newSplitCollector()

	fragments := [][]byte{
		{0xFF, 0xFF, 0xFF, 0xFF, protocol.HeaderChallengeResponse, 0x64},
		{0x00, 0x00},
		{0x00},
	}

	// Deliver the middle fragment first, then the tail, then the head.
	for _, number := range []int{1, 2, 0} {
		env := &splitEnvelope{RequestID: 9, Total: 3, Number: number}

		set, err := collector.add(env, fragments[number])
		if err != nil {
			t.Fatal(err)
		}

		if number != 0 {
			if set != nil {
				t.Fatal("set completed early")
			}
			continue
		}

		if set == nil {
			t.Fatal("set not complete after final fragment")
		}

		packet, err := protocol.Reassemble(set)
		if err != nil {
			t.Fatal(err)
		}
		challenge, ok := packet.(*protocol.ChallengeResponse)
		if !ok {
			t.Fatalf("expected ChallengeResponse, got %T", packet)
		}
		if challenge.Challenge != 100 {
			t.Fatalf("bad challenge number: %d", challenge.Challenge)
		}
	}
}

func TestSplitCollectorFragmentCountChange(t *testing.T) {
	collector := newSplitCollector()

	if _, err := collector.add(&splitEnvelope{RequestID: 1, Total: 2, Number: 0}, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if _, err := collector.add(&splitEnvelope{RequestID: 1, Total: 3, Number: 1}, []byte("y")); err == nil {
		t.Fatal("expected an error when the fragment total changes mid-set")
	}
}

func TestSplitCollectorCompressedKey(t *testing.T) {
	// Some servers set the compression bit on only part of a set's
	// request IDs; both must land in the same set.
	collector := newSplitCollector()

	requestID := uint32(5) | compressedFlag
	env := &splitEnvelope{
		RequestID:        int32(requestID),
		Total:            2,
		Number:           0,
		Compressed:       true,
		UncompressedSize: 64,
		Checksum:         0xFEED,
	}
	if _, err := collector.add(env, []byte("a")); err != nil {
		t.Fatal(err)
	}

	set, err := collector.add(&splitEnvelope{RequestID: 5, Total: 2, Number: 1}, []byte("b"))
	if err != nil {
		t.Fatal(err)
	}
	if set == nil {
		t.Fatal("set not complete")
	}
	if !set.Compressed || set.UncompressedSize != 64 || set.Checksum != 0xFEED {
		t.Fatalf("compression metadata lost: %+v", set)
	}
}
