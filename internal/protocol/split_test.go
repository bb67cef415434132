package protocol

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

// bzip2 stream of the challenge response payload {0x41, 0x64, 0, 0, 0}
// and the IEEE CRC32 of those five bytes.
const (
	compressedChallengeHex = "425a6839314159265359b027ba11000001c500400020000400200021981984ec2ee48a70a121604f7422"
	challengeChecksum      = 0x17F5E6B0
)

func compressedChallenge(t *testing.T) []byte {
	t.Helper()

	data, err := hex.DecodeString(compressedChallengeHex)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestReassemble(t *testing.T) {
	// "ABCDEF" dispatches on 'A', the challenge response header.
	set := &FragmentSet{Fragments: [][]byte{[]byte("AB"), []byte("CD"), []byte("EF")}}

	packet, err := Reassemble(set)
	if err != nil {
		t.Fatal(err)
	}

	challenge, ok := packet.(*ChallengeResponse)
	if !ok {
		t.Fatalf("expected ChallengeResponse, got %T", packet)
	}
	if challenge.Challenge != 0x45444342 {
		t.Fatalf("bad challenge number: %#08x", challenge.Challenge)
	}
}

func TestReassembleStripsWireMarker(t *testing.T) {
	set := &FragmentSet{Fragments: [][]byte{
		{0xFF, 0xFF, 0xFF, 0xFF, HeaderChallengeResponse, 0x64, 0x00},
		{0x00, 0x00},
	}}

	packet, err := Reassemble(set)
	if err != nil {
		t.Fatal(err)
	}

	challenge, ok := packet.(*ChallengeResponse)
	if !ok {
		t.Fatalf("expected ChallengeResponse, got %T", packet)
	}
	if challenge.Challenge != 100 {
		t.Fatalf("bad challenge number: %d", challenge.Challenge)
	}
}

func TestReassembleMissingFragment(t *testing.T) {
	set := &FragmentSet{Fragments: [][]byte{[]byte("AB"), nil, []byte("EF")}}

	if _, err := Reassemble(set); !errors.Is(err, ErrIncompletePacket) {
		t.Fatalf("expected ErrIncompletePacket, got: %v", err)
	}
}

func TestReassembleEmptySet(t *testing.T) {
	if _, err := Reassemble(&FragmentSet{}); !errors.Is(err, ErrIncompletePacket) {
		t.Fatalf("expected ErrIncompletePacket, got: %v", err)
	}
}

func TestReassembleCompressed(t *testing.T) {
	data := compressedChallenge(t)
	set := &FragmentSet{
		// Split the stream down the middle to exercise concatenation
		// before decompression.
		Fragments:        [][]byte{data[:len(data)/2], data[len(data)/2:]},
		Compressed:       true,
		UncompressedSize: 5,
		Checksum:         challengeChecksum,
	}

	packet, err := Reassemble(set)
	if err != nil {
		t.Fatal(err)
	}

	challenge, ok := packet.(*ChallengeResponse)
	if !ok {
		t.Fatalf("expected ChallengeResponse, got %T", packet)
	}
	if challenge.Challenge != 100 {
		t.Fatalf("bad challenge number: %d", challenge.Challenge)
	}
}

func TestReassembleChecksumMismatch(t *testing.T) {
	set := &FragmentSet{
		Fragments:        [][]byte{compressedChallenge(t)},
		Compressed:       true,
		UncompressedSize: 5,
		Checksum:         challengeChecksum + 1,
	}

	// The payload must be rejected before it ever reaches the factory.
	if _, err := reassemblePayload(set); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch before dispatch, got: %v", err)
	}
	if _, err := Reassemble(set); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got: %v", err)
	}
}

func TestReassembleBadStream(t *testing.T) {
	set := &FragmentSet{
		Fragments:        [][]byte{bytes.Repeat([]byte{0x42}, 32)},
		Compressed:       true,
		UncompressedSize: 5,
		Checksum:         challengeChecksum,
	}

	if _, err := Reassemble(set); !errors.Is(err, ErrDecompression) {
		t.Fatalf("expected ErrDecompression, got: %v", err)
	}
}

func TestReassembleShortStream(t *testing.T) {
	// Declaring more uncompressed bytes than the stream holds is a
	// decompression failure, not a silent truncation.
	set := &FragmentSet{
		Fragments:        [][]byte{compressedChallenge(t)},
		Compressed:       true,
		UncompressedSize: 64,
		Checksum:         challengeChecksum,
	}

	if _, err := Reassemble(set); !errors.Is(err, ErrDecompression) {
		t.Fatalf("expected ErrDecompression, got: %v", err)
	}
}

func TestFragmentSetComplete(t *testing.T) {
	tests := []struct {
		name     string
		set      FragmentSet
		complete bool
	}{
		{"empty", FragmentSet{}, false},
		{"full", FragmentSet{Fragments: [][]byte{{1}, {2}}}, true},
		{"gap", FragmentSet{Fragments: [][]byte{{1}, nil}}, false},
		{"zero length fragment", FragmentSet{Fragments: [][]byte{{1}, {}}}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.set.Complete(); got != test.complete {
				t.Fatalf("Complete() = %v, expected %v", got, test.complete)
			}
		})
	}
}
