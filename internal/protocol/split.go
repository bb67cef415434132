package protocol

import (
	"bytes"
	"compress/bzip2"
	"fmt"
	"hash/crc32"
	"io"
)

// FragmentSet is an ordered collection of raw split packet fragments
// that together form one logical packet. The transport layer fills it,
// slot by slot, as datagrams arrive; a slot stays nil until its
// fragment shows up.
//
// UncompressedSize and Checksum are only meaningful when Compressed is
// set.
type FragmentSet struct {
	Fragments        [][]byte
	Compressed       bool
	UncompressedSize int
	Checksum         uint32
}

// Complete reports whether every fragment slot has been filled.
func (s *FragmentSet) Complete() bool {
	for _, fragment := range s.Fragments {
		if fragment == nil {
			return false
		}
	}
	return len(s.Fragments) > 0
}

// Reassemble reconstructs the logical packet from a complete fragment
// set: fragments are concatenated in order, decompressed and checksum
// verified when the set is compressed, and the result is dispatched
// through CreatePacket.
//
// Reassembly is all or nothing. A missing fragment fails with
// ErrIncompletePacket before anything is concatenated, and no packet is
// ever produced from data that failed the checksum gate.
func Reassemble(set *FragmentSet) (Packet, error) {
	payload, err := reassemblePayload(set)
	if err != nil {
		return nil, err
	}

	return CreatePacket(payload)
}

func reassemblePayload(set *FragmentSet) ([]byte, error) {
	if !set.Complete() {
		return nil, ErrIncompletePacket
	}

	var data []byte
	for _, fragment := range set.Fragments {
		data = append(data, fragment...)
	}

	if set.Compressed {
		decompressed := make([]byte, set.UncompressedSize)
		if _, err := io.ReadFull(bzip2.NewReader(bytes.NewReader(data)), decompressed); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
		}

		// The checksum covers the decompressed bytes and gates the
		// factory: corrupt data must never turn into a packet.
		if crc32.ChecksumIEEE(decompressed) != set.Checksum {
			return nil, ErrChecksumMismatch
		}

		data = decompressed
	}

	// The first fragment of an uncompressed split packet, and the
	// decompressed stream of a compressed one, may still start with the
	// single-packet wire marker. Strip it before dispatch.
	data = bytes.TrimPrefix(data, wireMarker)

	return data, nil
}
