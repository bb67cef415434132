package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrUnderrun is returned when a packet payload ends before the
	// variant's schema has been fully read.
	ErrUnderrun = errors.New("packet payload too short")

	// ErrIncompletePacket is returned when a split packet is reassembled
	// before all of its fragments have arrived.
	ErrIncompletePacket = errors.New("split packet is missing a fragment")

	// ErrDecompression is returned when the bzip2 stream of a compressed
	// split packet cannot be decompressed to the declared size.
	ErrDecompression = errors.New("unable to decompress split packet")

	// ErrChecksumMismatch is returned when the CRC32 checksum of the
	// decompressed packet data doesn't match the declared checksum.
	ErrChecksumMismatch = errors.New("checksum mismatch of uncompressed packet data")
)

// UnknownHeaderError is returned by CreatePacket when the first byte of
// the given data doesn't match any known packet header.
type UnknownHeaderError struct {
	Header byte
}

func (e *UnknownHeaderError) Error() string {
	return fmt.Sprintf("unknown packet header: %#02x", e.Header)
}
