package query

import (
	"fmt"

	"github.com/DeFirence/steam-condenser/internal/protocol"
)

// Datagram markers. Single packets carry -1, split packets -2.
const (
	singleMarker int32 = -1
	splitMarker  int32 = -2
)

// compressedFlag is set on the request ID of a split packet whose
// reassembled payload is bzip2 compressed.
const compressedFlag uint32 = 0x80000000

// splitEnvelope is the per-datagram header of one split packet
// fragment. Source and GoldSrc servers use different layouts; the
// caller knows which engine it is talking to.
type splitEnvelope struct {
	RequestID  int32
	Total      int
	Number     int
	Compressed bool

	// Only present on the first fragment of a compressed packet.
	UncompressedSize int
	Checksum         uint32
}

// parseSplitEnvelope decodes the split packet header that follows the
// -2 marker and returns it together with the fragment payload.
func parseSplitEnvelope(buf *protocol.Buffer, goldSrc bool) (*splitEnvelope, []byte, error) {
	requestID, err := buf.ReadInt32()
	if err != nil {
		return nil, nil, err
	}

	env := &splitEnvelope{RequestID: requestID}

	if goldSrc {
		// GoldSrc packs the fragment number and total into one byte.
		numbering, err := buf.ReadByte()
		if err != nil {
			return nil, nil, err
		}

		env.Number = int(numbering >> 4)
		env.Total = int(numbering & 0x0F)
	} else {
		total, err := buf.ReadByte()
		if err != nil {
			return nil, nil, err
		}
		number, err := buf.ReadByte()
		if err != nil {
			return nil, nil, err
		}
		// The split size field is informational; the datagram length is
		// authoritative.
		if _, err := buf.ReadUint16(); err != nil {
			return nil, nil, err
		}

		env.Total = int(total)
		env.Number = int(number)
		env.Compressed = uint32(requestID)&compressedFlag != 0

		if env.Compressed && env.Number == 0 {
			size, err := buf.ReadInt32()
			if err != nil {
				return nil, nil, err
			}
			checksum, err := buf.ReadUint32()
			if err != nil {
				return nil, nil, err
			}

			env.UncompressedSize = int(size)
			env.Checksum = checksum
		}
	}

	if env.Total <= 0 || env.Number >= env.Total {
		return nil, nil, fmt.Errorf("bad split packet numbering: %d of %d", env.Number, env.Total)
	}

	return env, buf.Rest(), nil
}

// splitCollector accumulates split packet fragments per request ID
// until a set is complete. It belongs to a single query exchange and is
// never shared between goroutines.
type splitCollector struct {
	sets map[int32]*protocol.FragmentSet
}

func newSplitCollector() *splitCollector {
	return &splitCollector{sets: make(map[int32]*protocol.FragmentSet)}
}

// add stores one fragment and returns the fragment set once every slot
// of it has been filled.
func (c *splitCollector) add(env *splitEnvelope, payload []byte) (*protocol.FragmentSet, error) {
	// The compressed flag makes request IDs differ between fragments of
	// some servers; mask it off for the set key.
	key := int32(uint32(env.RequestID) &^ compressedFlag)

	set, ok := c.sets[key]
	if !ok {
		set = &protocol.FragmentSet{Fragments: make([][]byte, env.Total)}
		c.sets[key] = set
	}

	if env.Total != len(set.Fragments) {
		return nil, fmt.Errorf("split packet fragment count changed: %d != %d", env.Total, len(set.Fragments))
	}

	if env.Compressed {
		set.Compressed = true
	}
	if env.Number == 0 && env.Compressed {
		set.UncompressedSize = env.UncompressedSize
		set.Checksum = env.Checksum
	}

	set.Fragments[env.Number] = payload

	if !set.Complete() {
		return nil, nil
	}

	delete(c.sets, key)
	return set, nil
}
