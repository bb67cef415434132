// Package protocol implements the client side of the Steam query wire
// protocol: the packet variants shared by Source and GoldSrc servers,
// the master server browse packets and the legacy GoldSrc RCON channel.
//
// The package is purely computational. It turns raw datagram bytes into
// typed packets and typed packets back into framed bytes; sockets,
// timeouts and retries belong to the callers in internal/query and
// internal/master.
package protocol

// Header bytes of all known packet variants. Query, master and RCON
// packets share a single header space; every constant here must be
// dispatched in exactly one case of CreatePacket.
const (
	HeaderInfoRequest          byte = 0x54
	HeaderInfoSourceResponse   byte = 0x49
	HeaderInfoGoldSrcResponse  byte = 0x6D
	HeaderPingRequest          byte = 0x69
	HeaderPingResponse         byte = 0x6A
	HeaderPlayerRequest        byte = 0x55
	HeaderPlayerResponse       byte = 0x44
	HeaderRulesRequest         byte = 0x56
	HeaderRulesResponse        byte = 0x45
	HeaderChallengeRequest     byte = 0x57
	HeaderChallengeResponse    byte = 0x41
	HeaderMasterServerRequest  byte = 0x31
	HeaderMasterServerResponse byte = 0x66
	HeaderRconRequest          byte = 0x39
	HeaderRconResponse         byte = 0x6C
)

// wireMarker precedes the header byte of every single-datagram packet.
var wireMarker = []byte{0xFF, 0xFF, 0xFF, 0xFF}

// Packet is one protocol message, request or response. A variant's
// header byte is fixed and unique across the whole header space.
type Packet interface {
	// Header returns the variant's header byte.
	Header() byte

	// MarshalPayload encodes the packet's payload, without the wire
	// frame or the header byte.
	MarshalPayload() ([]byte, error)

	// UnmarshalPayload decodes the packet's payload from the given
	// buffer. The buffer is owned exclusively by this call.
	UnmarshalPayload(buf *Buffer) error
}

// Marshal frames the given packet for the wire: the four-byte all-ones
// marker, the header byte, then the payload.
func Marshal(p Packet) ([]byte, error) {
	payload, err := p.MarshalPayload()
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, len(wireMarker)+1+len(payload))
	data = append(data, wireMarker...)
	data = append(data, p.Header())
	return append(data, payload...), nil
}

// CreatePacket decodes raw packet data into the matching variant. The
// first byte selects the variant; the rest is the payload. Callers are
// expected to have stripped the wire marker already.
//
// This is the only place in the codebase that branches on header bytes.
func CreatePacket(data []byte) (Packet, error) {
	if len(data) == 0 {
		return nil, ErrUnderrun
	}

	var packet Packet
	switch data[0] {
	case HeaderInfoRequest:
		packet = &InfoRequest{}
	case HeaderInfoSourceResponse:
		packet = &SourceInfoResponse{}
	case HeaderInfoGoldSrcResponse:
		packet = &GoldSrcInfoResponse{}
	case HeaderPingRequest:
		packet = &PingRequest{}
	case HeaderPingResponse:
		packet = &PingResponse{}
	case HeaderPlayerRequest:
		packet = &PlayerRequest{}
	case HeaderPlayerResponse:
		packet = &PlayerResponse{}
	case HeaderRulesRequest:
		packet = &RulesRequest{}
	case HeaderRulesResponse:
		packet = &RulesResponse{}
	case HeaderChallengeRequest:
		packet = &ChallengeRequest{}
	case HeaderChallengeResponse:
		packet = &ChallengeResponse{}
	case HeaderMasterServerRequest:
		packet = &MasterServerRequest{}
	case HeaderMasterServerResponse:
		packet = &MasterServerResponse{}
	case HeaderRconRequest:
		packet = &RconRequest{}
	case HeaderRconResponse:
		packet = &RconResponse{}
	default:
		return nil, &UnknownHeaderError{Header: data[0]}
	}

	if err := packet.UnmarshalPayload(NewBuffer(data[1:])); err != nil {
		return nil, err
	}

	return packet, nil
}
