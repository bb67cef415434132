package protocol

// Master server region codes for MasterServerRequest.
const (
	RegionUSEast       byte = 0x00
	RegionUSWest       byte = 0x01
	RegionSouthAmerica byte = 0x02
	RegionEurope       byte = 0x03
	RegionAsia         byte = 0x04
	RegionAustralia    byte = 0x05
	RegionMiddleEast   byte = 0x06
	RegionAfrica       byte = 0x07
	RegionAll          byte = 0xFF
)

// InfoRequest asks a game server for its A2S_INFO details.
type InfoRequest struct{}

func (p *InfoRequest) Header() byte { return HeaderInfoRequest }

func (p *InfoRequest) MarshalPayload() ([]byte, error) { return nil, nil }

func (p *InfoRequest) UnmarshalPayload(buf *Buffer) error { return nil }

// PingRequest asks a game server for a plain pong.
type PingRequest struct{}

func (p *PingRequest) Header() byte { return HeaderPingRequest }

func (p *PingRequest) MarshalPayload() ([]byte, error) { return nil, nil }

func (p *PingRequest) UnmarshalPayload(buf *Buffer) error { return nil }

// ChallengeRequest asks a game server for a challenge number to use in
// subsequent player and rules requests.
type ChallengeRequest struct{}

func (p *ChallengeRequest) Header() byte { return HeaderChallengeRequest }

func (p *ChallengeRequest) MarshalPayload() ([]byte, error) { return nil, nil }

func (p *ChallengeRequest) UnmarshalPayload(buf *Buffer) error { return nil }

// PlayerRequest asks for the server's player list. The challenge number
// must have been obtained with a ChallengeRequest beforehand; it is
// supplied by the caller, not read off the wire.
type PlayerRequest struct {
	Challenge int32
}

func NewPlayerRequest(challenge int32) *PlayerRequest {
	return &PlayerRequest{Challenge: challenge}
}

func (p *PlayerRequest) Header() byte { return HeaderPlayerRequest }

func (p *PlayerRequest) MarshalPayload() ([]byte, error) {
	buf := NewBuffer(nil)
	buf.WriteInt32(p.Challenge)
	return buf.Bytes(), nil
}

func (p *PlayerRequest) UnmarshalPayload(buf *Buffer) error {
	challenge, err := buf.ReadInt32()
	if err != nil {
		return err
	}

	p.Challenge = challenge
	return nil
}

// RulesRequest asks for the server's rules list. Like PlayerRequest, it
// carries a previously obtained challenge number.
type RulesRequest struct {
	Challenge int32
}

func NewRulesRequest(challenge int32) *RulesRequest {
	return &RulesRequest{Challenge: challenge}
}

func (p *RulesRequest) Header() byte { return HeaderRulesRequest }

func (p *RulesRequest) MarshalPayload() ([]byte, error) {
	buf := NewBuffer(nil)
	buf.WriteInt32(p.Challenge)
	return buf.Bytes(), nil
}

func (p *RulesRequest) UnmarshalPayload(buf *Buffer) error {
	challenge, err := buf.ReadInt32()
	if err != nil {
		return err
	}

	p.Challenge = challenge
	return nil
}

// MasterServerRequest asks the master server for a page of game server
// addresses. StartAddr seeds the page; browsing starts at "0.0.0.0:0"
// and continues with the last address of the previous page.
type MasterServerRequest struct {
	Region    byte
	StartAddr string
	Filter    string
}

func (p *MasterServerRequest) Header() byte { return HeaderMasterServerRequest }

func (p *MasterServerRequest) MarshalPayload() ([]byte, error) {
	buf := NewBuffer(nil)
	buf.WriteUint8(p.Region)
	buf.WriteString(p.StartAddr)
	buf.WriteString(p.Filter)
	return buf.Bytes(), nil
}

func (p *MasterServerRequest) UnmarshalPayload(buf *Buffer) error {
	var err error
	if p.Region, err = buf.ReadByte(); err != nil {
		return err
	}
	if p.StartAddr, err = buf.ReadString(); err != nil {
		return err
	}
	if p.Filter, err = buf.ReadString(); err != nil {
		return err
	}

	return nil
}
