package protocol

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

// Extra data flags of the Source info response.
const (
	edfPort     byte = 0x80
	edfSteamID  byte = 0x10
	edfSourceTV byte = 0x40
	edfKeywords byte = 0x20
	edfGameID   byte = 0x01
)

// masterLeadByte precedes the address list in a master server response.
const masterLeadByte byte = 0x0A

// SourceInfoResponse is a Source engine server's answer to an
// InfoRequest.
type SourceInfoResponse struct {
	Protocol    byte
	Name        string
	Map         string
	Folder      string
	Game        string
	AppID       uint16
	Players     byte
	MaxPlayers  byte
	Bots        byte
	ServerType  byte
	Environment byte
	Password    bool
	VAC         bool
	Version     string

	// Extra data, present depending on the EDF flag byte.
	EDF          byte
	Port         uint16
	SteamID      uint64
	SourceTVPort uint16
	SourceTVName string
	Keywords     string
	GameID       uint64
}

func (p *SourceInfoResponse) Header() byte { return HeaderInfoSourceResponse }

func (p *SourceInfoResponse) MarshalPayload() ([]byte, error) {
	buf := NewBuffer(nil)
	buf.WriteUint8(p.Protocol)
	buf.WriteString(p.Name)
	buf.WriteString(p.Map)
	buf.WriteString(p.Folder)
	buf.WriteString(p.Game)
	buf.WriteUint16(p.AppID)
	buf.WriteUint8(p.Players)
	buf.WriteUint8(p.MaxPlayers)
	buf.WriteUint8(p.Bots)
	buf.WriteUint8(p.ServerType)
	buf.WriteUint8(p.Environment)
	buf.WriteUint8(boolByte(p.Password))
	buf.WriteUint8(boolByte(p.VAC))
	buf.WriteString(p.Version)

	if p.EDF != 0 {
		buf.WriteUint8(p.EDF)
		if p.EDF&edfPort != 0 {
			buf.WriteUint16(p.Port)
		}
		if p.EDF&edfSteamID != 0 {
			buf.WriteUint64(p.SteamID)
		}
		if p.EDF&edfSourceTV != 0 {
			buf.WriteUint16(p.SourceTVPort)
			buf.WriteString(p.SourceTVName)
		}
		if p.EDF&edfKeywords != 0 {
			buf.WriteString(p.Keywords)
		}
		if p.EDF&edfGameID != 0 {
			buf.WriteUint64(p.GameID)
		}
	}

	return buf.Bytes(), nil
}

func (p *SourceInfoResponse) UnmarshalPayload(buf *Buffer) error {
	var err error
	if p.Protocol, err = buf.ReadByte(); err != nil {
		return err
	}
	if p.Name, err = buf.ReadString(); err != nil {
		return err
	}
	if p.Map, err = buf.ReadString(); err != nil {
		return err
	}
	if p.Folder, err = buf.ReadString(); err != nil {
		return err
	}
	if p.Game, err = buf.ReadString(); err != nil {
		return err
	}
	if p.AppID, err = buf.ReadUint16(); err != nil {
		return err
	}
	if p.Players, err = buf.ReadByte(); err != nil {
		return err
	}
	if p.MaxPlayers, err = buf.ReadByte(); err != nil {
		return err
	}
	if p.Bots, err = buf.ReadByte(); err != nil {
		return err
	}
	if p.ServerType, err = buf.ReadByte(); err != nil {
		return err
	}
	if p.Environment, err = buf.ReadByte(); err != nil {
		return err
	}

	password, err := buf.ReadByte()
	if err != nil {
		return err
	}
	p.Password = password != 0

	vac, err := buf.ReadByte()
	if err != nil {
		return err
	}
	p.VAC = vac != 0

	if p.Version, err = buf.ReadString(); err != nil {
		return err
	}

	// Older servers end here; the EDF byte and everything it gates are
	// optional trailers.
	if buf.Remaining() == 0 {
		return nil
	}

	if p.EDF, err = buf.ReadByte(); err != nil {
		return err
	}
	if p.EDF&edfPort != 0 {
		if p.Port, err = buf.ReadUint16(); err != nil {
			return err
		}
	}
	if p.EDF&edfSteamID != 0 {
		if p.SteamID, err = buf.ReadUint64(); err != nil {
			return err
		}
	}
	if p.EDF&edfSourceTV != 0 {
		if p.SourceTVPort, err = buf.ReadUint16(); err != nil {
			return err
		}
		if p.SourceTVName, err = buf.ReadString(); err != nil {
			return err
		}
	}
	if p.EDF&edfKeywords != 0 {
		if p.Keywords, err = buf.ReadString(); err != nil {
			return err
		}
	}
	if p.EDF&edfGameID != 0 {
		if p.GameID, err = buf.ReadUint64(); err != nil {
			return err
		}
	}

	return nil
}

// ModInfo describes the mod a GoldSrc server runs, if any.
type ModInfo struct {
	Link         string
	DownloadLink string
	Version      int32
	Size         int32
	Type         byte
	DLL          byte
}

// GoldSrcInfoResponse is a GoldSrc server's answer to an InfoRequest.
type GoldSrcInfoResponse struct {
	Address     string
	Name        string
	Map         string
	Folder      string
	Game        string
	Players     byte
	MaxPlayers  byte
	Protocol    byte
	ServerType  byte
	Environment byte
	Password    bool
	IsMod       bool
	Mod         *ModInfo
	VAC         bool
	Bots        byte
}

func (p *GoldSrcInfoResponse) Header() byte { return HeaderInfoGoldSrcResponse }

func (p *GoldSrcInfoResponse) MarshalPayload() ([]byte, error) {
	buf := NewBuffer(nil)
	buf.WriteString(p.Address)
	buf.WriteString(p.Name)
	buf.WriteString(p.Map)
	buf.WriteString(p.Folder)
	buf.WriteString(p.Game)
	buf.WriteUint8(p.Players)
	buf.WriteUint8(p.MaxPlayers)
	buf.WriteUint8(p.Protocol)
	buf.WriteUint8(p.ServerType)
	buf.WriteUint8(p.Environment)
	buf.WriteUint8(boolByte(p.Password))
	buf.WriteUint8(boolByte(p.IsMod))

	if p.IsMod {
		mod := p.Mod
		if mod == nil {
			mod = &ModInfo{}
		}
		buf.WriteString(mod.Link)
		buf.WriteString(mod.DownloadLink)
		buf.WriteUint8(0)
		buf.WriteInt32(mod.Version)
		buf.WriteInt32(mod.Size)
		buf.WriteUint8(mod.Type)
		buf.WriteUint8(mod.DLL)
	}

	buf.WriteUint8(boolByte(p.VAC))
	buf.WriteUint8(p.Bots)
	return buf.Bytes(), nil
}

func (p *GoldSrcInfoResponse) UnmarshalPayload(buf *Buffer) error {
	var err error
	if p.Address, err = buf.ReadString(); err != nil {
		return err
	}
	if p.Name, err = buf.ReadString(); err != nil {
		return err
	}
	if p.Map, err = buf.ReadString(); err != nil {
		return err
	}
	if p.Folder, err = buf.ReadString(); err != nil {
		return err
	}
	if p.Game, err = buf.ReadString(); err != nil {
		return err
	}
	if p.Players, err = buf.ReadByte(); err != nil {
		return err
	}
	if p.MaxPlayers, err = buf.ReadByte(); err != nil {
		return err
	}
	if p.Protocol, err = buf.ReadByte(); err != nil {
		return err
	}
	if p.ServerType, err = buf.ReadByte(); err != nil {
		return err
	}
	if p.Environment, err = buf.ReadByte(); err != nil {
		return err
	}

	password, err := buf.ReadByte()
	if err != nil {
		return err
	}
	p.Password = password != 0

	isMod, err := buf.ReadByte()
	if err != nil {
		return err
	}
	p.IsMod = isMod != 0

	if p.IsMod {
		mod := &ModInfo{}
		if mod.Link, err = buf.ReadString(); err != nil {
			return err
		}
		if mod.DownloadLink, err = buf.ReadString(); err != nil {
			return err
		}
		if _, err = buf.ReadByte(); err != nil {
			return err
		}
		if mod.Version, err = buf.ReadInt32(); err != nil {
			return err
		}
		if mod.Size, err = buf.ReadInt32(); err != nil {
			return err
		}
		if mod.Type, err = buf.ReadByte(); err != nil {
			return err
		}
		if mod.DLL, err = buf.ReadByte(); err != nil {
			return err
		}
		p.Mod = mod
	}

	vac, err := buf.ReadByte()
	if err != nil {
		return err
	}
	p.VAC = vac != 0

	if p.Bots, err = buf.ReadByte(); err != nil {
		return err
	}

	return nil
}

// PingResponse is the pong to a PingRequest. The payload is a fixed
// string of zeroes on every known server.
type PingResponse struct {
	Payload string
}

func (p *PingResponse) Header() byte { return HeaderPingResponse }

func (p *PingResponse) MarshalPayload() ([]byte, error) {
	buf := NewBuffer(nil)
	buf.WriteString(p.Payload)
	return buf.Bytes(), nil
}

func (p *PingResponse) UnmarshalPayload(buf *Buffer) error {
	payload, err := buf.ReadString()
	if err != nil {
		return err
	}

	p.Payload = payload
	return nil
}

// ChallengeResponse carries the challenge number to echo back in player
// and rules requests.
type ChallengeResponse struct {
	Challenge int32
}

func (p *ChallengeResponse) Header() byte { return HeaderChallengeResponse }

func (p *ChallengeResponse) MarshalPayload() ([]byte, error) {
	buf := NewBuffer(nil)
	buf.WriteInt32(p.Challenge)
	return buf.Bytes(), nil
}

func (p *ChallengeResponse) UnmarshalPayload(buf *Buffer) error {
	challenge, err := buf.ReadInt32()
	if err != nil {
		return err
	}

	p.Challenge = challenge
	return nil
}

// Player is one entry of a PlayerResponse.
type Player struct {
	Index    byte
	Name     string
	Score    int32
	Duration float32
}

// PlayerResponse is the server's answer to a PlayerRequest.
type PlayerResponse struct {
	Players []Player
}

func (p *PlayerResponse) Header() byte { return HeaderPlayerResponse }

func (p *PlayerResponse) MarshalPayload() ([]byte, error) {
	if len(p.Players) > 0xFF {
		return nil, fmt.Errorf("too many players: %d", len(p.Players))
	}

	buf := NewBuffer(nil)
	buf.WriteUint8(byte(len(p.Players)))
	for _, player := range p.Players {
		buf.WriteUint8(player.Index)
		buf.WriteString(player.Name)
		buf.WriteInt32(player.Score)
		buf.WriteFloat32(player.Duration)
	}

	return buf.Bytes(), nil
}

func (p *PlayerResponse) UnmarshalPayload(buf *Buffer) error {
	count, err := buf.ReadByte()
	if err != nil {
		return err
	}

	// Read exactly count records. Trailing bytes are left alone rather
	// than parsed as bogus players.
	p.Players = make([]Player, 0, count)
	for i := 0; i < int(count); i++ {
		var player Player
		if player.Index, err = buf.ReadByte(); err != nil {
			return err
		}
		if player.Name, err = buf.ReadString(); err != nil {
			return err
		}
		if player.Score, err = buf.ReadInt32(); err != nil {
			return err
		}
		if player.Duration, err = buf.ReadFloat32(); err != nil {
			return err
		}
		p.Players = append(p.Players, player)
	}

	return nil
}

// Rule is one name/value pair of a RulesResponse.
type Rule struct {
	Name  string
	Value string
}

// RulesResponse is the server's answer to a RulesRequest.
type RulesResponse struct {
	Rules []Rule
}

func (p *RulesResponse) Header() byte { return HeaderRulesResponse }

func (p *RulesResponse) MarshalPayload() ([]byte, error) {
	if len(p.Rules) > 0xFFFF {
		return nil, fmt.Errorf("too many rules: %d", len(p.Rules))
	}

	buf := NewBuffer(nil)
	buf.WriteUint16(uint16(len(p.Rules)))
	for _, rule := range p.Rules {
		buf.WriteString(rule.Name)
		buf.WriteString(rule.Value)
	}

	return buf.Bytes(), nil
}

func (p *RulesResponse) UnmarshalPayload(buf *Buffer) error {
	count, err := buf.ReadUint16()
	if err != nil {
		return err
	}

	p.Rules = make([]Rule, 0, count)
	for i := 0; i < int(count); i++ {
		var rule Rule
		if rule.Name, err = buf.ReadString(); err != nil {
			return err
		}
		if rule.Value, err = buf.ReadString(); err != nil {
			return err
		}
		p.Rules = append(p.Rules, rule)
	}

	return nil
}

// MasterServerResponse is one page of the master server's address list.
// A terminal 0.0.0.0:0 entry marks the end of the full list.
type MasterServerResponse struct {
	Addrs []netip.AddrPort
}

func (p *MasterServerResponse) Header() byte { return HeaderMasterServerResponse }

func (p *MasterServerResponse) MarshalPayload() ([]byte, error) {
	buf := NewBuffer(nil)
	buf.WriteUint8(masterLeadByte)
	for _, addr := range p.Addrs {
		if !addr.Addr().Is4() {
			return nil, fmt.Errorf("not an IPv4 address: %s", addr)
		}

		ip := addr.Addr().As4()
		buf.WriteBytes(ip[:])
		// The port is the one big-endian field in the protocol.
		buf.WriteBytes(binary.BigEndian.AppendUint16(nil, addr.Port()))
	}

	return buf.Bytes(), nil
}

func (p *MasterServerResponse) UnmarshalPayload(buf *Buffer) error {
	lead, err := buf.ReadByte()
	if err != nil {
		return err
	}
	if lead != masterLeadByte {
		return fmt.Errorf("bad master server response lead byte: %#02x", lead)
	}

	for buf.Remaining() > 0 {
		entry, err := buf.ReadBytes(6)
		if err != nil {
			return err
		}

		ip := netip.AddrFrom4([4]byte(entry[:4]))
		port := binary.BigEndian.Uint16(entry[4:])
		p.Addrs = append(p.Addrs, netip.AddrPortFrom(ip, port))
	}

	return nil
}

// IsEndOfList reports whether this page ends with the terminal zero
// entry, meaning no further pages should be requested.
func (p *MasterServerResponse) IsEndOfList() bool {
	if len(p.Addrs) == 0 {
		return true
	}

	last := p.Addrs[len(p.Addrs)-1]
	return last.Addr().IsUnspecified() && last.Port() == 0
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
