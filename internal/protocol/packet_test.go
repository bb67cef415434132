package protocol

import (
	"bytes"
	"errors"
	"net/netip"
	"reflect"
	"testing"
)

// validPackets is one representative value per packet variant.
var validPackets = []Packet{
	&InfoRequest{},
	&PingRequest{},
	&ChallengeRequest{},
	NewPlayerRequest(0x0BADC0DE),
	NewRulesRequest(-1),
	&MasterServerRequest{Region: RegionEurope, StartAddr: "0.0.0.0:0", Filter: `\gamedir\cstrike`},
	&SourceInfoResponse{
		Protocol: 17, Name: "dust24lyfe", Map: "de_dust2", Folder: "cstrike",
		Game: "Counter-Strike: Source", AppID: 240, Players: 12, MaxPlayers: 32,
		Bots: 2, ServerType: 'd', Environment: 'l', VAC: true, Version: "1.0.0.22",
		EDF: 0x80 | 0x20, Port: 27015, Keywords: "startmoney",
	},
	&GoldSrcInfoResponse{
		Address: "192.0.2.1:27015", Name: "classic", Map: "crossfire",
		Folder: "valve", Game: "Half-Life", Players: 3, MaxPlayers: 16,
		Protocol: 47, ServerType: 'd', Environment: 'w', IsMod: true,
		Mod: &ModInfo{Link: "https://www.counter-strike.net/", Version: 1, Size: 184000000},
		VAC: true, Bots: 1,
	},
	&PingResponse{Payload: "00000000000000"},
	&ChallengeResponse{Challenge: 0x0BADC0DE},
	&PlayerResponse{Players: []Player{
		{Index: 0, Name: "gaben", Score: 32, Duration: 1800.5},
		{Index: 1, Name: "", Score: -1, Duration: 0.25},
	}},
	&RulesResponse{Rules: []Rule{
		{Name: "mp_friendlyfire", Value: "0"},
		{Name: "sv_gravity", Value: "800"},
	}},
	&MasterServerResponse{Addrs: []netip.AddrPort{
		netip.AddrPortFrom(netip.AddrFrom4([4]byte{192, 0, 2, 1}), 27015),
		netip.AddrPortFrom(netip.AddrFrom4([4]byte{0, 0, 0, 0}), 0),
	}},
	NewRconRequest("rcon hunter2 status"),
	&RconResponse{Response: []byte("12 users\n")},
}

func TestMarshalFrame(t *testing.T) {
	for _, packet := range validPackets {
		data, err := Marshal(packet)
		if err != nil {
			t.Fatalf("%T: %v", packet, err)
		}

		if !bytes.HasPrefix(data, []byte{0xFF, 0xFF, 0xFF, 0xFF}) {
			t.Fatalf("%T: frame doesn't start with the wire marker: %x", packet, data)
		}
		if data[4] != packet.Header() {
			t.Fatalf("%T: header byte %#02x, expected %#02x", packet, data[4], packet.Header())
		}
	}
}

func TestCreatePacketRoundTrip(t *testing.T) {
	for _, packet := range validPackets {
		data, err := Marshal(packet)
		if err != nil {
			t.Fatalf("%T: %v", packet, err)
		}

		decoded, err := CreatePacket(data[4:])
		if err != nil {
			t.Fatalf("%T: %v", packet, err)
		}

		if reflect.TypeOf(decoded) != reflect.TypeOf(packet) {
			t.Fatalf("expected %T, got %T", packet, decoded)
		}
		if !reflect.DeepEqual(decoded, packet) {
			t.Fatalf("%T: decoded %+v, expected %+v", packet, decoded, packet)
		}
	}
}

func TestCreatePacketHeaderDispatch(t *testing.T) {
	// Every known header must produce its own variant; requests with an
	// empty payload must decode from just the header byte.
	for _, packet := range validPackets {
		data, err := Marshal(packet)
		if err != nil {
			t.Fatal(err)
		}

		decoded, err := CreatePacket(data[4:])
		if err != nil {
			t.Fatal(err)
		}

		if decoded.Header() != packet.Header() {
			t.Fatalf("dispatched %#02x to %T with header %#02x",
				packet.Header(), decoded, decoded.Header())
		}
	}
}

func TestCreatePacketUnknownHeader(t *testing.T) {
	for _, header := range []byte{0x00, 0x42, 0xFE, 0xFF} {
		_, err := CreatePacket([]byte{header, 1, 2, 3, 4})

		var unknownErr *UnknownHeaderError
		if !errors.As(err, &unknownErr) {
			t.Fatalf("header %#02x: expected UnknownHeaderError, got: %v", header, err)
		}
		if unknownErr.Header != header {
			t.Fatalf("expected header %#02x in error, got %#02x", header, unknownErr.Header)
		}
	}
}

func TestCreatePacketEmpty(t *testing.T) {
	if _, err := CreatePacket(nil); !errors.Is(err, ErrUnderrun) {
		t.Fatalf("expected ErrUnderrun, got: %v", err)
	}
}

func TestCreatePacketUnderrun(t *testing.T) {
	// Dropping the last byte of any variant whose trailing field is
	// required must fail the decode with ErrUnderrun.
	truncatable := []Packet{
		NewPlayerRequest(1),
		NewRulesRequest(1),
		&MasterServerRequest{StartAddr: "0.0.0.0:0", Filter: ""},
		&ChallengeResponse{Challenge: 1},
		&PingResponse{Payload: "00000000000000"},
		&GoldSrcInfoResponse{Name: "x", Bots: 1},
		&SourceInfoResponse{Version: "1", EDF: 0x01, GameID: 7},
		&PlayerResponse{Players: []Player{{Name: "a"}}},
		&RulesResponse{Rules: []Rule{{Name: "a", Value: "b"}}},
		&MasterServerResponse{Addrs: []netip.AddrPort{
			netip.AddrPortFrom(netip.AddrFrom4([4]byte{192, 0, 2, 1}), 27015),
		}},
	}

	for _, packet := range truncatable {
		data, err := Marshal(packet)
		if err != nil {
			t.Fatalf("%T: %v", packet, err)
		}

		if _, err := CreatePacket(data[4 : len(data)-1]); !errors.Is(err, ErrUnderrun) {
			t.Fatalf("%T: expected ErrUnderrun, got: %v", packet, err)
		}
	}
}
