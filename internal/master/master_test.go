package master

import (
	"context"
	"net"
	"net/netip"
	"testing"

	"github.com/DeFirence/steam-condenser/internal/protocol"
)

var ctx = context.Background()

func addrPort(a, b, c, d byte, port uint16) netip.AddrPort {
	return netip.AddrPortFrom(netip.AddrFrom4([4]byte{a, b, c, d}), port)
}

// fakeMaster answers each browse request with the next prepared page.
func fakeMaster(t *testing.T, pages [][]netip.AddrPort) net.Addr {
	t.Helper()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	go func() {
		buffer := make([]byte, 2048)
		for _, page := range pages {
			_, sender, err := conn.ReadFrom(buffer)
			if err != nil {
				return
			}

			data, err := protocol.Marshal(&protocol.MasterServerResponse{Addrs: page})
			if err != nil {
				return
			}
			if _, err := conn.WriteTo(data, sender); err != nil {
				return
			}
		}
	}()

	return conn.LocalAddr()
}

func TestServersPagination(t *testing.T) {
	pages := [][]netip.AddrPort{
		{
			addrPort(192, 0, 2, 1, 27015),
			addrPort(192, 0, 2, 2, 27016),
		},
		{
			addrPort(192, 0, 2, 2, 27016), // duplicate across the page seam
			addrPort(192, 0, 2, 3, 27017),
			addrPort(0, 0, 0, 0, 0),
		},
	}
	addr := fakeMaster(t, pages)

	client, err := Dial(addr.String(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	servers, err := client.Servers(ctx, protocol.RegionAll, "")
	if err != nil {
		t.Fatal(err)
	}

	want := []netip.AddrPort{
		addrPort(192, 0, 2, 1, 27015),
		addrPort(192, 0, 2, 2, 27016),
		addrPort(192, 0, 2, 3, 27017),
	}
	if len(servers) != len(want) {
		t.Fatalf("expected %d servers, got %d: %v", len(want), len(servers), servers)
	}
	for i := range want {
		if servers[i] != want[i] {
			t.Fatalf("server %d: expected %s, got %s", i, want[i], servers[i])
		}
	}
}

func TestServersSinglePage(t *testing.T) {
	addr := fakeMaster(t, [][]netip.AddrPort{{
		addrPort(198, 51, 100, 7, 28015),
		addrPort(0, 0, 0, 0, 0),
	}})

	client, err := Dial(addr.String(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	servers, err := client.Servers(ctx, protocol.RegionEurope, `\gamedir\cstrike`)
	if err != nil {
		t.Fatal(err)
	}

	if len(servers) != 1 || servers[0] != addrPort(198, 51, 100, 7, 28015) {
		t.Fatalf("unexpected server list: %v", servers)
	}
}
