// Package master implements the paginated browse protocol of the Steam
// master server.
package master

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"time"

	"github.com/DeFirence/steam-condenser/internal/protocol"
)

const (
	// DefaultAddr is the public Source master server.
	DefaultAddr = "hl2master.steampowered.com:27011"

	// DefaultTimeout bounds one page request.
	DefaultTimeout = 5 * time.Second

	// browseSeed starts the pagination.
	browseSeed = "0.0.0.0:0"

	// maxPages caps a browse in case a misbehaving master keeps
	// serving pages without ever sending the terminal entry.
	maxPages = 200

	bufferSize = 2048
)

type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
}

// Client browses a master server for game server addresses. Not safe
// for concurrent use.
type Client struct {
	conn   net.Conn
	logger *slog.Logger
	opts   Options
}

func Dial(addr string, opts Options) (*Client, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial master server: %w", err)
	}

	return &Client{
		conn:   conn,
		logger: opts.Logger.With(slog.String("master", addr)),
		opts:   opts,
	}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Servers browses the full server list for the given region and filter
// string, following the pagination until the master sends the terminal
// zero entry. Duplicate addresses across pages are dropped.
func (c *Client) Servers(ctx context.Context, region byte, filter string) ([]netip.AddrPort, error) {
	var servers []netip.AddrPort
	seen := make(map[netip.AddrPort]struct{})
	seed := browseSeed

	for page := 0; page < maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return servers, err
		}

		response, err := c.page(ctx, region, seed, filter)
		if err != nil {
			return servers, err
		}

		c.logger.Debug("Received master server page",
			slog.Int("page", page),
			slog.Int("servers", len(response.Addrs)))

		for _, addr := range response.Addrs {
			if addr.Addr().IsUnspecified() && addr.Port() == 0 {
				continue
			}
			if _, ok := seen[addr]; ok {
				continue
			}

			seen[addr] = struct{}{}
			servers = append(servers, addr)
		}

		if response.IsEndOfList() || len(response.Addrs) == 0 {
			return servers, nil
		}

		last := response.Addrs[len(response.Addrs)-1]
		next := last.String()
		if next == seed {
			// A master that repeats the seed would page forever.
			return servers, nil
		}
		seed = next
	}

	return servers, fmt.Errorf("master server never sent the end of the list after %d pages", maxPages)
}

func (c *Client) page(ctx context.Context, region byte, seed, filter string) (*protocol.MasterServerResponse, error) {
	request := &protocol.MasterServerRequest{
		Region:    region,
		StartAddr: seed,
		Filter:    filter,
	}

	data, err := protocol.Marshal(request)
	if err != nil {
		return nil, err
	}

	timeout := c.opts.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	if err := c.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	if _, err := c.conn.Write(data); err != nil {
		return nil, fmt.Errorf("send browse request: %w", err)
	}

	buffer := make([]byte, bufferSize)
	n, err := c.conn.Read(buffer)
	if err != nil {
		return nil, fmt.Errorf("receive browse page: %w", err)
	}

	buf := protocol.NewBuffer(buffer[:n])
	marker, err := buf.ReadInt32()
	if err != nil {
		return nil, err
	}
	if marker != -1 {
		return nil, fmt.Errorf("bad datagram marker: %#08x", uint32(marker))
	}

	packet, err := protocol.CreatePacket(buf.Rest())
	if err != nil {
		return nil, err
	}

	response, ok := packet.(*protocol.MasterServerResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response packet: %T", packet)
	}

	return response, nil
}
