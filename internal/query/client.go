// Package query implements the per-server query session: it owns the
// UDP socket, frames outgoing packets, peels the single/split packet
// markers off incoming datagrams and drives the challenge handshake.
// All wire parsing below the marker level is delegated to
// internal/protocol.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/DeFirence/steam-condenser/internal/protocol"
)

const (
	// DefaultTimeout bounds one request/response exchange.
	DefaultTimeout = 3 * time.Second

	// DefaultBufferSize fits any single datagram a server may send.
	DefaultBufferSize = 1400

	// rconDrainTimeout is how long to wait for a follow-up RCON
	// response packet before treating the reply as complete.
	rconDrainTimeout = 500 * time.Millisecond
)

// ErrBadResponse is returned when a server answers an operation with a
// packet variant that operation can't use.
var ErrBadResponse = errors.New("unexpected response packet")

// ServerInfo is the engine-independent view of an info response.
type ServerInfo struct {
	Name       string
	Map        string
	Folder     string
	Game       string
	Version    string
	AppID      uint16
	Players    int
	MaxPlayers int
	Bots       int
	Password   bool
	VAC        bool
	GoldSrc    bool
	Port       uint16
}

type Options struct {
	Logger     *slog.Logger
	Timeout    time.Duration
	BufferSize int

	// GoldSrc switches the split packet envelope layout to the old
	// engine's numbering scheme.
	GoldSrc bool
}

// Client is a query session with a single game server. It is not safe
// for concurrent use; the crawler gives each worker its own client.
type Client struct {
	conn      net.Conn
	logger    *slog.Logger
	opts      Options
	challenge int32
	hasChal   bool
}

// Dial opens a query session with the game server at addr (host:port).
func Dial(addr string, opts Options) (*Client, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}

	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial game server: %w", err)
	}

	return &Client{
		conn:   conn,
		logger: opts.Logger.With(slog.String("server", addr)),
		opts:   opts,
	}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Info queries the server's details. Both Source and GoldSrc response
// variants are accepted and normalized.
func (c *Client) Info(ctx context.Context) (*ServerInfo, error) {
	packet, err := c.roundTrip(ctx, &protocol.InfoRequest{})
	if err != nil {
		return nil, err
	}

	switch packet := packet.(type) {
	case *protocol.SourceInfoResponse:
		return &ServerInfo{
			Name:       packet.Name,
			Map:        packet.Map,
			Folder:     packet.Folder,
			Game:       packet.Game,
			Version:    packet.Version,
			AppID:      packet.AppID,
			Players:    int(packet.Players),
			MaxPlayers: int(packet.MaxPlayers),
			Bots:       int(packet.Bots),
			Password:   packet.Password,
			VAC:        packet.VAC,
			Port:       packet.Port,
		}, nil
	case *protocol.GoldSrcInfoResponse:
		return &ServerInfo{
			Name:       packet.Name,
			Map:        packet.Map,
			Folder:     packet.Folder,
			Game:       packet.Game,
			Players:    int(packet.Players),
			MaxPlayers: int(packet.MaxPlayers),
			Bots:       int(packet.Bots),
			Password:   packet.Password,
			VAC:        packet.VAC,
			GoldSrc:    true,
		}, nil
	default:
		return nil, fmt.Errorf("%w to info request: %T", ErrBadResponse, packet)
	}
}

// Ping measures the round trip time of a ping exchange.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()

	packet, err := c.roundTrip(ctx, &protocol.PingRequest{})
	if err != nil {
		return 0, err
	}
	if _, ok := packet.(*protocol.PingResponse); !ok {
		return 0, fmt.Errorf("%w to ping request: %T", ErrBadResponse, packet)
	}

	return time.Since(start), nil
}

// Players queries the current player list, acquiring or refreshing the
// challenge number as needed.
func (c *Client) Players(ctx context.Context) ([]protocol.Player, error) {
	packet, err := c.challenged(ctx, func(challenge int32) protocol.Packet {
		return protocol.NewPlayerRequest(challenge)
	})
	if err != nil {
		return nil, err
	}

	response, ok := packet.(*protocol.PlayerResponse)
	if !ok {
		return nil, fmt.Errorf("%w to player request: %T", ErrBadResponse, packet)
	}

	return response.Players, nil
}

// Rules queries the server's rules list, acquiring or refreshing the
// challenge number as needed.
func (c *Client) Rules(ctx context.Context) ([]protocol.Rule, error) {
	packet, err := c.challenged(ctx, func(challenge int32) protocol.Packet {
		return protocol.NewRulesRequest(challenge)
	})
	if err != nil {
		return nil, err
	}

	response, ok := packet.(*protocol.RulesResponse)
	if !ok {
		return nil, fmt.Errorf("%w to rules request: %T", ErrBadResponse, packet)
	}

	return response.Rules, nil
}

// Rcon executes a remote console command over the legacy no-challenge
// channel and returns the concatenated response text. Replies that span
// multiple packets carry no integrity data on this path; they are
// joined in arrival order.
func (c *Client) Rcon(ctx context.Context, password, command string) (string, error) {
	request := protocol.NewRconRequest(fmt.Sprintf("rcon %s %s", password, command))

	packet, err := c.roundTrip(ctx, request)
	if err != nil {
		return "", err
	}

	response, ok := packet.(*protocol.RconResponse)
	if !ok {
		return "", fmt.Errorf("%w to rcon request: %T", ErrBadResponse, packet)
	}

	text := append([]byte(nil), response.Text()...)

	// Drain follow-up packets until the server goes quiet.
	for {
		packet, err := c.receive(rconDrainTimeout)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				break
			}
			return "", err
		}

		response, ok := packet.(*protocol.RconResponse)
		if !ok {
			return "", fmt.Errorf("%w in rcon reply: %T", ErrBadResponse, packet)
		}
		text = append(text, response.Text()...)
	}

	return string(text), nil
}

// challenged sends a request that needs a challenge number, acquiring
// one first if none is cached. A server may answer with a fresh
// challenge instead of the payload; retry once with the new number.
func (c *Client) challenged(ctx context.Context, build func(challenge int32) protocol.Packet) (protocol.Packet, error) {
	if !c.hasChal {
		if err := c.acquireChallenge(ctx); err != nil {
			return nil, err
		}
	}

	for attempt := 0; attempt < 2; attempt++ {
		packet, err := c.roundTrip(ctx, build(c.challenge))
		if err != nil {
			return nil, err
		}

		if response, ok := packet.(*protocol.ChallengeResponse); ok {
			c.challenge = response.Challenge
			c.hasChal = true
			continue
		}

		return packet, nil
	}

	return nil, fmt.Errorf("%w: server keeps responding with challenges", ErrBadResponse)
}

func (c *Client) acquireChallenge(ctx context.Context) error {
	packet, err := c.roundTrip(ctx, &protocol.ChallengeRequest{})
	if err != nil {
		return err
	}

	response, ok := packet.(*protocol.ChallengeResponse)
	if !ok {
		return fmt.Errorf("%w to challenge request: %T", ErrBadResponse, packet)
	}

	c.challenge = response.Challenge
	c.hasChal = true
	return nil
}

// roundTrip sends one framed request and receives the logical response,
// reassembling split packets as needed.
func (c *Client) roundTrip(ctx context.Context, request protocol.Packet) (protocol.Packet, error) {
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

	c.logger.Debug("Sending packet",
		slog.String("packet", fmt.Sprintf("%T", request)),
		slog.Int("len", len(data)))

	if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	if _, err := c.conn.Write(data); err != nil {
		return nil, fmt.Errorf("send packet: %w", err)
	}

	return c.receive(timeout)
}

// receive reads datagrams until one logical packet has been decoded.
func (c *Client) receive(timeout time.Duration) (protocol.Packet, error) {
	collector := newSplitCollector()
	buffer := make([]byte, c.opts.BufferSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}

	for {
		n, err := c.conn.Read(buffer)
		if err != nil {
			return nil, err
		}

		data := make([]byte, n)
		copy(data, buffer[:n])

		buf := protocol.NewBuffer(data)
		marker, err := buf.ReadInt32()
		if err != nil {
			return nil, err
		}

		switch marker {
		case singleMarker:
			return protocol.CreatePacket(buf.Rest())
		case splitMarker:
			env, payload, err := parseSplitEnvelope(buf, c.opts.GoldSrc)
			if err != nil {
				return nil, err
			}

			c.logger.Debug("Received split packet fragment",
				slog.Int("number", env.Number),
				slog.Int("total", env.Total),
				slog.Bool("compressed", env.Compressed))

			set, err := collector.add(env, payload)
			if err != nil {
				return nil, err
			}
			if set != nil {
				return protocol.Reassemble(set)
			}
		default:
			return nil, fmt.Errorf("bad datagram marker: %#08x", uint32(marker))
		}
	}
}
