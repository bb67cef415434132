package crawler

import (
	"context"
	"log/slog"
	"net/netip"
	"time"

	"github.com/DeFirence/steam-condenser/internal/query"
)

// probe opens a query session with one game server, fetches its info
// and records the result.
func (c *Crawler) probe(ctx context.Context, logger *slog.Logger, sweepID string, addr netip.AddrPort) error {
	client, err := query.Dial(addr.String(), query.Options{
		Logger:  logger,
		Timeout: c.opts.QueryTimeout,
		GoldSrc: c.opts.GoldSrc,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	start := time.Now()
	info, err := client.Info(ctx)
	if err != nil {
		return err
	}
	ping := time.Since(start)

	c.m.Lock()
	if _, ok := c.known[addr]; !ok {
		logger.Info("Tracking new server",
			slog.Int("total", len(c.known)+1),
			slog.String("addr", addr.String()),
			slog.String("name", info.Name),
			slog.String("game", info.Game))
	}
	c.known[addr] = time.Now()
	c.m.Unlock()

	server, err := c.repo.TrackServer(ctx, addr, info, ping, sweepID)
	if err != nil {
		return err
	}

	if c.announcer != nil {
		if err := c.announcer.Announce(ctx, sweepID, server); err != nil {
			logger.Error("Unable to announce server",
				slog.String("addr", addr.String()),
				slog.Any("err", err))
		}
	}

	return nil
}
