// Package crawler periodically sweeps the master server list and
// queries every discovered game server for its current state.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DeFirence/steam-condenser/internal/master"
	"github.com/DeFirence/steam-condenser/internal/models"
	"github.com/DeFirence/steam-condenser/internal/repo"
	"github.com/google/uuid"
	"golang.org/x/exp/maps"
)

// Announcer is notified of every server tracked during a sweep. The
// MQTT publisher in internal/announce implements it.
type Announcer interface {
	Announce(ctx context.Context, sweepID string, server *models.Server) error
}

type Options struct {
	Logger       *slog.Logger
	MasterAddr   string
	Region       byte
	Filter       string
	Workers      int
	Interval     time.Duration
	QueryTimeout time.Duration

	// Retention is how long a server may stay unreachable before it is
	// pruned from the database. Zero disables pruning.
	Retention time.Duration

	// GoldSrc switches the split packet handling of the query sessions
	// to the old engine's layout.
	GoldSrc bool
}

type Crawler struct {
	repo      *repo.ServersRepo
	announcer Announcer
	opts      Options
	logger    *slog.Logger

	m     sync.Mutex
	known map[netip.AddrPort]time.Time

	started atomic.Bool
}

func New(serversRepo *repo.ServersRepo, announcer Announcer, opts Options) (*Crawler, error) {
	if opts.Workers < 1 {
		return nil, fmt.Errorf("bad number of workers: %d", opts.Workers)
	}
	if opts.MasterAddr == "" {
		opts.MasterAddr = master.DefaultAddr
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Crawler{
		repo:      serversRepo,
		announcer: announcer,
		opts:      opts,
		logger:    opts.Logger,
		known:     make(map[netip.AddrPort]time.Time),
	}, nil
}

// Run sweeps immediately and then on every interval tick until the
// context is canceled.
func (c *Crawler) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return errors.New("attempt to start crawler twice")
	}

	for {
		if err := c.sweep(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			c.logger.Error("Sweep failed", slog.Any("err", err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.opts.Interval):
		}
	}
}

func (c *Crawler) sweep(ctx context.Context) error {
	sweepID := uuid.New().String()
	logger := c.logger.With(slog.String("sweep", sweepID))

	logger.Info("Browsing master server",
		slog.String("master", c.opts.MasterAddr),
		slog.String("filter", c.opts.Filter))

	masterClient, err := master.Dial(c.opts.MasterAddr, master.Options{Logger: logger})
	if err != nil {
		return err
	}

	addrs, err := masterClient.Servers(ctx, c.opts.Region, c.opts.Filter)
	masterClient.Close()
	if err != nil {
		return fmt.Errorf("browse master server: %w", err)
	}

	logger.Info("Sweeping servers",
		slog.Int("servers", len(addrs)),
		slog.Int("workers", c.opts.Workers))

	addrChan := make(chan netip.AddrPort)

	var wg sync.WaitGroup
	var tracked, failed atomic.Uint64
	for i := 0; i < c.opts.Workers; i++ {
		wg.Add(1)
		go func(i int) {
			logger := logger.With(slog.Int("worker", i))
			defer wg.Done()

			for addr := range addrChan {
				if err := c.probe(ctx, logger, sweepID, addr); err != nil {
					failed.Add(1)
					logger.Debug("Unable to query server",
						slog.String("addr", addr.String()),
						slog.Any("err", err))
					continue
				}

				tracked.Add(1)
			}
		}(i)
	}

	for _, addr := range addrs {
		select {
		case <-ctx.Done():
			close(addrChan)
			wg.Wait()
			return ctx.Err()
		case addrChan <- addr:
		}
	}
	close(addrChan)
	wg.Wait()

	logger.Info("Sweep done",
		slog.Uint64("tracked", tracked.Load()),
		slog.Uint64("failed", failed.Load()))

	if c.opts.Retention > 0 {
		if err := c.prune(ctx, logger); err != nil {
			logger.Error("Unable to prune stale servers", slog.Any("err", err))
		}
	}

	return ctx.Err()
}

func (c *Crawler) prune(ctx context.Context, logger *slog.Logger) error {
	cutoff := time.Now().Add(-c.opts.Retention)

	pruned, err := c.repo.PruneServers(ctx, cutoff)
	if err != nil {
		return err
	}

	c.m.Lock()
	for _, addr := range maps.Keys(c.known) {
		if c.known[addr].Before(cutoff) {
			delete(c.known, addr)
		}
	}
	c.m.Unlock()

	if pruned > 0 {
		logger.Info("Pruned stale servers", slog.Int64("count", pruned))
	}

	return nil
}
