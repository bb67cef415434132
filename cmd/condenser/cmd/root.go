package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/DeFirence/steam-condenser/internal/announce"
	"github.com/DeFirence/steam-condenser/internal/crawler"
	"github.com/DeFirence/steam-condenser/internal/db"
	"github.com/DeFirence/steam-condenser/internal/master"
	"github.com/DeFirence/steam-condenser/internal/protocol"
	"github.com/DeFirence/steam-condenser/internal/repo"
	"github.com/DeFirence/steam-condenser/internal/web"
)

var (
	Root = &cobra.Command{
		Use:   "condenser",
		Short: "Status tracker for Source and GoldSrc game servers",
		Run:   startRoot,
	}
	rootFlags = struct {
		HTTPAddr     string
		DB           string
		LogLevel     string
		Workers      int
		MasterAddr   string
		Region       string
		Filter       string
		Interval     time.Duration
		QueryTimeout time.Duration
		Retention    time.Duration
		GoldSrc      bool
		MQTTBroker   string
		MQTTTopic    string
	}{}
)

func init() {
	const maxDefaultWorkers = 16
	Root.Flags().StringVar(&rootFlags.HTTPAddr, "http-addr", ":8014", "the network address to listen on for the HTTP API")
	Root.PersistentFlags().StringVar(&rootFlags.DB, "db", "condenser.db", "the sqlite database to use")
	Root.Flags().StringVar(&rootFlags.LogLevel, "log-level", "info", "the log level to use")
	Root.Flags().IntVar(&rootFlags.Workers, "workers", min(maxDefaultWorkers, runtime.NumCPU()*2), "the amount of query workers to use")
	Root.Flags().StringVar(&rootFlags.MasterAddr, "master-addr", master.DefaultAddr, "the master server to browse for game servers")
	Root.Flags().StringVar(&rootFlags.Region, "region", "all", "the master server region to browse (us-east, us-west, south-america, europe, asia, australia, middle-east, africa, all)")
	Root.Flags().StringVar(&rootFlags.Filter, "filter", "", `the master server filter string, e.g. \gamedir\cstrike`)
	Root.Flags().DurationVar(&rootFlags.Interval, "interval", 5*time.Minute, "the time to wait between sweeps")
	Root.Flags().DurationVar(&rootFlags.QueryTimeout, "query-timeout", 3*time.Second, "the timeout for a single server query")
	Root.Flags().DurationVar(&rootFlags.Retention, "retention", 24*time.Hour, "prune servers unreachable for this long (0 to disable)")
	Root.Flags().BoolVar(&rootFlags.GoldSrc, "goldsrc", false, "use the GoldSrc split packet layout for server queries")
	Root.Flags().StringVar(&rootFlags.MQTTBroker, "mqtt-broker", "", "publish server updates to this MQTT broker (e.g. tcp://localhost:1883)")
	Root.Flags().StringVar(&rootFlags.MQTTTopic, "mqtt-topic", announce.DefaultTopic, "the MQTT topic prefix for server updates")
}

func Execute() {
	if err := Root.Execute(); err != nil {
		os.Exit(1)
	}
}

func startRoot(cmd *cobra.Command, args []string) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(rootFlags.LogLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "bad log level: %s\n", rootFlags.LogLevel)
		os.Exit(1)
		return
	}

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:   level,
		NoColor: !isatty.IsTerminal(os.Stderr.Fd()),
	}))

	region, err := parseRegion(rootFlags.Region)
	if err != nil {
		logErrorAndExit(logger, "Bad region", slog.Any("err", err))
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db.RegisterPragmaHook(10000)
	rdb, wdb, err := db.OpenReadWrite(ctx, rootFlags.DB, db.OpenOptions{})
	if err != nil {
		logErrorAndExit(logger, "Unable to open database", slog.Any("err", err))
		return
	}
	defer rdb.Close()
	defer wdb.Close()

	var announcer crawler.Announcer
	if rootFlags.MQTTBroker != "" {
		publisher, err := announce.NewPublisher(announce.Options{
			Logger: logger,
			Broker: rootFlags.MQTTBroker,
			Topic:  rootFlags.MQTTTopic,
		})
		if err != nil {
			logErrorAndExit(logger, "Unable to connect to MQTT broker", slog.Any("err", err))
			return
		}
		defer publisher.Close()
		announcer = publisher
	}

	cr, err := crawler.New(repo.New(wdb), announcer, crawler.Options{
		Logger:       logger,
		MasterAddr:   rootFlags.MasterAddr,
		Region:       region,
		Filter:       rootFlags.Filter,
		Workers:      rootFlags.Workers,
		Interval:     rootFlags.Interval,
		QueryTimeout: rootFlags.QueryTimeout,
		Retention:    rootFlags.Retention,
		GoldSrc:      rootFlags.GoldSrc,
	})
	if err != nil {
		logErrorAndExit(logger, "Unable to initialize crawler", slog.Any("err", err))
		return
	}

	api := web.New(repo.New(rdb), web.Options{
		Logger: logger,
		Addr:   rootFlags.HTTPAddr,
		Debug:  level <= slog.LevelDebug,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("Starting crawler")

		if err := cr.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Unable to run crawler", slog.Any("err", err))
			cancel()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()

		if err := api.Run(ctx); err != nil {
			logger.Error("Unable to run HTTP server", slog.Any("err", err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("Stopping crawler")
	wg.Wait()

	logger.Info("Bye!")
}

func parseRegion(s string) (byte, error) {
	switch s {
	case "us-east":
		return protocol.RegionUSEast, nil
	case "us-west":
		return protocol.RegionUSWest, nil
	case "south-america":
		return protocol.RegionSouthAmerica, nil
	case "europe":
		return protocol.RegionEurope, nil
	case "asia":
		return protocol.RegionAsia, nil
	case "australia":
		return protocol.RegionAustralia, nil
	case "middle-east":
		return protocol.RegionMiddleEast, nil
	case "africa":
		return protocol.RegionAfrica, nil
	case "all":
		return protocol.RegionAll, nil
	default:
		return 0, fmt.Errorf("unknown region: %q", s)
	}
}

func logErrorAndExit(logger *slog.Logger, msg string, args ...any) {
	logger.Error(msg, args...)
	os.Exit(1)
}
