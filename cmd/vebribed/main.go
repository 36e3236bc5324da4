package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	flag "github.com/spf13/pflag"

	"github.com/regenmarkets/libvebribe-go/bribes"
	"github.com/regenmarkets/libvebribe-go/chain"
	"github.com/regenmarkets/libvebribe-go/config"
	"github.com/regenmarkets/libvebribe-go/distributor"
	"github.com/regenmarkets/libvebribe-go/httpapi"
	"github.com/regenmarkets/libvebribe-go/store"
	"github.com/regenmarkets/libvebribe-go/votes"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configFlag := flag.String("config", "", "path to the YAML configuration file (or set VEBRIBE_CONFIG)")
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	concurrencyFlag := flag.Int("subgraph-concurrency", votes.DefaultConcurrency, "maximum concurrent subgraph queries")
	flag.Parse()

	// Optional .env for local development; missing file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := newLogger(*verboseFlag || cfg.LogLevel == "debug")

	st, err := store.OpenBoltStore(filepath.Join(cfg.DataDir, "vebribe.db"))
	if err != nil {
		return err
	}
	defer st.Close()

	backends := make(map[string]distributor.Backends, len(cfg.Networks))
	for name, net := range cfg.Networks {
		backends[name] = distributor.Backends{
			Oracle: votes.NewOracle(votes.NewSubgraphClient(net.GaugesSubgraph), *concurrencyFlag),
			Source: bribes.NewHTTPSource(net.BribeAPI),
			Chain: chain.NewRPCClient(chain.RPCConfig{
				URL:               net.RPCURL,
				From:              net.Submitter,
				RewardDistributor: net.Contracts.RewardDistributor,
			}),
		}
	}

	dist := distributor.New(cfg, backends, st, log)
	server := httpapi.NewServer(cfg.ListenAddr, dist, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting vebribed", "networks", len(cfg.Networks), "data_dir", cfg.DataDir)
	return server.ListenAndServe(ctx)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	}))
}
