package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prysmaticlabs/go-bitfield"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sveitser/node-telemetry/internal/api"
	"github.com/sveitser/node-telemetry/internal/config"
	"github.com/sveitser/node-telemetry/internal/ingest"
	"github.com/sveitser/node-telemetry/internal/listener"
	"github.com/sveitser/node-telemetry/internal/poller"
	"github.com/sveitser/node-telemetry/internal/publisher"
	"github.com/sveitser/node-telemetry/internal/state"
	"github.com/sveitser/node-telemetry/pkg/chain"
	"github.com/sveitser/node-telemetry/pkg/rpc"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	// Setup logging
	setupLogging(cfg.LogLevel)

	slog.Info("starting node-telemetry",
		"node_ws_url", cfg.NodeWSURL,
		"http_enabled", cfg.HTTPEnabled,
	)

	// Connect to Redis
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("failed to parse redis url", "err", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	// Create publisher
	pub, err := publisher.New(redisClient, cfg.BlocksTopic, cfg.VotersTopic)
	if err != nil {
		slog.Error("failed to create publisher", "err", err)
		os.Exit(1)
	}
	defer pub.Close()

	// Shared state and pipeline plumbing
	st := state.New()
	leaves := make(chan chain.Leaf)
	blocksOut := ingest.NewOutput[chain.BlockSummary](cfg.ChannelCapacity)
	votersOut := ingest.NewOutput[bitfield.Bitlist](cfg.ChannelCapacity)
	pipeline := ingest.NewPipeline(st, leaves, blocksOut, votersOut)

	// Run all components
	g, ctx := errgroup.WithContext(ctx)

	// Leaf listener feeding the pipeline
	lst := listener.New(listener.Config{
		URL:            cfg.NodeWSURL,
		MaxRetries:     cfg.WSMaxRetries,
		ReconnectDelay: cfg.WSReconnectDelay,
	}, func(leaf chain.Leaf) {
		select {
		case leaves <- leaf:
		case <-ctx.Done():
		}
	})

	g.Go(func() error {
		slog.Info("starting ingestion pipeline")
		return pipeline.Run(ctx)
	})

	g.Go(func() error {
		return pub.Run(ctx, blocksOut, votersOut)
	})

	g.Go(func() error {
		slog.Info("starting leaf listener")
		return lst.Run(ctx)
	})

	// Periodic status report
	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				_, uptime, msgs, lastMsg := lst.Stats()
				qlen, err := pub.QueueLength(ctx, cfg.BlocksTopic)
				if err != nil {
					qlen = -1
				}
				slog.Info("telemetry status",
					"ws_connected", lst.IsConnected(),
					"ws_uptime", uptime.Round(time.Second),
					"leaves_received", msgs,
					"last_leaf_at", lastMsg,
					"blocks_stream_len", qlen,
				)
			}
		}
	})

	// Optional: stake table / node directory poller
	if cfg.NodeRPCURL != "" && cfg.StakePollInterval > 0 {
		client := rpc.NewHTTP(cfg.NodeRPCURL)
		pol := poller.New(client, st, cfg.StakePollInterval)
		g.Go(func() error {
			return pol.Run(ctx)
		})
	}

	// Optional: HTTP query API
	if cfg.HTTPEnabled {
		apiLogger, err := newZapLogger(cfg.LogLevel)
		if err != nil {
			slog.Error("failed to create api logger", "err", err)
			os.Exit(1)
		}
		srv, err := api.NewServer(st, apiLogger, cfg.HTTPAddr, cfg.AdminToken)
		if err != nil {
			slog.Error("failed to create api server", "err", err)
			os.Exit(1)
		}
		g.Go(func() error {
			return srv.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		slog.Error("telemetry error", "err", err)
		os.Exit(1)
	}

	slog.Info("shutdown complete")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

func newZapLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
