package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/verified-messages-go/pkg/config"
	"github.com/Layr-Labs/verified-messages-go/pkg/logger"
	"github.com/Layr-Labs/verified-messages-go/pkg/metrics"
	"github.com/Layr-Labs/verified-messages-go/pkg/node"
	"github.com/Layr-Labs/verified-messages-go/pkg/registry"
)

func main() {
	app := &cli.App{
		Name:  "verified-messages-server",
		Usage: "Verified message registry server",
		Description: `Serves a registry of signed messages over HTTP.

A message is posted once per signer. Posting requires a recoverable secp256k1
signature over the prefixed message digest whose recovered key derives the
claimed signer address. Every accepted post is appended to an ordered event log.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   8080,
				Usage:   "HTTP server port",
				EnvVars: []string{config.EnvVMPort},
			},
			&cli.StringFlag{
				Name:    "network",
				Value:   config.NetworkTestnet.String(),
				Usage:   fmt.Sprintf("Address network for signer derivation: %s", config.GetSupportedNetworksString()),
				EnvVars: []string{config.EnvVMNetwork},
			},
			&cli.StringFlag{
				Name:    "persistence",
				Value:   config.PersistenceTypeMemory.String(),
				Usage:   "Registry backend: memory, badger, redis, sql",
				EnvVars: []string{config.EnvVMPersistenceType},
			},
			&cli.StringFlag{
				Name:    "data-path",
				Usage:   "Badger data directory",
				EnvVars: []string{config.EnvVMDataPath},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Value:   "localhost:6379",
				Usage:   "Redis server address (host:port)",
				EnvVars: []string{config.EnvVMRedisAddress},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				EnvVars: []string{config.EnvVMRedisPassword},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number (0-15)",
				EnvVars: []string{config.EnvVMRedisDB},
			},
			&cli.StringFlag{
				Name:    "redis-key-prefix",
				Usage:   "Prefix prepended to every Redis key",
				EnvVars: []string{config.EnvVMRedisKeyPrefix},
			},
			&cli.StringFlag{
				Name:    "sql-driver",
				Value:   config.SQLDriverSqlite.String(),
				Usage:   "SQL driver: sqlite, postgres",
				EnvVars: []string{config.EnvVMSQLDriver},
			},
			&cli.StringFlag{
				Name:    "sql-dsn",
				Usage:   "SQL connection string, or sqlite file path",
				EnvVars: []string{config.EnvVMSQLDSN},
			},
			&cli.Float64Flag{
				Name:    "post-rate-limit",
				Usage:   "Sustained post-message requests per second (0 disables)",
				EnvVars: []string{config.EnvVMPostRateLimit},
			},
			&cli.IntFlag{
				Name:    "post-burst",
				Value:   10,
				Usage:   "Post-message burst size when rate limiting is enabled",
				EnvVars: []string{config.EnvVMPostBurst},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvVMVerbose},
			},
		},
		Action: runServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func runServer(c *cli.Context) error {
	serverConfig, err := parseServerConfig(c)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := serverConfig.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: serverConfig.Debug})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	store, err := newStore(&serverConfig.Persistence, l)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			l.Sugar().Warnw("Failed to close persistence", "error", err)
		}
	}()

	promRegistry := prometheus.NewRegistry()
	m := metrics.NewMetricsWithRegistry(promRegistry)

	reg, err := registry.NewRegistry(store, serverConfig.Network, l, m)
	if err != nil {
		return fmt.Errorf("failed to create registry: %w", err)
	}

	n, err := node.NewNode(node.Config{
		Port:          serverConfig.Port,
		PostRateLimit: serverConfig.PostRateLimit,
		PostBurst:     serverConfig.PostBurst,
		Metrics:       m,
		Gatherer:      promRegistry,
		Logger:        l,
	}, reg)
	if err != nil {
		return fmt.Errorf("failed to create node: %w", err)
	}

	if serverConfig.Verbose {
		l.Sugar().Infow("Server Configuration",
			"port", serverConfig.Port,
			"network", serverConfig.Network,
			"persistence", serverConfig.Persistence.Type,
			"post_rate_limit", serverConfig.PostRateLimit,
			"post_burst", serverConfig.PostBurst)
	}

	l.Sugar().Infow("Starting verified-messages server", "port", serverConfig.Port, "network", serverConfig.Network)
	if err := n.Start(); err != nil {
		return fmt.Errorf("failed to start node: %w", err)
	}

	l.Sugar().Infow("Available endpoints",
		"verify", "POST /messages/verify",
		"post", "POST /messages/post",
		"posted", "POST /messages/posted",
		"events", "GET /messages/events",
		"ledger", "GET /ledger/root, POST /ledger/proof")
	l.Sugar().Info("Press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	l.Sugar().Infow("Shutting down", "signal", sig.String())

	return n.Stop()
}

func parseServerConfig(c *cli.Context) (*config.ServerConfig, error) {
	network, err := config.ParseNetwork(c.String("network"))
	if err != nil {
		return nil, err
	}

	return &config.ServerConfig{
		Port:    c.Int("port"),
		Network: network,
		Persistence: config.PersistenceConfig{
			Type:     config.PersistenceType(c.String("persistence")),
			DataPath: c.String("data-path"),
			Redis: config.RedisSettings{
				Address:   c.String("redis-address"),
				Password:  c.String("redis-password"),
				DB:        c.Int("redis-db"),
				KeyPrefix: c.String("redis-key-prefix"),
			},
			SQL: config.SQLSettings{
				Driver: config.SQLDriver(c.String("sql-driver")),
				DSN:    c.String("sql-dsn"),
			},
		},
		PostRateLimit: c.Float64("post-rate-limit"),
		PostBurst:     c.Int("post-burst"),
		Debug:         c.Bool("verbose"),
		Verbose:       c.Bool("verbose"),
	}, nil
}
