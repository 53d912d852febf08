package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tokenvesting/cmd/internal/passphrase"
	"tokenvesting/config"
	"tokenvesting/core"
	"tokenvesting/core/audit"
	"tokenvesting/core/events"
	"tokenvesting/core/genesis"
	"tokenvesting/native/token"
	"tokenvesting/observability"
	"tokenvesting/observability/logging"
	telemetry "tokenvesting/observability/otel"
	"tokenvesting/rpc"
	"tokenvesting/storage"
)

const (
	serviceName     = "vestingd"
	ownerPassEnv    = "VESTING_OWNER_PASS"
	genesisPathEnv  = "VESTING_GENESIS"
	shutdownTimeout = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:]); err != nil {
		log.Fatalf("vestingd: %v", err)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	configFile := fs.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := fs.String("genesis", "", "Path to a genesis JSON file (overrides VESTING_GENESIS and config GenesisFile)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	passSource := passphrase.NewSource(ownerPassEnv, "owner keystore")
	cfg, err := config.Load(*configFile, config.WithKeystorePassphraseSource(passSource.Get))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logCloser := logging.SetupWithFile(serviceName, cfg.Environment, logging.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	defer logCloser.Close()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.FromConfig(serviceName, cfg.Environment, cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("prepare data directory: %w", err)
	}
	db, err := storage.Open(cfg.Storage.Backend, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	sinks := []events.Emitter{observability.Events()}
	var journal *audit.Journal
	if dsn := strings.TrimSpace(cfg.Audit.DSN); dsn != "" {
		gdb, err := audit.Open(dsn)
		if err != nil {
			_ = db.Close()
			return err
		}
		if sqlDB, err := gdb.DB(); err == nil {
			defer sqlDB.Close()
		}
		journal, err = audit.NewJournal(gdb, logger)
		if err != nil {
			_ = db.Close()
			return err
		}
		seq, head := journal.Head()
		logger.Info("audit journal ready", slog.Uint64("seq", seq), slog.String("head", head))
		sinks = append(sinks, journal)
	}

	nodeCfg, err := nodeConfig(cfg, sinks)
	if err != nil {
		_ = db.Close()
		return err
	}
	node, err := core.NewNode(db, nodeCfg)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("create node: %w", err)
	}
	defer node.Close()

	if path := resolveGenesisPath(*genesisFlag, cfg.GenesisFile); path != "" {
		spec, err := genesis.Load(path)
		if err != nil {
			return err
		}
		minted, err := node.ApplyGenesis(spec)
		if err != nil {
			return fmt.Errorf("apply genesis: %w", err)
		}
		logger.Info("genesis processed", slog.String("path", path), slog.Bool("minted", minted))
	}

	server, err := rpc.NewServer(node, rpc.ServerConfig{
		Auth: rpc.AuthConfig{
			HMACSecret: cfg.Auth.HMACSecret,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			ClockSkew:  time.Duration(cfg.Auth.ClockSkewSeconds) * time.Second,
		},
		RateLimit: rpc.RateLimit{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
		Journal: journal,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start(cfg.RPCAddress)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutdown rpc: %w", err)
	}
	return <-serveErr
}

func nodeConfig(cfg *config.Config, sinks []events.Emitter) (core.NodeConfig, error) {
	owner, err := cfg.OwnerAddress()
	if err != nil {
		return core.NodeConfig{}, fmt.Errorf("owner address: %w", err)
	}
	vault, err := cfg.VaultAddress()
	if err != nil {
		return core.NodeConfig{}, fmt.Errorf("vault address: %w", err)
	}
	tokenAddr, err := cfg.TokenAddress()
	if err != nil {
		return core.NodeConfig{}, fmt.Errorf("token address: %w", err)
	}
	return core.NodeConfig{
		Owner: owner,
		Vault: vault,
		Token: token.Metadata{
			Address:  tokenAddr,
			Symbol:   cfg.Token.Symbol,
			Name:     cfg.Token.Name,
			Decimals: cfg.Token.Decimals,
		},
		Allocations: cfg.Allocations(),
		Sinks:       sinks,
	}, nil
}

func resolveGenesisPath(flagValue, configValue string) string {
	if trimmed := strings.TrimSpace(flagValue); trimmed != "" {
		return trimmed
	}
	if env, ok := os.LookupEnv(genesisPathEnv); ok && strings.TrimSpace(env) != "" {
		return strings.TrimSpace(env)
	}
	return strings.TrimSpace(configValue)
}
