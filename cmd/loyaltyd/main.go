package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"loyaltyledger/config"
	"loyaltyledger/core/state"
	"loyaltyledger/native/loyalty"
	"loyaltyledger/observability"
	"loyaltyledger/observability/logging"
	"loyaltyledger/rpc"
	"loyaltyledger/storage"
)

const rpcTokenEnv = "LOYALTY_RPC_TOKEN"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("LOYALTY_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("loyaltyd", env, cfg.LogFile)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	manager := state.NewManager(db)
	engine := loyalty.NewEngine(manager,
		loyalty.WithEmitter(observability.NewLogEmitter(logger)),
	)

	if err := bootstrapLedger(engine, cfg, logger); err != nil {
		logger.Error("Failed to bootstrap ledger", slog.Any("error", err))
		os.Exit(1)
	}

	token := strings.TrimSpace(os.Getenv(rpcTokenEnv))
	if token == "" {
		logger.Warn("No RPC token configured; mutating methods are disabled",
			slog.String("env", rpcTokenEnv))
	}

	server := rpc.NewServer(engine, token, logger)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// bootstrapLedger initialises the ledger from config on first start. A node
// without an AdminAddress stays uninitialised until loyalty_initialize is
// called over RPC.
func bootstrapLedger(engine *loyalty.Engine, cfg *config.Config, logger *slog.Logger) error {
	initialized, err := engine.Initialized()
	if err != nil {
		return err
	}
	if initialized {
		logger.Info("Ledger already initialised; skipping bootstrap")
		return nil
	}

	admin, ok, err := cfg.Admin()
	if err != nil {
		return err
	}
	if !ok {
		logger.Info("No AdminAddress configured; waiting for loyalty_initialize over RPC")
		return nil
	}

	rates := loyalty.NewRewardRates(cfg.EarnRate, cfg.MinPurchase)
	if err := engine.Initialize(admin, cfg.TokenName, cfg.TokenSymbol, rates); err != nil {
		return err
	}
	logger.Info("Ledger initialised from config",
		slog.String("admin", admin.String()),
		slog.String("name", cfg.TokenName),
		slog.String("symbol", cfg.TokenSymbol),
	)
	return nil
}
