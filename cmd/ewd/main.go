package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ewill/config"
	"ewill/core"
	"ewill/observability/logging"
	"ewill/rpc"
	"ewill/storage"
)

const genesisPathEnv = "EWILL_GENESIS"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis YAML file (overrides EWILL_GENESIS and config GenesisFile)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup("ewd", cfg.LogLevel, cfg.LogFormat)

	genesisPath := resolveGenesisPath(*genesisFlag, cfg.GenesisFile)
	genesis, err := config.LoadGenesis(genesisPath)
	if err != nil {
		logger.Error("failed to load genesis", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "db"))
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	node, err := core.NewNode(cfg, db, logger)
	if err != nil {
		logger.Error("failed to build node", slog.Any("error", err))
		os.Exit(1)
	}

	if err := node.ApplyGenesis(genesis); err != nil {
		logger.Error("failed to apply genesis", slog.Any("error", err))
		os.Exit(1)
	}

	server := rpc.NewServer(node, logger, cfg.RPCRateLimit, cfg.RPCRateBurst)
	logger.Info("starting ewd", "rpc", cfg.RPCAddress, "data", cfg.DataDir)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("rpc server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// resolveGenesisPath prefers an explicit flag, then the environment, then the
// config file. An empty result means no genesis is applied.
func resolveGenesisPath(flagValue, configValue string) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(genesisPathEnv)); v != "" {
		return v
	}
	return strings.TrimSpace(configValue)
}
