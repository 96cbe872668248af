package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	cmtconfig "github.com/cometbft/cometbft/config"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/noddao/governd/api"
	app_config "github.com/noddao/governd/config"
	"github.com/noddao/governd/engine"
	"github.com/noddao/governd/indexer"
	"github.com/noddao/governd/ledger"
	"github.com/noddao/governd/registry"
	"github.com/noddao/governd/types"
)

var homeDir string

var rootCmd = &cobra.Command{
	Use:   "governd",
	Short: "governd runs a deterministic proposal governance node",
	Long: `A deterministic governance engine: proposals, stake-weighted votes
and hash-chained proofs of execution over an externally ordered event stream.`,
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, args)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&homeDir, "homedir", "d", "", "home directory")
}

func run(cmd *cobra.Command, args []string) {
	cfg := app_config.DefaultConfig(homeDir)
	viper.SetConfigFile(cfg.ConfigFile())
	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Reading config: %v", err)
	}
	if err := viper.Unmarshal(cfg); err != nil {
		log.Fatalf("Decoding config: %v", err)
	}
	if err := cfg.ValidateBasic(); err != nil {
		log.Fatalf("Invalid configuration data: %v", err)
	}

	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout))
	logger, err := cmtflags.ParseLogLevel(cfg.LogLevel, logger, cmtconfig.DefaultLogLevel)
	if err != nil {
		log.Fatalf("failed to parse log level: %v", err)
	}

	db, err := ledger.NewDB(cfg.DataDir(), logger)
	if err != nil {
		log.Fatalf("open ledger db: %v", err)
	}
	store, err := registry.NewStore(cfg.RegistryDir(), logger)
	if err != nil {
		log.Fatalf("open registry: %v", err)
	}

	gov := engine.New(cfg, db, store, logger)
	events := gov.Subscribe(1024)

	if db.Header().Height == 0 {
		gen, err := loadGenesis(cfg.GenesisFile())
		if err != nil {
			log.Fatalf("load genesis: %v", err)
		}
		if err := gov.InitGenesis(gen); err != nil {
			log.Fatalf("apply genesis: %v", err)
		}
		logger.Info("genesis applied", "chainId", gen.ChainID)
	}

	ix, err := indexer.New(logger, cfg.IndexerDBPath(), db)
	if err != nil {
		log.Fatalf("new indexer: %v", err)
	}
	if err := ix.Catchup(); err != nil {
		log.Fatalf("indexer catchup: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go ix.Start(ctx, events)

	service := api.NewService(cfg.APIListenAddr, gov, db, ix, cfg)
	go func() {
		if err := service.Start(); err != nil {
			log.Fatalf("api service: %v", err)
		}
	}()
	logger.Info("node started", "api", cfg.APIListenAddr, "height", db.Header().Height)

	defer func() {
		log.Println("shutting down...")
		cancel()
		if err := ix.Close(); err != nil {
			logger.Error("close indexer", "err", err)
		}
		if err := store.Close(); err != nil {
			logger.Error("close registry", "err", err)
		}
		if err := db.Close(); err != nil {
			logger.Error("close ledger db", "err", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

func loadGenesis(path string) (*types.GenesisEvent, error) {
	dat, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	gen := new(types.GenesisEvent)
	if err := json.Unmarshal(dat, gen); err != nil {
		return nil, err
	}
	return gen, nil
}
