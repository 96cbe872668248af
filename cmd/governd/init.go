package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	cmtos "github.com/cometbft/cometbft/libs/os"
	"github.com/spf13/cobra"

	app_config "github.com/noddao/governd/config"
	"github.com/noddao/governd/crypto"
	"github.com/noddao/governd/types"
)

type initArguments struct {
	Home      string
	ChainID   string
	Stake     uint64
	Overwrite bool
}

var initArgs initArguments

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize key, genesis and node configuration files",
	Long: `Writes config.toml, a single-member genesis.json and a fresh
ed25519 key pair under the home directory.`,
	Args: cobra.ExactArgs(0),
	RunE: initRun,
}

func init() {
	initCmd.Flags().StringVarP(&initArgs.Home, "homedir", "d", "", "home directory")
	initCmd.Flags().StringVar(&initArgs.ChainID, "chain-id", "", "chain id, defaults to nod-governance-1")
	initCmd.Flags().Uint64Var(&initArgs.Stake, "stake", 100, "genesis stake of the local key")
	initCmd.Flags().BoolVarP(&initArgs.Overwrite, "overwrite", "o", false, "overwrite existing genesis.json")
}

func initRun(cmd *cobra.Command, args []string) error {
	cfg := app_config.DefaultConfig(initArgs.Home)
	if initArgs.ChainID != "" {
		cfg.ChainID = initArgs.ChainID
	}

	for _, dir := range []string{
		filepath.Join(cfg.Home, "config"),
		cfg.DataDir(),
		cfg.RegistryDir(),
	} {
		if err := cmtos.EnsureDir(dir, app_config.DefaultDirPerm); err != nil {
			return err
		}
	}

	pv := crypto.GenFilePV(cfg.PrivKeyFile(), cfg.PrivStateFile())

	genFile := cfg.GenesisFile()
	if cmtos.FileExists(genFile) && !initArgs.Overwrite {
		return fmt.Errorf("genesis file already exists: %v", genFile)
	}
	gen := &types.GenesisEvent{
		ChainID: cfg.ChainID,
		Accounts: []types.GenesisAccount{
			{PubKey: pv.PublicKey(), Stake: initArgs.Stake},
		},
	}
	dat, err := json.MarshalIndent(gen, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(genFile, dat, 0o644); err != nil {
		return err
	}

	app_config.WriteConfigFile(cfg.ConfigFile(), cfg)

	out, err := json.MarshalIndent(map[string]any{
		"chain_id": cfg.ChainID,
		"address":  pv.Address(),
		"home":     cfg.Home,
	}, "", " ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stderr, "%s\n", out)
	return err
}
