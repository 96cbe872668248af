package config

import (
	"errors"
	"os"
	"path/filepath"
)

// DefaultVotingWindow is the number of sequence steps covering the
// conventional seven-day voting period. The engine never reads a clock;
// the external ordering layer emits roughly one sequence step per six
// seconds, and this constant pins that convention so windows stay pure
// sequence-number comparisons.
const DefaultVotingWindow uint64 = 100800

const (
	DefaultQuorumPct        uint64 = 30
	DefaultSupermajorityPct uint64 = 66
)

var ErrInvalidThreshold = errors.New("threshold percentage out of range")

type Config struct {
	Home     string `mapstructure:"-"`
	ChainID  string `mapstructure:"chain_id"`
	LogLevel string `mapstructure:"log_level"`

	// Governance thresholds, integer percentages. Both comparisons are
	// inclusive (>=).
	QuorumPct        uint64 `mapstructure:"quorum_pct"`
	SupermajorityPct uint64 `mapstructure:"supermajority_pct"`

	// Voting window bounds in sequence steps.
	MinVotingWindow uint64 `mapstructure:"min_voting_window"`
	MaxVotingWindow uint64 `mapstructure:"max_voting_window"`

	APIListenAddr string `mapstructure:"api_listen_addr"`
	IndexerDB     string `mapstructure:"indexer_db"`
}

func DefaultConfig(home string) *Config {
	if len(home) == 0 {
		home = os.ExpandEnv("$HOME/.governd")
	}
	return &Config{
		Home:             home,
		ChainID:          "nod-governance-1",
		LogLevel:         "info",
		QuorumPct:        DefaultQuorumPct,
		SupermajorityPct: DefaultSupermajorityPct,
		MinVotingWindow:  10,
		MaxVotingWindow:  10 * DefaultVotingWindow,
		APIListenAddr:    "127.0.0.1:8650",
		IndexerDB:        "indexer.db",
	}
}

func (c *Config) ValidateBasic() error {
	if c.QuorumPct == 0 || c.QuorumPct > 100 {
		return ErrInvalidThreshold
	}
	if c.SupermajorityPct == 0 || c.SupermajorityPct > 100 {
		return ErrInvalidThreshold
	}
	if c.MinVotingWindow == 0 || c.MinVotingWindow > c.MaxVotingWindow {
		return errors.New("invalid voting window bounds")
	}
	return nil
}

func (c *Config) DataDir() string {
	return filepath.Join(c.Home, "data")
}

func (c *Config) RegistryDir() string {
	return filepath.Join(c.Home, "registry")
}

func (c *Config) ConfigFile() string {
	return filepath.Join(c.Home, "config", "config.toml")
}

func (c *Config) GenesisFile() string {
	return filepath.Join(c.Home, "config", "genesis.json")
}

func (c *Config) PrivKeyFile() string {
	return filepath.Join(c.Home, "config", "priv_key.json")
}

func (c *Config) PrivStateFile() string {
	return filepath.Join(c.Home, "data", "priv_state.json")
}

func (c *Config) IndexerDBPath() string {
	if filepath.IsAbs(c.IndexerDB) {
		return c.IndexerDB
	}
	return filepath.Join(c.DataDir(), c.IndexerDB)
}
