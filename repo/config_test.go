package repo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/axiomesh/upgrader/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGeneratesDefaultConfig(t *testing.T) {
	tempDir := t.TempDir()

	r, err := Load(tempDir)
	require.Nil(t, err)
	assert.True(t, Exist(filepath.Join(tempDir, cfgFileName)))
	expected := DefaultConfig(tempDir)
	assert.Equal(t, tempDir, r.Config.RepoRoot)
	assert.Equal(t, expected.Log, r.Config.Log)
	assert.Equal(t, expected.Genesis.Accounts, r.Config.Genesis.Accounts)
	assert.Equal(t, expected.Genesis.MaxBlockWeight, r.Config.Genesis.MaxBlockWeight)
	assert.Equal(t, expected.Upgrade.Whales, r.Config.Upgrade.Whales)
	assert.Equal(t, expected.Upgrade.Download, r.Config.Upgrade.Download)
	assert.True(t, r.Config.Upgrade.StrictCorrelation)
	assert.Equal(t, filepath.Join(tempDir, ChainDataDirName), r.ChainDataPath())
}

func TestLoadReadsBackFlushedConfig(t *testing.T) {
	tempDir := t.TempDir()

	cfg := DefaultConfig(tempDir)
	cfg.Log.Level = "debug"
	cfg.Upgrade.CodePath = "/tmp/runtime.wasm"
	cfg.Upgrade.VotingPeriod = 5
	cfg.Upgrade.Download.Backoff = time.Second
	cfg.Genesis.Accounts = append(cfg.Genesis.Accounts, Account{Address: chain.AccountID{9}.String(), Balance: 7})
	require.Nil(t, (&Repo{Config: cfg}).Flush())

	r, err := Load(tempDir)
	require.Nil(t, err)
	assert.Equal(t, "debug", r.Config.Log.Level)
	assert.Equal(t, "/tmp/runtime.wasm", r.Config.Upgrade.CodePath)
	assert.EqualValues(t, 5, r.Config.Upgrade.VotingPeriod)
	assert.Equal(t, time.Second, r.Config.Upgrade.Download.Backoff)
	assert.Equal(t, cfg.Genesis.Accounts, r.Config.Genesis.Accounts)
	assert.Equal(t, cfg.Genesis.Council, r.Config.Genesis.Council)
}

func TestLoadWithEnvOverride(t *testing.T) {
	tempDir := t.TempDir()
	_, err := Load(tempDir)
	require.Nil(t, err)

	t.Setenv("UPGRADER_UPGRADE_VOTE_BALANCE", "5")
	t.Setenv("UPGRADER_UPGRADE_CONVICTION", "locked3x")

	r, err := Load(tempDir)
	require.Nil(t, err)
	assert.EqualValues(t, 5, r.Config.Upgrade.VoteBalance)
	assert.Equal(t, "locked3x", r.Config.Upgrade.Conviction)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tempDir := t.TempDir()
	cfg := DefaultConfig(tempDir)
	cfg.Genesis.FastTrackVotingPeriod = 1
	require.Nil(t, (&Repo{Config: cfg}).Flush())

	_, err := Load(tempDir)
	assert.ErrorIs(t, err, ErrVotingPeriodTooShort)
	assert.Contains(t, err.Error(), "genesis.fast_track_voting_period is 1")

	// an explicit override takes the place of the chain's period
	t.Setenv("UPGRADER_UPGRADE_VOTING_PERIOD", "2")
	r, err := Load(tempDir)
	require.Nil(t, err)
	assert.EqualValues(t, 2, r.Config.EffectiveVotingPeriod())

	t.Setenv("UPGRADER_UPGRADE_VOTING_PERIOD", "1")
	_, err = Load(tempDir)
	assert.ErrorIs(t, err, ErrVotingPeriodTooShort)
	assert.Contains(t, err.Error(), "upgrade.voting_period is 1")
}

func TestValidate(t *testing.T) {
	assert.Nil(t, DefaultConfig("").Validate())

	tests := []struct {
		name   string
		modify func(cfg *Config)
		is     error
	}{
		{"bad whale", func(cfg *Config) { cfg.Upgrade.Whales[1] = "not-an-address" }, chain.ErrInvalidAddress},
		{"bad council member", func(cfg *Config) { cfg.Genesis.Council[0] = cfg.Genesis.Council[0][1:] }, chain.ErrInvalidAddress},
		{"bad technical member", func(cfg *Config) { cfg.Genesis.TechnicalCommittee[1] = "" }, chain.ErrInvalidAddress},
		{"bad account", func(cfg *Config) { cfg.Genesis.Accounts[0].Address = "0x00" }, chain.ErrInvalidAddress},
		{"bad conviction", func(cfg *Config) { cfg.Upgrade.Conviction = "locked7x" }, chain.ErrInvalidConviction},
		{"short override", func(cfg *Config) { cfg.Upgrade.VotingPeriod = 1 }, ErrVotingPeriodTooShort},
		{"short fast track", func(cfg *Config) { cfg.Genesis.FastTrackVotingPeriod = 0 }, ErrVotingPeriodTooShort},
		{"no whales", func(cfg *Config) { cfg.Upgrade.Whales = nil }, nil},
		{"no council", func(cfg *Config) { cfg.Genesis.Council = nil }, nil},
		{"no technical committee", func(cfg *Config) { cfg.Genesis.TechnicalCommittee = nil }, nil},
		{"no vote balance", func(cfg *Config) { cfg.Upgrade.VoteBalance = 0 }, nil},
		{"no genesis code", func(cfg *Config) { cfg.Genesis.Code = "" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("")
			tt.modify(cfg)
			err := cfg.Validate()
			require.NotNil(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}

	// a short fast-track period is fine once overridden
	cfg := DefaultConfig("")
	cfg.Genesis.FastTrackVotingPeriod = 1
	cfg.Upgrade.VotingPeriod = MinVotingPeriod
	assert.Nil(t, cfg.Validate())
}

func TestLoadRepoRootFromEnv(t *testing.T) {
	root, err := LoadRepoRootFromEnv("/explicit")
	require.Nil(t, err)
	assert.Equal(t, "/explicit", root)

	t.Setenv(rootPathEnvVar, "/from/env")
	root, err = LoadRepoRootFromEnv("")
	require.Nil(t, err)
	assert.Equal(t, "/from/env", root)
}

func TestMarshalConfig(t *testing.T) {
	raw, err := MarshalConfig(DefaultConfig("/repo"))
	require.Nil(t, err)
	assert.Contains(t, raw, "[genesis]")
	assert.Contains(t, raw, "strict_correlation = true")
	assert.Contains(t, raw, defaultWhales[0])
	assert.NotContains(t, raw, "/repo")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("")
	assert.Len(t, cfg.Genesis.Council, 3)
	assert.Len(t, cfg.Genesis.TechnicalCommittee, 2)
	assert.Len(t, cfg.Upgrade.Whales, 2)
	assert.Len(t, cfg.Genesis.Accounts, 7)
	for _, a := range cfg.Genesis.Accounts {
		assert.GreaterOrEqual(t, a.Balance, cfg.Upgrade.VoteBalance)
	}

	// defaults do not alias each other
	cfg.Genesis.Council[0] = "x"
	assert.NotEqual(t, "x", DefaultConfig("").Genesis.Council[0])
}

func TestCheckWritable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "new")
	require.Nil(t, CheckWritable(dir))
	fi, err := os.Stat(dir)
	require.Nil(t, err)
	assert.True(t, fi.IsDir())
	require.Nil(t, CheckWritable(dir))
}
