package repo

import (
	"time"
)

// Unit is one whole token in the chain's smallest denomination.
const Unit uint64 = 1_000_000_000_000

type Config struct {
	RepoRoot string  `mapstructure:"-" toml:"-"`
	Log      Log     `mapstructure:"log" toml:"log"`
	Genesis  Genesis `mapstructure:"genesis" toml:"genesis"`
	Upgrade  Upgrade `mapstructure:"upgrade" toml:"upgrade"`
}

type Log struct {
	Level        string        `mapstructure:"level" toml:"level"`
	Filename     string        `mapstructure:"filename" toml:"filename"`
	ReportCaller bool          `mapstructure:"report_caller" toml:"report_caller"`
	MaxAge       time.Duration `mapstructure:"max_age" toml:"max_age"`
	RotationTime time.Duration `mapstructure:"rotation_time" toml:"rotation_time"`
	// TraceBlocks logs every sealed block with its events
	TraceBlocks bool `mapstructure:"trace_blocks" toml:"trace_blocks"`
}

type Account struct {
	Address string `mapstructure:"address" toml:"address"`
	Balance uint64 `mapstructure:"balance" toml:"balance"`
}

type Genesis struct {
	SpecVersion uint32 `mapstructure:"spec_version" toml:"spec_version"`
	TxVersion   uint32 `mapstructure:"tx_version" toml:"tx_version"`
	// Code is the runtime the chain starts with
	Code               string    `mapstructure:"code" toml:"code"`
	Accounts           []Account `mapstructure:"accounts" toml:"accounts"`
	Council            []string  `mapstructure:"council" toml:"council"`
	TechnicalCommittee []string  `mapstructure:"technical_committee" toml:"technical_committee"`

	// MotionDuration in blocks
	MotionDuration uint32 `mapstructure:"motion_duration" toml:"motion_duration"`
	// FastTrackVotingPeriod in blocks; shorter periods need an unanimous technical committee
	FastTrackVotingPeriod uint32 `mapstructure:"fast_track_voting_period" toml:"fast_track_voting_period"`
	InstantAllowed        bool   `mapstructure:"instant_allowed" toml:"instant_allowed"`
	PreimageByteDeposit   uint64 `mapstructure:"preimage_byte_deposit" toml:"preimage_byte_deposit"`
	BaseFee               uint64 `mapstructure:"base_fee" toml:"base_fee"`
	ByteFee               uint64 `mapstructure:"byte_fee" toml:"byte_fee"`
	MaxBlockWeight        uint64 `mapstructure:"max_block_weight" toml:"max_block_weight"`
}

type Upgrade struct {
	// CodePath is a local runtime blob; when empty the code is downloaded from DownloadUrls
	CodePath     string   `mapstructure:"code_path" toml:"code_path"`
	DownloadUrls []string `mapstructure:"download_urls" toml:"download_urls"`
	// CheckHash is the hex sha256 of the downloaded blob
	CheckHash string   `mapstructure:"check_hash" toml:"check_hash"`
	Download  Download `mapstructure:"download" toml:"download"`

	Whales      []string `mapstructure:"whales" toml:"whales"`
	VoteBalance uint64   `mapstructure:"vote_balance" toml:"vote_balance"`
	Conviction  string   `mapstructure:"conviction" toml:"conviction"`
	// VotingPeriod of the fast-tracked referendum, 0 means the chain's fast-track voting period
	VotingPeriod uint32 `mapstructure:"voting_period" toml:"voting_period"`
	// StrictCorrelation fails a stage when its awaited event occurs more than once
	StrictCorrelation bool `mapstructure:"strict_correlation" toml:"strict_correlation"`
}

type Download struct {
	Attempts uint          `mapstructure:"attempts" toml:"attempts"`
	Backoff  time.Duration `mapstructure:"backoff" toml:"backoff"`
}

var (
	defaultWhales = []string{
		"1rvXMZpAj9nKLQkPFCymyH7Fg3ZyKJhJbrc7UtHbTVhJm1A",
		"15j4dg5GzsL1bw2U2AWgeyAk6QTxq43V7ZPbXdAmbVLjvDCK",
	}

	defaultCouncil = []string{
		"14sNnwo4VEX2bFc8jX2JBW8rPmFQpFTRB3UaEpajAbvFqoeL",
		"13tLBqQ1WPi62KHs5VUaepmgxHSyMmcRrEKKPQjGipBQVEGq",
		"16987xVHb3i4nw1EETfsoZdMTJxtkNAJtwWp8t41ouL6exxc",
	}

	defaultTechnicalCommittee = []string{
		"15H9gZzRtQ8n25nSyKBa4sVH7Vevf8ySgcUWc4pmujZYhgBP",
		"16kr2GVMEtyunLVLdV2Sv13soG3j1iCJbCHmf8xgtzefM5xV",
	}
)

func DefaultConfig(repoRoot string) *Config {
	var accounts []Account
	for _, addr := range defaultWhales {
		accounts = append(accounts, Account{Address: addr, Balance: 1_000 * Unit})
	}
	for _, addr := range append(append([]string{}, defaultCouncil...), defaultTechnicalCommittee...) {
		accounts = append(accounts, Account{Address: addr, Balance: 100 * Unit})
	}

	return &Config{
		RepoRoot: repoRoot,
		Log: Log{
			Level:        "info",
			Filename:     "upgrader.log",
			ReportCaller: false,
			MaxAge:       30 * 24 * time.Hour,
			RotationTime: 24 * time.Hour,
		},
		Genesis: Genesis{
			SpecVersion:           25,
			TxVersion:             5,
			Code:                  "genesis-runtime",
			Accounts:              accounts,
			Council:               append([]string{}, defaultCouncil...),
			TechnicalCommittee:    append([]string{}, defaultTechnicalCommittee...),
			MotionDuration:        100,
			FastTrackVotingPeriod: 30,
			InstantAllowed:        true,
			PreimageByteDeposit:   1_000_000,
			BaseFee:               1_000_000_000,
			ByteFee:               10_000_000,
			MaxBlockWeight:        2_000_000_000_000,
		},
		Upgrade: Upgrade{
			CodePath: "",
			Download: Download{
				Attempts: 5,
				Backoff:  5 * time.Second,
			},
			Whales:            append([]string{}, defaultWhales...),
			VoteBalance:       10 * Unit,
			Conviction:        "locked1x",
			VotingPeriod:      0,
			StrictCorrelation: true,
		},
	}
}
