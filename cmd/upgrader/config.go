package main

import (
	"fmt"

	"github.com/axiomesh/upgrader/chain"
	"github.com/axiomesh/upgrader/core"
	"github.com/axiomesh/upgrader/repo"
	"github.com/urfave/cli/v2"
)

var configCMD = &cli.Command{
	Name:  "config",
	Usage: "Manage the upgrader repo config",
	Subcommands: []*cli.Command{
		{
			Name:   "generate",
			Usage:  "Generate the repo with the default genesis and upgrade settings",
			Action: generate,
		},
		{
			Name:  "show",
			Usage: "Show the resolved genesis, committees and referendum settings",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "toml",
					Usage: "Print the config file with environment overrides applied instead",
				},
			},
			Action: show,
		},
		{
			Name:   "check",
			Usage:  "Check that the config can carry a runtime upgrade",
			Action: check,
		},
		{
			Name:   "rewrite-with-env",
			Usage:  "Write environment overrides back into the config file",
			Action: rewriteWithEnv,
		},
	},
}

func generate(ctx *cli.Context) error {
	p, err := getRootPath(ctx)
	if err != nil {
		return err
	}
	if repo.Exist(p) {
		fmt.Printf("upgrader repo %s already exists\n", p)
		return nil
	}

	// loading a missing repo writes the default config
	r, err := repo.Load(p)
	if err != nil {
		return err
	}
	fmt.Printf("initializing upgrader at %s\n", p)
	return printSummary(r.Config)
}

func show(ctx *cli.Context) error {
	r, err := loadRepo(ctx)
	if err != nil {
		return err
	}
	if ctx.Bool("toml") {
		str, err := repo.MarshalConfig(r.Config)
		if err != nil {
			return err
		}
		fmt.Println(str)
		return nil
	}
	return printSummary(r.Config)
}

func check(ctx *cli.Context) error {
	r, err := loadRepo(ctx)
	if err != nil {
		return cli.Exit(fmt.Sprintf("config error, please check: %s", err), 1)
	}
	if err := core.CheckConfig(r.Config); err != nil {
		return cli.Exit(fmt.Sprintf("config content error, please check: %s", err), 1)
	}

	fmt.Printf("config ok: %d whales vote in a %d block referendum\n", len(r.Config.Upgrade.Whales), r.Config.EffectiveVotingPeriod())
	return nil
}

func rewriteWithEnv(ctx *cli.Context) error {
	r, err := loadRepo(ctx)
	if err != nil {
		return err
	}
	return r.Flush()
}

func printSummary(cfg *repo.Config) error {
	genesis, err := core.GenesisFromConfig(&cfg.Genesis)
	if err != nil {
		return err
	}

	fmt.Println("=============Genesis=============")
	fmt.Printf("Spec version: %d, tx version: %d\n", genesis.SpecVersion, genesis.TxVersion)
	fmt.Printf("Code hash: %s (%d bytes)\n", chain.HashOf(genesis.Code).Hex(), len(genesis.Code))
	fmt.Printf("Motion duration: %d blocks, fast-track voting period: %d blocks, instant allowed: %t\n",
		genesis.Params.MotionDuration, genesis.Params.FastTrackVotingPeriod, genesis.Params.InstantAllowed)
	fmt.Println("Accounts:")
	for _, a := range genesis.Accounts {
		fmt.Printf("  %s %s\n", a.ID, formatBalance(a.Balance))
	}
	fmt.Printf("Council (threshold %d):\n", len(genesis.Council))
	for _, m := range genesis.Council {
		fmt.Printf("  %s\n", m)
	}
	fmt.Printf("Technical committee (threshold %d):\n", len(genesis.TechnicalCommittee))
	for _, m := range genesis.TechnicalCommittee {
		fmt.Printf("  %s\n", m)
	}

	fmt.Println("=============Upgrade=============")
	switch {
	case cfg.Upgrade.CodePath != "":
		fmt.Printf("Code: %s\n", cfg.Upgrade.CodePath)
	case len(cfg.Upgrade.DownloadUrls) != 0:
		fmt.Printf("Code: one of %v, %d attempts\n", cfg.Upgrade.DownloadUrls, cfg.Upgrade.Download.Attempts)
	default:
		fmt.Println("Code: none configured, pass --code to run")
	}
	fmt.Printf("Whales vote aye %s with %s each:\n", cfg.Upgrade.Conviction, formatBalance(cfg.Upgrade.VoteBalance))
	for _, w := range cfg.Upgrade.Whales {
		fmt.Printf("  %s\n", w)
	}
	source := "genesis fast-track period"
	if cfg.Upgrade.VotingPeriod != 0 {
		source = "upgrade.voting_period"
	}
	fmt.Printf("Referendum voting period: %d blocks (%s)\n", cfg.EffectiveVotingPeriod(), source)
	fmt.Printf("Strict correlation: %t\n", cfg.Upgrade.StrictCorrelation)
	return nil
}

func formatBalance(b chain.Balance) string {
	return fmt.Sprintf("%d.%012d UNIT", b/repo.Unit, b%repo.Unit)
}
