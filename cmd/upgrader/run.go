package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/axiomesh/axiom-kit/log"
	"github.com/axiomesh/axiom-kit/storage/leveldb"
	"github.com/axiomesh/upgrader"
	"github.com/axiomesh/upgrader/chain"
	"github.com/axiomesh/upgrader/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var runCMD = &cli.Command{
	Name:  "run",
	Usage: "Run the governance workflow that enacts a new runtime code",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "code",
			Usage: "Runtime code file, overrides upgrade.code_path",
		},
		&cli.UintFlag{
			Name:  "voting-period",
			Usage: "Referendum voting period in blocks, overrides upgrade.voting_period",
		},
		&cli.BoolFlag{
			Name:  "trace-blocks",
			Usage: "Log every sealed block and its events, overrides log.trace_blocks",
		},
	},
	Action: run,
}

func run(ctx *cli.Context) error {
	r, err := loadRepo(ctx)
	if err != nil {
		return err
	}
	if codePath := ctx.String("code"); codePath != "" {
		r.Config.Upgrade.CodePath = codePath
	}
	if ctx.IsSet("voting-period") {
		r.Config.Upgrade.VotingPeriod = uint32(ctx.Uint("voting-period"))
	}
	if ctx.Bool("trace-blocks") {
		r.Config.Log.TraceBlocks = true
	}
	if err := core.CheckConfig(r.Config); err != nil {
		return fmt.Errorf("check config: %w", err)
	}

	err = log.Initialize(
		log.WithReportCaller(r.Config.Log.ReportCaller),
		log.WithPersist(true),
		log.WithFilePath(r.LogsPath()),
		log.WithFileName(r.Config.Log.Filename),
		log.WithMaxAge(r.Config.Log.MaxAge),
		log.WithRotationTime(r.Config.Log.RotationTime),
	)
	if err != nil {
		return fmt.Errorf("log initialize: %w", err)
	}

	printVersion()

	logger := log.New()
	logger.SetLevel(log.ParseLevel(r.Config.Log.Level))

	code, err := core.LoadRuntimeCode(&r.Config.Upgrade, logger)
	if err != nil {
		return fmt.Errorf("load runtime code: %w", err)
	}

	db, err := leveldb.New(r.ChainDataPath())
	if err != nil {
		return fmt.Errorf("open chain data: %w", err)
	}

	node, err := core.NewNode(r.Config, db, chain.WithLogger(logger), chain.WithRegistry(prometheus.NewRegistry()))
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("new node error: %w", err)
	}
	defer node.Close()

	runCtx, cancel := context.WithCancel(ctx.Context)
	defer cancel()
	handleShutdown(cancel)

	var wg sync.WaitGroup
	if r.Config.Log.TraceBlocks {
		wg.Add(1)
		go traceBlocks(runCtx, node, logger, &wg)
	}

	u, err := core.NewUpgrader(runCtx, r.Config, node)
	if err != nil {
		return fmt.Errorf("new upgrader error: %w", err)
	}

	outcome, err := u.PerformRuntimeUpgrade(code)
	cancel()
	wg.Wait()
	if err != nil {
		return fmt.Errorf("runtime upgrade failed: %w", err)
	}

	printOutcome(node, outcome)
	return nil
}

func traceBlocks(ctx context.Context, node *chain.Node, logger logrus.FieldLogger, wg *sync.WaitGroup) {
	defer wg.Done()

	ch := make(chan chain.NewBlock, 16)
	sub := node.SubscribeNewBlock(ch)
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-sub.Err():
			if err != nil {
				logger.Errorf("block subscription: %s", err)
			}
			return
		case b := <-ch:
			logger.Infof("block %d %s, %d extrinsics", b.Number, b.Hash.Hex(), b.Extrinsics)
			for _, e := range b.Events {
				logger.Debugf("  %s", e)
			}
		}
	}
}

func printOutcome(node *chain.Node, outcome *core.Outcome) {
	var upgrade chain.RuntimeUpgrade
	_ = node.Query(func(v chain.View) error {
		upgrade = v.LastRuntimeUpgrade()
		return nil
	})

	fmt.Println("=============Runtime upgrade enacted=============")
	fmt.Printf("Proposal hash: %s\n", outcome.ProposalHash.Hex())
	fmt.Printf("Council motion: %d %s\n", outcome.CouncilMotion.Index, outcome.CouncilMotion.Hash.Hex())
	fmt.Printf("Technical committee motion: %d %s\n", outcome.TechnicalMotion.Index, outcome.TechnicalMotion.Hash.Hex())
	fmt.Printf("Referendum: %d, enacted at block %d\n", outcome.Referendum, outcome.ReferendumEnd)
	fmt.Printf("Spec version: %d since block %d\n", upgrade.SpecVersion, upgrade.Block)
}

func printVersion() {
	fmt.Printf("Upgrader version: %s-%s-%s\n", upgrader.CurrentVersion, upgrader.CurrentBranch, upgrader.CurrentCommit)
	fmt.Printf("App build date: %s\n", upgrader.BuildDate)
	fmt.Printf("System version: %s\n", upgrader.Platform)
	fmt.Printf("Golang version: %s\n", upgrader.GoVersion)
	fmt.Println()
}

// handleShutdown cancels the run on interrupt; the upgrader stops before its next stage.
func handleShutdown(cancel context.CancelFunc) {
	var stop = make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGTERM)
	signal.Notify(stop, syscall.SIGINT)

	go func() {
		<-stop
		fmt.Println("received interrupt signal, shutting down...")
		cancel()
	}()
}
