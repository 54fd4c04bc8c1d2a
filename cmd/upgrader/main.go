package main

import (
	"fmt"
	"os"
	"time"

	"github.com/axiomesh/upgrader/repo"
	"github.com/urfave/cli/v2"
)

var versionCMD = &cli.Command{
	Name:    "version",
	Aliases: []string{"v"},
	Usage:   "Upgrader version",
	Action: func(ctx *cli.Context) error {
		printVersion()
		return nil
	},
}

func main() {
	app := &cli.App{
		Name:     "upgrader",
		Usage:    "Drive a runtime upgrade through council, technical committee and a fast-tracked referendum",
		Compiled: time.Now(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "repo",
				Usage: "Upgrader repo path, defaults to $UPGRADER_PATH or ~/.upgrader",
			},
		},
		Commands: []*cli.Command{
			configCMD,
			runCMD,
			versionCMD,
		},
	}

	cli.VersionPrinter = func(c *cli.Context) {
		printVersion()
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func getRootPath(ctx *cli.Context) (string, error) {
	return repo.LoadRepoRootFromEnv(ctx.String("repo"))
}

// loadRepo opens an existing repo; a missing repo is reported rather than generated.
func loadRepo(ctx *cli.Context) (*repo.Repo, error) {
	p, err := getRootPath(ctx)
	if err != nil {
		return nil, err
	}
	if !repo.Exist(p) {
		return nil, fmt.Errorf("upgrader repo %s does not exist, run `upgrader config generate` first", p)
	}
	return repo.Load(p)
}
