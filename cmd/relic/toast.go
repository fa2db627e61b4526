package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/relicdev/relic/internal/toaster"
)

func toastCmd() *cli.Command {
	var (
		transform string
		workers   int64
		list      bool
	)

	return &cli.Command{
		Name:      "toast",
		Usage:     "Run a batch transform over asset files and directory trees",
		ArgsUsage: "[path ...]",
		Flags: append(loggingFlags(),
			&cli.StringFlag{
				Name:        "transform",
				Aliases:     []string{"t"},
				Usage:       "transform to run (" + strings.Join(toaster.Names(), ", ") + ")",
				Value:       "scan",
				Destination: &transform,
			},
			&cli.Int64Flag{
				Name:        "workers",
				Aliases:     []string{"j"},
				Usage:       "worker count (0 = one per CPU)",
				Destination: &workers,
			},
			&cli.BoolFlag{Name: "list", Usage: "list available transforms", Destination: &list},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			if list {
				for _, name := range toaster.Names() {
					t, _ := toaster.Lookup(name)
					fmt.Printf("%-12s %s\n", name, t.Usage)
				}
				return nil
			}

			cfg := LoadConfig()
			applyLoggingConfig(c, cfg)
			applyToastConfig(c, cfg, &workers)
			log := newLogger()

			roots := c.Args().Slice()
			if len(roots) == 0 {
				return cli.Exit("error: at least one file or directory is required", 1)
			}

			stats, err := toaster.Run(ctx, transform, roots, toaster.Options{
				Workers: int(workers),
				Log:     log,
				Out:     os.Stdout,
			})
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: toast: %v", err), 1)
			}

			log.Info("toast finished",
				"transform", transform,
				"matched", stats.Matched,
				"done", stats.Done,
				"failed", stats.Failed)
			if stats.Failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d files failed", stats.Failed, stats.Matched), 1)
			}
			return nil
		},
	}
}
