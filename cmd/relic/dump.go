package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/relicdev/relic/pkg/formats/psk"
)

func dumpCmd() *cli.Command {
	var (
		filePath    string
		sectionName string
		compact     bool
	)

	return &cli.Command{
		Name:  "dump",
		Usage: "Dump a parsed asset tree as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "path to .psk or .psa file",
				Destination: &filePath,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "section",
				Aliases:     []string{"s"},
				Usage:       "dump a single section instead of the whole tree",
				Destination: &sectionName,
			},
			&cli.BoolFlag{Name: "compact", Usage: "emit compact JSON", Destination: &compact},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx

			af, err := os.Open(filePath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open asset: %v", err), 1)
			}
			defer func() { _ = af.Close() }()

			f, err := psk.Read(af)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: read asset: %v", err), 1)
			}

			var root any = f.Root.Get()
			if sectionName != "" {
				sec, ok := f.Section(sectionName)
				if !ok {
					return cli.Exit(fmt.Sprintf("error: no section %q (have: %s)",
						sectionName, strings.Join(f.SectionNames(), ", ")), 1)
				}
				root = sec.Get()
			}

			var out []byte
			if compact {
				out, err = json.Marshal(root)
			} else {
				out, err = json.MarshalIndent(root, "", "  ")
			}
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: encode tree: %v", err), 1)
			}
			fmt.Println(string(out))
			return nil
		},
	}
}
