package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/relicdev/relic/pkg/formats/psk"
	"github.com/relicdev/relic/pkg/object"
)

func inspectCmd() *cli.Command {
	var (
		filePath    string
		showAll     bool
		showStrings bool
		showHash    bool
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Inspect the contents of a .psk or .psa asset",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "path to .psk or .psa file",
				Destination: &filePath,
				Required:    true,
			},
			&cli.BoolFlag{Name: "all", Usage: "show strings and content hash too", Destination: &showAll},
			&cli.BoolFlag{Name: "strings", Usage: "list the asset's string table", Destination: &showStrings},
			&cli.BoolFlag{Name: "hash", Usage: "show the content hash", Destination: &showHash},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx

			if showAll {
				showStrings = true
				showHash = true
			}

			stat, err := os.Stat(filePath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: stat asset path %q: %v", filePath, err), 1)
			}
			if stat.IsDir() || !psk.Matches(filePath) {
				return cli.Exit("error: relic inspect only supports .psk and .psa files", 1)
			}

			af, err := os.Open(filePath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open asset: %v", err), 1)
			}
			defer func() { _ = af.Close() }()

			info, err := psk.Inspect(af)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: inspect: %v", err), 1)
			}

			fmt.Printf("Relic Inspect: %s\n", filePath)
			fmt.Printf("File: %s (%s)\n", filepath.Base(filePath), formatBytes(uint64(stat.Size())))
			printChunkHeader(info)

			f, err := psk.Read(af)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: read asset: %v", err), 1)
			}

			section("Sections")
			for _, name := range f.SectionNames() {
				sec, _ := f.Section(name)
				tag := fieldString(sec, "chunk_id")
				count := fieldInt(sec, "data_count")
				size := fieldInt(sec, "data_size")
				fmt.Printf("  %-12s %-10s %8d records  %4dB each\n", name, tag, count, size)
			}

			if showHash {
				hash, err := f.Hash()
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: hash: %v", err), 1)
				}
				section("Content Hash")
				fmt.Printf("  %016x\n", hash)
			}

			if showStrings {
				strs, err := f.Strings()
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: strings: %v", err), 1)
				}
				section(fmt.Sprintf("Strings (%d)", len(strs)))
				for _, s := range strs {
					fmt.Printf("  %s\n", s)
				}
			}

			return nil
		},
	}
}

func printChunkHeader(info *psk.Info) {
	fmt.Printf("Chunk header: type=%s flags=%d size=%d count=%d\n",
		info.Type, info.TypeFlags, info.DataSize, info.DataCount)
}

func fieldString(ins *object.Instance, name string) string {
	v, ok := ins.Field(name)
	if !ok {
		return ""
	}
	s, _ := v.Get().(string)
	return s
}

func fieldInt(ins *object.Instance, name string) int64 {
	v, ok := ins.Field(name)
	if !ok {
		return 0
	}
	n, _ := v.Get().(int64)
	return n
}

func section(title string) {
	line := strings.Repeat("-", len(title)+8)
	fmt.Printf("\n%s\n--- %s ---\n%s\n", line, title, line)
}

func row(label, value string) {
	if value == "" {
		return
	}
	fmt.Printf("%-24s %s\n", label+":", value)
}

func rowInt(label string, v int) {
	if v == 0 {
		return
	}
	row(label, fmt.Sprintf("%d", v))
}

func formatBytes(b uint64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
		tb = 1024 * gb
	)
	switch {
	case b >= tb:
		return fmt.Sprintf("%.2f TiB", float64(b)/float64(tb))
	case b >= gb:
		return fmt.Sprintf("%.2f GiB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.2f MiB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.2f KiB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
