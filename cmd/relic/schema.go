package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/relicdev/relic/pkg/schema"
	"github.com/relicdev/relic/pkg/schemadoc"
)

func schemaCmd() *cli.Command {
	var (
		filePath  string
		dir       string
		listDocs  bool
		showTypes bool
	)

	return &cli.Command{
		Name:      "schema",
		Usage:     "Load and summarize a schema document",
		ArgsUsage: "[name]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "path to a schema document",
				Destination: &filePath,
			},
			&cli.StringFlag{
				Name:        "dir",
				Aliases:     []string{"d"},
				Usage:       "schema search directory",
				Destination: &dir,
			},
			&cli.BoolFlag{Name: "list", Usage: "list documents on the search path", Destination: &listDocs},
			&cli.BoolFlag{Name: "types", Usage: "list every declared type", Destination: &showTypes},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx

			cfg := LoadConfig()
			applySchemaConfig(c, cfg, &dir)

			if listDocs {
				dirs := schemaSearchDirs(dir)
				if len(dirs) == 0 {
					return cli.Exit(fmt.Sprintf("error: no search path; set --dir or %s", envRelicSchemaDir), 1)
				}
				for _, d := range dirs {
					docs, err := discoverSchemaDocs(d)
					if err != nil {
						return cli.Exit(fmt.Sprintf("error: %v", err), 1)
					}
					for _, doc := range docs {
						fmt.Println(doc)
					}
				}
				return nil
			}

			path, err := resolveSchemaDoc(filePath, c.Args().First(), schemaSearchDirs(dir))
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			f, err := schemadoc.LoadFile(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load schema: %v", err), 1)
			}

			printFormatSummary(path, f, showTypes)
			return nil
		},
	}
}

func printFormatSummary(path string, f *schema.Format, showTypes bool) {
	fmt.Printf("Relic Schema: %s\n", path)
	row("Format", f.Name)
	row("Byte order", orderName(f.Order))

	var basics, enums, bitfields, structs int
	for _, name := range f.TypeNames() {
		t, _ := f.Type(name)
		switch t.(type) {
		case *schema.Basic:
			basics++
		case *schema.Enum:
			enums++
		case *schema.Bitfield:
			bitfields++
		case *schema.Struct:
			structs++
		}
	}
	rowInt("Basics", basics)
	rowInt("Enums", enums)
	rowInt("Bitfields", bitfields)
	rowInt("Structs", structs)
	rowInt("Versions", len(f.Versions()))

	if len(f.Versions()) > 0 {
		section("Versions")
		for _, v := range f.Versions() {
			mark := " "
			if v.Supported {
				mark = "*"
			}
			games := ""
			if len(v.Games) > 0 {
				games = "  " + strings.Join(v.Games, ", ")
			}
			fmt.Printf("  %s %-12s %-14s%s\n", mark, v.Num, v.ID, games)
		}
	}

	if showTypes {
		section("Types")
		for _, name := range f.TypeNames() {
			t, _ := f.Type(name)
			fmt.Printf("  %-24s %s\n", name, typeKindName(t))
		}
	}
}

func orderName(o binary.ByteOrder) string {
	if o == binary.ByteOrder(nil) {
		return "unknown"
	}
	if o.String() == "BigEndian" {
		return "big"
	}
	return "little"
}

func typeKindName(t schema.Type) string {
	switch tt := t.(type) {
	case *schema.Basic:
		return "basic (" + tt.Kind.String() + ")"
	case *schema.Enum:
		return fmt.Sprintf("enum, %d constants", len(tt.Names))
	case *schema.Bitfield:
		return fmt.Sprintf("bitfield, %d members", len(tt.Members))
	case *schema.Struct:
		return fmt.Sprintf("struct, %d fields", len(tt.Fields))
	}
	return "unknown"
}
