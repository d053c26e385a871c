package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/kirillkom/groundedqa/internal/bootstrap"
	"github.com/kirillkom/groundedqa/internal/config"
)

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:   "index",
		Usage:  "Embed the corpus into the configured dense backend and write the index manifest",
		Action: runIndex,
	}
}

func runIndex(c *cli.Context) error {
	cfg := config.Load()
	indexer, err := bootstrap.NewIndexer(c.Context, cfg)
	if err != nil {
		return err
	}
	defer indexer.Close()

	m, err := indexer.Build(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "indexed %d chunks into %s (model %s, dimension %d)\n",
		m.ChunkCount, m.Backend, m.EmbedModel, m.Dimension)
	fmt.Fprintf(c.App.Writer, "manifest written to %s\n", cfg.ManifestPath)
	return nil
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Load a chunk JSONL file into the Postgres corpus table",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the chunk JSONL file",
				Required: true,
			},
		},
		Action: runImport,
	}
}

func runImport(c *cli.Context) error {
	imported, err := bootstrap.ImportCorpus(c.Context, config.Load(), c.String("file"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "imported %d chunks\n", imported)
	return nil
}
