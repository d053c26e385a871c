package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/kirillkom/groundedqa/internal/bootstrap"
	"github.com/kirillkom/groundedqa/internal/config"
	"github.com/kirillkom/groundedqa/internal/core/domain"
	"github.com/kirillkom/groundedqa/internal/infrastructure/evalset"
	"github.com/kirillkom/groundedqa/internal/infrastructure/report/xlsx"
)

func evalCommand() *cli.Command {
	return &cli.Command{
		Name:  "eval",
		Usage: "Compare lexical, dense and hybrid retrieval on a labelled question set",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "eval-file",
				Aliases:  []string{"e"},
				Usage:    "Path to the evaluation JSONL file",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "k",
				Usage: "Cutoff for Recall, MRR and nDCG",
				Value: 5,
			},
			&cli.StringFlag{
				Name:  "xlsx",
				Usage: "Also write per-question scores to this XLSX file",
			},
		},
		Action: runEval,
	}
}

func runEval(c *cli.Context) error {
	k := c.Int("k")
	if k <= 0 {
		return cli.Exit("--k must be positive", 2)
	}

	items, err := evalset.Read(c.Context, c.String("eval-file"))
	if err != nil {
		return err
	}

	retrieval, err := bootstrap.NewRetrieval(c.Context, config.Load())
	if err != nil {
		return err
	}
	defer retrieval.Close()

	report, err := retrieval.NewEvaluator(k).Evaluate(c.Context, items)
	if err != nil {
		return err
	}
	if err := printSummary(c.App.Writer, report); err != nil {
		return err
	}

	if path := c.String("xlsx"); path != "" {
		if err := xlsx.Write(path, report); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "\nreport written to %s\n", path)
	}
	return nil
}

func printSummary(w io.Writer, report *domain.EvalReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "retriever\tquestions\trecall@%d\tmrr@%d\tndcg@%d\n", report.K, report.K, report.K)
	for _, s := range report.Summaries {
		fmt.Fprintf(tw, "%s\t%d\t%.4f\t%.4f\t%.4f\n", s.Retriever, s.Questions, s.Recall, s.MRR, s.NDCG)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
