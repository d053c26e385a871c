package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/kirillkom/groundedqa/internal/bootstrap"
	"github.com/kirillkom/groundedqa/internal/config"
	"github.com/kirillkom/groundedqa/internal/core/domain"
	"github.com/kirillkom/groundedqa/internal/infrastructure/queue/nats"
	"github.com/kirillkom/groundedqa/internal/infrastructure/resilience"
)

func askCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer a question and print the verification score and sources",
		ArgsUsage: "<question>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "remote",
				Usage: "Send the question to a worker over NATS instead of running the pipeline locally",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the response as JSON",
			},
		},
		Action: runAsk,
	}
}

func runAsk(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return cli.Exit("a question is required", 2)
	}
	cfg := config.Load()

	var (
		resp *domain.AskResponse
		err  error
	)
	if c.Bool("remote") {
		resp, err = askRemote(c, cfg, question)
	} else {
		resp, err = askLocal(c, cfg, question)
	}
	if err != nil {
		failure := describe(err)
		return cli.Exit(fmt.Sprintf("%s: %s", failure.Kind, failure.Message), 1)
	}

	if c.Bool("json") {
		return writeJSON(c.App.Writer, resp)
	}
	printAnswer(c.App.Writer, resp)
	return nil
}

func askLocal(c *cli.Context, cfg config.Config, question string) (*domain.AskResponse, error) {
	app, err := bootstrap.New(c.Context, cfg)
	if err != nil {
		return nil, err
	}
	defer app.Close()

	result, err := app.QueryUC.Ask(c.Context, question)
	if err != nil {
		return nil, err
	}
	resp := domain.NewAskResponse(result)
	return &resp, nil
}

func askRemote(c *cli.Context, cfg config.Config, question string) (*domain.AskResponse, error) {
	conn, err := nats.Connect(cfg.NATSURL, nats.Options{})
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "connect nats", err)
	}
	defer conn.Close()

	policy := bootstrap.ResilienceConfig(cfg)
	policy.BreakerEnabled = false
	executor := resilience.NewExecutor(policy)
	return nats.NewRequester(conn, cfg.NATSSubject, cfg.NATSRequestTimeout, executor).Ask(c.Context, question)
}

// describe keeps failures reported by a remote worker as they are.
func describe(err error) domain.Failure {
	var remote *domain.Failure
	if errors.As(err, &remote) {
		return *remote
	}
	return domain.DescribeFailure(err)
}

func printAnswer(w io.Writer, resp *domain.AskResponse) {
	fmt.Fprintf(w, "Q: %s\n\n", resp.Question)
	fmt.Fprintf(w, "%s\n\n", resp.Answer)

	scoreColor := color.New(color.FgRed)
	if resp.Verified {
		scoreColor = color.New(color.FgGreen)
	}
	if resp.VerificationScore != nil {
		scoreColor.Fprintf(w, "[Verification score]: %.3f\n", *resp.VerificationScore)
	} else {
		scoreColor.Fprintln(w, "[Verification score]: N/A")
	}

	if len(resp.Sources) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSources:")
	for _, source := range resp.Sources {
		fmt.Fprintf(w, "[%d] %s\n", source.Index, source.URL)
	}
}
