// Package commands holds the enrich CLI. Each enrichment job is a subcommand;
// "all" runs every job in order.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/futureroot-service/internal/app"
	"github.com/couchcryptid/futureroot-service/internal/config"
	"github.com/couchcryptid/futureroot-service/internal/observability"
	"github.com/couchcryptid/futureroot-service/internal/pipeline"
)

// Runner executes enrichment jobs. *pipeline.Enricher satisfies it.
type Runner interface {
	Run(ctx context.Context, job string) (pipeline.Summary, error)
	RunAll(ctx context.Context) ([]pipeline.Summary, error)
}

// Opener builds a Runner for one invocation and returns a release func.
type Opener func(cmd *cobra.Command) (Runner, func(), error)

// Root returns the enrich command tree backed by the configured database.
func Root() *cobra.Command {
	return NewRoot(openCore)
}

// NewRoot builds the command tree around open.
func NewRoot(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "enrich",
		Short:         "enrich fills location and provider records from public datasets and upstream APIs.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	for _, job := range pipeline.JobNames {
		root.AddCommand(&cobra.Command{
			Use:   job,
			Short: pipeline.Describe(job),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				runner, release, err := open(cmd)
				if err != nil {
					return err
				}
				defer release()

				s, err := runner.Run(cmd.Context(), job)
				if err != nil {
					return err
				}
				render(cmd.OutOrStdout(), []pipeline.Summary{s})
				return nil
			},
		})
	}

	root.AddCommand(&cobra.Command{
		Use:   "all",
		Short: "run every job in dependency order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner, release, err := open(cmd)
			if err != nil {
				return err
			}
			defer release()

			summaries, err := runner.RunAll(cmd.Context())
			render(cmd.OutOrStdout(), summaries)
			return err
		},
	})

	return root
}

func openCore(cmd *cobra.Command) (Runner, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	core, err := app.NewCore(cmd.Context(), cfg, observability.NewMetrics(), logger)
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if err := core.Close(); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("close core", "error", err)
		}
	}
	return core.Enricher, release, nil
}

func render(w io.Writer, summaries []pipeline.Summary) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Job", "Updated", "Skipped", "Already set", "Total", "Note"})

	var total pipeline.Summary
	for _, s := range summaries {
		note := ""
		if s.Interrupted {
			note = "interrupted"
		}
		t.AppendRow(table.Row{
			s.Job,
			humanize.Comma(int64(s.Updated)),
			humanize.Comma(int64(s.Skipped)),
			humanize.Comma(int64(s.AlreadySet)),
			humanize.Comma(int64(s.Total())),
			note,
		})
		total.Updated += s.Updated
		total.Skipped += s.Skipped
		total.AlreadySet += s.AlreadySet
	}
	if len(summaries) > 1 {
		t.AppendFooter(table.Row{
			"",
			humanize.Comma(int64(total.Updated)),
			humanize.Comma(int64(total.Skipped)),
			humanize.Comma(int64(total.AlreadySet)),
			humanize.Comma(int64(total.Total())),
			"",
		})
	}
	t.Render()
}
