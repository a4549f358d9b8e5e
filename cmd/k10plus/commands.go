package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"K10PlusExport/internal/app"
	"K10PlusExport/internal/domain"
)

type command struct {
	name    string
	summary string
	flags   func() *pflag.FlagSet
	run     func(ctx context.Context, a *app.Application, flagSet *pflag.FlagSet, out io.Writer) error
}

var commands = []command{
	{
		name:    "export",
		summary: "write MARC21-XML for selected articles to a file",
		flags: func() *pflag.FlagSet {
			flagSet := batchFlags("export")
			flagSet.StringP("output", "o", ".", "directory receiving the export artifact")
			return flagSet
		},
		run: runExport,
	},
	{
		name:    "deposit",
		summary: "deposit selected articles to the catalog over SFTP",
		flags:   func() *pflag.FlagSet { return batchFlags("deposit") },
		run:     runDeposit,
	},
	{
		name:    "mark-registered",
		summary: "mark articles as registered without depositing",
		flags:   func() *pflag.FlagSet { return batchFlags("mark-registered") },
		run: func(ctx context.Context, a *app.Application, flagSet *pflag.FlagSet, out io.Writer) error {
			return runMark(ctx, a, flagSet, out, domain.ActionMarkRegistered)
		},
	},
	{
		name:    "mark-unregistered",
		summary: "queue articles for the next scheduled deposit",
		flags:   func() *pflag.FlagSet { return batchFlags("mark-unregistered") },
		run: func(ctx context.Context, a *app.Application, flagSet *pflag.FlagSet, out io.Writer) error {
			return runMark(ctx, a, flagSet, out, domain.ActionMarkUnregistered)
		},
	},
	{
		name:    "register-pending",
		summary: "run one scheduled registration pass now",
		flags:   func() *pflag.FlagSet { return pflag.NewFlagSet("register-pending", pflag.ContinueOnError) },
		run: func(ctx context.Context, a *app.Application, _ *pflag.FlagSet, _ io.Writer) error {
			a.RunOnce(ctx)
			return nil
		},
	},
	{
		name:    "status",
		summary: "show the deposit status of articles",
		flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("status", pflag.ContinueOnError)
			flagSet.Int64Slice("ids", nil, "article ids")
			return flagSet
		},
		run: runStatus,
	},
	{
		name:    "serve",
		summary: "run scheduled registration until interrupted",
		flags:   func() *pflag.FlagSet { return pflag.NewFlagSet("serve", pflag.ContinueOnError) },
		run: func(ctx context.Context, a *app.Application, _ *pflag.FlagSet, _ io.Writer) error {
			return a.Serve(ctx)
		},
	},
	{
		name:    "migrate",
		summary: "apply database migrations (up, down, status)",
		flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
			flagSet.String("command", "up", "migration command: up, down, status")
			return flagSet
		},
		run: func(ctx context.Context, a *app.Application, flagSet *pflag.FlagSet, _ io.Writer) error {
			migration, _ := flagSet.GetString("command")
			return a.Migrate(ctx, migration)
		},
	},
}

func lookupCommand(name string) (command, bool) {
	for _, cmd := range commands {
		if cmd.name == name {
			return cmd, true
		}
	}
	return command{}, false
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: k10plus <command> [flags]")
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, cmd := range commands {
		fmt.Fprintf(tw, "  %s\t%s\n", cmd.name, cmd.summary)
	}
	tw.Flush()
}

func batchFlags(name string) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.StringP("journal", "j", "", "journal path")
	flagSet.Int64Slice("ids", nil, "article ids (comma separated)")
	return flagSet
}

func batchArgs(ctx context.Context, a *app.Application, flagSet *pflag.FlagSet) (domain.Journal, []int64, error) {
	path, _ := flagSet.GetString("journal")
	ids, _ := flagSet.GetInt64Slice("ids")
	if path == "" {
		return domain.Journal{}, nil, fmt.Errorf("--journal is required")
	}
	if len(ids) == 0 {
		return domain.Journal{}, nil, fmt.Errorf("--ids is required")
	}

	journal, err := a.Journal(ctx, path)
	if err != nil {
		return domain.Journal{}, nil, err
	}
	return journal, ids, nil
}

func runExport(ctx context.Context, a *app.Application, flagSet *pflag.FlagSet, out io.Writer) error {
	journal, ids, err := batchArgs(ctx, a, flagSet)
	if err != nil {
		return err
	}
	dir, _ := flagSet.GetString("output")

	tmp, err := os.CreateTemp(dir, ".k10plus-export-*")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	name, err := a.Pipeline().Export(ctx, journal, ids, tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	target := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("move export: %w", err)
	}
	fmt.Fprintln(out, target)
	return nil
}

func runDeposit(ctx context.Context, a *app.Application, flagSet *pflag.FlagSet, out io.Writer) error {
	journal, ids, err := batchArgs(ctx, a, flagSet)
	if err != nil {
		return err
	}

	report, err := a.Pipeline().Deposit(ctx, journal, ids)
	if err != nil {
		return err
	}
	printReport(out, report)
	if failed := len(report.Failed()); failed > 0 {
		return fmt.Errorf("%d of %d articles failed", failed, len(report.Outcomes))
	}
	return nil
}

func runMark(ctx context.Context, a *app.Application, flagSet *pflag.FlagSet, out io.Writer, action domain.Action) error {
	journal, ids, err := batchArgs(ctx, a, flagSet)
	if err != nil {
		return err
	}

	var report domain.BatchReport
	switch action {
	case domain.ActionMarkRegistered:
		report = a.Pipeline().MarkRegistered(ctx, journal, ids)
	case domain.ActionMarkUnregistered:
		report = a.Pipeline().MarkUnregistered(ctx, journal, ids)
	default:
		return fmt.Errorf("unsupported action %s", action)
	}
	printReport(out, report)
	if failed := len(report.Failed()); failed > 0 {
		return fmt.Errorf("%d of %d articles failed", failed, len(report.Outcomes))
	}
	return nil
}

func runStatus(ctx context.Context, a *app.Application, flagSet *pflag.FlagSet, out io.Writer) error {
	ids, _ := flagSet.GetInt64Slice("ids")
	if len(ids) == 0 {
		return fmt.Errorf("--ids is required")
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ARTICLE\tSTATUS\tMESSAGE")
	for _, id := range ids {
		record, err := a.Pipeline().Status(ctx, id)
		if err != nil {
			return err
		}
		message, err := a.Pipeline().StatusMessage(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", id, record.Status, message)
	}
	return nil
}

func printReport(out io.Writer, report domain.BatchReport) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "job %s (%s, %s)\n", report.JobID, report.Action, report.Journal.Path)
	for _, outcome := range report.Outcomes {
		result := "ok"
		if outcome.Err != nil {
			result = outcome.Err.Error()
		}
		fmt.Fprintf(tw, "%d\t%s\n", outcome.ArticleID, result)
	}
}
