package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Boakye-20/charity-compliance-tracker/internal/config"
	"github.com/Boakye-20/charity-compliance-tracker/internal/journal"
	"github.com/Boakye-20/charity-compliance-tracker/internal/metrics"
	"github.com/Boakye-20/charity-compliance-tracker/internal/pipeline"
	"github.com/Boakye-20/charity-compliance-tracker/internal/postprocess"
	"github.com/Boakye-20/charity-compliance-tracker/internal/sink"
	"github.com/Boakye-20/charity-compliance-tracker/internal/source"
)

func runCmd(a *app) *cobra.Command {
	var opts pipeline.Options
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the selected sources and merge them into the dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.DiffOut != "" && !opts.DryRun {
				return codeError(1, "--diff-out needs --dry-run")
			}
			r := &pipeline.Runner{Config: a.cfg, Log: a.log, Metrics: metrics.New(), Sinks: sinks(a.cfg)}
			if p := a.cfg.Journal.Path; p != "" {
				j, err := journal.Open(p)
				if err != nil {
					return codeError(1, "%v", err)
				}
				defer j.Close()
				r.Journal = j
			}

			rep, err := r.Run(cmd.Context(), opts)
			printReport(a, rep)
			if err != nil {
				return codeError(1, "run %s: %v", rep.RunID, err)
			}
			if rep.AllFailed() {
				return codeError(2, "every selected source failed")
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringArrayVar(&opts.Sources, "source", nil, "Source key to run (repeatable); default runs every enabled source")
	f.BoolVar(&opts.DryRun, "dry-run", false, "Do everything except write the dataset")
	f.StringVar(&opts.DiffOut, "diff-out", "", "With --dry-run, write the dataset patch to this file")
	return cmd
}

func sinks(cfg config.Config) []sink.Sink {
	var out []sink.Sink
	if strings.TrimSpace(cfg.Publish.Loki.URL) != "" {
		out = append(out, sink.NewLoki(cfg.Publish.Loki, cfg.HTTP.UserAgent))
	}
	if strings.TrimSpace(cfg.Publish.Victoria.URL) != "" {
		out = append(out, sink.NewVictoria(cfg.Publish.Victoria, cfg.HTTP.UserAgent))
	}
	return out
}

func printReport(a *app, rep *pipeline.Report) {
	if rep == nil {
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tRECORDS\tTOOK\tERROR")
	for _, s := range rep.Sources {
		msg := ""
		if s.Err != nil {
			msg = s.Stage + ": " + s.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", s.Key, s.Records, s.Duration.Truncate(time.Millisecond), msg)
	}
	_ = tw.Flush()

	fmt.Fprintf(a.out, "\npre-existing %d, added %d, updated %d, unchanged %d, duplicates removed %d, total %d\n",
		rep.Merge.PreExisting, rep.Merge.Added, rep.Merge.Updated, rep.Merge.Unchanged, rep.DedupRemoved, rep.Total)
	regs := make([]string, 0, len(rep.ByRegulator))
	for r, n := range rep.ByRegulator {
		regs = append(regs, fmt.Sprintf("%s=%d", r, n))
	}
	sort.Strings(regs)
	if len(regs) > 0 {
		fmt.Fprintln(a.out, "by regulator:", strings.Join(regs, " "))
	}
	switch {
	case rep.DryRun && rep.Diff != nil:
		fmt.Fprintf(a.out, "dry run: +%d -%d lines\n", rep.Diff.Added, rep.Diff.Removed)
	case rep.DryRun:
		fmt.Fprintln(a.out, "dry run: dataset not written")
	}
}

func sourcesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the registered sources",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tREGULATOR\tUPDATES\tDEFAULT\tNAME")
			for _, key := range source.Keys() {
				ad, err := source.New(key, source.Env{})
				if err != nil {
					return err
				}
				m := ad.Metadata()
				def := "yes"
				switch {
				case source.OptIn(key):
					def = "opt-in"
				case a.cfg.Source(key).Disabled:
					def = "disabled"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", key, m.Regulator, m.UpdateFrequency, def, m.Name)
			}
			return tw.Flush()
		},
	}
}

func dedupCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Remove records that share a source URL from the dataset",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			removed, err := pipeline.DedupDataset(a.cfg.Output, a.cfg.IsPlaceholder, dryRun)
			if err != nil {
				return codeError(1, "%v", err)
			}
			a.log.Info("dedup finished", zap.String("path", a.cfg.Output), zap.Int("removed", removed), zap.Bool("dry_run", dryRun))
			fmt.Fprintf(a.out, "%d duplicate(s) removed\n", removed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report without rewriting the dataset")
	return cmd
}

func fixDatesCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "fix-dates",
		Short: "Apply the verified dates table to the dataset",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			changed, err := pipeline.FixDates(a.cfg.Output, postprocess.DefaultRules(a.cfg.FixedDates), dryRun)
			if err != nil {
				return codeError(1, "%v", err)
			}
			a.log.Info("fix-dates finished", zap.String("path", a.cfg.Output), zap.Int("changed", changed), zap.Bool("dry_run", dryRun))
			fmt.Fprintf(a.out, "%d record(s) updated\n", changed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report without rewriting the dataset")
	return cmd
}

func historyCmd(a *app) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Journal.Path == "" {
				return codeError(1, "no journal configured (journal.path)")
			}
			j, err := journal.Open(a.cfg.Journal.Path)
			if err != nil {
				return codeError(1, "%v", err)
			}
			defer j.Close()
			runs, err := j.Recent(cmd.Context(), n)
			if err != nil {
				return codeError(1, "%v", err)
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tRUN\tSOURCES\tFAILED\tADDED\tUPDATED\tTOTAL\tNOTE")
			for _, r := range runs {
				note := r.Err
				if note == "" && r.DryRun {
					note = "dry run"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
					r.StartedAt.Local().Format(time.DateTime), r.ID, len(r.Sources), r.Failed(),
					r.Added, r.Updated, r.Total, note)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&n, "limit", "n", 10, "Number of runs to show")
	return cmd
}

func versionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintln(a.out, "ingester", Version)
		},
	}
}
