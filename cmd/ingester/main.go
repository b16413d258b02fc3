package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Boakye-20/charity-compliance-tracker/internal/config"
	"github.com/Boakye-20/charity-compliance-tracker/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=..."
var Version = "dev"

// exitErr carries a process exit code through cobra's error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

type globalFlags struct {
	config     string
	output     string
	stagingDir string
	verbose    bool
	json       bool
}

// app is shared by every subcommand once the persistent flags are parsed.
type app struct {
	flags globalFlags
	cfg   config.Config
	log   *zap.Logger
	out   io.Writer
}

// setup loads the config, applies flag overrides and installs the logger.
func (a *app) setup() error {
	cfg, err := config.Load(a.flags.config)
	if err != nil {
		return codeError(1, "load config: %v", err)
	}
	if a.flags.output != "" {
		cfg.Output = a.flags.output
	}
	if a.flags.stagingDir != "" {
		cfg.StagingDir = a.flags.stagingDir
	}
	a.cfg = cfg

	log, err := logging.New(a.flags.verbose, a.flags.json)
	if err != nil {
		return codeError(1, "init logger: %v", err)
	}
	a.log = log
	zap.ReplaceGlobals(log)
	return nil
}

func newRoot(out io.Writer) *cobra.Command {
	a := &app{out: out}
	root := &cobra.Command{
		Use:           "ingester",
		Short:         "Collect UK charity regulatory guidance into one dataset",
		Long:          "ingester downloads guidance, case reports and enforcement actions from UK charity regulators, normalizes them and merges them into a single CSV dataset.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup()
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.config, "config", "", "Path to YAML config (defaults apply when empty)")
	pf.StringVar(&a.flags.output, "output", "", "Dataset CSV path, overrides the config")
	pf.StringVar(&a.flags.stagingDir, "staging-dir", "", "Raw payload directory, overrides the config")
	pf.BoolVar(&a.flags.verbose, "verbose", false, "Debug logging")
	pf.BoolVar(&a.flags.json, "json", false, "JSON log lines instead of console output")

	root.AddCommand(
		runCmd(a),
		sourcesCmd(a),
		dedupCmd(a),
		fixDatesCmd(a),
		historyCmd(a),
		versionCmd(a),
	)
	return root
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := newRoot(os.Stdout).ExecuteContext(ctx)
	_ = zap.L().Sync()
	if err == nil {
		return
	}
	var ee *exitErr
	if errors.As(err, &ee) {
		fmt.Fprintln(os.Stderr, "Error:", ee.msg)
		cancel()
		os.Exit(ee.code)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	cancel()
	os.Exit(1)
}
