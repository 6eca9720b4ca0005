// Package commands contains all CLI commands for flightcheck.
//
// This package uses the Cobra library for CLI management.
// Each command is defined in its own file and registered in init().
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JNZader/flightcheck/internal/config"
	"github.com/JNZader/flightcheck/internal/engine"
	"github.com/JNZader/flightcheck/internal/logger"
	"github.com/JNZader/flightcheck/internal/resolve"
	"github.com/JNZader/flightcheck/internal/rules"
)

// Exit codes above the failure range.
const (
	ExitResolution = 120 // bad glob or command-line misuse
	ExitRuleConfig = 121 // broken catalog or unknown domain
	ExitInternal   = 122 // configuration, I/O and other runtime errors
)

var (
	// cfgFile holds the path to the config file (from --config flag)
	cfgFile string

	// verbose enables debug logging
	verbose bool

	// quiet suppresses everything but errors on stderr
	quiet bool

	// Effective settings, resolved by PersistentPreRunE.
	cfg       *config.Config
	cfgLoader *config.Loader
	log       = logger.Discard()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "flightcheck",
	Short: "Rule-based file validator",
	Long: `flightcheck validates source files against per-domain rule catalogs.

Each domain (bash, go, python, rust, api, embedded-c, or one of your own
.flight.yaml catalogs) lists NEVER, MUST, SHOULD and GUIDANCE rules. A run
fails when a NEVER or MUST rule has an unsuppressed finding; the exit code
is the number of failed rules.

Examples:
  # Validate all shell scripts below the current directory
  flightcheck validate bash

  # Validate specific files and globs
  flightcheck validate python app.py 'src/**/*.py'

  # List the available domains
  flightcheck domains

  # Check your own catalog
  flightcheck lint ./catalogs/team.flight.yaml`,

	// SilenceUsage prevents printing usage on errors
	SilenceUsage: true,

	// SilenceErrors lets Execute map errors to exit codes
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

// exitError carries an exit code that is not a failure of the command
// itself, such as the failed-rule count of a validate run.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// usageError marks command-line misuse.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

// Execute runs the root command with the process arguments and returns
// the exit code. Interrupts cancel the running command.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitCode(err)
}

// exitCode classifies an error.
func exitCode(err error) int {
	var (
		usage  *usageError
		resErr *resolve.ResolutionError
		rcErr  *rules.RuleConfigError
		udErr  *rules.UnknownDomainError
	)
	switch {
	case errors.As(err, &usage), errors.As(err, &resErr):
		return ExitResolution
	case strings.HasPrefix(err.Error(), "unknown command"):
		return ExitResolution
	case errors.As(err, &rcErr), errors.As(err, &udErr):
		return ExitRuleConfig
	default:
		return ExitInternal
	}
}

// failureExit turns a failed-rule count into an exit error.
func failureExit(count int) error {
	if count <= 0 {
		return nil
	}
	if count > engine.MaxExitCode {
		count = engine.MaxExitCode
	}
	return &exitError{code: count}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is .flightcheck.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "log errors only")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text, json")
	rootCmd.PersistentFlags().StringArray("catalog-dir", nil, "additional directory of .flight.yaml catalogs")
	rootCmd.PersistentFlags().StringArray("catalog-file", nil, "additional catalog file")
	rootCmd.PersistentFlags().StringArray("catalog-url", nil, "additional catalog URL (https)")
	rootCmd.PersistentFlags().Bool("no-builtin", false, "do not load the embedded domains")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})
}

// flagBindings maps config keys to the flags that override them.
var flagBindings = map[string]string{
	"log.format":         "log-format",
	"report.format":      "format",
	"report.output":      "output",
	"report.color":       "color",
	"report.fail_detail": "fail-detail",
	"report.warn_detail": "warn-detail",
	"run.workers":        "workers",
	"run.max_file_bytes": "max-file-bytes",
	"run.root":           "root",
	"run.timeout":        "timeout",
	"cache.enabled":      "cache",
	"history.enabled":    "record",
}

// initializeConfig loads the configuration, applies flag overrides and
// sets up logging.
func initializeConfig(cmd *cobra.Command) error {
	cfgLoader = config.NewLoader()
	if cfgFile != "" {
		cfgLoader.SetConfigFile(cfgFile)
	}

	v := cfgLoader.Viper()
	for key, name := range flagBindings {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}

	loaded, err := cfgLoader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg = loaded

	flags := cmd.Flags()
	dirs, _ := flags.GetStringArray("catalog-dir")
	files, _ := flags.GetStringArray("catalog-file")
	urls, _ := flags.GetStringArray("catalog-url")
	noBuiltin, _ := flags.GetBool("no-builtin")
	cfg.Catalog.Dirs = append(cfg.Catalog.Dirs, dirs...)
	cfg.Catalog.Files = append(cfg.Catalog.Files, files...)
	cfg.Catalog.URLs = append(cfg.Catalog.URLs, urls...)
	if noBuiltin {
		cfg.Catalog.Builtin = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := cfg.Log.Level
	switch {
	case quiet:
		level = "error"
	case verbose:
		level = "debug"
	}
	l, err := logger.New(logger.Options{Level: level, Format: cfg.Log.Format, Output: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	log = l

	if used := cfgLoader.ConfigFileUsed(); used != "" {
		log.Debug("using config file", "path", used)
	}
	return nil
}

// loadCatalog reads every configured catalog source.
func loadCatalog(ctx context.Context) (*rules.Catalog, error) {
	loader := rules.NewLoader(catalogSources(), log)
	return loader.Load(ctx)
}

func catalogSources() rules.Sources {
	return rules.Sources{
		Builtin: cfg.Catalog.Builtin,
		Dirs:    cfg.Catalog.Dirs,
		Files:   cfg.Catalog.Files,
		URLs:    cfg.Catalog.URLs,
	}
}

// componentLog returns the command logger tagged with a component.
func componentLog(name string) *slog.Logger {
	return log.With("component", name)
}
