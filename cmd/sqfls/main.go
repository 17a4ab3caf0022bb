package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/sqfls"
)

var (
	flagDB       string
	flagFormat   string
	flagLogLevel string
	flagConfig   string

	flagUnused    bool
	flagUndefined bool
	flagExported  bool
	flagWorkers   int
)

// Set by the root command's pre-run for every subcommand.
var (
	logger *slog.Logger
	config sqfls.Config
)

// errorHandled is set when a command already reported its failure, so main
// doesn't print it again.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "sqfls",
	Short:         "Language server and checker for SQF projects",
	Long:          "sqfls analyzes SQF missions and addons: it serves the Language Server Protocol on stdio, checks whole workspaces, and answers queries from the command line.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		l, err := newLogger(cmd.ErrOrStderr(), flagLogLevel)
		if err != nil {
			return err
		}
		logger = l
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		config = cfg
		return nil
	},
	// No Run: prints help by default.
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagDB, "db", "", "index database path (default: none; relative paths resolve against the repo root)")
	pf.StringVar(&flagFormat, "format", "json", "output format: json|text")
	pf.StringVar(&flagLogLevel, "log-level", "warn", "log level on stderr: debug|info|warn|error")
	pf.StringVar(&flagConfig, "config", "", "configuration file (default: .sqfls.yaml in the working directory)")
	pf.BoolVar(&flagUnused, "unused-variable", false, "report unused private variables")
	pf.BoolVar(&flagUndefined, "undefined-variable-as-error", false, "report undefined variables as errors")
	pf.BoolVar(&flagExported, "private-variable-exported", false, "report globals a script exports")
	pf.IntVar(&flagWorkers, "workers", 0, "project analysis workers (0: one per CPU)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(scriptCmd)
}

// newLogger builds the stderr text logger. Stdout is reserved for command
// output and, under serve, for the protocol.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: must be debug, info, warn or error", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// loadConfig reads the configuration file and applies the flags the user
// set explicitly on top of it.
func loadConfig(cmd *cobra.Command) (sqfls.Config, error) {
	path := flagConfig
	if path == "" {
		path = ".sqfls.yaml"
	}
	cfg, err := sqfls.LoadConfig(path)
	if err != nil {
		return sqfls.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("unused-variable") {
		cfg.UnusedVariable = flagUnused
	}
	if flags.Changed("undefined-variable-as-error") {
		cfg.UndefinedVariableAsError = flagUndefined
	}
	if flags.Changed("private-variable-exported") {
		cfg.PrivateVariableExported = flagExported
	}
	if flags.Changed("workers") {
		cfg.Workers = flagWorkers
	}
	return cfg, nil
}

// resolveTargetDir returns the absolute path of the directory to work on.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the --db path, relative paths joined to repoRoot.
// Empty means no index.
func resolveDBPath(repoRoot string) string {
	if flagDB == "" || filepath.IsAbs(flagDB) {
		return flagDB
	}
	return filepath.Join(repoRoot, flagDB)
}
