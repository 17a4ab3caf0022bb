package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/sqfls/internal/runtime"
	"github.com/jward/sqfls/scripts"
)

var scriptCmd = &cobra.Command{
	Use:   "script <report|file.risor>",
	Short: "Run a Risor report over the analysis index",
	Long: `Runs a Risor script with the engine and, when --db names an index written
by 'sqfls check --db', the index. Built-in reports: summary, functions, codes.
Rows passed to emit() are printed in the selected format.`,
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func runScript(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))
	if dbPath != "" {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return fmt.Errorf("database not found: %s (run 'sqfls check --db' first)", dbPath)
		}
	}
	st, err := openIndex(dbPath)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	rows := []map[string]any{}
	emit := func(row map[string]any) { rows = append(rows, row) }

	name := args[0]
	var rt *runtime.Runtime
	if strings.HasSuffix(name, ".risor") {
		path, err := resolveFilePath(name)
		if err != nil {
			return err
		}
		rt = runtime.NewRuntime(st, filepath.Dir(path), runtime.WithRuntimeLogger(logger), runtime.WithEmit(emit))
		name = path
	} else {
		rt = runtime.NewRuntime(st, "", runtime.WithRuntimeFS(scripts.FS), runtime.WithRuntimeLogger(logger), runtime.WithEmit(emit))
		name = scripts.Report(name)
	}

	if err := rt.RunScript(cmd.Context(), name, nil); err != nil {
		return err
	}
	return outputResult(cmd.OutOrStdout(), CLIResult{Command: "script", Results: rows})
}
