package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/sqfls/internal/lsp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the Language Server Protocol on stdin/stdout",
	Long:  "Runs the language server over stdio. Logs go to stderr and, from info level up, to the client as window/logMessage.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	opts := []lsp.Option{lsp.WithLogger(logger), lsp.WithConfig(config)}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting cwd: %w", err)
	}
	st, err := openIndex(resolveDBPath(findRepoRoot(cwd)))
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
		opts = append(opts, lsp.WithIndex(st))
	}

	srv := lsp.NewServer(cmd.InOrStdin(), cmd.OutOrStdout(), opts...)
	logger.Info("serve.start", "db", flagDB)
	return srv.Run(cmd.Context())
}
