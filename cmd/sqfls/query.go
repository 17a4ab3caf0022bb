package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/sqfls"
	"github.com/jward/sqfls/internal/sqf"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query a script in the context of its project",
	Long:  "Analyzes a file together with its project and answers one question about it. All line and column numbers are 0-based; columns count UTF-16 code units.",
}

func init() {
	queryCmd.AddCommand(hoverCmd)
	queryCmd.AddCommand(definitionCmd)
	queryCmd.AddCommand(symbolsCmd)
	queryCmd.AddCommand(diagnosticsCmd)
}

var hoverCmd = &cobra.Command{
	Use:   "hover <file> <line> <col>",
	Short: "Documentation for the symbol at a position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, e, off, err := openAt(cmd.Context(), args)
		if err != nil {
			return err
		}
		doc, span, ok := s.Query().Hover(e.Path, off)
		var result any
		if ok {
			result = &CLIHover{Contents: doc, Range: toCLILocation(e.Path, e.Text.Range(span.Start, span.End))}
		}
		return outputResult(cmd.OutOrStdout(), CLIResult{Command: "hover", Results: result})
	},
}

var definitionCmd = &cobra.Command{
	Use:   "definition <file> <line> <col>",
	Short: "Where the symbol at a position is defined",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, e, off, err := openAt(cmd.Context(), args)
		if err != nil {
			return err
		}
		var result any
		if loc, ok := s.Query().Definition(e.Path, off); ok {
			l := toCLILocation(loc.Path, loc.Range)
			result = &l
		}
		return outputResult(cmd.OutOrStdout(), CLIResult{Command: "definition", Results: result})
	},
}

var symbolsCmd = &cobra.Command{
	Use:   "symbols <file>",
	Short: "Every global visible in the file's project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		syms := []CLISymbol{}
		for _, g := range s.Query().Symbols() {
			syms = append(syms, toCLISymbol(s, g))
		}
		return outputResult(cmd.OutOrStdout(), CLIResult{Command: "symbols", Results: syms})
	},
}

var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics <file>",
	Short: "Diagnostics reported against a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, e, err := openFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		diags := []CLIDiagnostic{}
		for _, d := range s.Query().Diagnostics(e.Path) {
			diags = append(diags, toCLIDiagnostic(e.Path, e.Text, d))
		}
		return outputResult(cmd.OutOrStdout(), CLIResult{Command: "diagnostics", Results: diags})
	},
}

// --- Helpers ---

// openFile analyzes file from disk in a fresh session, which loads the
// file's project first.
func openFile(ctx context.Context, file string) (*sqfls.Session, *sqfls.Entry, error) {
	path, err := resolveFilePath(file)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	s := newSession(nil)
	e, err := s.Open(ctx, path, string(data))
	if err != nil {
		return nil, nil, err
	}
	if e == nil {
		return nil, nil, fmt.Errorf("analysis of %s was superseded", path)
	}
	return s, e, nil
}

// openAt is openFile for <file> <line> <col> arguments, returning the byte
// offset of the position.
func openAt(ctx context.Context, args []string) (*sqfls.Session, *sqfls.Entry, int, error) {
	line, err := parseIntArg(args[1], "line")
	if err != nil {
		return nil, nil, 0, err
	}
	col, err := parseIntArg(args[2], "col")
	if err != nil {
		return nil, nil, 0, err
	}
	s, e, err := openFile(ctx, args[0])
	if err != nil {
		return nil, nil, 0, err
	}
	return s, e, e.Text.Offset(sqfls.Position{Line: line, Character: col}), nil
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}

func toCLILocation(path string, r sqfls.Range) CLILocation {
	return CLILocation{
		File:      path,
		StartLine: r.Start.Line,
		StartCol:  r.Start.Character,
		EndLine:   r.End.Line,
		EndCol:    r.End.Character,
	}
}

// toCLISymbol positions g at its defining span when the defining file is
// in the session.
func toCLISymbol(s *sqfls.Session, g sqfls.Global) CLISymbol {
	sym := CLISymbol{Name: g.Name, Type: g.Type.String(), File: g.Origin.Path}
	if g.Signature != nil {
		sym.Signature = g.Signature.String()
	}
	if g.Origin.Kind != sqf.OriginExternal || g.Origin.ExternalSpan == nil {
		return sym
	}
	if e := s.Entry(g.Origin.Path); e != nil {
		p := e.Text.Position(g.Origin.ExternalSpan.Start)
		sym.StartLine, sym.StartCol = &p.Line, &p.Character
	}
	return sym
}
