package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
)

// outputResult writes result to w in the selected format.
func outputResult(w io.Writer, result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func outputResultText(w io.Writer, result CLIResult) error {
	if result.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", result.Error)
		return nil
	}

	switch v := result.Results.(type) {
	case CLICheckSummary:
		formatCheckText(w, v)
	case []CLIDiagnostic:
		formatDiagnosticsText(w, v)
	case *CLILocation:
		fmt.Fprintf(w, "%s:%d:%d\n", v.File, v.StartLine, v.StartCol)
	case *CLIHover:
		fmt.Fprintln(w, v.Contents)
	case []CLISymbol:
		formatSymbolsText(w, v)
	case []map[string]any:
		formatRowsText(w, v)
	case nil:
		// No output for nil results (e.g., hover with no match).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// formatDiagnosticsText prints compiler-style "file:line:col: severity: message [code]"
// lines with 1-based positions.
func formatDiagnosticsText(w io.Writer, diags []CLIDiagnostic) {
	for _, d := range diags {
		fmt.Fprintf(w, "%s:%d:%d: %s: %s [%s]\n", d.File, d.StartLine+1, d.StartCol+1, d.Severity, d.Message, d.Code)
	}
}

func formatCheckText(w io.Writer, s CLICheckSummary) {
	formatDiagnosticsText(w, s.Diagnostics)
	if len(s.Diagnostics) > 0 {
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Checked %d files: %d errors, %d warnings\n", s.Files, s.Errors, s.Warnings)
}

// formatSymbolsText formats CLISymbol results as aligned columns.
func formatSymbolsText(w io.Writer, syms []CLISymbol) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tSIGNATURE\tFILE")
	for _, s := range syms {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, s.Type, s.Signature, s.File)
	}
	tw.Flush()
}

// formatRowsText prints script rows as sorted key=value pairs, one row per line.
func formatRowsText(w io.Writer, rows []map[string]any) {
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%v", k, row[k])
		}
		fmt.Fprintln(w, strings.Join(parts, " "))
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
