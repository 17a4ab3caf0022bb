package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/sqfls"
	"github.com/jward/sqfls/internal/project"
	"github.com/jward/sqfls/internal/sqf"
	"github.com/jward/sqfls/internal/store"
	"github.com/jward/sqfls/internal/text"
)

var checkCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Analyze every SQF script under a directory",
	Long:  "Discovers .sqf files (respecting .gitignore), analyzes them project by project and prints every diagnostic. Exits non-zero when any error is reported.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	start := time.Now()

	root, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	files, err := sqfls.Discover(root)
	if err != nil {
		return fmt.Errorf("discovering scripts: %w", err)
	}

	st, err := openIndex(resolveDBPath(findRepoRoot(root)))
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	summary, err := check(cmd.Context(), files, st)
	if err != nil {
		return err
	}
	if st != nil {
		if err := st.SetMetadata("workspace_root", root); err != nil {
			return fmt.Errorf("recording workspace root: %w", err)
		}
	}

	logger.Info("check.done", "root", root, "files", summary.Files, "duration", time.Since(start).Round(time.Millisecond))
	if err := outputResult(cmd.OutOrStdout(), CLIResult{Command: "check", Results: summary}); err != nil {
		return err
	}
	if summary.Errors > 0 {
		errorHandled = true
		return fmt.Errorf("%d errors", summary.Errors)
	}
	return nil
}

// check analyzes files with one session per located project, so each
// project's namespace stays separate.
func check(ctx context.Context, files []string, st *store.Store) (CLICheckSummary, error) {
	groups := groupByProject(files, config.Addons)
	roots := make([]string, 0, len(groups))
	for r := range groups {
		roots = append(roots, r)
	}
	sort.Strings(roots)

	summary := CLICheckSummary{Files: len(files), Diagnostics: []CLIDiagnostic{}}
	for _, r := range roots {
		s := newSession(st)
		if err := replaceAll(ctx, s, groups[r]); err != nil {
			return summary, err
		}
		for path, diags := range s.AllDiagnostics() {
			buf := bufferFor(s, path)
			for _, d := range diags {
				summary.Diagnostics = append(summary.Diagnostics, toCLIDiagnostic(path, buf, d))
			}
		}
	}

	sort.SliceStable(summary.Diagnostics, func(i, j int) bool {
		a, b := summary.Diagnostics[i], summary.Diagnostics[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		return a.StartCol < b.StartCol
	})
	for _, d := range summary.Diagnostics {
		switch d.Severity {
		case sqf.SeverityError.String():
			summary.Errors++
		case sqf.SeverityWarning.String():
			summary.Warnings++
		}
	}
	return summary, nil
}

// groupByProject keys files by the root of their project; files outside
// any project share the "" group.
func groupByProject(files []string, addons map[string]string) map[string][]string {
	extract := project.NewExtractor(addons)
	out := make(map[string][]string)
	for _, f := range files {
		key := ""
		if p, ok := project.Locate(f, extract); ok {
			key = p.Root
		}
		out[key] = append(out[key], f)
	}
	return out
}

// replaceAll reads and analyzes every path. A second pass lets each file
// see the globals of files analyzed after it.
func replaceAll(ctx context.Context, s *sqfls.Session, paths []string) error {
	srcs := make(map[string]string, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}
		srcs[p] = string(data)
	}
	for pass := 0; pass < 2; pass++ {
		for _, p := range paths {
			if _, err := s.Replace(ctx, p, srcs[p]); err != nil {
				return err
			}
		}
	}
	return nil
}

func newSession(st *store.Store) *sqfls.Session {
	opts := []sqfls.SessionOption{sqfls.WithConfig(config), sqfls.WithLogger(logger)}
	if st != nil {
		opts = append(opts, sqfls.WithIndex(st))
	}
	return sqfls.NewSession(opts...)
}

// bufferFor returns the text diagnostics for path are positioned against:
// the session's copy, else the file on disk.
func bufferFor(s *sqfls.Session, path string) *text.Buffer {
	if e := s.Entry(path); e != nil {
		return e.Text
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return text.New("")
	}
	return text.New(string(data))
}

func toCLIDiagnostic(path string, buf *text.Buffer, d sqfls.Diagnostic) CLIDiagnostic {
	r := buf.Range(d.Span.Start, d.Span.End)
	return CLIDiagnostic{
		File:      path,
		StartLine: r.Start.Line,
		StartCol:  r.Start.Character,
		EndLine:   r.End.Line,
		EndCol:    r.End.Character,
		Severity:  d.Severity.String(),
		Code:      d.Code,
		Message:   d.Message,
	}
}

// openIndex opens and migrates the SQLite index at dbPath. An empty path
// means no index.
func openIndex(dbPath string) (*store.Store, error) {
	if dbPath == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	st, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	if err := st.Migrate(); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrating index: %w", err)
	}
	return st, nil
}
