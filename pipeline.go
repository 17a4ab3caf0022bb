package sqfls

import (
	"context"
	"log/slog"
	"runtime"
	"sort"

	"github.com/viant/afs"
	"golang.org/x/sync/errgroup"

	"github.com/jward/sqfls/internal/project"
	"github.com/jward/sqfls/internal/sqf"
	"github.com/jward/sqfls/internal/text"
)

// ProjectResult is the outcome of analyzing a whole project.
type ProjectResult struct {
	// Entries are ordered by (path, function).
	Entries   []*Entry
	Namespace Namespace
	// Diagnostics groups every diagnostic by the file it is attributed to.
	Diagnostics map[string][]Diagnostic
	Conflicts   []Conflict
}

// PipelineOption configures AnalyzeProject.
type PipelineOption func(*pipeline)

// WithWorkers bounds the number of files analyzed at once. Values below 1
// mean one worker per CPU.
func WithWorkers(n int) PipelineOption {
	return func(p *pipeline) {
		p.workers = n
	}
}

// WithPipelineLogger sets the logger for pipeline events.
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *pipeline) {
		p.logger = logger
	}
}

// WithFileService replaces the storage service files are read through.
func WithFileService(fs afs.Service) PipelineOption {
	return func(p *pipeline) {
		p.fs = fs
	}
}

// WithVersion stamps every produced entry with version.
func WithVersion(version uint64) PipelineOption {
	return func(p *pipeline) {
		p.version = version
	}
}

type pipeline struct {
	workers int
	logger  *slog.Logger
	fs      afs.Service
	version uint64
}

// task is one file to analyze. decls lists every function declared for
// the file, ordered by name; the first is the function the file is analyzed
// as and the rest are exported as aliases.
type task struct {
	path     string
	decls    []sqf.Declaration
	resolved bool
}

// MissingKey is the entry key of a declared function whose file cannot be
// resolved: the marker file and the function name.
func MissingKey(marker, function string) string {
	return marker + "#" + function
}

// AnalyzeProject analyzes every function the project declares:
//
//	Phase A (serial):   Resolve declared paths and group declarations by
//	                    file; unresolvable ones become a diagnostic against
//	                    the marker file, one per declaration.
//	Phase B (parallel): Read and analyze each file once against the
//	                    placeholder namespace on a bounded worker pool.
//	Phase C (serial):   Order results by (path, name), merge exports into the
//	                    namespace and group diagnostics by attributed file.
//
// A failing file never aborts the batch. A cancelled ctx stops tasks that
// have not started yet; their files are left out of the result.
func AnalyzeProject(ctx context.Context, proj *project.Project, analyzer Analyzer, opts ...PipelineOption) *ProjectResult {
	p := &pipeline{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.workers < 1 {
		p.workers = runtime.NumCPU()
	}
	if p.fs == nil {
		p.fs = afs.New()
	}
	p.logger.Info("pipeline.start", "root", proj.Root, "marker", proj.Marker, "functions", len(proj.Functions))

	// ---- Phase A: resolve declarations ----
	names := make([]string, 0, len(proj.Functions))
	for k := range proj.Functions {
		names = append(names, k)
	}
	sort.Strings(names)

	var tasks []task
	resolved := make(map[string]string, len(names))
	byPath := make(map[string]int)
	for _, k := range names {
		decl := proj.Functions[k]
		path, ok := proj.Resolve(decl.Path)
		if !ok {
			tasks = append(tasks, task{path: MissingKey(proj.Marker, decl.Name), decls: []sqf.Declaration{decl}})
			continue
		}
		resolved[k] = path
		if i, seen := byPath[path]; seen {
			tasks[i].decls = append(tasks[i].decls, decl)
			continue
		}
		byPath[path] = len(tasks)
		tasks = append(tasks, task{path: path, decls: []sqf.Declaration{decl}, resolved: true})
	}
	placeholder := placeholderNamespace(proj, resolved)

	// ---- Phase B: analyze in parallel ----
	results := make([]*Entry, len(tasks))
	g := new(errgroup.Group)
	g.SetLimit(p.workers)
	for i, t := range tasks {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = p.analyze(ctx, proj, analyzer, t, placeholder)
			return nil
		})
	}
	_ = g.Wait()

	// ---- Phase C: merge serially ----
	entries := make([]*Entry, 0, len(results))
	for _, e := range results {
		if e != nil {
			entries = append(entries, e)
		}
	}
	sortEntries(entries)

	ns, conflicts := mergeNamespace(entries, "")
	for _, c := range conflicts {
		p.logger.Warn("pipeline.conflict", "name", c.Name, "previous", c.Previous, "winner", c.Winner)
	}
	out := &ProjectResult{
		Entries:     entries,
		Namespace:   ns,
		Diagnostics: groupDiagnostics(entries),
		Conflicts:   conflicts,
	}
	p.logger.Info("pipeline.done", "files", len(entries), "globals", len(ns), "conflicts", len(conflicts))
	return out
}

func (p *pipeline) analyze(ctx context.Context, proj *project.Project, analyzer Analyzer, t task, ns Namespace) *Entry {
	name := t.decls[0].Name
	entry := &Entry{Path: t.path, Function: name, Version: p.version}
	for _, d := range t.decls[1:] {
		entry.Aliases = append(entry.Aliases, d.Name)
	}
	if !t.resolved {
		entry.Text = text.New("")
		entry.Result = missingResult(t.path, proj.Marker, t.decls[0].Path, t.decls...)
		p.logger.Debug("pipeline.unresolved", "function", name, "declared", t.decls[0].Path)
		return entry
	}

	data, err := p.fs.DownloadWithURL(ctx, t.path)
	if err != nil {
		entry.Text = text.New("")
		entry.Result = missingResult(t.path, proj.Marker, t.path, t.decls...)
		p.logger.Debug("pipeline.missing", "function", name, "path", t.path, "err", err)
		return entry
	}

	src := string(data)
	entry.Text = text.New(src)
	res := analyzer.AnalyzeFile(FileInput{
		Path:      t.path,
		Text:      src,
		Function:  name,
		Namespace: ns,
	})
	entry.Result = withAliases(res, t.path, entry.Aliases)
	return entry
}
