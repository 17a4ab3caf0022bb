package sqfls

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"sort"

	"github.com/viant/afs"

	"github.com/jward/sqfls/internal/project"
	"github.com/jward/sqfls/internal/sqf"
)

// FileInput is everything the analyzer may depend on.
type FileInput struct {
	Path     string
	Text     string
	Function string // declared function name, "" for plain scripts
	// Namespace holds the project names visible to this file.
	Namespace Namespace
}

// AnalysisResult is the analysis of one file. A Fatal result carries only
// its diagnostics: no maps, no globals and no signature.
type AnalysisResult struct {
	Path         string
	Diagnostics  []Diagnostic
	Types        map[Span]Type
	Explanations map[Span]string
	Origins      map[Span]Origin
	Parameters   []ParameterHint
	Tokens       []SemanticToken
	// Scopes lists visible names, innermost first.
	Scopes    [][]string
	Signature *Signature
	Globals   map[string]Global
	Fatal     bool
}

// Analyzer turns one file's text into an AnalysisResult. Implementations
// must be safe for concurrent use and depend only on their input.
type Analyzer interface {
	AnalyzeFile(in FileInput) *AnalysisResult
}

// EngineAnalyzer runs the SQF preprocessor, parser and semantic analyzer.
type EngineAnalyzer struct {
	cfg Config
	fs  afs.Service
}

var _ Analyzer = (*EngineAnalyzer)(nil)

// AnalyzerOption configures an EngineAnalyzer.
type AnalyzerOption func(*EngineAnalyzer)

// WithIncludeService replaces the storage service #include files are read
// through.
func WithIncludeService(fs afs.Service) AnalyzerOption {
	return func(a *EngineAnalyzer) {
		a.fs = fs
	}
}

// NewEngineAnalyzer returns an analyzer that filters diagnostics with cfg
// and resolves #include directives relative to the analyzed file or through
// cfg.Addons.
func NewEngineAnalyzer(cfg Config, opts ...AnalyzerOption) *EngineAnalyzer {
	a := &EngineAnalyzer{cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.fs == nil {
		a.fs = afs.New()
	}
	return a
}

// AnalyzeFile implements Analyzer.
func (a *EngineAnalyzer) AnalyzeFile(in FileInput) *AnalysisResult {
	pre, fatal := sqf.Preprocess(in.Text, sqf.PreprocessOptions{Include: a.includer(in.Path)})
	if fatal != nil {
		return &AnalysisResult{
			Path:        in.Path,
			Diagnostics: []Diagnostic{*fatal},
			Fatal:       true,
		}
	}

	file, diags := sqf.Parse(pre.Tokens)
	an := sqf.Analyze(file, sqf.AnalyzeInput{
		Path:     in.Path,
		Function: in.Function,
		Foreign:  in.Namespace,
	})
	diags = a.cfg.Filter(append(diags, an.Diagnostics...))
	sort.SliceStable(diags, func(i, j int) bool { return diags[i].Span.Start < diags[j].Span.Start })

	return &AnalysisResult{
		Path:         in.Path,
		Diagnostics:  diags,
		Types:        an.Types,
		Explanations: an.Explanations,
		Origins:      an.Origins,
		Parameters:   an.Parameters,
		Tokens:       sqf.Highlight(pre.Lexemes, an),
		Scopes:       an.Scopes,
		Signature:    an.Signature,
		Globals:      an.Globals,
	}
}

func (a *EngineAnalyzer) includer(path string) func(string) (string, error) {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	return func(name string) (string, error) {
		resolved, ok := project.Resolve(name, dir, a.cfg.Addons)
		if !ok {
			return "", fmt.Errorf("cannot resolve include %q", name)
		}
		data, err := a.fs.DownloadWithURL(context.Background(), resolved)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

// missingResult is the synthetic result for declared functions whose file
// cannot be found. Each declaration gets one diagnostic against the marker
// file.
func missingResult(path, marker, shown string, decls ...sqf.Declaration) *AnalysisResult {
	res := &AnalysisResult{Path: path, Fatal: true}
	for _, d := range decls {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Severity: sqf.SeverityError,
			Code:     sqf.CodeMissingFunction,
			Message:  fmt.Sprintf(`The function "%s" is defined but the file "%s" does not exist`, d.Name, shown),
			Span:     d.Span,
			File:     marker,
		})
	}
	return res
}

// withAliases also exports the analyzed function under every further name
// declared for the same file.
func withAliases(res *AnalysisResult, path string, aliases []string) *AnalysisResult {
	if len(aliases) == 0 || res == nil || res.Fatal {
		return res
	}
	out := *res
	out.Globals = make(map[string]Global, len(res.Globals)+len(aliases))
	maps.Copy(out.Globals, res.Globals)
	for _, name := range aliases {
		out.Globals[sqf.Key(name)] = Global{
			Name:      name,
			Origin:    sqf.External(path, nil),
			Type:      sqf.TypeCode,
			Signature: res.Signature,
		}
	}
	return &out
}
