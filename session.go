package sqfls

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/jward/sqfls/internal/project"
	"github.com/jward/sqfls/internal/sqf"
	"github.com/jward/sqfls/internal/store"
	"github.com/jward/sqfls/internal/text"
)

// DiagnosticsFunc receives the complete diagnostic list currently
// attributed to path. An empty list clears the file.
type DiagnosticsFunc func(path string, diags []Diagnostic)

// Locator finds the project a file belongs to.
type Locator func(path string) (*project.Project, bool)

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithConfig sets the configuration. It also selects the default analyzer
// unless WithAnalyzer is given.
func WithConfig(cfg Config) SessionOption {
	return func(s *Session) {
		s.cfg = cfg
	}
}

// WithAnalyzer replaces the file analyzer.
func WithAnalyzer(a Analyzer) SessionOption {
	return func(s *Session) {
		s.analyzer = a
	}
}

// WithLogger sets the structured logger for session events.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithDiagnostics installs the diagnostics push callback.
func WithDiagnostics(fn DiagnosticsFunc) SessionOption {
	return func(s *Session) {
		s.notify = fn
	}
}

// WithIndex mirrors every committed entry into a SQLite index.
func WithIndex(st *store.Store) SessionOption {
	return func(s *Session) {
		s.index = st
	}
}

// WithLocator replaces the project locator.
func WithLocator(fn Locator) SessionOption {
	return func(s *Session) {
		s.locate = fn
	}
}

// Session caches one Entry per file and keeps them consistent as files
// change. Writers to the same path are serialized; writers to different
// paths run concurrently; readers never wait for an analysis.
type Session struct {
	cfg      Config
	analyzer Analyzer
	logger   *slog.Logger
	notify   DiagnosticsFunc
	index    *store.Store
	locate   Locator

	mu        sync.RWMutex
	entries   map[string]*Entry
	project   *project.Project
	functions map[string][]string // resolved path -> declared names, sorted

	keysMu sync.Mutex
	keys   map[string]*sync.Mutex

	version atomic.Uint64

	loadMu sync.Mutex
	loaded bool
}

// NewSession creates an empty Session.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		logger:    slog.Default(),
		entries:   make(map[string]*Entry),
		functions: make(map[string][]string),
		keys:      make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.analyzer == nil {
		s.analyzer = NewEngineAnalyzer(s.cfg)
	}
	if s.index != nil {
		// Index rows from an earlier session must not outrank this one.
		if v, err := s.index.MaxVersion(); err != nil {
			s.logger.Warn("session.index", "err", err)
		} else {
			s.version.Store(v)
		}
	}
	if s.locate == nil {
		extract := project.NewExtractor(s.cfg.Addons)
		s.locate = func(path string) (*project.Project, bool) {
			return project.Locate(path, extract)
		}
	}
	return s
}

// Config returns the session configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// Open records a newly opened file. It is Replace under the editor's name.
func (s *Session) Open(ctx context.Context, path, src string) (*Entry, error) {
	s.logger.Info("session.open", "path", path)
	return s.Replace(ctx, path, src)
}

// Change records an edit. It is Replace under the editor's name.
func (s *Session) Change(ctx context.Context, path, src string) (*Entry, error) {
	s.logger.Debug("session.change", "path", path)
	return s.Replace(ctx, path, src)
}

// Close notes that the editor closed path. The entry stays cached because
// other files may depend on what it exports.
func (s *Session) Close(path string) {
	s.logger.Debug("session.close", "path", path)
}

// Replace re-analyzes path with src against the namespace built from every
// other entry and swaps in the new entry. The returned entry is whichever
// is current for path afterwards. An error is only returned when the index
// mirror fails; the in-memory entry is committed regardless.
func (s *Session) Replace(ctx context.Context, path, src string) (*Entry, error) {
	path = cleanPath(path)

	var errs []error
	if err := s.ensureProject(ctx, path); err != nil {
		errs = append(errs, err)
	}

	lock := s.keyLock(path)
	lock.Lock()
	defer lock.Unlock()

	version := s.version.Add(1)
	ns := s.Namespace(path)
	function, aliases := s.functionsFor(path)
	for _, name := range aliases {
		ns[sqf.Key(name)] = Global{Name: name, Origin: sqf.External(path, nil), Type: sqf.TypeCode}
	}
	res := s.analyzer.AnalyzeFile(FileInput{
		Path:      path,
		Text:      src,
		Function:  function,
		Namespace: ns,
	})
	entry := &Entry{
		Path:     path,
		Text:     text.New(src),
		Result:   withAliases(res, path, aliases),
		Function: function,
		Aliases:  aliases,
		Version:  version,
	}

	prev, committed := s.commit(entry)
	if committed {
		if err := s.mirror(entry); err != nil {
			errs = append(errs, err)
		}
		affected := attributedFiles(entry)
		affected = append(affected, attributedFiles(prev)...)
		s.publish(affected...)
	} else {
		s.logger.Debug("session.stale", "path", path, "version", version)
	}

	current := s.Entry(path)
	if len(errs) > 0 {
		return current, errs[0]
	}
	return current, nil
}

// ensureProject runs the one-shot project load. Only a file inside a
// discoverable project claims the gate; the load itself runs without
// holding it, so concurrent edits proceed and win by version.
func (s *Session) ensureProject(ctx context.Context, path string) error {
	s.loadMu.Lock()
	if s.loaded {
		s.loadMu.Unlock()
		return nil
	}
	proj, ok := s.locate(path)
	if !ok {
		s.loadMu.Unlock()
		return nil
	}
	proj.AddAliases(s.cfg.Addons)

	// Function names are known before the load runs so that edits racing
	// the load still analyze as the declared function.
	keys := make([]string, 0, len(proj.Functions))
	for k := range proj.Functions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s.mu.Lock()
	s.project = proj
	for _, k := range keys {
		decl := proj.Functions[k]
		if path, ok := proj.Resolve(decl.Path); ok {
			s.functions[path] = append(s.functions[path], decl.Name)
		}
	}
	s.mu.Unlock()

	s.loaded = true
	version := s.version.Add(1)
	s.loadMu.Unlock()

	s.logger.Info("session.project", "root", proj.Root, "kind", proj.Kind.String(), "functions", len(proj.Functions))

	res := AnalyzeProject(ctx, proj, s.analyzer,
		WithWorkers(s.cfg.Workers),
		WithPipelineLogger(s.logger),
		WithVersion(version),
	)

	var committed []*Entry
	for _, e := range res.Entries {
		if _, ok := s.commit(e); ok {
			committed = append(committed, e)
		}
	}
	err := s.mirror(committed...)

	affected := make([]string, 0, len(res.Diagnostics))
	for f := range res.Diagnostics {
		affected = append(affected, f)
	}
	s.publish(affected...)
	return err
}

func (s *Session) keyLock(path string) *sync.Mutex {
	s.keysMu.Lock()
	defer s.keysMu.Unlock()
	m, ok := s.keys[path]
	if !ok {
		m = new(sync.Mutex)
		s.keys[path] = m
	}
	return m
}

// commit stores e unless the current entry has a newer version. It returns
// the replaced entry.
func (s *Session) commit(e *Entry) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.entries[e.Path]
	if prev != nil && prev.Version > e.Version {
		return nil, false
	}
	s.entries[e.Path] = e
	return prev, true
}

// functionsFor returns the function path is analyzed as and the further
// names declared for it.
func (s *Session) functionsFor(path string) (string, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := s.functions[path]
	if len(names) == 0 {
		return "", nil
	}
	return names[0], names[1:]
}

// publish pushes the current diagnostics of each distinct path once.
func (s *Session) publish(paths ...string) {
	if s.notify == nil || len(paths) == 0 {
		return
	}
	seen := make(map[string]bool, len(paths))
	var unique []string
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			unique = append(unique, p)
		}
	}
	sort.Strings(unique)

	grouped := groupDiagnostics(s.Entries())
	for _, p := range unique {
		diags := grouped[p]
		if diags == nil {
			diags = []Diagnostic{}
		}
		s.notify(p, diags)
	}
}

// mirror writes committed entries to the index, if one is configured.
// Entries whose rows are already stored only advance their version.
func (s *Session) mirror(entries ...*Entry) error {
	if s.index == nil || len(entries) == 0 {
		return nil
	}
	batch := store.NewBatch(s.index)
	for _, e := range entries {
		data, err := fileData(e)
		if err != nil {
			return err
		}
		batch.Add(data)
	}
	written, unchanged, err := batch.Flush()
	if err != nil {
		return fmt.Errorf("sqfls: index: %w", err)
	}
	s.logger.Debug("session.mirror", "written", written, "unchanged", unchanged)
	return nil
}

// fileData converts an entry to its index rows.
func fileData(e *Entry) (*store.FileData, error) {
	data := &store.FileData{
		File: store.File{
			Path:     e.Path,
			Function: e.Function,
			Version:  e.Version,
			Fatal:    e.Result.Fatal,
		},
	}
	for _, g := range Namespace(e.Result.Globals).Sorted() {
		row := store.Global{
			Name:      g.Name,
			Type:      g.Type.String(),
			Signature: g.Signature.String(),
		}
		switch g.Origin.Kind {
		case sqf.OriginInFile:
			row.OriginPath = e.Path
			start, end := g.Origin.Span.Start, g.Origin.Span.End
			row.OriginStart, row.OriginEnd = &start, &end
		case sqf.OriginExternal:
			row.OriginPath = g.Origin.Path
			if sp := g.Origin.ExternalSpan; sp != nil {
				start, end := sp.Start, sp.End
				row.OriginStart, row.OriginEnd = &start, &end
			}
		}
		if g.Signature != nil {
			for _, p := range g.Signature.Parameters {
				row.Parameters = append(row.Parameters, p.Name)
			}
		}
		data.Globals = append(data.Globals, row)
	}
	for _, d := range e.Result.Diagnostics {
		data.Diagnostics = append(data.Diagnostics, store.Diagnostic{
			Attributed: attributedTo(e.Path, d),
			Severity:   int(d.Severity),
			Code:       d.Code,
			Message:    d.Message,
			Start:      d.Span.Start,
			End:        d.Span.End,
		})
	}
	hash, err := store.Fingerprint([]byte(e.Text.String()), data)
	if err != nil {
		return nil, fmt.Errorf("sqfls: index: %w", err)
	}
	data.File.Hash = hash
	return data, nil
}

// Entry returns the cached entry for path, or nil.
func (s *Session) Entry(path string) *Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[cleanPath(path)]
}

// Entries returns a snapshot of every cached entry ordered by path.
func (s *Session) Entries() []*Entry {
	s.mu.RLock()
	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	s.mu.RUnlock()
	sortEntries(out)
	return out
}

// Namespace projects the globals of every entry except exclude.
func (s *Session) Namespace(exclude string) Namespace {
	return BuildNamespace(s.Entries(), exclude)
}

// Project returns the loaded project, or nil before a project load.
func (s *Session) Project() *project.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.project
}

// Diagnostics returns every diagnostic currently attributed to path.
func (s *Session) Diagnostics(path string) []Diagnostic {
	return diagnosticsFor(s.Entries(), cleanPath(path))
}

// AllDiagnostics groups every cached diagnostic under the file it is
// attributed to.
func (s *Session) AllDiagnostics() map[string][]Diagnostic {
	return groupDiagnostics(s.Entries())
}

// Query returns a QueryBuilder over the session's cached entries.
func (s *Session) Query() *QueryBuilder {
	return &QueryBuilder{session: s}
}

func cleanPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
