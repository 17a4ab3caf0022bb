package sqfls

import (
	"sort"

	"github.com/jward/sqfls/internal/project"
	"github.com/jward/sqfls/internal/sqf"
	"github.com/jward/sqfls/internal/text"
)

// Entry is the cached analysis of one file. Entries are never modified
// after publication; an edit replaces the whole entry.
type Entry struct {
	Path     string
	Text     *text.Buffer
	Result   *AnalysisResult
	Function string
	// Aliases are further names declared for the same file. They are
	// exported with Function's signature.
	Aliases []string
	Version uint64
}

// Namespace maps sqf.Key(name) to the global bound under that name across
// the project. It is always rebuilt from entries, never patched.
type Namespace map[string]Global

// Lookup finds name, ignoring case.
func (n Namespace) Lookup(name string) (Global, bool) {
	g, ok := n[sqf.Key(name)]
	return g, ok
}

// Sorted returns the bound globals ordered by lower-cased name.
func (n Namespace) Sorted() []Global {
	keys := make([]string, 0, len(n))
	for k := range n {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Global, len(keys))
	for i, k := range keys {
		out[i] = n[k]
	}
	return out
}

// Conflict records a name exported by more than one file. The entry merged
// last wins.
type Conflict struct {
	Name     string
	Previous string
	Winner   string
}

// BuildNamespace merges the globals of every entry except exclude.
func BuildNamespace(entries []*Entry, exclude string) Namespace {
	ns, _ := mergeNamespace(entries, exclude)
	return ns
}

// mergeNamespace merges entries in (path, function) order, so the result
// does not depend on the order entries are passed in.
func mergeNamespace(entries []*Entry, exclude string) (Namespace, []Conflict) {
	sorted := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if e == nil || e.Result == nil || e.Path == exclude || e.Result.Fatal {
			continue
		}
		sorted = append(sorted, e)
	}
	sortEntries(sorted)

	ns := make(Namespace)
	var conflicts []Conflict
	for _, e := range sorted {
		keys := make([]string, 0, len(e.Result.Globals))
		for k := range e.Result.Globals {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			g := e.Result.Globals[k]
			if prev, ok := ns[k]; ok {
				if p := exporter(prev); p != e.Path {
					conflicts = append(conflicts, Conflict{Name: g.Name, Previous: p, Winner: e.Path})
				}
			}
			ns[k] = g
		}
	}
	return ns, conflicts
}

// exporter is the file a global came from.
func exporter(g Global) string {
	switch g.Origin.Kind {
	case sqf.OriginExternal:
		return g.Origin.Path
	case sqf.OriginInFile:
		return ""
	}
	return ""
}

func sortEntries(entries []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Path != entries[j].Path {
			return entries[i].Path < entries[j].Path
		}
		return sqf.Key(entries[i].Function) < sqf.Key(entries[j].Function)
	})
}

// placeholderNamespace binds every declared function to its file with an
// unknown span and no signature. resolved maps sqf.Key(name) to the
// resolved path; unresolvable names are bound to their declared path.
func placeholderNamespace(p *project.Project, resolved map[string]string) Namespace {
	ns := make(Namespace, len(p.Functions))
	for k, decl := range p.Functions {
		path, ok := resolved[k]
		if !ok {
			path = decl.Path
		}
		ns[k] = Global{
			Name:   decl.Name,
			Origin: sqf.External(path, nil),
			Type:   sqf.TypeCode,
		}
	}
	return ns
}
