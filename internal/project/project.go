// Package project finds the addon or mission a script belongs to and maps
// the paths its marker file declares onto the filesystem.
package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/viant/afs"

	"github.com/jward/sqfls/internal/sqf"
)

// MarkerKind identifies which marker file defined a project.
type MarkerKind int

const (
	// KindAddon is a directory with a config.cpp.
	KindAddon MarkerKind = iota + 1
	// KindMission is a directory with a description.ext.
	KindMission
)

func (k MarkerKind) String() string {
	switch k {
	case KindAddon:
		return "addon"
	case KindMission:
		return "mission"
	}
	return "unknown"
}

// Marker file names in the order they are tried within one directory.
var markers = []struct {
	name string
	kind MarkerKind
}{
	{"config.cpp", KindAddon},
	{"description.ext", KindMission},
}

const prefixFile = "$PBOPREFIX$"

// Project is a located addon or mission.
type Project struct {
	Root      string
	Marker    string
	Kind      MarkerKind
	Functions sqf.DeclaredFunctions
	// Aliases maps a game path prefix (backslash separated) to a directory.
	Aliases map[string]string
}

// Base is the directory relative declared paths resolve against. Addon
// paths are written relative to the addon's parent directory.
func (p *Project) Base() string {
	if p.Kind == KindAddon {
		return filepath.Dir(p.Root)
	}
	return p.Root
}

// Resolve maps a declared path to a filesystem path.
func (p *Project) Resolve(declared string) (string, bool) {
	return Resolve(declared, p.Base(), p.Aliases)
}

// AddAliases registers extra prefixes without replacing existing ones.
func (p *Project) AddAliases(aliases map[string]string) {
	if p.Aliases == nil {
		p.Aliases = make(map[string]string)
	}
	for k, v := range aliases {
		if _, ok := p.Aliases[k]; !ok {
			p.Aliases[k] = v
		}
	}
}

// Extractor reads the declared functions of a marker file. Any error makes
// the locator treat the marker as absent.
type Extractor func(markerPath string) (sqf.DeclaredFunctions, error)

// ExtractError reports a marker file that could not be used.
type ExtractError struct {
	Path        string
	Diagnostics []sqf.Diagnostic
}

func (e *ExtractError) Error() string {
	if len(e.Diagnostics) == 0 {
		return fmt.Sprintf("project: %s: unusable marker", e.Path)
	}
	return fmt.Sprintf("project: %s: %d problem(s), first: %s", e.Path, len(e.Diagnostics), e.Diagnostics[0].Message)
}

// ExtractorOption configures NewExtractor.
type ExtractorOption func(*extractor)

type extractor struct {
	fs afs.Service
}

// WithFileService replaces the storage service marker and included files
// are read through.
func WithFileService(fs afs.Service) ExtractorOption {
	return func(e *extractor) {
		e.fs = fs
	}
}

// NewExtractor returns an Extractor that parses marker files, resolving
// #include paths relative to the marker or through aliases.
func NewExtractor(aliases map[string]string, opts ...ExtractorOption) Extractor {
	x := &extractor{}
	for _, opt := range opts {
		opt(x)
	}
	if x.fs == nil {
		x.fs = afs.New()
	}
	return func(markerPath string) (sqf.DeclaredFunctions, error) {
		ctx := context.Background()
		data, err := x.fs.DownloadWithURL(ctx, markerPath)
		if err != nil {
			return nil, fmt.Errorf("project: read marker: %w", err)
		}
		dir := filepath.Dir(markerPath)
		opts := sqf.PreprocessOptions{Include: func(name string) (string, error) {
			path, ok := Resolve(name, dir, aliases)
			if !ok {
				return "", fmt.Errorf("project: unresolvable include %q", name)
			}
			b, err := x.fs.DownloadWithURL(ctx, path)
			if err != nil {
				return "", err
			}
			return string(b), nil
		}}
		decls, diags := sqf.ExtractDeclarations(string(data), opts)
		if len(diags) > 0 {
			return nil, &ExtractError{Path: markerPath, Diagnostics: diags}
		}
		return decls, nil
	}
}

// Locate walks upward from the directory containing path to the filesystem
// root. In each directory it tries config.cpp and then description.ext
// (file names match case-insensitively); the first marker whose extraction
// succeeds defines the project. A nil extract uses NewExtractor(nil).
func Locate(path string, extract Extractor) (*Project, bool) {
	if extract == nil {
		extract = NewExtractor(nil)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}

	dir := filepath.Dir(abs)
	for {
		entries, _ := os.ReadDir(dir)
		for _, m := range markers {
			name, ok := findEntry(entries, m.name)
			if !ok {
				continue
			}
			markerPath := filepath.Join(dir, name)
			functions, err := extract(markerPath)
			if err != nil {
				continue
			}
			if functions == nil {
				functions = make(sqf.DeclaredFunctions)
			}
			p := &Project{
				Root:      dir,
				Marker:    markerPath,
				Kind:      m.kind,
				Functions: functions,
				Aliases:   make(map[string]string),
			}
			if prefix, ok := readPrefix(dir, entries); ok {
				p.Aliases[prefix] = dir
			}
			return p, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, false
		}
		dir = parent
	}
}

func findEntry(entries []os.DirEntry, name string) (string, bool) {
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(e.Name(), name) {
			return e.Name(), true
		}
	}
	return "", false
}

// readPrefix reads the game path prefix an addon is packed under.
func readPrefix(dir string, entries []os.DirEntry) (string, bool) {
	name, ok := findEntry(entries, prefixFile)
	if !ok {
		return "", false
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", false
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if k, v, found := strings.Cut(line, "="); found {
			if !strings.EqualFold(strings.TrimSpace(k), "prefix") {
				continue
			}
			line = strings.TrimSpace(v)
		}
		line = strings.Trim(line, `\/`)
		return line, line != ""
	}
	return "", false
}
