package sqfls

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"

	"github.com/jward/sqfls/internal/project"
)

// missionConfig declares TAG_fnc_init and TAG_fnc_add under scripts\.
const missionConfig = `class CfgFunctions {
    class TAG {
        class Core {
            class init { file = "scripts\init.sqf"; };
            class add { file = "scripts\add.sqf"; };
        };
    };
};
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// writeMission lays out a mission with two function files and returns its
// root directory.
func writeMission(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "description.ext"), missionConfig)
	writeFile(t, filepath.Join(root, "scripts", "init.sqf"), "1")
	writeFile(t, filepath.Join(root, "scripts", "add.sqf"), "params [\"_a\", \"_b\"];\n_a + _b")
	return root
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noProject(string) (*project.Project, bool) {
	return nil, false
}

// newTestSession returns a session that never discovers a project unless
// opts install a locator.
func newTestSession(t *testing.T, opts ...SessionOption) *Session {
	t.Helper()
	base := []SessionOption{WithLocator(noProject), WithLogger(discardLogger())}
	return NewSession(append(base, opts...)...)
}

// strict reports every optional diagnostic.
var strict = Config{UndefinedVariableAsError: true, UnusedVariable: true}

// analyzerFunc adapts a function to the Analyzer interface.
type analyzerFunc func(FileInput) *AnalysisResult

func (f analyzerFunc) AnalyzeFile(in FileInput) *AnalysisResult { return f(in) }

// recorder collects diagnostics pushes.
type recorder struct {
	mu    sync.Mutex
	calls []string
	last  map[string][]Diagnostic
}

func newRecorder() *recorder {
	return &recorder{last: make(map[string][]Diagnostic)}
}

func (r *recorder) push(path string, diags []Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, path)
	r.last[path] = diags
}

func (r *recorder) get(path string) ([]Diagnostic, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.last[path]
	return d, ok
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
	r.last = make(map[string][]Diagnostic)
}

func codesOf(diags []Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.Code
	}
	return out
}

// sharedConfig declares TAG_fnc_one and TAG_fnc_two against the same file.
func sharedConfig(file string) string {
	return `class CfgFunctions {
    class TAG {
        class Core {
            class one { file = "` + file + `"; };
            class two { file = "` + file + `"; };
        };
    };
};
`
}

// recordingFS records every URL read through it.
type recordingFS struct {
	afs.Service
	mu   sync.Mutex
	urls []string
}

func newRecordingFS() *recordingFS {
	return &recordingFS{Service: afs.New()}
}

func (r *recordingFS) DownloadWithURL(ctx context.Context, URL string, options ...storage.Option) ([]byte, error) {
	r.mu.Lock()
	r.urls = append(r.urls, URL)
	r.mu.Unlock()
	return r.Service.DownloadWithURL(ctx, URL, options...)
}

func (r *recordingFS) read() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.urls...)
}
