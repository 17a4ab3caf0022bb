package scripts_test

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/sqfls/internal/runtime"
	"github.com/jward/sqfls/internal/store"
	"github.com/jward/sqfls/scripts"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })

	_, err = s.CommitBatch([]*store.FileData{
		{
			File: store.File{Path: "/m/add.sqf", Function: "TAG_fnc_add", Version: 1},
			Globals: []store.Global{{
				Name: "TAG_fnc_add", OriginPath: "/m/add.sqf", Type: "Code", Signature: "[_a, _b] -> Number",
				Parameters: []string{"_a", "_b"},
			}},
			Diagnostics: []store.Diagnostic{
				{Severity: 2, Code: "unused-variable", Message: "unused _c", Start: 0, End: 2},
			},
		},
		{
			File: store.File{Path: "/m/main.sqf", Version: 1},
			Globals: []store.Global{{
				Name: "Counter", OriginPath: "/m/main.sqf", Type: "Number",
			}},
			Diagnostics: []store.Diagnostic{
				{Severity: 1, Code: "undefined-variable", Message: "undefined variable x", Start: 3, End: 4},
				{Severity: 1, Code: "undefined-variable", Message: "undefined variable y", Start: 6, End: 7},
				{Severity: 2, Code: "unused-variable", Message: "unused _z", Start: 9, End: 11},
			},
		},
	})
	require.NoError(t, err)
	return s
}

// run executes the named built-in report and returns its rows.
func run(t *testing.T, s *store.Store, name string) []map[string]any {
	t.Helper()
	var rows []map[string]any
	rt := runtime.NewRuntime(s, "",
		runtime.WithRuntimeFS(scripts.FS),
		runtime.WithEmit(func(row map[string]any) { rows = append(rows, row) }),
	)
	require.NoError(t, rt.RunScript(context.Background(), scripts.Report(name), nil))
	return rows
}

func TestReports_Embedded(t *testing.T) {
	t.Parallel()
	names, err := fs.Glob(scripts.FS, "reports/*.risor")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"reports/codes.risor",
		"reports/functions.risor",
		"reports/summary.risor",
	}, names)
}

func TestReport_Summary(t *testing.T) {
	t.Parallel()
	rows := run(t, newTestStore(t), "summary")

	require.Len(t, rows, 2)
	assert.Equal(t, map[string]any{"path": "/m/add.sqf", "function": "TAG_fnc_add", "errors": int64(0), "warnings": int64(1)}, rows[0])
	assert.Equal(t, map[string]any{"path": "/m/main.sqf", "function": "", "errors": int64(2), "warnings": int64(1)}, rows[1])
}

func TestReport_Functions(t *testing.T) {
	t.Parallel()
	rows := run(t, newTestStore(t), "functions")

	require.Len(t, rows, 1)
	assert.Equal(t, "TAG_fnc_add", rows[0]["name"])
	assert.Equal(t, "[_a, _b] -> Number", rows[0]["signature"])
}

func TestReport_Codes(t *testing.T) {
	t.Parallel()
	rows := run(t, newTestStore(t), "codes")

	require.Len(t, rows, 2)
	assert.Equal(t, map[string]any{"code": "undefined-variable", "count": int64(2)}, rows[0])
	assert.Equal(t, map[string]any{"code": "unused-variable", "count": int64(2)}, rows[1])
}

func TestReport_Missing(t *testing.T) {
	t.Parallel()
	rt := runtime.NewRuntime(nil, "", runtime.WithRuntimeFS(scripts.FS))
	err := rt.RunScript(context.Background(), scripts.Report("nope"), nil)
	require.Error(t, err)
}
