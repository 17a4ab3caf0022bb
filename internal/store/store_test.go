package store

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

// initData is a committed function file with one export and one diagnostic.
func initData(version uint64) *FileData {
	return &FileData{
		File: File{Path: "/p/init.sqf", Function: "TAG_fnc_init", Hash: "h1", Version: version},
		Globals: []Global{{
			Name:       "TAG_fnc_init",
			OriginPath: "/p/init.sqf",
			Type:       "Code",
			Signature:  "[] -> Number",
		}},
		Diagnostics: []Diagnostic{{Severity: 2, Code: "unused-variable", Message: "unused _a", Start: 4, End: 6}},
	}
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"files", "globals", "diagnostics", "metadata"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	// Running migrate again should not error.
	require.NoError(t, s.Migrate())
}

func TestMigrate_WALMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var mode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)
}

func TestMetadata_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	v, err := s.GetMetadata("root")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetMetadata("root", "/a"))
	require.NoError(t, s.SetMetadata("root", "/b"))
	v, err = s.GetMetadata("root")
	require.NoError(t, err)
	assert.Equal(t, "/b", v)
}

// =============================================================================
// Commit
// =============================================================================

func TestCommitFile_InsertAndRetrieve(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	data := initData(1)
	ok, err := s.CommitFile(data)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Positive(t, data.File.ID)

	f, err := s.FileByPath("/p/init.sqf")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "TAG_fnc_init", f.Function)
	assert.Equal(t, uint64(1), f.Version)
	assert.False(t, f.LastIndexed.IsZero())

	globals, err := s.GlobalsByName("tag_FNC_init")
	require.NoError(t, err)
	require.Len(t, globals, 1)
	assert.Equal(t, "/p/init.sqf", globals[0].Path)
	assert.Equal(t, "[] -> Number", globals[0].Signature)
	assert.Nil(t, globals[0].OriginStart)

	diags, err := s.DiagnosticsFor("/p/init.sqf")
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "/p/init.sqf", diags[0].Attributed)
	assert.Equal(t, "unused-variable", diags[0].Code)
}

func TestCommitFile_ReplacesPreviousRows(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.CommitFile(initData(1))
	require.NoError(t, err)

	next := &FileData{
		File: File{Path: "/p/init.sqf", Hash: "h2", Version: 2},
		Globals: []Global{{
			Name: "counter", OriginPath: "/p/init.sqf", OriginStart: ptr(0), OriginEnd: ptr(7),
			Parameters: []string{"_a", "_b"},
		}},
	}
	ok, err := s.CommitFile(next)
	require.NoError(t, err)
	require.True(t, ok)

	globals, err := s.Globals()
	require.NoError(t, err)
	require.Len(t, globals, 1)
	assert.Equal(t, "counter", globals[0].Name)
	require.NotNil(t, globals[0].OriginEnd)
	assert.Equal(t, 7, *globals[0].OriginEnd)
	assert.Equal(t, []string{"_a", "_b"}, globals[0].Parameters)

	diags, err := s.Diagnostics()
	require.NoError(t, err)
	assert.Empty(t, diags)

	files, err := s.Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "h2", files[0].Hash)
}

func TestCommitFile_StaleVersionIgnored(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.CommitFile(initData(5))
	require.NoError(t, err)

	stale := initData(3)
	stale.Globals = nil
	ok, err := s.CommitFile(stale)
	require.NoError(t, err)
	assert.False(t, ok)

	globals, err := s.Globals()
	require.NoError(t, err)
	assert.Len(t, globals, 1)
}

func TestCommitFile_AttributedDiagnostics(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	data := &FileData{
		File: File{Path: "/p/init.sqf", Version: 1},
		Diagnostics: []Diagnostic{
			{Severity: 1, Code: "missing-function-file", Message: "missing", Attributed: "/p/config.cpp", Start: 10, End: 14},
			{Severity: 2, Code: "unused-variable", Message: "unused", Start: 0, End: 2},
		},
	}
	_, err := s.CommitFile(data)
	require.NoError(t, err)

	diags, err := s.DiagnosticsFor("/p/config.cpp")
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "/p/init.sqf", diags[0].Path)

	all, err := s.Diagnostics()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "/p/config.cpp", all[0].Attributed)

	counts, err := s.DiagnosticCounts()
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 1, 2: 1}, counts)
}

func TestCommitBatch(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.CommitFile(initData(9))
	require.NoError(t, err)

	n, err := s.CommitBatch([]*FileData{
		initData(1),
		{File: File{Path: "/p/b.sqf", Version: 1}},
		{File: File{Path: "/p/a.sqf", Version: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	files, err := s.Files()
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "/p/a.sqf", files[0].Path)
	assert.Equal(t, uint64(9), files[2].Version)
}

func TestDeleteFile_Cascades(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.CommitFile(initData(1))
	require.NoError(t, err)
	require.NoError(t, s.DeleteFile("/p/init.sqf"))

	f, err := s.FileByPath("/p/init.sqf")
	require.NoError(t, err)
	assert.Nil(t, f)
	globals, err := s.Globals()
	require.NoError(t, err)
	assert.Empty(t, globals)
	diags, err := s.Diagnostics()
	require.NoError(t, err)
	assert.Empty(t, diags)
}

// =============================================================================
// Hashing
// =============================================================================

func TestContentHash_Deterministic(t *testing.T) {
	t.Parallel()
	a, err := ContentHash([]byte("x = 1;"))
	require.NoError(t, err)
	b, err := ContentHash([]byte("x = 1;"))
	require.NoError(t, err)
	c, err := ContentHash([]byte("x = 2;"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}

func TestUnchanged(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	ok, err := s.Unchanged("/p/init.sqf", "h1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.CommitFile(initData(1))
	require.NoError(t, err)

	ok, err = s.Unchanged("/p/init.sqf", "h1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Unchanged("/p/init.sqf", "other")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFingerprint_CoversRows(t *testing.T) {
	t.Parallel()
	a, err := Fingerprint([]byte("x = 1;"), initData(1))
	require.NoError(t, err)
	b, err := Fingerprint([]byte("x = 1;"), initData(2))
	require.NoError(t, err)
	assert.Equal(t, a, b, "the version is not part of the fingerprint")

	other := initData(1)
	other.Diagnostics = nil
	c, err := Fingerprint([]byte("x = 1;"), other)
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "same text, different analysis")

	d, err := Fingerprint([]byte("x = 2;"), initData(1))
	require.NoError(t, err)
	assert.NotEqual(t, a, d)
}

func TestMaxVersion(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	v, err := s.MaxVersion()
	require.NoError(t, err)
	assert.Zero(t, v)

	_, err = s.CommitBatch([]*FileData{initData(4), {File: File{Path: "/p/b.sqf", Version: 9}}})
	require.NoError(t, err)
	v, err = s.MaxVersion()
	require.NoError(t, err)
	assert.Equal(t, uint64(9), v)
}

// =============================================================================
// Batch
// =============================================================================

func TestBatch_FlushWritesAndClears(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	b := NewBatch(s)

	b.Add(initData(1))
	b.Add(&FileData{File: File{Path: "/p/b.sqf", Hash: "hb", Version: 1}})
	assert.Equal(t, 2, b.Len())

	written, unchanged, err := b.Flush()
	require.NoError(t, err)
	assert.Equal(t, 2, written)
	assert.Zero(t, unchanged)
	assert.Zero(t, b.Len())

	files, err := s.Files()
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestBatch_UnchangedOnlyAdvancesVersion(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.CommitFile(initData(1))
	require.NoError(t, err)
	before, err := s.GlobalsByName("TAG_fnc_init")
	require.NoError(t, err)
	require.Len(t, before, 1)

	b := NewBatch(s)
	b.Add(initData(3))
	written, unchanged, err := b.Flush()
	require.NoError(t, err)
	assert.Zero(t, written)
	assert.Equal(t, 1, unchanged)

	f, err := s.FileByPath("/p/init.sqf")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), f.Version)
	after, err := s.GlobalsByName("TAG_fnc_init")
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, before[0].ID, after[0].ID, "rows were not rewritten")
}

func TestBatch_UnchangedKeepsNewerVersion(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.CommitFile(initData(8))
	require.NoError(t, err)

	b := NewBatch(s)
	b.Add(initData(2))
	_, unchanged, err := b.Flush()
	require.NoError(t, err)
	assert.Equal(t, 1, unchanged)

	f, err := s.FileByPath("/p/init.sqf")
	require.NoError(t, err)
	assert.Equal(t, uint64(8), f.Version)
}

func TestBatch_ConcurrentAdd(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	b := NewBatch(s)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Add(&FileData{File: File{Path: fmt.Sprintf("/p/%02d.sqf", i), Version: 1}})
		}()
	}
	wg.Wait()

	written, _, err := b.Flush()
	require.NoError(t, err)
	assert.Equal(t, 20, written)
}
