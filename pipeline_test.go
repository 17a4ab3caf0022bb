package sqfls

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/sqfls/internal/project"
	"github.com/jward/sqfls/internal/sqf"
)

func locate(t *testing.T, path string) *project.Project {
	t.Helper()
	p, ok := project.Locate(path, nil)
	require.True(t, ok)
	return p
}

func analyzeMission(t *testing.T, root string, cfg Config, opts ...PipelineOption) *ProjectResult {
	t.Helper()
	p := locate(t, filepath.Join(root, "main.sqf"))
	opts = append([]PipelineOption{WithPipelineLogger(discardLogger())}, opts...)
	return AnalyzeProject(context.Background(), p, NewEngineAnalyzer(cfg), opts...)
}

// =============================================================================
// Namespace and signatures
// =============================================================================

func TestAnalyzeProject_ExportsDeclaredFunctions(t *testing.T) {
	t.Parallel()
	root := writeMission(t)
	res := analyzeMission(t, root, strict)

	require.Len(t, res.Entries, 2)
	assert.Equal(t, filepath.Join(root, "scripts", "add.sqf"), res.Entries[0].Path)
	assert.Equal(t, "TAG_fnc_add", res.Entries[0].Function)
	assert.Equal(t, filepath.Join(root, "scripts", "init.sqf"), res.Entries[1].Path)

	g, ok := res.Namespace.Lookup("TAG_FNC_INIT")
	require.True(t, ok)
	assert.Equal(t, "TAG_fnc_init", g.Name)
	assert.Equal(t, sqf.OriginExternal, g.Origin.Kind)
	assert.Equal(t, filepath.Join(root, "scripts", "init.sqf"), g.Origin.Path)
	require.NotNil(t, g.Signature)
	assert.Equal(t, sqf.TypeNumber, g.Signature.Returns)

	add, ok := res.Namespace.Lookup("TAG_fnc_add")
	require.True(t, ok)
	require.NotNil(t, add.Signature)
	assert.Len(t, add.Signature.Parameters, 2)

	assert.Empty(t, res.Diagnostics)
	assert.Empty(t, res.Conflicts)
}

func TestAnalyzeProject_Idempotent(t *testing.T) {
	t.Parallel()
	root := writeMission(t)
	first := analyzeMission(t, root, strict)
	second := analyzeMission(t, root, strict, WithWorkers(1))

	assert.Equal(t, first.Namespace, second.Namespace)
	assert.Equal(t, first.Diagnostics, second.Diagnostics)
	require.Len(t, second.Entries, len(first.Entries))
	for i := range first.Entries {
		assert.Equal(t, first.Entries[i].Path, second.Entries[i].Path)
		assert.Equal(t, first.Entries[i].Result, second.Entries[i].Result)
	}
}

func TestAnalyzeProject_PlaceholderResolvesCrossCalls(t *testing.T) {
	t.Parallel()
	root := writeMission(t)
	// init calls add; add is analyzed in the same batch so only the
	// placeholder binding can satisfy the reference.
	writeFile(t, filepath.Join(root, "scripts", "init.sqf"), "[1, 2] call TAG_fnc_add")

	res := analyzeMission(t, root, strict)
	assert.Empty(t, res.Diagnostics)

	init := res.Entries[1]
	require.Equal(t, "TAG_fnc_init", init.Function)
	var found bool
	for _, o := range init.Result.Origins {
		if o.Kind == sqf.OriginExternal {
			assert.Equal(t, filepath.Join(root, "scripts", "add.sqf"), o.Path)
			assert.Nil(t, o.ExternalSpan)
			found = true
		}
	}
	assert.True(t, found, "call site resolves to the placeholder binding")
}

// =============================================================================
// Failures and attribution
// =============================================================================

func TestAnalyzeProject_MissingFileAttributedToMarker(t *testing.T) {
	t.Parallel()
	root := writeMission(t)
	marker := filepath.Join(root, "description.ext")
	writeFile(t, marker, `class CfgFunctions {
    class TAG {
        class Core {
            class init { file = "scripts\init.sqf"; };
            class gone { file = "scripts\gone.sqf"; };
        };
    };
};
`)

	res := analyzeMission(t, root, Config{})
	require.Len(t, res.Entries, 2)

	diags := res.Diagnostics[marker]
	require.Len(t, diags, 1)
	assert.Equal(t, sqf.CodeMissingFunction, diags[0].Code)
	assert.Equal(t, sqf.SeverityError, diags[0].Severity)
	assert.Contains(t, diags[0].Message, `"TAG_fnc_gone"`)
	assert.Len(t, res.Diagnostics, 1, "nothing is attributed to the missing file itself")

	_, ok := res.Namespace.Lookup("TAG_fnc_gone")
	assert.False(t, ok, "fatal entries export nothing")
	_, ok = res.Namespace.Lookup("TAG_fnc_init")
	assert.True(t, ok)
}

func TestAnalyzeProject_SharedMissingFile(t *testing.T) {
	t.Parallel()
	root := writeMission(t)
	marker := filepath.Join(root, "description.ext")
	writeFile(t, marker, sharedConfig(`scripts\gone.sqf`))

	res := analyzeMission(t, root, Config{})
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "TAG_fnc_one", res.Entries[0].Function)
	assert.Equal(t, []string{"TAG_fnc_two"}, res.Entries[0].Aliases)

	diags := res.Diagnostics[marker]
	require.Len(t, diags, 2, "one diagnostic per declaration")
	assert.Contains(t, diags[0].Message, `"TAG_fnc_one"`)
	assert.Contains(t, diags[1].Message, `"TAG_fnc_two"`)
}

func TestAnalyzeProject_UnresolvedKeyedByMarker(t *testing.T) {
	t.Parallel()
	root := writeMission(t)
	marker := filepath.Join(root, "description.ext")
	writeFile(t, marker, sharedConfig(`\x\nowhere\fn.sqf`))

	res := analyzeMission(t, root, Config{})
	require.Len(t, res.Entries, 2)
	assert.Equal(t, MissingKey(marker, "TAG_fnc_one"), res.Entries[0].Path)
	assert.Equal(t, MissingKey(marker, "TAG_fnc_two"), res.Entries[1].Path)
	assert.Len(t, res.Diagnostics[marker], 2)
	assert.Len(t, res.Diagnostics, 1)
}

func TestAnalyzeProject_SharedFileExportsEveryName(t *testing.T) {
	t.Parallel()
	root := writeMission(t)
	writeFile(t, filepath.Join(root, "description.ext"), sharedConfig(`scripts\init.sqf`))

	res := analyzeMission(t, root, Config{})
	require.Len(t, res.Entries, 1)
	initPath := filepath.Join(root, "scripts", "init.sqf")
	for _, name := range []string{"TAG_fnc_one", "TAG_fnc_two"} {
		g, ok := res.Namespace.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, initPath, g.Origin.Path)
		require.NotNil(t, g.Signature)
		assert.Equal(t, sqf.TypeNumber, g.Signature.Returns)
	}
	assert.Empty(t, res.Conflicts)
}

func TestAnalyzeProject_ReadsThroughFileService(t *testing.T) {
	t.Parallel()
	root := writeMission(t)
	fs := newRecordingFS()

	res := analyzeMission(t, root, Config{}, WithFileService(fs))
	require.Len(t, res.Entries, 2)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "scripts", "add.sqf"),
		filepath.Join(root, "scripts", "init.sqf"),
	}, fs.read())
}

func TestAnalyzeProject_FatalFileDoesNotAbort(t *testing.T) {
	t.Parallel()
	root := writeMission(t)
	writeFile(t, filepath.Join(root, "scripts", "add.sqf"), "#bogus")

	res := analyzeMission(t, root, Config{})
	require.Len(t, res.Entries, 2)
	assert.True(t, res.Entries[0].Result.Fatal)

	addPath := filepath.Join(root, "scripts", "add.sqf")
	assert.Equal(t, []string{sqf.CodePreprocess}, codesOf(res.Diagnostics[addPath]))
	_, ok := res.Namespace.Lookup("TAG_fnc_init")
	assert.True(t, ok)
}

func TestAnalyzeProject_Conflicts(t *testing.T) {
	t.Parallel()
	root := writeMission(t)
	writeFile(t, filepath.Join(root, "scripts", "init.sqf"), "Shared = 1; 1")
	writeFile(t, filepath.Join(root, "scripts", "add.sqf"), "Shared = \"x\";")

	res := analyzeMission(t, root, Config{})
	require.Len(t, res.Conflicts, 1)
	c := res.Conflicts[0]
	assert.Equal(t, "Shared", c.Name)
	assert.Equal(t, filepath.Join(root, "scripts", "add.sqf"), c.Previous)
	assert.Equal(t, filepath.Join(root, "scripts", "init.sqf"), c.Winner)

	g, ok := res.Namespace.Lookup("shared")
	require.True(t, ok)
	assert.Equal(t, sqf.TypeNumber, g.Type, "the lexically last exporter wins")
}

func TestAnalyzeProject_Version(t *testing.T) {
	t.Parallel()
	root := writeMission(t)
	res := analyzeMission(t, root, Config{}, WithVersion(7))
	for _, e := range res.Entries {
		assert.Equal(t, uint64(7), e.Version)
	}
}

func TestAnalyzeProject_Cancelled(t *testing.T) {
	t.Parallel()
	root := writeMission(t)
	p := locate(t, filepath.Join(root, "main.sqf"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := AnalyzeProject(ctx, p, NewEngineAnalyzer(Config{}), WithPipelineLogger(discardLogger()))
	assert.Empty(t, res.Entries)
	assert.Empty(t, res.Namespace)
}
