package project

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"

	"github.com/jward/sqfls/internal/sqf"
)

const addonConfig = `class CfgFunctions {
    class TAG {
        class Core {
            file = "main\functions";
            class init {};
        };
    };
};
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// =============================================================================
// Resolve
// =============================================================================

func TestResolve(t *testing.T) {
	t.Parallel()
	base := filepath.FromSlash("/work/addons")
	aliases := map[string]string{
		`x\tag\addons`:      filepath.FromSlash("/src/addons"),
		`x\tag\addons\main`: filepath.FromSlash("/src/main"),
	}

	tests := []struct {
		name     string
		declared string
		want     string
		ok       bool
	}{
		{"relative", `main\functions\fn_init.sqf`, "/work/addons/main/functions/fn_init.sqf", true},
		{"forward slashes", "main/fn_a.sqf", "/work/addons/main/fn_a.sqf", true},
		{"longest alias wins", `x\tag\addons\main\fn_a.sqf`, "/src/main/fn_a.sqf", true},
		{"shorter alias", `x\tag\addons\other\fn_b.sqf`, "/src/addons/other/fn_b.sqf", true},
		{"alias is case-insensitive", `X\TAG\Addons\Main\Fn_A.sqf`, "/src/main/Fn_A.sqf", true},
		{"absolute through alias", `\x\tag\addons\main\fn_a.sqf`, "/src/main/fn_a.sqf", true},
		{"absolute without alias", `\a3\functions\fn_a.sqf`, "", false},
		{"empty", "", "", false},
		{"separators only", `\\`, "", false},
		{"parent escape", `..\secret.sqf`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.declared, base, aliases)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, filepath.FromSlash(tt.want), got)
			}
		})
	}
}

// =============================================================================
// Locate
// =============================================================================

func TestLocate_Addon(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	addon := filepath.Join(root, "addons", "main")
	writeFile(t, filepath.Join(addon, "config.cpp"), addonConfig)
	script := filepath.Join(addon, "functions", "fn_init.sqf")
	writeFile(t, script, "1")

	p, ok := Locate(script, nil)
	require.True(t, ok)
	assert.Equal(t, addon, p.Root)
	assert.Equal(t, KindAddon, p.Kind)
	assert.Equal(t, filepath.Join(addon, "config.cpp"), p.Marker)
	assert.Equal(t, filepath.Join(root, "addons"), p.Base())

	decl, ok := p.Functions["tag_fnc_init"]
	require.True(t, ok)
	path, ok := p.Resolve(decl.Path)
	require.True(t, ok)
	assert.Equal(t, script, path)
}

func TestLocate_MarkerInFileDirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "description.ext"), "")
	script := filepath.Join(root, "init.sqf")
	writeFile(t, script, "1")

	p, ok := Locate(script, nil)
	require.True(t, ok)
	assert.Equal(t, root, p.Root)
	assert.Equal(t, KindMission, p.Kind)
	assert.Equal(t, root, p.Base())
	assert.Empty(t, p.Functions)
}

func TestLocate_CaseInsensitiveMarker(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Config.CPP"), addonConfig)
	script := filepath.Join(root, "a.sqf")

	p, ok := Locate(script, nil)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "Config.CPP"), p.Marker)
}

func TestLocate_ConfigBeforeDescription(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "config.cpp"), addonConfig)
	writeFile(t, filepath.Join(root, "description.ext"), "")

	p, ok := Locate(filepath.Join(root, "a.sqf"), nil)
	require.True(t, ok)
	assert.Equal(t, KindAddon, p.Kind)
}

func TestLocate_SkipsBrokenMarker(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "description.ext"), "")
	inner := filepath.Join(root, "sub")
	writeFile(t, filepath.Join(inner, "config.cpp"), "class CfgFunctions {")
	script := filepath.Join(inner, "a.sqf")

	p, ok := Locate(script, nil)
	require.True(t, ok)
	assert.Equal(t, root, p.Root)
	assert.Equal(t, KindMission, p.Kind)
}

func TestLocate_FirstSuccessStops(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "description.ext"), "")
	inner := filepath.Join(root, "sub")
	writeFile(t, filepath.Join(inner, "config.cpp"), addonConfig)

	var calls []string
	extract := func(markerPath string) (sqf.DeclaredFunctions, error) {
		calls = append(calls, markerPath)
		return NewExtractor(nil)(markerPath)
	}
	p, ok := Locate(filepath.Join(inner, "a.sqf"), extract)
	require.True(t, ok)
	assert.Equal(t, inner, p.Root)
	assert.Equal(t, []string{filepath.Join(inner, "config.cpp")}, calls)
}

func TestLocate_NotFound(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	p, ok := Locate(filepath.Join(root, "a", "b", "c.sqf"), func(string) (sqf.DeclaredFunctions, error) {
		return nil, errors.New("unreachable")
	})
	assert.False(t, ok)
	assert.Nil(t, p)
}

func TestLocate_ExtractorFailureContinues(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "config.cpp"), addonConfig)
	extract := func(string) (sqf.DeclaredFunctions, error) { return nil, errors.New("boom") }

	_, ok := Locate(filepath.Join(root, "a.sqf"), extract)
	assert.False(t, ok)
}

func TestLocate_PrefixAlias(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	addon := filepath.Join(root, "main")
	writeFile(t, filepath.Join(addon, "config.cpp"), addonConfig)
	writeFile(t, filepath.Join(addon, prefixFile), "x\\tag\\addons\\main\r\n")

	p, ok := Locate(filepath.Join(addon, "a.sqf"), nil)
	require.True(t, ok)
	assert.Equal(t, map[string]string{`x\tag\addons\main`: addon}, p.Aliases)

	path, ok := p.Resolve(`\x\tag\addons\main\functions\fn_x.sqf`)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(addon, "functions", "fn_x.sqf"), path)
}

func TestLocate_IncludeRelativeToMarker(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "script_component.hpp"), "#define PREFIX TAG")
	writeFile(t, filepath.Join(root, "config.cpp"),
		"#include \"script_component.hpp\"\nclass CfgFunctions { class PREFIX { class C { class boot {}; }; }; };")

	p, ok := Locate(filepath.Join(root, "a.sqf"), nil)
	require.True(t, ok)
	assert.Contains(t, p.Functions, "tag_fnc_boot")
}

func TestProject_AddAliases(t *testing.T) {
	t.Parallel()
	p := &Project{Aliases: map[string]string{"a": "/one"}}
	p.AddAliases(map[string]string{"a": "/two", "b": "/three"})
	assert.Equal(t, map[string]string{"a": "/one", "b": "/three"}, p.Aliases)
}

func TestExtractError(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	marker := filepath.Join(root, "config.cpp")
	writeFile(t, marker, "class A {")

	_, err := NewExtractor(nil)(marker)
	var ee *ExtractError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, marker, ee.Path)
	assert.NotEmpty(t, ee.Diagnostics)
}

type recordingFS struct {
	afs.Service
	mu   sync.Mutex
	urls []string
}

func (r *recordingFS) DownloadWithURL(ctx context.Context, URL string, options ...storage.Option) ([]byte, error) {
	r.mu.Lock()
	r.urls = append(r.urls, URL)
	r.mu.Unlock()
	return r.Service.DownloadWithURL(ctx, URL, options...)
}

func TestNewExtractor_ReadsThroughFileService(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	include := filepath.Join(root, "script_component.hpp")
	marker := filepath.Join(root, "config.cpp")
	writeFile(t, include, "#define PREFIX TAG")
	writeFile(t, marker, "#include \"script_component.hpp\"\nclass CfgFunctions { class PREFIX { class C { class boot {}; }; }; };")

	fs := &recordingFS{Service: afs.New()}
	decls, err := NewExtractor(nil, WithFileService(fs))(marker)
	require.NoError(t, err)
	assert.Contains(t, decls, "tag_fnc_boot")
	assert.Equal(t, []string{marker, include}, fs.urls)
}
