package sqfls

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover_Walk(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "init.sqf"), "")
	writeFile(t, filepath.Join(root, "scripts", "FN_UPPER.SQF"), "")
	writeFile(t, filepath.Join(root, "scripts", "config.cpp"), "")
	writeFile(t, filepath.Join(root, "macros.hpp"), "")
	writeFile(t, filepath.Join(root, ".hidden", "a.sqf"), "")
	writeFile(t, filepath.Join(root, "node_modules", "b.sqf"), "")
	writeFile(t, filepath.Join(root, ".hemttout", "c.sqf"), "")
	writeFile(t, filepath.Join(root, "ignored.sqf"), "")
	writeFile(t, filepath.Join(root, "scratch.tmp.sqf"), "")
	writeFile(t, filepath.Join(root, ".gitignore"), "ignored.sqf\n*.tmp.sqf\n")

	got, err := Discover(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "init.sqf"),
		filepath.Join(root, "scripts", "FN_UPPER.SQF"),
	}, got)
}

func TestDiscover_Empty(t *testing.T) {
	t.Parallel()
	got, err := Discover(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDiscover_GitWorkTree(t *testing.T) {
	t.Parallel()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	root := t.TempDir()
	cmd := exec.Command("git", "init", "-q")
	cmd.Dir = root
	require.NoError(t, cmd.Run())

	writeFile(t, filepath.Join(root, "a.sqf"), "")
	writeFile(t, filepath.Join(root, "sub", "b.sqf"), "")
	writeFile(t, filepath.Join(root, "skip.sqf"), "")
	writeFile(t, filepath.Join(root, "notes.txt"), "")
	writeFile(t, filepath.Join(root, ".gitignore"), "skip.sqf\n")

	got, err := Discover(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.sqf"),
		filepath.Join(root, "sub", "b.sqf"),
	}, got)
}

func TestDiscover_FallsBackWhenGitFails(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	// A bare .git directory is not a work tree, so git fails and the walk
	// takes over.
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	writeFile(t, filepath.Join(root, "a.sqf"), "")

	got, err := Discover(root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.sqf")}, got)
}
