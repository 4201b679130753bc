package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("<definitions/>"), 0o644))
	}
}

func TestResolveFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"eligibility.dmn",
		"cases/intake.cmmn",
		"cases/deep/review.CMMN",
		"notes/readme.md",
	)

	t.Run("directory is searched recursively", func(t *testing.T) {
		files, err := ResolveFiles([]string{root}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(root, "cases", "deep", "review.CMMN"),
			filepath.Join(root, "cases", "intake.cmmn"),
			filepath.Join(root, "eligibility.dmn"),
		}, files)
	})

	t.Run("double star glob", func(t *testing.T) {
		files, err := ResolveFiles([]string{filepath.Join(root, "cases", "**", "*")}, []string{"cmmn"})
		require.NoError(t, err)
		assert.Len(t, files, 2)
	})

	t.Run("single file", func(t *testing.T) {
		files, err := ResolveFiles([]string{filepath.Join(root, "eligibility.dmn")}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(root, "eligibility.dmn")}, files)
	})

	t.Run("overlapping patterns are deduplicated", func(t *testing.T) {
		files, err := ResolveFiles([]string{root, filepath.Join(root, "*.dmn")}, []string{".dmn"})
		require.NoError(t, err)
		assert.Len(t, files, 1)
	})

	t.Run("extension filter applies to explicit files", func(t *testing.T) {
		files, err := ResolveFiles([]string{filepath.Join(root, "notes", "readme.md")}, nil)
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := ResolveFiles([]string{filepath.Join(root, "absent")}, nil)
		assert.Error(t, err)
	})
}

func TestResolveDirs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a/x.dmn", "b/y.dmn", "c.dmn")

	dirs, err := ResolveDirs([]string{filepath.Join(root, "*")})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(root, "a"), filepath.Join(root, "b")}, dirs)

	_, err = ResolveDirs([]string{filepath.Join(root, "c.dmn")})
	assert.Error(t, err, "files are not directories")

	_, err = ResolveDirs([]string{filepath.Join(root, "z*")})
	assert.Error(t, err, "no match")
}

func TestMakeAbsolutePattern(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		pattern string
		want    string
	}{
		{"*.dmn", filepath.Join(wd, "*.dmn")},
		{"models/**/*.dmn", filepath.Join(wd, "models", "**", "*.dmn")},
		{"/srv/models/*.cmmn", "/srv/models/*.cmmn"},
	}
	for _, tc := range tests {
		got, err := makeAbsolutePattern(tc.pattern)
		require.NoError(t, err)
		if got != filepath.FromSlash(tc.want) {
			t.Errorf("makeAbsolutePattern(%q) = %q, want %q", tc.pattern, got, tc.want)
		}
	}
}
