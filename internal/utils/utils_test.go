package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, root, rel string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	return path
}

func TestGetAllSourceFiles(t *testing.T) {
	root := t.TempDir()
	a := touch(t, root, "src/A.tsx")
	b := touch(t, root, "src/nested/B.jsx")
	touch(t, root, "src/styles.css")
	touch(t, root, "node_modules/lib/C.tsx")
	touch(t, root, "dist/D.js")
	touch(t, root, "generated/E.ts")
	touch(t, root, "src/F.test.tsx")
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("# comment\ngenerated/\n*.test.tsx\n"), 0o644))

	files, err := GetAllSourceFiles(root, []string{"**/*.{ts,tsx,js,jsx}"}, []string{"**/dist/**"})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files)

	_, err = GetAllSourceFiles(root, []string{"[bad"}, nil)
	assert.Error(t, err)

	_, err = GetAllSourceFiles(filepath.Join(root, "missing"), []string{"**"}, nil)
	assert.Error(t, err)
}

func TestMatchesFile(t *testing.T) {
	root := "/repo"
	assert.True(t, MatchesFile([]string{"**/Changed*.tsx"}, root, "/repo/ui/Changed.tsx"))
	assert.True(t, MatchesFile([]string{"ui/*.tsx"}, root, "/repo/ui/Changed.tsx"))
	assert.False(t, MatchesFile([]string{"lib/**"}, root, "/repo/ui/Changed.tsx"))
}

func TestCosineSim(t *testing.T) {
	assert.Equal(t, 1.0, CosineSim([]float64{1, 0}, []float64{1, 0}))
	assert.Equal(t, 0.0, CosineSim([]float64{1, 0}, []float64{0, 1}))
	assert.Equal(t, 0.0, CosineSim(nil, []float64{1}))
	assert.Equal(t, 0.0, CosineSim([]float64{0, 0}, []float64{1, 1}))
	assert.Equal(t, 0.0, CosineSim([]float64{1, 0}, []float64{-1, 0}))
	// Truncated to the shorter vector.
	assert.Equal(t, 1.0, CosineSim([]float64{2}, []float64{1, 5}))

	a := []float64{0.3, 0.1, 0.7}
	b := []float64{0.2, 0.9, 0.4}
	assert.Equal(t, CosineSim(a, b), CosineSim(b, a))
}

func TestDirDistance(t *testing.T) {
	assert.Equal(t, 0, DirDistance("/repo/ui/ButtonA.tsx", "/repo/ui/ButtonB.tsx"))
	assert.Equal(t, 3, DirDistance("/repo/ui/button/ButtonA.tsx", "/repo/components/ButtonB.tsx"))
	assert.Equal(t, 1, DirDistance("A.tsx", "sub/B.tsx"))
}

func TestRelativePath(t *testing.T) {
	assert.Equal(t, "ui/A.tsx", RelativePath("/repo", "/repo/ui/A.tsx"))
	assert.Equal(t, "/other/A.tsx", RelativePath("/repo", "/other/A.tsx"))
	assert.Equal(t, "/repo/A.tsx", RelativePath("", "/repo/A.tsx"))
}

func TestIsIgnoredPath(t *testing.T) {
	patterns := []string{"build/", "*.log", "/tmp", "coverage"}
	assert.True(t, isIgnoredPath("build", patterns))
	assert.True(t, isIgnoredPath("build/x.js", patterns))
	assert.True(t, isIgnoredPath("pkg/debug.log", patterns))
	assert.True(t, isIgnoredPath("tmp", patterns))
	assert.False(t, isIgnoredPath("src/tmp", patterns))
	assert.True(t, isIgnoredPath("src/coverage/x.js", patterns))
	assert.False(t, isIgnoredPath("src/app.js", patterns))
}

func TestComputeProjectID(t *testing.T) {
	root := t.TempDir()
	id1, err := ComputeProjectID(root)
	require.NoError(t, err)
	id2, err := ComputeProjectID(root + string(filepath.Separator))
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 64)
}
