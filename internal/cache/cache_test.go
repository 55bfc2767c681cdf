package cache

import (
	"os"
	"path/filepath"
	"testing"

	"duplicalis/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	rep := models.Representation{CodeRep: "code", StyleRep: "style", StructureRep: "vdom", HolisticRep: "all"}

	fp := Fingerprint(rep, "css-in-js")
	assert.Len(t, fp, 40)
	assert.Equal(t, fp, Fingerprint(rep, "css-in-js"))
	assert.Len(t, Fingerprint(models.Representation{}, ""), 40)

	assert.NotEqual(t, fp, Fingerprint(rep, "stylesheet"))
	changed := rep
	changed.StructureRep = "other"
	assert.NotEqual(t, fp, Fingerprint(changed, "css-in-js"))
	// Field boundaries matter.
	assert.NotEqual(t,
		Fingerprint(models.Representation{CodeRep: "ab"}, ""),
		Fingerprint(models.Representation{CodeRep: "a", StyleRep: "b"}, ""))
}

func TestModelKey(t *testing.T) {
	assert.Equal(t, "mock", ModelKey("mock", "ignored", "ignored"))
	assert.Equal(t, "local:x", ModelKey("local", "x", ""))
	assert.Equal(t, "remote:m", ModelKey("remote", "", "m"))
	assert.Equal(t, "remote:", ModelKey("remote", "", ""))
	assert.Equal(t, "mock:/a/B.tsx#B", Key("mock", "/a/B.tsx#B"))
}

func TestLoadMissingOrInvalid(t *testing.T) {
	dir := t.TempDir()

	assert.Empty(t, Load("").Entries)
	assert.Empty(t, Load(filepath.Join(dir, "missing.json")).Entries)

	cases := map[string]string{
		"garbage.json":      "not json",
		"version.json":      `{"version":0,"entries":{"stale":{"fingerprint":"x"}}}`,
		"no-entries.json":   `{"version":1}`,
		"null-entries.json": `{"version":1,"entries":null}`,
	}
	for name, content := range cases {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		state := Load(path)
		require.NotNil(t, state.Entries, name)
		assert.Empty(t, state.Entries, name)
		assert.Equal(t, Version, state.Version, name)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "cache.json")
	state := NewState()
	state.Entries["mock:/a/A.tsx#A"] = &Entry{
		Fingerprint: "abc",
		CodeVec:     []float64{0.5, 0.25},
		HolisticVec: []float64{1},
	}

	require.NoError(t, Save(path, state))

	loaded := Load(path)
	assert.Equal(t, state, loaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestSaveOverwritesPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	first := NewState()
	first.Entries["a"] = &Entry{Fingerprint: "1"}
	require.NoError(t, Save(path, first))

	second := NewState()
	second.Entries["b"] = &Entry{Fingerprint: "2"}
	require.NoError(t, Save(path, second))

	loaded := Load(path)
	assert.Len(t, loaded.Entries, 1)
	assert.Equal(t, "2", loaded.Entries["b"].Fingerprint)
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, Clear(path))
	require.NoError(t, Save(path, NewState()))
	require.NoError(t, Clear(path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestPrune(t *testing.T) {
	root := t.TempDir()
	live := filepath.Join(root, "Live.tsx")
	require.NoError(t, os.WriteFile(live, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Rel.tsx"), []byte("x"), 0o644))
	gone := filepath.Join(root, "Gone.tsx")

	newState := func() *State {
		s := NewState()
		for _, key := range []string{
			"mock:" + live + "#Live",
			"mock:" + gone + "#Gone",
			"local:models/m:" + live + "#Live",
			"remote:tag:v1:" + gone + "#Gone",
			"mock:Rel.tsx#Rel",
			"mock:Missing.tsx#Missing",
			"nocolon",
			"mock:noid",
			"",
		} {
			s.Entries[key] = &Entry{Fingerprint: "f"}
		}
		return s
	}

	never := newState()
	assert.Equal(t, 0, Prune(never, root, 0.5, func() float64 { return 0.9 }))
	assert.Len(t, never.Entries, 9)

	disabled := newState()
	assert.Equal(t, 0, Prune(disabled, root, 0, func() float64 { return 0 }))
	assert.Len(t, disabled.Entries, 9)

	always := newState()
	assert.Equal(t, 3, Prune(always, root, 1, func() float64 { return 0 }))
	assert.Contains(t, always.Entries, "mock:"+live+"#Live")
	assert.Contains(t, always.Entries, "local:models/m:"+live+"#Live")
	assert.Contains(t, always.Entries, "mock:Rel.tsx#Rel")
	assert.Contains(t, always.Entries, "nocolon")
	assert.Contains(t, always.Entries, "mock:noid")
	assert.Contains(t, always.Entries, "")
	assert.NotContains(t, always.Entries, "mock:"+gone+"#Gone")
	assert.NotContains(t, always.Entries, "remote:tag:v1:"+gone+"#Gone")
	assert.NotContains(t, always.Entries, "mock:Missing.tsx#Missing")
}
