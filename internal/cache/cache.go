// Package cache persists per-aspect embedding vectors keyed by model and
// component, validated by a content fingerprint.
package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"duplicalis/internal/models"
)

// Version is bumped whenever the on-disk layout changes. Files written with
// any other version are discarded on load.
const Version = 1

// Entry holds whichever aspect vectors have been computed for a component.
// The vectors are only trusted while Fingerprint matches the current one.
type Entry struct {
	Fingerprint  string    `json:"fingerprint"`
	CodeVec      []float64 `json:"codeVec,omitempty"`
	StyleVec     []float64 `json:"styleVec,omitempty"`
	StructureVec []float64 `json:"structureVec,omitempty"`
	HolisticVec  []float64 `json:"holisticVec,omitempty"`
}

// State is the persisted cache file.
type State struct {
	Version int               `json:"version"`
	Entries map[string]*Entry `json:"entries"`
}

// NewState returns an empty cache at the current version.
func NewState() *State {
	return &State{Version: Version, Entries: make(map[string]*Entry)}
}

// Fingerprint digests every representation together with the style kind.
// Beyond the code and style texts it also covers the structure and holistic
// texts, so a change to either invalidates the entry. It is always 40 hex
// characters, even for empty input.
func Fingerprint(rep models.Representation, styleKind string) string {
	h := sha1.New()
	for _, part := range []string{rep.CodeRep, rep.StyleRep, rep.StructureRep, rep.HolisticRep, styleKind} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ModelKey namespaces cache entries by backend and model so that switching
// either never reuses vectors from another embedding space.
func ModelKey(model, modelPath, remoteModel string) string {
	switch model {
	case "mock":
		return "mock"
	case "local":
		return "local:" + modelPath
	case "remote":
		return "remote:" + remoteModel
	default:
		return model
	}
}

// Key builds the entry key for a component under a model key.
func Key(modelKey, componentID string) string {
	return modelKey + ":" + componentID
}

// Load reads the cache file. Any problem (missing file, bad JSON, another
// version, no entries) yields an empty cache; Load never fails.
func Load(path string) *State {
	if path == "" {
		return NewState()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return NewState()
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return NewState()
	}
	if state.Version != Version || state.Entries == nil {
		return NewState()
	}
	for key, entry := range state.Entries {
		if entry == nil {
			delete(state.Entries, key)
		}
	}
	return &state
}

// Save writes the cache next to its final location and renames it into
// place so an interrupted write leaves the previous file intact.
func Save(path string, state *State) error {
	if state == nil {
		state = NewState()
	}
	if state.Entries == nil {
		state.Entries = make(map[string]*Entry)
	}
	state.Version = Version

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace cache: %w", err)
	}
	return nil
}

// Clear deletes the cache file. A missing file is not an error.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Prune removes entries whose source file no longer exists. It only runs
// when rnd() < probability, and returns the number of deleted entries.
func Prune(state *State, root string, probability float64, rnd func() float64) int {
	if state == nil || probability <= 0 || rnd == nil || rnd() >= probability {
		return 0
	}

	removed := 0
	for key := range state.Entries {
		files := candidateFiles(key, root)
		if len(files) == 0 {
			continue
		}
		if !anyExists(files) {
			delete(state.Entries, key)
			removed++
		}
	}
	return removed
}

// candidateFiles lists the source files a key could refer to. Model keys
// may themselves contain ':' (a local model path, a remote model tag), so
// every split point is considered and the entry survives if any of them
// names an existing file. Keys without a recoverable component id yield
// nothing and are never deleted.
func candidateFiles(key, root string) []string {
	var files []string
	for i := 0; i < len(key); i++ {
		if key[i] != ':' {
			continue
		}
		id := key[i+1:]
		hash := strings.LastIndex(id, "#")
		if hash <= 0 {
			continue
		}
		file := id[:hash]
		if !filepath.IsAbs(file) {
			file = filepath.Join(root, file)
		}
		files = append(files, file)
	}
	return files
}

func anyExists(files []string) bool {
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			return true
		}
	}
	return false
}
