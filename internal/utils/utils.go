package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var excludedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".next":        true,
	".cache":       true,
}

// GetAllSourceFiles walks rootPath and returns the absolute, sorted paths of
// files matching any include glob and no exclude glob. Globs are matched
// against the slash-separated path relative to the root. The root
// .gitignore is honored as well.
func GetAllSourceFiles(rootPath string, include, exclude []string) ([]string, error) {
	root, err := NormalizeProjectRoot(rootPath)
	if err != nil {
		return nil, err
	}
	for _, pattern := range append(append([]string{}, include...), exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid glob pattern %q", pattern)
		}
	}

	var files []string
	ignorePatterns := loadGitIgnorePatterns(root)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, relErr := filepath.Rel(root, path)
		if relErr != nil {
			relPath = path
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if path == root {
				return nil
			}
			if excludedDirs[d.Name()] || isIgnoredPath(relPath, ignorePatterns) {
				return filepath.SkipDir
			}
			return nil
		}

		if isIgnoredPath(relPath, ignorePatterns) {
			return nil
		}
		if MatchAny(include, relPath) && !MatchAny(exclude, relPath) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// MatchAny reports whether any of the doublestar patterns matches path.
func MatchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

// MatchesFile matches patterns against both the absolute and the
// root-relative form of a file path.
func MatchesFile(patterns []string, root, path string) bool {
	abs := filepath.ToSlash(path)
	if MatchAny(patterns, abs) {
		return true
	}
	if rel, err := filepath.Rel(root, path); err == nil {
		return MatchAny(patterns, filepath.ToSlash(rel))
	}
	return false
}

// NormalizeProjectRoot returns the absolute, cleaned project root and fails
// if it is not a directory.
func NormalizeProjectRoot(rootPath string) (string, error) {
	if strings.TrimSpace(rootPath) == "" {
		rootPath = "."
	}
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return filepath.Clean(abs), nil
}

// ComputeProjectID derives a stable identifier from the project root.
func ComputeProjectID(rootPath string) (string, error) {
	root, err := NormalizeProjectRoot(rootPath)
	if err != nil {
		return "", err
	}
	return HashContent(filepath.ToSlash(root)), nil
}

func HashContent(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// CosineSim compares two vectors over the length of the shorter one. Empty
// or zero vectors score 0 and the result is clamped to [0,1].
func CosineSim(a, b []float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	var dotProduct, normA, normB float64
	for i := 0; i < n; i++ {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(0, math.Min(1, sim))
}

// DirDistance counts the directory segments that must be removed from and
// added to one file's directory to reach the other's.
func DirDistance(a, b string) int {
	sa := dirSegments(a)
	sb := dirSegments(b)
	common := 0
	for common < len(sa) && common < len(sb) && sa[common] == sb[common] {
		common++
	}
	return (len(sa) - common) + (len(sb) - common)
}

func dirSegments(path string) []string {
	dir := filepath.ToSlash(filepath.Dir(filepath.Clean(path)))
	var segments []string
	for _, s := range strings.Split(dir, "/") {
		if s != "" && s != "." {
			segments = append(segments, s)
		}
	}
	return segments
}

// RelativePath renders path relative to root when possible.
func RelativePath(root, path string) string {
	if root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

// loadGitIgnorePatterns reads the root-level .gitignore (if present) and
// returns a list of non-empty, non-comment patterns.
func loadGitIgnorePatterns(rootPath string) []string {
	gitIgnorePath := filepath.Join(rootPath, ".gitignore")
	data, err := os.ReadFile(gitIgnorePath)
	if err != nil {
		return nil
	}

	lines := strings.Split(string(data), "\n")
	var patterns []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}

// isIgnoredPath applies the subset of .gitignore semantics that matters for
// source discovery: directory patterns, globs and bare segment names.
func isIgnoredPath(relPath string, patterns []string) bool {
	relPath = strings.TrimSpace(strings.TrimPrefix(relPath, "./"))
	if relPath == "" {
		return false
	}

	for _, pattern := range patterns {
		p := filepath.ToSlash(strings.TrimSpace(pattern))
		if p == "" {
			continue
		}
		anchored := strings.HasPrefix(p, "/")
		p = strings.TrimPrefix(p, "/")

		if strings.HasSuffix(p, "/") {
			dir := strings.TrimSuffix(p, "/")
			if relPath == dir || strings.HasPrefix(relPath, dir+"/") {
				return true
			}
			if !anchored && !strings.Contains(dir, "/") && strings.Contains("/"+relPath+"/", "/"+dir+"/") {
				return true
			}
			continue
		}

		if ok, _ := doublestar.Match(p, relPath); ok {
			return true
		}
		if !anchored && !strings.Contains(p, "/") {
			if ok, _ := doublestar.Match("**/"+p, relPath); ok {
				return true
			}
			if strings.Contains("/"+relPath+"/", "/"+p+"/") {
				return true
			}
		}
	}

	return false
}
