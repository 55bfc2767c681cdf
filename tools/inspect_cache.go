package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"duplicalis/internal/cache"
	"duplicalis/internal/config"
)

type modelStats struct {
	entries   int
	code      int
	style     int
	structure int
	holistic  int
	dims      map[int]int
}

func main() {
	path := filepath.Join(".", config.DefaultCacheFile)
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(os.Stderr, "✗ Cache not readable: %v\n", err)
		os.Exit(1)
	}

	state := cache.Load(path)
	fmt.Printf("Checking cache: %s (version %d)\n", path, state.Version)

	byModel := map[string]*modelStats{}
	for key, entry := range state.Entries {
		model := modelOf(key)
		s := byModel[model]
		if s == nil {
			s = &modelStats{dims: map[int]int{}}
			byModel[model] = s
		}
		s.entries++
		for _, vec := range [][]float64{entry.CodeVec, entry.StyleVec, entry.StructureVec, entry.HolisticVec} {
			if len(vec) > 0 {
				s.dims[len(vec)]++
			}
		}
		if len(entry.CodeVec) > 0 {
			s.code++
		}
		if len(entry.StyleVec) > 0 {
			s.style++
		}
		if len(entry.StructureVec) > 0 {
			s.structure++
		}
		if len(entry.HolisticVec) > 0 {
			s.holistic++
		}
	}

	models := make([]string, 0, len(byModel))
	for m := range byModel {
		models = append(models, m)
	}
	sort.Strings(models)

	for _, m := range models {
		s := byModel[m]
		fmt.Printf("\n  %s: %d entries\n", m, s.entries)
		fmt.Printf("    vectors: code %d | style %d | structure %d | holistic %d\n", s.code, s.style, s.structure, s.holistic)
		dims := make([]string, 0, len(s.dims))
		for d, n := range s.dims {
			dims = append(dims, fmt.Sprintf("%d×%d", n, d))
		}
		sort.Strings(dims)
		fmt.Printf("    dimensions: %s\n", strings.Join(dims, ", "))
	}

	fmt.Printf("\n✓ Total entries in cache: %d\n", len(state.Entries))
}

// modelOf strips the component id (everything from the last ':' before the
// '#') off a cache key.
func modelOf(key string) string {
	hash := strings.LastIndex(key, "#")
	if hash == -1 {
		return key
	}
	colon := strings.LastIndex(key[:hash], ":")
	if colon == -1 {
		return key
	}
	// Component ids are absolute paths and may contain ':' on Windows.
	if prev := strings.LastIndex(key[:colon], ":"); prev != -1 && colon-prev == 2 {
		colon = prev
	}
	return key[:colon]
}
