// Package runner wires one duplicate scan end to end: discover files, parse
// components, filter them, embed them through the cache and score every
// pair.
package runner

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"duplicalis/internal/analyzer"
	"duplicalis/internal/cache"
	"duplicalis/internal/config"
	"duplicalis/internal/embeddings"
	"duplicalis/internal/filters"
	"duplicalis/internal/indexer"
	"duplicalis/internal/llm"
	"duplicalis/internal/models"
	"duplicalis/internal/parser"
	"duplicalis/internal/styles"
	"duplicalis/internal/utils"
)

// Options carries the collaborators of a run. Zero values pick the defaults
// derived from the config.
type Options struct {
	Backend embeddings.Backend
	// Progress receives stage messages; nil keeps the run quiet.
	Progress io.Writer
	// Rand drives the cache prune draw.
	Rand func() float64
}

// Result is everything a run produced. Entries keep the fused vectors for
// callers that export them.
type Result struct {
	Report  models.Report
	Entries []models.EmbeddingEntry
}

// Run executes the pipeline for cfg. cfg must already be resolved and
// validated.
func Run(ctx context.Context, cfg config.Config, opts Options) (*Result, error) {
	progress := NewProgress(opts.Progress)
	var stats models.Stats

	start := time.Now()
	progress.Stage("Scanning %s", cfg.Root)
	files, err := utils.GetAllSourceFiles(cfg.Root, cfg.Include, cfg.Exclude)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", cfg.Root, err)
	}
	stats.Files = len(files)
	stats.ScanMs = time.Since(start).Milliseconds()
	progress.Done("Found %d source files", len(files))

	start = time.Now()
	components, ignored, err := parseAll(files, cfg)
	if err != nil {
		return nil, err
	}
	stats.IgnoredFiles = ignored

	before := len(components)
	components = filters.Apply(components, filters.Patterns{
		Names:  cfg.IgnoreComponentNamePatterns,
		Usages: cfg.IgnoreComponentUsagePatterns,
	}, filters.NewPatternCache())
	MarkCompareTargets(components, cfg.CompareGlobs, cfg.Root)
	stats.ParseMs = time.Since(start).Milliseconds()
	progress.Done("Parsed %d components (%d filtered, %d files ignored)", len(components), before-len(components), ignored)

	backend := opts.Backend
	if backend == nil {
		if err := EnsureLocalModel(ctx, cfg, nil, progress); err != nil {
			return nil, err
		}
		if backend, err = embeddings.New(cfg); err != nil {
			return nil, err
		}
	}

	start = time.Now()
	progress.Stage("Embedding components")
	idx := indexer.NewIndexer(backend, styles.NewLoader(cfg.Root, cfg.StyleExtensions), indexer.Options{
		ModelKey:         cache.ModelKey(cfg.Model, cfg.ModelPath, cfg.Remote.Model),
		Weights:          cfg.Weight,
		Root:             cfg.Root,
		CachePath:        cfg.CachePath,
		CleanProbability: cfg.CleanProbability,
		Rand:             opts.Rand,
		Concurrency:      cfg.Concurrency,
		OnProgress:       progress.Embedding,
	})
	entries, cacheStats, err := idx.IndexComponents(ctx, components)
	if err != nil {
		return nil, err
	}
	stats.Cache = cacheStats
	stats.EmbedMs = time.Since(start).Milliseconds()
	progress.Done("Embedded %d components (cache hits %d, fetched %d)", len(entries), cacheStats.Hits, cacheStats.Fetched)

	start = time.Now()
	pairs, scorecard := analyzer.FindSimilarities(entries, analyzer.OptionsFromConfig(cfg))
	stats.Scorecard = scorecard
	stats.SimilarityMs = time.Since(start).Milliseconds()
	progress.Done("Compared %d pairs, %d reported", scorecard.EvaluatedPairs, len(pairs))

	if cfg.Explain.Enabled && len(pairs) > 0 {
		explain(ctx, cfg, pairs, components, progress)
	}

	return &Result{
		Report: models.Report{
			Components: components,
			Pairs:      pairs,
			Stats:      stats,
		},
		Entries: entries,
	}, nil
}

// EnsureLocalModel downloads missing local model files before the local
// backend is created. It does nothing for other backends or when
// auto-download is off.
func EnsureLocalModel(ctx context.Context, cfg config.Config, client *http.Client, progress *Progress) error {
	if cfg.Model != config.ModelLocal || !cfg.AutoDownloadModel {
		return nil
	}
	repo := cfg.ModelRepo
	if repo == "" {
		repo = config.DefaultModelRepo
	}
	fetcher := embeddings.NewFetcher(client)
	fetcher.OnProgress = progress.Download
	progress.Stage("Checking local model at %s", cfg.ModelPath)
	if err := fetcher.EnsureModel(ctx, cfg.ModelPath, repo); err != nil {
		return err
	}
	return nil
}

func parseAll(files []string, cfg config.Config) ([]models.Component, int, error) {
	p := parser.NewComponentParser(parser.Options{
		AllowIgnores:    cfg.AllowIgnores,
		StyleExtensions: cfg.StyleExtensions,
	})

	var components []models.Component
	ignored := 0
	for _, file := range files {
		res, err := p.ParseFile(file)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		if res.IgnoredFile {
			ignored++
			continue
		}
		components = append(components, res.Components...)
	}
	return components, ignored, nil
}

// MarkCompareTargets flags components whose file matches one of globs,
// either by absolute or by root-relative path.
func MarkCompareTargets(components []models.Component, globs []string, root string) {
	if len(globs) == 0 {
		return
	}
	for i := range components {
		components[i].IsCompareTarget = utils.MatchesFile(globs, root, components[i].FilePath)
	}
}

func explain(ctx context.Context, cfg config.Config, pairs []models.SimilarityPair, components []models.Component, progress *Progress) {
	client, err := llm.NewClient(cfg.Remote, cfg.Explain)
	if err != nil {
		progress.Warn("Skipping explanations: %v", err)
		return
	}
	byID := make(map[string]*models.Component, len(components))
	for i := range components {
		byID[components[i].ID] = &components[i]
	}
	progress.Stage("Explaining %d pairs", len(pairs))
	n := client.Annotate(ctx, pairs, byID)
	progress.Done("Explained %d pairs", n)
}
