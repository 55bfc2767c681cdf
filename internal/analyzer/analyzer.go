// Package analyzer scores every pair of embedded components, removes pairs
// that are similar for legitimate reasons, and limits how often a single
// component is reported.
package analyzer

import (
	"sort"

	"duplicalis/internal/config"
	"duplicalis/internal/models"
	"duplicalis/internal/utils"
)

// Options are the similarity settings of one run.
type Options struct {
	SimilarityThreshold     float64
	HighSimilarityThreshold float64
	// MaxSimilarityThreshold suppresses pairs scoring strictly above it.
	MaxSimilarityThreshold *float64
	// Limit caps the retained pairs per component; 0 means unlimited.
	Limit           int
	MinPathDistance int
	// CompareGlobs activates compare scope; targets are flagged on the
	// components beforehand.
	CompareGlobs    []string
	DisableAnalyses []string
}

// OptionsFromConfig extracts the similarity settings from a run config.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		SimilarityThreshold:     cfg.SimilarityThreshold,
		HighSimilarityThreshold: cfg.HighSimilarityThreshold,
		MaxSimilarityThreshold:  cfg.MaxSimilarityThreshold,
		Limit:                   cfg.Limit,
		MinPathDistance:         cfg.MinPathDistance,
		CompareGlobs:            cfg.CompareGlobs,
		DisableAnalyses:         cfg.DisableAnalyses,
	}
}

type candidate struct {
	a, b int
	sim  float64
}

// FindSimilarities compares every unordered pair of distinct components.
// A pair becomes a candidate when it scores at least SimilarityThreshold and
// no suppression rule removes it. Candidates are then limited per component
// and labeled. EvaluatedPairs counts every compared pair, before the
// threshold and suppression rules. The scorecard's coverage and similarity
// figures describe the candidate set, before per-component limiting.
func FindSimilarities(entries []models.EmbeddingEntry, opts Options) ([]models.SimilarityPair, models.Scorecard) {
	card := models.Scorecard{SuppressionReasons: map[string]int{}}
	var candidates []candidate

	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			a, b := entries[i].Component, entries[j].Component
			if a.ID == b.ID {
				continue
			}
			card.EvaluatedPairs++

			sim := utils.CosineSim(entries[i].Vector, entries[j].Vector)
			if sim < opts.SimilarityThreshold {
				continue
			}
			if reason := suppressionReason(a, b, sim, opts); reason != "" {
				card.SuppressedPairs++
				card.SuppressionReasons[reason]++
				continue
			}
			candidates = append(candidates, candidate{a: i, b: j, sim: sim})
		}
	}

	fillCoverage(&card, entries, candidates)

	retained := limitPerComponent(entries, candidates, opts.Limit)
	pairs := make([]models.SimilarityPair, 0, len(retained))
	for _, c := range retained {
		ea, eb := &entries[c.a], &entries[c.b]
		labels, hints := label(ea, eb, opts.DisableAnalyses)

		category := models.CategoryNearDuplicate
		if c.sim >= opts.HighSimilarityThreshold {
			category = models.CategoryAlmostIdentical
		}
		pairs = append(pairs, models.SimilarityPair{
			A:          ea.Component.ID,
			B:          eb.Component.ID,
			Similarity: c.sim,
			Category:   category,
			Labels:     labels,
			Hints:      hints,
		})
	}
	return pairs, card
}

// limitPerComponent keeps the best pairs first while neither endpoint has
// used up its budget. Ties keep comparison order.
func limitPerComponent(entries []models.EmbeddingEntry, candidates []candidate, limit int) []candidate {
	sorted := append([]candidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].sim > sorted[j].sim })
	if limit <= 0 {
		return sorted
	}

	used := make(map[string]int)
	var kept []candidate
	for _, c := range sorted {
		idA, idB := entries[c.a].Component.ID, entries[c.b].Component.ID
		if used[idA] >= limit || used[idB] >= limit {
			continue
		}
		used[idA]++
		used[idB]++
		kept = append(kept, c)
	}
	return kept
}

func fillCoverage(card *models.Scorecard, entries []models.EmbeddingEntry, candidates []candidate) {
	if len(candidates) == 0 {
		return
	}

	best := make(map[string]float64)
	var sum float64
	for _, c := range candidates {
		sum += c.sim
		card.MaxSimilarity = max(card.MaxSimilarity, c.sim)
		for _, idx := range []int{c.a, c.b} {
			id := entries[idx].Component.ID
			if cur, ok := best[id]; !ok || c.sim > cur {
				best[id] = c.sim
			}
		}
	}
	card.MeanSimilarity = sum / float64(len(candidates))
	card.CoveredComponents = len(best)

	first := true
	for _, sim := range best {
		if first {
			card.MinBestSimilarity, card.MaxBestSimilarity = sim, sim
			first = false
			continue
		}
		card.MinBestSimilarity = min(card.MinBestSimilarity, sim)
		card.MaxBestSimilarity = max(card.MaxBestSimilarity, sim)
	}
}
