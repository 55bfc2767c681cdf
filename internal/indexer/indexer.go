// Package indexer embeds components through the cache and a backend and
// fuses the per-aspect vectors into one vector per component.
package indexer

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"

	"duplicalis/internal/cache"
	"duplicalis/internal/config"
	"duplicalis/internal/embeddings"
	"duplicalis/internal/models"
	"duplicalis/internal/representation"
	"duplicalis/internal/styles"

	"golang.org/x/sync/errgroup"
)

const NumWorkers = 4

// Aspects in fusion order.
const (
	AspectCode      = "code"
	AspectStyle     = "style"
	AspectStructure = "structure"
	AspectHolistic  = "holistic"
)

var aspectOrder = []string{AspectCode, AspectStyle, AspectStructure, AspectHolistic}

// Options configures one embedding pass.
type Options struct {
	ModelKey         string
	Weights          config.Weights
	Root             string
	CachePath        string
	CleanProbability float64
	// Rand drives the prune draw; nil uses math/rand.
	Rand        func() float64
	Concurrency int
	// OnProgress, when set, is called after every backend call.
	OnProgress func(done, total int)
}

type Indexer struct {
	backend embeddings.Backend
	styles  *styles.Loader
	opts    Options
}

func NewIndexer(backend embeddings.Backend, loader *styles.Loader, opts Options) *Indexer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = NumWorkers
	}
	if opts.Rand == nil {
		opts.Rand = rand.Float64
	}
	return &Indexer{backend: backend, styles: loader, opts: opts}
}

// IndexComponents loads the cache, possibly prunes it, embeds every
// component and saves the cache. The cache is only written when every
// backend call succeeded.
func (idx *Indexer) IndexComponents(ctx context.Context, components []models.Component) ([]models.EmbeddingEntry, models.CacheStats, error) {
	state := cache.Load(idx.opts.CachePath)
	pruned := cache.Prune(state, idx.opts.Root, idx.opts.CleanProbability, idx.opts.Rand)

	entries, stats, err := idx.EmbedComponents(ctx, components, state)
	if err != nil {
		return nil, stats, err
	}
	stats.Pruned = pruned

	if idx.opts.CachePath != "" {
		if err := cache.Save(idx.opts.CachePath, state); err != nil {
			return nil, stats, fmt.Errorf("failed to save embedding cache: %w", err)
		}
	}
	return entries, stats, nil
}

type plan struct {
	component *models.Component
	rep       models.Representation
	hasStyles bool
	key       string
	fp        string
	vectors   map[string][]float64
}

type job struct {
	plan   int
	id     string
	aspect string
	text   string
}

// EmbedComponents embeds components against an already loaded cache state,
// updating it in place. Vectors are fetched only for aspects with a nonzero
// weight whose cached vector is missing or stale.
func (idx *Indexer) EmbedComponents(ctx context.Context, components []models.Component, state *cache.State) ([]models.EmbeddingEntry, models.CacheStats, error) {
	var stats models.CacheStats
	plans := make([]*plan, len(components))
	var jobs []job

	for i := range components {
		c := &components[i]
		bundle := idx.styles.Load(c)
		rep := representation.Build(c, styles.SignalText(bundle))

		p := &plan{
			component: c,
			rep:       rep,
			hasStyles: rep.StyleRep != "",
			key:       cache.Key(idx.opts.ModelKey, c.ID),
			fp:        cache.Fingerprint(rep, styles.Kind(bundle)),
			vectors:   make(map[string][]float64, len(aspectOrder)),
		}
		plans[i] = p

		carried := 0
		if entry := state.Entries[p.key]; entry != nil && entry.Fingerprint == p.fp {
			for aspect, vec := range entryVectors(entry) {
				if len(vec) > 0 {
					p.vectors[aspect] = vec
					carried++
				}
			}
		}

		needed := 0
		for _, aspect := range aspectOrder {
			text := aspectText(rep, aspect)
			if weight(idx.opts.Weights, aspect) == 0 || text == "" || len(p.vectors[aspect]) > 0 {
				continue
			}
			jobs = append(jobs, job{plan: i, id: c.ID, aspect: aspect, text: text})
			needed++
		}

		switch {
		case needed == 0:
			stats.Hits++
		case carried > 0:
			stats.Partial++
		default:
			stats.Misses++
		}
	}

	fetched, err := idx.runJobs(ctx, jobs)
	if err != nil {
		return nil, stats, err
	}
	stats.Fetched = len(jobs)

	for j, jb := range jobs {
		plans[jb.plan].vectors[jb.aspect] = fetched[j]
	}

	entries := make([]models.EmbeddingEntry, len(plans))
	for i, p := range plans {
		state.Entries[p.key] = &cache.Entry{
			Fingerprint:  p.fp,
			CodeVec:      p.vectors[AspectCode],
			StyleVec:     p.vectors[AspectStyle],
			StructureVec: p.vectors[AspectStructure],
			HolisticVec:  p.vectors[AspectHolistic],
		}
		entries[i] = idx.buildEntry(p)
	}
	stats.Entries = len(state.Entries)
	return entries, stats, nil
}

func (idx *Indexer) runJobs(ctx context.Context, jobs []job) ([][]float64, error) {
	results := make([][]float64, len(jobs))
	if len(jobs) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.opts.Concurrency)
	var done atomic.Int64

	for i, jb := range jobs {
		g.Go(func() error {
			vec, err := idx.backend.Embed(gctx, jb.text)
			if err != nil {
				return fmt.Errorf("failed to embed %s representation of %s: %w", jb.aspect, jb.id, err)
			}
			results[i] = vec
			if idx.opts.OnProgress != nil {
				idx.opts.OnProgress(int(done.Add(1)), len(jobs))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (idx *Indexer) buildEntry(p *plan) models.EmbeddingEntry {
	e := models.EmbeddingEntry{
		Component:    p.component,
		CodeVec:      p.vectors[AspectCode],
		StyleVec:     p.vectors[AspectStyle],
		StructureVec: p.vectors[AspectStructure],
		HolisticVec:  p.vectors[AspectHolistic],
		HasStyles:    p.hasStyles,
	}
	if !p.hasStyles {
		e.StyleVec = make([]float64, dimensionOf(e.CodeVec, e.StructureVec, e.HolisticVec))
	}
	e.Vector = Fuse(e, idx.opts.Weights)
	return e
}

// Fuse concatenates weight*vector over every aspect with a nonzero weight and
// a non-empty vector. A component without style signal contributes no style
// block. All weights zero yields an empty vector.
func Fuse(e models.EmbeddingEntry, w config.Weights) []float64 {
	var fused []float64
	for _, aspect := range aspectOrder {
		wt := weight(w, aspect)
		if wt == 0 {
			continue
		}
		if aspect == AspectStyle && !e.HasStyles {
			continue
		}
		for _, x := range entryVector(e, aspect) {
			fused = append(fused, wt*x)
		}
	}
	if fused == nil {
		fused = []float64{}
	}
	return fused
}

// FixedVector is Fuse with a constant layout: every aspect with a nonzero
// weight contributes a block of the backend dimension, zero-filled when the
// component has no vector or no style signal for it. All entries of one run
// therefore share a length, which a vector store needs.
func FixedVector(e models.EmbeddingEntry, w config.Weights) []float64 {
	dim := dimensionOf(e.CodeVec, e.StructureVec, e.HolisticVec, e.StyleVec)
	if dim == 0 {
		return []float64{}
	}
	var out []float64
	for _, aspect := range aspectOrder {
		wt := weight(w, aspect)
		if wt == 0 {
			continue
		}
		vec := entryVector(e, aspect)
		if (aspect == AspectStyle && !e.HasStyles) || len(vec) != dim {
			out = append(out, make([]float64, dim)...)
			continue
		}
		for _, x := range vec {
			out = append(out, wt*x)
		}
	}
	if out == nil {
		out = []float64{}
	}
	return out
}

func weight(w config.Weights, aspect string) float64 {
	switch aspect {
	case AspectCode:
		return w.Code
	case AspectStyle:
		return w.Style
	case AspectStructure:
		return w.Structure
	case AspectHolistic:
		return w.Holistic
	}
	return 0
}

func aspectText(rep models.Representation, aspect string) string {
	switch aspect {
	case AspectCode:
		return rep.CodeRep
	case AspectStyle:
		return rep.StyleRep
	case AspectStructure:
		return rep.StructureRep
	case AspectHolistic:
		return rep.HolisticRep
	}
	return ""
}

func entryVectors(e *cache.Entry) map[string][]float64 {
	return map[string][]float64{
		AspectCode:      e.CodeVec,
		AspectStyle:     e.StyleVec,
		AspectStructure: e.StructureVec,
		AspectHolistic:  e.HolisticVec,
	}
}

func entryVector(e models.EmbeddingEntry, aspect string) []float64 {
	switch aspect {
	case AspectCode:
		return e.CodeVec
	case AspectStyle:
		return e.StyleVec
	case AspectStructure:
		return e.StructureVec
	case AspectHolistic:
		return e.HolisticVec
	}
	return nil
}

func dimensionOf(vecs ...[]float64) int {
	for _, v := range vecs {
		if len(v) > 0 {
			return len(v)
		}
	}
	return 0
}
