package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"duplicalis/internal/cache"
	"duplicalis/internal/config"
	"duplicalis/internal/embeddings"
	"duplicalis/internal/models"
	"duplicalis/internal/representation"
	"duplicalis/internal/styles"
)

type countingBackend struct {
	inner embeddings.Backend
	calls atomic.Int64
	err   error
}

func (b *countingBackend) Embed(ctx context.Context, text string) ([]float64, error) {
	b.calls.Add(1)
	if b.err != nil {
		return nil, b.err
	}
	return b.inner.Embed(ctx, text)
}

func newBackend() *countingBackend {
	return &countingBackend{inner: embeddings.NewMock(8)}
}

func defaultWeights() config.Weights {
	return config.Default().Weight
}

func testComponents() []models.Component {
	return []models.Component{
		{
			ID:       "/repo/CardA.tsx#CardA",
			Name:     "CardA",
			FilePath: "/repo/CardA.tsx",
			Source:   "export const CardA = ({ title }) => <div>{title}</div>;",
			Props:    models.Props{Names: []string{"title"}},
			JSXTags:  []string{"div"},
			JSXPaths: []string{"div"},
		},
	}
}

func newTestIndexer(t *testing.T, b embeddings.Backend, opts Options) *Indexer {
	t.Helper()
	if opts.ModelKey == "" {
		opts.ModelKey = "mock"
	}
	if opts.Weights == (config.Weights{}) {
		opts.Weights = defaultWeights()
	}
	return NewIndexer(b, styles.NewLoader(t.TempDir(), nil), opts)
}

func TestIndexComponentsReusesCache(t *testing.T) {
	t.Parallel()

	cachePath := filepath.Join(t.TempDir(), "cache", "embeddings.json")
	b := newBackend()
	idx := newTestIndexer(t, b, Options{CachePath: cachePath})
	components := testComponents()

	_, stats, err := idx.IndexComponents(context.Background(), components)
	if err != nil {
		t.Fatalf("IndexComponents: %v", err)
	}
	// code, structure and holistic; no style signal.
	if got := b.calls.Load(); got != 3 {
		t.Fatalf("first run calls=%d, want 3", got)
	}
	if stats.Misses != 1 || stats.Fetched != 3 || stats.Entries != 1 {
		t.Fatalf("unexpected first run stats: %+v", stats)
	}

	b.calls.Store(0)
	entries, stats, err := idx.IndexComponents(context.Background(), components)
	if err != nil {
		t.Fatalf("IndexComponents (second): %v", err)
	}
	if got := b.calls.Load(); got != 0 {
		t.Fatalf("second run calls=%d, want 0", got)
	}
	if stats.Hits != 1 || stats.Fetched != 0 {
		t.Fatalf("unexpected second run stats: %+v", stats)
	}
	if len(entries) != 1 || len(entries[0].Vector) != 3*8 {
		t.Fatalf("unexpected fused vector length %d", len(entries[0].Vector))
	}
}

func TestEmbedComponentsSkipsZeroWeights(t *testing.T) {
	t.Parallel()

	b := newBackend()
	w := defaultWeights()
	w.Code, w.Style = 1, 0
	idx := newTestIndexer(t, b, Options{Weights: w})

	entries, _, err := idx.EmbedComponents(context.Background(), testComponents(), cache.NewState())
	if err != nil {
		t.Fatalf("EmbedComponents: %v", err)
	}
	if got := b.calls.Load(); got != 3 {
		t.Fatalf("calls=%d, want 3", got)
	}

	w = config.Weights{Code: 1}
	b2 := newBackend()
	idx = newTestIndexer(t, b2, Options{Weights: w})
	entries, _, err = idx.EmbedComponents(context.Background(), testComponents(), cache.NewState())
	if err != nil {
		t.Fatalf("EmbedComponents: %v", err)
	}
	if got := b2.calls.Load(); got != 1 {
		t.Fatalf("code-only calls=%d, want 1", got)
	}
	if len(entries[0].Vector) != 8 {
		t.Fatalf("code-only fused length=%d, want 8", len(entries[0].Vector))
	}
}

func TestEmbedComponentsUpgradesPartialEntry(t *testing.T) {
	t.Parallel()

	components := testComponents()
	rep := representation.Build(&components[0], "")
	state := cache.NewState()
	key := cache.Key("mock", components[0].ID)
	codeVec := []float64{1, 0, 0, 0, 0, 0, 0, 0}
	state.Entries[key] = &cache.Entry{
		Fingerprint: cache.Fingerprint(rep, styles.KindNone),
		CodeVec:     codeVec,
	}

	b := newBackend()
	idx := newTestIndexer(t, b, Options{})
	entries, stats, err := idx.EmbedComponents(context.Background(), components, state)
	if err != nil {
		t.Fatalf("EmbedComponents: %v", err)
	}
	if got := b.calls.Load(); got != 2 {
		t.Fatalf("calls=%d, want 2", got)
	}
	if stats.Partial != 1 {
		t.Fatalf("Partial=%d, want 1", stats.Partial)
	}
	if entries[0].CodeVec[0] != 1 {
		t.Fatalf("cached code vector was not carried forward")
	}
	stored := state.Entries[key]
	if len(stored.CodeVec) == 0 || len(stored.StructureVec) == 0 || len(stored.HolisticVec) == 0 {
		t.Fatalf("upgraded entry is missing vectors: %+v", stored)
	}
}

func TestEmbedComponentsRefetchesStaleEntry(t *testing.T) {
	t.Parallel()

	components := testComponents()
	state := cache.NewState()
	state.Entries[cache.Key("mock", components[0].ID)] = &cache.Entry{
		Fingerprint: "stale",
		CodeVec:     []float64{1},
	}

	b := newBackend()
	idx := newTestIndexer(t, b, Options{})
	if _, _, err := idx.EmbedComponents(context.Background(), components, state); err != nil {
		t.Fatalf("EmbedComponents: %v", err)
	}
	if got := b.calls.Load(); got != 3 {
		t.Fatalf("calls=%d, want 3", got)
	}

	// Another model never sees these vectors.
	b2 := newBackend()
	idx = newTestIndexer(t, b2, Options{ModelKey: "remote:other"})
	if _, _, err := idx.EmbedComponents(context.Background(), components, state); err != nil {
		t.Fatalf("EmbedComponents: %v", err)
	}
	if got := b2.calls.Load(); got != 3 {
		t.Fatalf("other model calls=%d, want 3", got)
	}
	if len(state.Entries) != 2 {
		t.Fatalf("entries=%d, want 2", len(state.Entries))
	}
}

func TestEmbedComponentsStyleSignal(t *testing.T) {
	t.Parallel()

	components := testComponents()
	components[0].Source = "const Box = styled.div`color: red;`"

	b := newBackend()
	idx := newTestIndexer(t, b, Options{})
	entries, _, err := idx.EmbedComponents(context.Background(), components, cache.NewState())
	if err != nil {
		t.Fatalf("EmbedComponents: %v", err)
	}
	if got := b.calls.Load(); got != 4 {
		t.Fatalf("calls=%d, want 4", got)
	}
	if !entries[0].HasStyles || len(entries[0].Vector) != 4*8 {
		t.Fatalf("expected style block in fused vector, got len %d", len(entries[0].Vector))
	}
}

func TestEmbedComponentsZeroStyleVector(t *testing.T) {
	t.Parallel()

	idx := newTestIndexer(t, newBackend(), Options{})
	entries, _, err := idx.EmbedComponents(context.Background(), testComponents(), cache.NewState())
	if err != nil {
		t.Fatalf("EmbedComponents: %v", err)
	}
	e := entries[0]
	if e.HasStyles {
		t.Fatalf("HasStyles=true, want false")
	}
	if len(e.StyleVec) != len(e.CodeVec) {
		t.Fatalf("style vector dim=%d, want %d", len(e.StyleVec), len(e.CodeVec))
	}
	for _, x := range e.StyleVec {
		if x != 0 {
			t.Fatalf("style vector is not zero: %v", e.StyleVec)
		}
	}
}

func TestIndexComponentsBackendFailure(t *testing.T) {
	t.Parallel()

	cachePath := filepath.Join(t.TempDir(), "embeddings.json")
	b := newBackend()
	b.err = embeddings.ErrTimeout
	idx := newTestIndexer(t, b, Options{CachePath: cachePath})

	_, _, err := idx.IndexComponents(context.Background(), testComponents())
	if !errors.Is(err, embeddings.ErrTimeout) {
		t.Fatalf("err=%v, want ErrTimeout", err)
	}
	if _, statErr := os.Stat(cachePath); !os.IsNotExist(statErr) {
		t.Fatalf("cache must not be written after a failure")
	}
}

func TestIndexComponentsPrunes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cachePath := filepath.Join(dir, "embeddings.json")
	state := cache.NewState()
	state.Entries["mock:"+filepath.Join(dir, "Gone.tsx")+"#Gone"] = &cache.Entry{Fingerprint: "x"}
	if err := cache.Save(cachePath, state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	idx := newTestIndexer(t, newBackend(), Options{
		CachePath:        cachePath,
		Root:             dir,
		CleanProbability: 1,
		Rand:             func() float64 { return 0 },
	})
	_, stats, err := idx.IndexComponents(context.Background(), nil)
	if err != nil {
		t.Fatalf("IndexComponents: %v", err)
	}
	if stats.Pruned != 1 || stats.Entries != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestFuse(t *testing.T) {
	t.Parallel()

	e := models.EmbeddingEntry{
		CodeVec:      []float64{1, 2},
		StyleVec:     []float64{0, 0},
		StructureVec: []float64{3},
		HolisticVec:  nil,
	}

	got := Fuse(e, config.Weights{Code: 0.5, Style: 1, Structure: 2, Holistic: 1})
	want := []float64{0.5, 1, 6}
	if len(got) != len(want) {
		t.Fatalf("Fuse=%v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Fuse=%v, want %v", got, want)
		}
	}

	e.HasStyles = true
	e.StyleVec = []float64{1, 1}
	if got := Fuse(e, config.Weights{Style: 2}); len(got) != 2 || got[0] != 2 {
		t.Fatalf("style-only Fuse=%v", got)
	}

	if got := Fuse(e, config.Weights{}); got == nil || len(got) != 0 {
		t.Fatalf("zero weights Fuse=%v, want empty", got)
	}
}

func TestFixedVectorKeepsLayout(t *testing.T) {
	t.Parallel()

	w := config.Weights{Code: 1, Style: 1, Structure: 1}
	styled := models.EmbeddingEntry{
		CodeVec:      []float64{1, 0},
		StyleVec:     []float64{0, 1},
		StructureVec: []float64{1, 1},
		HasStyles:    true,
	}
	plain := models.EmbeddingEntry{
		CodeVec:      []float64{1, 0},
		StyleVec:     []float64{0, 0},
		StructureVec: nil,
	}

	a := FixedVector(styled, w)
	b := FixedVector(plain, w)
	if len(a) != 6 || len(b) != 6 {
		t.Fatalf("lengths %d and %d, want 6", len(a), len(b))
	}
	want := []float64{1, 0, 0, 0, 0, 0}
	for i := range want {
		if b[i] != want[i] {
			t.Fatalf("FixedVector=%v, want %v", b, want)
		}
	}
	if len(Fuse(plain, w)) == len(a) {
		t.Fatalf("Fuse drops the style block of an unstyled entry")
	}
	if got := FixedVector(models.EmbeddingEntry{}, w); len(got) != 0 {
		t.Fatalf("empty entry FixedVector=%v", got)
	}
}

func TestEmbedComponentsClassUsageIsStyleSignal(t *testing.T) {
	t.Parallel()

	components := testComponents()
	components[0].ClassNames = []string{"card", "card-body"}

	b := newBackend()
	idx := newTestIndexer(t, b, Options{})
	entries, _, err := idx.EmbedComponents(context.Background(), components, cache.NewState())
	if err != nil {
		t.Fatalf("EmbedComponents: %v", err)
	}
	if got := b.calls.Load(); got != 4 {
		t.Fatalf("calls=%d, want 4", got)
	}
	if !entries[0].HasStyles {
		t.Fatalf("class usage without a stylesheet must count as style signal")
	}
}
