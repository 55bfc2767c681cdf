package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"duplicalis/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}

func TestMockIsDeterministicAndNormalized(t *testing.T) {
	m := NewMock(0)
	ctx := context.Background()

	a, err := m.Embed(ctx, "PROPS label spreads:0 JSX button")
	require.NoError(t, err)
	b, err := m.Embed(ctx, "PROPS label spreads:0 JSX button")
	require.NoError(t, err)

	assert.Len(t, a, DefaultMockDimension)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, norm(a), 1e-9)
}

func TestMockSlots(t *testing.T) {
	// "a0" hashes to 97*31+48 = 3055, and 3055 % 64 = 47.
	vec, err := NewMock(64).Embed(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, 1.0, vec[47])

	empty, err := NewMock(8).Embed(context.Background(), "  ,, ")
	require.NoError(t, err)
	assert.Equal(t, make([]float64, 8), empty)
}

func TestSimpleHashWraps(t *testing.T) {
	assert.Equal(t, int64(3055), simpleHash("a0"))
	long := simpleHash("the quick brown fox jumps over the lazy dog")
	assert.GreaterOrEqual(t, long, int64(0))
	assert.LessOrEqual(t, long, int64(math.MaxInt32)+1)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, []float64{0.6, 0.8}, Normalize([]float64{3, 4}))
	assert.Equal(t, []float64{0, 0}, Normalize([]float64{0, 0}))
	assert.Empty(t, Normalize(nil))
}

func embeddingServer(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "test-model",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": []float64{3, 4}},
			},
		})
	}))
}

func TestRemoteEmbed(t *testing.T) {
	srv := embeddingServer(t, 0)
	defer srv.Close()

	for _, url := range []string{srv.URL + "/v1", srv.URL + "/v1/embeddings"} {
		r, err := NewRemote(config.RemoteConfig{URL: url, APIKey: "test-key", Model: "test-model", RequestsPerSecond: 100})
		require.NoError(t, err)

		vec, err := r.Embed(context.Background(), "hello")
		require.NoError(t, err)
		require.Len(t, vec, 2)
		assert.InDelta(t, 0.6, vec[0], 1e-6)
		assert.InDelta(t, 0.8, vec[1], 1e-6)
	}
}

func TestRemoteTimeout(t *testing.T) {
	srv := embeddingServer(t, 2*time.Second)
	defer srv.Close()

	r, err := NewRemote(config.RemoteConfig{URL: srv.URL + "/v1", APIKey: "test-key", TimeoutMs: 50})
	require.NoError(t, err)

	_, err = r.Embed(context.Background(), "slow")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
}

func TestRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	r, err := NewRemote(config.RemoteConfig{URL: srv.URL, APIKey: "k"})
	require.NoError(t, err)

	_, err = r.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBackend))
}

func TestNewRemoteRequiresCredentials(t *testing.T) {
	_, err := NewRemote(config.RemoteConfig{URL: "http://localhost"})
	assert.True(t, errors.Is(err, ErrBackend))
	_, err = NewRemote(config.RemoteConfig{APIKey: "k"})
	assert.True(t, errors.Is(err, ErrBackend))
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "embed.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestLocalEmbed(t *testing.T) {
	model := t.TempDir()
	script := writeScript(t, "cat > /dev/null\necho '[3, 4]'\n")

	l, err := NewLocal(script, model)
	require.NoError(t, err)

	vec, err := l.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.6, 0.8}, vec)
}

func TestLocalErrors(t *testing.T) {
	model := t.TempDir()

	_, err := NewLocal("embed", filepath.Join(model, "missing"))
	assert.True(t, errors.Is(err, ErrBackend))
	_, err = NewLocal("", model)
	assert.True(t, errors.Is(err, ErrBackend))

	l, err := NewLocal(writeScript(t, "echo nope\n"), model)
	require.NoError(t, err)
	_, err = l.Embed(context.Background(), "text")
	assert.True(t, errors.Is(err, ErrBackend))

	l, err = NewLocal(writeScript(t, "exit 3\n"), model)
	require.NoError(t, err)
	_, err = l.Embed(context.Background(), "text")
	assert.True(t, errors.Is(err, ErrBackend))
}

func TestNew(t *testing.T) {
	cfg := config.Default()
	cfg.Model = config.ModelMock
	b, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &Mock{}, b)

	cfg.Model = "gpu"
	_, err = New(cfg)
	assert.True(t, errors.Is(err, ErrUnsupportedModel))
}
