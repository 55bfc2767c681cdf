// Package embeddings turns representation text into vectors.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"math"

	"duplicalis/internal/config"
)

var (
	// ErrBackend wraps every failure reported by an embedding backend.
	ErrBackend = errors.New("embedding backend failed")
	// ErrTimeout is returned when a request exceeds its deadline.
	ErrTimeout = errors.New("embedding request timed out")
	// ErrUnsupportedModel is returned by New for unknown model kinds.
	ErrUnsupportedModel = errors.New("unsupported embedding model")
)

// Backend computes one embedding per call. Implementations must be safe for
// concurrent use and return vectors of a consistent dimension.
type Backend interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// New creates the backend selected by cfg.Model.
func New(cfg config.Config) (Backend, error) {
	switch cfg.Model {
	case config.ModelMock:
		return NewMock(DefaultMockDimension), nil
	case config.ModelRemote:
		return NewRemote(cfg.Remote)
	case config.ModelLocal:
		return NewLocal(cfg.LocalCommand, cfg.ModelPath)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, cfg.Model)
	}
}

// Normalize scales v to unit length. A zero vector is returned unchanged.
func Normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		norm = 1
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
