package embeddings

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"
)

// DefaultMockDimension is the vector size of the mock backend.
const DefaultMockDimension = 64

var nonWordRegex = regexp.MustCompile(`\W+`)

// Mock is a deterministic bag-of-tokens embedder for tests and offline runs.
// Each token is hashed together with its position into a fixed slot.
type Mock struct {
	dim int
}

// NewMock creates a mock backend producing dim-sized vectors.
func NewMock(dim int) *Mock {
	if dim <= 0 {
		dim = DefaultMockDimension
	}
	return &Mock{dim: dim}
}

func (m *Mock) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float64, m.dim)
	index := 0
	for _, token := range nonWordRegex.Split(strings.ToLower(text), -1) {
		if token == "" {
			continue
		}
		slot := simpleHash(token+strconv.Itoa(index)) % int64(m.dim)
		vec[slot]++
		index++
	}
	return Normalize(vec), nil
}

// simpleHash is the classic 31-multiplier string hash over UTF-16 code units
// with 32-bit wraparound, returned as an absolute value.
func simpleHash(s string) int64 {
	var h int32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = h<<5 - h + int32(unit)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return v
}
