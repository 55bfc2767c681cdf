package runner

import (
	"fmt"
	"io"
	"sync"
)

// Progress prints stage messages in the CLI's arrow/check style. A nil
// writer silences it.
type Progress struct {
	mu      sync.Mutex
	w       io.Writer
	lastPct int
}

func NewProgress(w io.Writer) *Progress {
	return &Progress{w: w, lastPct: -10}
}

func (p *Progress) Stage(format string, args ...any) {
	p.printf("→ "+format+"\n", args...)
}

func (p *Progress) Done(format string, args ...any) {
	p.printf("✓ "+format+"\n", args...)
}

func (p *Progress) Warn(format string, args ...any) {
	p.printf("⚠ "+format+"\n", args...)
}

// Embedding reports backend calls; it only prints when the percentage
// moves by ten points or the pass completes.
func (p *Progress) Embedding(done, total int) {
	if p == nil || p.w == nil || total == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	pct := done * 100 / total
	if done < total && pct/10 == p.lastPct/10 {
		return
	}
	p.lastPct = pct
	fmt.Fprintf(p.w, "  embedding %d/%d (%d%%)\n", done, total, pct)
	if done == total {
		p.lastPct = -10
	}
}

// Download reports model files fetched so far.
func (p *Progress) Download(done, total int) {
	p.printf("  model file %d/%d\n", done, total)
}

func (p *Progress) printf(format string, args ...any) {
	if p == nil || p.w == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}
