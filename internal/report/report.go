// Package report renders a finished run: a colored console summary, a JSON
// document or a compact text listing.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"duplicalis/internal/config"
	"duplicalis/internal/models"
	"duplicalis/internal/utils"
)

const (
	snippetLines   = 12
	snippetColumns = 120
)

// Emit writes the report file when cfg.Out is set and prints the report to w
// in cfg.Output format. It returns the absolute path of the written file.
func Emit(w io.Writer, rep models.Report, cfg config.Config) (string, error) {
	outPath := ""
	if cfg.Out != "" {
		outPath = cfg.Out
		if !filepath.IsAbs(outPath) {
			outPath = filepath.Join(cfg.Root, outPath)
		}
		if err := writeFile(outPath, rep, cfg); err != nil {
			return "", err
		}
	}

	switch cfg.Output {
	case config.FormatJSON:
		if outPath == "" {
			return "", WriteJSON(w, rep, cfg.Root, cfg.RelativePaths)
		}
	case config.FormatText:
		if outPath == "" {
			return "", WriteText(w, rep, cfg.Root, cfg.RelativePaths)
		}
	default:
		PrintConsole(w, rep, cfg, outPath)
		return outPath, nil
	}
	fmt.Fprintf(w, "✓ Report written to %s\n", outPath)
	return outPath, nil
}

var createFile = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

func writeFile(path string, rep models.Report, cfg config.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := createFile(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".txt") || cfg.Output == config.FormatText {
		err = WriteText(f, rep, cfg.Root, cfg.RelativePaths)
	} else {
		err = WriteJSON(f, rep, cfg.Root, cfg.RelativePaths)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	// Buffered data may only fail to reach the disk on close.
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// WriteJSON encodes the report with two-space indentation.
func WriteJSON(w io.Writer, rep models.Report, root string, relative bool) error {
	if relative {
		comps := make([]models.Component, len(rep.Components))
		for i, c := range rep.Components {
			c.FilePath = displayPath(c.FilePath, root, true)
			comps[i] = c
		}
		rep.Components = comps
	}
	if rep.Pairs == nil {
		rep.Pairs = []models.SimilarityPair{}
	}
	if rep.Components == nil {
		rep.Components = []models.Component{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// WriteText lists one block per pair: "<score> | #label\t#label" followed by
// the two file paths and a blank line.
func WriteText(w io.Writer, rep models.Report, root string, relative bool) error {
	byID := componentsByID(rep.Components)
	var lines []string
	for _, p := range rep.Pairs {
		labels := "-"
		if len(p.Labels) > 0 {
			tagged := make([]string, len(p.Labels))
			for i, l := range p.Labels {
				tagged[i] = "#" + l
			}
			labels = strings.Join(tagged, "\t")
		}
		lines = append(lines, FormatScore(p.Similarity)+" | "+labels)
		for _, id := range []string{p.A, p.B} {
			if c, ok := byID[id]; ok {
				lines = append(lines, displayPath(c.FilePath, root, relative))
			}
		}
		lines = append(lines, "")
	}
	out := strings.TrimRight(strings.Join(lines, "\n"), "\n") + "\n"
	_, err := io.WriteString(w, out)
	return err
}

// FormatScore rounds to three decimals and drops trailing zeros.
func FormatScore(sim float64) string {
	return strconv.FormatFloat(math.Round(sim*1000)/1000, 'f', -1, 64)
}

func componentsByID(comps []models.Component) map[string]*models.Component {
	byID := make(map[string]*models.Component, len(comps))
	for i := range comps {
		byID[comps[i].ID] = &comps[i]
	}
	return byID
}

func displayPath(path, root string, relative bool) string {
	if !relative || path == "" {
		return path
	}
	return utils.RelativePath(root, path)
}

// trimSource keeps the first non-blank lines of a component, each clipped.
func trimSource(source string) string {
	var kept []string
	for _, line := range strings.Split(source, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(line) > snippetColumns {
			line = line[:snippetColumns-3] + "..."
		}
		kept = append(kept, line)
		if len(kept) == snippetLines {
			break
		}
	}
	return strings.Join(kept, "\n")
}
