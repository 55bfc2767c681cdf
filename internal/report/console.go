package report

import (
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"duplicalis/internal/config"
	"duplicalis/internal/models"

	"github.com/fatih/color"
)

var (
	bold   = color.New(color.Bold).SprintFunc()
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	badge  = color.New(color.FgBlack, color.BgYellow, color.Bold).SprintFunc()
)

// PrintConsole renders the human-readable report.
func PrintConsole(w io.Writer, rep models.Report, cfg config.Config, outPath string) {
	fmt.Fprintln(w, bold("\nDuplicate React component report"))
	fmt.Fprintln(w, modeLine(cfg))
	printRunConfig(w, cfg, outPath)
	printMatches(w, rep, cfg)
	printStats(w, rep)
	if outPath != "" {
		fmt.Fprintln(w, gray("Report written to "+outPath))
	}
}

func modeLine(cfg config.Config) string {
	switch cfg.Model {
	case config.ModelRemote:
		url := cfg.Remote.URL
		if url == "" {
			url = "n/a"
		}
		return fmt.Sprintf("model: remote (%s @ %s)", cfg.Remote.Model, url)
	case config.ModelMock:
		return "model: mock (deterministic hashing)"
	}
	download := "off"
	if cfg.AutoDownloadModel {
		download = "on"
	}
	return fmt.Sprintf("model: local (path: %s, auto-download: %s)", cfg.ModelPath, download)
}

func printRunConfig(w io.Writer, cfg config.Config, outPath string) {
	fmt.Fprintln(w, bold("Run config"))
	fmt.Fprintf(w, "  root: %s\n", cfg.Root)
	if outPath != "" {
		fmt.Fprintf(w, "  output: %s\n", outPath)
	}
	cache := cfg.CachePath
	if cache == "" {
		cache = "none"
	}
	fmt.Fprintf(w, "  cache: %s\n", cache)

	maxThreshold := 1.0
	if cfg.MaxSimilarityThreshold != nil {
		maxThreshold = *cfg.MaxSimilarityThreshold
	}
	fmt.Fprintf(w, "  thresholds: min %s · high-label %s · max %s\n",
		FormatScore(cfg.SimilarityThreshold), FormatScore(cfg.HighSimilarityThreshold), FormatScore(maxThreshold))

	limit := "all"
	if cfg.Limit > 0 {
		limit = fmt.Sprint(cfg.Limit)
	}
	fmt.Fprintf(w, "  limit: %s\n", limit)
	fmt.Fprintf(w, "  include: %s\n", orDash(strings.Join(cfg.Include, ", ")))
	fmt.Fprintf(w, "  exclude: %s\n", orDash(strings.Join(cfg.Exclude, ", ")))
	if len(cfg.CompareGlobs) > 0 {
		fmt.Fprintf(w, "  compare: %s\n", strings.Join(cfg.CompareGlobs, ", "))
	}
}

func printMatches(w io.Writer, rep models.Report, cfg config.Config) {
	fmt.Fprintln(w, bold("\nTop matches (with snippets):"))
	if len(rep.Pairs) == 0 {
		fmt.Fprintln(w, "  none above threshold")
		return
	}

	byID := componentsByID(rep.Components)
	separator := gray(strings.Repeat("─", 80))
	n := 0
	for _, category := range []string{models.CategoryAlmostIdentical, models.CategoryNearDuplicate} {
		var group []models.SimilarityPair
		for _, p := range rep.Pairs {
			if p.Category == category {
				group = append(group, p)
			}
		}
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s (%d)\n", bold(category), len(group))
		for _, p := range group {
			n++
			fmt.Fprintf(w, "\n%s\n", separator)
			fmt.Fprintln(w, cyan(fmt.Sprintf("%s  score: %s", badge(fmt.Sprintf(" %2d ", n)), FormatScore(p.Similarity))))
			tags := "—"
			if len(p.Labels) > 0 {
				tagged := make([]string, len(p.Labels))
				for i, l := range p.Labels {
					tagged[i] = "#" + l
				}
				tags = strings.Join(tagged, "    ")
			}
			fmt.Fprintln(w, tags)
			for _, h := range p.Hints {
				fmt.Fprintln(w, gray("  - "+h))
			}
			printSnippet(w, "A", byID[p.A], cfg)
			printSnippet(w, "B", byID[p.B], cfg)
		}
	}
	fmt.Fprintln(w, separator)
}

func printSnippet(w io.Writer, side string, c *models.Component, cfg config.Config) {
	if c == nil {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, yellow(side+") "+c.Name))
	fmt.Fprintln(w, gray("    "+displayPath(c.FilePath, cfg.Root, cfg.RelativePaths)))
	snippet := trimSource(c.Source)
	if strings.TrimSpace(snippet) == "" {
		fmt.Fprintln(w, "    [no snippet]")
		return
	}
	for _, line := range strings.Split(snippet, "\n") {
		fmt.Fprintln(w, "    "+line)
	}
}

type row struct {
	label, value string
	emphasis     bool
}

func printStats(w io.Writer, rep models.Report) {
	fmt.Fprintln(w, bold("\nRun stats"))
	renderTable(w, statsRows(rep))
}

func statsRows(rep models.Report) []row {
	s := rep.Stats
	paired := pairedComponents(rep.Pairs)
	total := len(rep.Components)
	percent := 0
	if total > 0 {
		percent = int(float64(paired)/float64(total)*100 + 0.5)
	}
	return []row{
		{label: "match coverage", value: fmt.Sprintf("%d/%d (%d%%)", paired, total, percent), emphasis: true},
		{label: "pairs reported", value: fmt.Sprint(len(rep.Pairs))},
		{label: "pairs suppressed", value: formatSuppression(s.Scorecard)},
		{label: "pairs evaluated", value: fmt.Sprint(s.Scorecard.EvaluatedPairs)},
		{label: "components scanned", value: fmt.Sprint(total)},
		{label: "files", value: fmt.Sprintf("%d (%d ignored)", s.Files, s.IgnoredFiles)},
		{label: "timings (ms)", value: fmt.Sprintf("scan %dms | parse %dms | embed %dms | similarity %dms", s.ScanMs, s.ParseMs, s.EmbedMs, s.SimilarityMs)},
		{label: "cache", value: fmt.Sprintf("hits %d | partial %d | misses %d | fetched %d | pruned %d", s.Cache.Hits, s.Cache.Partial, s.Cache.Misses, s.Cache.Fetched, s.Cache.Pruned)},
	}
}

func renderTable(w io.Writer, rows []row) {
	labelWidth, valueWidth := 0, 0
	for _, r := range rows {
		labelWidth = max(labelWidth, len([]rune(r.label)))
		valueWidth = max(valueWidth, len([]rune(r.value)))
	}
	inner := labelWidth + valueWidth + 5
	fmt.Fprintln(w, gray("┌"+strings.Repeat("─", inner)+"┐"))
	for i, r := range rows {
		label := " " + pad(r.label, labelWidth) + " "
		value := " " + pad(r.value, valueWidth) + " "
		if r.emphasis {
			value = badge(value)
		}
		fmt.Fprintf(w, "│%s│%s│\n", label, value)
		if i == 0 {
			fmt.Fprintln(w, gray("├"+strings.Repeat("─", inner)+"┤"))
		}
	}
	fmt.Fprintln(w, gray("└"+strings.Repeat("─", inner)+"┘"))
}

// formatSuppression lists the three most frequent reasons.
func formatSuppression(card models.Scorecard) string {
	if card.SuppressedPairs == 0 {
		return "0"
	}
	reasons := make([]string, 0, len(card.SuppressionReasons))
	for r := range card.SuppressionReasons {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool {
		ci, cj := card.SuppressionReasons[reasons[i]], card.SuppressionReasons[reasons[j]]
		if ci != cj {
			return ci > cj
		}
		return reasons[i] < reasons[j]
	})
	if len(reasons) > 3 {
		reasons = reasons[:3]
	}
	if len(reasons) == 0 {
		return fmt.Sprint(card.SuppressedPairs)
	}
	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = fmt.Sprintf("%s %d", r, card.SuppressionReasons[r])
	}
	return fmt.Sprintf("%d (%s)", card.SuppressedPairs, strings.Join(parts, " | "))
}

func pairedComponents(pairs []models.SimilarityPair) int {
	var ids []string
	for _, p := range pairs {
		for _, id := range []string{p.A, p.B} {
			if id != "" && !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
	}
	return len(ids)
}

func pad(s string, width int) string {
	if n := len([]rune(s)); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
