package parser

import (
	"strings"

	"duplicalis/internal/models"
)

// Thresholds for classifying a thin, prop-driven pass-through component.
const (
	WrapperMaxLines    = 12
	WrapperMaxTags     = 2
	WrapperMaxLiterals = 4
	WrapperMaxReturns  = 2
)

// IsWrapper reports whether a component is a thin pass-through: a short body
// rendering at most two distinct element tags, driven by props rather than
// literals, with at most two element-producing returns.
func IsWrapper(c *models.Component) bool {
	if CountNonBlankLines(c.Source) > WrapperMaxLines {
		return false
	}
	if len(distinct(c.JSXTags)) > WrapperMaxTags {
		return false
	}
	if len(c.Props.Names) == 0 && c.Props.Spreads == 0 {
		return false
	}
	return len(c.Literals) <= WrapperMaxLiterals && c.ReturnsCount <= WrapperMaxReturns
}

// CountNonBlankLines counts lines that contain anything but whitespace.
func CountNonBlankLines(source string) int {
	n := 0
	for _, line := range strings.Split(source, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func distinct(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
