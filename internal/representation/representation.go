// Package representation turns a component's metadata into the normalized
// texts that are fed to the embedding backend.
package representation

import (
	"fmt"
	"regexp"
	"strings"

	"duplicalis/internal/models"
)

const (
	maxJSXTags      = 20
	maxPaths        = 25
	maxPathDepth    = 5
	maxTextNodes    = 10
	maxTextLength   = 40
	maxSourceLength = 4000
)

var (
	blockCommentRegex = regexp.MustCompile(`/\*[\s\S]*?\*/`)
	lineCommentRegex  = regexp.MustCompile(`//.*`)
	whitespaceRegex   = regexp.MustCompile(`\s+`)
)

// Build derives the four representations of a component. It is pure: the
// same component and style text always produce the same output.
func Build(c *models.Component, styleText string) models.Representation {
	codeRep := buildCode(c)
	structureRep := buildStructure(c)
	styleRep := Normalize(styleText)

	parts := []string{
		"NAME " + c.Name,
		"STRUCTURE " + structureRep,
		"CODE " + codeRep,
	}
	if styleText != "" {
		parts = append(parts, "STYLE "+styleRep)
	}
	if source := Normalize(truncateRunes(c.Source, maxSourceLength)); source != "" {
		parts = append(parts, "SOURCE "+source)
	}

	return models.Representation{
		CodeRep:      codeRep,
		StyleRep:     styleRep,
		StructureRep: structureRep,
		HolisticRep:  Normalize(strings.Join(parts, "\n")),
	}
}

// Normalize strips block and line comments and collapses whitespace.
func Normalize(text string) string {
	text = blockCommentRegex.ReplaceAllString(text, "")
	text = lineCommentRegex.ReplaceAllString(text, "")
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func buildCode(c *models.Component) string {
	lines := []string{
		fmt.Sprintf("PROPS %s spreads:%d", orNone(strings.Join(c.Props.Names, ",")), c.Props.Spreads),
		"HOOKS " + orNone(strings.Join(Unique(c.Hooks), ",")),
		"LOGIC " + orNone(strings.Join(Unique(c.LogicTokens), ",")),
		"JSX " + orNone(strings.Join(head(c.JSXTags, maxJSXTags), " -> ")),
		"CLASSES " + orNone(strings.Join(Unique(c.ClassNames), ",")),
		"LITERALS " + orNone(strings.Join(Unique(c.Literals), ",")),
	}
	return Normalize(strings.Join(lines, "\n"))
}

func buildStructure(c *models.Component) string {
	paths := head(Unique(c.JSXPaths), maxPaths)
	for i, p := range paths {
		paths[i] = compressPath(p)
	}

	texts := make([]string, 0, maxTextNodes)
	for _, text := range Unique(c.TextNodes) {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if len(texts) == maxTextNodes {
			break
		}
		texts = append(texts, clip(text))
	}

	lines := []string{
		"VDOM PATHS " + orNone(strings.Join(paths, " | ")),
		"VDOM TEXT " + orNone(strings.Join(texts, " | ")),
		"VDOM CLASSES " + orNone(strings.Join(Unique(c.ClassNames), ",")),
	}
	return Normalize(strings.Join(lines, "\n"))
}

// compressPath keeps the first and last two segments of deep element paths.
func compressPath(path string) string {
	segments := strings.Split(path, ">")
	if len(segments) <= maxPathDepth {
		return path
	}
	n := len(segments)
	return strings.Join(segments[:2], ">") + "..." + strings.Join(segments[n-2:], ">")
}

func clip(text string) string {
	runes := []rune(text)
	if len(runes) <= maxTextLength {
		return text
	}
	return string(runes[:maxTextLength-3]) + "..."
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// Unique drops empty strings and repeats while keeping first-seen order.
func Unique(items []string) []string {
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

func head(items []string, n int) []string {
	if len(items) > n {
		items = items[:n]
	}
	return append([]string(nil), items...)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
