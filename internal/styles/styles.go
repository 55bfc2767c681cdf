// Package styles resolves the style signal of a component: imported
// stylesheet rules that mention its class names and inline CSS-in-JS blocks.
package styles

import (
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"

	"duplicalis/internal/models"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Style kinds folded into the embedding fingerprint.
const (
	KindCSSInJS    = "css-in-js"
	KindStylesheet = "stylesheet"
	KindClassUsage = "class-usage"
	KindNone       = "none"
)

// DefaultExtensions are the stylesheet extensions recognized when none are configured.
var DefaultExtensions = []string{".css", ".scss", ".sass", ".less"}

const defaultCacheSize = 512

var (
	moduleDotRegex     = regexp.MustCompile(`styles\.([A-Za-z0-9_-]+)`)
	moduleBracketRegex = regexp.MustCompile(`styles\[['"]([^'"]+)['"]\]`)
	cssInJSRegexes     = []*regexp.Regexp{
		regexp.MustCompile("css`([\\s\\S]*?)`"),
		regexp.MustCompile("styled\\.[^(]+?`([\\s\\S]*?)`"),
		regexp.MustCompile("styled\\([^`]+`([\\s\\S]*?)`"),
	}
)

// Loader reads stylesheets relative to a project root. Sheet contents are
// kept in an LRU for the lifetime of one run.
type Loader struct {
	root       string
	extensions []string
	sheets     *lru.Cache[string, string]
	readFile   func(string) ([]byte, error)
}

// NewLoader creates a style loader rooted at root.
func NewLoader(root string, extensions []string) *Loader {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	sheets, err := lru.New[string, string](defaultCacheSize)
	if err != nil {
		// Only fails for a non-positive size.
		panic(err)
	}
	return &Loader{
		root:       root,
		extensions: extensions,
		sheets:     sheets,
		readFile:   os.ReadFile,
	}
}

// Load computes the style bundle of a component.
func (l *Loader) Load(c *models.Component) models.StyleBundle {
	classNames := collectClassNames(c)
	stylePaths := l.stylePaths(c.StyleImports)

	var texts []string
	blocks := extractCSSInJS(c.Source)
	if len(blocks) > 0 {
		texts = append(texts, strings.Join(blocks, "\n"))
	}

	// Without class names a whole sheet would only add noise.
	if len(classNames) > 0 {
		for _, p := range stylePaths {
			content := l.readSheet(p)
			if content == "" {
				continue
			}
			if filtered := filterRules(content, classNames); filtered != "" {
				texts = append(texts, filtered)
			}
		}
	}

	return models.StyleBundle{
		StyleText:  strings.Join(texts, "\n"),
		StylePaths: stylePaths,
		HasCSSInJS: len(blocks) > 0,
		ClassNames: classNames,
	}
}

// SignalText is the style text embedded for a component. When neither a
// sheet rule nor a CSS-in-JS block resolved, the sorted class names stand in,
// so two components applying the same classes still share a style signal.
func SignalText(b models.StyleBundle) string {
	if b.StyleText != "" || len(b.ClassNames) == 0 {
		return b.StyleText
	}
	names := slices.Clone(b.ClassNames)
	sort.Strings(names)
	return "CLASSES " + strings.Join(names, " ")
}

// Kind classifies a bundle for fingerprinting.
func Kind(b models.StyleBundle) string {
	switch {
	case b.HasCSSInJS:
		return KindCSSInJS
	case b.StyleText != "":
		return KindStylesheet
	case len(b.ClassNames) > 0:
		return KindClassUsage
	default:
		return KindNone
	}
}

func (l *Loader) stylePaths(imports []string) []string {
	seen := make(map[string]bool, len(imports))
	paths := make([]string, 0, len(imports))
	for _, p := range imports {
		if !l.hasStyleExtension(p) {
			p += ".css"
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		paths = append(paths, p)
	}
	return paths
}

func (l *Loader) hasStyleExtension(p string) bool {
	for _, ext := range l.extensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

func (l *Loader) readSheet(p string) string {
	resolved := p
	if strings.HasPrefix(p, ".") {
		resolved = filepath.Join(l.root, p)
	}
	if content, ok := l.sheets.Get(resolved); ok {
		return content
	}

	// Unreadable sheets are remembered as empty.
	var content string
	if data, err := l.readFile(resolved); err == nil {
		content = string(data)
	}
	l.sheets.Add(resolved, content)
	return content
}

func collectClassNames(c *models.Component) []string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, name := range c.ClassNames {
		add(name)
	}
	for _, m := range moduleDotRegex.FindAllStringSubmatch(c.Source, -1) {
		add(m[1])
	}
	for _, m := range moduleBracketRegex.FindAllStringSubmatch(c.Source, -1) {
		add(m[1])
	}
	return names
}

func extractCSSInJS(source string) []string {
	var blocks []string
	for _, re := range cssInJSRegexes {
		for _, m := range re.FindAllStringSubmatch(source, -1) {
			blocks = append(blocks, m[1])
		}
	}
	return blocks
}

// filterRules keeps only the rule blocks whose selector mentions one of
// the class names. Overlapping blocks are emitted once.
func filterRules(content string, classNames []string) string {
	lowered := asciiLower(content)

	var ranges [][2]int
	for _, name := range classNames {
		re, err := regexp.Compile(`\.` + regexp.QuoteMeta(asciiLower(name)) + `(?:[^A-Za-z0-9_-]|$)`)
		if err != nil {
			continue
		}
		for _, loc := range re.FindAllStringIndex(lowered, -1) {
			brace := strings.IndexByte(content[loc[0]:], '{')
			if brace == -1 {
				continue
			}
			brace += loc[0]
			end := matchingBrace(content, brace)
			if end == -1 {
				continue
			}
			ranges = append(ranges, [2]int{selectorStart(content, brace), end})
		}
	}
	if len(ranges) == 0 {
		return ""
	}

	var blocks []string
	for _, r := range mergeRanges(ranges) {
		if block := strings.TrimSpace(content[r[0] : r[1]+1]); block != "" {
			blocks = append(blocks, block)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func selectorStart(content string, brace int) int {
	for i := brace - 1; i >= 0; i-- {
		if content[i] == '}' || content[i] == ';' {
			return i + 1
		}
	}
	return 0
}

func matchingBrace(content string, open int) int {
	depth := 0
	for i := open; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func mergeRanges(ranges [][2]int) [][2]int {
	sort.Slice(ranges, func(i, j int) bool { return ranges[i][0] < ranges[j][0] })
	merged := [][2]int{ranges[0]}
	for _, r := range ranges[1:] {
		last := &merged[len(merged)-1]
		if r[0] <= last[1]+1 {
			last[1] = max(last[1], r[1])
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// asciiLower lowercases ASCII letters only so byte offsets stay aligned.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
