package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"duplicalis/internal/models"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

var (
	pascalCaseRegex = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
	// Stateful calls follow the useXxx naming convention.
	hookNameRegex = regexp.MustCompile(`^use([A-Z0-9_].*)?$`)
)

// ComponentParser extracts UI component declarations from JS/TS sources.
type ComponentParser struct {
	opts Options
}

// NewComponentParser creates a new component parser
func NewComponentParser(opts Options) *ComponentParser {
	return &ComponentParser{opts: opts}
}

// ParseFile reads a file from disk and extracts its components.
func (p *ComponentParser) ParseFile(filePath string) (models.FileResult, error) {
	code, err := os.ReadFile(filePath)
	if err != nil {
		return models.FileResult{}, err
	}
	return p.Parse(filePath, code)
}

// Parse extracts every component candidate declared in code. A syntax error
// anywhere in the file fails the whole file with ErrParse.
func (p *ComponentParser) Parse(filePath string, code []byte) (models.FileResult, error) {
	if p.opts.AllowIgnores && strings.Contains(string(code), IgnoreFileMarker) {
		return models.FileResult{IgnoredFile: true}, nil
	}

	lang, err := grammarFor(filePath)
	if err != nil {
		return models.FileResult{}, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(lang); err != nil {
		return models.FileResult{}, fmt.Errorf("failed to load grammar for %s: %w", filePath, err)
	}

	tree := parser.Parse(code, nil)
	if tree == nil {
		return models.FileResult{}, fmt.Errorf("%w: %s: no syntax tree produced", ErrParse, filePath)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line := firstErrorLine(root)
		return models.FileResult{}, fmt.Errorf("%w: %s:%d: malformed source", ErrParse, filePath, line)
	}

	f := &fileContext{
		path:         filePath,
		code:         code,
		lines:        strings.Split(string(code), "\n"),
		opts:         p.opts,
		styleImports: collectStyleImports(root, code, filePath, p.opts.StyleExtensions),
		seen:         make(map[string]bool),
	}
	f.traverse(root)

	return models.FileResult{Components: f.components}, nil
}

type fileContext struct {
	path         string
	code         []byte
	lines        []string
	opts         Options
	styleImports []string
	components   []models.Component
	seen         map[string]bool
}

func (f *fileContext) traverse(node *sitter.Node) {
	f.maybeBuildComponent(node)
	for i := uint(0); i < node.ChildCount(); i++ {
		f.traverse(node.Child(i))
	}
}

func (f *fileContext) maybeBuildComponent(node *sitter.Node) {
	switch node.Kind() {
	case "function_declaration":
		name := f.text(node.ChildByFieldName("name"))
		if isPascalCase(name) {
			f.add(node, node, name)
		}

	case "variable_declarator":
		nameNode := node.ChildByFieldName("name")
		value := node.ChildByFieldName("value")
		if nameNode == nil || value == nil || nameNode.Kind() != "identifier" {
			return
		}
		if name := f.text(nameNode); isPascalCase(name) && isFunctionLike(value) {
			f.add(value, node, name)
		}

	case "class_declaration":
		name := f.text(node.ChildByFieldName("name"))
		if isPascalCase(name) && extendsComponentBase(node, f.code) {
			f.add(node, node, name)
		}

	case "export_statement":
		if !hasChildKind(node, "default") {
			return
		}
		if decl := node.ChildByFieldName("declaration"); decl != nil {
			// Named PascalCase declarations are picked up by their own case.
			if decl.Kind() == "function_declaration" && !isPascalCase(f.text(decl.ChildByFieldName("name"))) {
				f.add(decl, node, f.fallbackName())
			}
			return
		}
		if value := node.ChildByFieldName("value"); value != nil && isFunctionLike(value) {
			name := f.text(value.ChildByFieldName("name"))
			if !isPascalCase(name) {
				name = f.fallbackName()
			}
			f.add(value, node, name)
		}
	}
}

func (f *fileContext) fallbackName() string {
	base := filepath.Base(f.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// add builds a component from body and records it unless it is ignored or
// its id was already taken by an earlier declaration in the same file.
func (f *fileContext) add(body, decl *sitter.Node, name string) {
	if f.opts.AllowIgnores && f.isIgnored(decl) {
		return
	}
	id := f.path + "#" + name
	if f.seen[id] {
		return
	}
	f.seen[id] = true
	f.components = append(f.components, f.buildComponent(body, name, id))
}

func (f *fileContext) buildComponent(body *sitter.Node, name, id string) models.Component {
	start := int(body.StartPosition().Row)
	end := int(body.EndPosition().Row)

	c := models.Component{
		ID:            id,
		Name:          name,
		FilePath:      f.path,
		Source:        f.sliceLines(start, end),
		Loc:           models.Loc{StartLine: start + 1, EndLine: end + 1},
		Props:         extractProps(body, f.code),
		Hooks:         []string{},
		LogicTokens:   []string{},
		Literals:      []string{},
		JSXTags:       []string{},
		JSXPaths:      []string{},
		TextNodes:     []string{},
		ClassNames:    []string{},
		ComponentRefs: []string{},
		StyleImports:  append([]string{}, f.styleImports...),
	}

	w := &bodyWalker{code: f.code, root: body, meta: &c, isClass: body.Kind() == "class_declaration"}
	w.walk(body, 0)

	c.IsWrapper = IsWrapper(&c)
	return c
}

func (f *fileContext) sliceLines(start, end int) string {
	if start < 0 || start >= len(f.lines) {
		return ""
	}
	if end >= len(f.lines) {
		end = len(f.lines) - 1
	}
	return strings.Join(f.lines[start:end+1], "\n")
}

func (f *fileContext) text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return node.Utf8Text(f.code)
}

// isIgnored reports whether a declaration carries the component ignore
// marker, either in comments attached to its statement or on the two lines
// immediately above it.
func (f *fileContext) isIgnored(decl *sitter.Node) bool {
	stmt := enclosingStatement(decl)
	for prev := stmt.PrevSibling(); prev != nil && prev.Kind() == "comment"; prev = prev.PrevSibling() {
		if strings.Contains(f.text(prev), IgnoreComponentMarker) {
			return true
		}
	}

	for _, row := range []int{int(decl.StartPosition().Row), int(stmt.StartPosition().Row)} {
		for i := max(0, row-2); i < row && i < len(f.lines); i++ {
			if strings.Contains(f.lines[i], IgnoreComponentMarker) {
				return true
			}
		}
	}
	return false
}

func enclosingStatement(node *sitter.Node) *sitter.Node {
	stmt := node
	if stmt.Kind() == "variable_declarator" {
		if parent := stmt.Parent(); parent != nil {
			stmt = parent
		}
	}
	if parent := stmt.Parent(); parent != nil && parent.Kind() == "export_statement" {
		stmt = parent
	}
	return stmt
}

func collectStyleImports(root *sitter.Node, code []byte, filePath string, extensions []string) []string {
	imports := []string{}
	for i := uint(0); i < root.NamedChildCount(); i++ {
		child := root.NamedChild(i)
		if child.Kind() != "import_statement" {
			continue
		}
		source := child.ChildByFieldName("source")
		if source == nil {
			continue
		}
		spec := unquote(source.Utf8Text(code))
		if !hasStyleExtension(spec, extensions) {
			continue
		}
		if strings.HasPrefix(spec, ".") {
			spec = filepath.Clean(filepath.Join(filepath.Dir(filePath), spec))
		}
		imports = append(imports, spec)
	}
	return imports
}

func hasStyleExtension(spec string, extensions []string) bool {
	for _, ext := range extensions {
		if ext != "" && strings.HasSuffix(spec, ext) {
			return true
		}
	}
	return false
}

// extendsComponentBase reports whether a class extends Component,
// PureComponent or a member expression ending in one of them.
func extendsComponentBase(class *sitter.Node, code []byte) bool {
	var heritage *sitter.Node
	for i := uint(0); i < class.NamedChildCount(); i++ {
		if child := class.NamedChild(i); child.Kind() == "class_heritage" {
			heritage = child
			break
		}
	}
	if heritage == nil {
		return false
	}

	base := findFirst(heritage, func(n *sitter.Node) bool {
		return n.Kind() == "identifier" || n.Kind() == "member_expression"
	})
	if base == nil {
		return false
	}
	name := base.Utf8Text(code)
	if base.Kind() == "member_expression" {
		if prop := base.ChildByFieldName("property"); prop != nil {
			name = prop.Utf8Text(code)
		}
	}
	return name == "Component" || name == "PureComponent"
}

// extractProps reads the first parameter of a function-like node.
func extractProps(fn *sitter.Node, code []byte) models.Props {
	props := models.Props{Names: []string{}}
	if !isFunctionLike(fn) {
		return props
	}

	var param *sitter.Node
	if single := fn.ChildByFieldName("parameter"); single != nil {
		param = single
	} else if params := fn.ChildByFieldName("parameters"); params != nil {
		for i := uint(0); i < params.NamedChildCount(); i++ {
			if child := params.NamedChild(i); child.Kind() != "comment" {
				param = child
				break
			}
		}
	}
	param = unwrapParameter(param)
	if param == nil {
		return props
	}

	switch param.Kind() {
	case "identifier":
		props.Names = append(props.Names, param.Utf8Text(code))
	case "object_pattern":
		seen := make(map[string]bool)
		for i := uint(0); i < param.NamedChildCount(); i++ {
			prop := param.NamedChild(i)
			var name string
			switch prop.Kind() {
			case "shorthand_property_identifier_pattern":
				name = prop.Utf8Text(code)
			case "pair_pattern":
				if key := prop.ChildByFieldName("key"); key != nil && key.Kind() == "property_identifier" {
					name = key.Utf8Text(code)
				}
			case "object_assignment_pattern":
				if left := prop.ChildByFieldName("left"); left != nil {
					name = left.Utf8Text(code)
				}
			case "rest_pattern":
				props.Spreads++
			}
			if name != "" && !seen[name] {
				seen[name] = true
				props.Names = append(props.Names, name)
			}
		}
	}
	return props
}

func unwrapParameter(param *sitter.Node) *sitter.Node {
	for param != nil {
		switch param.Kind() {
		case "required_parameter", "optional_parameter":
			param = param.ChildByFieldName("pattern")
		case "assignment_pattern":
			param = param.ChildByFieldName("left")
		default:
			return param
		}
	}
	return nil
}

func firstErrorLine(root *sitter.Node) int {
	bad := findFirst(root, func(n *sitter.Node) bool {
		return n.IsError() || n.IsMissing()
	})
	if bad == nil {
		return int(root.StartPosition().Row) + 1
	}
	return int(bad.StartPosition().Row) + 1
}

func findFirst(node *sitter.Node, match func(*sitter.Node) bool) *sitter.Node {
	if match(node) {
		return node
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if found := findFirst(node.Child(i), match); found != nil {
			return found
		}
	}
	return nil
}

func hasChildKind(node *sitter.Node, kind string) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		if node.Child(i).Kind() == kind {
			return true
		}
	}
	return false
}

func isFunctionLike(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	switch node.Kind() {
	case "function_declaration", "function_expression", "function", "arrow_function":
		return true
	}
	return false
}

func isPascalCase(name string) bool {
	return name != "" && pascalCaseRegex.MatchString(name)
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'' || first == '`') && last == first {
			return s[1 : len(s)-1]
		}
	}
	return s
}
