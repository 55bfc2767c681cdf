package parser

import (
	"strconv"
	"strings"

	"duplicalis/internal/models"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// bodyWalker visits a component body once and fills in its metadata.
type bodyWalker struct {
	code    []byte
	root    *sitter.Node
	meta    *models.Component
	isClass bool
	stack   []string
}

// Type-level syntax carries no runtime signal.
var skippedKinds = map[string]bool{
	"type_annotation":        true,
	"type_arguments":         true,
	"type_parameters":        true,
	"literal_type":           true,
	"interface_declaration":  true,
	"type_alias_declaration": true,
	"comment":                true,
	"jsx_closing_element":    true,
}

// walk visits node; depth counts the functions nested inside the component.
func (w *bodyWalker) walk(node *sitter.Node, depth int) {
	kind := node.Kind()
	if skippedKinds[kind] {
		return
	}

	switch kind {
	case "jsx_element":
		if open := node.ChildByFieldName("open_tag"); open != nil {
			if name := open.ChildByFieldName("name"); name != nil {
				w.enterElement(name)
				w.walkChildren(node, depth)
				w.exitElement()
				return
			}
		}

	case "jsx_self_closing_element":
		if name := node.ChildByFieldName("name"); name != nil {
			w.enterElement(name)
			w.handleOpening(node)
			w.walkChildren(node, depth)
			w.exitElement()
			return
		}

	case "jsx_opening_element":
		w.handleOpening(node)

	case "jsx_text":
		if text := strings.TrimSpace(node.Utf8Text(w.code)); text != "" {
			w.meta.TextNodes = append(w.meta.TextNodes, text)
		}
		return

	case "call_expression":
		w.handleCall(node)

	case "function_declaration", "generator_function_declaration":
		if node != w.root {
			if name := node.ChildByFieldName("name"); name != nil {
				w.meta.LogicTokens = append(w.meta.LogicTokens, name.Utf8Text(w.code))
			}
			w.walkChildren(node, depth+1)
			return
		}

	case "arrow_function", "function_expression", "function":
		if node != w.root {
			if parent := node.Parent(); parent != nil && parent.Kind() == "variable_declarator" {
				if name := parent.ChildByFieldName("name"); name != nil && name.Kind() == "identifier" {
					w.meta.LogicTokens = append(w.meta.LogicTokens, name.Utf8Text(w.code))
				}
			}
			w.walkChildren(node, depth+1)
			return
		}
		if body := node.ChildByFieldName("body"); body != nil && producesElement(body) {
			w.meta.ReturnsCount++
		}

	case "method_definition":
		// Class component methods are the component's own exit points.
		if w.isClass && depth == 0 {
			w.walkChildren(node, depth)
			return
		}
		w.walkChildren(node, depth+1)
		return

	case "return_statement":
		if depth == 0 && producesElement(firstNamedChild(node)) {
			w.meta.ReturnsCount++
		}

	case "string":
		w.meta.Literals = append(w.meta.Literals, unquote(node.Utf8Text(w.code)))
		return

	case "number":
		w.meta.Literals = append(w.meta.Literals, normalizeNumber(node.Utf8Text(w.code)))
		return
	}

	w.walkChildren(node, depth)
}

func (w *bodyWalker) walkChildren(node *sitter.Node, depth int) {
	for i := uint(0); i < node.ChildCount(); i++ {
		w.walk(node.Child(i), depth)
	}
}

func (w *bodyWalker) enterElement(name *sitter.Node) {
	tag := jsxTag(name, w.code)
	w.stack = append(w.stack, tag)
	w.meta.JSXTags = append(w.meta.JSXTags, tag)
	w.meta.JSXPaths = append(w.meta.JSXPaths, strings.Join(w.stack, ">"))
}

func (w *bodyWalker) exitElement() {
	if len(w.stack) > 0 {
		w.stack = w.stack[:len(w.stack)-1]
	}
}

// handleOpening records class names, spread markers and component
// references found on an opening or self-closing element.
func (w *bodyWalker) handleOpening(node *sitter.Node) {
	if name := node.ChildByFieldName("name"); name != nil {
		if ref := componentRefFromName(name, w.code); ref != "" {
			w.meta.ComponentRefs = append(w.meta.ComponentRefs, ref)
		}
	}

	for i := uint(0); i < node.NamedChildCount(); i++ {
		attr := node.NamedChild(i)
		switch attr.Kind() {
		case "jsx_attribute":
			if attr.NamedChildCount() < 2 {
				continue
			}
			attrName := attr.NamedChild(0).Utf8Text(w.code)
			value := attr.NamedChild(attr.NamedChildCount() - 1)
			switch value.Kind() {
			case "string":
				if attrName == "className" || attrName == "class" {
					w.meta.ClassNames = append(w.meta.ClassNames, strings.Fields(unquote(value.Utf8Text(w.code)))...)
				}
			case "jsx_expression":
				if ref := componentRefFromExpression(firstNamedChild(value), w.code); ref != "" {
					w.meta.ComponentRefs = append(w.meta.ComponentRefs, ref)
				}
			}
		case "jsx_expression":
			if inner := firstNamedChild(attr); inner != nil && inner.Kind() == "spread_element" {
				w.meta.Literals = append(w.meta.Literals, "spread")
			}
		}
	}
}

func (w *bodyWalker) handleCall(node *sitter.Node) {
	callee := node.ChildByFieldName("function")
	if callee == nil {
		return
	}
	switch callee.Kind() {
	case "identifier":
		if name := callee.Utf8Text(w.code); hookNameRegex.MatchString(name) {
			w.meta.Hooks = append(w.meta.Hooks, name)
		}
	case "member_expression":
		if prop := callee.ChildByFieldName("property"); prop != nil && prop.Kind() == "property_identifier" {
			w.meta.LogicTokens = append(w.meta.LogicTokens, prop.Utf8Text(w.code))
		}
	}
}

// producesElement reports whether an expression evaluates to a JSX element
// on at least one branch.
func producesElement(expr *sitter.Node) bool {
	if expr == nil {
		return false
	}
	switch expr.Kind() {
	case "jsx_element", "jsx_self_closing_element", "jsx_fragment":
		return true
	case "parenthesized_expression":
		return producesElement(firstNamedChild(expr))
	case "ternary_expression":
		return producesElement(expr.ChildByFieldName("consequence")) || producesElement(expr.ChildByFieldName("alternative"))
	case "binary_expression":
		return producesElement(expr.ChildByFieldName("right"))
	}
	return false
}

func jsxTag(name *sitter.Node, code []byte) string {
	switch name.Kind() {
	case "identifier", "jsx_identifier", "jsx_namespace_name":
		return name.Utf8Text(code)
	case "member_expression", "nested_identifier":
		if n := name.NamedChildCount(); n > 0 {
			return name.NamedChild(n - 1).Utf8Text(code)
		}
	}
	return "Unknown"
}

func componentRefFromName(name *sitter.Node, code []byte) string {
	switch name.Kind() {
	case "identifier", "jsx_identifier":
		if text := name.Utf8Text(code); isPascalCase(text) {
			return text
		}
	case "member_expression", "nested_identifier":
		if root := memberRoot(name, code); isPascalCase(root) {
			return root
		}
	}
	return ""
}

func componentRefFromExpression(expr *sitter.Node, code []byte) string {
	if expr == nil {
		return ""
	}
	switch expr.Kind() {
	case "identifier":
		if text := expr.Utf8Text(code); isPascalCase(text) {
			return text
		}
	case "member_expression":
		if root := memberRoot(expr, code); isPascalCase(root) {
			return root
		}
	}
	return ""
}

// memberRoot returns the leftmost identifier of a member chain such as A.B.C.
func memberRoot(node *sitter.Node, code []byte) string {
	for node != nil && (node.Kind() == "member_expression" || node.Kind() == "nested_identifier") {
		node = firstNamedChild(node)
	}
	if node == nil {
		return ""
	}
	if node.Kind() == "identifier" || node.Kind() == "jsx_identifier" {
		return node.Utf8Text(code)
	}
	return ""
}

func firstNamedChild(node *sitter.Node) *sitter.Node {
	if node == nil || node.NamedChildCount() == 0 {
		return nil
	}
	return node.NamedChild(0)
}

func normalizeNumber(raw string) string {
	clean := strings.ReplaceAll(raw, "_", "")
	if f, err := strconv.ParseFloat(clean, 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return raw
}
