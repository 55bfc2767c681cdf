package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// DetectLanguage detects the source dialect based on file extension
func DetectLanguage(filePath string) Language {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".js", ".jsx", ".mjs", ".cjs":
		return LanguageJavaScript
	case ".ts", ".mts", ".cts":
		return LanguageTypeScript
	case ".tsx":
		return LanguageTSX
	default:
		return ""
	}
}

// SupportedExtensions returns all supported file extensions
func SupportedExtensions() []string {
	return []string{
		".js", ".jsx", ".mjs", ".cjs",
		".ts", ".mts", ".cts", ".tsx",
	}
}

// IsSupportedFile checks if a file is supported based on its extension
func IsSupportedFile(filePath string) bool {
	return DetectLanguage(filePath) != ""
}

// grammarFor returns the tree-sitter grammar used for a file. Unknown
// extensions fall back to TSX, which accepts JSX as well as type syntax.
func grammarFor(filePath string) (*sitter.Language, error) {
	switch DetectLanguage(filePath) {
	case LanguageJavaScript:
		return sitter.NewLanguage(javascript.Language()), nil
	case LanguageTypeScript:
		return sitter.NewLanguage(typescript.LanguageTypescript()), nil
	case LanguageTSX, "":
		return sitter.NewLanguage(typescript.LanguageTSX()), nil
	}
	return nil, fmt.Errorf("unsupported file type: %s", filePath)
}
