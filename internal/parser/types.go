package parser

import "errors"

// ErrParse is returned when a source file cannot be parsed into a syntax tree.
var ErrParse = errors.New("parse failure")

// Ignore markers recognized in source text when ignores are allowed.
const (
	// IgnoreFileMarker anywhere in a file skips the whole file.
	IgnoreFileMarker = "duplicalis-ignore-file"
	// IgnoreComponentMarker in a leading comment, or on one of the two lines
	// above a declaration, skips that declaration.
	IgnoreComponentMarker = "duplicalis-ignore-next"
)

// Options controls what the component parser extracts.
type Options struct {
	AllowIgnores    bool
	StyleExtensions []string
}

// Language represents a supported source dialect.
type Language string

const (
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageTSX        Language = "tsx"
)
