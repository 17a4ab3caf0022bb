package sqf

import "strings"

// OriginKind tags the variant held by an Origin.
type OriginKind uint8

const (
	// OriginInFile means the symbol is defined in the file being analyzed.
	OriginInFile OriginKind = iota + 1
	// OriginExternal means the symbol is defined in another file.
	OriginExternal
)

// Origin records where a symbol was defined. Exactly one variant is
// populated, selected by Kind: Span for OriginInFile; Path and the optional
// ExternalSpan for OriginExternal.
type Origin struct {
	Kind         OriginKind
	Span         Span
	Path         string
	ExternalSpan *Span
}

// InFile builds an OriginInFile.
func InFile(span Span) Origin {
	return Origin{Kind: OriginInFile, Span: span}
}

// External builds an OriginExternal. span is nil when the defining location
// inside path is unknown.
func External(path string, span *Span) Origin {
	o := Origin{Kind: OriginExternal, Path: path}
	if span != nil {
		s := *span
		o.ExternalSpan = &s
	}
	return o
}

// Global is a name bound in the project namespace.
type Global struct {
	Name      string
	Origin    Origin
	Type      Type
	Signature *Signature
}

// Key normalizes an SQF identifier for lookups; the language is
// case-insensitive.
func Key(name string) string {
	return strings.ToLower(name)
}

// IsLocal reports whether name is a local (underscore-prefixed) variable.
func IsLocal(name string) bool {
	return strings.HasPrefix(name, "_")
}
