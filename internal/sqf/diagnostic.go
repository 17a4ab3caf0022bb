package sqf

import "fmt"

// Severity follows the LSP numbering so it can be passed through unchanged.
type Severity int

const (
	SeverityError       Severity = 1
	SeverityWarning     Severity = 2
	SeverityInformation Severity = 3
	SeverityHint        Severity = 4
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInformation:
		return "information"
	case SeverityHint:
		return "hint"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Diagnostic codes. Configuration filters operate on these.
const (
	CodePreprocess        = "preprocess"
	CodeSyntax            = "syntax"
	CodeUndefinedVariable = "undefined-variable"
	CodeUnusedVariable    = "unused-variable"
	CodeGlobalExported    = "global-exported"
	CodeTypeMismatch      = "type-mismatch"
	CodeMissingFunction   = "missing-function-file"
	CodeConfig            = "config"
)

// Diagnostic is a single reported problem. File, when set, attributes the
// problem to a file other than the one that produced it.
type Diagnostic struct {
	Severity Severity
	Code     string
	Message  string
	Span     Span
	File     string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s [%s] at %s: %s", d.Severity, d.Code, d.Span, d.Message)
}
