package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIDiagnostic is a JSON-friendly diagnostic. Lines and columns are
// 0-based, columns in UTF-16 code units.
type CLIDiagnostic struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
	Severity  string `json:"severity"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// CLILocation is a JSON-friendly source range.
type CLILocation struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// CLIHover is the documentation shown for a position.
type CLIHover struct {
	Contents string      `json:"contents"`
	Range    CLILocation `json:"range"`
}

// CLISymbol is a JSON-friendly project global.
type CLISymbol struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Signature string `json:"signature,omitempty"`
	File      string `json:"file"`
	StartLine *int   `json:"start_line,omitempty"`
	StartCol  *int   `json:"start_col,omitempty"`
}

// CLICheckSummary totals a check run.
type CLICheckSummary struct {
	Files       int             `json:"files"`
	Errors      int             `json:"errors"`
	Warnings    int             `json:"warnings"`
	Diagnostics []CLIDiagnostic `json:"diagnostics"`
}
