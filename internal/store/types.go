package store

import "time"

// File is one analyzed script. Version is the stamp of the analysis that
// produced the row; commits with a lower version are ignored.
type File struct {
	ID          int64
	Path        string
	Function    string
	Hash        string
	Version     uint64
	Fatal       bool
	LastIndexed time.Time
}

// Global is a name a file contributes to the project namespace.
// OriginStart and OriginEnd are nil when the defining span is unknown.
type Global struct {
	ID          int64
	FileID      int64
	Path        string // producing file, filled by queries
	Name        string
	OriginPath  string
	OriginStart *int
	OriginEnd   *int
	Type        string
	Signature   string
	Parameters  []string
}

// Diagnostic is a stored problem. Path is the producing file; Attributed is
// the file it is reported against.
type Diagnostic struct {
	ID         int64
	FileID     int64
	Path       string
	Attributed string
	Severity   int
	Code       string
	Message    string
	Start      int
	End        int
}

// FileData is everything one analysis commits for a file.
type FileData struct {
	File        File
	Globals     []Global
	Diagnostics []Diagnostic
}
