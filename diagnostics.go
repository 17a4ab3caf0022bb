package sqfls

import (
	"sort"
)

// attributedTo is the file a diagnostic is reported against.
func attributedTo(producer string, d Diagnostic) string {
	if d.File != "" {
		return d.File
	}
	return producer
}

// attributedFiles lists the distinct files an entry reports against, always
// including the entry's own path.
func attributedFiles(e *Entry) []string {
	if e == nil {
		return nil
	}
	seen := map[string]bool{e.Path: true}
	out := []string{e.Path}
	if e.Result != nil {
		for _, d := range e.Result.Diagnostics {
			f := attributedTo(e.Path, d)
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

// groupDiagnostics collects every entry's diagnostics under the file each
// is attributed to. Entries are visited in (path, function) order and each
// file's list is ordered by span start, so output is deterministic.
func groupDiagnostics(entries []*Entry) map[string][]Diagnostic {
	sorted := append([]*Entry(nil), entries...)
	sortEntries(sorted)

	out := make(map[string][]Diagnostic)
	for _, e := range sorted {
		if e.Result == nil {
			continue
		}
		for _, d := range e.Result.Diagnostics {
			f := attributedTo(e.Path, d)
			out[f] = append(out[f], d)
		}
	}
	for _, diags := range out {
		sort.SliceStable(diags, func(i, j int) bool { return diags[i].Span.Start < diags[j].Span.Start })
	}
	return out
}

// diagnosticsFor returns the diagnostics attributed to path across entries,
// never nil so callers can publish an empty list to clear a file.
func diagnosticsFor(entries []*Entry, path string) []Diagnostic {
	if diags, ok := groupDiagnostics(entries)[path]; ok {
		return diags
	}
	return []Diagnostic{}
}
