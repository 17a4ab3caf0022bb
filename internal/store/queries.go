package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// --- File operations ---

const fileColumns = "id, path, function, hash, version, fatal, last_indexed"

func scanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	var indexed sql.NullTime
	if err := scanner.Scan(&f.ID, &f.Path, &f.Function, &f.Hash, &f.Version, &f.Fatal, &indexed); err != nil {
		return nil, err
	}
	f.LastIndexed = indexed.Time
	return f, nil
}

// FileByPath returns the stored row for path, or nil when absent.
func (s *Store) FileByPath(path string) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileColumns+" FROM files WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// Files returns every stored file ordered by path.
func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT " + fileColumns + " FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// MaxVersion returns the highest version stored, or 0 for an empty index.
func (s *Store) MaxVersion() (uint64, error) {
	var v sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(version) FROM files").Scan(&v); err != nil {
		return 0, fmt.Errorf("max version: %w", err)
	}
	return uint64(v.Int64), nil
}

// Unchanged reports whether path is stored with the given hash.
func (s *Store) Unchanged(path, hash string) (bool, error) {
	f, err := s.FileByPath(path)
	if err != nil || f == nil {
		return false, err
	}
	return f.Hash == hash, nil
}

// --- Global operations ---

const globalColumns = `g.id, g.file_id, f.path, g.name, g.origin_path, g.origin_start, g.origin_end,
	g.type, g.signature, g.parameters`

func (s *Store) queryGlobals(query string, args ...any) ([]*Global, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query globals: %w", err)
	}
	defer rows.Close()
	var out []*Global
	for rows.Next() {
		g := &Global{}
		var start, end sql.NullInt64
		var params string
		if err := rows.Scan(&g.ID, &g.FileID, &g.Path, &g.Name, &g.OriginPath, &start, &end,
			&g.Type, &g.Signature, &params); err != nil {
			return nil, fmt.Errorf("scan global: %w", err)
		}
		if start.Valid && end.Valid {
			st, en := int(start.Int64), int(end.Int64)
			g.OriginStart, g.OriginEnd = &st, &en
		}
		g.Parameters = unmarshalList(params)
		out = append(out, g)
	}
	return out, rows.Err()
}

// Globals returns every stored global ordered by name, then producing path.
func (s *Store) Globals() ([]*Global, error) {
	return s.queryGlobals("SELECT " + globalColumns +
		" FROM globals g JOIN files f ON f.id = g.file_id ORDER BY g.name_key, f.path")
}

// GlobalsByName returns the globals bound to name, compared
// case-insensitively.
func (s *Store) GlobalsByName(name string) ([]*Global, error) {
	return s.queryGlobals("SELECT "+globalColumns+
		" FROM globals g JOIN files f ON f.id = g.file_id WHERE g.name_key = ? ORDER BY f.path",
		strings.ToLower(name))
}

// --- Diagnostic operations ---

const diagnosticColumns = `d.id, d.file_id, f.path, d.attributed_path, d.severity, d.code, d.message,
	d.start_offset, d.end_offset`

func (s *Store) queryDiagnostics(query string, args ...any) ([]*Diagnostic, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()
	var out []*Diagnostic
	for rows.Next() {
		d := &Diagnostic{}
		if err := rows.Scan(&d.ID, &d.FileID, &d.Path, &d.Attributed, &d.Severity, &d.Code, &d.Message,
			&d.Start, &d.End); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Diagnostics returns every stored diagnostic ordered by attributed file
// and offset.
func (s *Store) Diagnostics() ([]*Diagnostic, error) {
	return s.queryDiagnostics("SELECT " + diagnosticColumns +
		" FROM diagnostics d JOIN files f ON f.id = d.file_id ORDER BY d.attributed_path, d.start_offset, d.id")
}

// DiagnosticsFor returns the diagnostics attributed to any of paths.
func (s *Store) DiagnosticsFor(paths ...string) ([]*Diagnostic, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	return s.queryDiagnostics("SELECT "+diagnosticColumns+
		" FROM diagnostics d JOIN files f ON f.id = d.file_id WHERE d.attributed_path IN ("+
		placeholderList(len(paths))+") ORDER BY d.attributed_path, d.start_offset, d.id",
		stringsToArgs(paths)...)
}

// DiagnosticCounts returns the number of diagnostics per severity.
func (s *Store) DiagnosticCounts() (map[int]int, error) {
	rows, err := s.db.Query("SELECT severity, COUNT(*) FROM diagnostics GROUP BY severity")
	if err != nil {
		return nil, fmt.Errorf("diagnostic counts: %w", err)
	}
	defer rows.Close()
	out := make(map[int]int)
	for rows.Next() {
		var sev, n int
		if err := rows.Scan(&sev, &n); err != nil {
			return nil, fmt.Errorf("scan diagnostic count: %w", err)
		}
		out[sev] = n
	}
	return out, rows.Err()
}
