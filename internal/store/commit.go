package store

import (
	"database/sql"
	"fmt"
	"time"
)

// CommitFile replaces everything stored for data.File.Path within a single
// transaction. It reports false, and writes nothing, when the stored row
// carries a newer version than data.File.Version.
func (s *Store) CommitFile(data *FileData) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("commit file: begin: %w", err)
	}
	defer tx.Rollback()

	ok, err := commitFileTx(tx, data)
	if err != nil || !ok {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit file: %w", err)
	}
	return true, nil
}

// CommitBatch commits many files in one transaction. Stale entries are
// skipped; the number actually written is returned.
func (s *Store) CommitBatch(batch []*FileData) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	written := 0
	for _, data := range batch {
		ok, err := commitFileTx(tx, data)
		if err != nil {
			return 0, err
		}
		if ok {
			written++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}
	return written, nil
}

func commitFileTx(tx *sql.Tx, data *FileData) (bool, error) {
	f := &data.File
	if f.LastIndexed.IsZero() {
		f.LastIndexed = time.Now().UTC()
	}

	var (
		fileID  int64
		version uint64
	)
	err := tx.QueryRow("SELECT id, version FROM files WHERE path = ?", f.Path).Scan(&fileID, &version)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.Exec(
			"INSERT INTO files (path, function, hash, version, fatal, last_indexed) VALUES (?, ?, ?, ?, ?, ?)",
			f.Path, f.Function, f.Hash, f.Version, f.Fatal, f.LastIndexed,
		)
		if err != nil {
			return false, fmt.Errorf("commit file %q: insert: %w", f.Path, err)
		}
		if fileID, err = res.LastInsertId(); err != nil {
			return false, fmt.Errorf("commit file %q: last insert id: %w", f.Path, err)
		}
	case err != nil:
		return false, fmt.Errorf("commit file %q: lookup: %w", f.Path, err)
	case version > f.Version:
		return false, nil
	default:
		if _, err := tx.Exec(
			"UPDATE files SET function = ?, hash = ?, version = ?, fatal = ?, last_indexed = ? WHERE id = ?",
			f.Function, f.Hash, f.Version, f.Fatal, f.LastIndexed, fileID,
		); err != nil {
			return false, fmt.Errorf("commit file %q: update: %w", f.Path, err)
		}
		for _, q := range []string{
			"DELETE FROM globals WHERE file_id = ?",
			"DELETE FROM diagnostics WHERE file_id = ?",
		} {
			if _, err := tx.Exec(q, fileID); err != nil {
				return false, fmt.Errorf("commit file %q: clear: %w", f.Path, err)
			}
		}
	}
	f.ID = fileID

	for i := range data.Globals {
		g := &data.Globals[i]
		g.FileID = fileID
		res, err := tx.Exec(
			`INSERT INTO globals (file_id, name, name_key, origin_path, origin_start, origin_end, type, signature, parameters)
			 VALUES (?, ?, lower(?), ?, ?, ?, ?, ?, ?)`,
			fileID, g.Name, g.Name, g.OriginPath, g.OriginStart, g.OriginEnd, g.Type, g.Signature, marshalList(g.Parameters),
		)
		if err != nil {
			return false, fmt.Errorf("commit file %q: global %q: %w", f.Path, g.Name, err)
		}
		g.ID, _ = res.LastInsertId()
	}

	for i := range data.Diagnostics {
		d := &data.Diagnostics[i]
		d.FileID = fileID
		attributed := d.Attributed
		if attributed == "" {
			attributed = f.Path
		}
		res, err := tx.Exec(
			`INSERT INTO diagnostics (file_id, attributed_path, severity, code, message, start_offset, end_offset)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			fileID, attributed, d.Severity, d.Code, d.Message, d.Start, d.End,
		)
		if err != nil {
			return false, fmt.Errorf("commit file %q: diagnostic: %w", f.Path, err)
		}
		d.ID, _ = res.LastInsertId()
	}
	return true, nil
}

// DeleteFile removes a file and, through cascading keys, its globals and
// diagnostics.
func (s *Store) DeleteFile(path string) error {
	if _, err := s.db.Exec("DELETE FROM files WHERE path = ?", path); err != nil {
		return fmt.Errorf("delete file %q: %w", path, err)
	}
	return nil
}
