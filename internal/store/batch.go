package store

import (
	"fmt"
	"sync"
	"time"
)

// Batch buffers file commits in memory so producers running in parallel
// never touch SQLite. Flush writes everything buffered in one transaction.
//
// Thread safety: the mutex protects the pending slice; Add may be called
// from any goroutine.
type Batch struct {
	store *Store
	mu    sync.Mutex

	pending []*FileData
}

// NewBatch creates a Batch that flushes into s.
func NewBatch(s *Store) *Batch {
	return &Batch{store: s}
}

// Add buffers data for the next Flush.
func (b *Batch) Add(data *FileData) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, data)
}

// Len reports how many files are buffered.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Flush commits and clears the buffer. Files stored with the same hash are
// not rewritten; only their version and index time move forward. It
// returns how many files were rewritten and how many were unchanged.
func (b *Batch) Flush() (written, unchanged int, err error) {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	var changed, same []*FileData
	for _, data := range pending {
		ok, err := b.store.Unchanged(data.File.Path, data.File.Hash)
		if err != nil {
			return 0, 0, err
		}
		if ok {
			same = append(same, data)
		} else {
			changed = append(changed, data)
		}
	}

	if len(same) > 0 {
		if err := b.store.touch(same); err != nil {
			return 0, 0, err
		}
	}
	if len(changed) > 0 {
		if written, err = b.store.CommitBatch(changed); err != nil {
			return 0, 0, err
		}
	}
	return written, len(same), nil
}

// touch advances the version of files whose rows are already current. A
// stored row with a newer version is left alone.
func (s *Store) touch(batch []*FileData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("touch: begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, data := range batch {
		if _, err := tx.Exec(
			"UPDATE files SET version = ?, last_indexed = ? WHERE path = ? AND version < ?",
			data.File.Version, now, data.File.Path, data.File.Version,
		); err != nil {
			return fmt.Errorf("touch %q: %w", data.File.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("touch: %w", err)
	}
	return nil
}
