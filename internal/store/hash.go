package store

import (
	"encoding/json"
	"fmt"

	"github.com/minio/highwayhash"
)

var hashKey = []byte("sqfls-content-hash-key-000000000")

// ContentHash returns a stable 64-bit HighwayHash of data, hex encoded.
func ContentHash(data []byte) (string, error) {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return "", fmt.Errorf("content hash: %w", err)
	}
	if _, err := h.Write(data); err != nil {
		return "", fmt.Errorf("content hash: %w", err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// Fingerprint hashes a file's text together with the rows derived from it.
// Two FileData with equal fingerprints write identical rows, so a stored
// file whose hash matches need not be rewritten.
func Fingerprint(text []byte, data *FileData) (string, error) {
	rows, err := json.Marshal(struct {
		Function    string
		Fatal       bool
		Globals     []Global
		Diagnostics []Diagnostic
	}{data.File.Function, data.File.Fatal, data.Globals, data.Diagnostics})
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	buf := make([]byte, 0, len(text)+1+len(rows))
	buf = append(buf, text...)
	buf = append(buf, 0)
	buf = append(buf, rows...)
	return ContentHash(buf)
}
