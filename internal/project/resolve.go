package project

import (
	"path/filepath"
	"sort"
	"strings"
)

// segments splits a game path on either separator, dropping empty and "."
// parts.
func segments(p string) []string {
	parts := strings.FieldsFunc(p, func(r rune) bool { return r == '\\' || r == '/' })
	out := parts[:0]
	for _, s := range parts {
		if s != "." {
			out = append(out, s)
		}
	}
	return out
}

func hasPrefixFold(prefix, segs []string) bool {
	if len(prefix) > len(segs) {
		return false
	}
	for i := range prefix {
		if !strings.EqualFold(prefix[i], segs[i]) {
			return false
		}
	}
	return true
}

// Resolve maps a declared path onto the filesystem. The longest alias whose
// segments prefix the declared path (case-insensitively) replaces that
// prefix with its directory; otherwise the path joins under base. A path
// starting with a separator is game-absolute and resolves only through an
// alias. Empty paths and ".." segments fail. The declared casing of the
// remaining segments is kept.
func Resolve(declared, base string, aliases map[string]string) (string, bool) {
	declared = strings.TrimSpace(declared)
	if declared == "" {
		return "", false
	}
	absolute := strings.HasPrefix(declared, `\`) || strings.HasPrefix(declared, "/")
	segs := segments(declared)
	if len(segs) == 0 {
		return "", false
	}
	for _, s := range segs {
		if s == ".." {
			return "", false
		}
	}

	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	bestLen := 0
	bestDir := ""
	for _, k := range keys {
		prefix := segments(k)
		if len(prefix) > bestLen && hasPrefixFold(prefix, segs) {
			bestLen = len(prefix)
			bestDir = aliases[k]
		}
	}
	if bestLen > 0 {
		return filepath.Join(append([]string{bestDir}, segs[bestLen:]...)...), true
	}
	if absolute || base == "" {
		return "", false
	}
	return filepath.Join(append([]string{base}, segs...)...), true
}
