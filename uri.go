package sqfls

import (
	"errors"
	"net/url"
	"path/filepath"
	"strings"
)

// ErrNotFile is returned for document URIs that do not name a local file.
var ErrNotFile = errors.New("sqfls: not a file URI")

// PathFromURI converts a file:// URI to a cleaned filesystem path.
func PathFromURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", errors.Join(ErrNotFile, err)
	}
	if u.Scheme != "file" || (u.Host != "" && u.Host != "localhost") {
		return "", ErrNotFile
	}
	p := u.Path
	// file:///C:/x arrives as /C:/x on Windows.
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	if p == "" {
		return "", ErrNotFile
	}
	return filepath.Clean(filepath.FromSlash(p)), nil
}

// URIFromPath converts an absolute filesystem path to a file:// URI.
func URIFromPath(path string) string {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}
