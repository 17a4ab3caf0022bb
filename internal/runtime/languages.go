package runtime

import (
	"path/filepath"
	"strings"
)

// extToLanguage maps file extensions to the kind of source they hold.
var extToLanguage = map[string]string{
	".sqf": "sqf",
	".cpp": "config",
	".ext": "config",
	".hpp": "header",
	".h":   "header",
	".inc": "header",
}

// LanguageForFile returns the source kind for a file path based on its
// extension. Returns ("", false) if the extension is not recognized.
func LanguageForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extToLanguage[ext]
	return lang, ok
}
