package upload

import (
	"path"
	"regexp"
	"strings"
)

var badChars = regexp.MustCompile(`[\\/:*?"<>|\x00-\x1f]`)

// SanitizeFileName reduces a client supplied name to a single safe path
// element. Browsers on some platforms send full paths, so only the last
// element survives. Returns "" when nothing usable is left.
func SanitizeFileName(name string) string {
	res := path.Base(strings.ReplaceAll(name, "\\", "/"))

	// Windows/Linux/macOS safety
	res = badChars.ReplaceAllString(res, "_")
	res = strings.TrimSpace(res)

	switch res {
	case "", ".", "..", "/":
		return ""
	}
	return res
}
