package utils

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	unsafeChars    = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	unsafeExtChars = regexp.MustCompile(`[^a-zA-Z0-9.]`)
	whitespace     = regexp.MustCompile(`\s+`)
)

// IsImageMime checks whether a provider-reported mime type is an image
func IsImageMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// SanitizePhotographerName normalizes a photographer name for use as a
// storage key segment
func SanitizePhotographerName(name string) string {
	s := whitespace.ReplaceAllString(strings.TrimSpace(name), "_")
	s = unsafeChars.ReplaceAllString(s, "")
	return strings.ToLower(s)
}

// SanitizeFilename normalizes an original filename for use in a storage
// key, preserving the extension. The name part is capped at 100 characters.
func SanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	name := strings.TrimSuffix(filename, ext)

	name = whitespace.ReplaceAllString(strings.TrimSpace(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.ToLower(name)
	if len(name) > 100 {
		name = name[:100]
	}

	ext = strings.ToLower(unsafeExtChars.ReplaceAllString(ext, ""))
	return name + ext
}
