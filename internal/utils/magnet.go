package utils

import (
	"regexp"
	"strings"
)

var btihRe = regexp.MustCompile(`(?i)btih:([A-Za-z0-9]+)`)

// HashFromMagnet extracts the lowercased info hash from a magnet URI.
// Falls back to the raw input when no btih component is present, so the
// result is always usable as a coalescing key.
func HashFromMagnet(magnet string) string {
	if m := btihRe.FindStringSubmatch(magnet); m != nil {
		return strings.ToLower(m[1])
	}
	return magnet
}

// MagnetFromHash builds a minimal magnet URI for an info hash
func MagnetFromHash(hash string) string {
	return "magnet:?xt=urn:btih:" + strings.TrimSpace(hash)
}
