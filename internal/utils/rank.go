package utils

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
)

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeReleaseTitle lowercases a release title and collapses
// separators (dots, dashes, brackets) into single spaces so titles from
// different trackers compare cleanly.
func NormalizeReleaseTitle(title string) string {
	return strings.TrimSpace(nonAlnumRe.ReplaceAllString(strings.ToLower(title), " "))
}

// TitleDistance measures how far a release title strays from the query
// that produced it. The release title is truncated to the query's length
// first, so quality tags and group names after the title don't count
// against the match.
func TitleDistance(query, releaseTitle string) int {
	q := NormalizeReleaseTitle(query)
	r := NormalizeReleaseTitle(releaseTitle)
	if len(r) > len(q) {
		r = strings.TrimSpace(r[:len(q)])
	}
	return levenshtein.ComputeDistance(q, r)
}
