package utils

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNoSupportedVideo is returned when a file listing contains no playable
// video file under the given selection policy.
var ErrNoSupportedVideo = errors.New("no supported video file")

// VideoFile is a file inside a torrent, as reported by the debrid
// provider or the cache-checking service.
type VideoFile struct {
	ID   int64
	Name string
	Size int64
}

// FileSelection is the policy for picking a playable file out of a
// torrent's file listing.
type FileSelection struct {
	// AllowedExts, when set, keeps only these extensions. Otherwise
	// DisallowExts drops extensions from the supported set.
	AllowedExts  []string
	DisallowExts []string

	// ExcludeSamples drops sample/trailer/extras decoy files
	ExcludeSamples bool

	// MinSize drops files at or below this many bytes (0 = no floor)
	MinSize int64
}

// DefaultFileSelection excludes Matroska (the target playback surface
// cannot reliably play it) and sample files.
func DefaultFileSelection() FileSelection {
	return FileSelection{
		DisallowExts:   []string{"mkv"},
		ExcludeSamples: true,
	}
}

var (
	// mkv is handled separately: only considered when explicitly allowed
	videoExts = map[string]bool{"mp4": true, "m4v": true, "mov": true, "webm": true, "avi": true, "ts": true}
	sampleRe  = regexp.MustCompile(`(?i)(sample|trailer|extras?)`)
)

// fileExt returns the lowercased extension of name, without the dot
func fileExt(name string) string {
	i := strings.LastIndex(name, ".")
	if i == -1 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

func containsExt(exts []string, ext string) bool {
	for _, e := range exts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// PickBestFile picks the single best playable video file from a torrent's
// file listing: filter to supported video extensions, drop sample/trailer
// decoys, apply the allow/deny extension policy, then take the largest by
// size (ties: first encountered). Returns ErrNoSupportedVideo when nothing
// survives.
func PickBestFile(files []VideoFile, sel FileSelection) (VideoFile, error) {
	var best VideoFile
	found := false

	for _, f := range files {
		ext := fileExt(f.Name)
		if !videoExts[ext] && !(ext == "mkv" && containsExt(sel.AllowedExts, "mkv")) {
			continue
		}
		if sel.ExcludeSamples && sampleRe.MatchString(f.Name) {
			continue
		}
		if len(sel.AllowedExts) > 0 {
			if !containsExt(sel.AllowedExts, ext) {
				continue
			}
		} else if containsExt(sel.DisallowExts, ext) {
			continue
		}
		if sel.MinSize > 0 && f.Size <= sel.MinSize {
			continue
		}
		if !found || f.Size > best.Size {
			best = f
			found = true
		}
	}

	if !found {
		return VideoFile{}, ErrNoSupportedVideo
	}
	return best, nil
}
