package realdebrid

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step a resolution failure happened in, so the
// caller can tell "nothing matched" from "provider error" from "timed out".
type Stage string

const (
	StageAddMagnet     Stage = "addMagnet"
	StageAwaitFiles    Stage = "awaitFiles"
	StageSelectFiles   Stage = "selectFiles"
	StageAwaitDownload Stage = "awaitDownload"
	StageUnrestrict    Stage = "unrestrict"
)

// Failure kinds. Transient conditions (rate limited, timed out) are
// distinct from structural ones (no supported video), so a caller may
// choose to retry only the former.
var (
	ErrRateLimited      = errors.New("rate limited by provider")
	ErrTimeout          = errors.New("timed out waiting for provider")
	ErrUnrestrictFailed = errors.New("unrestrict failed")
	ErrProviderError    = errors.New("provider error")
)

// StageError tags a resolution failure with the stage it happened in,
// plus whatever the provider last reported for diagnostics.
type StageError struct {
	Stage     Stage
	TorrentID string
	Status    int    // HTTP status, when the failure was an HTTP response
	Body      string // provider response body, when available
	LastKnown string // last observed torrent status, for timeouts
	Err       error
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("debrid %s failed", e.Stage)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.LastKnown != "" {
		msg = fmt.Sprintf("%s (last status %q)", msg, e.LastKnown)
	}
	return msg
}

func (e *StageError) Unwrap() error { return e.Err }
