package realdebrid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/amaumene/neocable/internal/utils"
	"github.com/sirupsen/logrus"
)

const addMagnetMaxRetries = 6

// ResolveOptions controls the polling budget and the file selection
// policy of a magnet resolution.
type ResolveOptions struct {
	PollInterval time.Duration
	Timeout      time.Duration
	Selection    utils.FileSelection
}

// DefaultResolveOptions polls every second for up to thirty seconds and
// uses the default file selection policy.
func DefaultResolveOptions() ResolveOptions {
	return ResolveOptions{
		PollInterval: time.Second,
		Timeout:      30 * time.Second,
		Selection:    utils.DefaultFileSelection(),
	}
}

// Resolution is a successfully unrestricted stream
type Resolution struct {
	TorrentID   string
	DownloadURL string
	Filename    string
	Host        string
	Filesize    int64
}

// ResolveMagnet runs the full add → await files → select → await download
// → unrestrict state machine and returns a direct CDN URL. Concurrent
// calls for the same content hash share a single run. Every failure is
// tagged with the stage it happened in.
func (c *Client) ResolveMagnet(ctx context.Context, token, magnet string, opts ResolveOptions) (*Resolution, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	key := utils.HashFromMagnet(magnet)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		return c.resolveMagnet(ctx, token, magnet, opts)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Resolution), nil
}

func (c *Client) resolveMagnet(ctx context.Context, token, magnet string, opts ResolveOptions) (*Resolution, error) {
	deadline := time.Now().Add(opts.Timeout)

	torrentID, err := c.addMagnet(ctx, token, magnet)
	if err != nil {
		return nil, err
	}

	log := c.log(logrus.Fields{"torrent_id": torrentID})
	log.Debug("Magnet added")

	// Await the file listing. Some torrents skip straight to downloaded
	// with links already populated.
	info, err := c.awaitInfo(ctx, token, torrentID, deadline, opts.PollInterval, StageAwaitFiles,
		func(i *torrentInfo) bool {
			return len(i.Files) > 0 || (len(i.Links) > 0 && i.Status == "downloaded")
		})
	if err != nil {
		return nil, err
	}

	if len(info.Files) > 0 {
		if err := c.selectFiles(ctx, token, torrentID, info.Files, opts.Selection); err != nil {
			return nil, err
		}
	}

	info, err = c.awaitInfo(ctx, token, torrentID, deadline, opts.PollInterval, StageAwaitDownload,
		func(i *torrentInfo) bool {
			return i.Status == "downloaded" && len(i.Links) > 0
		})
	if err != nil {
		return nil, err
	}

	unres, err := c.unrestrict(ctx, token, torrentID, info.Links[0])
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"host":     unres.Host,
		"filesize": unres.Filesize,
	}).Info("Magnet resolved to direct link")

	return &Resolution{
		TorrentID:   torrentID,
		DownloadURL: unres.Download,
		Filename:    unres.Filename,
		Host:        unres.Host,
		Filesize:    unres.Filesize,
	}, nil
}

// addMagnet posts the magnet to the provider, retrying 429s with backoff
// up to a bounded attempt count
func (c *Client) addMagnet(ctx context.Context, token, magnet string) (string, error) {
	form := url.Values{}
	form.Set("magnet", magnet)

	var status int
	var body []byte

	op := func() error {
		if err := c.gate.Wait(ctx); err != nil {
			return err
		}

		var header http.Header
		var err error
		status, header, body, err = c.postForm(ctx, token, "/torrents/addMagnet", form)
		if err != nil {
			return err
		}
		if status == 429 {
			return &utils.RateLimitError{
				Status:     status,
				Body:       string(body),
				RetryAfter: retryAfterHint(header.Get("Retry-After")),
			}
		}
		return nil
	}

	if err := utils.RetryRateLimited(ctx, addMagnetMaxRetries, 800*time.Millisecond, op); err != nil {
		var rl *utils.RateLimitError
		if errors.As(err, &rl) {
			return "", &StageError{Stage: StageAddMagnet, Status: rl.Status, Body: rl.Body, Err: ErrRateLimited}
		}
		return "", &StageError{Stage: StageAddMagnet, Err: err}
	}

	if status < 200 || status >= 300 {
		return "", &StageError{Stage: StageAddMagnet, Status: status, Body: string(body), Err: ErrProviderError}
	}

	var parsed addMagnetResponse
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.ID == "" {
		return "", &StageError{Stage: StageAddMagnet, Status: status, Body: string(body),
			Err: fmt.Errorf("no torrent id in response")}
	}
	return parsed.ID, nil
}

// fetchInfo fetches the current state of a torrent
func (c *Client) fetchInfo(ctx context.Context, token, id string) (*torrentInfo, error) {
	status, body, err := c.get(ctx, token, "/torrents/info/"+id)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("info returned status %d: %s", status, string(body))
	}
	var info torrentInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to decode info response: %w", err)
	}
	return &info, nil
}

// awaitInfo polls the torrent until done reports true or the deadline
// passes, in which case a Timeout failure carries the last known status
func (c *Client) awaitInfo(ctx context.Context, token, id string, deadline time.Time, poll time.Duration, stage Stage, done func(*torrentInfo) bool) (*torrentInfo, error) {
	lastKnown := ""
	for {
		info, err := c.fetchInfo(ctx, token, id)
		if err != nil {
			return nil, &StageError{Stage: stage, TorrentID: id, Err: err}
		}
		if done(info) {
			return info, nil
		}
		lastKnown = info.Status

		if time.Now().Add(poll).After(deadline) {
			return nil, &StageError{Stage: stage, TorrentID: id, LastKnown: lastKnown, Err: ErrTimeout}
		}

		timer := time.NewTimer(poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &StageError{Stage: stage, TorrentID: id, LastKnown: lastKnown, Err: ctx.Err()}
		case <-timer.C:
		}
	}
}

// selectFiles picks the best playable file and posts its id
func (c *Client) selectFiles(ctx context.Context, token, id string, files []torrentFile, sel utils.FileSelection) error {
	candidates := make([]utils.VideoFile, 0, len(files))
	for _, f := range files {
		candidates = append(candidates, utils.VideoFile{ID: f.ID, Name: f.Path, Size: f.Bytes})
	}

	pick, err := utils.PickBestFile(candidates, sel)
	if err != nil {
		return &StageError{Stage: StageSelectFiles, TorrentID: id, Err: err}
	}

	form := url.Values{}
	form.Set("files", strconv.FormatInt(pick.ID, 10))

	status, _, body, err := c.postForm(ctx, token, "/torrents/selectFiles/"+id, form)
	if err != nil {
		return &StageError{Stage: StageSelectFiles, TorrentID: id, Err: err}
	}
	if status < 200 || status >= 300 {
		return &StageError{Stage: StageSelectFiles, TorrentID: id, Status: status,
			Body: string(body), Err: ErrProviderError}
	}

	c.log(logrus.Fields{
		"torrent_id": id,
		"file":       pick.Name,
		"size":       pick.Size,
	}).Debug("Selected torrent file")

	return nil
}

// unrestrict converts a restricted provider link into a direct CDN URL
func (c *Client) unrestrict(ctx context.Context, token, id, link string) (*unrestrictResponse, error) {
	form := url.Values{}
	form.Set("link", link)

	status, _, body, err := c.postForm(ctx, token, "/unrestrict/link", form)
	if err != nil {
		return nil, &StageError{Stage: StageUnrestrict, TorrentID: id, Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &StageError{Stage: StageUnrestrict, TorrentID: id, Status: status,
			Body: string(body), Err: ErrUnrestrictFailed}
	}

	var parsed unrestrictResponse
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Download == "" {
		return nil, &StageError{Stage: StageUnrestrict, TorrentID: id, Status: status,
			Body: string(body), Err: fmt.Errorf("no download URL in response")}
	}
	return &parsed, nil
}
