// Package realdebrid turns a magnet link into a direct CDN URL through
// the Real-Debrid REST API.
package realdebrid

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amaumene/neocable/internal/config"
	"github.com/amaumene/neocable/internal/ratelimit"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const defaultBaseURL = "https://api.real-debrid.com/rest/1.0"

// torrentFile is one file inside a torrent's info listing
type torrentFile struct {
	ID    int64  `json:"id"`
	Path  string `json:"path"`
	Bytes int64  `json:"bytes"`
}

// torrentInfo is the /torrents/info/{id} response
type torrentInfo struct {
	ID       string        `json:"id"`
	Status   string        `json:"status"`
	Filename string        `json:"filename"`
	Files    []torrentFile `json:"files"`
	Links    []string      `json:"links"`
}

// addMagnetResponse is the /torrents/addMagnet response
type addMagnetResponse struct {
	ID string `json:"id"`
}

// unrestrictResponse is the /unrestrict/link response
type unrestrictResponse struct {
	Download string `json:"download"`
	Host     string `json:"host"`
	Filesize int64  `json:"filesize"`
	Filename string `json:"filename"`
}

// Client wraps direct Real-Debrid API HTTP calls. Concurrent resolutions
// of the same content hash are coalesced into one provider interaction.
type Client struct {
	baseURL    string
	httpClient *http.Client
	gate       *ratelimit.Gate
	group      singleflight.Group
	logger     *logrus.Logger
}

// NewClient creates a new Real-Debrid client
func NewClient(cfg *config.Config, gate *ratelimit.Gate, logger *logrus.Logger) (*Client, error) {
	baseURL := defaultBaseURL
	if cfg.RealDebridURL != "" {
		baseURL = strings.TrimRight(cfg.RealDebridURL, "/")
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		gate:       gate,
		logger:     logger,
	}, nil
}

// postForm performs an authenticated form-encoded POST and returns the
// status code, response headers and raw body
func (c *Client) postForm(ctx context.Context, token, path string, form url.Values) (int, http.Header, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, resp.Header, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, resp.Header, body, nil
}

// get performs an authenticated GET and returns the status code and raw body
func (c *Client) get(ctx context.Context, token, path string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// retryAfterHint parses a Retry-After header value in seconds
func retryAfterHint(value string) time.Duration {
	if value == "" {
		return 0
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func (c *Client) log(fields logrus.Fields) *logrus.Entry {
	return c.logger.WithFields(fields)
}
