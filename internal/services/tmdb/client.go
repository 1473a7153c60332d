package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/amaumene/neocable/internal/config"
	"github.com/sirupsen/logrus"
)

const defaultBaseURL = "https://api.themoviedb.org/3"

// ErrFetchFailed wraps every TMDB failure (non-2xx, network error,
// malformed body) so callers never cache a partial record.
type ErrFetchFailed struct {
	Path   string
	Status int
	Err    error
}

func (e *ErrFetchFailed) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("tmdb fetch %s failed with status %d", e.Path, e.Status)
	}
	return fmt.Sprintf("tmdb fetch %s failed: %v", e.Path, e.Err)
}

func (e *ErrFetchFailed) Unwrap() error { return e.Err }

// Client fetches movie/show/episode data from TMDB
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new TMDB client
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.TMDBAPIKey == "" {
		return nil, fmt.Errorf("TMDB API key is required")
	}

	baseURL := defaultBaseURL
	if cfg.TMDBBaseURL != "" {
		baseURL = strings.TrimRight(cfg.TMDBBaseURL, "/")
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.TMDBAPIKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}, nil
}

// doRequest performs a GET against the TMDB API and decodes the response
func (c *Client) doRequest(ctx context.Context, path string, result interface{}) error {
	fullURL := fmt.Sprintf("%s%s?api_key=%s", c.baseURL, path, url.QueryEscape(c.apiKey))

	c.logger.WithField("path", path).Debug("Making TMDB API request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return &ErrFetchFailed{Path: path, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ErrFetchFailed{Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		c.logger.WithFields(logrus.Fields{
			"path":        path,
			"status_code": resp.StatusCode,
			"body":        string(bodyBytes),
		}).Warn("TMDB API returned non-OK status")
		return &ErrFetchFailed{Path: path, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &ErrFetchFailed{Path: path, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return nil
}

// GetMovie retrieves a movie's detail record
func (c *Client) GetMovie(ctx context.Context, id int64) (*Movie, error) {
	var movie Movie
	if err := c.doRequest(ctx, fmt.Sprintf("/movie/%d", id), &movie); err != nil {
		return nil, err
	}
	return &movie, nil
}

// GetShow retrieves a show's detail record, including its season list
func (c *Client) GetShow(ctx context.Context, id int64) (*Show, error) {
	var show Show
	if err := c.doRequest(ctx, fmt.Sprintf("/tv/%d", id), &show); err != nil {
		return nil, err
	}
	return &show, nil
}

// GetSeason retrieves a season's episode list
func (c *Client) GetSeason(ctx context.Context, showID int64, season int) (*Season, error) {
	var s Season
	if err := c.doRequest(ctx, fmt.Sprintf("/tv/%d/season/%d", showID, season), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetEpisode retrieves a specific episode's detail record
func (c *Client) GetEpisode(ctx context.Context, showID int64, season, episode int) (*Episode, error) {
	var ep Episode
	path := fmt.Sprintf("/tv/%d/season/%d/episode/%d", showID, season, episode)
	if err := c.doRequest(ctx, path, &ep); err != nil {
		return nil, err
	}
	return &ep, nil
}
