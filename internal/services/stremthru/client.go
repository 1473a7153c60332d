// Package stremthru asks the debrid-cache-checking service which content
// hashes are instantly available.
package stremthru

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
	"github.com/amaumene/neocable/internal/models"
	"github.com/amaumene/neocable/internal/utils"
	"github.com/sirupsen/logrus"
)

const statusCached = "cached"

// checkResponse is the StremThru magnets/check response envelope
type checkResponse struct {
	Data struct {
		Items []struct {
			Hash   string `json:"hash"`
			Magnet string `json:"magnet"`
			Status string `json:"status"`
			Files  []struct {
				Name string `json:"name"`
				Size int64  `json:"size"`
			} `json:"files"`
		} `json:"items"`
	} `json:"data"`
}

// Client wraps direct StremThru API HTTP calls
type Client struct {
	baseURL    string
	store      string
	storeToken string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new StremThru client
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.StremThruURL == "" {
		return nil, fmt.Errorf("stremthru URL is required")
	}
	if cfg.RealDebridToken == "" {
		return nil, fmt.Errorf("store authorization token is required")
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.StremThruURL, "/"),
		store:      cfg.StremThruStore,
		storeToken: cfg.RealDebridToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}, nil
}

// CheckCached batches all hashes into one magnet-list query and returns
// the items the store already holds. Items whose status is anything but
// "cached" are discarded; only instantly-servable content is usable.
func (c *Client) CheckCached(ctx context.Context, hashes []string) ([]models.CachedItem, error) {
	if len(hashes) == 0 {
		return nil, fmt.Errorf("at least one hash is required")
	}

	magnets := make([]string, 0, len(hashes))
	for _, hash := range hashes {
		magnets = append(magnets, utils.MagnetFromHash(hash))
	}

	finalURL := fmt.Sprintf("%s/v0/store/magnets/check?magnet=%s",
		c.baseURL, url.QueryEscape(strings.Join(magnets, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, finalURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-StremThru-Store-Name", c.store)
	req.Header.Set("X-StremThru-Store-Authorization", "Bearer "+c.storeToken)

	c.logger.WithField("hashes", len(hashes)).Debug("Checking debrid cache availability")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stremthru API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"body":        string(body),
		}).Warn("StremThru API returned non-OK status")
		return nil, fmt.Errorf("stremthru API returned status %d", resp.StatusCode)
	}

	var parsed checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var items []models.CachedItem
	for _, item := range parsed.Data.Items {
		if item.Status != statusCached {
			continue
		}
		cached := models.CachedItem{
			Hash:   strings.ToLower(item.Hash),
			Magnet: item.Magnet,
		}
		for _, f := range item.Files {
			cached.Files = append(cached.Files, models.CachedFile{Name: f.Name, Size: f.Size})
		}
		items = append(items, cached)
	}

	c.logger.WithFields(logrus.Fields{
		"checked": len(hashes),
		"cached":  len(items),
	}).Debug("Cache availability check completed")

	return items, nil
}
