// Package prowlarr searches the torrent indexer aggregator for candidate
// content hashes.
package prowlarr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/amaumene/neocable/internal/config"
	"github.com/amaumene/neocable/internal/models"
	"github.com/amaumene/neocable/internal/ratelimit"
	"github.com/amaumene/neocable/internal/utils"
	"github.com/sirupsen/logrus"
)

// Release is a single search result from the Prowlarr API
type Release struct {
	Title    string `json:"title"`
	InfoHash string `json:"infoHash"`
	Seeders  int    `json:"seeders"`
	Size     int64  `json:"size"`
	Indexer  string `json:"indexer"`
}

// Client wraps direct Prowlarr API HTTP calls
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	gate       *ratelimit.Gate
	logger     *logrus.Logger
}

// NewClient creates a new Prowlarr client
func NewClient(cfg *config.Config, gate *ratelimit.Gate, logger *logrus.Logger) (*Client, error) {
	if cfg.ProwlarrURL == "" {
		return nil, fmt.Errorf("prowlarr URL is required")
	}
	if cfg.ProwlarrKey == "" {
		return nil, fmt.Errorf("prowlarr API key is required")
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.ProwlarrURL, "/"),
		apiKey:     cfg.ProwlarrKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		gate:       gate,
		logger:     logger,
	}, nil
}

// Search sends the query to the indexer aggregator and returns candidate
// hashes: results without an info hash are dropped, duplicates collapse to
// the highest seeder count seen, and the list is ordered by seeders
// descending (ties broken by title distance to the query). An empty
// response is a routine outcome, not an error.
func (c *Client) Search(ctx context.Context, query string) ([]models.CandidateHash, error) {
	if err := c.gate.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Add("apikey", c.apiKey)
	params.Add("query", query)
	params.Add("type", "search")
	finalURL := fmt.Sprintf("%s/api/v1/search?%s", c.baseURL, params.Encode())

	c.logger.WithField("query", query).Debug("Performing Prowlarr search")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "neocable/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prowlarr API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"body":        string(body),
		}).Warn("Prowlarr API returned non-OK status")
		return nil, fmt.Errorf("prowlarr API returned status %d", resp.StatusCode)
	}

	var releases []Release
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	candidates := convertReleases(query, releases)

	c.logger.WithFields(logrus.Fields{
		"query":  query,
		"total":  len(releases),
		"hashes": len(candidates),
	}).Debug("Prowlarr search completed")

	return candidates, nil
}

// convertReleases filters, deduplicates and orders raw releases
func convertReleases(query string, releases []Release) []models.CandidateHash {
	seen := make(map[string]int) // hash -> index into candidates
	var candidates []models.CandidateHash

	for _, r := range releases {
		hash := strings.ToLower(strings.TrimSpace(r.InfoHash))
		if hash == "" {
			continue
		}
		// a hash can appear from multiple trackers; keep the best seeder count
		if i, ok := seen[hash]; ok {
			if r.Seeders > candidates[i].Seeders {
				candidates[i].Seeders = r.Seeders
				candidates[i].Title = r.Title
			}
			continue
		}
		seen[hash] = len(candidates)
		candidates = append(candidates, models.CandidateHash{
			InfoHash: hash,
			Seeders:  r.Seeders,
			Title:    r.Title,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Seeders != candidates[j].Seeders {
			return candidates[i].Seeders > candidates[j].Seeders
		}
		return utils.TitleDistance(query, candidates[i].Title) <
			utils.TitleDistance(query, candidates[j].Title)
	})

	return candidates
}
