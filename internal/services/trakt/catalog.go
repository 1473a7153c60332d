package trakt

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// CatalogItem is one title pulled from a Trakt discovery list, reduced
// to what the lineup needs.
type CatalogItem struct {
	Title  string
	Year   int
	TMDBID int64
}

type itemIDs struct {
	Trakt int64 `json:"trakt"`
	TMDB  int64 `json:"tmdb"`
}

type titleRef struct {
	Title string  `json:"title"`
	Year  int     `json:"year"`
	IDs   itemIDs `json:"ids"`
}

// listEntry covers every shape Trakt discovery endpoints return: trending
// and box office wrap the title under "movie"/"show", while popular and
// recommendations return the title fields at the top level.
type listEntry struct {
	Movie *titleRef `json:"movie"`
	Show  *titleRef `json:"show"`
	titleRef
}

func (e *listEntry) item() CatalogItem {
	switch {
	case e.Movie != nil:
		return CatalogItem{Title: e.Movie.Title, Year: e.Movie.Year, TMDBID: e.Movie.IDs.TMDB}
	case e.Show != nil:
		return CatalogItem{Title: e.Show.Title, Year: e.Show.Year, TMDBID: e.Show.IDs.TMDB}
	default:
		return CatalogItem{Title: e.Title, Year: e.Year, TMDBID: e.IDs.TMDB}
	}
}

// FetchList fetches a discovery list and returns up to limit items that
// carry a TMDB id. Duplicate ids are dropped, first occurrence wins.
func (c *Client) FetchList(ctx context.Context, path string, limit int) ([]CatalogItem, error) {
	query := fmt.Sprintf("%s?limit=%d", path, limit*2)

	var entries []listEntry
	if err := c.doRequest(ctx, "GET", query, nil, &entries); err != nil {
		return nil, fmt.Errorf("failed to fetch list %s: %w", path, err)
	}

	seen := make(map[int64]bool)
	items := make([]CatalogItem, 0, limit)
	for i := range entries {
		it := entries[i].item()
		if it.TMDBID == 0 || it.Title == "" || seen[it.TMDBID] {
			continue
		}
		seen[it.TMDBID] = true
		items = append(items, it)
		if len(items) >= limit {
			break
		}
	}

	c.logger.WithFields(logrus.Fields{
		"list":  path,
		"items": len(items),
	}).Debug("Fetched Trakt list")

	return items, nil
}
