package tmdb

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// airedBefore reports whether an air date (YYYY-MM-DD) is on or before now.
// Episodes without an air date are treated as unreleased.
func airedBefore(airDate string, now time.Time) bool {
	if airDate == "" {
		return false
	}
	t, err := time.Parse("2006-01-02", airDate)
	if err != nil {
		return false
	}
	return !t.After(now)
}

// ResolveRandomEpisode picks a concrete, already-aired episode for a show
// that has no episode chosen yet: a random season (season_number > 0),
// then a random released episode of that season (falling back to the
// season's first episode when none have aired), then the episode's own
// detail record. The catalog only carries a show-level reference, so the
// preview episode has to be invented here.
func (c *Client) ResolveRandomEpisode(ctx context.Context, showID int64, now time.Time, rng *rand.Rand) (*Episode, error) {
	show, err := c.GetShow(ctx, showID)
	if err != nil {
		return nil, err
	}

	var seasons []SeasonRef
	for _, s := range show.Seasons {
		if s.SeasonNumber > 0 {
			seasons = append(seasons, s)
		}
	}
	if len(seasons) == 0 {
		return nil, fmt.Errorf("show %d has no regular seasons", showID)
	}

	seasonNumber := seasons[rng.Intn(len(seasons))].SeasonNumber

	season, err := c.GetSeason(ctx, showID, seasonNumber)
	if err != nil {
		return nil, err
	}
	if len(season.Episodes) == 0 {
		return nil, fmt.Errorf("show %d season %d has no episodes", showID, seasonNumber)
	}

	var released []EpisodeRef
	for _, ep := range season.Episodes {
		if airedBefore(ep.AirDate, now) {
			released = append(released, ep)
		}
	}

	var chosen EpisodeRef
	if len(released) > 0 {
		chosen = released[rng.Intn(len(released))]
	} else {
		chosen = season.Episodes[0]
	}

	c.logger.WithFields(logrus.Fields{
		"show_id": showID,
		"season":  seasonNumber,
		"episode": chosen.EpisodeNumber,
	}).Debug("Chose random released episode")

	return c.GetEpisode(ctx, showID, seasonNumber, chosen.EpisodeNumber)
}
