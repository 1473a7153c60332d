package controllers

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/amaumene/neocable/internal/models"
	"github.com/amaumene/neocable/internal/services/tmdb"
	"github.com/sirupsen/logrus"
)

// MetadataController fills the metadata cache from TMDB. For shows it
// also picks the preview episode and persists the choice on the program,
// so the program keeps playing the same episode for the process lifetime.
type MetadataController struct {
	db     *models.Database
	tmdb   *tmdb.Client
	cache  *MetaCache
	rng    *rand.Rand
	logger *logrus.Logger
}

// NewMetadataController creates a new metadata controller
func NewMetadataController(db *models.Database, tmdbClient *tmdb.Client, cache *MetaCache, logger *logrus.Logger) *MetadataController {
	return &MetadataController{
		db:     db,
		tmdb:   tmdbClient,
		cache:  cache,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger,
	}
}

// GetCached returns the cached record for a program, without fetching.
// The second return is false when the program has no metadata yet.
func (mc *MetadataController) GetCached(program *models.Program) (*models.MetadataRecord, bool) {
	key, ok := program.LookupKey()
	if !ok {
		return nil, false
	}
	return mc.cache.Get(key)
}

// Ensure returns the metadata record for a program, fetching from TMDB
// on a cache miss. Concurrent callers are expected to go through the
// resolver, which coalesces per program.
func (mc *MetadataController) Ensure(ctx context.Context, program *models.Program) (*models.MetadataRecord, error) {
	if program.Kind == models.ProgramKindMovie {
		return mc.ensureMovie(ctx, program)
	}
	return mc.ensureEpisode(ctx, program)
}

func (mc *MetadataController) ensureMovie(ctx context.Context, program *models.Program) (*models.MetadataRecord, error) {
	if rec, ok := mc.cache.Get(program.TMDBID); ok {
		return rec, nil
	}

	movie, err := mc.tmdb.GetMovie(ctx, program.TMDBID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch movie %d: %w", program.TMDBID, err)
	}

	rec := &models.MetadataRecord{
		Overview:       movie.Overview,
		Genres:         genreNames(movie.Genres),
		ReleaseDate:    movie.ReleaseDate,
		RuntimeMinutes: movie.Runtime,
	}
	mc.cache.Set(program.TMDBID, rec)

	mc.logger.WithFields(logrus.Fields{
		"program_id": program.ID,
		"tmdb_id":    program.TMDBID,
	}).Debug("Cached movie metadata")

	return rec, nil
}

func (mc *MetadataController) ensureEpisode(ctx context.Context, program *models.Program) (*models.MetadataRecord, error) {
	if key, ok := program.LookupKey(); ok {
		if rec, cached := mc.cache.Get(key); cached {
			return rec, nil
		}
	}

	episode, err := mc.resolveEpisode(ctx, program)
	if err != nil {
		return nil, err
	}

	if rec, ok := mc.cache.Get(episode.ID); ok {
		return rec, nil
	}

	show, err := mc.tmdb.GetShow(ctx, program.TMDBID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch show %d: %w", program.TMDBID, err)
	}

	rec := &models.MetadataRecord{
		Overview:       episode.Overview,
		Genres:         genreNames(show.Genres),
		ReleaseDate:    episode.AirDate,
		RuntimeMinutes: episode.Runtime,
		EpisodeTitle:   episode.Name,
		Season:         episode.SeasonNumber,
		EpisodeNumber:  episode.EpisodeNumber,
	}
	mc.cache.Set(episode.ID, rec)

	mc.logger.WithFields(logrus.Fields{
		"program_id": program.ID,
		"tmdb_id":    program.TMDBID,
		"season":     episode.SeasonNumber,
		"episode":    episode.EpisodeNumber,
	}).Debug("Cached episode metadata")

	return rec, nil
}

// resolveEpisode returns the concrete episode the program plays. Shows
// with no episode chosen yet get a random released one, persisted on the
// program so the pick is stable.
func (mc *MetadataController) resolveEpisode(ctx context.Context, program *models.Program) (*tmdb.Episode, error) {
	if program.Kind == models.ProgramKindEpisode && program.Season != nil && program.EpisodeNumber != nil {
		episode, err := mc.tmdb.GetEpisode(ctx, program.TMDBID, *program.Season, *program.EpisodeNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch episode: %w", err)
		}
		if program.EpisodeTMDBID == nil {
			mc.persistEpisodePick(program, episode)
		}
		return episode, nil
	}

	if program.EpisodeTMDBID != nil && program.Season != nil && program.EpisodeNumber != nil {
		episode, err := mc.tmdb.GetEpisode(ctx, program.TMDBID, *program.Season, *program.EpisodeNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch chosen episode: %w", err)
		}
		return episode, nil
	}

	episode, err := mc.tmdb.ResolveRandomEpisode(ctx, program.TMDBID, time.Now(), mc.rng)
	if err != nil {
		return nil, fmt.Errorf("failed to pick episode for show %d: %w", program.TMDBID, err)
	}
	mc.persistEpisodePick(program, episode)
	return episode, nil
}

func (mc *MetadataController) persistEpisodePick(program *models.Program, episode *tmdb.Episode) {
	season := episode.SeasonNumber
	number := episode.EpisodeNumber
	id := episode.ID
	program.Season = &season
	program.EpisodeNumber = &number
	program.EpisodeTMDBID = &id

	if err := mc.db.UpdateProgram(program); err != nil {
		mc.logger.WithError(err).WithField("program_id", program.ID).
			Warn("Failed to persist episode pick")
	}
}

func genreNames(genres []tmdb.Genre) []string {
	names := make([]string, 0, len(genres))
	for _, g := range genres {
		names = append(names, g.Name)
	}
	return names
}
