package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/amaumene/neocable/internal/config"
	"github.com/amaumene/neocable/internal/models"
	"github.com/amaumene/neocable/internal/services/trakt"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// channelDef is a built-in channel backed by a Trakt discovery list
type channelDef struct {
	Slug     string
	Name     string
	ListPath string
	ListKind models.ListKind
}

var defaultChannels = []channelDef{
	{Slug: "boxoffice", Name: "Weekend Box Office", ListPath: "/movies/boxoffice", ListKind: models.ListKindMovies},
	{Slug: "most-played", Name: "Week's Most Played Movies", ListPath: "/movies/played/weekly", ListKind: models.ListKindMovies},
	{Slug: "popular", Name: "Most Popular Movies", ListPath: "/movies/popular", ListKind: models.ListKindMovies},
	{Slug: "trending-movies", Name: "Trending Movies 24 HRs", ListPath: "/movies/trending", ListKind: models.ListKindMovies},
	{Slug: "trending-shows", Name: "Trending Shows 24 HRs", ListPath: "/shows/trending", ListKind: models.ListKindShows},
	{Slug: "recently-watched", Name: "Recently Watched Movies", ListPath: "/sync/history/movies", ListKind: models.ListKindMovies},
	{Slug: "recommended-movies", Name: "Recommended Movies", ListPath: "/recommendations/movies", ListKind: models.ListKindMovies},
	{Slug: "recommended-shows", Name: "Recommended Shows", ListPath: "/recommendations/shows", ListKind: models.ListKindShows},
}

// LineupController keeps the channel catalog in sync with the Trakt
// discovery lists backing each channel.
type LineupController struct {
	cfg    *config.Config
	db     *models.Database
	trakt  *trakt.Client
	logger *logrus.Logger
}

// NewLineupController creates a new lineup controller
func NewLineupController(cfg *config.Config, db *models.Database, traktClient *trakt.Client, logger *logrus.Logger) *LineupController {
	return &LineupController{
		cfg:    cfg,
		db:     db,
		trakt:  traktClient,
		logger: logger,
	}
}

// RefreshLineup rebuilds every channel's lineup from its backing list.
// Programs still present keep their identity (and their episode pick);
// programs that dropped out of the list are swept at the end. One failed
// list leaves that channel's previous lineup in place.
func (lc *LineupController) RefreshLineup(ctx context.Context) error {
	channels, err := lc.ensureChannels()
	if err != nil {
		return fmt.Errorf("failed to seed channels: %w", err)
	}

	var failed int
	for _, channel := range channels {
		if err := lc.refreshChannel(ctx, channel); err != nil {
			lc.logger.WithError(err).WithField("channel", channel.Slug).
				Warn("Failed to refresh channel")
			failed++
		}
	}
	if failed == len(channels) {
		return fmt.Errorf("all %d channels failed to refresh", failed)
	}

	removed, err := lc.db.DeleteProgramsOutOfLineup()
	if err != nil {
		return fmt.Errorf("failed to sweep stale programs: %w", err)
	}

	total, _ := lc.db.CountPrograms()
	lc.logger.WithFields(logrus.Fields{
		"channels": len(channels),
		"programs": total,
		"removed":  removed,
	}).Info("Lineup refreshed")

	return nil
}

// ensureChannels creates the built-in channels on first run, re-syncs
// ones whose definition changed across a deploy, and returns them in
// display order
func (lc *LineupController) ensureChannels() ([]*models.Channel, error) {
	channels := make([]*models.Channel, 0, len(defaultChannels))
	for i, def := range defaultChannels {
		channel, err := lc.db.GetChannelBySlug(def.Slug)
		if err != nil {
			channel = &models.Channel{
				ID:        uuid.New().String(),
				Slug:      def.Slug,
				Name:      def.Name,
				ListPath:  def.ListPath,
				ListKind:  def.ListKind,
				Position:  i,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}
			if err := lc.db.CreateChannel(channel); err != nil {
				return nil, fmt.Errorf("failed to create channel %s: %w", def.Slug, err)
			}
			lc.logger.WithField("channel", def.Slug).Info("Created channel")
		} else if channel.Name != def.Name || channel.ListPath != def.ListPath ||
			channel.ListKind != def.ListKind || channel.Position != i {
			channel.Name = def.Name
			channel.ListPath = def.ListPath
			channel.ListKind = def.ListKind
			channel.Position = i
			if err := lc.db.UpdateChannel(channel); err != nil {
				return nil, fmt.Errorf("failed to update channel %s: %w", def.Slug, err)
			}
			lc.logger.WithField("channel", def.Slug).Info("Updated channel definition")
		}
		channels = append(channels, channel)
	}
	return channels, nil
}

func (lc *LineupController) refreshChannel(ctx context.Context, channel *models.Channel) error {
	items, err := lc.trakt.FetchList(ctx, channel.ListPath, lc.cfg.ChannelItemLimit)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("list %s returned no items", channel.ListPath)
	}

	if err := lc.db.MarkChannelProgramsOutOfLineup(channel.ID); err != nil {
		return fmt.Errorf("failed to mark channel programs: %w", err)
	}

	kind := models.ProgramKindMovie
	if channel.ListKind == models.ListKindShows {
		kind = models.ProgramKindShow
	}

	now := time.Now()
	for position, item := range items {
		existing, err := lc.db.GetProgramByChannelAndTMDB(channel.ID, item.TMDBID, kind)
		if err == nil {
			existing.Position = position
			existing.InLineup = true
			existing.LastSeenInList = now
			existing.UpdatedAt = now
			if err := lc.db.UpdateProgram(existing); err != nil {
				return fmt.Errorf("failed to update program %s: %w", existing.ID, err)
			}
			continue
		}

		program := &models.Program{
			ID:             uuid.New().String(),
			ChannelID:      channel.ID,
			Kind:           kind,
			Title:          item.Title,
			TMDBID:         item.TMDBID,
			Position:       position,
			InLineup:       true,
			LastSeenInList: now,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := lc.db.CreateProgram(program); err != nil {
			return fmt.Errorf("failed to create program for tmdb %d: %w", item.TMDBID, err)
		}
	}

	lc.logger.WithFields(logrus.Fields{
		"channel": channel.Slug,
		"items":   len(items),
	}).Debug("Refreshed channel lineup")

	return nil
}
