package controllers

import (
	"fmt"
	"strings"

	"github.com/amaumene/neocable/internal/models"
)

// BuildQuery derives the indexer search string for a program. Movies
// search as "Title YYYY" (year comes from the metadata record when
// known), episodes and shows as "Title SxxEyy" using the chosen episode.
func BuildQuery(program *models.Program, rec *models.MetadataRecord) string {
	title := strings.TrimSpace(program.Title)

	if program.Kind == models.ProgramKindMovie {
		if rec != nil {
			if year := rec.ReleaseYear(); year != "" {
				return fmt.Sprintf("%s %s", title, year)
			}
		}
		return title
	}

	season, number := 0, 0
	if program.Season != nil && program.EpisodeNumber != nil {
		season, number = *program.Season, *program.EpisodeNumber
	} else if rec != nil {
		season, number = rec.Season, rec.EpisodeNumber
	}
	if season == 0 && number == 0 {
		return title
	}
	return fmt.Sprintf("%s S%02dE%02d", title, season, number)
}
