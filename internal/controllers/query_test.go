package controllers

import (
	"testing"

	"github.com/amaumene/neocable/internal/models"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func TestBuildQueryMovieWithYear(t *testing.T) {
	program := &models.Program{Kind: models.ProgramKindMovie, Title: "Dune", TMDBID: 438631}
	rec := &models.MetadataRecord{ReleaseDate: "2021-09-15"}

	if got := BuildQuery(program, rec); got != "Dune 2021" {
		t.Errorf("Expected %q, got %q", "Dune 2021", got)
	}
}

func TestBuildQueryMovieWithoutYear(t *testing.T) {
	program := &models.Program{Kind: models.ProgramKindMovie, Title: "Dune"}

	if got := BuildQuery(program, &models.MetadataRecord{}); got != "Dune" {
		t.Errorf("Expected bare title, got %q", got)
	}
	if got := BuildQuery(program, nil); got != "Dune" {
		t.Errorf("Expected bare title with nil record, got %q", got)
	}
}

func TestBuildQueryEpisode(t *testing.T) {
	program := &models.Program{
		Kind:          models.ProgramKindEpisode,
		Title:         "The Wire",
		TMDBID:        1438,
		Season:        intPtr(2),
		EpisodeNumber: intPtr(5),
		EpisodeTMDBID: int64Ptr(972577),
	}

	if got := BuildQuery(program, nil); got != "The Wire S02E05" {
		t.Errorf("Expected %q, got %q", "The Wire S02E05", got)
	}
}

func TestBuildQueryShowUsesRecordEpisode(t *testing.T) {
	program := &models.Program{Kind: models.ProgramKindShow, Title: "Severance", TMDBID: 95396}
	rec := &models.MetadataRecord{Season: 1, EpisodeNumber: 9}

	if got := BuildQuery(program, rec); got != "Severance S01E09" {
		t.Errorf("Expected %q, got %q", "Severance S01E09", got)
	}
}
