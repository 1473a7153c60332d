package controllers

import (
	"path/filepath"
	"testing"

	"github.com/amaumene/neocable/internal/models"
)

func newTestLineup(t *testing.T) *LineupController {
	t.Helper()

	db, err := models.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDatabase failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return &LineupController{db: db, logger: testLogger()}
}

func TestEnsureChannelsCreatesBuiltins(t *testing.T) {
	lc := newTestLineup(t)

	channels, err := lc.ensureChannels()
	if err != nil {
		t.Fatalf("ensureChannels failed: %v", err)
	}
	if len(channels) != len(defaultChannels) {
		t.Fatalf("Expected %d channels, got %d", len(defaultChannels), len(channels))
	}
	for i, channel := range channels {
		if channel.Slug != defaultChannels[i].Slug {
			t.Errorf("Channel %d has slug %q, want %q", i, channel.Slug, defaultChannels[i].Slug)
		}
		if channel.Position != i {
			t.Errorf("Channel %q has position %d, want %d", channel.Slug, channel.Position, i)
		}
	}
}

func TestEnsureChannelsResyncsChangedDefinition(t *testing.T) {
	lc := newTestLineup(t)

	channels, err := lc.ensureChannels()
	if err != nil {
		t.Fatalf("ensureChannels failed: %v", err)
	}

	// a previous deploy shipped a different name and backing list
	stale := channels[0]
	stale.Name = "Old Name"
	stale.ListPath = "/movies/old"
	if err := lc.db.UpdateChannel(stale); err != nil {
		t.Fatalf("UpdateChannel failed: %v", err)
	}

	channels, err = lc.ensureChannels()
	if err != nil {
		t.Fatalf("ensureChannels failed: %v", err)
	}
	if channels[0].Name != defaultChannels[0].Name {
		t.Errorf("Expected name %q, got %q", defaultChannels[0].Name, channels[0].Name)
	}
	if channels[0].ListPath != defaultChannels[0].ListPath {
		t.Errorf("Expected list path %q, got %q", defaultChannels[0].ListPath, channels[0].ListPath)
	}

	// the resync keeps the channel's identity and persists
	fresh, err := lc.db.GetChannelBySlug(defaultChannels[0].Slug)
	if err != nil {
		t.Fatalf("GetChannelBySlug failed: %v", err)
	}
	if fresh.ID != stale.ID {
		t.Errorf("Resync must not change the channel id: %q vs %q", fresh.ID, stale.ID)
	}
	if fresh.Name != defaultChannels[0].Name {
		t.Errorf("Expected the resynced name to persist, got %q", fresh.Name)
	}
}
