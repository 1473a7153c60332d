package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// Database wraps the bolthold store holding the channel/program catalog
type Database struct {
	store *bolthold.Store
}

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// Channel operations

// CreateChannel creates a new channel
func (db *Database) CreateChannel(channel *Channel) error {
	channel.CreatedAt = time.Now()
	channel.UpdatedAt = time.Now()
	return db.store.Insert(channel.ID, channel)
}

// UpdateChannel updates an existing channel
func (db *Database) UpdateChannel(channel *Channel) error {
	channel.UpdatedAt = time.Now()
	return db.store.Update(channel.ID, channel)
}

// GetChannelBySlug retrieves a channel by its slug
func (db *Database) GetChannelBySlug(slug string) (*Channel, error) {
	var channel Channel
	err := db.store.FindOne(&channel, bolthold.Where("Slug").Eq(slug))
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

// GetChannels retrieves all channels ordered by lineup position
func (db *Database) GetChannels() ([]*Channel, error) {
	var channels []*Channel
	if err := db.store.Find(&channels, nil); err != nil {
		return nil, err
	}
	sort.Slice(channels, func(i, j int) bool {
		return channels[i].Position < channels[j].Position
	})
	return channels, nil
}

// Program operations

// CreateProgram creates a new program
func (db *Database) CreateProgram(program *Program) error {
	program.CreatedAt = time.Now()
	program.UpdatedAt = time.Now()
	return db.store.Insert(program.ID, program)
}

// UpdateProgram updates an existing program
func (db *Database) UpdateProgram(program *Program) error {
	program.UpdatedAt = time.Now()
	return db.store.Update(program.ID, program)
}

// GetProgramByID retrieves a program by ID
func (db *Database) GetProgramByID(id string) (*Program, error) {
	var program Program
	if err := db.store.Get(id, &program); err != nil {
		return nil, err
	}
	return &program, nil
}

// GetProgramsByChannel retrieves a channel's lineup ordered by position
func (db *Database) GetProgramsByChannel(channelID string) ([]*Program, error) {
	var programs []*Program
	err := db.store.Find(&programs,
		bolthold.Where("ChannelID").Eq(channelID).And("InLineup").Eq(true))
	if err != nil {
		return nil, err
	}
	sort.Slice(programs, func(i, j int) bool {
		return programs[i].Position < programs[j].Position
	})
	return programs, nil
}

// GetProgramByChannelAndTMDB retrieves a program by channel, TMDB id and kind
func (db *Database) GetProgramByChannelAndTMDB(channelID string, tmdbID int64, kind ProgramKind) (*Program, error) {
	var program Program
	err := db.store.FindOne(&program,
		bolthold.Where("ChannelID").Eq(channelID).
			And("TMDBID").Eq(tmdbID).
			And("Kind").Eq(kind))
	if err != nil {
		return nil, err
	}
	return &program, nil
}

// CountPrograms counts programs currently in the lineup
func (db *Database) CountPrograms() (int, error) {
	var programs []*Program
	err := db.store.Find(&programs, bolthold.Where("InLineup").Eq(true))
	if err != nil {
		return 0, err
	}
	return len(programs), nil
}

// MarkChannelProgramsOutOfLineup marks a channel's programs as absent so a
// refresh can re-mark the ones still present and sweep the rest
func (db *Database) MarkChannelProgramsOutOfLineup(channelID string) error {
	var programs []*Program
	err := db.store.Find(&programs, bolthold.Where("ChannelID").Eq(channelID))
	if err != nil {
		return err
	}

	for _, program := range programs {
		program.InLineup = false
		program.UpdatedAt = time.Now()
		if err := db.store.Update(program.ID, program); err != nil {
			return err
		}
	}

	return nil
}

// DeleteProgramsOutOfLineup deletes programs no longer in any list
func (db *Database) DeleteProgramsOutOfLineup() (int, error) {
	var programs []*Program
	err := db.store.Find(&programs, bolthold.Where("InLineup").Eq(false))
	if err != nil {
		return 0, err
	}

	for _, program := range programs {
		if err := db.store.Delete(program.ID, &Program{}); err != nil {
			return 0, err
		}
	}

	return len(programs), nil
}
