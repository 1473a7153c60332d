package controllers

import (
	"context"

	"github.com/amaumene/neocable/internal/config"
	"github.com/amaumene/neocable/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
)

// Prefetcher warms metadata and playable links for the front of each
// channel so the first tune-in does not pay the full resolution cost.
type Prefetcher struct {
	cfg      *config.Config
	db       *models.Database
	resolver *Resolver
	logger   *logrus.Logger
}

// NewPrefetcher creates a new prefetcher
func NewPrefetcher(cfg *config.Config, db *models.Database, resolver *Resolver, logger *logrus.Logger) *Prefetcher {
	return &Prefetcher{
		cfg:      cfg,
		db:       db,
		resolver: resolver,
		logger:   logger,
	}
}

// WarmLineup resolves the first few programs of every channel. Channels
// are warmed concurrently; programs within a channel sequentially, in
// lineup order, so the rate gates stay the only throttle.
func (p *Prefetcher) WarmLineup(ctx context.Context) error {
	channels, err := p.db.GetChannels()
	if err != nil {
		return err
	}

	warmed := pool.New().WithContext(ctx)
	for _, channel := range channels {
		channel := channel
		warmed.Go(func(ctx context.Context) error {
			p.warmChannel(ctx, channel)
			return nil
		})
	}
	return warmed.Wait()
}

func (p *Prefetcher) warmChannel(ctx context.Context, channel *models.Channel) {
	programs, err := p.db.GetProgramsByChannel(channel.ID)
	if err != nil {
		p.logger.WithError(err).WithField("channel", channel.Slug).
			Warn("Failed to load channel programs for warmup")
		return
	}

	limit := p.cfg.WarmupPerChannel
	if limit > len(programs) {
		limit = len(programs)
	}

	var resolved int
	for _, program := range programs[:limit] {
		if ctx.Err() != nil {
			return
		}
		if p.resolver.ResolveLink(ctx, program) != "" {
			resolved++
		}
	}

	p.logger.WithFields(logrus.Fields{
		"channel":  channel.Slug,
		"warmed":   limit,
		"resolved": resolved,
	}).Debug("Warmed channel")
}
