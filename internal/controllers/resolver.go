package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/amaumene/neocable/internal/config"
	"github.com/amaumene/neocable/internal/models"
	"github.com/amaumene/neocable/internal/services/prowlarr"
	"github.com/amaumene/neocable/internal/services/realdebrid"
	"github.com/amaumene/neocable/internal/services/stremthru"
	"github.com/amaumene/neocable/internal/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// minCachedBytes is the availability floor: cached torrents whose best
// file is at or under this size are decoys or stubs, not the feature.
const minCachedBytes = 100 << 20

// Resolver chains the indexer, the cache-checking service and the debrid
// provider into a single playable link per program. Failures at any
// stage collapse to an empty link so a channel keeps rendering even when
// one title cannot be resolved.
type Resolver struct {
	cfg       *config.Config
	metadata  *MetadataController
	cache     *MetaCache
	prowlarr  *prowlarr.Client
	stremthru *stremthru.Client
	debrid    *realdebrid.Client
	blacklist *utils.Blacklist
	group     singleflight.Group
	logger    *logrus.Logger
}

// NewResolver creates a new resolver
func NewResolver(cfg *config.Config, metadata *MetadataController, cache *MetaCache, prowlarrClient *prowlarr.Client, stremthruClient *stremthru.Client, debridClient *realdebrid.Client, blacklist *utils.Blacklist, logger *logrus.Logger) *Resolver {
	return &Resolver{
		cfg:       cfg,
		metadata:  metadata,
		cache:     cache,
		prowlarr:  prowlarrClient,
		stremthru: stremthruClient,
		debrid:    debridClient,
		blacklist: blacklist,
		logger:    logger,
	}
}

// ResolveLink returns the playable URL for a program, resolving it on
// first request and replaying the cached link afterwards. Concurrent
// requests for the same program share one resolution. An empty string
// means the title could not be resolved; the reason is logged, not
// surfaced.
func (r *Resolver) ResolveLink(ctx context.Context, program *models.Program) string {
	v, _, _ := r.group.Do(program.ID, func() (interface{}, error) {
		// the run is shared with coalesced callers and its result feeds
		// the cache, so it must not die with the caller that started it
		return r.resolve(context.WithoutCancel(ctx), program), nil
	})
	return v.(string)
}

func (r *Resolver) resolve(ctx context.Context, program *models.Program) string {
	log := r.logger.WithFields(logrus.Fields{
		"program_id": program.ID,
		"title":      program.Title,
	})

	rec, err := r.metadata.Ensure(ctx, program)
	if err != nil {
		log.WithError(err).WithField("stage", "metadata").Warn("Resolution failed")
		return ""
	}
	if rec.ResolvedLink != "" {
		return rec.ResolvedLink
	}

	query := BuildQuery(program, rec)
	log = log.WithField("query", query)

	candidates, err := r.prowlarr.Search(ctx, query)
	if err != nil {
		log.WithError(err).WithField("stage", "search").Warn("Resolution failed")
		return ""
	}
	candidates = r.filterBlacklisted(candidates, log)
	if len(candidates) == 0 {
		log.WithField("stage", "search").Info("No usable candidates")
		return ""
	}

	magnet, ok := r.pickCached(ctx, candidates, log)
	if !ok {
		return ""
	}

	opts := realdebrid.DefaultResolveOptions()
	if r.cfg.PollIntervalMs > 0 {
		opts.PollInterval = time.Duration(r.cfg.PollIntervalMs) * time.Millisecond
	}
	if r.cfg.ResolveTimeoutMs > 0 {
		opts.Timeout = time.Duration(r.cfg.ResolveTimeoutMs) * time.Millisecond
	}
	resolution, err := r.debrid.ResolveMagnet(ctx, r.cfg.RealDebridToken, magnet, opts)
	if err != nil {
		log.WithError(err).WithField("stage", "debrid").Warn("Resolution failed")
		return ""
	}

	if key, ok := program.LookupKey(); ok {
		r.cache.PatchLink(key, resolution.DownloadURL)
	}

	log.WithFields(logrus.Fields{
		"host":     resolution.Host,
		"filesize": resolution.Filesize,
	}).Info("Resolved playable link")

	return resolution.DownloadURL
}

// filterBlacklisted drops candidates whose release title matches the
// user's blacklist
func (r *Resolver) filterBlacklisted(candidates []models.CandidateHash, log *logrus.Entry) []models.CandidateHash {
	if r.blacklist == nil {
		return candidates
	}
	kept := candidates[:0]
	for _, c := range candidates {
		if banned, word := r.blacklist.IsBlacklisted(c.Title); banned {
			log.WithFields(logrus.Fields{
				"release": c.Title,
				"word":    word,
			}).Debug("Dropped blacklisted candidate")
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// pickCached checks which candidates are instantly available and returns
// the magnet of the best one: candidates keep their search ranking, a
// cached torrent that holds a playable file over the size floor is
// preferred, and anything else cached is kept as a last resort.
func (r *Resolver) pickCached(ctx context.Context, candidates []models.CandidateHash, log *logrus.Entry) (string, bool) {
	hashes := make([]string, 0, len(candidates))
	for _, c := range candidates {
		hashes = append(hashes, c.InfoHash)
	}

	items, err := r.stremthru.CheckCached(ctx, hashes)
	if err != nil {
		log.WithError(err).WithField("stage", "availability").Warn("Resolution failed")
		return "", false
	}

	byHash := make(map[string]models.CachedItem, len(items))
	for _, item := range items {
		byHash[strings.ToLower(item.Hash)] = item
	}

	selection := utils.DefaultFileSelection()
	selection.MinSize = minCachedBytes

	// the winner is the cached item whose best playable file is largest;
	// items without a qualifying file are a last resort, in search order
	var bestMagnet, fallbackMagnet string
	var bestSize int64
	for _, c := range candidates {
		item, ok := byHash[strings.ToLower(c.InfoHash)]
		if !ok {
			continue
		}
		magnet := item.Magnet
		if magnet == "" {
			magnet = utils.MagnetFromHash(c.InfoHash)
		}
		if len(item.Files) == 0 {
			if fallbackMagnet == "" {
				fallbackMagnet = magnet
			}
			continue
		}
		files := make([]utils.VideoFile, 0, len(item.Files))
		for _, f := range item.Files {
			files = append(files, utils.VideoFile{Name: f.Name, Size: f.Size})
		}
		pick, err := utils.PickBestFile(files, selection)
		if err != nil {
			if fallbackMagnet == "" {
				fallbackMagnet = magnet
			}
			continue
		}
		if pick.Size > bestSize {
			bestSize = pick.Size
			bestMagnet = magnet
		}
	}

	if bestMagnet != "" {
		return bestMagnet, true
	}
	if fallbackMagnet != "" {
		return fallbackMagnet, true
	}

	log.WithField("stage", "availability").Info("No cached candidate")
	return "", false
}
