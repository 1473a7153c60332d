package controllers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amaumene/neocable/internal/config"
	"github.com/amaumene/neocable/internal/models"
	"github.com/amaumene/neocable/internal/ratelimit"
	"github.com/amaumene/neocable/internal/services/prowlarr"
	"github.com/amaumene/neocable/internal/services/realdebrid"
	"github.com/amaumene/neocable/internal/services/stremthru"
	"github.com/amaumene/neocable/internal/services/tmdb"
	"github.com/amaumene/neocable/internal/utils"
	"github.com/sirupsen/logrus"
)

const arrivalHash = "c9e15763f722f23e98a29decdfae341b98d53056"

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// pipelineStub fakes every external origin of the resolution pipeline
type pipelineStub struct {
	adds     atomic.Int64
	searches atomic.Int64
}

func (p *pipelineStub) handler() http.Handler {
	mux := http.NewServeMux()

	// TMDB
	mux.HandleFunc("/movie/329865", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":329865,"title":"Arrival","overview":"A linguist...",
			"genres":[{"id":878,"name":"Science Fiction"}],
			"runtime":116,"release_date":"2016-11-10"}`)
	})

	// Prowlarr
	mux.HandleFunc("/api/v1/search", func(w http.ResponseWriter, r *http.Request) {
		p.searches.Add(1)
		fmt.Fprintf(w, `[
			{"title":"Arrival.2016.1080p.BluRay","infoHash":"%s","seeders":120},
			{"title":"Arrival.2016.CAM.BANNEDGROUP","infoHash":"dddd","seeders":999}
		]`, arrivalHash)
	})

	// StremThru: only the bluray is cached
	mux.HandleFunc("/v0/store/magnets/check", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{"items":[
			{"hash":"%s","magnet":"magnet:?xt=urn:btih:%s","status":"cached",
			 "files":[{"name":"Arrival.2016.1080p.mp4","size":4000000000}]}
		]}}`, arrivalHash, arrivalHash)
	})

	// Real-Debrid
	mux.HandleFunc("/torrents/addMagnet", func(w http.ResponseWriter, r *http.Request) {
		p.adds.Add(1)
		fmt.Fprint(w, `{"id":"TOR1"}`)
	})
	mux.HandleFunc("/torrents/info/TOR1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"TOR1","status":"downloaded","files":[
			{"id":1,"path":"/Arrival.2016.1080p.mp4","bytes":4000000000}
		],"links":["https://real-debrid.example/d/abc"]}`)
	})
	mux.HandleFunc("/torrents/selectFiles/TOR1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/unrestrict/link", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"download":"https://cdn.example/arrival.mp4","host":"real-debrid.com",
			"filesize":4000000000,"filename":"Arrival.2016.1080p.mp4"}`)
	})

	return mux
}

func newTestResolver(t *testing.T, serverURL string, blacklist *utils.Blacklist) (*Resolver, *models.Database) {
	t.Helper()

	cfg := &config.Config{
		TMDBAPIKey:       "key",
		TMDBBaseURL:      serverURL,
		ProwlarrURL:      serverURL,
		ProwlarrKey:      "pk",
		StremThruURL:     serverURL,
		StremThruStore:   "realdebrid",
		RealDebridToken:  "tok",
		RealDebridURL:    serverURL,
		ResolveTimeoutMs: 2000,
		PollIntervalMs:   10,
	}
	logger := testLogger()

	db, err := models.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDatabase failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tmdbClient, err := tmdb.NewClient(cfg, logger)
	if err != nil {
		t.Fatalf("tmdb.NewClient failed: %v", err)
	}
	prowlarrClient, err := prowlarr.NewClient(cfg, ratelimit.NewGate(0), logger)
	if err != nil {
		t.Fatalf("prowlarr.NewClient failed: %v", err)
	}
	stremthruClient, err := stremthru.NewClient(cfg, logger)
	if err != nil {
		t.Fatalf("stremthru.NewClient failed: %v", err)
	}
	debridClient, err := realdebrid.NewClient(cfg, ratelimit.NewGate(0), logger)
	if err != nil {
		t.Fatalf("realdebrid.NewClient failed: %v", err)
	}

	cache := NewMetaCache(0)
	metadata := NewMetadataController(db, tmdbClient, cache, logger)
	resolver := NewResolver(cfg, metadata, cache, prowlarrClient, stremthruClient, debridClient, blacklist, logger)
	return resolver, db
}

func arrivalProgram() *models.Program {
	return &models.Program{
		ID:     "prog-1",
		Kind:   models.ProgramKindMovie,
		Title:  "Arrival",
		TMDBID: 329865,
	}
}

func TestResolveLinkEndToEnd(t *testing.T) {
	stub := &pipelineStub{}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	resolver, db := newTestResolver(t, server.URL, &utils.Blacklist{})
	program := arrivalProgram()
	if err := db.CreateProgram(program); err != nil {
		t.Fatalf("CreateProgram failed: %v", err)
	}

	link := resolver.ResolveLink(context.Background(), program)
	if link != "https://cdn.example/arrival.mp4" {
		t.Fatalf("Unexpected link %q", link)
	}
	if stub.adds.Load() != 1 {
		t.Errorf("Expected one debrid add, got %d", stub.adds.Load())
	}
}

func TestResolveLinkIsIdempotent(t *testing.T) {
	stub := &pipelineStub{}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	resolver, db := newTestResolver(t, server.URL, &utils.Blacklist{})
	program := arrivalProgram()
	if err := db.CreateProgram(program); err != nil {
		t.Fatalf("CreateProgram failed: %v", err)
	}

	first := resolver.ResolveLink(context.Background(), program)
	second := resolver.ResolveLink(context.Background(), program)

	if first != second {
		t.Errorf("Replays must return the same link: %q vs %q", first, second)
	}
	if stub.adds.Load() != 1 {
		t.Errorf("Expected the second call to replay the cached link, saw %d adds", stub.adds.Load())
	}
	if stub.searches.Load() != 1 {
		t.Errorf("Expected one indexer search, got %d", stub.searches.Load())
	}
}

func TestResolveLinkCoalescesConcurrentCalls(t *testing.T) {
	stub := &pipelineStub{}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	resolver, db := newTestResolver(t, server.URL, &utils.Blacklist{})
	program := arrivalProgram()
	if err := db.CreateProgram(program); err != nil {
		t.Fatalf("CreateProgram failed: %v", err)
	}

	var wg sync.WaitGroup
	links := make([]string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			links[i] = resolver.ResolveLink(context.Background(), program)
		}(i)
	}
	wg.Wait()

	for i, link := range links {
		if link != links[0] {
			t.Fatalf("Caller %d got a different link: %q vs %q", i, link, links[0])
		}
	}
	if stub.adds.Load() != 1 {
		t.Errorf("Expected concurrent calls to share one resolution, saw %d adds", stub.adds.Load())
	}
}

func TestResolveLinkReturnsEmptyWhenNothingCached(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/movie/329865", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":329865,"title":"Arrival","runtime":116,"release_date":"2016-11-10"}`)
	})
	mux.HandleFunc("/api/v1/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"title":"Arrival.2016.1080p","infoHash":"%s","seeders":5}]`, arrivalHash)
	})
	mux.HandleFunc("/v0/store/magnets/check", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"items":[]}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	resolver, db := newTestResolver(t, server.URL, &utils.Blacklist{})
	program := arrivalProgram()
	if err := db.CreateProgram(program); err != nil {
		t.Fatalf("CreateProgram failed: %v", err)
	}

	if link := resolver.ResolveLink(context.Background(), program); link != "" {
		t.Errorf("Expected an empty link, got %q", link)
	}
}

func TestResolveLinkDropsBlacklistedReleases(t *testing.T) {
	blacklistFile := filepath.Join(t.TempDir(), "blacklist.txt")
	if err := writeBlacklist(blacklistFile, "BANNEDGROUP\n"); err != nil {
		t.Fatalf("Failed to write blacklist: %v", err)
	}
	blacklist, err := utils.LoadBlacklist(blacklistFile)
	if err != nil {
		t.Fatalf("LoadBlacklist failed: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/movie/329865", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":329865,"title":"Arrival","runtime":116,"release_date":"2016-11-10"}`)
	})
	mux.HandleFunc("/api/v1/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"title":"Arrival.2016.BANNEDGROUP","infoHash":"%s","seeders":500}]`, arrivalHash)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	resolver, db := newTestResolver(t, server.URL, blacklist)
	program := arrivalProgram()
	if err := db.CreateProgram(program); err != nil {
		t.Fatalf("CreateProgram failed: %v", err)
	}

	// every candidate is blacklisted, so the cache check is never reached
	if link := resolver.ResolveLink(context.Background(), program); link != "" {
		t.Errorf("Expected an empty link, got %q", link)
	}
}

func writeBlacklist(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

func TestResolveLinkSurvivesCallerCancellation(t *testing.T) {
	var adds, polls atomic.Int64
	started := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/movie/329865", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":329865,"title":"Arrival","runtime":116,"release_date":"2016-11-10"}`)
	})
	mux.HandleFunc("/api/v1/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"title":"Arrival.2016.1080p","infoHash":"%s","seeders":120}]`, arrivalHash)
	})
	mux.HandleFunc("/v0/store/magnets/check", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{"items":[
			{"hash":"%s","magnet":"magnet:?xt=urn:btih:%s","status":"cached",
			 "files":[{"name":"Arrival.2016.1080p.mp4","size":4000000000}]}
		]}}`, arrivalHash, arrivalHash)
	})
	mux.HandleFunc("/torrents/addMagnet", func(w http.ResponseWriter, r *http.Request) {
		if adds.Add(1) == 1 {
			close(started)
		}
		fmt.Fprint(w, `{"id":"TOR1"}`)
	})
	mux.HandleFunc("/torrents/info/TOR1", func(w http.ResponseWriter, r *http.Request) {
		// stay in conversion for a few polls so both callers are in
		// flight when the first one walks away
		if polls.Add(1) < 5 {
			fmt.Fprint(w, `{"id":"TOR1","status":"magnet_conversion","files":[]}`)
			return
		}
		fmt.Fprint(w, `{"id":"TOR1","status":"downloaded","files":[
			{"id":1,"path":"/Arrival.2016.1080p.mp4","bytes":4000000000}
		],"links":["https://real-debrid.example/d/abc"]}`)
	})
	mux.HandleFunc("/torrents/selectFiles/TOR1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/unrestrict/link", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"download":"https://cdn.example/arrival.mp4","host":"rd","filesize":4000000000,"filename":"a.mp4"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	resolver, db := newTestResolver(t, server.URL, &utils.Blacklist{})
	program := arrivalProgram()
	if err := db.CreateProgram(program); err != nil {
		t.Fatalf("CreateProgram failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var first, second string

	wg.Add(1)
	go func() {
		defer wg.Done()
		first = resolver.ResolveLink(ctx, program)
	}()
	<-started

	wg.Add(1)
	go func() {
		defer wg.Done()
		second = resolver.ResolveLink(context.Background(), program)
	}()

	// abandon the first caller while the torrent is still converting
	time.Sleep(15 * time.Millisecond)
	cancel()
	wg.Wait()

	if first != "https://cdn.example/arrival.mp4" {
		t.Fatalf("First caller got %q, want the resolved link", first)
	}
	if second != first {
		t.Fatalf("Coalesced caller got %q, want %q", second, first)
	}
	if adds.Load() != 1 {
		t.Errorf("Expected one debrid add, got %d", adds.Load())
	}
	rec, ok := resolver.cache.Get(329865)
	if !ok || rec.ResolvedLink != first {
		t.Errorf("Expected the cache to carry the resolved link, got %+v", rec)
	}
}

func TestResolveLinkFallsBackWhenNoFileClearsFloor(t *testing.T) {
	var addedMagnet string

	mux := http.NewServeMux()
	mux.HandleFunc("/movie/329865", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":329865,"title":"Arrival","runtime":116,"release_date":"2016-11-10"}`)
	})
	mux.HandleFunc("/api/v1/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"title":"Arrival.2016.1080p","infoHash":"%s","seeders":120}]`, arrivalHash)
	})
	mux.HandleFunc("/v0/store/magnets/check", func(w http.ResponseWriter, r *http.Request) {
		// the listing only shows a file under the 100 MB floor
		fmt.Fprintf(w, `{"data":{"items":[
			{"hash":"%s","magnet":"magnet:?xt=urn:btih:%s","status":"cached",
			 "files":[{"name":"Arrival.2016.1080p.mp4","size":50000000}]}
		]}}`, arrivalHash, arrivalHash)
	})
	mux.HandleFunc("/torrents/addMagnet", func(w http.ResponseWriter, r *http.Request) {
		addedMagnet = r.FormValue("magnet")
		fmt.Fprint(w, `{"id":"TOR1"}`)
	})
	mux.HandleFunc("/torrents/info/TOR1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"TOR1","status":"downloaded","files":[
			{"id":1,"path":"/Arrival.2016.1080p.mp4","bytes":4000000000}
		],"links":["https://real-debrid.example/d/abc"]}`)
	})
	mux.HandleFunc("/torrents/selectFiles/TOR1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/unrestrict/link", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"download":"https://cdn.example/arrival.mp4","host":"rd","filesize":4000000000,"filename":"a.mp4"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	resolver, db := newTestResolver(t, server.URL, &utils.Blacklist{})
	program := arrivalProgram()
	if err := db.CreateProgram(program); err != nil {
		t.Fatalf("CreateProgram failed: %v", err)
	}

	if link := resolver.ResolveLink(context.Background(), program); link == "" {
		t.Fatal("Expected the cached item to survive as a fallback")
	}
	if addedMagnet != "magnet:?xt=urn:btih:"+arrivalHash {
		t.Errorf("Expected the fallback magnet, got %q", addedMagnet)
	}
}

func TestResolveLinkPrefersLargestCachedFile(t *testing.T) {
	const smallHash = "1111111111111111111111111111111111111111"
	var addedMagnet string

	mux := http.NewServeMux()
	mux.HandleFunc("/movie/329865", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":329865,"title":"Arrival","runtime":116,"release_date":"2016-11-10"}`)
	})
	mux.HandleFunc("/api/v1/search", func(w http.ResponseWriter, r *http.Request) {
		// the lower-quality release is better seeded
		fmt.Fprintf(w, `[
			{"title":"Arrival.2016.720p","infoHash":"%s","seeders":500},
			{"title":"Arrival.2016.1080p","infoHash":"%s","seeders":100}
		]`, smallHash, arrivalHash)
	})
	mux.HandleFunc("/v0/store/magnets/check", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{"items":[
			{"hash":"%s","magnet":"magnet:?xt=urn:btih:%s","status":"cached",
			 "files":[{"name":"Arrival.2016.720p.mp4","size":1500000000}]},
			{"hash":"%s","magnet":"magnet:?xt=urn:btih:%s","status":"cached",
			 "files":[{"name":"Arrival.2016.1080p.mp4","size":4000000000}]}
		]}}`, smallHash, smallHash, arrivalHash, arrivalHash)
	})
	mux.HandleFunc("/torrents/addMagnet", func(w http.ResponseWriter, r *http.Request) {
		addedMagnet = r.FormValue("magnet")
		fmt.Fprint(w, `{"id":"TOR1"}`)
	})
	mux.HandleFunc("/torrents/info/TOR1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"TOR1","status":"downloaded","files":[
			{"id":1,"path":"/Arrival.2016.1080p.mp4","bytes":4000000000}
		],"links":["https://real-debrid.example/d/abc"]}`)
	})
	mux.HandleFunc("/torrents/selectFiles/TOR1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/unrestrict/link", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"download":"https://cdn.example/arrival.mp4","host":"rd","filesize":4000000000,"filename":"a.mp4"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	resolver, db := newTestResolver(t, server.URL, &utils.Blacklist{})
	program := arrivalProgram()
	if err := db.CreateProgram(program); err != nil {
		t.Fatalf("CreateProgram failed: %v", err)
	}

	if link := resolver.ResolveLink(context.Background(), program); link == "" {
		t.Fatal("Expected a resolved link")
	}
	if addedMagnet != "magnet:?xt=urn:btih:"+arrivalHash {
		t.Errorf("Expected the larger cached item's magnet, got %q", addedMagnet)
	}
}
