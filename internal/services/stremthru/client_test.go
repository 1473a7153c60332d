package stremthru

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/amaumene/neocable/internal/config"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestCheckCachedFiltersUncached(t *testing.T) {
	var gotStore, gotAuth, gotMagnets string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStore = r.Header.Get("X-StremThru-Store-Name")
		gotAuth = r.Header.Get("X-StremThru-Store-Authorization")
		gotMagnets = r.URL.Query().Get("magnet")
		fmt.Fprint(w, `{"data":{"items":[
			{"hash":"AAAA","magnet":"magnet:?xt=urn:btih:aaaa","status":"cached",
			 "files":[{"name":"movie.mp4","size":4000000000}]},
			{"hash":"bbbb","magnet":"magnet:?xt=urn:btih:bbbb","status":"queued"},
			{"hash":"cccc","magnet":"magnet:?xt=urn:btih:cccc","status":"failed"}
		]}}`)
	}))
	defer server.Close()

	cfg := &config.Config{
		StremThruURL:    server.URL,
		StremThruStore:  "realdebrid",
		RealDebridToken: "tok",
	}
	client, err := NewClient(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	items, err := client.CheckCached(context.Background(), []string{"aaaa", "bbbb", "cccc"})
	if err != nil {
		t.Fatalf("CheckCached failed: %v", err)
	}

	if gotStore != "realdebrid" || gotAuth != "Bearer tok" {
		t.Errorf("Unexpected store headers: %q / %q", gotStore, gotAuth)
	}
	if !strings.Contains(gotMagnets, "btih:aaaa") || !strings.Contains(gotMagnets, "btih:cccc") {
		t.Errorf("Expected all hashes in one batched query, got %q", gotMagnets)
	}

	if len(items) != 1 {
		t.Fatalf("Expected 1 cached item, got %d", len(items))
	}
	if items[0].Hash != "aaaa" || len(items[0].Files) != 1 {
		t.Errorf("Unexpected cached item: %+v", items[0])
	}
}

func TestCheckCachedRequiresHashes(t *testing.T) {
	cfg := &config.Config{StremThruURL: "http://localhost", RealDebridToken: "tok"}
	client, err := NewClient(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if _, err := client.CheckCached(context.Background(), nil); err == nil {
		t.Error("Expected an error for an empty hash list")
	}
}
