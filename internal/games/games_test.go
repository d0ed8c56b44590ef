package games

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func appDetailsHandler(t *testing.T, names map[string]string, calls *atomic.Int64) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		id := r.URL.Query().Get("appids")
		if r.URL.Query().Get("filters") != "basic" {
			t.Errorf("missing filters=basic in %s", r.URL.RawQuery)
		}
		name, ok := names[id]
		if !ok {
			fmt.Fprintf(w, `{"%s":{"success":false}}`, id)
			return
		}
		fmt.Fprintf(w, `{"%s":{"success":true,"data":{"name":"%s"}}}`, id, name)
	}
}

func TestClientLookup(t *testing.T) {
	srv := httptest.NewServer(appDetailsHandler(t, map[string]string{"730": "Counter-Strike 2"}, nil))
	defer srv.Close()

	c := NewClient(srv.URL)

	name, err := c.Lookup(context.Background(), "730")
	if err != nil {
		t.Fatal(err)
	}
	if name != "Counter-Strike 2" {
		t.Errorf("name = %q", name)
	}

	_, err = c.Lookup(context.Background(), "999999")
	var lerr *LookupError
	if !errors.As(err, &lerr) || lerr.Kind != FailDataErr {
		t.Errorf("unknown app: err = %v, want data_error", err)
	}
}

func TestClientLookupAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Lookup(context.Background(), "730")
	var lerr *LookupError
	if !errors.As(err, &lerr) || lerr.Kind != FailAPIError {
		t.Fatalf("err = %v, want api_error", err)
	}
	if lerr.Marker() != "730 (API Error)" {
		t.Errorf("marker = %q", lerr.Marker())
	}
}

func TestClientLookupOffline(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // refuse connections

	_, err := NewClient(srv.URL).Lookup(context.Background(), "730")
	var lerr *LookupError
	if !errors.As(err, &lerr) || lerr.Kind != FailOffline {
		t.Fatalf("err = %v, want offline", err)
	}
	if lerr.Marker() != "730 (Offline)" {
		t.Errorf("marker = %q", lerr.Marker())
	}
}

func TestCachePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "GameIDs.json")

	c, err := OpenCache(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Put("730", "Counter-Strike 2"); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenCache(path)
	if err != nil {
		t.Fatal(err)
	}
	if name, ok := reopened.Get("730"); !ok || name != "Counter-Strike 2" {
		t.Errorf("reopened cache: got (%q, %v)", name, ok)
	}
}

func TestCacheRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "GameIDs.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenCache(path); err == nil {
		t.Fatal("want error for corrupt cache file")
	}
}

func TestResolverCachesHitsAndFailures(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(appDetailsHandler(t, map[string]string{"730": "Counter-Strike 2"}, &calls))
	defer srv.Close()

	cache, err := OpenCache(filepath.Join(t.TempDir(), "GameIDs.json"))
	if err != nil {
		t.Fatal(err)
	}
	r := NewResolver(cache, NewClient(srv.URL), nil)
	ctx := context.Background()

	if name := r.Resolve(ctx, "730"); name != "Counter-Strike 2" {
		t.Errorf("resolve = %q", name)
	}
	if name := r.Resolve(ctx, "730"); name != "Counter-Strike 2" {
		t.Errorf("cached resolve = %q", name)
	}
	if calls.Load() != 1 {
		t.Errorf("API called %d times, want 1", calls.Load())
	}

	// Unknown id yields a cached marker; no further calls on re-resolve.
	marker := r.Resolve(ctx, "999999")
	if marker != "999999 (Data Error)" {
		t.Errorf("marker = %q", marker)
	}
	before := calls.Load()
	if again := r.Resolve(ctx, "999999"); again != marker {
		t.Errorf("re-resolve = %q, want cached marker", again)
	}
	if calls.Load() != before {
		t.Error("failure marker was re-queried without refresh")
	}
}

func TestResolverNonNumericIDIsItsOwnName(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(appDetailsHandler(t, nil, &calls))
	defer srv.Close()

	cache, err := OpenCache(filepath.Join(t.TempDir(), "GameIDs.json"))
	if err != nil {
		t.Fatal(err)
	}
	r := NewResolver(cache, NewClient(srv.URL), nil)
	ctx := context.Background()

	if name := r.Resolve(ctx, "notanumber"); name != "notanumber" {
		t.Errorf("resolve = %q, want the id itself", name)
	}
	if name, ok := cache.Get("notanumber"); !ok || name != "notanumber" {
		t.Errorf("cache entry = (%q, %v), want the id cached as its own name", name, ok)
	}
	if name, err := r.Refresh(ctx, "notanumber"); err != nil || name != "notanumber" {
		t.Errorf("refresh = (%q, %v), want the id itself", name, err)
	}
	if calls.Load() != 0 {
		t.Errorf("API called %d times for a non-numeric id, want 0", calls.Load())
	}
}

func TestResolverRefresh(t *testing.T) {
	names := map[string]string{}
	srv := httptest.NewServer(appDetailsHandler(t, names, nil))
	defer srv.Close()

	cache, err := OpenCache(filepath.Join(t.TempDir(), "GameIDs.json"))
	if err != nil {
		t.Fatal(err)
	}
	r := NewResolver(cache, NewClient(srv.URL), nil)
	ctx := context.Background()

	if m := r.Resolve(ctx, "570"); !IsFailureMarker(m) {
		t.Fatalf("expected failure marker, got %q", m)
	}

	// The game becomes known; an explicit refresh picks it up.
	names["570"] = "Dota 2"
	fresh, err := r.Refresh(ctx, "570")
	if err != nil {
		t.Fatal(err)
	}
	if fresh != "Dota 2" {
		t.Errorf("refresh = %q", fresh)
	}
	if name := r.Resolve(ctx, "570"); name != "Dota 2" {
		t.Errorf("post-refresh resolve = %q", name)
	}
}

func TestResolverRefreshAll(t *testing.T) {
	names := map[string]string{}
	srv := httptest.NewServer(appDetailsHandler(t, names, nil))
	defer srv.Close()

	cache, err := OpenCache(filepath.Join(t.TempDir(), "GameIDs.json"))
	if err != nil {
		t.Fatal(err)
	}
	r := NewResolver(cache, NewClient(srv.URL), nil)
	ctx := context.Background()

	r.Resolve(ctx, "570") // marker
	r.Resolve(ctx, "440") // marker

	names["570"] = "Dota 2"
	stillFailing := r.RefreshAll(ctx)
	if len(stillFailing) != 1 || stillFailing[0] != "440" {
		t.Errorf("stillFailing = %v, want [440]", stillFailing)
	}
	if name, _ := cache.Get("570"); name != "Dota 2" {
		t.Errorf("570 after refresh = %q", name)
	}
	if name, _ := cache.Get("440"); !IsFailureMarker(name) {
		t.Errorf("440 after refresh = %q, want marker", name)
	}
}

func TestIsFailureMarker(t *testing.T) {
	for _, m := range []string{"730 (Offline)", "730 (Timeout)", "730 (API Error)", "730 (Data Error)"} {
		if !IsFailureMarker(m) {
			t.Errorf("IsFailureMarker(%q) = false", m)
		}
	}
	for _, m := range []string{"Counter-Strike 2", "Offline TD", ""} {
		if IsFailureMarker(m) {
			t.Errorf("IsFailureMarker(%q) = true", m)
		}
	}
}
