package server

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path"
	"sync/atomic"
	"testing"
	"time"

	"github.com/slotferry/slotferry/internal/cache"
	"github.com/slotferry/slotferry/internal/catalog"
	"github.com/slotferry/slotferry/internal/config"
	"github.com/slotferry/slotferry/internal/scraper"
)

type fakeSource struct {
	res   scraper.Result
	calls atomic.Int32
}

func (f *fakeSource) Games(ctx context.Context, providerID string) scraper.Result {
	f.calls.Add(1)
	return f.res
}

// memStore is an in-process Store for handler tests.
type memStore struct {
	m map[string][]byte
}

func newMemStore() *memStore { return &memStore{m: make(map[string][]byte)} }

func (s *memStore) Get(ctx context.Context, key string, out any) error {
	b, ok := s.m[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(b, out)
}

func (s *memStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.m[key] = b
	return nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	delete(s.m, key)
	return nil
}

func (s *memStore) DeletePattern(ctx context.Context, pattern string) error {
	for key := range s.m {
		if ok, _ := path.Match(pattern, key); ok {
			delete(s.m, key)
		}
	}
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		DefaultProvider: "pg-soft",
		CacheTTL:        15 * time.Minute,
		FailureTTL:      5 * time.Minute,
		LocalTTL:        15 * time.Minute,
	}
}

func testProviders(t *testing.T) *catalog.ProviderSet {
	t.Helper()
	set, err := catalog.LoadProviders("", "pg-soft")
	if err != nil {
		t.Fatalf("failed to load default providers: %v", err)
	}
	return set
}

func liveResult() scraper.Result {
	rtp := "96.5%"
	return scraper.Result{
		Games: []catalog.Game{
			{ID: "pg-soft-game-1", Name: "Fortune Tiger", Category: "slot", Provider: "PG Soft", Players: 1200, RTP: &rtp},
			{ID: "pg-soft-game-2", Name: "Mahjong Ways", Category: "slot", Provider: "PG Soft", Players: 800},
		},
		Outcome: scraper.OutcomeLive,
	}
}

func getGames(t *testing.T, h http.Handler, query string) (*httptest.ResponseRecorder, CatalogResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/games"+query, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp CatalogResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	return rec, resp
}

func TestGamesCacheMiss(t *testing.T) {
	src := &fakeSource{res: liveResult()}
	srv := New(testConfig(), testProviders(t), src, newMemStore())
	h := srv.Handler()

	rec, resp := getGames(t, h, "?provider=pg-soft")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Cache-Status"); got != "miss" {
		t.Errorf("expected X-Cache-Status miss, got %q", got)
	}
	if got := rec.Header().Get("X-Provider"); got != "pg-soft" {
		t.Errorf("expected X-Provider pg-soft, got %q", got)
	}
	if rec.Header().Get("Cache-Control") == "" {
		t.Error("expected a Cache-Control header")
	}
	if !resp.Success {
		t.Error("live scrape should report success")
	}
	if resp.Source != "live-scrape" {
		t.Errorf("expected source live-scrape, got %q", resp.Source)
	}
	if resp.FromCache {
		t.Error("miss must not report fromCache")
	}
	if resp.TotalGames != 2 || len(resp.Games) != 2 {
		t.Errorf("expected 2 games, got totalGames=%d len=%d", resp.TotalGames, len(resp.Games))
	}
	if _, err := time.Parse(time.RFC3339, resp.Timestamp); err != nil {
		t.Errorf("timestamp is not RFC3339: %q", resp.Timestamp)
	}
}

func TestGamesLocalTierHit(t *testing.T) {
	src := &fakeSource{res: liveResult()}
	srv := New(testConfig(), testProviders(t), src, newMemStore())
	h := srv.Handler()

	getGames(t, h, "?provider=pg-soft")
	rec, resp := getGames(t, h, "?provider=pg-soft")

	if got := rec.Header().Get("X-Cache-Status"); got != "local" {
		t.Errorf("expected X-Cache-Status local, got %q", got)
	}
	if !resp.FromCache {
		t.Error("cache hit must report fromCache")
	}
	if resp.Source != "live-scrape" {
		t.Errorf("cached response must keep the original source, got %q", resp.Source)
	}
	if got := src.calls.Load(); got != 1 {
		t.Errorf("expected 1 scrape, got %d", got)
	}
}

func TestGamesDurableTierHit(t *testing.T) {
	store := newMemStore()
	src := &fakeSource{res: liveResult()}

	// Populate the durable tier with one server, then serve from a fresh
	// server whose local tier is empty.
	warm := New(testConfig(), testProviders(t), src, store)
	getGames(t, warm.Handler(), "?provider=pg-soft")

	srv := New(testConfig(), testProviders(t), src, store)
	h := srv.Handler()
	rec, resp := getGames(t, h, "?provider=pg-soft")

	if got := rec.Header().Get("X-Cache-Status"); got != "redis" {
		t.Errorf("expected X-Cache-Status redis, got %q", got)
	}
	if !resp.FromCache || resp.TotalGames != 2 {
		t.Errorf("unexpected durable hit response: fromCache=%v totalGames=%d", resp.FromCache, resp.TotalGames)
	}
	if got := src.calls.Load(); got != 1 {
		t.Errorf("expected 1 scrape total, got %d", got)
	}

	// The durable hit backfills the local tier.
	rec, _ = getGames(t, h, "?provider=pg-soft")
	if got := rec.Header().Get("X-Cache-Status"); got != "local" {
		t.Errorf("expected local tier backfill, got %q", got)
	}
}

func TestGamesFallbackDegraded(t *testing.T) {
	src := &fakeSource{res: scraper.Result{
		Games:   catalog.GenerateFallback(rand.New(rand.NewSource(1))),
		Outcome: scraper.OutcomeFallback,
		Reason:  "navigation failed: all candidates exhausted",
	}}
	srv := New(testConfig(), testProviders(t), src, newMemStore())

	rec, resp := getGames(t, srv.Handler(), "?provider=pg-soft")

	if rec.Code != http.StatusOK {
		t.Fatalf("degraded mode must still return 200, got %d", rec.Code)
	}
	if resp.Success {
		t.Error("fallback response must report success false")
	}
	if resp.Error == "" {
		t.Error("fallback response must carry an error message")
	}
	if resp.Source != "fallback" {
		t.Errorf("expected source fallback, got %q", resp.Source)
	}
	if len(resp.Games) == 0 {
		t.Error("degraded response must still carry games")
	}
}

func TestGamesUnknownProviderUsesDefault(t *testing.T) {
	src := &fakeSource{res: liveResult()}
	srv := New(testConfig(), testProviders(t), src, newMemStore())

	rec, _ := getGames(t, srv.Handler(), "?provider=does-not-exist")

	if got := rec.Header().Get("X-Provider"); got != "pg-soft" {
		t.Errorf("expected fallback to default provider, got %q", got)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		store      cache.Store
		wantStatus int
		wantRedis  bool
	}{
		{"store round-trips", newMemStore(), http.StatusOK, true},
		{"store unavailable", cache.NewNoop(), http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(testConfig(), testProviders(t), &fakeSource{res: liveResult()}, tt.store)
			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			var resp HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("response is not valid JSON: %v", err)
			}
			if resp.Redis != tt.wantRedis {
				t.Errorf("expected redis=%v, got %v", tt.wantRedis, resp.Redis)
			}
		})
	}
}

func TestDurableFallbackHitKeepsShortLocalTTL(t *testing.T) {
	cfg := testConfig()
	cfg.FailureTTL = time.Nanosecond

	store := newMemStore()
	payload := cachedCatalog{
		Games:  catalog.GenerateFallback(rand.New(rand.NewSource(1))),
		Source: string(scraper.OutcomeFallback),
	}
	if err := store.Set(context.Background(), cache.Key("pg-soft"), payload, 0); err != nil {
		t.Fatalf("failed to seed durable tier: %v", err)
	}

	srv := New(cfg, testProviders(t), &fakeSource{res: liveResult()}, store)
	h := srv.Handler()

	rec, resp := getGames(t, h, "?provider=pg-soft")
	if got := rec.Header().Get("X-Cache-Status"); got != "redis" {
		t.Fatalf("expected durable hit, got %q", got)
	}
	if resp.Success {
		t.Error("cached fallback payload must report success false")
	}

	// The backfilled local entry carries the failure TTL, so it is already
	// expired and the next request goes back to the durable tier.
	time.Sleep(time.Millisecond)
	rec, _ = getGames(t, h, "?provider=pg-soft")
	if got := rec.Header().Get("X-Cache-Status"); got != "redis" {
		t.Errorf("fallback payload must not be held in the local tier for the default TTL, got %q", got)
	}
}
