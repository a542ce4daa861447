// Package server exposes the catalog over HTTP: a games endpoint backed by
// the two cache tiers and the scrape pipeline, and a health endpoint probing
// the durable cache.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/slotferry/slotferry/internal/cache"
	"github.com/slotferry/slotferry/internal/catalog"
	"github.com/slotferry/slotferry/internal/config"
	"github.com/slotferry/slotferry/internal/logger"
	"github.com/slotferry/slotferry/internal/scraper"
)

// CatalogSource produces games for a provider. *scraper.Pipeline is the
// production implementation.
type CatalogSource interface {
	Games(ctx context.Context, providerID string) scraper.Result
}

// CatalogResponse is the wire shape of the games endpoint. Games is never
// empty: degraded responses carry fallback data with Success false and a
// populated Error.
type CatalogResponse struct {
	Success    bool           `json:"success"`
	Games      []catalog.Game `json:"games"`
	Source     string         `json:"source"`
	TotalGames int            `json:"totalGames"`
	Timestamp  string         `json:"timestamp"`
	Error      string         `json:"error,omitempty"`
	FromCache  bool           `json:"fromCache,omitempty"`
}

// HealthResponse is the wire shape of the health endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Redis     bool   `json:"redis"`
	Timestamp string `json:"timestamp"`
}

// cachedCatalog is what both cache tiers store per provider key.
type cachedCatalog struct {
	Games  []catalog.Game `json:"games"`
	Source string         `json:"source"`
}

// Server wires the cache tiers, the pipeline, and the provider catalog into
// HTTP handlers.
type Server struct {
	providers *catalog.ProviderSet
	source    CatalogSource
	local     *cache.Local
	store     cache.Store

	cacheTTL   time.Duration
	failureTTL time.Duration

	now func() time.Time
}

// New builds a Server. The local tier is created here; the durable store is
// injected so the caller controls its lifecycle.
func New(cfg *config.Config, providers *catalog.ProviderSet, source CatalogSource, store cache.Store) *Server {
	return &Server{
		providers:  providers,
		source:     source,
		local:      cache.NewLocal(cfg.LocalTTL),
		store:      store,
		cacheTTL:   cfg.CacheTTL,
		failureTTL: cfg.FailureTTL,
		now:        time.Now,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/games", s.handleGames)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	return mux
}

// handleGames serves the catalog for one provider: local tier, then durable
// tier, then a live scrape. Every path returns HTTP 200 with games.
func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	provider := s.providers.Get(r.URL.Query().Get("provider"))
	key := cache.Key(provider.ID)

	if v, ok := s.local.Get(key); ok {
		if payload, ok := v.(cachedCatalog); ok {
			logger.Debug("catalog served from local tier", "provider", provider.ID)
			s.writeCatalog(w, provider, payload, "local", true, "")
			return
		}
	}

	var payload cachedCatalog
	err := s.store.Get(r.Context(), key, &payload)
	switch {
	case err == nil:
		// Degraded payloads keep the short retry window in the local tier
		// too, otherwise a fallback read near its durable expiry would serve
		// locally for the full default TTL.
		backfillTTL := time.Duration(0)
		if payload.Source == string(scraper.OutcomeFallback) {
			backfillTTL = s.failureTTL
		}
		s.local.Set(key, payload, backfillTTL)
		logger.Debug("catalog served from durable tier", "provider", provider.ID)
		s.writeCatalog(w, provider, payload, "redis", true, "")
		return
	case !errors.Is(err, cache.ErrMiss):
		logger.Warn("durable cache read failed", "provider", provider.ID, "error", err)
	}

	res := s.source.Games(r.Context(), provider.ID)
	payload = cachedCatalog{Games: res.Games, Source: string(res.Outcome)}

	ttl := s.cacheTTL
	if res.Outcome == scraper.OutcomeFallback {
		// Short TTL so a broken upstream is retried soon but not hammered.
		ttl = s.failureTTL
	}
	if err := s.store.Set(r.Context(), key, payload, ttl); err != nil {
		logger.Warn("durable cache write failed", "provider", provider.ID, "error", err)
	}
	s.local.Set(key, payload, ttl)

	s.writeCatalog(w, provider, payload, "miss", false, res.Reason)
}

func (s *Server) writeCatalog(w http.ResponseWriter, provider catalog.Provider, payload cachedCatalog, cacheStatus string, fromCache bool, reason string) {
	success := payload.Source != string(scraper.OutcomeFallback)

	resp := CatalogResponse{
		Success:    success,
		Games:      payload.Games,
		Source:     payload.Source,
		TotalGames: len(payload.Games),
		Timestamp:  s.now().UTC().Format(time.RFC3339),
		FromCache:  fromCache,
	}
	if !success {
		resp.Error = reason
		if resp.Error == "" {
			resp.Error = "live scrape unavailable, serving fallback catalog"
		}
	}

	maxAge := s.cacheTTL
	if !success {
		maxAge = s.failureTTL
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache-Status", cacheStatus)
	w.Header().Set("X-Provider", provider.ID)
	w.Header().Set("Cache-Control", fmt.Sprintf("public, s-maxage=%d", int(maxAge.Seconds())))
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("failed to encode catalog response", "error", err)
	}
}

// handleHealth verifies the durable tier round-trips a probe key: write,
// read back, compare, delete. The local tier needs no probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	healthy := s.probeStore(r.Context())

	resp := HealthResponse{
		Status:    "ok",
		Redis:     healthy,
		Timestamp: s.now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK
	if !healthy {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("failed to encode health response", "error", err)
	}
}

func (s *Server) probeStore(ctx context.Context) bool {
	key := fmt.Sprintf("health:probe:%d", s.now().UnixNano())
	want := s.now().UTC().Format(time.RFC3339Nano)

	if err := s.store.Set(ctx, key, want, time.Minute); err != nil {
		logger.Warn("health probe write failed", "error", err)
		return false
	}

	var got string
	if err := s.store.Get(ctx, key, &got); err != nil {
		logger.Warn("health probe read failed", "error", err)
		return false
	}
	if got != want {
		logger.Warn("health probe value mismatch", "want", want, "got", got)
		return false
	}

	if err := s.store.Delete(ctx, key); err != nil {
		logger.Warn("health probe cleanup failed", "error", err)
	}
	return true
}
