package scraper

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/slotferry/slotferry/internal/catalog"
	"github.com/slotferry/slotferry/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		ListenAddr:      ":0",
		RedisAddr:       "localhost:6379",
		UpstreamHost:    "amigo.love",
		MobileMarker:    "m.amigo",
		CandidateURLs:   []string{"http://127.0.0.1:1/game-slot"},
		ForcedMobileURL: "https://amigo.love/game-slot?mobile=1&forceLanguage=en",
		Origin:          "https://m.amigo.love",
		DefaultProvider: "pg-soft",
		CacheTTL:        15 * time.Minute,
		FailureTTL:      5 * time.Minute,
		LocalTTL:        15 * time.Minute,
		ScrapeTimeout:   5 * time.Second,
		NavTimeout:      500 * time.Millisecond,
		SettleWait:      10 * time.Millisecond,
		ContainerWait:   10 * time.Millisecond,
		Headless:        true,
		UserAgent:       "test-agent",
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

type fakeSession struct {
	ctx    context.Context
	closed atomic.Bool
}

func (f *fakeSession) Ctx() context.Context { return f.ctx }
func (f *fakeSession) Close()               { f.closed.Store(true) }

func TestGamesFallsBackWhenSessionFails(t *testing.T) {
	p := New(testConfig(), testProviders(t))
	p.newSession = func(ctx context.Context) (session, error) {
		return nil, errors.New("chrome binary not found")
	}

	res := p.Games(context.Background(), "pg-soft")

	if res.Outcome != OutcomeFallback {
		t.Fatalf("expected fallback outcome, got %s", res.Outcome)
	}
	if !strings.Contains(res.Reason, "browser session failed") {
		t.Errorf("unexpected reason: %q", res.Reason)
	}
	if len(res.Games) == 0 {
		t.Fatal("fallback result must carry games")
	}
	for _, g := range res.Games {
		if err := g.Validate(); err != nil {
			t.Errorf("fallback game %s invalid: %v", g.ID, err)
		}
	}
}

func TestGamesFallsBackWhenNavigationFails(t *testing.T) {
	fake := &fakeSession{ctx: context.Background()}
	p := New(testConfig(), testProviders(t))
	p.newSession = func(ctx context.Context) (session, error) {
		return fake, nil
	}

	res := p.Games(context.Background(), "pg-soft")

	if res.Outcome != OutcomeFallback {
		t.Fatalf("expected fallback outcome, got %s", res.Outcome)
	}
	if !strings.Contains(res.Reason, "navigation failed") {
		t.Errorf("unexpected reason: %q", res.Reason)
	}
	if !fake.closed.Load() {
		t.Error("session must be closed after the scrape")
	}
}

func TestGamesCoalescesConcurrentRequests(t *testing.T) {
	var sessions atomic.Int32
	p := New(testConfig(), testProviders(t))
	p.newSession = func(ctx context.Context) (session, error) {
		sessions.Add(1)
		time.Sleep(200 * time.Millisecond)
		return nil, errors.New("no browser in tests")
	}

	// Unknown IDs resolve to the default provider, so they share its key.
	ids := []string{"pg-soft", "pg-soft", "does-not-exist", "pg-soft", "does-not-exist"}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			res := p.Games(context.Background(), id)
			if res.Outcome != OutcomeFallback {
				t.Errorf("expected fallback outcome, got %s", res.Outcome)
			}
		}(id)
	}
	wg.Wait()

	if got := sessions.Load(); got != 1 {
		t.Errorf("expected 1 coalesced session, got %d", got)
	}
}

func TestScrapeAllContinuesPastFailures(t *testing.T) {
	providers := testProviders(t)
	p := New(testConfig(), providers)
	p.newSession = func(ctx context.Context) (session, error) {
		return nil, errors.New("chrome binary not found")
	}

	results := p.ScrapeAll(context.Background())

	if len(results) != len(providers.All()) {
		t.Fatalf("expected a result per provider, got %d of %d", len(results), len(providers.All()))
	}
	for id, res := range results {
		if res.Outcome != OutcomeFallback {
			t.Errorf("provider %s: expected fallback, got %s", id, res.Outcome)
		}
		if len(res.Games) == 0 {
			t.Errorf("provider %s: fallback result must carry games", id)
		}
	}
}

func TestBlockRequest(t *testing.T) {
	cfg := testConfig()
	p := New(cfg, testProviders(t))
	block := p.blockRequest()

	tests := []struct {
		name    string
		url     string
		blocked bool
	}{
		{"mobile surface", "https://m.amigo.love/game-slot", false},
		{"desktop redirect target", "https://amigo.love/?forceLanguage=en", true},
		{"desktop page", "https://amigo.love/lobby", true},
		{"third-party asset", "https://cdn.example.com/sprite.png", false},
		{"forced mobile exemption", cfg.ForcedMobileURL, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := block(tt.url); got != tt.blocked {
				t.Errorf("block(%q) = %v, want %v", tt.url, got, tt.blocked)
			}
		})
	}
}

func TestGamesDetachedFromCallerCancellation(t *testing.T) {
	var sawLiveContext atomic.Bool
	p := New(testConfig(), testProviders(t))
	p.newSession = func(ctx context.Context) (session, error) {
		if ctx.Err() == nil {
			sawLiveContext.Store(true)
		}
		return nil, errors.New("no browser in tests")
	}

	// The result of a coalesced scrape is shared and cached, so one
	// caller's disconnect must not cancel it for everyone.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := p.Games(ctx, "pg-soft")

	if !sawLiveContext.Load() {
		t.Error("scrape context must not inherit the caller's cancellation")
	}
	if res.Outcome != OutcomeFallback {
		t.Errorf("expected fallback outcome, got %s", res.Outcome)
	}
}
