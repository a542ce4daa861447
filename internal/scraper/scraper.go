package scraper

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/slotferry/slotferry/internal/browser"
	"github.com/slotferry/slotferry/internal/catalog"
	"github.com/slotferry/slotferry/internal/config"
	"github.com/slotferry/slotferry/internal/logger"
)

// Outcome labels where a result's games came from.
type Outcome string

const (
	OutcomeLive     Outcome = "live-scrape"
	OutcomeFallback Outcome = "fallback"
)

// batchTopN bounds the per-provider payload in batch mode.
const batchTopN = 10

// Result is a completed scrape. Games is never empty: when the live scrape
// fails the generated fallback catalog fills it and Reason says why.
type Result struct {
	Games   []catalog.Game
	Outcome Outcome
	Reason  string
}

// session is the slice of browser.Session the pipeline needs. Tests swap in
// a fake to exercise the orchestration without a browser.
type session interface {
	Ctx() context.Context
	Close()
}

// Pipeline runs the end-to-end scrape with a hard deadline and absorbs every
// failure mode into fallback data. Concurrent requests for the same provider
// coalesce onto a single browser session.
type Pipeline struct {
	cfg       *config.Config
	providers *catalog.ProviderSet
	group     singleflight.Group

	newSession func(ctx context.Context) (session, error)
}

// New builds a Pipeline over a real browser session factory.
func New(cfg *config.Config, providers *catalog.ProviderSet) *Pipeline {
	p := &Pipeline{cfg: cfg, providers: providers}
	p.newSession = func(ctx context.Context) (session, error) {
		return browser.NewSession(ctx, browser.Config{
			UserAgent:    cfg.UserAgent,
			Headless:     cfg.Headless,
			BlockRequest: p.blockRequest(),
		})
	}
	return p
}

// blockRequest aborts desktop-variant requests at the network layer so the
// tab cannot be dragged off the mobile surface mid-load. The forced-mobile
// URL matches the desktop rule by construction and must stay loadable, so it
// is exempted explicitly.
func (p *Pipeline) blockRequest() func(string) bool {
	rule := p.rule()
	forced := p.cfg.ForcedMobileURL
	return func(url string) bool {
		if strings.HasPrefix(url, forced) {
			return false
		}
		return rule.IsDesktop(url)
	}
}

func (p *Pipeline) rule() RedirectRule {
	return RedirectRule{Host: p.cfg.UpstreamHost, MobileMarker: p.cfg.MobileMarker}
}

// Games scrapes the catalog for one provider. Unknown provider IDs fall back
// to the default provider. Concurrent calls for the same provider share one
// scrape; the result is fanned out to every waiter.
func (p *Pipeline) Games(ctx context.Context, providerID string) Result {
	provider := p.providers.Get(providerID)

	// The scrape outlives any one waiter: a coalesced result is fanned out
	// to every caller and written to both cache tiers, so it must not be
	// collapsed to fallback by the triggering request disconnecting. The
	// scrape runs detached, governed only by its own deadline.
	v, _, shared := p.group.Do(provider.ID, func() (any, error) {
		return p.scrape(context.WithoutCancel(ctx), provider), nil
	})
	if shared {
		logger.Debug("scrape result shared across coalesced requests", "provider", provider.ID)
	}
	return v.(Result)
}

// scrape is one full pipeline run: session, preflight probe, navigation,
// provider selection, capture, extraction. Every failure path converges on
// fallback data so the caller always has games to serve.
func (p *Pipeline) scrape(ctx context.Context, provider catalog.Provider) Result {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	runCtx, cancel := context.WithTimeout(ctx, p.cfg.ScrapeTimeout)
	defer cancel()

	start := time.Now()
	logger.Info("scrape starting", "provider", provider.ID)

	sess, err := p.newSession(runCtx)
	if err != nil {
		return p.fallback(rng, "browser session failed: "+err.Error())
	}
	defer sess.Close()

	flagged := ProbeCandidates(runCtx, p.cfg.CandidateURLs, p.rule(), p.cfg.UserAgent, p.cfg.NavTimeout)

	nav := &Navigator{
		Candidates:      p.cfg.CandidateURLs,
		ForcedMobileURL: p.cfg.ForcedMobileURL,
		Rule:            p.rule(),
		AttemptTimeout:  p.cfg.NavTimeout,
		SettleWait:      p.cfg.SettleWait,
		SkipFirst:       flagged,
	}
	if err := nav.Run(sess.Ctx()); err != nil {
		return p.fallback(rng, "navigation failed: "+err.Error())
	}

	// The landing page shows the default provider, so a failed tab click
	// still leaves extractable content. Warn and proceed.
	if err := SelectProvider(sess.Ctx(), provider, p.cfg.SettleWait, p.cfg.ContainerWait); err != nil {
		logger.Warn("provider selection failed, extracting landing page", "provider", provider.ID, "error", err)
	}

	snap, err := Capture(sess.Ctx())
	if err != nil {
		return p.fallback(rng, "page capture failed: "+err.Error())
	}

	ext := &Extractor{Origin: p.cfg.Origin, Rand: rng}
	games := ext.Extract(snap, provider)
	if len(games) == 0 {
		return p.fallback(rng, "no games extracted from rendered page")
	}

	logger.Info("scrape succeeded", "provider", provider.ID, "games", len(games), "took", time.Since(start))
	return Result{Games: games, Outcome: OutcomeLive}
}

// ScrapeAll walks every configured provider over a single browser session.
// A provider that fails to select or extract gets fallback data; the batch
// continues. Each provider's games are RTP-sorted and truncated.
func (p *Pipeline) ScrapeAll(ctx context.Context) map[string]Result {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	results := make(map[string]Result)
	providers := p.providers.All()

	runCtx, cancel := context.WithTimeout(ctx, p.cfg.ScrapeTimeout)
	defer cancel()

	allFallback := func(reason string) map[string]Result {
		for _, pr := range providers {
			results[pr.ID] = p.fallback(rng, reason)
		}
		return results
	}

	sess, err := p.newSession(runCtx)
	if err != nil {
		return allFallback("browser session failed: " + err.Error())
	}
	defer sess.Close()

	flagged := ProbeCandidates(runCtx, p.cfg.CandidateURLs, p.rule(), p.cfg.UserAgent, p.cfg.NavTimeout)
	nav := &Navigator{
		Candidates:      p.cfg.CandidateURLs,
		ForcedMobileURL: p.cfg.ForcedMobileURL,
		Rule:            p.rule(),
		AttemptTimeout:  p.cfg.NavTimeout,
		SettleWait:      p.cfg.SettleWait,
		SkipFirst:       flagged,
	}
	if err := nav.Run(sess.Ctx()); err != nil {
		return allFallback("navigation failed: " + err.Error())
	}

	for _, provider := range providers {
		// In batch mode a failed tab click means the page still shows the
		// previous provider, so this provider gets fallback data instead.
		if err := SelectProvider(sess.Ctx(), provider, p.cfg.SettleWait, p.cfg.ContainerWait); err != nil {
			results[provider.ID] = p.fallback(rng, "provider selection failed: "+err.Error())
			continue
		}

		snap, err := Capture(sess.Ctx())
		if err != nil {
			results[provider.ID] = p.fallback(rng, "page capture failed: "+err.Error())
			continue
		}

		ext := &Extractor{Origin: p.cfg.Origin, Rand: rng}
		games := ext.Extract(snap, provider)
		if len(games) == 0 {
			results[provider.ID] = p.fallback(rng, "no games extracted from rendered page")
			continue
		}

		SortByRTP(games)
		results[provider.ID] = Result{Games: TopN(games, batchTopN), Outcome: OutcomeLive}
		logger.Info("batch provider scraped", "provider", provider.ID, "games", len(results[provider.ID].Games))
	}

	return results
}

func (p *Pipeline) fallback(rng *rand.Rand, reason string) Result {
	logger.Warn("serving fallback catalog", "reason", reason)
	return Result{
		Games:   catalog.GenerateFallback(rng),
		Outcome: OutcomeFallback,
		Reason:  reason,
	}
}
