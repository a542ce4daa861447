// Package scraper drives the catalog scrape: navigation onto the mobile
// surface, provider selection, and DOM extraction, orchestrated by Pipeline.
package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/slotferry/slotferry/internal/logger"
)

// RedirectRule recognizes navigations that landed on the desktop variant of
// the upstream site instead of the mobile surface.
type RedirectRule struct {
	// Host is the upstream apex host, e.g. "amigo.love".
	Host string
	// MobileMarker is the substring present in mobile-surface URLs,
	// e.g. "m.amigo".
	MobileMarker string
}

// IsDesktop reports whether url points at the desktop variant: either the
// explicit language-forcing redirect target, or any upstream URL missing
// the mobile marker.
func (r RedirectRule) IsDesktop(url string) bool {
	if strings.Contains(url, r.Host+"/?forceLanguage=") {
		return true
	}
	return strings.Contains(url, r.Host) && !strings.Contains(url, r.MobileMarker)
}

// NavigationError means every candidate URL and the forced-mobile technique
// were exhausted. It is the only fatal condition at the navigation layer.
type NavigationError struct {
	Attempts int
	LastErr  error
}

func (e *NavigationError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("all %d navigation candidates failed, last error: %v", e.Attempts, e.LastErr)
	}
	return fmt.Sprintf("all %d navigation candidates failed", e.Attempts)
}

func (e *NavigationError) Unwrap() error { return e.LastErr }

// forceMobileScript coerces a desktop page into mobile layout: viewport meta
// override, mobile marker classes, and a responsive stylesheet override.
const forceMobileScript = `
(function() {
    const viewportMeta = document.querySelector('meta[name="viewport"]');
    if (viewportMeta) {
        viewportMeta.setAttribute('content', 'width=device-width, initial-scale=1.0, user-scalable=no');
    }
    document.body.classList.add('mobile', 'is-mobile');
    const style = document.createElement('style');
    style.textContent = '@media (min-width: 768px) { body { max-width: 375px !important; } }';
    document.head.appendChild(style);
})();
`

// loadingTitle is what the upstream SPA reports before hydration finishes.
const loadingTitle = "Loading"

// Navigator tries an ordered list of candidate entry URLs until one yields
// the mobile surface, falling back to forced-mobile DOM surgery when every
// candidate redirects away.
type Navigator struct {
	Candidates      []string
	ForcedMobileURL string
	Rule            RedirectRule

	// AttemptTimeout bounds each single candidate navigation.
	AttemptTimeout time.Duration
	// SettleWait is the post-navigation pause for JavaScript content.
	SettleWait time.Duration

	// SkipFirst marks candidates the preflight probe already saw redirect
	// to desktop; they are retried last instead of first.
	SkipFirst map[string]bool

	// navigate and force default to the chromedp implementations below.
	// Tests script them to exercise the candidate loop without a browser.
	navigate func(ctx context.Context, url string) (string, error)
	force    func(ctx context.Context) error
}

// Run navigates the session's tab onto the mobile catalog surface. Returns
// *NavigationError only when every candidate and the forced-mobile
// technique failed; individual candidate failures just advance the loop.
func (n *Navigator) Run(ctx context.Context) error {
	navigate := n.navigate
	if navigate == nil {
		navigate = n.attempt
	}
	force := n.force
	if force == nil {
		force = n.forceMobile
	}

	var lastErr error
	attempts := 0

	for _, candidate := range n.ordered() {
		attempts++
		logger.Debug("trying navigation candidate", "url", candidate)

		finalURL, err := navigate(ctx, candidate)
		if err != nil {
			logger.Debug("navigation candidate failed", "url", candidate, "error", err)
			lastErr = err
			continue
		}
		if n.Rule.IsDesktop(finalURL) {
			logger.Debug("candidate redirected to desktop", "url", candidate, "final_url", finalURL)
			lastErr = fmt.Errorf("candidate %s redirected to desktop variant", candidate)
			continue
		}

		logger.Info("mobile navigation succeeded", "url", candidate, "final_url", finalURL)
		n.awaitReady(ctx)
		return nil
	}

	// Last resort: load the desktop URL with mobile-forcing parameters and
	// mutate the document into mobile layout.
	logger.Warn("all mobile candidates failed, forcing mobile layout", "url", n.ForcedMobileURL)
	attempts++
	if err := force(ctx); err != nil {
		return &NavigationError{Attempts: attempts, LastErr: lastErr}
	}

	n.awaitReady(ctx)
	return nil
}

// ordered returns the candidates with probe-flagged entries moved to the
// back. The probe is advisory: flagged candidates are still attempted.
func (n *Navigator) ordered() []string {
	if len(n.SkipFirst) == 0 {
		return n.Candidates
	}
	ordered := make([]string, 0, len(n.Candidates))
	var flagged []string
	for _, c := range n.Candidates {
		if n.SkipFirst[c] {
			flagged = append(flagged, c)
		} else {
			ordered = append(ordered, c)
		}
	}
	return append(ordered, flagged...)
}

func (n *Navigator) attempt(ctx context.Context, url string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, n.AttemptTimeout)
	defer cancel()

	var finalURL string
	err := chromedp.Run(attemptCtx,
		chromedp.Navigate(url),
		chromedp.Location(&finalURL),
	)
	if err != nil {
		return "", err
	}
	return finalURL, nil
}

func (n *Navigator) forceMobile(ctx context.Context) error {
	forcedCtx, cancel := context.WithTimeout(ctx, n.AttemptTimeout)
	defer cancel()

	return chromedp.Run(forcedCtx,
		chromedp.Navigate(n.ForcedMobileURL),
		chromedp.Evaluate(forceMobileScript, nil),
	)
}

// awaitReady waits for the SPA to hydrate: settle pause, bounded readiness
// poll, and an extra pause while the title still reads "Loading". All waits
// are best effort; extraction proceeds with whatever rendered.
func (n *Navigator) awaitReady(ctx context.Context) {
	_ = chromedp.Run(ctx, chromedp.Sleep(n.SettleWait))

	readyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var ready bool
	if err := chromedp.Run(readyCtx,
		chromedp.Poll(`document.readyState === "complete"`, &ready),
	); err != nil {
		logger.Debug("document readiness wait timed out, proceeding", "error", err)
	}

	var title string
	if err := chromedp.Run(ctx, chromedp.Title(&title)); err == nil && title == loadingTitle {
		logger.Debug("page title still loading, waiting")
		_ = chromedp.Run(ctx, chromedp.Sleep(3*time.Second))
	}
}
