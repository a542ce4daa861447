package scraper

import (
	"context"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/slotferry/slotferry/internal/logger"
)

// ProbeCandidates makes a cheap HTTP pass over the candidate URLs before the
// browser launches, recording which ones already redirect to the desktop
// variant. Purely advisory: probe errors flag nothing, and flagged
// candidates are demoted, never dropped. The probe runs inside the scrape's
// deadline; each visit is capped by the remaining budget and once ctx is
// done the rest of the candidates are skipped.
func ProbeCandidates(ctx context.Context, urls []string, rule RedirectRule, userAgent string, timeout time.Duration) map[string]bool {
	flagged := make(map[string]bool)

	for _, candidate := range urls {
		if ctx.Err() != nil {
			logger.Debug("preflight probe cut short", "error", ctx.Err())
			return flagged
		}

		visitTimeout := timeout
		if deadline, ok := ctx.Deadline(); ok {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return flagged
			}
			if remaining < visitTimeout {
				visitTimeout = remaining
			}
		}

		c := colly.NewCollector(
			colly.UserAgent(userAgent),
			colly.StdlibContext(ctx),
		)
		c.SetRequestTimeout(visitTimeout)

		desktop := false
		c.OnResponse(func(r *colly.Response) {
			// r.Request.URL is the final URL after any redirects.
			if rule.IsDesktop(r.Request.URL.String()) {
				desktop = true
			}
		})

		if err := c.Visit(candidate); err != nil {
			logger.Debug("preflight probe failed", "url", candidate, "error", err)
			continue
		}
		if desktop {
			logger.Debug("preflight probe saw desktop redirect", "url", candidate)
			flagged[candidate] = true
		}
	}

	return flagged
}
