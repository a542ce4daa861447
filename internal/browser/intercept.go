package browser

import (
	"context"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/slotferry/slotferry/internal/logger"
)

// installRequestFilter enables the CDP fetch domain and pauses every
// outgoing request: requests block() matches are aborted, everything else
// continues. Responses must be sent from a separate goroutine because the
// listener runs on the target's event loop.
func installRequestFilter(ctx context.Context, block func(url string) bool) error {
	if err := chromedp.Run(ctx, fetch.Enable()); err != nil {
		return err
	}

	c := chromedp.FromContext(ctx)
	execCtx := cdp.WithExecutor(ctx, c.Target)

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		e, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go func() {
			if block(e.Request.URL) {
				logger.Debug("blocked request", "url", e.Request.URL)
				if err := fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx); err != nil {
					logger.Debug("failed to abort request", "url", e.Request.URL, "error", err)
				}
				return
			}
			if err := fetch.ContinueRequest(e.RequestID).Do(execCtx); err != nil {
				logger.Debug("failed to continue request", "url", e.Request.URL, "error", err)
			}
		}()
	})

	return nil
}
