package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/slotferry/slotferry/internal/catalog"
	"github.com/slotferry/slotferry/internal/logger"
)

// gameContainerSelector is the catalog container rendered after a provider
// tab activates.
const gameContainerSelector = ".game-item"

// clickTimeout bounds the provider tab interaction itself.
const clickTimeout = 5 * time.Second

// SelectProvider taps the provider's on-page control and waits for its
// catalog to render. A missing catalog container is logged but not fatal:
// extraction proceeds with whatever the page shows.
func SelectProvider(ctx context.Context, p catalog.Provider, settle, containerWait time.Duration) error {
	clickCtx, cancel := context.WithTimeout(ctx, clickTimeout)
	defer cancel()

	if err := chromedp.Run(clickCtx,
		chromedp.Click(p.Selector, chromedp.ByQuery, chromedp.NodeVisible),
	); err != nil {
		return fmt.Errorf("provider control %q not clickable: %w", p.Selector, err)
	}

	_ = chromedp.Run(ctx, chromedp.Sleep(settle))

	waitCtx, cancelWait := context.WithTimeout(ctx, containerWait)
	defer cancelWait()
	if err := chromedp.Run(waitCtx,
		chromedp.WaitVisible(gameContainerSelector, chromedp.ByQuery),
	); err != nil {
		logger.Warn("catalog container did not appear, extracting what is present",
			"provider", p.ID, "error", err)
	}

	return nil
}
