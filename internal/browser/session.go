// Package browser owns the headless rendering engine: one isolated browser
// instance per scrape cycle, configured for mobile device emulation,
// anti-detection, and network-level request filtering.
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/slotferry/slotferry/internal/logger"
)

// Config controls a browser session.
type Config struct {
	UserAgent string
	Headless  bool

	// BlockRequest aborts any outgoing request it returns true for.
	// Used to stop desktop-redirect navigations at the network level.
	BlockRequest func(url string) bool
}

// Mobile viewport matching the emulated device.
const (
	viewportWidth  = 375
	viewportHeight = 667
	deviceScale    = 2.0
)

// Session is an isolated rendering engine instance owned by exactly one
// scrape invocation. Close must run on every exit path.
type Session struct {
	ctx         context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// NewSession launches a browser configured as a mobile client: 375x667@2x
// touch viewport, mobile Safari user agent, stealth posture, locale
// overrides, and the request filter from cfg. The session dies with parent:
// cancelling the scrape deadline tears the browser down.
func NewSession(parent context.Context, cfg Config) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:], stealthAllocatorOptions(cfg.Headless)...)
	opts = append(opts,
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(viewportWidth, viewportHeight),
	)
	if path := findChromePath(); path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx)

	s := &Session{ctx: ctx, cancelCtx: cancelCtx, cancelAlloc: cancelAlloc}

	if err := chromedp.Run(ctx,
		injectStealthScript(),
		emulateMobileDevice(cfg.UserAgent),
		network.SetExtraHTTPHeaders(mobileHeaders()),
	); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to launch browser session: %w", err)
	}

	if cfg.BlockRequest != nil {
		if err := installRequestFilter(ctx, cfg.BlockRequest); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to install request filter: %w", err)
		}
	}

	logger.Debug("browser session ready",
		"headless", cfg.Headless,
		"viewport", fmt.Sprintf("%dx%d@%.0fx", viewportWidth, viewportHeight, deviceScale))
	return s, nil
}

// Ctx returns the tab context all page actions run against.
func (s *Session) Ctx() context.Context {
	return s.ctx
}

// Close releases the browser process and its allocator. Safe to call more
// than once.
func (s *Session) Close() {
	s.cancelCtx()
	s.cancelAlloc()
}

// emulateMobileDevice applies CDP device emulation: metrics, touch, and a
// user-agent override carrying the mobile platform and accept-language.
func emulateMobileDevice(userAgent string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := emulation.SetDeviceMetricsOverride(viewportWidth, viewportHeight, deviceScale, true).
			WithScreenWidth(viewportWidth).
			WithScreenHeight(viewportHeight).
			Do(ctx); err != nil {
			return err
		}
		if err := emulation.SetTouchEmulationEnabled(true).
			WithMaxTouchPoints(5).
			Do(ctx); err != nil {
			return err
		}
		return emulation.SetUserAgentOverride(userAgent).
			WithAcceptLanguage("en-US,en;q=0.9").
			WithPlatform("iPhone").
			Do(ctx)
	})
}

func mobileHeaders() network.Headers {
	return network.Headers{
		"Accept-Language":           "en-US,en;q=0.9",
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8",
		"Cache-Control":             "no-cache",
		"Pragma":                    "no-cache",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
		"Upgrade-Insecure-Requests": "1",
	}
}
