package browser

import (
	"context"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// stealthScript patches the fingerprint surface a headless browser exposes
// so the rendered page matches a real mobile Safari/Chrome client. Based on
// puppeteer-extra-plugin-stealth evasions, reduced to the checks the
// upstream site exercises.
const stealthScript = `
(function() {
    'use strict';

    // navigator.webdriver is the first thing every detector looks at.
    Object.defineProperty(navigator, 'webdriver', {
        get: () => undefined,
        configurable: true
    });
    delete Object.getPrototypeOf(navigator).webdriver;

    Object.defineProperty(navigator, 'languages', {
        get: () => Object.freeze(['en-US', 'en']),
        configurable: true
    });

    // Mobile clients report touch points; headless defaults to 0.
    if (navigator.maxTouchPoints === 0) {
        Object.defineProperty(navigator, 'maxTouchPoints', {
            get: () => 5,
            configurable: true
        });
    }

    if (navigator.hardwareConcurrency === 0) {
        Object.defineProperty(navigator, 'hardwareConcurrency', {
            get: () => 6,
            configurable: true
        });
    }

    if (navigator.deviceMemory === undefined || navigator.deviceMemory === 0) {
        Object.defineProperty(navigator, 'deviceMemory', {
            get: () => 4,
            configurable: true
        });
    }

    // Headless has an empty plugins array.
    if (navigator.plugins.length === 0) {
        const plugin = Object.create(Plugin.prototype);
        Object.defineProperties(plugin, {
            name: { value: 'PDF Viewer', enumerable: true },
            description: { value: 'Portable Document Format', enumerable: true },
            filename: { value: 'internal-pdf-viewer', enumerable: true },
            length: { value: 1, enumerable: true }
        });
        const pluginArray = Object.create(PluginArray.prototype);
        pluginArray[0] = plugin;
        Object.defineProperty(pluginArray, 'length', { value: 1 });
        Object.defineProperty(pluginArray, 'item', { value: (i) => pluginArray[i] || null });
        Object.defineProperty(pluginArray, 'namedItem', { value: (n) => pluginArray[n] || null });
        Object.defineProperty(navigator, 'plugins', {
            get: () => pluginArray,
            configurable: true
        });
    }

    // window.chrome is absent in some headless contexts.
    if (!window.chrome) {
        Object.defineProperty(window, 'chrome', {
            value: { runtime: {} },
            writable: true,
            enumerable: true
        });
    }

    // Permissions.query for notifications reveals headless.
    const originalQuery = Permissions.prototype.query;
    Permissions.prototype.query = function(parameters) {
        if (parameters.name === 'notifications') {
            return Promise.resolve({ state: Notification.permission });
        }
        return originalQuery.call(this, parameters);
    };

    // WebGL vendor strings betray SwiftShader.
    const getParameterProxyHandler = {
        apply: function(target, ctx, args) {
            const param = args[0];
            if (param === 37445) { return 'Apple Inc.'; }            // UNMASKED_VENDOR_WEBGL
            if (param === 37446) { return 'Apple GPU'; }             // UNMASKED_RENDERER_WEBGL
            return Reflect.apply(target, ctx, args);
        }
    };
    try {
        WebGLRenderingContext.prototype.getParameter =
            new Proxy(WebGLRenderingContext.prototype.getParameter, getParameterProxyHandler);
    } catch (e) {}
    try {
        WebGL2RenderingContext.prototype.getParameter =
            new Proxy(WebGL2RenderingContext.prototype.getParameter, getParameterProxyHandler);
    } catch (e) {}
})();
`

// stealthAllocatorOptions returns Chrome flags for a mobile-profile headless
// browser with automation indicators suppressed.
func stealthAllocatorOptions(headless bool) []chromedp.ExecAllocatorOption {
	return []chromedp.ExecAllocatorOption{
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),

		// Anti-detection flags
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-features", "IsolateOrigins,site-per-process"),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("useAutomationExtension", false),
		chromedp.Flag("disable-infobars", true),

		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-web-security", true),
		chromedp.Flag("allow-running-insecure-content", true),
		chromedp.Flag("ignore-certificate-errors", true),

		// Mobile locale posture
		chromedp.Flag("lang", "en-US,en"),
		chromedp.Flag("accept-lang", "en-US,en;q=0.9"),
		chromedp.Flag("touch-events", "enabled"),
	}
}

// injectStealthScript installs the stealth patches before any page script
// runs. Must execute before the first navigation.
func injectStealthScript() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
		return err
	})
}
