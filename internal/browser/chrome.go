package browser

import (
	"os/exec"

	"github.com/slotferry/slotferry/internal/logger"
)

// Chrome/Chromium binary names and install locations checked in order.
var chromeBinaryNames = []string{
	"google-chrome-stable",
	"google-chrome",
	"chromium",
	"chromium-browser",
	"chrome",
	// macOS
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
	// Linux
	"/usr/bin/google-chrome-stable",
	"/usr/bin/google-chrome",
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	"/snap/bin/chromium",
}

// findChromePath locates a Chrome/Chromium binary, trying PATH lookup first
// and then the known install locations. Returns empty when nothing is found
// and lets chromedp fall back to its own discovery.
func findChromePath() string {
	for _, name := range chromeBinaryNames {
		if path, err := exec.LookPath(name); err == nil {
			logger.Debug("found Chrome binary", "path", path)
			return path
		}
	}
	logger.Warn("no Chrome binary found, relying on chromedp default lookup")
	return ""
}
