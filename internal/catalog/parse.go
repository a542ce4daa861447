package catalog

import (
	"math"
	"math/rand"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	playersPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([kKmM]?)`)
	percentPattern = regexp.MustCompile(`(\d{2,3}(?:\.\d+)?)\s*%`)
	numberPattern  = regexp.MustCompile(`(\d{2,3}(?:\.\d+)?)`)
)

// ParsePlayers converts a human-readable player count into an integer.
// Supported shapes: "1,234", "1.2K", "2.3M". Returns false when the text
// yields no positive count.
func ParsePlayers(raw string) (int, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	m := playersPattern.FindStringSubmatch(cleaned)
	if m == nil {
		return 0, false
	}

	base, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}

	multiplier := 1.0
	switch strings.ToLower(m[2]) {
	case "k":
		multiplier = 1e3
	case "m":
		multiplier = 1e6
	}

	value := int(math.Round(base * multiplier))
	if value <= 0 {
		return 0, false
	}
	return value, true
}

// RandomPlayers returns a plausible player count for records whose upstream
// count was missing or unparsable.
func RandomPlayers(rng *rand.Rand) int {
	return rng.Intn(3000) + 200
}

// NormalizeRTP extracts a percentage from text. A 2-3 digit number followed
// by "%" is returned as-is; a bare number gets "%" appended; anything else
// yields nil.
func NormalizeRTP(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if m := percentPattern.FindStringSubmatch(raw); m != nil {
		s := m[1] + "%"
		return &s
	}
	if m := numberPattern.FindStringSubmatch(raw); m != nil {
		s := m[1] + "%"
		return &s
	}
	return nil
}

// ScanRTP resolves a game's RTP from a dedicated percentage node first and
// the whole card text second. The card-text scan requires an explicit "%" so
// arbitrary numbers (player counts, bet sizes) are not misread as RTP.
func ScanRTP(nodeText, cardText string) *string {
	if rtp := NormalizeRTP(nodeText); rtp != nil {
		return rtp
	}
	if m := percentPattern.FindStringSubmatch(cardText); m != nil {
		s := m[1] + "%"
		return &s
	}
	return nil
}

// RTPValue parses the numeric part of a normalized RTP string for sorting.
// Records without an RTP sort last.
func RTPValue(rtp *string) float64 {
	if rtp == nil {
		return -1
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(*rtp, "%"), 64)
	if err != nil {
		return -1
	}
	return v
}

// BadgeFlags derives hot/new flags from badge text, matching English and the
// upstream site's Chinese badge labels.
func BadgeFlags(badges []string) (isHot, isNew bool) {
	for _, badge := range badges {
		text := strings.ToLower(badge)
		if strings.Contains(text, "hot") || strings.Contains(text, "火") {
			isHot = true
		}
		if strings.Contains(text, "new") || strings.Contains(text, "新") {
			isNew = true
		}
	}
	return isHot, isNew
}

// ResolveImageURL makes an extracted image source absolute against the
// upstream origin. Empty input stays empty; unresolvable input is returned
// unchanged rather than discarded.
func ResolveImageURL(src, origin string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}

	u, err := url.Parse(src)
	if err != nil {
		return src
	}
	if u.IsAbs() {
		return src
	}

	base, err := url.Parse(origin)
	if err != nil {
		return src
	}
	return base.ResolveReference(u).String()
}
