package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/slotferry/slotferry/internal/catalog"
	"github.com/slotferry/slotferry/internal/logger"
)

// Snapshot is the rendered document captured from the browser tab.
type Snapshot struct {
	HTML  string
	Title string
	URL   string
}

// Capture snapshots the current page for extraction.
func Capture(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := chromedp.Run(ctx,
		chromedp.OuterHTML("html", &snap.HTML),
		chromedp.Title(&snap.Title),
		chromedp.Location(&snap.URL),
	)
	if err != nil {
		return Snapshot{}, fmt.Errorf("page capture failed: %w", err)
	}
	return snap, nil
}

// extractStrategy is one rung of the selector cascade: a pure match over the
// document. The cascade tries each in priority order and the first strategy
// yielding at least one card wins, which tolerates upstream markup churn.
type extractStrategy struct {
	name  string
	match func(doc *goquery.Document) *goquery.Selection
}

var strategies = []extractStrategy{
	{
		name: "game-item",
		match: func(doc *goquery.Document) *goquery.Selection {
			return doc.Find(".game-item")
		},
	},
	{
		name: "class-substring",
		match: func(doc *goquery.Document) *goquery.Selection {
			if s := doc.Find(`[class*="game-item"]`); s.Length() > 0 {
				return s
			}
			return doc.Find(`div[class*="game"]`)
		},
	},
	{
		name: "image-heuristic",
		match: func(doc *goquery.Document) *goquery.Selection {
			imgs := doc.Find(`.img-game, img[src*="game"], img[src*="slot"], img[alt*="game"]`)
			var sel *goquery.Selection
			imgs.Each(func(_ int, img *goquery.Selection) {
				card := img.Closest(".game-item")
				if card.Length() == 0 {
					card = img.Closest("div")
				}
				if card.Length() == 0 {
					card = img.Parent()
				}
				if sel == nil {
					sel = card
				} else {
					sel = sel.AddSelection(card)
				}
			})
			if sel == nil {
				return imgs // empty selection
			}
			return sel
		},
	},
}

// Extractor converts a rendered document into typed game records.
type Extractor struct {
	// Origin resolves relative image URLs, e.g. "https://m.amigo.love".
	Origin string
	// Rand fills fields the upstream markup left unparsable.
	Rand *rand.Rand
}

// Extract runs the selector cascade and builds one Game per matched card.
// A blocked or unrendered page yields nil, signalling the caller to serve
// fallback data.
func (e *Extractor) Extract(snap Snapshot, provider catalog.Provider) []catalog.Game {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	if err != nil {
		logger.Warn("snapshot is not parseable HTML", "error", err)
		return nil
	}

	if blocked(doc, snap.Title) {
		logger.Warn("page appears blocked or unrendered", "title", snap.Title)
		return nil
	}

	cards, strategyName := matchCards(doc)
	if cards == nil || cards.Length() == 0 {
		logger.Warn("no cards matched any selector strategy", "provider", provider.ID)
		return nil
	}
	logger.Debug("selector strategy matched", "strategy", strategyName, "cards", cards.Length())

	games := make([]catalog.Game, 0, cards.Length())
	cards.Each(func(i int, card *goquery.Selection) {
		games = append(games, e.buildGame(card, i, provider))
	})
	return games
}

// matchCards applies the cascade, stopping at the first non-empty match.
func matchCards(doc *goquery.Document) (*goquery.Selection, string) {
	for _, s := range strategies {
		if sel := s.match(doc); sel != nil && sel.Length() > 0 {
			return sel, s.name
		}
	}
	return nil, ""
}

// blocked detects a page the upstream refused to render for us: near-zero
// element count, near-empty text, and a title stuck on the loading state.
func blocked(doc *goquery.Document, title string) bool {
	divs := doc.Find("div").Length()
	imgs := doc.Find("img").Length()
	text := strings.TrimSpace(doc.Find("body").Text())
	return divs <= 5 && imgs == 0 && len(text) <= 20 && title == loadingTitle
}

// buildGame converts one card into a typed record with explicit defaulting:
// malformed upstream HTML never produces a partially-typed record.
func (e *Extractor) buildGame(card *goquery.Selection, index int, provider catalog.Provider) catalog.Game {
	img := card.Find(".img-game").First()
	if img.Length() == 0 {
		img = card.Find("img").First()
	}

	src := img.AttrOr("src", "")
	if src == "" {
		src = img.AttrOr("data-src", "")
	}
	if src == "" {
		src = img.AttrOr("data-original", "")
	}

	name := strings.TrimSpace(card.Find(".game-name").First().Text())
	if name == "" {
		name = strings.TrimSpace(img.AttrOr("alt", ""))
	}
	if name == "" {
		name = strings.TrimSpace(img.AttrOr("title", ""))
	}
	if name == "" {
		name = fmt.Sprintf("Game %d", index+1)
	}

	providerLabel := strings.TrimSpace(card.Find(`[class*="provider"]`).First().Text())
	if providerLabel == "" {
		providerLabel = provider.DisplayName
	}

	category := strings.TrimSpace(card.Find(`[class*="category"]`).First().Text())
	if category == "" {
		category = "slot"
	}

	var badges []string
	card.Find(`[class*="hot"], [class*="new"], [class*="badge"]`).Each(func(_ int, b *goquery.Selection) {
		badges = append(badges, b.Text())
	})
	isHot, isNew := catalog.BadgeFlags(badges)

	playersRaw := card.Find(`.text-online, [class*="text-online"]`).First().Text()
	players, ok := catalog.ParsePlayers(playersRaw)
	if !ok {
		players = catalog.RandomPlayers(e.Rand)
	}

	rtpNode := card.Find(`.rtp-box .percent, .percent, [class*="percent"]`).First().Text()
	rtp := catalog.ScanRTP(rtpNode, card.Text())

	return catalog.Game{
		ID:       fmt.Sprintf("%s-game-%d", provider.ID, index+1),
		Name:     name,
		ImageURL: catalog.ResolveImageURL(src, e.Origin),
		Category: category,
		Provider: providerLabel,
		Players:  players,
		RTP:      rtp,
		IsHot:    isHot,
		IsNew:    isNew,
	}
}

// SortByRTP orders games by parsed RTP descending; records without an RTP
// sort last. Used in batch mode to keep payloads predictable.
func SortByRTP(games []catalog.Game) {
	sort.SliceStable(games, func(i, j int) bool {
		return catalog.RTPValue(games[i].RTP) > catalog.RTPValue(games[j].RTP)
	})
}

// TopN truncates to the first n games after sorting.
func TopN(games []catalog.Game, n int) []catalog.Game {
	if len(games) <= n {
		return games
	}
	return games[:n]
}
