package commands

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/slotferry/slotferry/internal/catalog"
	"github.com/slotferry/slotferry/internal/output"
	"github.com/slotferry/slotferry/internal/scraper"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "One-shot catalog scrape",
	Long: `Scrape the upstream catalog once and write the result.

Without --provider every configured provider is scraped in a single
browser session and the games are aggregated into one document. With
--provider only that provider's catalog is fetched.

Examples:
  # Every provider, pretty JSON to stdout
  slotferry scrape

  # One provider, YAML to a file
  slotferry scrape --provider jili --format yaml -o catalog.yaml`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	flags := scrapeCmd.Flags()
	flags.StringP("provider", "p", "", "scrape a single provider instead of all")
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "json", "output format: json, jsonl, yaml")
	flags.Bool("pretty", true, "pretty-print JSON output")
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		logError("%v", err)
		return err
	}

	providers, err := catalog.LoadProviders(cfg.ProvidersFile, cfg.DefaultProvider)
	if err != nil {
		logError("failed to load providers: %v", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline := scraper.New(cfg, providers)
	providerID, _ := cmd.Flags().GetString("provider")

	var games []catalog.Game
	source := string(scraper.OutcomeLive)

	if providerID != "" {
		res := pipeline.Games(ctx, providerID)
		games = res.Games
		source = string(res.Outcome)
	} else {
		results := pipeline.ScrapeAll(ctx)

		// Deterministic provider order in the aggregated document.
		ids := make([]string, 0, len(results))
		allFallback := true
		for id, res := range results {
			ids = append(ids, id)
			if res.Outcome != scraper.OutcomeFallback {
				allFallback = false
			}
		}
		sort.Strings(ids)
		for _, id := range ids {
			games = append(games, results[id].Games...)
		}
		if allFallback {
			source = string(scraper.OutcomeFallback)
		}
	}

	dest := os.Stdout
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			logError("failed to create output file: %v", err)
			return err
		}
		defer f.Close()
		dest = f
	}

	format, _ := cmd.Flags().GetString("format")
	pretty, _ := cmd.Flags().GetBool("pretty")
	writer, err := output.NewWriter(dest, output.Format(format), output.WithPretty(pretty))
	if err != nil {
		logError("%v", err)
		return err
	}

	return writer.Write(output.NewDocument(source, games))
}
