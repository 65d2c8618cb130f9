package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/matchday/internal/browser"
	"github.com/ternarybob/matchday/internal/catalog"
	"github.com/ternarybob/matchday/internal/common"
	"github.com/ternarybob/matchday/internal/scraper"
	"github.com/ternarybob/matchday/internal/storage"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	catalogPath  = flag.String("catalog", "catalog.json", "Competition catalog file (.json, .yaml or .yml)")
	outputDir    = flag.String("out", "", "Output directory (overrides config)")
	headless     = flag.Bool("headless", true, "Run the browser headless (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	// Register custom flag for multiple config files
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Matchday version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Only honor -headless when the user actually passed it, so config files
	// keep control otherwise.
	var headlessOverride *bool
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "headless" {
			headlessOverride = headless
		}
	})

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner
	var err error

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("matchday.toml"); err == nil {
			configFiles = append(configFiles, "matchday.toml")
		} else if _, err := os.Stat("deployments/local/matchday.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/matchday.toml")
		}
	}

	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, *outputDir, headlessOverride)

	logger = common.InitLogger(config)

	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Str("catalog", *catalogPath).
		Str("output_dir", config.Storage.OutputDir).
		Int("from_year", config.Scrape.FromYear).
		Int("to_year", config.Scrape.ToYear).
		Msg("Application configuration loaded")

	competitions, err := catalog.Load(*catalogPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load competition catalog")
	}
	logger.Info().
		Int("countries", len(competitions.Countries)).
		Int("tournaments", competitions.TournamentCount()).
		Msg("Competition catalog loaded")

	store, err := storage.NewStore(config.Storage.OutputDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create output store")
	}

	meta, err := storage.OpenMetadata(config.Storage.Badger, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open metadata store")
	}
	defer meta.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	crawl := func() {
		runID := common.NewRunID()
		runLogger := logger
		runLogger.Info().Str("run_id", runID).Msg("Crawl run starting")

		if err := runCrawl(ctx, competitions, store, meta, runLogger); err != nil {
			runLogger.Error().Err(err).Str("run_id", runID).Msg("Crawl run failed")
			return
		}
		runLogger.Info().Str("run_id", runID).Msg("Crawl run finished")
	}

	if config.Schedule == "" {
		crawl()
		return
	}

	// Scheduled mode: run on the cron expression until interrupted. Completed
	// seasons are skipped via the metadata store, so recurring runs only pick
	// up what previous runs missed.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(config.Schedule, crawl); err != nil {
		logger.Fatal().Err(err).Str("schedule", config.Schedule).Msg("Invalid cron schedule")
	}
	scheduler.Start()
	logger.Info().Str("schedule", config.Schedule).Msg("Scheduler started - Press Ctrl+C to stop")

	<-ctx.Done()
	<-scheduler.Stop().Done()
	logger.Info().Msg("Scheduler stopped")
}

// runCrawl drives one full pass over the catalog with a fresh browser
// session. Tournament failures are logged and do not stop the pass.
func runCrawl(ctx context.Context, competitions *catalog.Catalog, store *storage.Store, meta *storage.MetadataStore, logger arbor.ILogger) error {
	session := browser.NewSession(config.Browser, logger)
	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer session.Close()

	retry := scraper.NewRetryPolicy(config.Retry, logger)
	composer := scraper.NewComposer(session, store, meta, retry, config.Scrape, config.Browser.PageTimeout, logger)

	for _, country := range competitions.Countries {
		for _, tournament := range country.Tournaments {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			logger.Info().
				Str("country", country.Name).
				Str("tournament", tournament.Name).
				Msg("Composing tournament")

			if err := composer.ComposeTournament(ctx, country.Name, tournament); err != nil {
				logger.Error().
					Err(err).
					Str("country", country.Name).
					Str("tournament", tournament.Name).
					Msg("Tournament failed, continuing with next")
			}
		}
	}
	return nil
}
