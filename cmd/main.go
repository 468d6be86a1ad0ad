package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/harmonia-app/harmonia/internal/credentials"
	"github.com/harmonia-app/harmonia/internal/downloads"
	"github.com/harmonia-app/harmonia/internal/library"
	"github.com/harmonia-app/harmonia/internal/querycache"
	"github.com/harmonia-app/harmonia/internal/shared"
	"github.com/harmonia-app/harmonia/internal/sources"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	store := library.NewStore(config.Storage.DataDir, logger)

	cachePath := config.Cache.Path
	if cachePath == "" {
		cachePath = filepath.Join(config.Storage.DataDir, "queryCache.json")
	}
	cache := querycache.New(cachePath, config.Cache.MaxEntries, logger)

	credStore := credentials.NewFileStore(config.Credentials.Path)
	creds, err := credStore.Load()
	if err != nil {
		logger.Fatal("failed to load credentials", "error", err)
	}
	if creds == nil {
		// Fall back to config-provided credentials for first runs.
		creds = &credentials.Credentials{
			SpotifyClientID:     config.Credentials.Spotify.ClientID,
			SpotifyClientSecret: config.Credentials.Spotify.ClientSecret,
			YouTubeClientID:     config.Credentials.YouTube.APIKey,
			YouTubeClientSecret: config.Credentials.YouTube.ClientSecret,
		}
	}

	runner, err := buildRunner(config, store, cache, creds, logger)
	if err != nil {
		logger.Fatal("failed to initialize", "error", err)
	}

	app := &cli.Command{
		Name:     "harmonia",
		Usage:    "Multi-source music metadata, caching and downloads",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}

// buildRunner wires explicit component instances together: extractors behind
// the dispatcher, the query cache behind the YouTube extractor, the fetch
// tool behind the download manager.
func buildRunner(config *shared.Config, store *library.Store, cache *querycache.Cache, creds *credentials.Credentials, logger *log.Logger) (*Runner, error) {
	var extractors []sources.Extractor
	extractors = append(extractors, sources.NewLocalExtractor(store, logger))
	extractors = append(extractors, sources.NewSoundCloudExtractor())

	if spotify, err := sources.NewSpotifyExtractor(creds,
		credentials.NewTokenStore(config.Credentials.Spotify.TokenPath), logger); err == nil {
		extractors = append(extractors, spotify)
	} else {
		logger.Warn("spotify extractor unavailable", "error", err)
	}

	var runner *downloads.ToolRunner
	if tr, err := downloads.NewToolRunner(config.Downloads, logger); err == nil {
		runner = tr
	} else {
		logger.Warn("fetch tool unavailable, downloads disabled", "error", err)
	}

	youtube := sources.NewYouTubeExtractor(creds,
		credentials.NewTokenStore(config.Credentials.YouTube.TokenPath),
		cache, store, runner, logger)
	extractors = append(extractors, youtube)

	dispatcher := sources.NewDispatcher(extractors, logger)
	manager := downloads.NewManager(youtube, logger)

	return NewRunner(RunnerOpts{
		Config:     config,
		Store:      store,
		Cache:      cache,
		Dispatcher: dispatcher,
		Manager:    manager,
		Logger:     logger,
	}), nil
}
