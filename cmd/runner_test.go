package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/harmonia-app/harmonia/internal/library"
	"github.com/harmonia-app/harmonia/internal/models"
	"github.com/harmonia-app/harmonia/internal/querycache"
	"github.com/harmonia-app/harmonia/internal/shared"
	"github.com/harmonia-app/harmonia/internal/sources"
	tu "github.com/harmonia-app/harmonia/internal/testing"
)

func newTestRunner(t *testing.T, extractors ...sources.Extractor) (*Runner, *bytes.Buffer) {
	t.Helper()
	logger := shared.NewLogger(io.Discard)
	output := &bytes.Buffer{}

	store := library.NewStore(t.TempDir(), logger)
	cache := querycache.New(filepath.Join(t.TempDir(), "queryCache.json"), 10, logger)

	runner := NewRunner(RunnerOpts{
		Config:     shared.DefaultConfig(),
		Store:      store,
		Cache:      cache,
		Dispatcher: sources.NewDispatcher(extractors, logger),
		Logger:     logger,
		Output:     output,
	})
	return runner, output
}

func runCommand(t *testing.T, runner *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{Name: "harmonia", Commands: runner.register()}
	return app.Run(context.Background(), append([]string{"harmonia"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}

			runner := NewRunner(RunnerOpts{
				Config: config,
				Logger: logger,
				Output: output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner, _ := newTestRunner(t)
		commands := runner.register()

		if len(commands) != 7 {
			t.Errorf("expected 7 top-level commands, got %d", len(commands))
		}

		names := make(map[string]bool)
		for _, cmd := range commands {
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "auth", "search", "library", "download", "cache", "home"} {
			if !names[want] {
				t.Errorf("expected command %q to be registered", want)
			}
		}
	})
}

func TestSearchCommand(t *testing.T) {
	t.Run("Writes Results As JSON", func(t *testing.T) {
		mock := &tu.MockExtractor{
			Src:    models.SourceSpotify,
			Status: sources.AuthStatus{LoggedIn: true},
			Results: &sources.SearchResult{
				Songs: []models.Song{{ID: "s1", Source: models.SourceSpotify, Title: "Blinding Lights"}},
			},
		}
		runner, output := newTestRunner(t, mock)

		if err := runCommand(t, runner, "search", "blinding lights"); err != nil {
			t.Fatalf("search command failed: %v", err)
		}

		var result sources.SearchResult
		if err := json.Unmarshal(output.Bytes(), &result); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", output.String(), err)
		}
		if len(result.Songs) != 1 || result.Songs[0].Title != "Blinding Lights" {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("Missing Query", func(t *testing.T) {
		mock := &tu.MockExtractor{Src: models.SourceSpotify, Status: sources.AuthStatus{LoggedIn: true}}
		runner, _ := newTestRunner(t, mock)

		if err := runCommand(t, runner, "search"); err == nil {
			t.Error("expected error for missing query argument")
		}
	})

	t.Run("Invalid Source Flag", func(t *testing.T) {
		mock := &tu.MockExtractor{Src: models.SourceSpotify, Status: sources.AuthStatus{LoggedIn: true}}
		runner, _ := newTestRunner(t, mock)

		if err := runCommand(t, runner, "search", "--source", "vimeo", "query"); err == nil {
			t.Error("expected error for unknown source")
		}
	})
}

func TestLibraryCommands(t *testing.T) {
	t.Run("List Empty", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := runCommand(t, runner, "library", "list"); err != nil {
			t.Fatalf("library list failed: %v", err)
		}
		if strings.TrimSpace(output.String()) != "null" {
			t.Errorf("expected empty JSON list, got %q", output.String())
		}
	})

	t.Run("Import Then List", func(t *testing.T) {
		runner, output := newTestRunner(t)

		audio := filepath.Join(t.TempDir(), "My Song.mp3")
		tu.MustWriteFile(t, audio, []byte("not real audio"))

		if err := runCommand(t, runner, "library", "import", audio); err != nil {
			t.Fatalf("library import failed: %v", err)
		}
		if !strings.Contains(output.String(), "My Song") {
			t.Errorf("expected import confirmation, got %q", output.String())
		}

		output.Reset()
		if err := runCommand(t, runner, "library", "list"); err != nil {
			t.Fatalf("library list failed: %v", err)
		}

		var songs []models.Song
		if err := json.Unmarshal(output.Bytes(), &songs); err != nil {
			t.Fatalf("expected JSON output: %v", err)
		}
		if len(songs) != 1 || songs[0].Title != "My Song" {
			t.Errorf("unexpected songs %+v", songs)
		}
	})

	t.Run("Export Catalog To CSV", func(t *testing.T) {
		runner, output := newTestRunner(t)

		song := &models.Song{
			ID:     "s1",
			Source: models.SourceLocal,
			Title:  "Exported Song",
			Artists: []models.SimpleArtist{
				{ID: "a1", Source: models.SourceLocal, Name: "Somebody"},
			},
		}
		if err := runner.store.SaveSong(song); err != nil {
			t.Fatalf("failed to seed song: %v", err)
		}

		base := filepath.Join(t.TempDir(), "export")
		if err := runCommand(t, runner, "library", "export", "--out", base); err != nil {
			t.Fatalf("library export failed: %v", err)
		}

		tu.AssertFileExists(t, base+"_tracks.csv")
		content := tu.MustReadFile(t, base+"_tracks.csv")
		if !strings.Contains(content, "Exported Song") {
			t.Errorf("expected exported song in CSV, got %q", content)
		}
		if !strings.Contains(output.String(), "wrote") {
			t.Errorf("expected confirmation, got %q", output.String())
		}
	})

	t.Run("Export Missing Playlist", func(t *testing.T) {
		runner, _ := newTestRunner(t)

		if err := runCommand(t, runner, "library", "export", "absent"); err == nil {
			t.Error("expected error for missing playlist")
		}
	})

	t.Run("Delete Missing", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := runCommand(t, runner, "library", "delete", "absent-id"); err != nil {
			t.Fatalf("library delete failed: %v", err)
		}
		if !strings.Contains(output.String(), "no song") {
			t.Errorf("expected missing-song message, got %q", output.String())
		}
	})
}

func TestCacheCommands(t *testing.T) {
	t.Run("Stats", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := runner.cache.Set("some song", "vid1"); err != nil {
			t.Fatalf("failed to seed cache: %v", err)
		}

		if err := runCommand(t, runner, "cache", "stats"); err != nil {
			t.Fatalf("cache stats failed: %v", err)
		}

		var stats querycache.Stats
		if err := json.Unmarshal(output.Bytes(), &stats); err != nil {
			t.Fatalf("expected JSON stats: %v", err)
		}
		if stats.Entries != 1 {
			t.Errorf("expected 1 entry, got %d", stats.Entries)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := runner.cache.Set("some song", "vid1"); err != nil {
			t.Fatalf("failed to seed cache: %v", err)
		}

		if err := runCommand(t, runner, "cache", "clear"); err != nil {
			t.Fatalf("cache clear failed: %v", err)
		}
		if !strings.Contains(output.String(), "cache cleared") {
			t.Errorf("expected confirmation, got %q", output.String())
		}

		n, err := runner.cache.Len()
		if err != nil {
			t.Fatalf("len failed: %v", err)
		}
		if n != 0 {
			t.Errorf("expected empty cache, got %d entries", n)
		}
	})
}

func TestSetupCommand(t *testing.T) {
	t.Run("Writes Config File", func(t *testing.T) {
		runner, _ := newTestRunner(t)
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := runCommand(t, runner, "setup", "config", "--config", path); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}
		tu.AssertFileExists(t, path)

		config, err := shared.LoadConfig(path)
		if err != nil {
			t.Fatalf("failed to load written config: %v", err)
		}
		if config.Downloads.MaxConcurrent != 3 {
			t.Errorf("expected default max_concurrent, got %d", config.Downloads.MaxConcurrent)
		}
	})
}
