package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/harmonia-app/harmonia/internal/formatter"
	"github.com/harmonia-app/harmonia/internal/models"
	"github.com/harmonia-app/harmonia/internal/shared"
)

// SetupConfig writes a starter configuration file.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.writePlainln("wrote %s", path)
	return nil
}

// Search resolves a source and runs a search.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	preferred := models.Source(cmd.String("source"))
	if preferred != "" && !preferred.Valid() {
		return fmt.Errorf("%w: %s", shared.ErrUnknownSource, preferred)
	}

	result, err := r.dispatcher.Search(ctx, preferred, query)
	if err != nil {
		return err
	}
	return r.writeJSON(result, cmd.Bool("pretty"))
}

// Home renders the resolved source's home view.
func (r *Runner) Home(ctx context.Context, cmd *cli.Command) error {
	preferred := models.Source(cmd.String("source"))
	if preferred != "" && !preferred.Valid() {
		return fmt.Errorf("%w: %s", shared.ErrUnknownSource, preferred)
	}

	home, err := r.dispatcher.GetUserHome(ctx, preferred)
	if err != nil {
		return err
	}
	return r.writeJSON(home, cmd.Bool("pretty"))
}

// LibraryList prints every stored song.
func (r *Runner) LibraryList(ctx context.Context, cmd *cli.Command) error {
	songs, err := r.store.AllSongs()
	if err != nil {
		return err
	}
	return r.writeJSON(songs, cmd.Bool("pretty"))
}

// LibraryImport imports one audio file into the local library.
func (r *Runner) LibraryImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	song, err := r.store.ImportFile(path)
	if err != nil {
		return err
	}
	r.writePlainln("imported %q as %s", song.Title, song.ID)
	return nil
}

// LibraryDelete removes a local song record and its audio blob.
func (r *Runner) LibraryDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}

	deleted, err := r.store.DeleteSongWithAudio(id)
	if err != nil {
		return err
	}
	if !deleted {
		r.writePlainln("no song with id %s", id)
		return nil
	}
	r.writePlainln("deleted %s", id)
	return nil
}

// LibraryExport writes a stored playlist (or the whole song catalog) to CSV,
// Markdown, or plain text.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
	playlist, err := r.exportTarget(cmd.StringArg("id"))
	if err != nil {
		return err
	}
	out := cmd.String("out")

	switch cmd.String("format") {
	case "csv":
		result, err := formatter.WriteCSVExport(playlist, out)
		if err != nil {
			return err
		}
		r.writePlainln("wrote %s and %s", result.TracksFile, result.MetadataFile)
	case "markdown", "md":
		result, err := formatter.WriteMarkdownExport(playlist, out, playlist.Thumbnail)
		if err != nil {
			return err
		}
		r.writePlainln("wrote %s", result.Directory)
	case "text", "txt":
		path, err := formatter.WriteTextExport(playlist, out)
		if err != nil {
			return err
		}
		r.writePlainln("wrote %s", path)
	default:
		return fmt.Errorf("%w: format %q", shared.ErrInvalidInput, cmd.String("format"))
	}
	return nil
}

// exportTarget loads the named playlist, or assembles a synthetic one from
// the full song catalog when no id is given.
func (r *Runner) exportTarget(id string) (*models.Playlist, error) {
	if id != "" {
		playlist, err := r.store.LoadPlaylist(id, models.SourceLocal)
		if err != nil {
			return nil, err
		}
		if playlist == nil {
			return nil, fmt.Errorf("%w: %s", shared.ErrListNotFound, id)
		}
		return playlist, nil
	}

	songs, err := r.store.AllSongs()
	if err != nil {
		return nil, err
	}
	playlist := &models.Playlist{
		ID:     "library",
		Source: models.SourceLocal,
		Name:   "Library",
	}
	for i, song := range songs {
		playlist.Items = append(playlist.Items, models.PlaylistItem{Song: song, TrackNumber: i + 1})
	}
	return playlist, nil
}

// CacheStats prints query cache statistics.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	stats, err := r.cache.GetStats()
	if err != nil {
		return err
	}
	return r.writeJSON(stats, true)
}

// CacheClear discards every cached query.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.cache.Clear(); err != nil {
		return err
	}
	r.writePlainln("cache cleared")
	return nil
}
