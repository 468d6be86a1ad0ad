package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/harmonia-app/harmonia/internal/downloads"
	"github.com/harmonia-app/harmonia/internal/models"
)

// Download enqueues a download and streams status events until the task
// reaches a terminal state.
func (r *Runner) Download(ctx context.Context, cmd *cli.Command) error {
	song := models.Song{
		Source: models.SourceYouTube,
		ID:     cmd.String("id"),
		Title:  cmd.String("title"),
	}
	if artist := cmd.String("artist"); artist != "" {
		song.Artists = []models.SimpleArtist{{ID: artist, Source: models.SourceYouTube, Name: artist}}
	}

	id := r.manager.Request(ctx, song)
	term := downloads.DeriveTerm(song)
	r.logger.Info("download requested", "id", id, "term", term)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-r.manager.Events():
			if ev.Term != term {
				continue
			}
			switch ev.Status {
			case downloads.StatusDownloading:
				if ev.Output != "" {
					r.writePlainln("  %s", ev.Output)
				}
			case downloads.StatusDone:
				r.writePlainln("done: %s", ev.Path)
				return nil
			case downloads.StatusError:
				return fmt.Errorf("download failed: %s", ev.Message)
			}
		}
	}
}
