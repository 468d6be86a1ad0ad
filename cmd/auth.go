package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/harmonia-app/harmonia/internal/auth"
	"github.com/harmonia-app/harmonia/internal/models"
	"github.com/harmonia-app/harmonia/internal/shared"
	"github.com/harmonia-app/harmonia/internal/sources"
)

// authCommand handles interactive login and login-state inspection.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authentication commands",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Log in to Spotify via the browser",
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show login state for every source",
				Action: r.AuthStatus,
			},
		},
	}
}

// AuthLogin runs the authorization-code flow against Spotify and persists the
// resulting token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	extractor, ok := r.dispatcher.Extractor(models.SourceSpotify)
	if !ok {
		return fmt.Errorf("%w: spotify extractor not configured", shared.ErrMissingCredentials)
	}
	spotify, ok := extractor.(*sources.SpotifyExtractor)
	if !ok {
		return fmt.Errorf("%w: spotify extractor not configured", shared.ErrMissingCredentials)
	}

	redirectURI := r.config.Credentials.Spotify.RedirectURI
	if redirectURI == "" {
		return fmt.Errorf("%w: credentials.spotify.redirect_uri", shared.ErrMissingConfig)
	}

	state := shared.GenerateID()
	token, err := auth.RunLoginFlow(ctx, spotify.OAuth(redirectURI), state, r.logger)
	if err != nil {
		return err
	}
	if err := spotify.CompleteLogin(token); err != nil {
		return err
	}

	r.writePlainln("logged in to spotify")
	return nil
}

// AuthStatus prints the login state of every registered source.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	statuses := make(map[models.Source]sources.AuthStatus)
	for _, src := range models.KnownSources() {
		extractor, ok := r.dispatcher.Extractor(src)
		if !ok {
			continue
		}
		status, err := extractor.LoginStatus(ctx)
		if err != nil {
			r.logger.Warn("login status check failed", "source", src, "error", err)
			continue
		}
		statuses[src] = status
	}
	return r.writeJSON(statuses, true)
}
