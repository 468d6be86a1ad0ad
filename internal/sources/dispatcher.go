package sources

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/harmonia-app/harmonia/internal/models"
	"github.com/harmonia-app/harmonia/internal/shared"
)

// defaultSource and secondarySource form the fixed fallback chain the
// dispatcher walks when no preferred source is usable. This is a
// deterministic priority chain, not a health-scored router.
const (
	defaultSource   = models.SourceSpotify
	secondarySource = models.SourceYouTube
)

// Dispatcher picks an extractor for generic operations so callers never need
// to know which backend is authenticated.
type Dispatcher struct {
	extractors map[models.Source]Extractor
	logger     *log.Logger
}

// NewDispatcher creates a Dispatcher over the given extractors.
func NewDispatcher(extractors []Extractor, logger *log.Logger) *Dispatcher {
	bySource := make(map[models.Source]Extractor, len(extractors))
	for _, e := range extractors {
		bySource[e.Source()] = e
	}
	return &Dispatcher{extractors: bySource, logger: logger.With("component", "dispatcher")}
}

// Extractor returns the extractor registered for src, if any.
func (d *Dispatcher) Extractor(src models.Source) (Extractor, bool) {
	e, ok := d.extractors[src]
	return e, ok
}

// Resolve picks an extractor: the preferred source if supplied and
// authenticated-and-not-expired, else the default, else the secondary, else
// the default regardless of login state — the caller will be prompted to
// authenticate downstream.
func (d *Dispatcher) Resolve(ctx context.Context, preferred models.Source) (Extractor, error) {
	if preferred != "" {
		if e, ok := d.extractors[preferred]; ok && d.available(ctx, e) {
			return e, nil
		}
	}

	if e, ok := d.extractors[defaultSource]; ok && d.available(ctx, e) {
		return e, nil
	}
	if e, ok := d.extractors[secondarySource]; ok && d.available(ctx, e) {
		return e, nil
	}

	if e, ok := d.extractors[defaultSource]; ok {
		d.logger.Debug("no authenticated source, returning default", "source", defaultSource)
		return e, nil
	}
	return nil, fmt.Errorf("%w: no extractor registered for %s", shared.ErrUnknownSource, defaultSource)
}

func (d *Dispatcher) available(ctx context.Context, e Extractor) bool {
	status, err := e.LoginStatus(ctx)
	if err != nil {
		d.logger.Warn("login status check failed", "source", e.Source(), "error", err)
		return false
	}
	return status.Available()
}

// Search resolves an extractor and delegates.
func (d *Dispatcher) Search(ctx context.Context, preferred models.Source, query string) (*SearchResult, error) {
	e, err := d.Resolve(ctx, preferred)
	if err != nil {
		return nil, err
	}
	return e.Search(ctx, query)
}

// GetUserInfo resolves an extractor and delegates.
func (d *Dispatcher) GetUserInfo(ctx context.Context, preferred models.Source) (*models.SimpleUser, error) {
	e, err := d.Resolve(ctx, preferred)
	if err != nil {
		return nil, err
	}
	return e.GetUserInfo(ctx)
}

// GetUserDetails resolves an extractor and delegates.
func (d *Dispatcher) GetUserDetails(ctx context.Context, preferred models.Source) (*models.UserDetails, error) {
	e, err := d.Resolve(ctx, preferred)
	if err != nil {
		return nil, err
	}
	return e.GetUserDetails(ctx)
}

// GetUserLists resolves an extractor and delegates.
func (d *Dispatcher) GetUserLists(ctx context.Context, preferred models.Source) ([]models.Playlist, error) {
	e, err := d.Resolve(ctx, preferred)
	if err != nil {
		return nil, err
	}
	return e.GetUserLists(ctx)
}

// GetListDetails resolves an extractor and delegates.
func (d *Dispatcher) GetListDetails(ctx context.Context, preferred models.Source, id string) (*models.Playlist, error) {
	e, err := d.Resolve(ctx, preferred)
	if err != nil {
		return nil, err
	}
	return e.GetListDetails(ctx, id)
}

// RefreshListDetails bypasses cache layers when the resolved source supports
// forced refresh; only the streaming source does today, so other backends
// serve a plain GetListDetails. Intentionally asymmetric, not a pattern to
// generalize.
func (d *Dispatcher) RefreshListDetails(ctx context.Context, preferred models.Source, id string) (*models.Playlist, error) {
	e, err := d.Resolve(ctx, preferred)
	if err != nil {
		return nil, err
	}
	if refresher, ok := e.(ListRefresher); ok {
		return refresher.RefreshListDetails(ctx, id)
	}
	return e.GetListDetails(ctx, id)
}

// GetArtistInfo resolves an extractor and delegates.
func (d *Dispatcher) GetArtistInfo(ctx context.Context, preferred models.Source, id string) (*models.SimpleArtist, error) {
	e, err := d.Resolve(ctx, preferred)
	if err != nil {
		return nil, err
	}
	return e.GetArtistInfo(ctx, id)
}

// GetArtistDetails resolves an extractor and delegates.
func (d *Dispatcher) GetArtistDetails(ctx context.Context, preferred models.Source, id string) (*models.Artist, error) {
	e, err := d.Resolve(ctx, preferred)
	if err != nil {
		return nil, err
	}
	return e.GetArtistDetails(ctx, id)
}

// GetUserHome resolves an extractor and delegates.
func (d *Dispatcher) GetUserHome(ctx context.Context, preferred models.Source) (*HomeView, error) {
	e, err := d.Resolve(ctx, preferred)
	if err != nil {
		return nil, err
	}
	return e.GetUserHome(ctx)
}

// GetUserLikes resolves an extractor and delegates.
func (d *Dispatcher) GetUserLikes(ctx context.Context, preferred models.Source) ([]models.Song, error) {
	e, err := d.Resolve(ctx, preferred)
	if err != nil {
		return nil, err
	}
	return e.GetUserLikes(ctx)
}
