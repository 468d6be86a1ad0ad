// Package sources defines the extractor capability interface and implements
// it for the local library, Spotify, and YouTube, plus a SoundCloud
// placeholder. The Dispatcher routes generic operations to whichever
// extractor is authenticated and available.
package sources

import (
	"context"

	"github.com/harmonia-app/harmonia/internal/models"
	"github.com/harmonia-app/harmonia/internal/shared"
)

// AuthStatus is the structured login state extractors report instead of
// throwing: a stale token shows up as {LoggedIn: true, Expired: true} so
// callers can refresh proactively.
type AuthStatus struct {
	LoggedIn bool `json:"loggedIn"`
	Expired  bool `json:"expired"`
}

// Available reports whether the extractor can serve authenticated operations
// right now.
func (a AuthStatus) Available() bool {
	return a.LoggedIn && !a.Expired
}

// SearchResult groups normalized entities returned by a search.
type SearchResult struct {
	Songs     []models.Song         `json:"songs"`
	Artists   []models.SimpleArtist `json:"artists"`
	Albums    []models.SimpleAlbum  `json:"albums"`
	Playlists []models.Playlist     `json:"playlists"`
}

// HomeView is the synthetic "home" page an extractor assembles for a user.
type HomeView struct {
	Songs   []models.Song         `json:"songs"`
	Artists []models.SimpleArtist `json:"artists"`
}

// Extractor is the capability interface every backend implements. A backend
// that does not support a capability returns shared.ErrNotImplemented rather
// than crashing the dispatcher; embed Unimplemented to get that default.
type Extractor interface {
	Source() models.Source
	LoginStatus(ctx context.Context) (AuthStatus, error)
	Search(ctx context.Context, query string) (*SearchResult, error)
	GetUserInfo(ctx context.Context) (*models.SimpleUser, error)
	GetUserDetails(ctx context.Context) (*models.UserDetails, error)
	GetUserLists(ctx context.Context) ([]models.Playlist, error)
	GetListDetails(ctx context.Context, id string) (*models.Playlist, error)
	GetArtistInfo(ctx context.Context, id string) (*models.SimpleArtist, error)
	GetArtistDetails(ctx context.Context, id string) (*models.Artist, error)
	GetUserHome(ctx context.Context) (*HomeView, error)
	GetUserLikes(ctx context.Context) ([]models.Song, error)
}

// ListRefresher is the optional forced-refresh capability. Only the Spotify
// extractor implements it today; the dispatcher special-cases it rather than
// pretending every backend can bypass caches.
type ListRefresher interface {
	RefreshListDetails(ctx context.Context, id string) (*models.Playlist, error)
}

// Unimplemented returns shared.ErrNotImplemented for every capability.
// Extractors embed it and override what they actually support.
type Unimplemented struct{}

func (Unimplemented) Search(context.Context, string) (*SearchResult, error) {
	return nil, shared.ErrNotImplemented
}

func (Unimplemented) GetUserInfo(context.Context) (*models.SimpleUser, error) {
	return nil, shared.ErrNotImplemented
}

func (Unimplemented) GetUserDetails(context.Context) (*models.UserDetails, error) {
	return nil, shared.ErrNotImplemented
}

func (Unimplemented) GetUserLists(context.Context) ([]models.Playlist, error) {
	return nil, shared.ErrNotImplemented
}

func (Unimplemented) GetListDetails(context.Context, string) (*models.Playlist, error) {
	return nil, shared.ErrNotImplemented
}

func (Unimplemented) GetArtistInfo(context.Context, string) (*models.SimpleArtist, error) {
	return nil, shared.ErrNotImplemented
}

func (Unimplemented) GetArtistDetails(context.Context, string) (*models.Artist, error) {
	return nil, shared.ErrNotImplemented
}

func (Unimplemented) GetUserHome(context.Context) (*HomeView, error) {
	return nil, shared.ErrNotImplemented
}

func (Unimplemented) GetUserLikes(context.Context) ([]models.Song, error) {
	return nil, shared.ErrNotImplemented
}
