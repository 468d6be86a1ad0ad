package sources

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/harmonia-app/harmonia/internal/library"
	"github.com/harmonia-app/harmonia/internal/models"
)

// homeLimit caps both lists in the local home view.
const homeLimit = 50

// LocalExtractor serves the on-disk library. It is always "logged in" and
// never expires. Every search loads a fresh catalog snapshot; the catalog
// itself is not cached.
type LocalExtractor struct {
	Unimplemented
	store  *library.Store
	logger *log.Logger
}

// NewLocalExtractor creates a LocalExtractor over the given store.
func NewLocalExtractor(store *library.Store, logger *log.Logger) *LocalExtractor {
	return &LocalExtractor{store: store, logger: logger.With("source", models.SourceLocal)}
}

func (e *LocalExtractor) Source() models.Source {
	return models.SourceLocal
}

func (e *LocalExtractor) LoginStatus(context.Context) (AuthStatus, error) {
	return AuthStatus{LoggedIn: true}, nil
}

// Search performs a case-insensitive substring match across song titles,
// artist names, and album titles over the full local catalog.
func (e *LocalExtractor) Search(ctx context.Context, query string) (*SearchResult, error) {
	songs, err := e.store.AllSongs()
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	result := &SearchResult{}

	for _, song := range songs {
		if matchesSong(song, needle) {
			result.Songs = append(result.Songs, song)
		}
	}

	artists, err := e.store.AllArtists()
	if err != nil {
		return nil, err
	}
	for _, artist := range artists {
		if strings.Contains(strings.ToLower(artist.Name), needle) {
			result.Artists = append(result.Artists, artist)
		}
	}

	albums, err := e.store.AllAlbums()
	if err != nil {
		return nil, err
	}
	for _, album := range albums {
		if strings.Contains(strings.ToLower(album.Name), needle) {
			result.Albums = append(result.Albums, album.SimpleAlbum)
		}
	}

	return result, nil
}

func matchesSong(song models.Song, needle string) bool {
	if strings.Contains(strings.ToLower(song.Title), needle) {
		return true
	}
	for _, artist := range song.Artists {
		if strings.Contains(strings.ToLower(artist.Name), needle) {
			return true
		}
	}
	if song.Album != nil && strings.Contains(strings.ToLower(song.Album.Name), needle) {
		return true
	}
	return false
}

// GetUserLists reads every stored playlist.
func (e *LocalExtractor) GetUserLists(context.Context) ([]models.Playlist, error) {
	return e.store.AllPlaylists()
}

// GetListDetails reads one stored playlist; nil when absent.
func (e *LocalExtractor) GetListDetails(_ context.Context, id string) (*models.Playlist, error) {
	return e.store.LoadPlaylist(id, models.SourceLocal)
}

// GetArtistInfo reads one stored artist; nil when absent.
func (e *LocalExtractor) GetArtistInfo(_ context.Context, id string) (*models.SimpleArtist, error) {
	return e.store.LoadArtist(id, models.SourceLocal)
}

// GetUserHome builds a synthetic home view: the first homeLimit songs in
// stored order, plus their artists deduplicated by id in first-seen order,
// also capped at homeLimit.
func (e *LocalExtractor) GetUserHome(context.Context) (*HomeView, error) {
	songs, err := e.store.AllSongs()
	if err != nil {
		return nil, err
	}

	home := &HomeView{}
	if len(songs) > homeLimit {
		home.Songs = songs[:homeLimit]
	} else {
		home.Songs = songs
	}

	seen := make(map[string]struct{})
	for _, song := range songs {
		for _, artist := range song.Artists {
			if _, ok := seen[artist.ID]; ok {
				continue
			}
			seen[artist.ID] = struct{}{}
			home.Artists = append(home.Artists, artist)
			if len(home.Artists) == homeLimit {
				return home, nil
			}
		}
	}
	return home, nil
}
