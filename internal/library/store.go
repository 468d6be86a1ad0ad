package library

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/harmonia-app/harmonia/internal/models"
)

// Record kinds, used as top-level directory names.
const (
	kindSongs     = "songs"
	kindAlbums    = "albums"
	kindArtists   = "artists"
	kindPlaylists = "playlists"
)

// Store is the filesystem-backed library store. Concurrent writers to the
// same (id, source) record race on last-write-wins; the dominant caller
// pattern is single-writer-per-id.
type Store struct {
	root   string
	logger *log.Logger
}

// NewStore creates a Store rooted at dataDir.
func NewStore(dataDir string, logger *log.Logger) *Store {
	return &Store{root: dataDir, logger: logger.With("component", "library")}
}

// Root returns the store's data directory.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) recordPath(kind string, src models.Source, id string) string {
	return filepath.Join(s.root, kind, string(src), id+".json")
}

// saveRecord writes a single record, creating the namespace directory if
// absent. Overwrite semantics: last write wins.
func saveRecord[T any](s *Store, kind string, src models.Source, id string, rec T) error {
	dir := filepath.Join(s.root, kind, string(src))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s namespace: %w", kind, err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s record %s: %w", kind, id, err)
	}

	if err := os.WriteFile(s.recordPath(kind, src, id), data, 0644); err != nil {
		return fmt.Errorf("failed to write %s record %s: %w", kind, id, err)
	}

	s.logger.Debug("saved record", "kind", kind, "source", src, "id", id)
	return nil
}

// loadRecord reads a single record. A missing file is a nil result, never an
// error.
func loadRecord[T any](s *Store, kind string, src models.Source, id string) (*T, error) {
	data, err := os.ReadFile(s.recordPath(kind, src, id))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s record %s: %w", kind, id, err)
	}

	var rec T
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse %s record %s: %w", kind, id, err)
	}
	return &rec, nil
}

// listRecords returns every record of a kind across all known source
// namespaces. Missing namespace directories are skipped; a record file that
// fails to parse fails the whole list operation so corruption stays
// observable.
func listRecords[T any](s *Store, kind string) ([]T, error) {
	var out []T

	for _, src := range models.KnownSources() {
		dir := filepath.Join(s.root, kind, string(src))
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate %s/%s: %w", kind, src, err)
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
			}
			var rec T
			if err := json.Unmarshal(data, &rec); err != nil {
				return nil, fmt.Errorf("failed to parse %s/%s/%s: %w", kind, src, entry.Name(), err)
			}
			out = append(out, rec)
		}
	}

	return out, nil
}

// deleteRecord removes a record file if present and reports whether a
// deletion occurred.
func (s *Store) deleteRecord(kind string, src models.Source, id string) (bool, error) {
	path := s.recordPath(kind, src, id)
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete %s record %s: %w", kind, id, err)
	}
	s.logger.Debug("deleted record", "kind", kind, "source", src, "id", id)
	return true, nil
}

// SaveSong persists a song under its source namespace.
func (s *Store) SaveSong(song *models.Song) error {
	return saveRecord(s, kindSongs, song.Source, song.ID, song)
}

// LoadSong returns the song or nil if absent.
func (s *Store) LoadSong(id string, src models.Source) (*models.Song, error) {
	return loadRecord[models.Song](s, kindSongs, src, id)
}

// AllSongs returns every stored song across all source namespaces.
func (s *Store) AllSongs() ([]models.Song, error) {
	return listRecords[models.Song](s, kindSongs)
}

// DeleteSong removes a song record, reporting whether a deletion occurred.
func (s *Store) DeleteSong(id string, src models.Source) (bool, error) {
	return s.deleteRecord(kindSongs, src, id)
}

// SaveAlbum persists an album under its source namespace.
func (s *Store) SaveAlbum(album *models.Album) error {
	return saveRecord(s, kindAlbums, album.Source, album.ID, album)
}

// LoadAlbum returns the album or nil if absent.
func (s *Store) LoadAlbum(id string, src models.Source) (*models.Album, error) {
	return loadRecord[models.Album](s, kindAlbums, src, id)
}

// AllAlbums returns every stored album across all source namespaces.
func (s *Store) AllAlbums() ([]models.Album, error) {
	return listRecords[models.Album](s, kindAlbums)
}

// DeleteAlbum removes an album record, reporting whether a deletion occurred.
func (s *Store) DeleteAlbum(id string, src models.Source) (bool, error) {
	return s.deleteRecord(kindAlbums, src, id)
}

// SaveArtist persists an artist under its source namespace.
func (s *Store) SaveArtist(artist *models.SimpleArtist) error {
	return saveRecord(s, kindArtists, artist.Source, artist.ID, artist)
}

// LoadArtist returns the artist or nil if absent.
func (s *Store) LoadArtist(id string, src models.Source) (*models.SimpleArtist, error) {
	return loadRecord[models.SimpleArtist](s, kindArtists, src, id)
}

// AllArtists returns every stored artist across all source namespaces.
func (s *Store) AllArtists() ([]models.SimpleArtist, error) {
	return listRecords[models.SimpleArtist](s, kindArtists)
}

// DeleteArtist removes an artist record, reporting whether a deletion occurred.
func (s *Store) DeleteArtist(id string, src models.Source) (bool, error) {
	return s.deleteRecord(kindArtists, src, id)
}

// SavePlaylist persists a playlist under its source namespace.
func (s *Store) SavePlaylist(playlist *models.Playlist) error {
	return saveRecord(s, kindPlaylists, playlist.Source, playlist.ID, playlist)
}

// LoadPlaylist returns the playlist or nil if absent.
func (s *Store) LoadPlaylist(id string, src models.Source) (*models.Playlist, error) {
	return loadRecord[models.Playlist](s, kindPlaylists, src, id)
}

// AllPlaylists returns every stored playlist across all source namespaces.
func (s *Store) AllPlaylists() ([]models.Playlist, error) {
	return listRecords[models.Playlist](s, kindPlaylists)
}

// DeletePlaylist removes a playlist record, reporting whether a deletion occurred.
func (s *Store) DeletePlaylist(id string, src models.Source) (bool, error) {
	return s.deleteRecord(kindPlaylists, src, id)
}
