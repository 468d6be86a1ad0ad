package library

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"

	"github.com/harmonia-app/harmonia/internal/models"
	"github.com/harmonia-app/harmonia/internal/shared"
)

// FallbackArtist is the display name used when a file carries no artist tag.
const FallbackArtist = "Unknown Artist"

// AudioDir returns the audio blob directory for a source namespace.
func (s *Store) AudioDir(src models.Source) string {
	return filepath.Join(s.root, "audio", string(src))
}

func (s *Store) artworkDir() string {
	return filepath.Join(s.root, "artwork", string(models.SourceLocal))
}

// ImportFile copies an audio file into the managed local namespace, deriving
// a Song from its embedded tags. Missing tags fall back to the filename for
// the title and FallbackArtist for the artist. The managed copy gets a
// UUID-derived name; the Song record is persisted before returning.
func (s *Store) ImportFile(originalPath string) (*models.Song, error) {
	id := shared.GenerateID()

	song, artwork := s.readTags(originalPath, id)

	if err := s.copyAudio(originalPath, id); err != nil {
		return nil, err
	}

	if len(artwork.data) > 0 {
		path, err := s.saveArtwork(id, artwork)
		if err != nil {
			s.logger.Warn("failed to save embedded artwork", "id", id, "error", err)
		} else {
			song.Thumbnail = path
		}
	}

	if err := s.SaveSong(song); err != nil {
		return nil, err
	}

	s.logger.Info("imported file", "path", originalPath, "id", id, "title", song.Title)
	return song, nil
}

// ImportRaw copies an audio file into the managed local namespace under an
// explicit id, bypassing tag extraction. The derived Song carries only the
// filename-derived title and the fallback artist.
func (s *Store) ImportRaw(originalPath, id string) (*models.Song, error) {
	if err := s.copyAudio(originalPath, id); err != nil {
		return nil, err
	}

	song := &models.Song{
		ID:     id,
		Source: models.SourceLocal,
		Title:  baseTitle(originalPath),
		Artists: []models.SimpleArtist{
			{ID: FallbackArtist, Source: models.SourceLocal, Name: FallbackArtist},
		},
	}
	if err := s.SaveSong(song); err != nil {
		return nil, err
	}
	return song, nil
}

// SaveAudioBlob persists downloaded audio bytes under a source namespace and
// returns the written path.
func (s *Store) SaveAudioBlob(id string, src models.Source, data []byte, ext string) (string, error) {
	dir := s.AudioDir(src)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create audio namespace: %w", err)
	}

	path := filepath.Join(dir, id+normalizeExt(ext))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write audio blob %s: %w", id, err)
	}
	return path, nil
}

// ResolveAudioPath scans the local-source audio namespace for a file whose
// name (sans extension) equals id. Returns "" when no file matches.
func (s *Store) ResolveAudioPath(id string) (string, error) {
	dir := s.AudioDir(models.SourceLocal)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to scan audio namespace: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.TrimSuffix(name, filepath.Ext(name)) == id {
			return filepath.Join(dir, name), nil
		}
	}
	return "", nil
}

// DeleteSongWithAudio removes a local song record together with its managed
// audio blob, reporting whether the record existed.
func (s *Store) DeleteSongWithAudio(id string) (bool, error) {
	path, err := s.ResolveAudioPath(id)
	if err != nil {
		return false, err
	}
	if path != "" {
		if err := os.Remove(path); err != nil {
			return false, fmt.Errorf("failed to delete audio for %s: %w", id, err)
		}
	}
	return s.DeleteSong(id, models.SourceLocal)
}

type embeddedArtwork struct {
	data []byte
	ext  string
}

// readTags extracts tag metadata with graceful fallbacks; it never fails.
func (s *Store) readTags(path, id string) (*models.Song, embeddedArtwork) {
	song := &models.Song{
		ID:     id,
		Source: models.SourceLocal,
		Title:  baseTitle(path),
		Artists: []models.SimpleArtist{
			{ID: FallbackArtist, Source: models.SourceLocal, Name: FallbackArtist},
		},
	}
	var artwork embeddedArtwork

	f, err := os.Open(path)
	if err != nil {
		s.logger.Warn("failed to open file for tag extraction, using fallbacks", "path", path, "error", err)
		return song, artwork
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		s.logger.Warn("failed to extract tags, using fallbacks", "path", path, "error", err)
		return song, artwork
	}

	if title := meta.Title(); title != "" {
		song.Title = title
	}
	if artist := meta.Artist(); artist != "" {
		song.Artists = []models.SimpleArtist{
			{ID: artist, Source: models.SourceLocal, Name: artist},
		}
	}
	if album := meta.Album(); album != "" {
		song.Album = &models.SimpleAlbum{ID: album, Source: models.SourceLocal, Name: album}
	}
	if pic := meta.Picture(); pic != nil && len(pic.Data) > 0 {
		artwork = embeddedArtwork{data: pic.Data, ext: pic.Ext}
	}

	return song, artwork
}

func (s *Store) saveArtwork(id string, artwork embeddedArtwork) (string, error) {
	dir := s.artworkDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create artwork dir: %w", err)
	}

	ext := artwork.ext
	if ext == "" {
		ext = "jpg"
	}
	path := filepath.Join(dir, id+"."+strings.TrimPrefix(ext, "."))
	if err := os.WriteFile(path, artwork.data, 0644); err != nil {
		return "", fmt.Errorf("failed to write artwork: %w", err)
	}
	return path, nil
}

func (s *Store) copyAudio(originalPath, id string) error {
	dir := s.AudioDir(models.SourceLocal)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create audio namespace: %w", err)
	}

	src, err := os.Open(originalPath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer src.Close()

	target := filepath.Join(dir, id+normalizeExt(filepath.Ext(originalPath)))
	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create managed file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy audio bytes: %w", err)
	}
	return nil
}

func baseTitle(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func normalizeExt(ext string) string {
	if ext == "" {
		return ""
	}
	return "." + strings.TrimPrefix(ext, ".")
}
