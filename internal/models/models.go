package models

import (
	"strings"
	"time"
)

// Source identifies the backend a media item originates from.
type Source string

const (
	SourceLocal      Source = "local"
	SourceSpotify    Source = "spotify"
	SourceYouTube    Source = "youtube"
	SourceSoundCloud Source = "soundcloud"
)

// KnownSources returns every source namespace, in the order stores enumerate them.
func KnownSources() []Source {
	return []Source{SourceLocal, SourceSpotify, SourceYouTube, SourceSoundCloud}
}

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceLocal, SourceSpotify, SourceYouTube, SourceSoundCloud:
		return true
	}
	return false
}

// SimpleArtist is the referential artist variant embedded in songs and albums.
// An artist may appear on many songs, so songs reference rather than own it.
type SimpleArtist struct {
	ID        string `json:"id"`
	Source    Source `json:"source"`
	Name      string `json:"name"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Artist is the detailed artist variant, fetched on demand. It is a derived
// view and is never persisted long-term.
type Artist struct {
	SimpleArtist
	MonthlyListeners int           `json:"monthlyListeners"`
	TopSongs         []Song        `json:"topSongs"`
	Albums           []SimpleAlbum `json:"albums"`
}

// SimpleAlbum is the referential album variant embedded in songs.
type SimpleAlbum struct {
	ID        string `json:"id"`
	Source    Source `json:"source"`
	Name      string `json:"name"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Album owns an ordered list of songs plus an aggregate duration. The
// duration is computed at construction, not incrementally maintained.
type Album struct {
	SimpleAlbum
	Songs    []Song `json:"songs"`
	Duration int    `json:"duration"`
}

// NewAlbum builds an Album from its songs, computing the aggregate duration.
func NewAlbum(meta SimpleAlbum, songs []Song) *Album {
	total := 0
	for _, s := range songs {
		total += s.Duration
	}
	return &Album{SimpleAlbum: meta, Songs: songs, Duration: total}
}

// SimpleUser identifies a playlist author or account holder.
type SimpleUser struct {
	ID        string `json:"id"`
	Source    Source `json:"source"`
	Name      string `json:"name"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// UserDetails is the detailed account view returned by extractors.
type UserDetails struct {
	SimpleUser
	Followers int `json:"followers"`
}

// Song is the central media entity. Immutable once saved, except for deletion.
type Song struct {
	ID        string         `json:"id"`
	Source    Source         `json:"source"`
	Title     string         `json:"title"`
	Artists   []SimpleArtist `json:"artists"`
	Explicit  bool           `json:"explicit"`
	Duration  int            `json:"duration"` // seconds, non-negative
	Album     *SimpleAlbum   `json:"album,omitempty"`
	Thumbnail string         `json:"thumbnail,omitempty"`
}

// ArtistNames returns the song's artist display names joined with ", ".
func (s Song) ArtistNames() string {
	names := make([]string, len(s.Artists))
	for i, a := range s.Artists {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

// PlaylistItem is a song in playlist context.
type PlaylistItem struct {
	Song        Song      `json:"song"`
	AddedAt     time.Time `json:"addedAt"`
	TrackNumber int       `json:"trackNumber"`
}

// Playlist owns an ordered list of playlist items plus an author reference.
type Playlist struct {
	ID        string         `json:"id"`
	Source    Source         `json:"source"`
	Name      string         `json:"name"`
	Thumbnail string         `json:"thumbnail,omitempty"`
	Author    SimpleUser     `json:"author"`
	Items     []PlaylistItem `json:"items"`
}
