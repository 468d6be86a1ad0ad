// Spotify extractor.
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/harmonia-app/harmonia/internal/credentials"
	"github.com/harmonia-app/harmonia/internal/models"
	"github.com/harmonia-app/harmonia/internal/shared"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

type spotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type spotifyFollowers struct {
	Total int `json:"total"`
}

type spotifyUser struct {
	ID          string           `json:"id"`
	DisplayName string           `json:"display_name"`
	Followers   spotifyFollowers `json:"followers"`
	Images      []spotifyImage   `json:"images"`
}

type spotifyArtist struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Followers spotifyFollowers `json:"followers"`
	Images    []spotifyImage   `json:"images"`
}

type spotifyAlbum struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []spotifyArtist `json:"artists"`
	Images  []spotifyImage  `json:"images"`
}

type spotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []spotifyArtist `json:"artists"`
	Album      *spotifyAlbum   `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
}

type spotifyPlaylistTrack struct {
	AddedAt string       `json:"added_at"`
	Track   spotifyTrack `json:"track"`
}

type spotifyPlaylist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Owner       struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"owner"`
	Images []spotifyImage `json:"images"`
	Tracks struct {
		Total int                    `json:"total"`
		Items []spotifyPlaylistTrack `json:"items"`
	} `json:"tracks"`
}

type spotifySearchResponse struct {
	Tracks struct {
		Items []spotifyTrack `json:"items"`
	} `json:"tracks"`
	Artists struct {
		Items []spotifyArtist `json:"items"`
	} `json:"artists"`
	Albums struct {
		Items []spotifyAlbum `json:"items"`
	} `json:"albums"`
}

// SpotifyExtractor wraps the authenticated Spotify Web API client. Every
// operation checks token expiry first and refreshes transparently before
// proceeding — refresh-then-call, never retry-after-failure.
type SpotifyExtractor struct {
	Unimplemented
	config     *oauth2.Config
	tokens     *credentials.TokenStore
	httpClient *http.Client
	baseURL    string
	logger     *log.Logger
	now        func() time.Time
}

// NewSpotifyExtractor creates a SpotifyExtractor. Absent client credentials
// are a fatal precondition for this extractor.
func NewSpotifyExtractor(creds *credentials.Credentials, tokens *credentials.TokenStore, logger *log.Logger) (*SpotifyExtractor, error) {
	if creds == nil || creds.SpotifyClientID == "" || creds.SpotifyClientSecret == "" {
		return nil, fmt.Errorf("spotify: %w", shared.ErrMissingCredentials)
	}

	config := &oauth2.Config{
		ClientID:     creds.SpotifyClientID,
		ClientSecret: creds.SpotifyClientSecret,
		Scopes: []string{
			"user-read-private",
			"playlist-read-private",
			"playlist-read-collaborative",
			"user-library-read",
			"user-top-read",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyExtractor{
		config:     config,
		tokens:     tokens,
		httpClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
		logger:     logger.With("source", models.SourceSpotify),
		now:        time.Now,
	}, nil
}

func (e *SpotifyExtractor) Source() models.Source {
	return models.SourceSpotify
}

// LoginStatus reports structured token state rather than failing, so callers
// can refresh proactively.
func (e *SpotifyExtractor) LoginStatus(context.Context) (AuthStatus, error) {
	tok, err := e.tokens.Load()
	if err != nil {
		return AuthStatus{}, err
	}
	if tok == nil || tok.AccessToken == "" {
		return AuthStatus{}, nil
	}
	return AuthStatus{LoggedIn: true, Expired: tok.Expired(e.now())}, nil
}

// OAuth returns a copy of the extractor's OAuth2 config bound to the given
// redirect URI, for driving the interactive login flow.
func (e *SpotifyExtractor) OAuth(redirectURI string) *oauth2.Config {
	config := *e.config
	config.RedirectURL = redirectURI
	return &config
}

// CompleteLogin persists a token obtained from the authorization-code flow.
func (e *SpotifyExtractor) CompleteLogin(tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" {
		return shared.ErrInvalidCredentials
	}
	return e.tokens.Save(&credentials.Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry.UnixMilli(),
	})
}

// accessToken returns a usable access token, refreshing through the token
// endpoint when the stored one has expired.
func (e *SpotifyExtractor) accessToken(ctx context.Context) (string, error) {
	tok, err := e.tokens.Load()
	if err != nil {
		return "", err
	}
	if tok == nil || tok.AccessToken == "" {
		return "", shared.ErrNotAuthenticated
	}

	if !tok.Expired(e.now()) {
		return tok.AccessToken, nil
	}

	if tok.RefreshToken == "" {
		return "", shared.ErrNoRefreshToken
	}

	e.logger.Debug("access token expired, refreshing")
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
	fresh, err := e.config.TokenSource(ctx, &oauth2.Token{RefreshToken: tok.RefreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	refreshToken := fresh.RefreshToken
	if refreshToken == "" {
		refreshToken = tok.RefreshToken
	}
	if err := e.tokens.Save(&credentials.Token{
		AccessToken:  fresh.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    fresh.Expiry.UnixMilli(),
	}); err != nil {
		return "", err
	}
	return fresh.AccessToken, nil
}

func (e *SpotifyExtractor) doRequest(ctx context.Context, endpoint string, bust bool, result any) error {
	token, err := e.accessToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if bust {
		req.Header.Set("Cache-Control", "no-cache")
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: spotify returned status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// Search queries tracks, artists, albums, and playlists in one call.
func (e *SpotifyExtractor) Search(ctx context.Context, query string) (*SearchResult, error) {
	endpoint := "/search?type=track,artist,album,playlist&limit=20&q=" + url.QueryEscape(query)

	var resp struct {
		spotifySearchResponse
		Playlists struct {
			Items []spotifyPlaylist `json:"items"`
		} `json:"playlists"`
	}
	if err := e.doRequest(ctx, endpoint, false, &resp); err != nil {
		return nil, err
	}

	result := &SearchResult{}
	for _, t := range resp.Tracks.Items {
		result.Songs = append(result.Songs, convertSpotifyTrack(t))
	}
	for _, a := range resp.Artists.Items {
		result.Artists = append(result.Artists, convertSpotifyArtist(a))
	}
	for _, al := range resp.Albums.Items {
		result.Albums = append(result.Albums, convertSpotifyAlbum(al))
	}
	for _, p := range resp.Playlists.Items {
		result.Playlists = append(result.Playlists, *convertSpotifyPlaylist(p))
	}
	return result, nil
}

// GetUserInfo fetches the authenticated user's profile.
func (e *SpotifyExtractor) GetUserInfo(ctx context.Context) (*models.SimpleUser, error) {
	details, err := e.GetUserDetails(ctx)
	if err != nil {
		return nil, err
	}
	return &details.SimpleUser, nil
}

// GetUserDetails fetches the authenticated user's profile with follower count.
func (e *SpotifyExtractor) GetUserDetails(ctx context.Context) (*models.UserDetails, error) {
	var user spotifyUser
	if err := e.doRequest(ctx, "/me", false, &user); err != nil {
		return nil, err
	}
	return &models.UserDetails{
		SimpleUser: models.SimpleUser{
			ID:        user.ID,
			Source:    models.SourceSpotify,
			Name:      user.DisplayName,
			Thumbnail: firstImage(user.Images),
		},
		Followers: user.Followers.Total,
	}, nil
}

// GetUserLists fetches the user's playlists.
func (e *SpotifyExtractor) GetUserLists(ctx context.Context) ([]models.Playlist, error) {
	var resp struct {
		Items []spotifyPlaylist `json:"items"`
	}
	if err := e.doRequest(ctx, "/me/playlists?limit=50", false, &resp); err != nil {
		return nil, err
	}

	lists := make([]models.Playlist, 0, len(resp.Items))
	for _, p := range resp.Items {
		lists = append(lists, *convertSpotifyPlaylist(p))
	}
	return lists, nil
}

// GetListDetails fetches one playlist with its tracks.
func (e *SpotifyExtractor) GetListDetails(ctx context.Context, id string) (*models.Playlist, error) {
	return e.fetchList(ctx, id, false)
}

// RefreshListDetails re-fetches a playlist bypassing intermediate caches.
// This forced-refresh capability is intentionally asymmetric: only the
// streaming source supports it.
func (e *SpotifyExtractor) RefreshListDetails(ctx context.Context, id string) (*models.Playlist, error) {
	return e.fetchList(ctx, id, true)
}

func (e *SpotifyExtractor) fetchList(ctx context.Context, id string, bust bool) (*models.Playlist, error) {
	var p spotifyPlaylist
	if err := e.doRequest(ctx, "/playlists/"+url.PathEscape(id), bust, &p); err != nil {
		return nil, err
	}
	return convertSpotifyPlaylist(p), nil
}

// GetArtistInfo fetches an artist's basic profile.
func (e *SpotifyExtractor) GetArtistInfo(ctx context.Context, id string) (*models.SimpleArtist, error) {
	var a spotifyArtist
	if err := e.doRequest(ctx, "/artists/"+url.PathEscape(id), false, &a); err != nil {
		return nil, err
	}
	artist := convertSpotifyArtist(a)
	return &artist, nil
}

// GetArtistDetails fetches the detailed artist view: profile, top tracks,
// and albums. The detail variant is a derived view assembled per call.
func (e *SpotifyExtractor) GetArtistDetails(ctx context.Context, id string) (*models.Artist, error) {
	var a spotifyArtist
	if err := e.doRequest(ctx, "/artists/"+url.PathEscape(id), false, &a); err != nil {
		return nil, err
	}

	var top struct {
		Tracks []spotifyTrack `json:"tracks"`
	}
	if err := e.doRequest(ctx, "/artists/"+url.PathEscape(id)+"/top-tracks", false, &top); err != nil {
		return nil, err
	}

	var albums struct {
		Items []spotifyAlbum `json:"items"`
	}
	if err := e.doRequest(ctx, "/artists/"+url.PathEscape(id)+"/albums?limit=50", false, &albums); err != nil {
		return nil, err
	}

	artist := &models.Artist{
		SimpleArtist: convertSpotifyArtist(a),
		// Spotify exposes follower counts, not monthly listeners; the
		// follower total stands in for the listener figure.
		MonthlyListeners: a.Followers.Total,
	}
	for _, t := range top.Tracks {
		artist.TopSongs = append(artist.TopSongs, convertSpotifyTrack(t))
	}
	for _, al := range albums.Items {
		artist.Albums = append(artist.Albums, convertSpotifyAlbum(al))
	}
	return artist, nil
}

// GetUserHome assembles a home view from the user's top tracks and artists.
func (e *SpotifyExtractor) GetUserHome(ctx context.Context) (*HomeView, error) {
	var tracks struct {
		Items []spotifyTrack `json:"items"`
	}
	if err := e.doRequest(ctx, "/me/top/tracks?limit=50", false, &tracks); err != nil {
		return nil, err
	}

	var artists struct {
		Items []spotifyArtist `json:"items"`
	}
	if err := e.doRequest(ctx, "/me/top/artists?limit=50", false, &artists); err != nil {
		return nil, err
	}

	home := &HomeView{}
	for _, t := range tracks.Items {
		home.Songs = append(home.Songs, convertSpotifyTrack(t))
	}
	for _, a := range artists.Items {
		home.Artists = append(home.Artists, convertSpotifyArtist(a))
	}
	return home, nil
}

// GetUserLikes fetches the user's saved tracks.
func (e *SpotifyExtractor) GetUserLikes(ctx context.Context) ([]models.Song, error) {
	var resp struct {
		Items []struct {
			Track spotifyTrack `json:"track"`
		} `json:"items"`
	}
	if err := e.doRequest(ctx, "/me/tracks?limit=50", false, &resp); err != nil {
		return nil, err
	}

	songs := make([]models.Song, 0, len(resp.Items))
	for _, item := range resp.Items {
		songs = append(songs, convertSpotifyTrack(item.Track))
	}
	return songs, nil
}

func convertSpotifyTrack(t spotifyTrack) models.Song {
	song := models.Song{
		ID:       t.ID,
		Source:   models.SourceSpotify,
		Title:    t.Name,
		Explicit: t.Explicit,
		Duration: t.DurationMS / 1000,
	}
	for _, a := range t.Artists {
		song.Artists = append(song.Artists, convertSpotifyArtist(a))
	}
	if t.Album != nil {
		album := convertSpotifyAlbum(*t.Album)
		song.Album = &album
		song.Thumbnail = album.Thumbnail
	}
	return song
}

func convertSpotifyArtist(a spotifyArtist) models.SimpleArtist {
	return models.SimpleArtist{
		ID:        a.ID,
		Source:    models.SourceSpotify,
		Name:      a.Name,
		Thumbnail: firstImage(a.Images),
	}
}

func convertSpotifyAlbum(a spotifyAlbum) models.SimpleAlbum {
	return models.SimpleAlbum{
		ID:        a.ID,
		Source:    models.SourceSpotify,
		Name:      a.Name,
		Thumbnail: firstImage(a.Images),
	}
}

func convertSpotifyPlaylist(p spotifyPlaylist) *models.Playlist {
	playlist := &models.Playlist{
		ID:        p.ID,
		Source:    models.SourceSpotify,
		Name:      p.Name,
		Thumbnail: firstImage(p.Images),
		Author: models.SimpleUser{
			ID:     p.Owner.ID,
			Source: models.SourceSpotify,
			Name:   p.Owner.DisplayName,
		},
	}
	for i, item := range p.Tracks.Items {
		added, _ := time.Parse(time.RFC3339, item.AddedAt)
		playlist.Items = append(playlist.Items, models.PlaylistItem{
			Song:        convertSpotifyTrack(item.Track),
			AddedAt:     added,
			TrackNumber: i + 1,
		})
	}
	return playlist
}

func firstImage(images []spotifyImage) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}
