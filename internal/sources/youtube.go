// YouTube extractor.
//
// Search is two-tier: the official Data API first, then an unauthenticated
// innertube client emulation when the API fails for any reason — quota
// exhaustion typically surfaces as an HTTP 403. Results are tagged with the
// tier that produced them so downstream heuristics can branch.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harmonia-app/harmonia/internal/credentials"
	"github.com/harmonia-app/harmonia/internal/downloads"
	"github.com/harmonia-app/harmonia/internal/library"
	"github.com/harmonia-app/harmonia/internal/models"
	"github.com/harmonia-app/harmonia/internal/querycache"
	"github.com/harmonia-app/harmonia/internal/shared"
)

const youtubeAPIBaseURL = "https://www.googleapis.com/youtube/v3"

// Tier identifies which search path produced a result set.
type Tier string

const (
	TierAPI      Tier = "api"
	TierFallback Tier = "fallback"
)

// TaggedSearch is a search result annotated with the tier that produced it.
type TaggedSearch struct {
	Tier  Tier          `json:"source"`
	Songs []models.Song `json:"data"`
}

// YouTubeExtractor implements search and download against the video
// platform. Expensive search-to-id resolutions go through the query cache.
type YouTubeExtractor struct {
	Unimplemented
	apiKey     string
	tokens     *credentials.TokenStore
	httpClient *http.Client
	apiBaseURL string
	fallback   *innertubeClient
	cache      *querycache.Cache
	store      *library.Store
	runner     *downloads.ToolRunner
	logger     *log.Logger
	now        func() time.Time
}

// NewYouTubeExtractor creates a YouTubeExtractor. The runner may be nil when
// downloading is not needed (search-only consumers).
func NewYouTubeExtractor(creds *credentials.Credentials, tokens *credentials.TokenStore, cache *querycache.Cache, store *library.Store, runner *downloads.ToolRunner, logger *log.Logger) *YouTubeExtractor {
	apiKey := ""
	if creds != nil {
		apiKey = creds.YouTubeClientID
	}
	return &YouTubeExtractor{
		apiKey:     apiKey,
		tokens:     tokens,
		httpClient: http.DefaultClient,
		apiBaseURL: youtubeAPIBaseURL,
		fallback:   newInnertubeClient(),
		cache:      cache,
		store:      store,
		runner:     runner,
		logger:     logger.With("source", models.SourceYouTube),
		now:        time.Now,
	}
}

func (e *YouTubeExtractor) Source() models.Source {
	return models.SourceYouTube
}

// LoginStatus reports token state for the official API tier. The fallback
// tier needs no authentication, so an unauthenticated extractor is still
// usable for search.
func (e *YouTubeExtractor) LoginStatus(context.Context) (AuthStatus, error) {
	if e.apiKey != "" {
		return AuthStatus{LoggedIn: true}, nil
	}
	if e.tokens == nil {
		return AuthStatus{}, nil
	}
	tok, err := e.tokens.Load()
	if err != nil {
		return AuthStatus{}, err
	}
	if tok == nil || tok.AccessToken == "" {
		return AuthStatus{}, nil
	}
	return AuthStatus{LoggedIn: true, Expired: tok.Expired(e.now())}, nil
}

// Search runs the two-tier search and flattens the tagged result.
func (e *YouTubeExtractor) Search(ctx context.Context, query string) (*SearchResult, error) {
	tagged, err := e.SearchTagged(ctx, query)
	if err != nil {
		return nil, err
	}
	return &SearchResult{Songs: tagged.Songs}, nil
}

// SearchTagged attempts the official API and falls back to client emulation
// on any API error. An upstream failure on the primary tier never propagates
// to the caller; only a failure of both tiers does.
func (e *YouTubeExtractor) SearchTagged(ctx context.Context, query string) (*TaggedSearch, error) {
	songs, err := e.apiSearch(ctx, query)
	if err == nil {
		return &TaggedSearch{Tier: TierAPI, Songs: songs}, nil
	}
	e.logger.Warn("official API search failed, using fallback client", "error", err)

	songs, err = e.fallback.search(ctx, query)
	if err != nil {
		return nil, err
	}
	return &TaggedSearch{Tier: TierFallback, Songs: songs}, nil
}

type youtubeSearchItem struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		ChannelTitle string `json:"channelTitle"`
		Thumbnails   struct {
			High struct {
				URL string `json:"url"`
			} `json:"high"`
		} `json:"thumbnails"`
	} `json:"snippet"`
}

func (e *YouTubeExtractor) apiSearch(ctx context.Context, query string) ([]models.Song, error) {
	endpoint := fmt.Sprintf("%s/search?part=snippet&type=video&maxResults=25&q=%s",
		e.apiBaseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if e.apiKey != "" {
		q := req.URL.Query()
		q.Set("key", e.apiKey)
		req.URL.RawQuery = q.Encode()
	} else if e.tokens != nil {
		tok, err := e.tokens.Load()
		if err != nil {
			return nil, err
		}
		if tok == nil || tok.AccessToken == "" || tok.Expired(e.now()) {
			return nil, shared.ErrNotAuthenticated
		}
		req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	} else {
		return nil, shared.ErrNotAuthenticated
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: youtube API returned status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var parsed struct {
		Items []youtubeSearchItem `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var songs []models.Song
	for _, item := range parsed.Items {
		if item.ID.VideoID == "" {
			continue
		}
		song := models.Song{
			ID:        item.ID.VideoID,
			Source:    models.SourceYouTube,
			Title:     item.Snippet.Title,
			Thumbnail: item.Snippet.Thumbnails.High.URL,
		}
		if item.Snippet.ChannelTitle != "" {
			song.Artists = []models.SimpleArtist{{
				ID:     item.Snippet.ChannelTitle,
				Source: models.SourceYouTube,
				Name:   item.Snippet.ChannelTitle,
			}}
		}
		songs = append(songs, song)
	}
	return songs, nil
}

// ResolveDownloadTarget resolves a search term to a single video id, going
// through the query cache first and writing resolutions back to it.
func (e *YouTubeExtractor) ResolveDownloadTarget(ctx context.Context, term string) (string, error) {
	if e.cache != nil {
		id, err := e.cache.Get(term)
		if err != nil {
			return "", err
		}
		if id != "" {
			e.logger.Debug("download target served from cache", "term", term, "id", id)
			return id, nil
		}
	}

	tagged, err := e.SearchTagged(ctx, term)
	if err != nil {
		return "", err
	}

	candidate := PickCandidate(term, tagged.Songs)
	if candidate == nil {
		return "", fmt.Errorf("%w: %q", shared.ErrNoCandidate, term)
	}
	e.logger.Debug("download target resolved", "term", term, "id", candidate.ID, "tier", tagged.Tier)

	if e.cache != nil {
		if err := e.cache.Set(term, candidate.ID); err != nil {
			return "", err
		}
	}
	return candidate.ID, nil
}

// Fetch implements downloads.Fetcher: resolve the target id, short-circuit
// when the file already exists, otherwise run the external tool and stream
// its output as downloading events.
func (e *YouTubeExtractor) Fetch(ctx context.Context, song models.Song, term string, publish func(downloads.Event)) {
	id := song.ID
	if song.Source != models.SourceYouTube || id == "" {
		resolved, err := e.ResolveDownloadTarget(ctx, term)
		if err != nil {
			publish(downloads.Event{Term: term, Status: downloads.StatusError, Message: err.Error()})
			return
		}
		id = resolved
	}

	if e.runner == nil {
		publish(downloads.Event{Term: term, Status: downloads.StatusError, Message: shared.ErrToolUnavailable.Error()})
		return
	}

	outDir := e.store.AudioDir(models.SourceYouTube)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		publish(downloads.Event{Term: term, Status: downloads.StatusError, Message: err.Error()})
		return
	}

	target := filepath.Join(outDir, id+"."+e.runner.Format())
	if _, err := os.Stat(target); err == nil {
		e.logger.Info("target already on disk, skipping fetch", "id", id, "path", target)
		publish(downloads.Event{Term: term, Status: downloads.StatusDone, Path: target})
		return
	}

	watchURL := "https://www.youtube.com/watch?v=" + url.QueryEscape(id)
	path, err := e.runner.Run(ctx, watchURL, outDir, id, func(line string) {
		publish(downloads.Event{Term: term, Status: downloads.StatusDownloading, Output: line})
	})
	if err != nil {
		publish(downloads.Event{Term: term, Status: downloads.StatusError, Message: err.Error()})
		return
	}
	publish(downloads.Event{Term: term, Status: downloads.StatusDone, Path: path})
}
