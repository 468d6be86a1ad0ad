package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/harmonia-app/harmonia/internal/credentials"
	"github.com/harmonia-app/harmonia/internal/downloads"
	"github.com/harmonia-app/harmonia/internal/library"
	"github.com/harmonia-app/harmonia/internal/models"
	"github.com/harmonia-app/harmonia/internal/querycache"
	"github.com/harmonia-app/harmonia/internal/shared"
)

const apiSearchBody = `{
	"items": [{
		"id": {"videoId": "api_vid"},
		"snippet": {
			"title": "Blinding Lights (Official Video)",
			"channelTitle": "The Weeknd",
			"thumbnails": {"high": {"url": "http://thumb"}}
		}
	}]
}`

const innertubeSearchBody = `{
	"contents": {"sectionListRenderer": {"contents": [{
		"itemSectionRenderer": {"contents": [{
			"videoRenderer": {
				"videoId": "fallback_vid",
				"title": {"runs": [{"text": "Blinding Lights"}]},
				"ownerText": {"runs": [{"text": "The Weeknd - Topic"}]},
				"lengthText": {"simpleText": "3:22"},
				"thumbnail": {"thumbnails": [{"url": "http://small"}, {"url": "http://large"}]}
			}
		}]}
	}]}}
}`

func newYouTubeFixture(t *testing.T, apiURL, fallbackURL string) *YouTubeExtractor {
	t.Helper()
	logger := shared.NewLogger(io.Discard)
	cache := querycache.New(filepath.Join(t.TempDir(), "queryCache.json"), 10, logger)
	store := library.NewStore(t.TempDir(), logger)
	creds := &credentials.Credentials{YouTubeClientID: "test_api_key"}

	extractor := NewYouTubeExtractor(creds, nil, cache, store, nil, logger)
	if apiURL != "" {
		extractor.apiBaseURL = apiURL
	}
	if fallbackURL != "" {
		extractor.fallback.baseURL = fallbackURL
	}
	return extractor
}

func TestYouTubeSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("API Tier", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.URL.Query().Get("key"); key != "test_api_key" {
				t.Errorf("expected API key in query, got %q", key)
			}
			fmt.Fprint(w, apiSearchBody)
		}))
		defer server.Close()

		extractor := newYouTubeFixture(t, server.URL, "")

		tagged, err := extractor.SearchTagged(ctx, "blinding lights")
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if tagged.Tier != TierAPI {
			t.Errorf("expected api tier, got %s", tagged.Tier)
		}
		if len(tagged.Songs) != 1 || tagged.Songs[0].ID != "api_vid" {
			t.Errorf("unexpected songs %+v", tagged.Songs)
		}
		if tagged.Songs[0].Artists[0].Name != "The Weeknd" {
			t.Errorf("expected channel as artist, got %+v", tagged.Songs[0].Artists)
		}
	})

	t.Run("Falls Back When API Fails", func(t *testing.T) {
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer api.Close()
		fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			fmt.Fprint(w, innertubeSearchBody)
		}))
		defer fallback.Close()

		extractor := newYouTubeFixture(t, api.URL, fallback.URL)

		tagged, err := extractor.SearchTagged(ctx, "blinding lights")
		if err != nil {
			t.Fatalf("expected fallback to absorb the API failure, got %v", err)
		}
		if tagged.Tier != TierFallback {
			t.Errorf("expected fallback tier, got %s", tagged.Tier)
		}
		if len(tagged.Songs) != 1 || tagged.Songs[0].ID != "fallback_vid" {
			t.Errorf("unexpected songs %+v", tagged.Songs)
		}
		song := tagged.Songs[0]
		if song.Duration != 202 {
			t.Errorf("expected parsed duration 202, got %d", song.Duration)
		}
		if song.Thumbnail != "http://large" {
			t.Errorf("expected largest thumbnail, got %q", song.Thumbnail)
		}
	})

	t.Run("Both Tiers Fail", func(t *testing.T) {
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer api.Close()
		fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer fallback.Close()

		extractor := newYouTubeFixture(t, api.URL, fallback.URL)

		_, err := extractor.SearchTagged(ctx, "blinding lights")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest when both tiers fail, got %v", err)
		}
	})

	t.Run("Search Flattens Tagged Result", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, apiSearchBody)
		}))
		defer server.Close()

		extractor := newYouTubeFixture(t, server.URL, "")

		result, err := extractor.Search(ctx, "blinding lights")
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if len(result.Songs) != 1 {
			t.Errorf("expected flattened songs, got %+v", result)
		}
	})
}

func TestResolveDownloadTarget(t *testing.T) {
	ctx := context.Background()

	t.Run("Resolves And Caches", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			fmt.Fprint(w, apiSearchBody)
		}))
		defer server.Close()

		extractor := newYouTubeFixture(t, server.URL, "")

		id, err := extractor.ResolveDownloadTarget(ctx, "Blinding Lights The Weeknd")
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if id != "api_vid" {
			t.Errorf("expected api_vid, got %q", id)
		}

		// Second resolution hits the cache, not the network.
		id, err = extractor.ResolveDownloadTarget(ctx, "the weeknd blinding lights")
		if err != nil {
			t.Fatalf("cached resolve failed: %v", err)
		}
		if id != "api_vid" {
			t.Errorf("expected cached id, got %q", id)
		}
		if calls != 1 {
			t.Errorf("expected a single network search, got %d", calls)
		}
	})

	t.Run("No Candidate", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"items": []}`)
		}))
		defer server.Close()

		extractor := newYouTubeFixture(t, server.URL, "")

		_, err := extractor.ResolveDownloadTarget(ctx, "nothing matches this")
		if !errors.Is(err, shared.ErrNoCandidate) {
			t.Errorf("expected ErrNoCandidate, got %v", err)
		}
	})
}

func TestYouTubeLoginStatus(t *testing.T) {
	ctx := context.Background()
	logger := shared.NewLogger(io.Discard)

	t.Run("API Key Counts As Logged In", func(t *testing.T) {
		extractor := newYouTubeFixture(t, "", "")

		status, err := extractor.LoginStatus(ctx)
		if err != nil {
			t.Fatalf("login status failed: %v", err)
		}
		if !status.Available() {
			t.Errorf("expected available with API key, got %+v", status)
		}
	})

	t.Run("No Credentials", func(t *testing.T) {
		extractor := NewYouTubeExtractor(nil, nil, nil, nil, nil, logger)

		status, err := extractor.LoginStatus(ctx)
		if err != nil {
			t.Fatalf("login status failed: %v", err)
		}
		if status.LoggedIn {
			t.Errorf("expected logged out, got %+v", status)
		}
	})
}

func TestYouTubeFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("Nil Runner Errors", func(t *testing.T) {
		extractor := newYouTubeFixture(t, "", "")

		var got downloads.Event
		extractor.Fetch(ctx, models.Song{ID: "vid2", Source: models.SourceYouTube}, "term", func(ev downloads.Event) {
			got = ev
		})

		if got.Status != downloads.StatusError {
			t.Errorf("expected error event without a runner, got %+v", got)
		}
		if got.Term != "term" {
			t.Errorf("expected event keyed by term, got %q", got.Term)
		}
	})

	t.Run("Resolution Failure Publishes Error", func(t *testing.T) {
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer api.Close()
		fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer fallback.Close()

		extractor := newYouTubeFixture(t, api.URL, fallback.URL)

		var got downloads.Event
		extractor.Fetch(ctx, models.Song{Source: models.SourceYouTube}, "some term", func(ev downloads.Event) {
			got = ev
		})

		if got.Status != downloads.StatusError || got.Message == "" {
			t.Errorf("expected error event with message, got %+v", got)
		}
	})
}
