package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/harmonia-app/harmonia/internal/models"
	"github.com/harmonia-app/harmonia/internal/shared"
)

const (
	innertubeBaseURL = "https://www.youtube.com/youtubei/v1"

	// Client identity presented to the innertube endpoint. The Android
	// client profile gets plain JSON responses without continuation
	// wrappers.
	innertubeClientName    = "ANDROID"
	innertubeClientVersion = "19.09.37"
)

// innertubeClient is the unauthenticated client-emulation fallback used when
// the official Data API fails (quota exhaustion surfaces as HTTP 403).
// Requests are rate-limited since this path has no quota accounting of its
// own.
type innertubeClient struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

func newInnertubeClient() *innertubeClient {
	return &innertubeClient{
		httpClient: http.DefaultClient,
		baseURL:    innertubeBaseURL,
		limiter:    rate.NewLimiter(rate.Limit(2), 1),
	}
}

type innertubeRun struct {
	Text string `json:"text"`
}

type innertubeVideo struct {
	VideoID string `json:"videoId"`
	Title   struct {
		Runs []innertubeRun `json:"runs"`
	} `json:"title"`
	OwnerText struct {
		Runs []innertubeRun `json:"runs"`
	} `json:"ownerText"`
	LengthText struct {
		SimpleText string `json:"simpleText"`
	} `json:"lengthText"`
	Thumbnail struct {
		Thumbnails []struct {
			URL string `json:"url"`
		} `json:"thumbnails"`
	} `json:"thumbnail"`
}

type innertubeSearchResponse struct {
	Contents struct {
		SectionListRenderer struct {
			Contents []struct {
				ItemSectionRenderer struct {
					Contents []struct {
						VideoRenderer *innertubeVideo `json:"videoRenderer"`
					} `json:"contents"`
				} `json:"itemSectionRenderer"`
			} `json:"contents"`
		} `json:"sectionListRenderer"`
	} `json:"contents"`
}

// search posts a search query with an emulated client context and flattens
// the renderer tree into songs.
func (c *innertubeClient) search(ctx context.Context, query string) ([]models.Song, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]any{
		"context": map[string]any{
			"client": map[string]any{
				"clientName":    innertubeClientName,
				"clientVersion": innertubeClientVersion,
				"hl":            "en",
			},
		},
		"query": query,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: innertube returned status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var parsed innertubeSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode innertube response: %w", err)
	}

	var songs []models.Song
	for _, section := range parsed.Contents.SectionListRenderer.Contents {
		for _, item := range section.ItemSectionRenderer.Contents {
			video := item.VideoRenderer
			if video == nil || video.VideoID == "" {
				continue
			}
			songs = append(songs, convertInnertubeVideo(*video))
		}
	}
	return songs, nil
}

func convertInnertubeVideo(v innertubeVideo) models.Song {
	song := models.Song{
		ID:       v.VideoID,
		Source:   models.SourceYouTube,
		Title:    joinRuns(v.Title.Runs),
		Duration: parseClockDuration(v.LengthText.SimpleText),
	}
	if owner := joinRuns(v.OwnerText.Runs); owner != "" {
		song.Artists = []models.SimpleArtist{
			{ID: owner, Source: models.SourceYouTube, Name: owner},
		}
	}
	if len(v.Thumbnail.Thumbnails) > 0 {
		song.Thumbnail = v.Thumbnail.Thumbnails[len(v.Thumbnail.Thumbnails)-1].URL
	}
	return song
}

func joinRuns(runs []innertubeRun) string {
	out := ""
	for _, r := range runs {
		out += r.Text
	}
	return out
}

// parseClockDuration converts "3:45" or "1:02:03" to seconds; malformed text
// is 0.
func parseClockDuration(text string) int {
	if text == "" {
		return 0
	}
	total := 0
	part := 0
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			part = part*10 + int(r-'0')
		case r == ':':
			total = total*60 + part
			part = 0
		default:
			return 0
		}
	}
	return total*60 + part
}
