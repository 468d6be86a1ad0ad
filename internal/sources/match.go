package sources

import (
	"strings"

	"github.com/harmonia-app/harmonia/internal/models"
	"github.com/harmonia-app/harmonia/internal/querycache"
)

// minTokenOverlap is the fraction of query words that must appear in a
// candidate title for it to be considered a match.
const minTokenOverlap = 0.7

// variantMarkers signal live/remix/cover/performance uploads, which are
// rejected unless the query itself asks for one.
var variantMarkers = []string{"live", "remix", "cover", "performance", "instrumental", "karaoke"}

// officialMarkers signal uploads from the artist or an auto-generated topic
// channel, which are preferred over fan uploads.
var officialMarkers = []string{"official", "- topic", "provided to youtube"}

// TokenOverlap returns the fraction of query tokens present in the candidate
// text, after cache-style normalization (case- and punctuation-insensitive).
func TokenOverlap(query, candidate string) float64 {
	queryTokens := strings.Fields(querycache.Normalize(query))
	if len(queryTokens) == 0 {
		return 0
	}

	candidateTokens := make(map[string]struct{})
	for _, tok := range strings.Fields(querycache.Normalize(candidate)) {
		candidateTokens[tok] = struct{}{}
	}

	matched := 0
	for _, tok := range queryTokens {
		if _, ok := candidateTokens[tok]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

// PickCandidate resolves a search to a single download candidate:
//
//  1. keep candidates whose title overlaps the query by at least 70%,
//  2. among those, drop live/remix/cover variants the query didn't ask for,
//  3. prefer official/topic uploads,
//  4. otherwise fall back to the first search result.
//
// Returns nil only when candidates is empty.
func PickCandidate(query string, candidates []models.Song) *models.Song {
	if len(candidates) == 0 {
		return nil
	}

	queryLower := strings.ToLower(query)

	var matched []models.Song
	for _, c := range candidates {
		if TokenOverlap(query, c.Title) < minTokenOverlap {
			continue
		}
		if isUnwantedVariant(c, queryLower) {
			continue
		}
		matched = append(matched, c)
	}

	for _, c := range matched {
		if isOfficial(c) {
			return &c
		}
	}
	if len(matched) > 0 {
		return &matched[0]
	}

	// Ties and empty filters fall back to the platform's first result.
	return &candidates[0]
}

func isUnwantedVariant(song models.Song, queryLower string) bool {
	title := strings.ToLower(song.Title)
	for _, marker := range variantMarkers {
		if strings.Contains(title, marker) && !strings.Contains(queryLower, marker) {
			return true
		}
	}
	return false
}

func isOfficial(song models.Song) bool {
	title := strings.ToLower(song.Title)
	for _, marker := range officialMarkers {
		if strings.Contains(title, marker) {
			return true
		}
	}
	for _, artist := range song.Artists {
		name := strings.ToLower(artist.Name)
		for _, marker := range officialMarkers {
			if strings.Contains(name, marker) {
				return true
			}
		}
	}
	return false
}
