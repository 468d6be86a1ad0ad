package sources

import (
	"context"

	"github.com/harmonia-app/harmonia/internal/models"
)

// SoundCloudExtractor is a placeholder backend. Every capability reports
// not-implemented, which the dispatcher degrades from gracefully.
type SoundCloudExtractor struct {
	Unimplemented
}

// NewSoundCloudExtractor creates the placeholder extractor.
func NewSoundCloudExtractor() *SoundCloudExtractor {
	return &SoundCloudExtractor{}
}

func (e *SoundCloudExtractor) Source() models.Source {
	return models.SourceSoundCloud
}

func (e *SoundCloudExtractor) LoginStatus(context.Context) (AuthStatus, error) {
	return AuthStatus{}, nil
}
