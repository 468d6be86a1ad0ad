package sources

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/harmonia-app/harmonia/internal/models"
	"github.com/harmonia-app/harmonia/internal/shared"
)

// stubExtractor reports a fixed source and login state and records searches.
type stubExtractor struct {
	Unimplemented
	src      models.Source
	status   AuthStatus
	statusEr error
	searched bool
}

func (s *stubExtractor) Source() models.Source { return s.src }

func (s *stubExtractor) LoginStatus(context.Context) (AuthStatus, error) {
	return s.status, s.statusEr
}

func (s *stubExtractor) Search(context.Context, string) (*SearchResult, error) {
	s.searched = true
	return &SearchResult{}, nil
}

func TestDispatcher(t *testing.T) {
	ctx := context.Background()
	logger := shared.NewLogger(io.Discard)

	t.Run("Prefers Requested Source", func(t *testing.T) {
		spotify := &stubExtractor{src: models.SourceSpotify, status: AuthStatus{LoggedIn: true}}
		local := &stubExtractor{src: models.SourceLocal, status: AuthStatus{LoggedIn: true}}
		d := NewDispatcher([]Extractor{spotify, local}, logger)

		e, err := d.Resolve(ctx, models.SourceLocal)
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if e.Source() != models.SourceLocal {
			t.Errorf("expected preferred source, got %s", e.Source())
		}
	})

	t.Run("Unavailable Preferred Falls To Default", func(t *testing.T) {
		spotify := &stubExtractor{src: models.SourceSpotify, status: AuthStatus{LoggedIn: true}}
		youtube := &stubExtractor{src: models.SourceYouTube, status: AuthStatus{}}
		d := NewDispatcher([]Extractor{spotify, youtube}, logger)

		e, err := d.Resolve(ctx, models.SourceYouTube)
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if e.Source() != models.SourceSpotify {
			t.Errorf("expected default source fallback, got %s", e.Source())
		}
	})

	t.Run("Expired Default Falls To Secondary", func(t *testing.T) {
		spotify := &stubExtractor{src: models.SourceSpotify, status: AuthStatus{LoggedIn: true, Expired: true}}
		youtube := &stubExtractor{src: models.SourceYouTube, status: AuthStatus{LoggedIn: true}}
		d := NewDispatcher([]Extractor{spotify, youtube}, logger)

		e, err := d.Resolve(ctx, "")
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if e.Source() != models.SourceYouTube {
			t.Errorf("expected secondary source, got %s", e.Source())
		}
	})

	t.Run("Nothing Available Returns Default Anyway", func(t *testing.T) {
		spotify := &stubExtractor{src: models.SourceSpotify, status: AuthStatus{}}
		youtube := &stubExtractor{src: models.SourceYouTube, status: AuthStatus{}}
		d := NewDispatcher([]Extractor{spotify, youtube}, logger)

		e, err := d.Resolve(ctx, "")
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if e.Source() != models.SourceSpotify {
			t.Errorf("expected default source regardless of login, got %s", e.Source())
		}
	})

	t.Run("No Default Registered", func(t *testing.T) {
		local := &stubExtractor{src: models.SourceLocal, status: AuthStatus{}}
		d := NewDispatcher([]Extractor{local}, logger)

		_, err := d.Resolve(ctx, "")
		if err == nil {
			t.Fatal("expected error with no default extractor")
		}
		if !errors.Is(err, shared.ErrUnknownSource) {
			t.Errorf("expected ErrUnknownSource, got %v", err)
		}
	})

	t.Run("Status Error Counts As Unavailable", func(t *testing.T) {
		spotify := &stubExtractor{src: models.SourceSpotify, statusEr: errors.New("token store broken")}
		youtube := &stubExtractor{src: models.SourceYouTube, status: AuthStatus{LoggedIn: true}}
		d := NewDispatcher([]Extractor{spotify, youtube}, logger)

		e, err := d.Resolve(ctx, "")
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if e.Source() != models.SourceYouTube {
			t.Errorf("expected fallback past erroring extractor, got %s", e.Source())
		}
	})

	t.Run("Search Delegates", func(t *testing.T) {
		spotify := &stubExtractor{src: models.SourceSpotify, status: AuthStatus{LoggedIn: true}}
		d := NewDispatcher([]Extractor{spotify}, logger)

		if _, err := d.Search(ctx, "", "anything"); err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if !spotify.searched {
			t.Error("expected search to be delegated")
		}
	})

	t.Run("RefreshListDetails Without Refresher Degrades", func(t *testing.T) {
		local := &stubExtractor{src: models.SourceSpotify, status: AuthStatus{LoggedIn: true}}
		d := NewDispatcher([]Extractor{local}, logger)

		// The stub has no refresh support and no GetListDetails either, so
		// the degraded path surfaces ErrNotImplemented.
		_, err := d.RefreshListDetails(ctx, "", "list1")
		if !errors.Is(err, shared.ErrNotImplemented) {
			t.Errorf("expected degraded call to hit ErrNotImplemented, got %v", err)
		}
	})
}
