package library

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/harmonia-app/harmonia/internal/models"
	"github.com/harmonia-app/harmonia/internal/shared"
)

func TestAudio(t *testing.T) {
	t.Run("ImportFile Without Tags Falls Back", func(t *testing.T) {
		store := NewStore(t.TempDir(), shared.NewLogger(io.Discard))

		// Not a real audio container, so tag extraction fails and the
		// filename-derived fallbacks apply.
		srcDir := t.TempDir()
		original := filepath.Join(srcDir, "My Great Song.mp3")
		if err := os.WriteFile(original, []byte("not actual audio"), 0644); err != nil {
			t.Fatalf("failed to write sample file: %v", err)
		}

		song, err := store.ImportFile(original)
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}

		if song.Title != "My Great Song" {
			t.Errorf("expected filename-derived title, got %q", song.Title)
		}
		if len(song.Artists) != 1 || song.Artists[0].Name != FallbackArtist {
			t.Errorf("expected fallback artist, got %+v", song.Artists)
		}
		if song.Source != models.SourceLocal {
			t.Errorf("expected local source, got %s", song.Source)
		}

		loaded, err := store.LoadSong(song.ID, models.SourceLocal)
		if err != nil {
			t.Fatalf("failed to load imported song: %v", err)
		}
		if loaded == nil {
			t.Fatal("expected imported song record to be persisted")
		}

		path, err := store.ResolveAudioPath(song.ID)
		if err != nil {
			t.Fatalf("failed to resolve audio path: %v", err)
		}
		if path == "" {
			t.Fatal("expected managed audio copy to exist")
		}
		if filepath.Ext(path) != ".mp3" {
			t.Errorf("expected original extension to be kept, got %q", path)
		}
	})

	t.Run("ImportRaw Uses Explicit ID", func(t *testing.T) {
		store := NewStore(t.TempDir(), shared.NewLogger(io.Discard))

		srcDir := t.TempDir()
		original := filepath.Join(srcDir, "track.opus")
		if err := os.WriteFile(original, []byte("bytes"), 0644); err != nil {
			t.Fatalf("failed to write sample file: %v", err)
		}

		song, err := store.ImportRaw(original, "fixed-id")
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if song.ID != "fixed-id" {
			t.Errorf("expected explicit id, got %q", song.ID)
		}
		if song.Title != "track" {
			t.Errorf("expected filename title, got %q", song.Title)
		}

		path, err := store.ResolveAudioPath("fixed-id")
		if err != nil {
			t.Fatalf("failed to resolve audio path: %v", err)
		}
		if path == "" {
			t.Error("expected audio copy under explicit id")
		}
	})

	t.Run("SaveAudioBlob", func(t *testing.T) {
		store := NewStore(t.TempDir(), shared.NewLogger(io.Discard))

		path, err := store.SaveAudioBlob("vid1", models.SourceYouTube, []byte("audio"), "m4a")
		if err != nil {
			t.Fatalf("failed to save blob: %v", err)
		}
		if filepath.Base(path) != "vid1.m4a" {
			t.Errorf("expected vid1.m4a, got %q", filepath.Base(path))
		}
		if filepath.Dir(path) != store.AudioDir(models.SourceYouTube) {
			t.Errorf("expected blob under youtube namespace, got %q", path)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read blob back: %v", err)
		}
		if string(data) != "audio" {
			t.Errorf("expected blob bytes to round trip, got %q", data)
		}
	})

	t.Run("ResolveAudioPath Missing", func(t *testing.T) {
		store := NewStore(t.TempDir(), shared.NewLogger(io.Discard))

		path, err := store.ResolveAudioPath("absent")
		if err != nil {
			t.Fatalf("expected no error for missing audio, got %v", err)
		}
		if path != "" {
			t.Errorf("expected empty path for missing audio, got %q", path)
		}
	})

	t.Run("DeleteSongWithAudio", func(t *testing.T) {
		store := NewStore(t.TempDir(), shared.NewLogger(io.Discard))

		srcDir := t.TempDir()
		original := filepath.Join(srcDir, "gone.mp3")
		if err := os.WriteFile(original, []byte("bytes"), 0644); err != nil {
			t.Fatalf("failed to write sample file: %v", err)
		}

		song, err := store.ImportFile(original)
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}

		deleted, err := store.DeleteSongWithAudio(song.ID)
		if err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if !deleted {
			t.Error("expected delete to report true")
		}

		path, err := store.ResolveAudioPath(song.ID)
		if err != nil {
			t.Fatalf("resolve after delete failed: %v", err)
		}
		if path != "" {
			t.Errorf("expected audio blob to be removed, still found %q", path)
		}

		record, err := store.LoadSong(song.ID, models.SourceLocal)
		if err != nil {
			t.Fatalf("load after delete failed: %v", err)
		}
		if record != nil {
			t.Error("expected song record to be removed")
		}
	})
}
