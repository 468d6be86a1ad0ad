package downloads

import (
	"errors"
	"io"
	"testing"

	"github.com/harmonia-app/harmonia/internal/shared"
)

func TestNewToolRunner(t *testing.T) {
	t.Run("Missing Tool", func(t *testing.T) {
		cfg := shared.DownloadsConfig{ToolPath: "definitely-not-a-real-binary-name"}

		_, err := NewToolRunner(cfg, shared.NewLogger(io.Discard))
		if err == nil {
			t.Fatal("expected error for missing tool")
		}
		if !errors.Is(err, shared.ErrToolUnavailable) {
			t.Errorf("expected ErrToolUnavailable, got %v", err)
		}
	})
}
