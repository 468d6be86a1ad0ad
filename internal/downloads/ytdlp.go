package downloads

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harmonia-app/harmonia/internal/shared"
)

// probeTimeout bounds the tool-availability check. The downloads themselves
// carry no timeout; a run goes to tool exit.
const probeTimeout = 5 * time.Second

// ToolRunner shells out to the external fetch-and-transcode tool (yt-dlp).
// The tool is treated as an opaque collaborator emitting progress text, not
// structured progress.
type ToolRunner struct {
	path    string
	format  string
	quality string
	logger  *log.Logger
}

// NewToolRunner locates the tool binary and verifies it responds, failing
// fast with shared.ErrToolUnavailable otherwise.
func NewToolRunner(cfg shared.DownloadsConfig, logger *log.Logger) (*ToolRunner, error) {
	path := cfg.ToolPath
	if path == "" {
		path = "yt-dlp"
	}

	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found in PATH", shared.ErrToolUnavailable, path)
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	if err := exec.CommandContext(ctx, resolved, "--version").Run(); err != nil {
		return nil, fmt.Errorf("%w: %s --version failed: %v", shared.ErrToolUnavailable, path, err)
	}

	format := cfg.AudioFormat
	if format == "" {
		format = "m4a"
	}
	quality := cfg.AudioQuality
	if quality == "" {
		quality = "0"
	}

	return &ToolRunner{
		path:    resolved,
		format:  format,
		quality: quality,
		logger:  logger.With("component", "tool"),
	}, nil
}

// Format returns the audio container extension the tool produces.
func (r *ToolRunner) Format() string {
	return r.format
}

// Run fetches url into outDir as <id>.<format>, streaming each stdout line
// through onOutput. On failure the raw stderr text is part of the returned
// error. Returns the final file path.
func (r *ToolRunner) Run(ctx context.Context, url, outDir, id string, onOutput func(line string)) (string, error) {
	target := filepath.Join(outDir, id+".%(ext)s")

	cmd := exec.CommandContext(ctx, r.path,
		"--extract-audio",
		"--audio-format", r.format,
		"--audio-quality", r.quality,
		"--no-playlist",
		"--output", target,
		url,
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to open tool stdout: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start tool: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		r.logger.Debug("tool output", "line", line)
		if onOutput != nil {
			onOutput(line)
		}
	}

	if err := cmd.Wait(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("tool exited with error: %s", msg)
	}

	return filepath.Join(outDir, id+"."+r.format), nil
}
